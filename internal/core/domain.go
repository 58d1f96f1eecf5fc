package core

import (
	"errors"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Shipping  Category = "shipping"
	Warehouse Category = "warehouse"
	Packaging Category = "packaging"
	Marketing Category = "marketing"
	Software  Category = "software"
	Fees      Category = "fees"
	Returns   Category = "returns"
	Travel    Category = "travel"
	Other     Category = "other"
)

// MaxDescriptionLength bounds the free-text description of a record, in
// characters.
const MaxDescriptionLength = 500

type (
	Category string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64 `json:"cents"`
	}

	// ExpenseRecord is a single expense entry owned by one reseller.
	// For a recurring record Amount is the per-month figure and Date the
	// start of accrual.
	ExpenseRecord struct {
		ID          string    `json:"id"`
		OwnerID     string    `json:"ownerId"`
		Category    Category  `json:"category"`
		Description string    `json:"description"`
		Amount      Money     `json:"amount"`
		Date        Date      `json:"date"`
		IsRecurring bool      `json:"isRecurring"`
		CreatedAt   time.Time `json:"createdAt"`
		UpdatedAt   time.Time `json:"updatedAt"`
	}

	// ExpensePatch carries a partial update. Nil fields are left untouched.
	ExpensePatch struct {
		Category    *Category
		Description *string
		Amount      *Money
		Date        *Date
		IsRecurring *bool
	}

	// User is the authenticated session owner.
	User struct {
		ID string
	}
)

var (
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrDescriptionTooLong = errors.New("description too long")
	ErrEmptyOwner         = errors.New("empty owner")
	ErrEmptyPatch         = errors.New("empty patch")
)

// categoryLabels is the single lookup table for the category enumeration.
// Order is the display order.
var categoryLabels = []struct {
	Category Category
	Label    string
}{
	{Shipping, "Shipping"},
	{Warehouse, "Warehouse"},
	{Packaging, "Packaging"},
	{Marketing, "Marketing"},
	{Software, "Software"},
	{Fees, "Fees"},
	{Returns, "Returns"},
	{Travel, "Travel"},
	{Other, "Other"},
}

// Categories returns the enumeration in display order.
func Categories() []Category {
	out := make([]Category, len(categoryLabels))
	for i, c := range categoryLabels {
		out[i] = c.Category
	}
	return out
}

// Label returns the display label, or the raw value for unknown categories.
func (c Category) Label() string {
	for _, e := range categoryLabels {
		if e.Category == c {
			return e.Label
		}
	}
	return string(c)
}

func (c Category) Valid() bool {
	for _, e := range categoryLabels {
		if e.Category == c {
			return true
		}
	}
	return false
}

// ParseCategory normalizes case and surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents < 0 || m.Cents > MaxCents {
		return ErrInvalidAmount
	}
	return nil
}

func (r ExpenseRecord) Validate() error {
	if strings.TrimSpace(r.OwnerID) == "" {
		return ErrEmptyOwner
	}
	if !r.Category.Valid() {
		return ErrInvalidCategory
	}
	if utf8.RuneCountInString(r.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	return r.Date.Validate()
}

// Apply returns a copy of r with the patch applied. Identity fields are kept.
func (p ExpensePatch) Apply(r ExpenseRecord) ExpenseRecord {
	if p.Category != nil {
		r.Category = *p.Category
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Amount != nil {
		r.Amount = *p.Amount
	}
	if p.Date != nil {
		r.Date = *p.Date
	}
	if p.IsRecurring != nil {
		r.IsRecurring = *p.IsRecurring
	}
	return r
}

func (p ExpensePatch) IsEmpty() bool {
	return p.Category == nil && p.Description == nil && p.Amount == nil &&
		p.Date == nil && p.IsRecurring == nil
}

func (p ExpensePatch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.Category != nil && !p.Category.Valid() {
		return ErrInvalidCategory
	}
	if p.Description != nil && utf8.RuneCountInString(*p.Description) > MaxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return err
		}
	}
	if p.Date != nil {
		if err := p.Date.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// SortByDateDesc orders records most recent first; ties go to the newest
// insert, then to the greater ID so the order is total.
func SortByDateDesc(records []ExpenseRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date.Time) {
			return records[i].Date.After(records[j].Date.Time)
		}
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
}
