package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"reseller/internal/core"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

// amountInput accepts a JSON number or string and coerces it with
// core.ParseAmount, so malformed values become zero.
type amountInput struct {
	set   bool
	value core.Money
}

func (a *amountInput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = amountInput{}
		return nil
	}
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	*a = amountInput{set: true, value: core.ParseAmount(raw)}
	return nil
}

type createExpenseRequest struct {
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Amount      amountInput `json:"amount"`
	Date        string      `json:"date"`
	IsRecurring bool        `json:"isRecurring"`
}

// toRecord validates the request. An empty date means asOf.
func (req createExpenseRequest) toRecord(asOf core.Date) (core.ExpenseRecord, error) {
	category, err := core.ParseCategory(req.Category)
	if err != nil {
		return core.ExpenseRecord{}, err
	}

	date := asOf
	if strings.TrimSpace(req.Date) != "" {
		if date, err = core.ParseDate(req.Date); err != nil {
			return core.ExpenseRecord{}, err
		}
	}

	return core.ExpenseRecord{
		Category:    category,
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount.value,
		Date:        date,
		IsRecurring: req.IsRecurring,
	}, nil
}

type patchExpenseRequest struct {
	Category    *string     `json:"category"`
	Description *string     `json:"description"`
	Amount      amountInput `json:"amount"`
	Date        *string     `json:"date"`
	IsRecurring *bool       `json:"isRecurring"`
}

func (req patchExpenseRequest) toPatch() (core.ExpensePatch, error) {
	var patch core.ExpensePatch

	if req.Category != nil {
		c, err := core.ParseCategory(*req.Category)
		if err != nil {
			return patch, err
		}
		patch.Category = &c
	}
	if req.Description != nil {
		d := strings.TrimSpace(*req.Description)
		patch.Description = &d
	}
	if req.Amount.set {
		a := req.Amount.value
		patch.Amount = &a
	}
	if req.Date != nil {
		d, err := core.ParseDate(*req.Date)
		if err != nil {
			return patch, err
		}
		patch.Date = &d
	}
	patch.IsRecurring = req.IsRecurring

	return patch, nil
}

// decodeJSON reads a single JSON object from the body into dst. Unknown
// fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must contain a single JSON object", errBadRequest)
	}
	return nil
}

// ParseAsOf reads the as_of query parameter, defaulting to today's date
// from now.
func ParseAsOf(query url.Values, now time.Time) (core.Date, error) {
	v := strings.TrimSpace(query.Get("as_of"))
	if v == "" {
		return core.DateOf(now), nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: as_of must be YYYY-MM-DD", errBadRequest)
	}
	return d, nil
}
