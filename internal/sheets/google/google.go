package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "reseller/internal/sheets"
)

// Options configures the Sheets client. One of CredentialsJSON or
// CredentialsFile is required unless ClientOptions supply authentication.
type Options struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
	TabPrefix       string
	ClientOptions   []goption.ClientOption
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	tabPrefix     string

	mu        sync.Mutex
	knownTabs map[string]bool
}

var _ ports.LedgerWriter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet ID")
	}

	clientOpts := opts.ClientOptions
	if len(clientOpts) == 0 {
		credentialsJSON, err := readCredentials(opts)
		if err != nil {
			return nil, err
		}
		jwtConfig, err := googleoauth.JWTConfigFromJSON(credentialsJSON, gsheet.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("parse service account credentials: %w", err)
		}
		// Token refreshes outlive ctx, so the oauth2 context is not derived from it.
		oauthCtx := context.WithValue(context.Background(), oauth2.HTTPClient, NewHTTPClient())
		clientOpts = []goption.ClientOption{goption.WithHTTPClient(jwtConfig.Client(oauthCtx))}
	}

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	prefix := opts.TabPrefix
	if prefix == "" {
		prefix = "Ledger "
	}

	slog.InfoContext(ctx, "Google Sheets client ready", "spreadsheet_id", spreadsheetID)
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		tabPrefix:     prefix,
		knownTabs:     make(map[string]bool),
	}, nil
}

func readCredentials(opts Options) ([]byte, error) {
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		return []byte(opts.CredentialsJSON), nil
	case opts.CredentialsFile != "":
		data, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// NewHTTPClient returns an HTTP client tuned for the Sheets API with
// connection pooling and bounded timeouts. It carries the service account
// token requests and the API calls.
func NewHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// WriteLedger replaces the owner's tab with values, creating the tab on
// first use.
func (c *Client) WriteLedger(ctx context.Context, ownerID string, values [][]any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	tab := TabName(c.tabPrefix, ownerID)
	if err := c.ensureTab(ctx, tab); err != nil {
		return err
	}

	all := quoteRange(tab, "A:Z")
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, all, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", all, err)
	}

	start := quoteRange(tab, "A1")
	vr := &gsheet.ValueRange{Values: values}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, start, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", start, err)
	}

	slog.InfoContext(ctx, "Ledger mirrored to sheet",
		"owner_id", ownerID,
		"tab", tab,
		"rows", len(values))
	return nil
}

func (c *Client) ensureTab(ctx context.Context, tab string) error {
	c.mu.Lock()
	known := c.knownTabs[tab]
	c.mu.Unlock()
	if known {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}

	c.mu.Lock()
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			c.knownTabs[s.Properties.Title] = true
		}
	}
	known = c.knownTabs[tab]
	c.mu.Unlock()
	if known {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: tab},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", tab, err)
	}

	c.mu.Lock()
	c.knownTabs[tab] = true
	c.mu.Unlock()

	slog.InfoContext(ctx, "Sheet tab created", "tab", tab)
	return nil
}
