// Package google mirrors ledger entries into a Google Sheets tab.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"solarbooks/internal/core"
	ports "solarbooks/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.EntryMirror = (*Client)(nil)

// New creates a client for one tab of a spreadsheet, authenticating with a
// service account (see newSheetsService).
func New(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = "Ledger"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) readIndex(ctx context.Context) (map[string]int, int, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", rng, err)
	}
	return indexRows(resp.Values), len(resp.Values), nil
}

// Upsert rewrites rows of entries already in the sheet and appends the rest.
func (c *Client) Upsert(ctx context.Context, entries []core.LedgerEntry) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if len(entries) == 0 {
		return nil
	}

	index, used, err := c.readIndex(ctx)
	if err != nil {
		return err
	}

	var updates []*gsheet.ValueRange
	var appends [][]any
	if used == 0 {
		appends = append(appends, headerRow())
	}
	for _, e := range entries {
		if n, ok := index[e.ID]; ok {
			updates = append(updates, &gsheet.ValueRange{Range: rowRange(c.sheetName, n), Values: [][]any{ports.Row(e)}})
			continue
		}
		appends = append(appends, ports.Row(e))
	}

	if len(updates) > 0 {
		req := &gsheet.BatchUpdateValuesRequest{ValueInputOption: "RAW", Data: updates}
		if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("update rows in %s: %w", c.sheetName, err)
		}
	}
	if len(appends) > 0 {
		vr := &gsheet.ValueRange{Values: appends}
		_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.sheetName+"!A:"+lastColumn(), vr).
			ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("append rows to %s: %w", c.sheetName, err)
		}
	}

	slog.InfoContext(ctx, "Mirrored entries to Google Sheets",
		"sheet", c.sheetName,
		"updated", len(updates),
		"appended", len(appends))
	return nil
}

// Remove clears the rows of the given entries. Rows are blanked rather than
// deleted so other row numbers stay stable.
func (c *Client) Remove(ctx context.Context, ids []string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	index, _, err := c.readIndex(ctx)
	if err != nil {
		return err
	}

	var ranges []string
	for _, id := range ids {
		if n, ok := index[id]; ok {
			ranges = append(ranges, rowRange(c.sheetName, n))
		}
	}
	if len(ranges) == 0 {
		return nil
	}

	req := &gsheet.BatchClearValuesRequest{Ranges: ranges}
	if _, err := c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear rows in %s: %w", c.sheetName, err)
	}
	slog.InfoContext(ctx, "Removed entries from Google Sheets", "sheet", c.sheetName, "rows", len(ranges))
	return nil
}
