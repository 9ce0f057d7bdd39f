// Package google mirrors datasets to a Google Sheets spreadsheet. Each
// year gets one tab per dataset kind ("2025 Despeses", "2025 Deutes");
// rows carry the username and month so several accounts can share one
// spreadsheet. Mirroring a period replaces that user+month's rows.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"despeses/internal/core"
	"despeses/internal/mirror"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const (
	expensesBase = "Despeses"
	debtsBase    = "Deutes"
)

var (
	expensesHeader = []any{"username", "month", "concept", "amount", "category", "description"}
	debtsHeader    = []any{"username", "month", "name", "total", "start_date", "end_date", "paid", "status", "months_paid"}
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string

	mu          sync.Mutex
	knownSheets map[string]bool
}

var _ mirror.DatasetMirror = (*Client)(nil)

// Options configures the Sheets mirror. Credentials come from either
// inline service-account JSON or a file path, JSON winning when both
// are set.
type Options struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// New creates a Sheets mirror for the configured spreadsheet.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	credentials, err := opts.credentials()
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets mirror ready", "spreadsheet_id", spreadsheetID)
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		knownSheets:   make(map[string]bool),
	}, nil
}

func (o Options) credentials() ([]byte, error) {
	switch {
	case strings.TrimSpace(o.ServiceAccountJSON) != "":
		return []byte(o.ServiceAccountJSON), nil
	case strings.TrimSpace(o.ServiceAccountFile) != "":
		b, err := os.ReadFile(strings.TrimSpace(o.ServiceAccountFile))
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials")
	}
}

// MirrorExpenses implements mirror.DatasetMirror.
func (c *Client) MirrorExpenses(ctx context.Context, username string, p core.Period, expenses []core.Expense) error {
	return c.mirrorRows(ctx,
		yearPrefixedName(expensesBase, p.Year),
		expensesHeader,
		username, int(p.Month),
		expenseRows(username, int(p.Month), expenses))
}

// MirrorDebts implements mirror.DatasetMirror.
func (c *Client) MirrorDebts(ctx context.Context, username string, p core.Period, debts []core.Debt) error {
	return c.mirrorRows(ctx,
		yearPrefixedName(debtsBase, p.Year),
		debtsHeader,
		username, int(p.Month),
		debtRows(username, int(p.Month), debts))
}

func (c *Client) mirrorRows(ctx context.Context, sheet string, header []any, username string, month int, replacement [][]any) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := c.ensureSheet(ctx, sheet); err != nil {
		return err
	}

	dataRange := fmt.Sprintf("%s!A2:%c", sheet, 'A'+len(header)-1)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, dataRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", dataRange, err)
	}

	merged := mergeRows(resp.Values, replacement, username, month)

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, dataRange, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", dataRange, err)
	}

	headerRange := fmt.Sprintf("%s!A1", sheet)
	vr := &gsheet.ValueRange{Values: append([][]any{header}, merged...)}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, headerRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", sheet, err)
	}

	slog.InfoContext(ctx, "Mirrored dataset to Google Sheets",
		"sheet", sheet,
		"username", username,
		"month", month,
		"rows", len(replacement))
	return nil
}

// ensureSheet creates the tab if the spreadsheet does not have it yet.
func (c *Client) ensureSheet(ctx context.Context, title string) error {
	c.mu.Lock()
	known := c.knownSheets[title]
	c.mu.Unlock()
	if known {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			c.remember(title)
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}

	slog.InfoContext(ctx, "Created mirror sheet", "sheet", title)
	c.remember(title)
	return nil
}

func (c *Client) remember(title string) {
	c.mu.Lock()
	c.knownSheets[title] = true
	c.mu.Unlock()
}

func expenseRows(username string, month int, expenses []core.Expense) [][]any {
	rows := make([][]any, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, []any{
			username,
			month,
			e.Concept,
			e.Amount.DecimalString(),
			e.Category.String(),
			e.Description,
		})
	}
	return rows
}

func debtRows(username string, month int, debts []core.Debt) [][]any {
	rows := make([][]any, 0, len(debts))
	for _, d := range debts {
		rows = append(rows, []any{
			username,
			month,
			d.Name,
			d.Total.DecimalString(),
			d.StartDate.ISO(),
			d.EndDate.ISO(),
			strconv.FormatBool(d.Paid),
			d.Status,
			d.MonthsPaid,
		})
	}
	return rows
}

// mergeRows keeps every existing row except those belonging to the given
// user and month, then appends the replacement rows.
func mergeRows(existing [][]any, replacement [][]any, username string, month int) [][]any {
	monthStr := strconv.Itoa(month)
	out := make([][]any, 0, len(existing)+len(replacement))
	for _, row := range existing {
		if len(row) >= 2 {
			rowUser := strings.TrimSpace(fmt.Sprint(row[0]))
			rowMonth := strings.TrimSpace(fmt.Sprint(row[1]))
			if rowUser == username && rowMonth == monthStr {
				continue
			}
		}
		out = append(out, row)
	}
	return append(out, replacement...)
}

// yearPrefixedName returns "<year> <base>" unless base already starts
// with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
