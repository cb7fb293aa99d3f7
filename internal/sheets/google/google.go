// Package google mirrors ledger rows into a Google Sheet, one tab per year
// ("2024 Ledger"), keyed by transaction id in column A.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/log"
	"fintrack/internal/sheets"
)

const DefaultSheetName = "Ledger"

var header = []any{"ID", "Owner", "Date", "Type", "Leg", "Amount", "Account", "Category", "Description"}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *slog.Logger

	mu       sync.Mutex
	sheetIDs map[string]int64
}

var _ sheets.LedgerMirror = (*Client)(nil)

// New builds a mirror client authenticated with the service account from the
// environment.
func New(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, err
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     sheetName,
		logger:        slog.Default().With(log.FieldComponent, log.ComponentSheets),
		sheetIDs:      map[string]int64{},
	}, nil
}

func NewFromEnv(ctx context.Context) (*Client, error) {
	return New(ctx, os.Getenv("GOOGLE_SPREADSHEET_ID"), os.Getenv("GOOGLE_SHEET_NAME"))
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Upsert rewrites rows already present in place and appends the rest.
func (c *Client) Upsert(ctx context.Context, rows []sheets.Row) error {
	groups := groupBySheet(c.sheetBase, rows)
	for _, sheet := range sortedKeys(groups) {
		group := groups[sheet]
		if err := c.ensureSheet(ctx, sheet); err != nil {
			return err
		}
		index, err := c.indexIDs(ctx, sheet)
		if err != nil {
			return err
		}

		var updates []*gsheet.ValueRange
		var appends [][]any
		for _, r := range group {
			if n, ok := index[r.TransactionID]; ok {
				updates = append(updates, &gsheet.ValueRange{
					Range:  fmt.Sprintf("%s!A%d:I%d", quote(sheet), n, n),
					Values: [][]any{toValues(r)},
				})
				continue
			}
			appends = append(appends, toValues(r))
		}

		if len(updates) > 0 {
			req := &gsheet.BatchUpdateValuesRequest{ValueInputOption: "USER_ENTERED", Data: updates}
			if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
				return fmt.Errorf("update rows in %s: %w", sheet, err)
			}
		}
		if len(appends) > 0 {
			vr := &gsheet.ValueRange{Values: appends}
			_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, quote(sheet)+"!A:I", vr).
				ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
			if err != nil {
				return fmt.Errorf("append rows to %s: %w", sheet, err)
			}
		}
		c.logger.DebugContext(ctx, "Mirrored rows",
			log.FieldOperation, log.OpMirror, "sheet", sheet, "updated", len(updates), "appended", len(appends))
	}
	return nil
}

// Remove deletes mirrored rows. Rows are deleted bottom-up so earlier
// deletions do not shift the indexes of later ones.
func (c *Client) Remove(ctx context.Context, rows []sheets.Row) error {
	groups := groupBySheet(c.sheetBase, rows)
	for _, sheet := range sortedKeys(groups) {
		sheetID, ok, err := c.sheetID(ctx, sheet)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		index, err := c.indexIDs(ctx, sheet)
		if err != nil {
			return err
		}
		var rowNums []int
		for _, r := range groups[sheet] {
			if n, ok := index[r.TransactionID]; ok {
				rowNums = append(rowNums, n)
			}
		}
		if len(rowNums) == 0 {
			continue
		}
		req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: deleteRequests(sheetID, rowNums)}
		if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
			return fmt.Errorf("delete rows from %s: %w", sheet, err)
		}
		c.logger.DebugContext(ctx, "Removed mirrored rows",
			log.FieldOperation, log.OpMirror, "sheet", sheet, "removed", len(rowNums))
	}
	return nil
}

// indexIDs maps transaction id to its 1-based row number.
func (c *Client) indexIDs(ctx context.Context, sheet string) (map[string]int, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, quote(sheet)+"!A:A").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read ids from %s: %w", sheet, err)
	}
	return indexColumn(resp.Values), nil
}

func (c *Client) sheetID(ctx context.Context, title string) (int64, bool, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[title]
	c.mu.Unlock()
	if ok {
		return id, true, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("read spreadsheet: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			c.sheetIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}
	id, ok = c.sheetIDs[title]
	return id, ok, nil
}

// ensureSheet creates the tab with its header row when it does not exist.
func (c *Client) ensureSheet(ctx context.Context, title string) error {
	if _, ok, err := c.sheetID(ctx, title); err != nil || ok {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil {
		c.mu.Lock()
		c.sheetIDs[title] = resp.Replies[0].AddSheet.Properties.SheetId
		c.mu.Unlock()
	}

	vr := &gsheet.ValueRange{Values: [][]any{header}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, quote(title)+"!A1:I1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header to %s: %w", title, err)
	}
	c.logger.InfoContext(ctx, "Created mirror sheet", "sheet", title)
	return nil
}

func toValues(r sheets.Row) []any {
	return []any{
		r.TransactionID,
		r.OwnerID,
		r.Date.UTC().Format("2006-01-02"),
		string(r.Type),
		string(r.Leg),
		r.Amount.StringFixed(2),
		r.Account,
		r.Category,
		r.Description,
	}
}

func indexColumn(values [][]any) map[string]int {
	index := make(map[string]int, len(values))
	for i, row := range values {
		if i == 0 || len(row) == 0 {
			continue // header
		}
		id := strings.TrimSpace(fmt.Sprint(row[0]))
		if id != "" {
			index[id] = i + 1
		}
	}
	return index
}

func deleteRequests(sheetID int64, rowNums []int) []*gsheet.Request {
	sort.Sort(sort.Reverse(sort.IntSlice(rowNums)))
	reqs := make([]*gsheet.Request, 0, len(rowNums))
	for _, n := range rowNums {
		reqs = append(reqs, &gsheet.Request{DeleteDimension: &gsheet.DeleteDimensionRequest{
			Range: &gsheet.DimensionRange{
				SheetId:    sheetID,
				Dimension:  "ROWS",
				StartIndex: int64(n - 1),
				EndIndex:   int64(n),
			},
		}})
	}
	return reqs
}

func groupBySheet(base string, rows []sheets.Row) map[string][]sheets.Row {
	out := map[string][]sheets.Row{}
	for _, r := range rows {
		name := yearPrefixedName(base, r.Date.UTC().Year())
		out[name] = append(out[name], r)
	}
	return out
}

func sortedKeys(m map[string][]sheets.Row) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func quote(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a
// four-digit year.
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
