package sheets

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"telegram-onboarding-bot/internal/config"
	"telegram-onboarding-bot/internal/domain/model"
	"telegram-onboarding-bot/internal/domain/ports/repository"
)

var _ repository.RecordRepository = (*RecordRepo)(nil)

// Header matches the remote layout: one row per completed onboarding,
// interests and platforms comma-joined.
var header = []interface{}{
	"Telegram ID", "Username", "Country", "Interests", "Platforms",
	"App Link", "Full Name", "Completed On",
}

const timestampLayout = "2006-01-02 15:04:05"

// RecordRepo is the remote tabular backend. On construction it locates (or
// creates) the configured spreadsheet and worksheet and bootstraps the header
// row. Every call is a remote API call; failures surface directly with no
// retry.
type RecordRepo struct {
	svc           *sheets.Service
	spreadsheetID string
	worksheet     string
	log           *zerolog.Logger
}

func NewRecordRepo(ctx context.Context, cfg config.SheetsConfig, logger *zerolog.Logger) (*RecordRepo, error) {
	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	} else {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsScope, drive.DriveScope))

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	r := &RecordRepo{svc: svc, worksheet: cfg.WorksheetName, log: logger}

	r.spreadsheetID = cfg.SpreadsheetID
	if r.spreadsheetID == "" {
		id, err := findOrCreateSpreadsheet(ctx, svc, cfg, opts)
		if err != nil {
			return nil, err
		}
		r.spreadsheetID = id
	}
	if err := r.ensureWorksheet(ctx); err != nil {
		return nil, err
	}

	logger.Info().Str("spreadsheet_id", r.spreadsheetID).Str("worksheet", r.worksheet).
		Msg("connected to google sheets")
	return r, nil
}

// findOrCreateSpreadsheet looks the spreadsheet up by name through the Drive
// API and creates it when absent.
func findOrCreateSpreadsheet(ctx context.Context, svc *sheets.Service, cfg config.SheetsConfig, opts []option.ClientOption) (string, error) {
	drv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("drive service: %w", err)
	}
	q := fmt.Sprintf("name = '%s' and mimeType = 'application/vnd.google-apps.spreadsheet' and trashed = false",
		cfg.SpreadsheetName)
	list, err := drv.Files.List().Q(q).PageSize(1).Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("find spreadsheet %q: %w", cfg.SpreadsheetName, err)
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	created, err := svc.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: cfg.SpreadsheetName},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create spreadsheet %q: %w", cfg.SpreadsheetName, err)
	}
	return created.SpreadsheetId, nil
}

// ensureWorksheet adds the worksheet if missing and writes the header row to
// a freshly created one.
func (r *RecordRepo) ensureWorksheet(ctx context.Context) error {
	ss, err := r.svc.Spreadsheets.Get(r.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == r.worksheet {
			return nil
		}
	}

	_, err = r.svc.Spreadsheets.BatchUpdate(r.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: r.worksheet},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add worksheet %q: %w", r.worksheet, err)
	}

	vr := &sheets.ValueRange{Values: [][]interface{}{header}}
	_, err = r.svc.Spreadsheets.Values.Update(r.spreadsheetID, r.rng("A1:H1"), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

func (r *RecordRepo) rng(cells string) string {
	return fmt.Sprintf("'%s'!%s", r.worksheet, cells)
}

func row(rec *model.UserRecord) []interface{} {
	completed := rec.CompletedAt
	if completed.IsZero() {
		completed = time.Now()
	}
	return []interface{}{
		strconv.FormatInt(rec.TelegramID, 10),
		rec.Username,
		rec.Country,
		rec.InterestsJoined(),
		rec.PlatformsJoined(),
		rec.AppLink,
		rec.FullName,
		completed.Format(timestampLayout),
	}
}

func (r *RecordRepo) Exists(ctx context.Context, tgID int64) (bool, error) {
	idx, err := r.findRow(ctx, tgID)
	if err != nil {
		return false, err
	}
	return idx > 0, nil
}

// findRow returns the 1-based sheet row holding tgID, or 0 when absent.
func (r *RecordRepo) findRow(ctx context.Context, tgID int64) (int, error) {
	resp, err := r.svc.Spreadsheets.Values.Get(r.spreadsheetID, r.rng("A:A")).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read id column: %w", err)
	}
	want := strconv.FormatInt(tgID, 10)
	for i, rowVals := range resp.Values {
		if i == 0 {
			continue // header
		}
		if len(rowVals) > 0 && fmt.Sprint(rowVals[0]) == want {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (r *RecordRepo) Append(ctx context.Context, rec *model.UserRecord) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{row(rec)}}
	_, err := r.svc.Spreadsheets.Values.Append(r.spreadsheetID, r.rng("A:H"), vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return nil
}

// Upsert replaces the user's existing row in place, or appends when the user
// has no row yet.
func (r *RecordRepo) Upsert(ctx context.Context, rec *model.UserRecord) error {
	idx, err := r.findRow(ctx, rec.TelegramID)
	if err != nil {
		return err
	}
	if idx == 0 {
		return r.Append(ctx, rec)
	}
	vr := &sheets.ValueRange{Values: [][]interface{}{row(rec)}}
	_, err = r.svc.Spreadsheets.Values.Update(r.spreadsheetID, r.rng(fmt.Sprintf("A%d:H%d", idx, idx)), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update row %d: %w", idx, err)
	}
	return nil
}

func (r *RecordRepo) ListAll(ctx context.Context) ([]*model.UserRecord, error) {
	resp, err := r.svc.Spreadsheets.Values.Get(r.spreadsheetID, r.rng("A2:H")).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	out := make([]*model.UserRecord, 0, len(resp.Values))
	for _, cells := range resp.Values {
		rec := parseRow(cells)
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

func parseRow(cells []interface{}) *model.UserRecord {
	cell := func(i int) string {
		if i < len(cells) {
			return fmt.Sprint(cells[i])
		}
		return ""
	}
	tgID, err := strconv.ParseInt(cell(0), 10, 64)
	if err != nil || tgID <= 0 {
		return nil // malformed or blank row
	}
	rec := &model.UserRecord{
		TelegramID: tgID,
		Username:   cell(1),
		Country:    cell(2),
		Interests:  model.SplitTags(cell(3)),
		Platforms:  model.SplitTags(cell(4)),
		AppLink:    cell(5),
		FullName:   cell(6),
	}
	if ts, err := time.Parse(timestampLayout, cell(7)); err == nil {
		rec.CompletedAt = ts
	}
	return rec
}
