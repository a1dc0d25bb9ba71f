package rowstore

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/noah-isme/fop-attendance-api/pkg/config"
	appErrors "github.com/noah-isme/fop-attendance-api/pkg/errors"
)

// SheetsStore implements Store on top of a Google spreadsheet. The Sheets
// API serialises concurrent appends, so multiple processes may write to the
// same table without row corruption; no locking is added here.
type SheetsStore struct {
	svc           *sheets.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewSheetsStore authenticates with a service account and returns the store.
func NewSheetsStore(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*SheetsStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Keys pasted into env files carry literal \n sequences.
	key := strings.ReplaceAll(cfg.ServiceAccountKey, `\n`, "\n")

	conf := &jwt.Config{
		Email:      cfg.ServiceAccountEmail,
		PrivateKey: []byte(key),
		Scopes:     []string{sheets.SpreadsheetsScope},
		TokenURL:   google.JWTTokenURL,
	}

	svc, err := sheets.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &SheetsStore{svc: svc, spreadsheetID: cfg.SpreadsheetID, logger: logger}, nil
}

// Append reconciles headers then appends row at the end of the table.
func (s *SheetsStore) Append(ctx context.Context, table string, headers, row []string) error {
	if err := s.ensureHeaders(ctx, table, headers); err != nil {
		return err
	}

	values := make([]interface{}, len(row))
	for i, cell := range row {
		values[i] = cell
	}

	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, table+"!A:A", &sheets.ValueRange{Values: [][]interface{}{values}}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).Do()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to append row")
	}
	return nil
}

// ReadAll returns every data row of the table in storage order. The whole
// table is read into memory on each call.
func (s *SheetsStore) ReadAll(ctx context.Context, table string, headers []string) (*TableData, error) {
	if err := s.ensureHeaders(ctx, table, headers); err != nil {
		return nil, err
	}

	resp, err := s.svc.Spreadsheets.Values.
		Get(s.spreadsheetID, table+"!A:Z").
		Context(ctx).Do()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to read rows")
	}

	if len(resp.Values) == 0 {
		return &TableData{Headers: headers, Rows: nil}, nil
	}

	data := &TableData{Headers: toStrings(resp.Values[0])}
	for _, raw := range resp.Values[1:] {
		data.Rows = append(data.Rows, toStrings(raw))
	}
	return data, nil
}

// ensureHeaders overwrites row 1 when it is missing or differs from the
// expected schema. Read failures (for instance a sheet that does not exist
// yet) are logged and the write attempted anyway.
func (s *SheetsStore) ensureHeaders(ctx context.Context, table string, headers []string) error {
	if len(headers) == 0 {
		return nil
	}

	var current []string
	resp, err := s.svc.Spreadsheets.Values.
		Get(s.spreadsheetID, table+"!1:1").
		Context(ctx).Do()
	if err != nil {
		s.logger.Warn("unable to read sheet headers", zap.String("table", table), zap.Error(err))
	} else if len(resp.Values) > 0 {
		current = toStrings(resp.Values[0])
	}

	if !headersMatch(headers, current) {
		values := make([]interface{}, len(headers))
		for i, h := range headers {
			values[i] = h
		}
		_, err := s.svc.Spreadsheets.Values.
			Update(s.spreadsheetID, table+"!1:1", &sheets.ValueRange{Values: [][]interface{}{values}}).
			ValueInputOption("RAW").
			Context(ctx).Do()
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to write headers")
		}
	}
	return nil
}

func headersMatch(expected, current []string) bool {
	if len(current) == 0 {
		return false
	}
	for i, header := range expected {
		got := ""
		if i < len(current) {
			got = strings.TrimSpace(current[i])
		}
		if header != got {
			return false
		}
	}
	return true
}

func toStrings(raw []interface{}) []string {
	out := make([]string, len(raw))
	for i, cell := range raw {
		out[i] = fmt.Sprint(cell)
	}
	return out
}
