package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"campusevents/internal/domain"
)

// Config holds configuration for the spreadsheet mirror.
type Config struct {
	CredentialsFile string
	SpreadsheetID   string
	SheetName       string
}

const defaultSheetName = "Tadbirlar"

var sheetHeader = []interface{}{
	"ID", "Tadbir nomi", "Sana", "Vaqt", "Joy", "Izoh",
	"Bo'lim", "Mas'ul (F.I.Sh.)", "Telefon", "Yaratilgan vaqt",
}

// NewMirror creates the Google Sheets write-behind mirror. When no
// spreadsheet is configured it returns a no-op mirror so callers never need a
// nil check.
func NewMirror(config Config, client *http.Client, logger *slog.Logger) (domain.EventMirror, error) {
	if config.SpreadsheetID == "" || config.CredentialsFile == "" {
		logger.Info("spreadsheet mirror not configured, using noop")
		return &noopMirror{}, nil
	}
	account, err := loadServiceAccount(config.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("sheets mirror: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	sheetName := config.SheetName
	if sheetName == "" {
		sheetName = defaultSheetName
	}
	return &mirror{
		client:        client,
		tokens:        newTokenSource(account, client),
		baseURL:       "https://sheets.googleapis.com",
		spreadsheetID: config.SpreadsheetID,
		sheetName:     sheetName,
		logger:        logger,
	}, nil
}

type mirror struct {
	client        *http.Client
	tokens        *tokenSource
	baseURL       string
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger

	mu          sync.Mutex
	sheetID     int64
	sheetIDSet  bool
	headerReady bool
}

func (m *mirror) Append(ctx context.Context, event *domain.EventWithCreator) error {
	if err := m.ensureHeader(ctx); err != nil {
		return err
	}
	body := map[string]interface{}{
		"values": [][]interface{}{eventRow(event)},
	}
	path := fmt.Sprintf("/v4/spreadsheets/%s/values/%s!A:J:append?valueInputOption=USER_ENTERED",
		m.spreadsheetID, m.sheetName)
	return m.call(ctx, http.MethodPost, path, body, nil)
}

func (m *mirror) Update(ctx context.Context, event *domain.EventWithCreator) error {
	row, err := m.rowFor(ctx, event.ID)
	if err != nil {
		return err
	}
	if row == 0 {
		// Row missing (e.g. mirror enabled after the event was created);
		// fall back to appending it.
		return m.Append(ctx, event)
	}
	body := map[string]interface{}{
		"values": [][]interface{}{eventRow(event)},
	}
	path := fmt.Sprintf("/v4/spreadsheets/%s/values/%s!A%d:J%d?valueInputOption=USER_ENTERED",
		m.spreadsheetID, m.sheetName, row, row)
	return m.call(ctx, http.MethodPut, path, body, nil)
}

func (m *mirror) MarkCancelled(ctx context.Context, eventID int64) error {
	row, err := m.rowFor(ctx, eventID)
	if err != nil {
		return err
	}
	if row == 0 {
		return nil
	}
	// Cancelled rows turn red and stay red.
	return m.colorRows(ctx, []int64{row}, 1.0, 0.8, 0.8)
}

func (m *mirror) MarkPast(ctx context.Context, eventIDs []int64) error {
	var rows []int64
	for _, id := range eventIDs {
		row, err := m.rowFor(ctx, id)
		if err != nil {
			return err
		}
		if row != 0 {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil
	}
	return m.colorRows(ctx, rows, 0.85, 0.85, 0.85)
}

// rowFor returns the 1-based sheet row holding the event id, or 0 if absent.
func (m *mirror) rowFor(ctx context.Context, eventID int64) (int64, error) {
	var out struct {
		Values [][]string `json:"values"`
	}
	path := fmt.Sprintf("/v4/spreadsheets/%s/values/%s!A:A", m.spreadsheetID, m.sheetName)
	if err := m.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	want := strconv.FormatInt(eventID, 10)
	for i, row := range out.Values {
		if len(row) > 0 && row[0] == want {
			return int64(i + 1), nil
		}
	}
	return 0, nil
}

func (m *mirror) colorRows(ctx context.Context, rows []int64, red, green, blue float64) error {
	sheetID, err := m.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	var requests []map[string]interface{}
	for _, row := range rows {
		requests = append(requests, map[string]interface{}{
			"repeatCell": map[string]interface{}{
				"range": map[string]interface{}{
					"sheetId":          sheetID,
					"startRowIndex":    row - 1,
					"endRowIndex":      row,
					"startColumnIndex": 0,
					"endColumnIndex":   10,
				},
				"cell": map[string]interface{}{
					"userEnteredFormat": map[string]interface{}{
						"backgroundColor": map[string]float64{
							"red": red, "green": green, "blue": blue,
						},
					},
				},
				"fields": "userEnteredFormat.backgroundColor",
			},
		})
	}
	body := map[string]interface{}{"requests": requests}
	path := fmt.Sprintf("/v4/spreadsheets/%s:batchUpdate", m.spreadsheetID)
	return m.call(ctx, http.MethodPost, path, body, nil)
}

func (m *mirror) resolveSheetID(ctx context.Context) (int64, error) {
	m.mu.Lock()
	if m.sheetIDSet {
		id := m.sheetID
		m.mu.Unlock()
		return id, nil
	}
	m.mu.Unlock()

	var out struct {
		Sheets []struct {
			Properties struct {
				SheetID int64  `json:"sheetId"`
				Title   string `json:"title"`
			} `json:"properties"`
		} `json:"sheets"`
	}
	path := fmt.Sprintf("/v4/spreadsheets/%s?fields=sheets(properties(sheetId,title))", m.spreadsheetID)
	if err := m.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	for _, s := range out.Sheets {
		if s.Properties.Title == m.sheetName {
			m.mu.Lock()
			m.sheetID = s.Properties.SheetID
			m.sheetIDSet = true
			m.mu.Unlock()
			return s.Properties.SheetID, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", m.sheetName)
}

func (m *mirror) ensureHeader(ctx context.Context) error {
	m.mu.Lock()
	ready := m.headerReady
	m.mu.Unlock()
	if ready {
		return nil
	}

	var out struct {
		Values [][]string `json:"values"`
	}
	path := fmt.Sprintf("/v4/spreadsheets/%s/values/%s!A1:J1", m.spreadsheetID, m.sheetName)
	if err := m.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return err
	}
	if len(out.Values) == 0 {
		body := map[string]interface{}{
			"values": [][]interface{}{sheetHeader},
		}
		putPath := path + "?valueInputOption=USER_ENTERED"
		if err := m.call(ctx, http.MethodPut, putPath, body, nil); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.headerReady = true
	m.mu.Unlock()
	return nil
}

func (m *mirror) call(ctx context.Context, method, path string, body, out interface{}) error {
	token, err := m.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("sheets auth: %w", err)
	}

	var reqBody *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode sheets request: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create sheets request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("sheets request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sheets api returned status: %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode sheets response: %w", err)
		}
	}
	return nil
}

func eventRow(event *domain.EventWithCreator) []interface{} {
	return []interface{}{
		strconv.FormatInt(event.ID, 10),
		event.Title,
		event.Date,
		event.Time,
		event.Place,
		event.Comment,
		event.CreatorDepartment,
		event.CreatorName,
		event.CreatorPhone,
		event.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

type noopMirror struct{}

func (n *noopMirror) Append(ctx context.Context, event *domain.EventWithCreator) error { return nil }
func (n *noopMirror) Update(ctx context.Context, event *domain.EventWithCreator) error { return nil }
func (n *noopMirror) MarkCancelled(ctx context.Context, eventID int64) error           { return nil }
func (n *noopMirror) MarkPast(ctx context.Context, eventIDs []int64) error             { return nil }
