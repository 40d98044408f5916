package sheets

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// Column layout of the incident sheet, A through H
const (
	colEventID = iota
	colTimestamp
	colSeverity
	colSourceIP
	colDestinationIP
	colAttackType
	colStatus
	colActionTaken
	columnCount
)

const timestampLayout = time.RFC3339

// Store persists incidents as rows of a Google Sheet. Writes go through the
// Sheets append API so concurrent writers cannot clobber each other's rows;
// status updates rewrite exactly the status and action cells of the located
// row.
type Store struct {
	svc           *sheetsapi.Service
	httpClient    *http.Client
	spreadsheetID string
	tab           string
	csvExportURL  string
}

// New creates a Sheets-backed incident store using API-key auth
func New(ctx context.Context, apiKey, spreadsheetID, tab, csvExportURL string) (*Store, error) {
	if apiKey == "" {
		return nil, goerr.New("sheets API key is required")
	}
	if spreadsheetID == "" {
		return nil, goerr.New("spreadsheet ID is required")
	}
	if tab == "" {
		tab = "Sheet1"
	}

	svc, err := sheetsapi.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create sheets service")
	}

	return &Store{
		svc:           svc,
		httpClient:    http.DefaultClient,
		spreadsheetID: spreadsheetID,
		tab:           tab,
		csvExportURL:  csvExportURL,
	}, nil
}

// IsConfigured reports whether the store can reach a spreadsheet
func (s *Store) IsConfigured() bool {
	return s != nil && s.svc != nil && s.spreadsheetID != ""
}

// Append writes one incident as a new row
func (s *Store) Append(ctx context.Context, incident *model.Incident) error {
	if incident == nil {
		return goerr.New("incident is nil")
	}
	if err := incident.Validate(); err != nil {
		return err
	}

	vr := &sheetsapi.ValueRange{Values: [][]any{incidentToRow(incident)}}
	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, s.dataRange(), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return goerr.Wrap(err, "failed to append incident row",
			goerr.V("spreadsheet", s.spreadsheetID),
			goerr.V("eventID", incident.EventID),
		)
	}
	return nil
}

// BulkAppend writes multiple incidents in one append call, returning the
// number of rows written. Invalid entries are skipped, not fatal.
func (s *Store) BulkAppend(ctx context.Context, incidents []*model.Incident) (int, error) {
	rows := make([][]any, 0, len(incidents))
	for _, inc := range incidents {
		if inc == nil || inc.Validate() != nil {
			continue
		}
		rows = append(rows, incidentToRow(inc))
	}
	if len(rows) == 0 {
		return 0, nil
	}

	vr := &sheetsapi.ValueRange{Values: rows}
	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, s.dataRange(), vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to bulk append incident rows",
			goerr.V("spreadsheet", s.spreadsheetID),
			goerr.V("rows", len(rows)),
		)
	}
	return len(rows), nil
}

// List reads all incident rows through the authenticated values API
func (s *Store) List(ctx context.Context) ([]*model.Incident, error) {
	resp, err := s.svc.Spreadsheets.Values.
		Get(s.spreadsheetID, s.dataRange()).
		Context(ctx).
		Do()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read incident rows",
			goerr.V("spreadsheet", s.spreadsheetID),
		)
	}

	incidents := make([]*model.Incident, 0, len(resp.Values))
	for i, row := range resp.Values {
		incident := rowToIncident(stringCells(row))
		if incident == nil {
			if i > 0 { // first row may be the header
				ctxlog.From(ctx).Debug("skipping unparseable sheet row", "row", i+1)
			}
			continue
		}
		incidents = append(incidents, incident)
	}
	return incidents, nil
}

// ListCSV reads incident rows via the public CSV export URL. This is the
// second, unauthenticated read path used for bulk reads.
func (s *Store) ListCSV(ctx context.Context) ([]*model.Incident, error) {
	if s.csvExportURL == "" {
		return nil, goerr.New("CSV export URL is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.csvExportURL, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build CSV export request")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch CSV export", goerr.V("url", s.csvExportURL))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, goerr.New("CSV export returned unexpected status",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)),
		)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1

	var incidents []*model.Incident
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to parse CSV export")
		}
		if incident := rowToIncident(record); incident != nil {
			incidents = append(incidents, incident)
		}
	}
	return incidents, nil
}

// UpdateStatus locates the row holding eventID by scanning the ID column and
// rewrites its status and action-taken cells.
func (s *Store) UpdateStatus(ctx context.Context, eventID types.EventID, status types.IncidentStatus, actionTaken string) error {
	if eventID == "" {
		return goerr.New("event ID is empty")
	}
	if !status.IsValid() {
		return goerr.New("invalid incident status", goerr.V("status", status))
	}

	idColumn := fmt.Sprintf("%s!A:A", s.tab)
	resp, err := s.svc.Spreadsheets.Values.
		Get(s.spreadsheetID, idColumn).
		Context(ctx).
		Do()
	if err != nil {
		return goerr.Wrap(err, "failed to read event ID column",
			goerr.V("spreadsheet", s.spreadsheetID),
		)
	}

	rowIndex := -1
	for i, row := range resp.Values {
		cells := stringCells(row)
		if len(cells) > 0 && cells[0] == eventID.String() {
			rowIndex = i + 1 // sheet rows are 1-based
			break
		}
	}
	if rowIndex < 0 {
		return goerr.Wrap(model.ErrIncidentNotFound, "event ID not present in sheet",
			goerr.V("eventID", eventID),
		)
	}

	updateRange := fmt.Sprintf("%s!G%d:H%d", s.tab, rowIndex, rowIndex)
	vr := &sheetsapi.ValueRange{Values: [][]any{{status.String(), actionTaken}}}
	_, err = s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, updateRange, vr).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return goerr.Wrap(err, "failed to update incident status cells",
			goerr.V("range", updateRange),
			goerr.V("eventID", eventID),
		)
	}
	return nil
}

func (s *Store) dataRange() string {
	return fmt.Sprintf("%s!A:H", s.tab)
}

func incidentToRow(incident *model.Incident) []any {
	return []any{
		incident.EventID.String(),
		incident.Timestamp.Format(timestampLayout),
		incident.Severity,
		incident.SourceIP,
		incident.DestinationIP,
		incident.AttackType,
		incident.Status.String(),
		incident.ActionTaken,
	}
}

// rowToIncident maps one sheet/CSV row to an incident. Header rows and rows
// without an event ID yield nil. Short rows are tolerated; missing trailing
// cells become empty fields.
func rowToIncident(cells []string) *model.Incident {
	if len(cells) == 0 {
		return nil
	}

	padded := make([]string, columnCount)
	copy(padded, cells)

	eventID := strings.TrimSpace(padded[colEventID])
	if eventID == "" || strings.EqualFold(eventID, "eventid") {
		return nil
	}

	ts, err := time.Parse(timestampLayout, strings.TrimSpace(padded[colTimestamp]))
	if err != nil {
		ts = time.Time{}
	}

	return &model.Incident{
		EventID:       types.EventID(eventID),
		Timestamp:     ts,
		Severity:      strings.TrimSpace(padded[colSeverity]),
		SourceIP:      strings.TrimSpace(padded[colSourceIP]),
		DestinationIP: strings.TrimSpace(padded[colDestinationIP]),
		AttackType:    strings.TrimSpace(padded[colAttackType]),
		Status:        types.IncidentStatus(strings.TrimSpace(padded[colStatus])),
		ActionTaken:   strings.TrimSpace(padded[colActionTaken]),
	}
}

func stringCells(row []any) []string {
	cells := make([]string, 0, len(row))
	for _, cell := range row {
		cells = append(cells, fmt.Sprintf("%v", cell))
	}
	return cells
}
