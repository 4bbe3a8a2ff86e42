package sheets

// google.go implements Source on the Google Sheets API.
//
// Credentials resolve in order: explicit service-account JSON, a
// credentials file path, then Application Default Credentials. Only the
// read-only scope is requested; the importer never writes back to the
// workbook.

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// GoogleSource reads workbooks through the Sheets v4 API.
type GoogleSource struct {
	svc *gsheets.Service
}

// NewGoogleSource builds a Sheets client. credentialsJSON takes priority
// over credentialsFile; when both are empty, Application Default
// Credentials are used.
func NewGoogleSource(ctx context.Context, credentialsJSON, credentialsFile string) (*GoogleSource, error) {
	var opts []option.ClientOption

	switch {
	case credentialsJSON != "":
		creds, err := google.CredentialsFromJSON(ctx, []byte(credentialsJSON), gsheets.SpreadsheetsReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("parse sheets credentials: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	case credentialsFile != "":
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read sheets credentials file: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, gsheets.SpreadsheetsReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("parse sheets credentials file: %w", err)
		}
		opts = append(opts, option.WithCredentials(creds))
	default:
		opts = append(opts, option.WithScopes(gsheets.SpreadsheetsReadonlyScope))
	}

	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &GoogleSource{svc: svc}, nil
}

// ListSheets fetches workbook metadata without cell data.
func (g *GoogleSource) ListSheets(ctx context.Context, workbookID string) (Workbook, error) {
	doc, err := g.svc.Spreadsheets.Get(workbookID).Fields("properties.title", "sheets.properties").Context(ctx).Do()
	if err != nil {
		return Workbook{}, unavailable("list sheets", err)
	}

	wb := Workbook{ID: workbookID}
	if doc.Properties != nil {
		wb.Title = doc.Properties.Title
	}
	for _, sh := range doc.Sheets {
		if sh.Properties == nil {
			continue
		}
		info := SheetInfo{Name: sh.Properties.Title}
		if grid := sh.Properties.GridProperties; grid != nil {
			info.RowCount = int(grid.RowCount)
			info.ColumnCount = int(grid.ColumnCount)
		}
		wb.Sheets = append(wb.Sheets, info)
	}
	return wb, nil
}

// Values fetches the full cell matrix of one worksheet as strings.
func (g *GoogleSource) Values(ctx context.Context, workbookID, sheetName string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(workbookID, sheetName).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, unavailable(fmt.Sprintf("get values for sheet %q", sheetName), err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
