package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"geoplaces/internal/database"
	"geoplaces/internal/model"
	"geoplaces/internal/repository"
)

type fakeImporter struct {
	calls  int
	rows   []repository.ImportPlace
	result repository.ImportResult
	fixed  bool
}

func (f *fakeImporter) ImportPlaces(_ context.Context, _ *database.Conn, rows []repository.ImportPlace) (repository.ImportResult, error) {
	f.calls++
	f.rows = rows
	if f.fixed {
		return f.result, nil
	}
	return repository.ImportResult{Inserted: len(rows)}, nil
}

func csvRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/places/upload-csv", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestUploadCSVRejectsNonAdmin(t *testing.T) {
	importer := &fakeImporter{}
	h := NewUploadHandler("test", stubDB{}, importer, nil)

	req := csvRequest(t, "places.csv", "name,lat,lon\nA,30,-97\n")
	rec := perform(t, h.CSV, req, model.RoleCurator, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if importer.calls != 0 {
		t.Fatal("non-admin upload must not reach the store")
	}

	rec = perform(t, h.CSV, csvRequest(t, "places.csv", "name,lat,lon\n"), model.RoleNone, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous status = %d, want 401", rec.Code)
	}
}

func TestUploadCSVMissingColumns(t *testing.T) {
	h := NewUploadHandler("test", stubDB{}, &fakeImporter{}, nil)

	req := csvRequest(t, "places.csv", "name,city\nA,Austin\n")
	rec := perform(t, h.CSV, req, model.RoleAdmin, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if !strings.Contains(body["error"].(string), "lat") {
		t.Fatalf("error should name the missing columns: %v", body["error"])
	}
}

func TestUploadCSVRejectsNonCSVFile(t *testing.T) {
	h := NewUploadHandler("test", stubDB{}, &fakeImporter{}, nil)
	rec := perform(t, h.CSV, csvRequest(t, "places.txt", "name,lat,lon\n"), model.RoleAdmin, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadCSVSkipsBadRowsAndReportsSummary(t *testing.T) {
	importer := &fakeImporter{}
	h := NewUploadHandler("test", stubDB{}, importer, nil)

	content := strings.Join([]string{
		"name,lat,lon,place_type,city",
		"Alpha,30.1,-97.1,brewery,Austin",
		"Bravo,30.2,-97.2,restaurant,Austin",
		",30.3,-97.3,brewery,Austin",      // missing name
		"Delta,abc,-97.4,brewery,Austin",  // bad latitude
		"Echo,30.5,-97.5,castle,Austin",   // invalid type
		"Foxtrot,30.6,-97.6,hotel,Austin",
		"Golf,30.7,-97.7,tourist_place,Austin",
		"Hotel,30.8,-97.8,brewery,Austin",
		"India,30.9,-97.9,,Austin",
		"Juliet,31.0,-98.0,brewery,Austin",
	}, "\n") + "\n"

	rec := perform(t, h.CSV, csvRequest(t, "places.csv", content), model.RoleAdmin, int64p(1))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\n%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	summary := body["summary"].(map[string]any)
	if summary["inserted"] != float64(7) {
		t.Fatalf("inserted = %v, want 7", summary["inserted"])
	}
	if summary["skipped"] != float64(3) {
		t.Fatalf("skipped = %v, want 3", summary["skipped"])
	}
	if summary["total_rows"] != float64(10) {
		t.Fatalf("total_rows = %v, want 10", summary["total_rows"])
	}
	if body["error_count"] != float64(3) {
		t.Fatalf("error_count = %v, want 3", body["error_count"])
	}

	if len(importer.rows) != 7 {
		t.Fatalf("rows sent to store = %d, want 7", len(importer.rows))
	}
	for _, row := range importer.rows {
		if !strings.HasPrefix(row.Place.SourceID, "csv_") {
			t.Fatalf("generated source_id = %q, want csv_ prefix", row.Place.SourceID)
		}
		if row.Place.CreatedBy == nil || *row.Place.CreatedBy != 1 {
			t.Fatalf("created_by not carried: %+v", row.Place.CreatedBy)
		}
	}
	// Blank place_type falls back to brewery with its default subtype.
	last := importer.rows[len(importer.rows)-1]
	if last.Place.Name != "Juliet" {
		t.Fatalf("last row = %q, want Juliet", last.Place.Name)
	}
	india := importer.rows[len(importer.rows)-2]
	if india.Type != model.TypeBrewery || india.TypeData.BreweryType != "micro" {
		t.Fatalf("blank type row = %v/%v, want brewery/micro", india.Type, india.TypeData.BreweryType)
	}
}

func TestUploadCSVDuplicatesCountAsSkips(t *testing.T) {
	importer := &fakeImporter{fixed: true, result: repository.ImportResult{
		Inserted:   1,
		Duplicates: []repository.ImportFailure{{Line: 2, Reason: `duplicate source_id "x", skipped`}},
		Failures:   []repository.ImportFailure{{Line: 3, Reason: "database rejected row"}},
	}}
	h := NewUploadHandler("test", stubDB{}, importer, nil)

	content := "name,lat,lon\nA,30,-97\nB,31,-98\nC,32,-99\n"
	rec := perform(t, h.CSV, csvRequest(t, "places.csv", content), model.RoleAdmin, nil)
	body := decodeBody(t, rec)
	summary := body["summary"].(map[string]any)
	if summary["inserted"] != float64(1) || summary["skipped"] != float64(2) {
		t.Fatalf("summary = %v, want inserted 1 skipped 2", summary)
	}
	if body["error_count"] != float64(2) {
		t.Fatalf("error_count = %v, want 2 (duplicate and failure both reported)", body["error_count"])
	}
}
