package insightshttp

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestReportXLSXDownload(t *testing.T) {
	service := newTestService(t, &stubSource{readings: dayProfile()}, nil)
	handler, err := NewReportExportHandler(service, ReportFormatXLSX, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/report.xlsx", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "smartgen-roi-report.xlsx") {
		t.Fatalf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Fatalf("expected zip container, got %q", rec.Body.Bytes()[:4])
	}
}

func TestReportPDFDownload(t *testing.T) {
	service := newTestService(t, &stubSource{readings: dayProfile()}, nil)
	handler, err := NewReportExportHandler(service, ReportFormatPDF, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/report.pdf", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Fatalf("unexpected content type %q", got)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected pdf payload, got %q", rec.Body.Bytes()[:4])
	}
}

func TestReportExportNoData(t *testing.T) {
	service := newTestService(t, &stubSource{}, nil)
	handler, err := NewReportExportHandler(service, ReportFormatXLSX, testLogger())
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/exports/report.xlsx", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestNewReportExportHandlerRejectsUnknownFormat(t *testing.T) {
	service := newTestService(t, &stubSource{readings: dayProfile()}, nil)
	if _, err := NewReportExportHandler(service, "csv", testLogger()); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestBuildReportXLSXCells(t *testing.T) {
	service := newTestService(t, &stubSource{readings: dayProfile()}, nil)
	card, err := service.ROICard(context.Background(), 24)
	if err != nil {
		t.Fatalf("roi card: %v", err)
	}

	payload, err := BuildReportXLSX(card)
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	title, err := f.GetCellValue("summary", "A1")
	if err != nil {
		t.Fatalf("read title: %v", err)
	}
	if title != "Generator Shutdown ROI Report" {
		t.Fatalf("unexpected title %q", title)
	}
	duration, err := f.GetCellValue("summary", "B10")
	if err != nil {
		t.Fatalf("read duration: %v", err)
	}
	if duration != "4" {
		t.Fatalf("expected window duration 4, got %q", duration)
	}
	hour, err := f.GetCellValue("hourly profile", "A2")
	if err != nil {
		t.Fatalf("read profile hour: %v", err)
	}
	if hour != "0" {
		t.Fatalf("expected first profile hour 0, got %q", hour)
	}
}
