package insightshttp

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/observability/metrics"
	"github.com/YoussefMadkour/SmartGen-Energy-AI/internal/optimization/application"
)

// Report formats served by the export handler.
const (
	ReportFormatXLSX = "xlsx"
	ReportFormatPDF  = "pdf"
)

// ReportExportHandler renders the current ROI analysis as a download.
type ReportExportHandler struct {
	service *application.Service
	format  string
	logger  *log.Logger
}

// NewReportExportHandler constructs an export handler for one format.
func NewReportExportHandler(service *application.Service, format string, logger *log.Logger) (*ReportExportHandler, error) {
	if service == nil {
		return nil, errors.New("report export: nil service")
	}
	if format != ReportFormatXLSX && format != ReportFormatPDF {
		return nil, fmt.Errorf("report export: unsupported format %q", format)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ReportExportHandler{service: service, format: format, logger: logger}, nil
}

// ServeHTTP handles GET /api/v1/exports/report.{xlsx,pdf}.
func (h *ReportExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	started := time.Now()
	card, err := h.service.ROICard(r.Context(), 0)
	if err != nil {
		metrics.ObserveExport(h.format, metrics.ResultError, time.Since(started))
		writeOptimizeError(w, h.logger, "report export", err)
		return
	}

	var payload []byte
	switch h.format {
	case ReportFormatXLSX:
		payload, err = BuildReportXLSX(card)
	case ReportFormatPDF:
		payload, err = BuildReportPDF(card)
	}
	if err != nil {
		metrics.ObserveExport(h.format, metrics.ResultError, time.Since(started))
		h.logger.Printf("report export: render %s: %v", h.format, err)
		http.Error(w, "render report error", http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport(h.format, metrics.ResultSuccess, time.Since(started))

	switch h.format {
	case ReportFormatXLSX:
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	case ReportFormatPDF:
		w.Header().Set("Content-Type", "application/pdf")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"smartgen-roi-report.%s\"", h.format))
	_, _ = w.Write(payload)
}

// BuildReportXLSX renders the ROI analysis as a workbook with a summary
// sheet and an hourly load profile sheet.
func BuildReportXLSX(card *application.ROICard) ([]byte, error) {
	if card == nil || card.Result == nil || card.Result.Analysis == nil {
		return nil, errors.New("report export: empty card")
	}
	analysis := card.Result.Analysis

	f := excelize.NewFile()
	summarySheet := "summary"
	profileSheet := "hourly profile"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(profileSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Generator Shutdown ROI Report")
	_ = f.SetCellValue(summarySheet, "A3", "Generated")
	_ = f.SetCellValue(summarySheet, "B3", card.LastUpdated.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A4", "Analysis Period (hours)")
	_ = f.SetCellValue(summarySheet, "B4", card.AnalysisPeriodHours)
	_ = f.SetCellValue(summarySheet, "A5", "Readings Analyzed")
	_ = f.SetCellValue(summarySheet, "B5", analysis.ReadingCount)
	_ = f.SetCellValue(summarySheet, "A6", "Average Load (kW)")
	_ = f.SetCellValue(summarySheet, "B6", analysis.Pattern.AvgPowerKW)
	_ = f.SetCellValue(summarySheet, "A7", "Average Fuel Rate (L/h)")
	_ = f.SetCellValue(summarySheet, "B7", analysis.AvgFuelRateLPH)
	_ = f.SetCellValue(summarySheet, "A8", "Window Start (UTC)")
	_ = f.SetCellValue(summarySheet, "B8", analysis.WindowStart.UTC().Format("15:04"))
	_ = f.SetCellValue(summarySheet, "A9", "Window End (UTC)")
	_ = f.SetCellValue(summarySheet, "B9", analysis.WindowEnd.UTC().Format("15:04"))
	_ = f.SetCellValue(summarySheet, "A10", "Window Duration (hours)")
	_ = f.SetCellValue(summarySheet, "B10", analysis.Window.DurationHours)
	_ = f.SetCellValue(summarySheet, "A11", "Fuel Saved (L/day)")
	_ = f.SetCellValue(summarySheet, "B11", analysis.Savings.FuelSavedLiters)
	_ = f.SetCellValue(summarySheet, "A12", "Daily Savings (USD)")
	_ = f.SetCellValue(summarySheet, "B12", analysis.Savings.DailySavingsUSD)
	_ = f.SetCellValue(summarySheet, "A13", "Monthly Savings (USD)")
	_ = f.SetCellValue(summarySheet, "B13", analysis.Savings.MonthlySavingsUSD)
	_ = f.SetCellValue(summarySheet, "A14", "Recommendation Source")
	_ = f.SetCellValue(summarySheet, "B14", card.Result.RecommendationSource)
	_ = f.SetCellValue(summarySheet, "A15", "Recommendation")
	_ = f.SetCellValue(summarySheet, "B15", card.Result.Recommendation)

	_ = f.SetCellValue(profileSheet, "A1", "Hour")
	_ = f.SetCellValue(profileSheet, "B1", "Avg Load (kW)")
	for i, hour := range sortedProfileHours(analysis.Pattern.HourlyAvgKW) {
		row := i + 2
		_ = f.SetCellValue(profileSheet, fmt.Sprintf("A%d", row), hour)
		_ = f.SetCellValue(profileSheet, fmt.Sprintf("B%d", row), analysis.Pattern.HourlyAvgKW[hour])
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReportPDF renders the ROI analysis as a single-page PDF.
func BuildReportPDF(card *application.ROICard) ([]byte, error) {
	if card == nil || card.Result == nil || card.Result.Analysis == nil {
		return nil, errors.New("report export: empty card")
	}
	analysis := card.Result.Analysis

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Generator Shutdown ROI Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", card.LastUpdated.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Analysis Period: %d hours (%d readings)", card.AnalysisPeriodHours, analysis.ReadingCount))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Average Load: %.2f kW", analysis.Pattern.AvgPowerKW))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Average Fuel Rate: %.2f L/h", analysis.AvgFuelRateLPH))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Shutdown Window: %s - %s UTC (%d hours)",
		analysis.WindowStart.UTC().Format("15:04"),
		analysis.WindowEnd.UTC().Format("15:04"),
		analysis.Window.DurationHours))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Fuel Saved: %.1f L/day", analysis.Savings.FuelSavedLiters))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Savings: %.2f USD/day, %.2f USD/month",
		analysis.Savings.DailySavingsUSD,
		analysis.Savings.MonthlySavingsUSD))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Recommendation (%s)", card.Result.RecommendationSource))
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	pdf.MultiCell(0, 5, card.Result.Recommendation, "", "L", false)
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Hour", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "Avg Load (kW)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, hour := range sortedProfileHours(analysis.Pattern.HourlyAvgKW) {
		pdf.CellFormat(40, 6, fmt.Sprintf("%02d:00", hour), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, fmt.Sprintf("%.2f", analysis.Pattern.HourlyAvgKW[hour]), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sortedProfileHours(profile map[int]float64) []int {
	hours := make([]int, 0, len(profile))
	for hour := range profile {
		hours = append(hours, hour)
	}
	sort.Ints(hours)
	return hours
}
