package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"zepp-bridge/internal/fields"
	"zepp-bridge/internal/projection"
)

// Summary is the device state rendered into an export document.
type Summary struct {
	DeviceID   string
	DeviceName string
	ReceivedAt time.Time
	Metrics    []projection.Metric
	Workouts   []map[string]any
}

// BuildSummaryPDF renders a device summary as PDF.
func BuildSummaryPDF(summary Summary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Device Summary")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Device: %s (%s)", summary.DeviceName, summary.DeviceID))
	pdf.Ln(5)
	if !summary.ReceivedAt.IsZero() {
		pdf.Cell(0, 6, fmt.Sprintf("Last payload: %s", summary.ReceivedAt.Format(time.RFC3339)))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Metric", "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 6, "Value", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 6, "Unit", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Target", "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, metric := range summary.Metrics {
		target := ""
		if metric.Target != nil {
			target = fmt.Sprintf("%v", metric.Target)
		}
		pdf.CellFormat(60, 6, metric.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(50, 6, fmt.Sprintf("%v", metric.Value), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, metric.Unit, "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, target, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	if len(summary.Workouts) > 0 {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(60, 6, "Workout Start", "1", 0, "L", false, 0, "")
		pdf.CellFormat(60, 6, "Type", "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, "Duration (min)", "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 10)
		for _, workout := range summary.Workouts {
			start, sport, duration := workoutColumns(workout)
			pdf.CellFormat(60, 6, start, "1", 0, "L", false, 0, "")
			pdf.CellFormat(60, 6, sport, "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, duration, "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildSummaryXLSX renders a device summary as XLSX.
func BuildSummaryXLSX(summary Summary) ([]byte, error) {
	f := excelize.NewFile()
	metricsSheet := "metrics"
	workoutsSheet := "workouts"
	f.SetSheetName("Sheet1", metricsSheet)
	f.NewSheet(workoutsSheet)

	_ = f.SetCellValue(metricsSheet, "A1", "Device")
	_ = f.SetCellValue(metricsSheet, "B1", fmt.Sprintf("%s (%s)", summary.DeviceName, summary.DeviceID))
	if !summary.ReceivedAt.IsZero() {
		_ = f.SetCellValue(metricsSheet, "A2", "Last payload")
		_ = f.SetCellValue(metricsSheet, "B2", summary.ReceivedAt.Format(time.RFC3339))
	}

	_ = f.SetCellValue(metricsSheet, "A4", "Metric")
	_ = f.SetCellValue(metricsSheet, "B4", "Value")
	_ = f.SetCellValue(metricsSheet, "C4", "Unit")
	_ = f.SetCellValue(metricsSheet, "D4", "Target")
	for i, metric := range summary.Metrics {
		row := i + 5
		_ = f.SetCellValue(metricsSheet, fmt.Sprintf("A%d", row), metric.Name)
		_ = f.SetCellValue(metricsSheet, fmt.Sprintf("B%d", row), fmt.Sprintf("%v", metric.Value))
		_ = f.SetCellValue(metricsSheet, fmt.Sprintf("C%d", row), metric.Unit)
		if metric.Target != nil {
			_ = f.SetCellValue(metricsSheet, fmt.Sprintf("D%d", row), fmt.Sprintf("%v", metric.Target))
		}
	}

	_ = f.SetCellValue(workoutsSheet, "A1", "Start")
	_ = f.SetCellValue(workoutsSheet, "B1", "Type")
	_ = f.SetCellValue(workoutsSheet, "C1", "Duration (min)")
	for i, workout := range summary.Workouts {
		row := i + 2
		start, sport, duration := workoutColumns(workout)
		_ = f.SetCellValue(workoutsSheet, fmt.Sprintf("A%d", row), start)
		_ = f.SetCellValue(workoutsSheet, fmt.Sprintf("B%d", row), sport)
		_ = f.SetCellValue(workoutsSheet, fmt.Sprintf("C%d", row), duration)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var sportFormatter = fields.NewRegistry()

func workoutColumns(workout map[string]any) (start, sport, duration string) {
	if raw, ok := workout["startTime"]; ok {
		if millis, ok := asMillis(raw); ok {
			start = time.UnixMilli(millis).UTC().Format(time.RFC3339)
		}
	}
	if raw, ok := workout["type"]; ok {
		sport = fmt.Sprintf("%v", sportFormatter.Format(raw, "format_sport_type"))
	}
	if raw, ok := workout["duration"]; ok {
		if minutes, ok := fields.DurationMinutes(raw); ok {
			duration = fmt.Sprintf("%d", minutes)
		}
	}
	return start, sport, duration
}

func asMillis(value any) (int64, bool) {
	switch v := value.(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}
