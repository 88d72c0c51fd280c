// Package report renders farm verdicts as XLSX workbooks.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	SummarySheet         = "Summary"
	DevicesSheet         = "Devices"
	AlertsSheet          = "Alerts"
	RecommendationsSheet = "Recommendations"
)

var (
	devicesHeader         = []string{"Device ID", "Name", "Type", "Status", "Last Reading", "Readings", "Crop Health", "Summary"}
	alertsHeader          = []string{"Level", "Parameter", "Message", "Value", "Min", "Max", "Timestamp"}
	recommendationsHeader = []string{"Priority", "Parameter", "Message"}
)

// FarmWorkbook renders v into an XLSX workbook with one sheet per section.
func FarmWorkbook(v domain.FarmVerdict) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	w := &sheetWriter{f: f}
	for _, name := range []string{SummarySheet, DevicesSheet, AlertsSheet, RecommendationsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	// indexes shift once Sheet1 is gone
	if idx, err := f.GetSheetIndex(SummarySheet); err == nil {
		f.SetActiveSheet(idx)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	w.headerStyle = headerStyle

	w.rows(SummarySheet, nil, [][]any{
		{"Farm ID", v.FarmID},
		{"Status", string(v.Status)},
		{"Summary", v.Summary},
		{"Devices", len(v.Devices)},
		{"Alerts", len(v.Alerts)},
		{"Recommendations", len(v.Recommendations)},
		{"Last Updated", formatTime(v.LastUpdated)},
	})

	devices := make([][]any, 0, len(v.Devices))
	for _, d := range v.Devices {
		last := ""
		if d.LastReadingTimestamp != nil {
			last = formatTime(*d.LastReadingTimestamp)
		}
		health := ""
		if d.CropHealth != nil {
			health = fmt.Sprintf("%s: %s", d.CropHealth.Status, d.CropHealth.Message)
		}
		devices = append(devices, []any{d.DeviceID, d.DeviceName, d.DeviceType, string(d.Status), last, formatReadings(d.Readings), health, d.Summary})
	}
	w.rows(DevicesSheet, devicesHeader, devices)

	alerts := make([][]any, 0, len(v.Alerts))
	for _, a := range v.Alerts {
		alerts = append(alerts, []any{string(a.Level), string(a.Parameter), a.Message, a.Value, a.Threshold.Min, a.Threshold.Max, formatTime(a.Timestamp)})
	}
	w.rows(AlertsSheet, alertsHeader, alerts)

	recs := make([][]any, 0, len(v.Recommendations))
	for _, r := range v.Recommendations {
		recs = append(recs, []any{string(r.Priority), r.Parameter, r.Message})
	}
	w.rows(RecommendationsSheet, recommendationsHeader, recs)

	if w.err != nil {
		return nil, w.err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// sheetWriter keeps the first error so callers can write a whole sheet and
// check once.
type sheetWriter struct {
	f           *excelize.File
	headerStyle int
	err         error
}

func (w *sheetWriter) rows(sheet string, header []string, rows [][]any) {
	row := 1
	if header != nil {
		for col, h := range header {
			w.set(sheet, col+1, row, h)
		}
		if w.err == nil {
			end, _ := excelize.CoordinatesToCellName(len(header), 1)
			w.err = w.f.SetCellStyle(sheet, "A1", end, w.headerStyle)
		}
		row++
	}
	for _, r := range rows {
		for col, val := range r {
			w.set(sheet, col+1, row, val)
		}
		row++
	}
}

func (w *sheetWriter) set(sheet string, col, row int, val any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = fmt.Errorf("failed to convert coordinates: %w", err)
		return
	}
	if err := w.f.SetCellValue(sheet, cell, val); err != nil {
		w.err = fmt.Errorf("failed to set cell %s!%s: %w", sheet, cell, err)
	}
}

func formatTime(ts domain.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Time().Format(time.RFC3339)
}

func formatReadings(readings map[domain.ParameterKind]domain.ParameterSnapshot) string {
	kinds := make([]string, 0, len(readings))
	for k := range readings {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		s := readings[domain.ParameterKind(k)]
		parts = append(parts, fmt.Sprintf("%s=%v%s (%s)", k, s.Value, s.Unit, s.Status))
	}
	return strings.Join(parts, "; ")
}
