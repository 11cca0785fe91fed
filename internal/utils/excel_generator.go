package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"cafepulse/internal/models"
)

const (
	heatmapSheet = "Popular Times"
	summarySheet = "Summary"
	infoSheet    = "Info"
)

// CreateHeatmapFile writes one row per cafe and weekday with 24 hourly
// columns, shaded by busyness.
func CreateHeatmapFile(filepath string, cafes []models.Cafe) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", heatmapSheet); err != nil {
		return err
	}

	headers := []interface{}{"Cafe", "Day", "Mock"}
	for h := 0; h < models.HoursPerDay; h++ {
		headers = append(headers, fmt.Sprintf("%02d:00", h))
	}
	if err := f.SetSheetRow(heatmapSheet, "A1", &headers); err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	f.SetCellStyle(heatmapSheet, "A1", lastCol+"1", headerStyle)

	rowNum := 2
	for _, cafe := range cafes {
		if cafe.PopularTimes == nil {
			continue
		}
		for _, day := range cafe.PopularTimes.Days {
			row := []interface{}{cafe.Name, day.Name, cafe.PopularTimes.IsMockData}
			for _, v := range day.Data {
				row = append(row, v)
			}
			cell, _ := excelize.CoordinatesToCellName(1, rowNum)
			if err := f.SetSheetRow(heatmapSheet, cell, &row); err != nil {
				return err
			}
			rowNum++
		}
	}

	f.SetColWidth(heatmapSheet, "A", "A", 32)
	f.SetColWidth(heatmapSheet, "B", "B", 12)
	firstHour, _ := excelize.ColumnNumberToName(4)
	f.SetColWidth(heatmapSheet, firstHour, lastCol, 6)
	f.SetPanes(heatmapSheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      3,
		YSplit:      1,
		TopLeftCell: "D2",
		ActivePane:  "bottomRight",
	})

	if rowNum > 2 {
		heat := []excelize.ConditionalFormatOptions{
			{
				Type:     "3_color_scale",
				Criteria: "=",
				MinType:  "num",
				MinValue: "0",
				MinColor: "#F8F8F8",
				MidType:  "num",
				MidValue: "50",
				MidColor: "#FFD966",
				MaxType:  "num",
				MaxValue: "100",
				MaxColor: "#E06666",
			},
		}
		rangeRef := fmt.Sprintf("%s2:%s%d", firstHour, lastCol, rowNum-1)
		if err := f.SetConditionalFormat(heatmapSheet, rangeRef, heat); err != nil {
			return err
		}
	}

	if err := createSummarySheet(f, cafes); err != nil {
		return err
	}
	createInfoSheet(f, cafes, rowNum-2)

	f.SetActiveSheet(0)

	return f.SaveAs(filepath)
}

// createSummarySheet charts the average busyness per hour of real data
// across all cafes and weekdays.
func createSummarySheet(f *excelize.File, cafes []models.Cafe) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}

	avg := HourlyAverage(cafes)

	f.SetSheetRow(summarySheet, "A1", &[]interface{}{"Hour", "Average busyness"})
	for h, v := range avg {
		cell, _ := excelize.CoordinatesToCellName(1, h+2)
		f.SetSheetRow(summarySheet, cell, &[]interface{}{fmt.Sprintf("%02d:00", h), v})
	}

	last := models.HoursPerDay + 1
	return f.AddChart(summarySheet, "D2", &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{
			{
				Name:       fmt.Sprintf("'%s'!$B$1", summarySheet),
				Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", summarySheet, last),
				Values:     fmt.Sprintf("'%s'!$B$2:$B$%d", summarySheet, last),
			},
		},
		Title: []excelize.RichTextRun{
			{
				Text: "Average Busyness by Hour",
			},
		},
		YAxis: excelize.ChartAxis{
			MajorGridLines: true,
		},
		Dimension: excelize.ChartDimension{
			Width:  720,
			Height: 360,
		},
	})
}

func createInfoSheet(f *excelize.File, cafes []models.Cafe, rows int) {
	f.NewSheet(infoSheet)

	withReal, withMock := 0, 0
	for _, c := range cafes {
		if c.PopularTimes == nil {
			continue
		}
		if c.PopularTimes.IsMockData {
			withMock++
		} else {
			withReal++
		}
	}

	metadata := [][]interface{}{
		{"Report Generated", time.Now().UTC().Format("2006-01-02 15:04:05")},
		{"Cafes", withReal + withMock},
		{"Cafes With Real Data", withReal},
		{"Cafes With Mock Data", withMock},
		{"Heatmap Rows", rows},
	}
	for i, kv := range metadata {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		f.SetSheetRow(infoSheet, cell, &kv)
	}
	f.SetColWidth(infoSheet, "A", "A", 24)
}

// HourlyAverage averages every hour slot over cafes with real data.
func HourlyAverage(cafes []models.Cafe) []float64 {
	sums := make([]float64, models.HoursPerDay)
	count := 0
	for _, c := range cafes {
		if c.PopularTimes == nil || c.PopularTimes.IsMockData {
			continue
		}
		for _, day := range c.PopularTimes.Days {
			for h, v := range day.Data {
				if h < models.HoursPerDay {
					sums[h] += float64(v)
				}
			}
			count++
		}
	}
	if count == 0 {
		return sums
	}
	for h := range sums {
		sums[h] /= float64(count)
	}
	return sums
}

// SaveAsJSON writes data as indented JSON.
func SaveAsJSON(filepath string, data interface{}) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath, b, 0644)
}
