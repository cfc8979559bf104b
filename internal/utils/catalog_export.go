package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"

	"spacefeed/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	catalogSheet = "Catalog"
	infoSheet    = "Info"
	timeLayout   = "2006-01-02 15:04:05"
)

var catalogHeaders = []string{"ID", "Dataset ID", "Title", "Status", "Updated At", "First Seen At", "Last Touched At"}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func catalogRow(item models.CatalogItem) []string {
	return []string{
		item.ID.String(),
		deref(item.DatasetID),
		deref(item.Title),
		deref(item.Status),
		formatTime(item.SourceUpdated),
		formatTime(&item.FirstSeenAt),
		formatTime(&item.LastTouchedAt),
	}
}

// WriteCatalogCSV пишет каталог в CSV с заголовком
func WriteCatalogCSV(w io.Writer, items []models.CatalogItem) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(catalogHeaders); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, item := range items {
		if err := writer.Write(catalogRow(item)); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteCatalogXLSX пишет каталог в книгу Excel: лист с записями и лист со сводкой
func WriteCatalogXLSX(w io.Writer, items []models.CatalogItem) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", catalogSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#DDEBF7"},
			Pattern: 1,
		},
	})
	if err != nil {
		return err
	}

	// Заголовки
	if err := f.SetSheetRow(catalogSheet, "A1", &catalogHeaders); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(catalogHeaders))
	if err := f.SetCellStyle(catalogSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	// Данные
	for i, item := range items {
		row := catalogRow(item)
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(catalogSheet, cell, &row); err != nil {
			return err
		}
	}

	// Ширина колонок
	f.SetColWidth(catalogSheet, "A", "A", 38)
	f.SetColWidth(catalogSheet, "B", "B", 18)
	f.SetColWidth(catalogSheet, "C", "C", 60)
	f.SetColWidth(catalogSheet, "D", lastCol, 20)

	if err := f.SetPanes(catalogSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	if err := createInfoSheet(f, items); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func createInfoSheet(f *excelize.File, items []models.CatalogItem) error {
	if _, err := f.NewSheet(infoSheet); err != nil {
		return err
	}

	var keyed int
	statuses := make(map[string]int)
	for _, item := range items {
		if item.DatasetID != nil {
			keyed++
		}
		status := deref(item.Status)
		if status == "" {
			status = "(none)"
		}
		statuses[status]++
	}

	rows := [][]interface{}{
		{"Report Generated", time.Now().UTC().Format(timeLayout)},
		{"Total Records", len(items)},
		{"With Dataset ID", keyed},
		{"Without Dataset ID", len(items) - keyed},
	}

	names := make([]string, 0, len(statuses))
	for name := range statuses {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rows = append(rows, []interface{}{"Status: " + name, statuses[name]})
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(infoSheet, cell, &row); err != nil {
			return err
		}
	}
	f.SetColWidth(infoSheet, "A", "A", 24)
	f.SetColWidth(infoSheet, "B", "B", 24)
	return nil
}
