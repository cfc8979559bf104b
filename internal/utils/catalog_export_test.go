package utils

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"spacefeed/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"
)

func strPtr(s string) *string { return &s }

func sampleItems() []models.CatalogItem {
	updated := time.Date(2024, 4, 30, 8, 0, 0, 0, time.UTC)
	seen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []models.CatalogItem{
		{
			ID:            uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
			DatasetID:     strPtr("OSD-87"),
			Title:         strPtr("Rodent Research, \"RR-1\""),
			Status:        strPtr("public"),
			SourceUpdated: &updated,
			Raw:           datatypes.JSON(`{}`),
			FirstSeenAt:   seen,
			LastTouchedAt: seen.Add(time.Hour),
		},
		{
			ID:            uuid.MustParse("6ba7b811-9dad-11d1-80b4-00c04fd430c8"),
			Title:         strPtr("orphan"),
			Raw:           datatypes.JSON(`{}`),
			FirstSeenAt:   seen,
			LastTouchedAt: seen,
		},
	}
}

func TestWriteCatalogCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCatalogCSV(&buf, sampleItems()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, catalogHeaders, records[0])
	assert.Equal(t, []string{
		"6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"OSD-87",
		"Rodent Research, \"RR-1\"",
		"public",
		"2024-04-30 08:00:00",
		"2024-05-01 12:00:00",
		"2024-05-01 13:00:00",
	}, records[1])
	assert.Equal(t, "", records[2][1])
	assert.Equal(t, "", records[2][4])
}

func TestWriteCatalogCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCatalogCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestWriteCatalogXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCatalogXLSX(&buf, sampleItems()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{catalogSheet, infoSheet}, f.GetSheetList())

	rows, err := f.GetRows(catalogSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, catalogHeaders, rows[0])
	assert.Equal(t, "OSD-87", rows[1][1])
	assert.Equal(t, "orphan", rows[2][2])

	total, err := f.GetCellValue(infoSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "2", total)

	keyed, err := f.GetCellValue(infoSheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "1", keyed)
}
