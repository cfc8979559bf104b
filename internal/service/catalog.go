package service

import (
	"encoding/json"

	"spacefeed/internal/extract"
	"spacefeed/internal/models"

	"gorm.io/datatypes"
)

// Ключи полей элемента каталога OSDR в порядке приоритета
var (
	datasetIDKeys = []string{"dataset_id", "id", "uuid", "studyId", "accession", "osdr_id"}
	titleKeys     = []string{"title", "name", "label"}
	statusKeys    = []string{"status", "state", "lifecycle"}
	updatedKeys   = []string{"updated", "updated_at", "modified", "lastUpdated", "timestamp"}

	// Если эти поля есть, они должны быть непустыми строками
	requiredStringKeys = []string{"dataset_id", "title", "status"}
)

// CatalogRecords раскладывает ответ OSDR на записи каталога.
// Элементы, которые не являются объектами или не проходят validCatalogItem, пропускаются.
func CatalogRecords(body interface{}) (extract.Shape, []models.CatalogRecord) {
	shape := extract.Normalize(body)

	recs := make([]models.CatalogRecord, 0, len(shape.Items))
	for _, item := range shape.Items {
		doc, ok := item.(map[string]interface{})
		if !ok || !validCatalogItem(doc) {
			continue
		}

		raw, err := json.Marshal(doc)
		if err != nil {
			continue
		}

		rec := models.CatalogRecord{Raw: datatypes.JSON(raw)}
		if id, ok := extract.PickString(doc, datasetIDKeys...); ok {
			rec.DatasetID = id
		}
		if title, ok := extract.PickString(doc, titleKeys...); ok {
			rec.Title = &title
		}
		if status, ok := extract.PickString(doc, statusKeys...); ok {
			rec.Status = &status
		}
		if updated, ok := extract.PickTimestamp(doc, updatedKeys...); ok {
			rec.UpdatedAt = &updated
		}
		recs = append(recs, rec)
	}

	return shape, recs
}

// validCatalogItem отклоняет элементы, где dataset_id, title или status
// заданы, но не строкой или пустой строкой. null считается отсутствием поля.
func validCatalogItem(doc map[string]interface{}) bool {
	for _, key := range requiredStringKeys {
		v, present := doc[key]
		if !present || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok || s == "" {
			return false
		}
	}
	return true
}
