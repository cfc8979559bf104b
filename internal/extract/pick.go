// Package extract достаёт типизированные значения из слабо структурированных JSON-ответов.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"
)

// Формат "дата пробел время" без зоны, трактуется как UTC
const dateSpaceTime = "2006-01-02 15:04:05"

// PickString возвращает первое непустое строковое значение по списку ключей.
// Числа приводятся к текстовому виду, остальные типы пропускаются.
func PickString(doc map[string]interface{}, keys ...string) (string, bool) {
	for _, key := range keys {
		val, ok := doc[key]
		if !ok {
			continue
		}
		switch v := val.(type) {
		case string:
			if v != "" {
				return v, true
			}
		case json.Number:
			return v.String(), true
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		case int:
			return strconv.Itoa(v), true
		case int64:
			return strconv.FormatInt(v, 10), true
		}
	}
	return "", false
}

// PickTimestamp возвращает первое значение, которое разбирается как время:
// RFC 3339, "2006-01-02 15:04:05" или целое число секунд Unix.
// Неразборчивый ключ считается отсутствующим.
func PickTimestamp(doc map[string]interface{}, keys ...string) (time.Time, bool) {
	for _, key := range keys {
		val, ok := doc[key]
		if !ok {
			continue
		}
		if t, ok := parseTimestamp(val); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseTimestamp(val interface{}) (time.Time, bool) {
	switch v := val.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t.UTC(), true
		}
		if t, err := time.ParseInLocation(dateSpaceTime, v, time.UTC); err == nil {
			return t, true
		}
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return time.Unix(n, 0).UTC(), true
		}
	case float64:
		if v == float64(int64(v)) {
			return time.Unix(int64(v), 0).UTC(), true
		}
	case int:
		return time.Unix(int64(v), 0).UTC(), true
	case int64:
		return time.Unix(v, 0).UTC(), true
	}
	return time.Time{}, false
}

// PickFloat читает число или числовую строку
func PickFloat(doc map[string]interface{}, key string) (float64, bool) {
	val, ok := doc[key]
	if !ok {
		return 0, false
	}
	switch v := val.(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// Decode разбирает тело ответа, сохраняя целые числа без потери точности
func Decode(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	// после значения допустимы только пробелы
	if err := dec.Decode(&json.RawMessage{}); err != io.EOF {
		return nil, errors.New("unexpected data after top-level JSON value")
	}
	return v, nil
}

// DecodeObject разбирает JSON-объект; для остальных значений ok=false
func DecodeObject(data []byte) (map[string]interface{}, bool) {
	v, err := Decode(data)
	if err != nil {
		return nil, false
	}
	doc, ok := v.(map[string]interface{})
	return doc, ok
}
