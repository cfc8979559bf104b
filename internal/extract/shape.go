package extract

import "fmt"

// ShapeKind - форма ответа со списком элементов
type ShapeKind int

const (
	ShapeArray ShapeKind = iota
	ShapeWrappedArray
	ShapeSingleItem
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeArray:
		return "array"
	case ShapeWrappedArray:
		return "wrapped-array"
	case ShapeSingleItem:
		return "single-item"
	default:
		return "unknown"
	}
}

// Поля-обёртки, которые проверяются по порядку
var wrapperFields = []string{"items", "results", "data"}

// Shape - ответ, приведённый к списку элементов. Field заполнен только для ShapeWrappedArray.
type Shape struct {
	Kind  ShapeKind
	Field string
	Items []interface{}
}

func (s Shape) String() string {
	if s.Kind == ShapeWrappedArray {
		return fmt.Sprintf("%s(%s)", s.Kind, s.Field)
	}
	return s.Kind.String()
}

// Normalize определяет форму ответа один раз перед обходом элементов
func Normalize(body interface{}) Shape {
	if arr, ok := body.([]interface{}); ok {
		return Shape{Kind: ShapeArray, Items: arr}
	}

	if obj, ok := body.(map[string]interface{}); ok {
		for _, field := range wrapperFields {
			if arr, ok := obj[field].([]interface{}); ok {
				return Shape{Kind: ShapeWrappedArray, Field: field, Items: arr}
			}
		}
	}

	return Shape{Kind: ShapeSingleItem, Items: []interface{}{body}}
}
