package models

import "fmt"

// Source - идентификатор внешнего источника данных
type Source string

const (
	SourceISS    Source = "iss"
	SourceAPOD   Source = "apod"
	SourceNEO    Source = "neo"
	SourceFLR    Source = "flr"
	SourceCME    Source = "cme"
	SourceSpaceX Source = "spacex"
	SourceOSDR   Source = "osdr"
)

// Policy определяет, куда пишется результат цикла загрузки
type Policy int

const (
	PolicyCacheLatest Policy = iota
	PolicyCatalogUpsert
	PolicyPositionLog
)

func (p Policy) String() string {
	switch p {
	case PolicyCacheLatest:
		return "cache-latest"
	case PolicyCatalogUpsert:
		return "catalog-upsert"
	case PolicyPositionLog:
		return "position-log"
	default:
		return "unknown"
	}
}

// AllSources возвращает источники в фиксированном порядке
func AllSources() []Source {
	return []Source{
		SourceISS,
		SourceOSDR,
		SourceAPOD,
		SourceNEO,
		SourceFLR,
		SourceCME,
		SourceSpaceX,
	}
}

// CachedSources - источники, которые хранятся в кэше последнего значения
func CachedSources() []Source {
	var out []Source
	for _, s := range AllSources() {
		if s.Policy() == PolicyCacheLatest {
			out = append(out, s)
		}
	}
	return out
}

func (s Source) Policy() Policy {
	switch s {
	case SourceISS:
		return PolicyPositionLog
	case SourceOSDR:
		return PolicyCatalogUpsert
	default:
		return PolicyCacheLatest
	}
}

func (s Source) Valid() bool {
	for _, known := range AllSources() {
		if s == known {
			return true
		}
	}
	return false
}

func ParseSource(name string) (Source, error) {
	s := Source(name)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	return s, nil
}
