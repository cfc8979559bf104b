package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound - данных ещё нет, это не сбой
	ErrNotFound      = errors.New("not found")
	ErrUnknownSource = errors.New("unknown source")
	ErrEmptyKey      = errors.New("dataset_id is required")
)

type ErrorKind string

const (
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	KindUpstreamRejected    ErrorKind = "upstream_rejected"
	KindPermissionDenied    ErrorKind = "permission_denied"
	KindMalformedResponse   ErrorKind = "malformed_response"
	KindStoreUnavailable    ErrorKind = "store_unavailable"
)

// FetchError - ошибка цикла загрузки источника
type FetchError struct {
	Source     Source
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Source, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func NewFetchError(source Source, kind ErrorKind, err error) *FetchError {
	return &FetchError{Source: source, Kind: kind, Err: err}
}

// KindOf возвращает вид ошибки загрузки, если она есть в цепочке
func KindOf(err error) (ErrorKind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

// Outcome - результат одного цикла загрузки
type Outcome string

const (
	OutcomeStored  Outcome = "stored"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)
