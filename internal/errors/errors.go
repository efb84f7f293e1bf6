// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors. Insufficient-data conditions are deliberately
// not here: the engine reports those as absent values, never as errors.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrDataNotFound   = errors.New("data not found")
	ErrDatabaseError  = errors.New("database error")
	ErrConfigInvalid  = errors.New("invalid configuration")
	ErrCooldownActive = errors.New("alert cooldown active")
	ErrNotifyDisabled = errors.New("no notification channel enabled")
)

// DataError represents a data-loading or persistence error for a symbol.
type DataError struct {
	DataType string
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// PipelineError represents a per-symbol failure inside the analysis
// pipeline. The orchestrator logs it and moves to the next symbol; it never
// aborts the batch.
type PipelineError struct {
	Stage  string
	Symbol string
	Err    error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error [%s] %s: %v", e.Stage, e.Symbol, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError creates a new PipelineError.
func NewPipelineError(stage, symbol string, err error) *PipelineError {
	return &PipelineError{
		Stage:  stage,
		Symbol: symbol,
		Err:    err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
