// Package errors provides the structured error taxonomy used across tabstack.
// Transform and layout errors are fatal (data-integrity risk); per-fold and
// per-combination training failures are isolated so one bad unit of work does
// not abort a whole sweep.
package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// NotFittedError is returned when Transform or Predict is called on a stage or
// model that has not been fitted.
type NotFittedError struct {
	Name   string
	Method string
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("tabstack: %s: not fitted yet. Call Fit() before using %s()", e.Name, e.Method)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *NotFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("name", e.Name).
		Str("method", e.Method).
		Str("type", "NotFittedError")
}

// NewNotFittedError creates a NotFittedError with a stack trace attached.
func NewNotFittedError(name, method string) error {
	err := &NotFittedError{Name: name, Method: method}
	return errors.WithStack(err)
}

// AlreadyFittedError is returned when Fit is called a second time on a stage
// whose artifact is already frozen. Artifacts are immutable once learned.
type AlreadyFittedError struct {
	Name string
}

func (e *AlreadyFittedError) Error() string {
	return fmt.Sprintf("tabstack: %s: already fitted; artifacts are frozen after Fit()", e.Name)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *AlreadyFittedError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("name", e.Name).
		Str("type", "AlreadyFittedError")
}

// NewAlreadyFittedError creates an AlreadyFittedError with a stack trace attached.
func NewAlreadyFittedError(name string) error {
	err := &AlreadyFittedError{Name: name}
	return errors.WithStack(err)
}

// InsufficientDataError is returned when a dataset cannot be stratified or
// folded because a label class has too few rows.
type InsufficientDataError struct {
	Op       string
	Class    string
	Rows     int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("tabstack: %s: class %q has %d rows, need at least %d",
		e.Op, e.Class, e.Rows, e.Required)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *InsufficientDataError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Str("class", e.Class).
		Int("rows", e.Rows).
		Int("required", e.Required).
		Str("type", "InsufficientDataError")
}

// NewInsufficientDataError creates an InsufficientDataError with a stack trace attached.
func NewInsufficientDataError(op, class string, rows, required int) error {
	err := &InsufficientDataError{Op: op, Class: class, Rows: rows, Required: required}
	return errors.WithStack(err)
}

// UnseenCategoryError is returned by a strict encoder when apply-time data
// contains a category absent from the fit-time training data.
type UnseenCategoryError struct {
	Feature  string
	Category string
}

func (e *UnseenCategoryError) Error() string {
	return fmt.Sprintf("tabstack: encoder: feature %q: category %q was not seen during fit",
		e.Feature, e.Category)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *UnseenCategoryError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("feature", e.Feature).
		Str("category", e.Category).
		Str("type", "UnseenCategoryError")
}

// NewUnseenCategoryError creates an UnseenCategoryError with a stack trace attached.
func NewUnseenCategoryError(feature, category string) error {
	err := &UnseenCategoryError{Feature: feature, Category: category}
	return errors.WithStack(err)
}

// FeatureLayoutMismatchError is returned when the column set or order of
// apply-time data diverges from the layout frozen at fit time. Always fatal,
// never silently reconciled.
type FeatureLayoutMismatchError struct {
	Op       string
	Expected []string
	Got      []string
}

func (e *FeatureLayoutMismatchError) Error() string {
	return fmt.Sprintf("tabstack: %s: feature layout mismatch: expected %d columns %v, got %d columns %v",
		e.Op, len(e.Expected), e.Expected, len(e.Got), e.Got)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *FeatureLayoutMismatchError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Strs("expected", e.Expected).
		Strs("got", e.Got).
		Str("type", "FeatureLayoutMismatchError")
}

// NewFeatureLayoutMismatchError creates a FeatureLayoutMismatchError with a stack trace attached.
func NewFeatureLayoutMismatchError(op string, expected, got []string) error {
	err := &FeatureLayoutMismatchError{Op: op, Expected: expected, Got: got}
	return errors.WithStack(err)
}

// DimensionError is returned when input data dimensions differ from what a
// fitted stage or model expects.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int // 0 for rows, 1 for columns/features
}

func (e *DimensionError) Error() string {
	axisName := "features"
	if e.Axis == 0 {
		axisName = "rows"
	}
	return fmt.Sprintf("tabstack: %s: dimension mismatch on axis %d (%s). Expected %d, got %d",
		e.Op, e.Axis, axisName, e.Expected, e.Got)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *DimensionError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("operation", e.Op).
		Int("expected", e.Expected).
		Int("got", e.Got).
		Int("axis", e.Axis).
		Str("type", "DimensionError")
}

// NewDimensionError creates a DimensionError with a stack trace attached.
func NewDimensionError(op string, expected, got, axis int) error {
	err := &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
	return errors.WithStack(err)
}

// ValidationError is returned when an input parameter fails validation.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("tabstack: validation failed for parameter %q: %s (got: %v)",
		e.ParamName, e.Reason, e.Value)
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *ValidationError) MarshalZerologObject(event *zerolog.Event) {
	event.Str("param_name", e.ParamName).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "ValidationError")
}

// NewValidationError creates a ValidationError with a stack trace attached.
func NewValidationError(param, reason string, value interface{}) error {
	err := &ValidationError{ParamName: param, Reason: reason, Value: value}
	return errors.WithStack(err)
}

// ConvergenceFailure is returned when an underlying algorithm fails to fit for
// a given hyperparameter combination. The sweep skips the combination and
// continues; it becomes fatal only when no combination succeeds.
type ConvergenceFailure struct {
	Algorithm string
	Params    map[string]interface{}
	Err       error
}

func (e *ConvergenceFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tabstack: %s failed to fit with params %v: %v", e.Algorithm, e.Params, e.Err)
	}
	return fmt.Sprintf("tabstack: %s failed to fit with params %v", e.Algorithm, e.Params)
}

func (e *ConvergenceFailure) Unwrap() error {
	return e.Err
}

// MarshalZerologObject adds structured error information to a zerolog event.
func (e *ConvergenceFailure) MarshalZerologObject(event *zerolog.Event) {
	event.Str("algorithm", e.Algorithm).
		Interface("params", e.Params).
		Str("type", "ConvergenceFailure")
	if e.Err != nil {
		event.Str("cause", e.Err.Error())
	}
}

// NewConvergenceFailure creates a ConvergenceFailure with a stack trace attached.
func NewConvergenceFailure(algorithm string, params map[string]interface{}, err error) error {
	failure := &ConvergenceFailure{Algorithm: algorithm, Params: params, Err: err}
	return errors.WithStack(failure)
}

// UndefinedMetricWarning signals that a metric could not be computed for a
// fold or evaluation, typically because one label class is entirely absent.
// The value is recorded as missing and excluded from aggregation, not fatal.
type UndefinedMetricWarning struct {
	Metric    string
	Condition string
}

func (w *UndefinedMetricWarning) Error() string {
	return fmt.Sprintf("%q is undefined due to %s; excluded from aggregation", w.Metric, w.Condition)
}

// MarshalZerologObject adds structured warning information to a zerolog event.
func (w *UndefinedMetricWarning) MarshalZerologObject(event *zerolog.Event) {
	event.Str("metric", w.Metric).
		Str("condition", w.Condition).
		Str("type", "UndefinedMetricWarning")
}

// NewUndefinedMetricWarning creates a new UndefinedMetricWarning.
func NewUndefinedMetricWarning(metric, condition string) *UndefinedMetricWarning {
	return &UndefinedMetricWarning{Metric: metric, Condition: condition}
}

// ===========================================================================
//
//	cockroachdb/errors wrappers
//
// ===========================================================================

// Is reports whether err matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a new error.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a new formatted error.
func Newf(format string, args ...interface{}) error {
	return errors.Newf(format, args...)
}

// WithStack annotates err with a stack trace.
func WithStack(err error) error {
	return errors.WithStack(err)
}

// Common error variables.
var (
	// ErrEmptyData is returned when an empty dataset or matrix is passed in.
	ErrEmptyData = New("empty data")

	// ErrNoSuccessfulFit is returned when a tuning sweep finishes with zero
	// successful hyperparameter combinations.
	ErrNoSuccessfulFit = New("no hyperparameter combination fitted successfully")
)
