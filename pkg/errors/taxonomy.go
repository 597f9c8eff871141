package errors

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// Kind is the engine-facing classification of a scan failure.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindSchema        Kind = "schema"
	KindClient        Kind = "client"
	KindMapping       Kind = "mapping"
	KindInternal      Kind = "internal"
)

// SQLSTATE codes from the PostgreSQL foreign-data-wrapper class (HV).
const (
	CodeFDWError              = "HV000"
	CodeInvalidDataType       = "HV004"
	CodeColumnNameNotFound    = "HV005"
	CodeOptionNameNotFound    = "HV00J"
	CodeInvalidAttributeValue = "HV024"
	CodeInternalError         = "XX000"
)

const (
	detailViolation   = "violation"
	violationMissing  = "unsupported_column"
	violationWrongTyp = "wrong_column_type"
)

// Diagnostic is the rendered, host-reportable form of an error.
type Diagnostic struct {
	Kind        Kind   `json:"kind"`
	Code        string `json:"code"`
	Message     string `json:"message"`
	Hint        string `json:"hint,omitempty"`
	Column      string `json:"column,omitempty"`
	Option      string `json:"option,omitempty"`
	RecordIndex *int64 `json:"record_index,omitempty"`
}

// MissingOption reports a required option absent at the given scope.
func MissingOption(name, scope string) *Error {
	return New(ErrorTypeConfig, fmt.Sprintf("required option `%s` is not specified", name)).
		WithDetail(DetailOption, name).WithDetail(DetailScope, scope)
}

// InvalidOption reports an option whose value cannot be used.
func InvalidOption(name, value string, cause error) *Error {
	e := Wrap(cause, ErrorTypeConfig, fmt.Sprintf("invalid value %q for option `%s`", value, name))
	if e == nil {
		e = New(ErrorTypeConfig, fmt.Sprintf("invalid value %q for option `%s`", value, name))
	}
	return e.WithDetail(DetailOption, name)
}

// UnsupportedColumn reports a declared column the connector does not know.
func UnsupportedColumn(name string, allowed []string) *Error {
	msg := fmt.Sprintf("column `%s` is not supported", name)
	if len(allowed) > 0 {
		msg = fmt.Sprintf("column `%s` is not supported; only columns named %s are allowed", name, quoteList(allowed))
	}
	return New(ErrorTypeSchema, msg).
		WithDetail(DetailColumn, name).
		WithDetail(DetailAllowed, allowed).
		WithDetail(detailViolation, violationMissing)
}

// WrongColumnType reports a declared column whose type differs from the allowed one.
func WrongColumnType(name, expected, got string) *Error {
	return New(ErrorTypeSchema, fmt.Sprintf("column `%s` can only be defined as `%s`, got `%s`", name, expected, got)).
		WithDetail(DetailColumn, name).
		WithDetail(DetailExpected, expected).
		WithDetail(DetailGot, got).
		WithDetail(detailViolation, violationWrongTyp)
}

// SchemaViolations folds individual column violations into one schema error.
// It returns nil when there are no violations.
func SchemaViolations(violations []error) *Error {
	combined := multierr.Combine(violations...)
	if combined == nil {
		return nil
	}
	all := multierr.Errors(combined)
	if len(all) == 1 {
		var single *Error
		if errors.As(all[0], &single) {
			return single
		}
	}

	msgs := make([]string, 0, len(all))
	for _, v := range all {
		var se *Error
		if errors.As(v, &se) {
			msgs = append(msgs, se.Message)
			continue
		}
		msgs = append(msgs, v.Error())
	}
	e := &Error{
		Type:    ErrorTypeSchema,
		Message: fmt.Sprintf("%d column violations: %s", len(all), strings.Join(msgs, "; ")),
		Cause:   combined,
		Stack:   captureStack(2),
	}
	var first *Error
	if errors.As(all[0], &first) {
		for k, v := range first.Details {
			e.WithDetail(k, v)
		}
	}
	return e
}

// Violations returns the individual column violations held by a schema error.
func Violations(err error) []error {
	var se *Error
	if !errors.As(err, &se) || se.Type != ErrorTypeSchema {
		return nil
	}
	if se.Cause == nil {
		return []error{se}
	}
	return multierr.Errors(se.Cause)
}

// MappingFailure reports a present field value that cannot be converted.
func MappingFailure(column string, recordIndex int64, cause error) *Error {
	e := Wrap(cause, ErrorTypeMapping, fmt.Sprintf("cannot map field `%s` of record %d", column, recordIndex))
	if e == nil {
		e = New(ErrorTypeMapping, fmt.Sprintf("cannot map field `%s` of record %d", column, recordIndex))
	}
	return e.WithDetail(DetailColumn, column).WithDetail(DetailRecordIndex, recordIndex)
}

// ClientFailure reports a fetch failure at the given record offset.
func ClientFailure(collection string, offset int64, cause error) *Error {
	msg := fmt.Sprintf("fetch from `%s` failed at record offset %d", collection, offset)
	e := Wrap(cause, ErrorTypeClient, msg)
	if e == nil {
		e = New(ErrorTypeClient, msg)
	}
	return e.WithDetail(DetailCollection, collection).WithDetail(DetailRecordIndex, offset)
}

// ContractViolation reports misuse of the scan protocol by the caller.
func ContractViolation(message string) *Error {
	return New(ErrorTypeInternal, message)
}

// Classify maps an error to its engine-facing kind.
func Classify(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return KindInternal
	}
	switch e.Type {
	case ErrorTypeConfig, ErrorTypeValidation:
		return KindConfiguration
	case ErrorTypeSchema:
		return KindSchema
	case ErrorTypeMapping:
		return KindMapping
	case ErrorTypeClient, ErrorTypeConnection, ErrorTypeTimeout, ErrorTypeRateLimit,
		ErrorTypeAuthentication, ErrorTypePermission, ErrorTypeNotFound, ErrorTypeData:
		return KindClient
	default:
		return KindInternal
	}
}

// Render converts an error into a diagnostic that names the offending
// column, option or record whenever the error chain carries one.
func Render(err error) Diagnostic {
	if err == nil {
		return Diagnostic{}
	}
	d := Diagnostic{
		Kind:    Classify(err),
		Message: err.Error(),
	}

	var e *Error
	if errors.As(err, &e) {
		if v, ok := e.Detail(DetailColumn); ok {
			d.Column, _ = v.(string)
		}
		if v, ok := e.Detail(DetailOption); ok {
			d.Option, _ = v.(string)
		}
		if v, ok := e.Detail(DetailRecordIndex); ok {
			if idx, ok := v.(int64); ok {
				d.RecordIndex = &idx
			}
		}
		if v, ok := e.Detail(DetailAllowed); ok {
			if allowed, ok := v.([]string); ok && len(allowed) > 0 {
				d.Hint = "allowed columns: " + strings.Join(allowed, ", ")
			}
		}
		if v, ok := e.Detail(DetailExpected); ok && d.Hint == "" {
			d.Hint = fmt.Sprintf("declare the column as %v", v)
		}
	}

	switch d.Kind {
	case KindConfiguration:
		d.Code = CodeOptionNameNotFound
	case KindSchema:
		d.Code = CodeColumnNameNotFound
		if v, ok := e.Detail(detailViolation); ok && v == violationWrongTyp {
			d.Code = CodeInvalidDataType
		}
	case KindClient:
		d.Code = CodeFDWError
	case KindMapping:
		d.Code = CodeInvalidAttributeValue
	default:
		d.Code = CodeInternalError
	}
	return d
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "`" + n + "`"
	}
	switch len(quoted) {
	case 1:
		return quoted[0]
	case 2:
		return quoted[0] + " or " + quoted[1]
	default:
		return strings.Join(quoted[:len(quoted)-1], ", ") + ", or " + quoted[len(quoted)-1]
	}
}
