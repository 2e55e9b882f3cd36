package thermalconfig

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/thermald/internal/errors"
)

const (
	// Structural errors
	ErrUnexpectedElement = errors.ErrorCode("config_unexpected_element")
	ErrUnknownAttribute  = errors.ErrorCode("config_unknown_attribute")
	ErrMissingAttribute  = errors.ErrorCode("config_missing_attribute")
	ErrSyntax            = errors.ErrorCode("config_syntax_error")
	ErrEmptyDocument     = errors.ErrorCode("config_empty_document")

	// Semantic errors
	ErrTooManyTrips    = errors.ErrorCode("config_too_many_trips")
	ErrTooManyDevices  = errors.ErrorCode("config_too_many_devices")
	ErrDuplicateDevice = errors.ErrorCode("config_duplicate_device")
	ErrInvalidValue    = errors.ErrorCode("config_invalid_value")

	// Source errors
	ErrConfigNotFound = errors.ErrorCode("config_not_found")
	ErrReadConfig     = errors.ErrorCode("config_read_failed")
)

// ParseError reports the first structural or semantic violation found
// in a configuration document.
type ParseError struct {
	Kind       errors.ErrorCode
	Line       int
	Element    string
	Attributes []string
	Value      string
	Err        error
}

func (e *ParseError) Code() errors.ErrorCode {
	return e.Kind
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Error() string {
	var msg string

	switch e.Kind {
	case ErrUnexpectedElement:
		msg = fmt.Sprintf("element '%s' not allowed here", e.Element)
	case ErrUnknownAttribute:
		msg = fmt.Sprintf("attribute '%s' not allowed on '%s'", strings.Join(e.Attributes, "', '"), e.Element)
	case ErrMissingAttribute:
		msg = fmt.Sprintf("attribute '%s' required on '%s'", strings.Join(e.Attributes, "', '"), e.Element)
	case ErrTooManyTrips:
		msg = fmt.Sprintf("more than %d trips in '%s'", TripMax, e.Element)
	case ErrTooManyDevices:
		msg = fmt.Sprintf("more than %d CPU devices", CPUSlots)
	case ErrDuplicateDevice:
		msg = fmt.Sprintf("device '%s' declared twice", e.Value)
	case ErrInvalidValue:
		msg = fmt.Sprintf("invalid value %q for attribute '%s'", e.Value, strings.Join(e.Attributes, "', '"))
	case ErrEmptyDocument:
		msg = "document has no root element"
	default:
		msg = string(e.Kind)
	}

	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}

	return fmt.Sprintf("config line %d: %s", e.Line, msg)
}
