package visibility

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes decoration, info and helper errors.
type ErrorCode string

const (
	// ErrCodeNoSuchProperty indicates a decoration target absent from the description.
	ErrCodeNoSuchProperty ErrorCode = "D001"

	// ErrCodeShorthandProperty indicates a property that holds a bare type marker.
	ErrCodeShorthandProperty ErrorCode = "D002"

	// ErrCodeCompositeConflict indicates a composite name that already exists as a real property.
	ErrCodeCompositeConflict ErrorCode = "D003"

	// ErrCodeTooFewArguments indicates DecorateDeep without a path, class or attribute.
	ErrCodeTooFewArguments ErrorCode = "D004"

	// ErrCodeUnknownAttribute indicates an attribute tag outside AllAttributes.
	ErrCodeUnknownAttribute ErrorCode = "D005"

	// ErrCodeEmptyUserClass indicates a decoration with an empty user class.
	ErrCodeEmptyUserClass ErrorCode = "D006"

	// ErrCodeMissingComplexType indicates MarkComplex without a referenced type name.
	ErrCodeMissingComplexType ErrorCode = "I001"

	// ErrCodeNullInstance indicates a helper call on a null or nil instance.
	ErrCodeNullInstance ErrorCode = "H001"

	// ErrCodeUnknownComplexType indicates a complex reference to an unregistered type.
	ErrCodeUnknownComplexType ErrorCode = "H002"

	// ErrCodeMissingID indicates ReduceComplex on a record without an id.
	ErrCodeMissingID ErrorCode = "H003"

	// ErrCodeInvalidInstance indicates a helper call on a scalar or a list of non-records.
	ErrCodeInvalidInstance ErrorCode = "H004"

	// ErrCodeMaxDepth indicates recursion past Options.MaxDepth.
	ErrCodeMaxDepth ErrorCode = "H005"
)

// DecoratorError is raised while decorating a description.
type DecoratorError struct {
	Code     ErrorCode
	Message  string
	Property string
}

// Error implements the error interface.
func (e *DecoratorError) Error() string {
	if e.Property != "" {
		return fmt.Sprintf("decorator %s: %s (property=%s)", e.Code, e.Message, e.Property)
	}
	return fmt.Sprintf("decorator %s: %s", e.Code, e.Message)
}

// InfoError is raised by TypeInfo.
type InfoError struct {
	Code     ErrorCode
	Message  string
	Property string
	Type     string
}

// Error implements the error interface.
func (e *InfoError) Error() string {
	return fmt.Sprintf("info %s: %s (type=%s, property=%s)", e.Code, e.Message, e.Type, e.Property)
}

// HelperError is raised by Helper operations.
//
// Helper errors indicate authoring mistakes or out-of-order registration, not bad
// client input. Hosts should report them as configuration defects.
type HelperError struct {
	Code     ErrorCode
	Message  string
	Property string
	Type     string
}

// Error implements the error interface.
func (e *HelperError) Error() string {
	switch {
	case e.Type != "" && e.Property != "":
		return fmt.Sprintf("helper %s: %s (type=%s, property=%s)", e.Code, e.Message, e.Type, e.Property)
	case e.Type != "":
		return fmt.Sprintf("helper %s: %s (type=%s)", e.Code, e.Message, e.Type)
	default:
		return fmt.Sprintf("helper %s: %s", e.Code, e.Message)
	}
}

// IsDecoratorError reports whether err wraps a *DecoratorError.
func IsDecoratorError(err error) bool {
	var target *DecoratorError
	return errors.As(err, &target)
}

// IsInfoError reports whether err wraps an *InfoError.
func IsInfoError(err error) bool {
	var target *InfoError
	return errors.As(err, &target)
}

// IsHelperError reports whether err wraps a *HelperError.
func IsHelperError(err error) bool {
	var target *HelperError
	return errors.As(err, &target)
}

// ErrorCodeOf extracts the code from any of the three error kinds.
// Returns "" for other errors.
func ErrorCodeOf(err error) ErrorCode {
	var de *DecoratorError
	if errors.As(err, &de) {
		return de.Code
	}
	var ie *InfoError
	if errors.As(err, &ie) {
		return ie.Code
	}
	var he *HelperError
	if errors.As(err, &he) {
		return he.Code
	}
	return ""
}
