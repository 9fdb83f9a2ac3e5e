package jsontransform

import "fmt"

// ErrorCode identifies the category of a transform error.
type ErrorCode int

const (
	// ErrInvalidJSON indicates the source or template text could not be parsed as JSON.
	ErrInvalidJSON ErrorCode = iota + 1
	// ErrTemplateError indicates a structural problem with the template itself.
	ErrTemplateError
	// ErrPathSyntaxError indicates a malformed path expression.
	ErrPathSyntaxError
	// ErrPathNotFoundError indicates a write path segment could not be resolved (createPaths=false).
	ErrPathNotFoundError
	// ErrPathConflictError indicates a write hit a type conflict (createPaths=false).
	ErrPathConflictError
	// ErrInvalidConditionError indicates a malformed or ill-typed condition/predicate expression.
	ErrInvalidConditionError
	// ErrAggregationError indicates an unknown aggregation operation or unusable source.
	ErrAggregationError
	// ErrMathOperationError indicates an unknown math operation or a division by zero in strict mode.
	ErrMathOperationError
	// ErrDepthExceededError indicates nested-template recursion exceeded maxDepth.
	ErrDepthExceededError
	// ErrInvalidInput indicates invalid parameters passed by the caller (nil context, etc).
	ErrInvalidInput
)

func (c ErrorCode) String() string {
	switch c {
	case ErrInvalidJSON:
		return "InvalidJSON"
	case ErrTemplateError:
		return "TemplateError"
	case ErrPathSyntaxError:
		return "PathSyntaxError"
	case ErrPathNotFoundError:
		return "PathNotFoundError"
	case ErrPathConflictError:
		return "PathConflictError"
	case ErrInvalidConditionError:
		return "InvalidConditionError"
	case ErrAggregationError:
		return "AggregationError"
	case ErrMathOperationError:
		return "MathOperationError"
	case ErrDepthExceededError:
		return "DepthExceededError"
	case ErrInvalidInput:
		return "InvalidInput"
	default:
		return "Unknown"
	}
}

// Error is the structured error type returned by all jsontransform operations.
// Its shape matches the spec's error envelope: { kind, message, path?, expression?, operation? }.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode
	// Message is a human-readable description.
	Message string
	// Path is the path expression involved, when applicable.
	Path string
	// Expression is the original condition/predicate text, when applicable.
	Expression string
	// Operation is the aggregate/math operation name, when applicable.
	Operation string
	// RunID correlates this error with a Transform invocation's trace events.
	RunID string
	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("jsontransform: %s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Expression != "" {
		msg += fmt.Sprintf(" (expression=%s)", e.Expression)
	}
	if e.Operation != "" {
		msg += fmt.Sprintf(" (operation=%s)", e.Operation)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause, supporting errors.Is and errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

func hasCode(err error, code ErrorCode) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}

// IsJSONError returns true if err indicates the source or template text was not valid JSON.
func IsJSONError(err error) bool { return hasCode(err, ErrInvalidJSON) }

// IsTemplateError returns true if err indicates a structural template problem.
func IsTemplateError(err error) bool { return hasCode(err, ErrTemplateError) }

// IsPathError returns true if err is a path syntax error.
func IsPathError(err error) bool { return hasCode(err, ErrPathSyntaxError) }

// IsNotFound returns true if err indicates a missing write-path segment.
func IsNotFound(err error) bool { return hasCode(err, ErrPathNotFoundError) }

// IsPathConflict returns true if err indicates a write-path type conflict.
func IsPathConflict(err error) bool { return hasCode(err, ErrPathConflictError) }

// IsConditionError returns true if err indicates a malformed or ill-typed expression.
func IsConditionError(err error) bool { return hasCode(err, ErrInvalidConditionError) }

// IsAggregationError returns true if err originated in the aggregator.
func IsAggregationError(err error) bool { return hasCode(err, ErrAggregationError) }

// IsMathError returns true if err originated in the math evaluator.
func IsMathError(err error) bool { return hasCode(err, ErrMathOperationError) }

// IsDepthExceeded returns true if err indicates the recursion cap (maxDepth) was hit.
// DepthExceededError is always fatal, regardless of strictMode.
func IsDepthExceeded(err error) bool { return hasCode(err, ErrDepthExceededError) }

// alwaysFatal reports whether err must abort Transform regardless of strictMode.
func alwaysFatal(err error) bool {
	return IsDepthExceeded(err)
}
