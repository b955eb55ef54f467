package billing

// ErrorKind classifies service failures for the HTTP layer.
type ErrorKind string

const (
	ErrorNone ErrorKind = ""
	// ErrorNotFound - a referenced customer, subscription or price is absent
	// locally or at Stripe.
	ErrorNotFound ErrorKind = "not_found"
	// ErrorValidation - malformed input, e.g. a non-positive customer id.
	ErrorValidation ErrorKind = "validation_error"
	// ErrorConflict - reserved; no operation currently raises it.
	ErrorConflict ErrorKind = "conflict"
	// ErrorTooManyRequests - reserved for rate limiting.
	ErrorTooManyRequests ErrorKind = "too_many_requests"
	// ErrorOther - any Stripe call failure or unexpected local error.
	ErrorOther ErrorKind = "other"
)

// StatusHint tells the HTTP layer which success status applies.
type StatusHint int

const (
	StatusOK StatusHint = iota
	StatusCreated
)

// Result is the tagged return shape of every public billing operation.
// Callers branch on IsSuccess/Error; no error value crosses the service
// boundary.
type Result[T any] struct {
	IsSuccess bool
	Message   string
	Data      T
	Error     ErrorKind
	Status    StatusHint
}

// Success builds an OK result.
func Success[T any](data T, message string) Result[T] {
	return Result[T]{IsSuccess: true, Message: message, Data: data, Status: StatusOK}
}

// Created builds a success result for newly created resources.
func Created[T any](data T, message string) Result[T] {
	return Result[T]{IsSuccess: true, Message: message, Data: data, Status: StatusCreated}
}

// Fail builds a failure result with the given error kind.
func Fail[T any](message string, kind ErrorKind) Result[T] {
	if kind == ErrorNone {
		kind = ErrorOther
	}
	return Result[T]{IsSuccess: false, Message: message, Error: kind}
}
