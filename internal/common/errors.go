package common

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// ErrorKind classifies pipeline failures. Its string is stored in AppError.Code.
type ErrorKind string

const (
	KindUnsupportedInput          ErrorKind = "UnsupportedInput"
	KindInsufficientText          ErrorKind = "InsufficientText"
	KindExtractionStrategyFailure ErrorKind = "ExtractionStrategyFailure"
	KindNoVehicleMatch            ErrorKind = "NoVehicleMatch"
	KindAmbiguousVehicleMatch     ErrorKind = "AmbiguousVehicleMatch"
	KindUnresolvedVehicle         ErrorKind = "UnresolvedVehicle"
	KindPersistenceFailure        ErrorKind = "PersistenceFailure"
	KindConfig                    ErrorKind = "CONFIG_ERROR"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")

	ErrUnsupportedInput          = errors.New("unsupported input")
	ErrInsufficientText          = errors.New("insufficient text")
	ErrExtractionStrategyFailure = errors.New("extraction strategy failed")
	ErrNoVehicleMatch            = errors.New("no vehicle match")
	ErrAmbiguousVehicleMatch     = errors.New("ambiguous vehicle match")
	ErrUnresolvedVehicle         = errors.New("unresolved vehicle")
	ErrPersistenceFailure        = errors.New("persistence failure")
)

var kindSentinels = map[ErrorKind]error{
	KindUnsupportedInput:          ErrUnsupportedInput,
	KindInsufficientText:          ErrInsufficientText,
	KindExtractionStrategyFailure: ErrExtractionStrategyFailure,
	KindNoVehicleMatch:            ErrNoVehicleMatch,
	KindAmbiguousVehicleMatch:     ErrAmbiguousVehicleMatch,
	KindUnresolvedVehicle:         ErrUnresolvedVehicle,
	KindPersistenceFailure:        ErrPersistenceFailure,
	KindConfig:                    ErrInvalidInput,
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewKindError builds an AppError whose cause chain contains the kind's
// sentinel, so errors.Is(err, ErrInsufficientText) and friends hold.
func NewKindError(kind ErrorKind, message string, cause error) *AppError {
	sentinel := kindSentinels[kind]
	var chained error
	switch {
	case sentinel != nil && cause != nil:
		chained = errors.Join(sentinel, cause)
	case sentinel != nil:
		chained = sentinel
	default:
		chained = cause
	}
	return NewAppError(string(kind), message, chained)
}

// KindOf returns the kind of the first AppError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return ErrorKind(appErr.Code)
	}
	return ""
}

// IsSoftFailure reports whether err leaves the pipeline awaiting a manual
// vehicle choice rather than failing outright.
func IsSoftFailure(err error) bool {
	switch KindOf(err) {
	case KindNoVehicleMatch, KindAmbiguousVehicleMatch:
		return true
	}
	return false
}

// PublicMessage is the user-facing text for err, without driver detail.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "internal error"
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus maps an error kind to a response status.
func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case KindUnsupportedInput:
		return http.StatusUnsupportedMediaType
	case KindInsufficientText:
		return http.StatusUnprocessableEntity
	case KindNoVehicleMatch, KindAmbiguousVehicleMatch:
		return http.StatusUnprocessableEntity
	case KindUnresolvedVehicle:
		return http.StatusConflict
	case KindConfig:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode maps an error kind to a gRPC status code.
func GRPCCode(kind ErrorKind) codes.Code {
	switch kind {
	case KindUnsupportedInput, KindConfig:
		return codes.InvalidArgument
	case KindInsufficientText, KindNoVehicleMatch, KindAmbiguousVehicleMatch:
		return codes.FailedPrecondition
	case KindUnresolvedVehicle:
		return codes.Aborted
	default:
		return codes.Internal
	}
}

// GRPCError converts err into a status error carrying its public message.
func GRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(GRPCCode(KindOf(err)), PublicMessage(err))
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}
