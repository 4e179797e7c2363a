package apperror

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "RESOURCE_NOT_FOUND"
	CodeConflict          = "CONFLICT"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeAlreadyFulfilled  = "ALREADY_FULFILLED"
	CodeForbidden         = "FORBIDDEN"
	CodeInternal          = "INTERNAL_ERROR"
)

// AppError is a business error that callers can branch on by Code.
type AppError struct {
	Code    string
	Message string
	Details map[string]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithDetails(details map[string]string) *AppError {
	for k, v := range details {
		e.WithDetail(k, v)
	}
	return e
}

func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

func NotFound(resource, id string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource)).WithDetail("id", id)
}

func Conflict(message string) *AppError {
	return New(CodeConflict, message)
}

// DuplicateSKU names the first SKU that collided with the catalog or batch.
func DuplicateSKU(sku string) *AppError {
	return Conflict(fmt.Sprintf("SKU %q already exists", sku)).WithDetail("sku", sku)
}

func InsufficientStock(variantID string, available, requested int) *AppError {
	return New(CodeInsufficientStock, "insufficient stock").WithDetails(map[string]string{
		"variant_id": variantID,
		"available":  fmt.Sprint(available),
		"requested":  fmt.Sprint(requested),
	})
}

func AlreadyFulfilled(orderID string) *AppError {
	return New(CodeAlreadyFulfilled, "order already fulfilled").WithDetail("order_id", orderID)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, message)
}

// Internal wraps an infrastructure failure. The message shown to callers stays
// generic; the cause is kept for logging.
func Internal(err error) *AppError {
	return &AppError{Code: CodeInternal, Message: "internal error", Err: err}
}

// Wrap returns err unchanged when it already is an AppError and wraps it as
// Internal otherwise.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return Internal(err)
}

// Code returns the AppError code carried by err, or CodeInternal.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

func Is(err error, code string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// GRPCStatus maps err to a gRPC status error.
func GRPCStatus(err error) error {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return status.Error(codes.Internal, "internal error")
	}

	switch appErr.Code {
	case CodeValidation:
		return status.Error(codes.InvalidArgument, appErr.Message)
	case CodeNotFound:
		return status.Error(codes.NotFound, appErr.Message)
	case CodeConflict, CodeAlreadyFulfilled:
		return status.Error(codes.AlreadyExists, appErr.Message)
	case CodeInsufficientStock:
		return status.Error(codes.FailedPrecondition, appErr.Message)
	case CodeForbidden:
		return status.Error(codes.PermissionDenied, appErr.Message)
	default:
		return status.Error(codes.Internal, "internal error")
	}
}
