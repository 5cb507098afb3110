package contract

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorCode is the coarse kind of a failure. Callers branch on it, the HTTP
// layer maps it to a status code.
type ErrorCode string

const (
	ErrorCodeNotFound                ErrorCode = "NOT_FOUND"
	ErrorCodeNotOwned                ErrorCode = "NOT_OWNED"
	ErrorCodeAlreadyExists           ErrorCode = "ALREADY_EXISTS"
	ErrorCodeInvalidInput            ErrorCode = "INVALID_INPUT"
	ErrorCodeUnsupportedFormat       ErrorCode = "UNSUPPORTED_FORMAT"
	ErrorCodeCorruptArtifact         ErrorCode = "CORRUPT_ARTIFACT"
	ErrorCodeInvalidStatusTransition ErrorCode = "INVALID_STATUS_TRANSITION"
	ErrorCodeBadRequest              ErrorCode = "BAD_REQUEST"
	ErrorCodeUnauthenticated         ErrorCode = "UNAUTHENTICATED"
	ErrorCodeEndpointNotFound        ErrorCode = "ENDPOINT_NOT_FOUND"
	ErrorCodeInternalError           ErrorCode = "INTERNAL_ERROR"
)

// Reason names the specific failure inside a kind.
type Reason string

const (
	ReasonModelNotFound              Reason = "MODEL_NOT_FOUND"
	ReasonModelNotOwned              Reason = "MODEL_NOT_OWNED"
	ReasonModelAlreadyExists         Reason = "MODEL_ALREADY_EXISTS"
	ReasonSignatureNotFound          Reason = "SIGNATURE_NOT_FOUND"
	ReasonSignatureNotOwned          Reason = "SIGNATURE_NOT_OWNED"
	ReasonSignatureAlreadyExists     Reason = "SIGNATURE_ALREADY_EXISTS"
	ReasonSignatureNameInvalid       Reason = "SIGNATURE_NAME_INVALID"
	ReasonOriginNotFound             Reason = "ORIGIN_NOT_FOUND"
	ReasonPredictionNotFound         Reason = "PREDICTION_NOT_FOUND"
	ReasonPredictionNotOwned         Reason = "PREDICTION_NOT_OWNED"
	ReasonPredictionAlreadyExists    Reason = "PREDICTION_ALREADY_EXISTS"
	ReasonPredictionNotTerminal      Reason = "PREDICTION_NOT_TERMINAL"
	ReasonTargetNotFound             Reason = "TARGET_NOT_FOUND"
	ReasonTargetNotOwned             Reason = "TARGET_NOT_OWNED"
	ReasonDuplicateTargetOrder       Reason = "DUPLICATE_TARGET_ORDER"
	ReasonInvalidStatusTransition    Reason = "INVALID_STATUS_TRANSITION"
	ReasonInputSchemaMismatch        Reason = "INPUT_SCHEMA_MISMATCH"
	ReasonMalformedSchema            Reason = "MALFORMED_SCHEMA"
	ReasonMalformedInput             Reason = "MALFORMED_INPUT"
	ReasonSchemaInferenceUnsupported Reason = "SCHEMA_INFERENCE_UNSUPPORTED"
	ReasonUnsupportedModelFormat     Reason = "UNSUPPORTED_MODEL_FORMAT"
	ReasonCorruptArtifact            Reason = "CORRUPT_ARTIFACT"
	ReasonInferenceFailed            Reason = "INFERENCE_FAILED"
	ReasonInferenceTimeout           Reason = "INFERENCE_TIMEOUT"
	ReasonInferenceAbandoned         Reason = "INFERENCE_ABANDONED"
	ReasonInvalidParameter           Reason = "INVALID_PARAMETER_VALUE"
)

type Error struct {
	Code    ErrorCode      `json:"error_code"`
	Reason  Reason         `json:"reason,omitempty"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
	Inner   error          `json:"-"`
}

func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func NewErrorWith(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Inner:   err,
	}
}

// WithReason sets the specific reason and returns the same error for chaining.
func (e *Error) WithReason(reason Reason) *Error {
	e.Reason = reason

	return e
}

// With attaches structured context rendered alongside the message.
func (e *Error) With(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}

	e.Context[key] = value

	return e
}

func (e *Error) Error() string {
	var builder strings.Builder

	builder.WriteString(string(e.Code))

	if e.Reason != "" {
		builder.WriteString("/")
		builder.WriteString(string(e.Reason))
	}

	builder.WriteString(": ")
	builder.WriteString(e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for key := range e.Context {
			keys = append(keys, key)
		}

		sort.Strings(keys)

		for _, key := range keys {
			fmt.Fprintf(&builder, " %s=%v", key, e.Context[key])
		}
	}

	if e.Inner != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Inner.Error())
	}

	return builder.String()
}

func (e *Error) Unwrap() error {
	return e.Inner
}

//nolint:cyclop
func (e *Error) StatusCode() int {
	switch e.Code {
	case ErrorCodeNotFound, ErrorCodeNotOwned, ErrorCodeEndpointNotFound:
		return http.StatusNotFound
	case ErrorCodeAlreadyExists, ErrorCodeInvalidStatusTransition:
		return http.StatusConflict
	case ErrorCodeInvalidInput, ErrorCodeBadRequest:
		return http.StatusBadRequest
	case ErrorCodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case ErrorCodeCorruptArtifact:
		return http.StatusUnprocessableEntity
	case ErrorCodeUnauthenticated:
		return http.StatusUnauthorized
	case ErrorCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Public hides the difference between NOT_OWNED and NOT_FOUND so that callers
// outside the core cannot discover the existence of other accounts' entities.
func (e *Error) Public() *Error {
	if e.Code != ErrorCodeNotOwned {
		return e
	}

	public := &Error{
		Code:    ErrorCodeNotFound,
		Message: e.Message,
	}

	switch e.Reason {
	case ReasonModelNotOwned:
		public.Reason = ReasonModelNotFound
	case ReasonSignatureNotOwned:
		public.Reason = ReasonSignatureNotFound
	case ReasonPredictionNotOwned:
		public.Reason = ReasonPredictionNotFound
	case ReasonTargetNotOwned:
		public.Reason = ReasonTargetNotFound
	}

	return public
}

// AsError extracts a *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var contractError *Error
	if errors.As(err, &contractError) {
		return contractError, true
	}

	return nil, false
}

func HasCode(err error, code ErrorCode) bool {
	contractError, ok := AsError(err)

	return ok && contractError.Code == code
}

func HasReason(err error, reason Reason) bool {
	contractError, ok := AsError(err)

	return ok && contractError.Reason == reason
}
