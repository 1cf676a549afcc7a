package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MimeLyc/sentence-sub-translator/pkg/log"
)

type ErrorType int

const (
	ErrQuotaExceeded ErrorType = iota
	ErrTranslation
	ErrMalformedInput
	ErrValidation
	ErrStorage
	ErrConfig
	ErrUnknown
)

type CTXTransError struct {
	Type    ErrorType
	Message string
	Context map[string]any
	Cause   error
}

func NewError(errorType ErrorType, message string) *CTXTransError {
	return &CTXTransError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
	}
}

func NewErrorWithCause(errorType ErrorType, message string, cause error) *CTXTransError {
	return &CTXTransError{
		Type:    errorType,
		Message: message,
		Context: make(map[string]any),
		Cause:   cause,
	}
}

func (e *CTXTransError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s] %s", e.Type.String(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *CTXTransError) Unwrap() error {
	return e.Cause
}

func (e *CTXTransError) WithContext(key string, value any) *CTXTransError {
	e.Context[key] = value
	return e
}

func (t ErrorType) String() string {
	switch t {
	case ErrQuotaExceeded:
		return "QuotaExceeded"
	case ErrTranslation:
		return "Translation"
	case ErrMalformedInput:
		return "MalformedInput"
	case ErrValidation:
		return "Validation"
	case ErrStorage:
		return "Storage"
	case ErrConfig:
		return "Config"
	default:
		return "Unknown"
	}
}

type ErrorHandler interface {
	Handle(err error) bool
	GetAdvice(err *CTXTransError) string
}

type DefaultErrorHandler struct{}

func NewDefaultErrorHandler() ErrorHandler {
	return &DefaultErrorHandler{}
}

func (h *DefaultErrorHandler) Handle(err error) bool {
	var ctxErr *CTXTransError
	if !errors.As(err, &ctxErr) {
		log.Error("Unknown Error: %v", err)
		return false
	}

	advice := h.GetAdvice(ctxErr)
	log.Error("Error Detail: %v\n advice: %s", err, advice)

	return true
}

// GetAdvice returns error handling advice
func (h *DefaultErrorHandler) GetAdvice(err *CTXTransError) string {
	switch err.Type {
	case ErrQuotaExceeded:
		return "The character allowance of the subscription is used up; upgrade the plan or wait for the next period"
	case ErrTranslation:
		return "The translation provider rejected or failed the request; check the API key, target language and provider status"
	case ErrMalformedInput:
		return "Please verify the file is a valid SRT subtitle: numbered cues, timing lines and text separated by blank lines"
	case ErrValidation:
		return "Please verify input parameters are correct: user, file name and target language cannot be empty"
	case ErrStorage:
		return "Please check the database path is writable and not locked by another process"
	case ErrConfig:
		return "Please check that configuration files or environment variables are set correctly"
	default:
		return "Please review detailed error information and check relevant configuration and files"
	}
}

func IsErrorType(err error, errorType ErrorType) bool {
	var ctxErr *CTXTransError
	if errors.As(err, &ctxErr) {
		return ctxErr.Type == errorType
	}
	return false
}

func WrapError(err error, errorType ErrorType, message string) *CTXTransError {
	return NewErrorWithCause(errorType, message, err)
}
