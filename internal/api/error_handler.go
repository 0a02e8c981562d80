package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"uc_coin/internal/cache"
	"uc_coin/internal/mission"
	"uc_coin/internal/session"
	"uc_coin/internal/tap"
)

// ErrorCode represents different error types
type ErrorCode string

const (
	ErrCodeInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeRateLimit          ErrorCode = "RATE_LIMIT"
	ErrCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeEnergyDepleted     ErrorCode = "ENERGY_DEPLETED"

	ErrCodeAlreadyStarted   ErrorCode = "ALREADY_STARTED"
	ErrCodeNotYetEligible   ErrorCode = "NOT_YET_ELIGIBLE"
	ErrCodeIncorrectCode    ErrorCode = "INCORRECT_CODE"
	ErrCodeAlreadyClaimed   ErrorCode = "ALREADY_CLAIMED"
	ErrCodeNotStarted       ErrorCode = "NOT_STARTED"
	ErrCodeNotCompleted     ErrorCode = "NOT_COMPLETED"
	ErrCodeAlreadyCompleted ErrorCode = "ALREADY_COMPLETED"
	ErrCodeWrongMissionType ErrorCode = "WRONG_MISSION_TYPE"
	ErrCodeMissionInactive  ErrorCode = "MISSION_INACTIVE"
)

// APIError represents a structured API error
type APIError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	RequestID string                 `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// ErrorResponse represents the complete error response
type ErrorResponse struct {
	Error   *APIError `json:"error"`
	Success bool      `json:"success"`
}

// domain errors in match order
var errorTable = []struct {
	target  error
	code    ErrorCode
	status  int
	message string
}{
	{tap.ErrEnergyExhausted, ErrCodeEnergyDepleted, http.StatusTooManyRequests, "Energy depleted"},
	{session.ErrRateLimited, ErrCodeRateLimit, http.StatusTooManyRequests, "Too many attempts"},
	{session.ErrInvalidUser, ErrCodeInvalidRequest, http.StatusBadRequest, "Invalid user id"},
	{session.ErrUnknownMission, ErrCodeNotFound, http.StatusNotFound, "Mission not found"},
	{session.ErrWelcomeClaimed, ErrCodeAlreadyClaimed, http.StatusConflict, "Welcome bonus already claimed"},
	{mission.ErrAlreadyStarted, ErrCodeAlreadyStarted, http.StatusConflict, "Mission already started"},
	{mission.ErrNotYetEligible, ErrCodeNotYetEligible, http.StatusUnprocessableEntity, "Mission requirements not met yet"},
	{mission.ErrIncorrectCode, ErrCodeIncorrectCode, http.StatusBadRequest, "Incorrect code"},
	{mission.ErrAlreadyClaimed, ErrCodeAlreadyClaimed, http.StatusConflict, "Reward already claimed"},
	{mission.ErrNotStarted, ErrCodeNotStarted, http.StatusConflict, "Mission not started"},
	{mission.ErrNotCompleted, ErrCodeNotCompleted, http.StatusConflict, "Mission not completed"},
	{mission.ErrAlreadyCompleted, ErrCodeAlreadyCompleted, http.StatusConflict, "Mission already completed"},
	{mission.ErrWrongMissionType, ErrCodeWrongMissionType, http.StatusBadRequest, "Operation not supported for this mission"},
	{mission.ErrMissionInactive, ErrCodeMissionInactive, http.StatusConflict, "Mission is not active"},
	{context.DeadlineExceeded, ErrCodeServiceUnavailable, http.StatusServiceUnavailable, "Upstream timeout"},
}

// ErrorHandler handles HTTP errors with proper formatting
type ErrorHandler struct {
	logger *log.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *log.Logger) *ErrorHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &ErrorHandler{
		logger: logger,
	}
}

// HandleError handles an error and writes appropriate response
func (eh *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	eh.HandleErrorWithDetails(w, r, err, nil)
}

func (eh *ErrorHandler) HandleErrorWithDetails(w http.ResponseWriter, r *http.Request, err error, details map[string]interface{}) {
	apiErr, status := eh.classifyError(err)
	apiErr.RequestID = middleware.GetReqID(r.Context())
	if details != nil {
		apiErr.Details = details
	}

	eh.logError(r, apiErr, status, err)
	eh.writeErrorResponse(w, apiErr, status)
}

// classifyError determines the error type and HTTP status code
func (eh *ErrorHandler) classifyError(err error) (*APIError, int) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		cp := *apiErr
		return &cp, eh.getStatusCodeForError(apiErr.Code)
	}

	for _, row := range errorTable {
		if errors.Is(err, row.target) {
			return &APIError{
				Code:      row.code,
				Message:   row.message,
				Timestamp: time.Now(),
			}, row.status
		}
	}

	return &APIError{
		Code:      ErrCodeInternalError,
		Message:   "Internal server error",
		Timestamp: time.Now(),
	}, http.StatusInternalServerError
}

// getStatusCodeForError returns HTTP status code for error code
func (eh *ErrorHandler) getStatusCodeForError(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimit:
		return http.StatusTooManyRequests
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	}
	for _, row := range errorTable {
		if row.code == code {
			return row.status
		}
	}
	return http.StatusInternalServerError
}

// logError logs server errors as one JSON line
func (eh *ErrorHandler) logError(r *http.Request, apiErr *APIError, status int, cause error) {
	if status < 500 {
		return
	}

	logEntry := map[string]interface{}{
		"timestamp":  time.Now().Format(time.RFC3339),
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     status,
		"error_code": apiErr.Code,
		"message":    apiErr.Message,
		"cause":      cause.Error(),
		"user_agent": r.Header.Get("User-Agent"),
		"ip":         getClientIP(r),
		"request_id": apiErr.RequestID,
	}
	if apiErr.Details != nil {
		logEntry["details"] = apiErr.Details
	}

	logJSON, _ := json.Marshal(logEntry)
	eh.logger.Printf("ERROR: %s", string(logJSON))
}

// writeErrorResponse writes the error response
func (eh *ErrorHandler) writeErrorResponse(w http.ResponseWriter, apiErr *APIError, status int) {
	if apiErr.Code == ErrCodeRateLimit {
		if v, ok := apiErr.Details["retry_after"].(int); ok {
			w.Header().Set("Retry-After", strconv.Itoa(v))
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := ErrorResponse{
		Error:   apiErr,
		Success: false,
	}

	_ = json.NewEncoder(w).Encode(response)
}

// RecoveryMiddleware handles panics and converts them to errors
func (eh *ErrorHandler) RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				apiErr := &APIError{
					Code:      ErrCodeInternalError,
					Message:   "Internal server error",
					Timestamp: time.Now(),
					RequestID: middleware.GetReqID(r.Context()),
				}

				eh.logger.Printf("PANIC: %v\n%s", rec, getStackTrace())
				eh.writeErrorResponse(w, apiErr, http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// RateLimitMiddleware limits requests per client IP. Zero disables it.
func (eh *ErrorHandler) RateLimitMiddleware(requestsPerMinute int) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := cache.NewMemoryLimiter(requestsPerMinute, time.Minute)
	retryAfter := int(time.Minute/time.Duration(requestsPerMinute)/time.Second) + 1

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := limiter.Allow(r.Context(), "ip:"+getClientIP(r))
			if err != nil {
				eh.HandleError(w, r, err)
				return
			}
			if !ok {
				apiErr := NewRateLimitError(retryAfter)
				apiErr.RequestID = middleware.GetReqID(r.Context())
				eh.writeErrorResponse(w, apiErr, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Helper functions

// getClientIP keys on the connection address. Forwarding headers are only
// honoured when middleware.RealIP has already rewritten RemoteAddr.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func getStackTrace() string {
	buf := make([]byte, 1024)
	for {
		n := runtime.Stack(buf, false)
		if n < len(buf) {
			return string(buf[:n])
		}
		buf = make([]byte, 2*len(buf))
	}
}

// Error creation helpers

func NewInvalidRequestError(message string) *APIError {
	return &APIError{
		Code:      ErrCodeInvalidRequest,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func NewNotFoundError(message string) *APIError {
	return &APIError{
		Code:      ErrCodeNotFound,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func NewRateLimitError(retryAfter int) *APIError {
	return &APIError{
		Code:    ErrCodeRateLimit,
		Message: "Too many requests",
		Details: map[string]interface{}{
			"retry_after": retryAfter,
		},
		Timestamp: time.Now(),
	}
}
