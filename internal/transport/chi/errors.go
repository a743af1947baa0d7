package chi

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/clubrec/internal/domain"
	"github.com/kailas-cloud/clubrec/internal/logger"
)

// ErrorCode is the machine-readable error identifier returned to clients.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest               ErrorCode = "bad_request"
	CodeValidationFailed         ErrorCode = "validation_failed"
	CodeUnauthorized             ErrorCode = "unauthorized"
	CodeRateLimited              ErrorCode = "rate_limited"
	CodeNotFound                 ErrorCode = "not_found"
	CodeMethodNotAllowed         ErrorCode = "method_not_allowed"
	CodeEmbeddingProviderError   ErrorCode = "embedding_provider_error"
	CodeEmbeddingProviderTimeout ErrorCode = "embedding_provider_timeout"
	CodeVectorIndexError         ErrorCode = "vector_index_error"
	CodeVectorIndexTimeout       ErrorCode = "vector_index_timeout"
	CodeInternalError            ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		validationHandler,
		upstreamHandler(domain.ErrEmbeddingProviderError,
			CodeEmbeddingProviderError, CodeEmbeddingProviderTimeout, "could not understand your query"),
		upstreamHandler(domain.ErrVectorIndexError,
			CodeVectorIndexError, CodeVectorIndexTimeout, "could not search the catalog"),
	}
}

func validationHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrValidation) {
		return false
	}
	resp := ErrorResponse{Code: CodeValidationFailed, Message: domain.ErrValidation.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Message = verr.Message()
		resp.Field = verr.Field
	}
	writeJSON(w, http.StatusBadRequest, resp)
	return true
}

// upstreamHandler maps an upstream sentinel to 502, or 504 when the failure
// was a deadline. The upstream's own message never reaches the client.
func upstreamHandler(sentinel error, code, timeoutCode ErrorCode, message string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		if errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusGatewayTimeout, timeoutCode, message)
			return true
		}
		writeError(w, http.StatusBadGateway, code, message)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("request failed", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
