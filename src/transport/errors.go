package transport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ocsim/optionchain-simulator/src/chain"
)

// errorResponse mirrors backtester-api/router/handler.go's
// errorResponse{Type, Msg} shape exactly.
type errorResponse struct {
	Type string `json:"type"`
	Msg  string `json:"message"`
}

func setResponse(response interface{}, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		return fmt.Errorf("setResponse: encode: %w", err)
	}

	return nil
}

func setResponseWithStatus(response interface{}, status int, w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		return fmt.Errorf("setResponse: encode: %w", err)
	}

	return nil
}

func setErrorResponse(errType string, statusCode int, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := errorResponse{Type: errType, Msg: err.Error()}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeEngineError maps a *chain.SessionError to the status table in
// spec.md §7 and writes the envelope. Non-SessionError values (a
// genuine bug elsewhere) fall back to 500.
func writeEngineError(tag string, err error, w http.ResponseWriter) {
	se, ok := err.(*chain.SessionError)
	if !ok {
		setErrorResponse(tag, http.StatusInternalServerError, err, w)
		return
	}

	setErrorResponse(tag, statusFor(se.Kind), se, w)
}

func statusFor(kind chain.ErrorKind) int {
	switch kind {
	case chain.KindValidation:
		return http.StatusBadRequest
	case chain.KindNotFound:
		return http.StatusNotFound
	case chain.KindInvalidTransition, chain.KindAlreadyCompleted, chain.KindInErrorState:
		return http.StatusConflict
	case chain.KindDataSourceUnavailable, chain.KindSymbolUnknown, chain.KindInsufficientHistory, chain.KindStoreTimeout:
		return http.StatusServiceUnavailable
	case chain.KindBug:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
