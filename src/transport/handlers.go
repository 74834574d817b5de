package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/ocsim/optionchain-simulator/src/chain"
	"github.com/ocsim/optionchain-simulator/src/logger"
)

// Handler exposes the /api/v1/chain surface over a *chain.SessionManager,
// grounded on backtester-api/router/handler.go's package-level
// handle* functions, generalized into a small receiver type so the
// manager doesn't have to be a package-level variable the way the
// teacher's `playgrounds` map is.
type Handler struct {
	manager *chain.SessionManager
}

func NewHandler(manager *chain.SessionManager) *Handler {
	return &Handler{manager: manager}
}

func sessionIDFromQuery(r *http.Request) (uuid.UUID, error) {
	raw := r.URL.Query().Get("sessionid")
	if raw == "" {
		return uuid.UUID{}, fmt.Errorf("missing sessionid query parameter")
	}
	return uuid.Parse(raw)
}

// HandleChain dispatches by HTTP verb, matching the teacher's
// handlePlayground-style verb switch in a single route.
func (h *Handler) HandleChain(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		h.getNext(w, r)
	case http.MethodPatch:
		h.update(w, r)
	case http.MethodPut:
		h.replace(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var dto parametersDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		setErrorResponse("createSession: failed to decode request", http.StatusBadRequest, err, w)
		return
	}

	session, err := h.manager.CreateSession(r.Context(), parametersFromDTO(dto))
	if err != nil {
		writeEngineError("createSession: failed to create session", err, w)
		return
	}

	logger.WithSession(session.ID).Info("session created")

	if err := setResponseWithStatus(sessionToDTO(session), http.StatusCreated, w); err != nil {
		setErrorResponse("createSession: failed to set response", http.StatusInternalServerError, err, w)
	}
}

func (h *Handler) getNext(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDFromQuery(r)
	if err != nil {
		setErrorResponse("getNextStep: invalid sessionid", http.StatusBadRequest, err, w)
		return
	}

	session, built, err := h.manager.GetNextStep(r.Context(), id)
	if err != nil {
		writeEngineError("getNextStep: failed to advance session", err, w)
		return
	}

	if err := setResponse(chainToDTO(built, session), w); err != nil {
		setErrorResponse("getNextStep: failed to set response", http.StatusInternalServerError, err, w)
	}
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDFromQuery(r)
	if err != nil {
		setErrorResponse("updateSession: invalid sessionid", http.StatusBadRequest, err, w)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		setErrorResponse("updateSession: failed to read body", http.StatusBadRequest, err, w)
		return
	}

	patch, fieldsSet, err := decodePatch(body)
	if err != nil {
		setErrorResponse("updateSession: failed to decode request", http.StatusBadRequest, err, w)
		return
	}

	session, err := h.manager.UpdateSession(id, patch, fieldsSet)
	if err != nil {
		writeEngineError("updateSession: failed to update session", err, w)
		return
	}

	if err := setResponse(sessionToDTO(session), w); err != nil {
		setErrorResponse("updateSession: failed to set response", http.StatusInternalServerError, err, w)
	}
}

func (h *Handler) replace(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDFromQuery(r)
	if err != nil {
		setErrorResponse("replaceSession: invalid sessionid", http.StatusBadRequest, err, w)
		return
	}

	var dto parametersDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		setErrorResponse("replaceSession: failed to decode request", http.StatusBadRequest, err, w)
		return
	}

	session, err := h.manager.ReinitializeSession(id, parametersFromDTO(dto))
	if err != nil {
		writeEngineError("replaceSession: failed to reinitialize session", err, w)
		return
	}

	if err := setResponse(sessionToDTO(session), w); err != nil {
		setErrorResponse("replaceSession: failed to set response", http.StatusInternalServerError, err, w)
	}
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDFromQuery(r)
	if err != nil {
		setErrorResponse("deleteSession: invalid sessionid", http.StatusBadRequest, err, w)
		return
	}

	if removed := h.manager.DeleteSession(id); !removed {
		writeEngineError("deleteSession: session not found", chain.NewNotFoundError(id), w)
		return
	}

	response := map[string]interface{}{
		"message":    "session deleted",
		"session_id": id,
	}

	if err := setResponse(response, w); err != nil {
		setErrorResponse("deleteSession: failed to set response", http.StatusInternalServerError, err, w)
	}
}
