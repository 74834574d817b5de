package transport

import (
	"github.com/gorilla/mux"

	"github.com/ocsim/optionchain-simulator/src/chain"
)

// SetupHandler wires the /api/v1/chain resource onto router, matching
// the teacher's SetupHandler(router *mux.Router, ...) signature in
// backtester-api/router/handler.go.
func SetupHandler(router *mux.Router, manager *chain.SessionManager) {
	h := NewHandler(manager)
	router.HandleFunc("/api/v1/chain", h.HandleChain).Methods("POST", "GET", "PATCH", "PUT", "DELETE")
}
