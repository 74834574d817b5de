package transport

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocsim/optionchain-simulator/src/chain"
)

func newTestRouter() *mux.Router {
	manager := chain.NewSessionManager(chain.NewMemoryStore(), nil, decimal.NewFromFloat(0.02), 30*time.Minute)
	router := mux.NewRouter()
	SetupHandler(router, manager)
	return router
}

func createBody() []byte {
	dto := parametersDTO{
		Symbol:           "AAPL",
		InitialPrice:     decimal.NewFromFloat(185.5),
		DaysToExpiration: decimal.NewFromInt(45),
		Volatility:       decimal.NewFromFloat(0.25),
		RiskFreeRate:     decimal.NewFromFloat(0.04),
		DividendYield:    decimal.NewFromFloat(0.005),
		Method: methodDTO{
			Kind:       "GeometricBrownian",
			DT:         decimalPtr(0.004),
			Drift:      decimalPtr(0.05),
			Volatility: decimalPtr(0.25),
		},
		TimeFrame: "Day",
		Steps:     10,
	}
	b, _ := json.Marshal(dto)
	return b
}

func decimalPtr(f float64) *decimal.Decimal {
	d := decimal.NewFromFloat(f)
	return &d
}

func TestCreateSessionReturns201(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chain", bytes.NewReader(createBody()))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp sessionDescriptorDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Initialized", resp.State)
}

func TestCreateSessionInvalidParamsReturns400(t *testing.T) {
	router := newTestRouter()

	dto := parametersDTO{Symbol: "", Steps: 10}
	b, _ := json.Marshal(dto)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chain", bytes.NewReader(b))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetNextStepUnknownSessionReturns404(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chain?sessionid=00000000-0000-0000-0000-000000000000", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateThenGetThenDelete(t *testing.T) {
	router := newTestRouter()

	createReq := httptest.NewRequest(http.MethodPost, "/api/v1/chain", bytes.NewReader(createBody()))
	createW := httptest.NewRecorder()
	router.ServeHTTP(createW, createReq)
	require.Equal(t, http.StatusCreated, createW.Code)

	var created sessionDescriptorDTO
	require.NoError(t, json.Unmarshal(createW.Body.Bytes(), &created))

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/chain?sessionid="+created.ID.String(), nil)
	getW := httptest.NewRecorder()
	router.ServeHTTP(getW, getReq)
	require.Equal(t, http.StatusOK, getW.Code)

	var chainResp chainDataResponseDTO
	require.NoError(t, json.Unmarshal(getW.Body.Bytes(), &chainResp))
	assert.Equal(t, "InProgress", chainResp.SessionInfo.State)
	assert.Len(t, chainResp.Contracts, 15)

	delReq := httptest.NewRequest(http.MethodDelete, "/api/v1/chain?sessionid="+created.ID.String(), nil)
	delW := httptest.NewRecorder()
	router.ServeHTTP(delW, delReq)
	assert.Equal(t, http.StatusOK, delW.Code)
}
