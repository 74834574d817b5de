// Package transport implements the HTTP surface adapters from
// spec.md §6: request/response shaping and error mapping around
// SessionManager. Grounded line-for-line on the teacher's
// backtester-api/router/handler.go idiom (setResponse/setErrorResponse
// helpers, gorilla/mux routing, encoding/json bodies).
package transport

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ocsim/optionchain-simulator/src/chain"
)

// methodDTO is the wire shape of SimulationParameters.Method: a
// stringified tag plus the fields meaningful to that tag, per spec.md
// §6 ("method (stringified tag + config)").
type methodDTO struct {
	Kind         string           `json:"kind"`
	DT           *decimal.Decimal `json:"dt,omitempty"`
	Drift        *decimal.Decimal `json:"drift,omitempty"`
	Volatility   *decimal.Decimal `json:"volatility,omitempty"`
	LookbackDays *int             `json:"lookback_days,omitempty"`
}

func methodToDTO(m chain.MethodConfig) methodDTO {
	switch m.Kind {
	case chain.MethodGeometricBrownian:
		dt, drift, vol := m.DT, m.Drift, m.GBMVol
		return methodDTO{Kind: string(m.Kind), DT: &dt, Drift: &drift, Volatility: &vol}
	case chain.MethodHistorical:
		lb := m.LookbackDays
		return methodDTO{Kind: string(m.Kind), LookbackDays: &lb}
	default:
		return methodDTO{Kind: string(m.Kind)}
	}
}

func methodFromDTO(d methodDTO) chain.MethodConfig {
	m := chain.MethodConfig{Kind: chain.MethodKind(d.Kind)}
	if d.DT != nil {
		m.DT = *d.DT
	}
	if d.Drift != nil {
		m.Drift = *d.Drift
	}
	if d.Volatility != nil {
		m.GBMVol = *d.Volatility
	}
	if d.LookbackDays != nil {
		m.LookbackDays = *d.LookbackDays
	}
	return m
}

// parametersDTO is the JSON wire shape of chain.SimulationParameters,
// snake_case throughout per spec.md §6.
type parametersDTO struct {
	Symbol           string          `json:"symbol"`
	InitialPrice     decimal.Decimal `json:"initial_price"`
	DaysToExpiration decimal.Decimal `json:"days_to_expiration"`
	Volatility       decimal.Decimal `json:"volatility"`
	RiskFreeRate     decimal.Decimal `json:"risk_free_rate"`
	DividendYield    decimal.Decimal `json:"dividend_yield"`
	Method           methodDTO       `json:"method"`
	TimeFrame        string          `json:"time_frame"`
	ChainSize        int             `json:"chain_size,omitempty"`
	StrikeInterval   decimal.Decimal `json:"strike_interval,omitempty"`
	SmileCurve       decimal.Decimal `json:"smile_curve,omitempty"`
	Spread           decimal.Decimal `json:"spread,omitempty"`
	Steps            int             `json:"steps"`
}

func parametersToDTO(p chain.SimulationParameters) parametersDTO {
	return parametersDTO{
		Symbol:           p.Symbol,
		InitialPrice:     p.InitialPrice,
		DaysToExpiration: p.DaysToExpiration,
		Volatility:       p.Volatility,
		RiskFreeRate:     p.RiskFreeRate,
		DividendYield:    p.DividendYield,
		Method:           methodToDTO(p.Method),
		TimeFrame:        string(p.TimeFrame),
		ChainSize:        p.ChainSize,
		StrikeInterval:   p.StrikeInterval,
		SmileCurve:       p.SmileCurve,
		Spread:           p.Spread,
		Steps:            p.Steps,
	}
}

func parametersFromDTO(d parametersDTO) chain.SimulationParameters {
	return chain.SimulationParameters{
		Symbol:           d.Symbol,
		InitialPrice:     d.InitialPrice,
		DaysToExpiration: d.DaysToExpiration,
		Volatility:       d.Volatility,
		RiskFreeRate:     d.RiskFreeRate,
		DividendYield:    d.DividendYield,
		Method:           methodFromDTO(d.Method),
		TimeFrame:        chain.TimeFrame(d.TimeFrame),
		ChainSize:        d.ChainSize,
		StrikeInterval:   d.StrikeInterval,
		SmileCurve:       d.SmileCurve,
		Spread:           d.Spread,
		Steps:            d.Steps,
	}
}

// sessionDescriptorDTO is the JSON shape returned for a Session, per
// spec.md §6's "Session descriptor".
type sessionDescriptorDTO struct {
	ID          uuid.UUID     `json:"id"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Parameters  parametersDTO `json:"parameters"`
	CurrentStep int           `json:"current_step"`
	TotalSteps  int           `json:"total_steps"`
	State       string        `json:"state"`
}

func sessionToDTO(s *chain.Session) sessionDescriptorDTO {
	return sessionDescriptorDTO{
		ID:          s.ID,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		Parameters:  parametersToDTO(s.Parameters),
		CurrentStep: s.CurrentStep,
		TotalSteps:  s.TotalSteps,
		State:       s.State.String(),
	}
}

type optionQuoteDTO struct {
	Bid   *decimal.Decimal `json:"bid"`
	Ask   *decimal.Decimal `json:"ask"`
	Mid   *decimal.Decimal `json:"mid"`
	Delta decimal.Decimal  `json:"delta"`
}

type optionContractDTO struct {
	Strike            decimal.Decimal `json:"strike"`
	Expiration        time.Time       `json:"expiration"`
	Call              optionQuoteDTO  `json:"call"`
	Put               optionQuoteDTO  `json:"put"`
	ImpliedVolatility decimal.Decimal `json:"implied_volatility"`
	Gamma             decimal.Decimal `json:"gamma"`
}

// chainDataResponseDTO is the JSON shape returned from GET, per
// spec.md §6's ChainDataResponse: the chain plus the session
// descriptor under session_info.
type chainDataResponseDTO struct {
	Underlying  string              `json:"underlying"`
	Timestamp   time.Time           `json:"timestamp"`
	Price       decimal.Decimal     `json:"price"`
	Contracts   []optionContractDTO `json:"contracts"`
	SessionInfo sessionDescriptorDTO `json:"session_info"`
}

func chainToDTO(c *chain.OptionChain, s *chain.Session) chainDataResponseDTO {
	contracts := make([]optionContractDTO, 0, len(c.Contracts))
	for _, oc := range c.Contracts {
		contracts = append(contracts, optionContractDTO{
			Strike:     oc.Strike,
			Expiration: oc.Expiration,
			Call: optionQuoteDTO{
				Bid: oc.Call.Bid, Ask: oc.Call.Ask, Mid: oc.Call.Mid, Delta: oc.Call.Delta,
			},
			Put: optionQuoteDTO{
				Bid: oc.Put.Bid, Ask: oc.Put.Ask, Mid: oc.Put.Mid, Delta: oc.Put.Delta,
			},
			ImpliedVolatility: oc.ImpliedVolatility,
			Gamma:             oc.Gamma,
		})
	}

	return chainDataResponseDTO{
		Underlying:  c.Underlying,
		Timestamp:   c.Timestamp,
		Price:       c.Price,
		Contracts:   contracts,
		SessionInfo: sessionToDTO(s),
	}
}

// decodePatch decodes a partial-update request body into both a
// parametersDTO (for values) and the set of top-level field names that
// were actually present, so the façade only overwrites fields the
// client sent (spec.md §4.7: "fields present in patch overwrite").
func decodePatch(body []byte) (chain.SimulationParameters, map[string]bool, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return chain.SimulationParameters{}, nil, err
	}

	var dto parametersDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return chain.SimulationParameters{}, nil, err
	}

	fieldsSet := make(map[string]bool, len(raw))
	for k := range raw {
		fieldsSet[k] = true
	}

	return parametersFromDTO(dto), fieldsSet, nil
}
