package models

// Requests and responses for the optimization HTTP endpoints. Defined in domain
// for consistency and reuse.

// OptimizeRequest carries the inputs of one optimization run. Bounds and the
// frontier sample count fall back to configured defaults when omitted.
type OptimizeRequest struct {
	Tickers        []string `json:"tickers" query:"tickers" validate:"required,min=2,dive,required"`
	Start          string   `json:"start" query:"start" validate:"required"`
	End            string   `json:"end" query:"end" validate:"required"`
	RiskFreeRate   *float64 `json:"risk_free_rate" query:"risk_free_rate" validate:"omitempty,gte=0,lte=0.2"`
	LowerBound     *float64 `json:"lower_bound" query:"lower_bound" validate:"omitempty,gte=-1"`
	UpperBound     *float64 `json:"upper_bound" query:"upper_bound" validate:"omitempty,lte=2"`
	FrontierPoints int      `json:"frontier_points" query:"frontier_points" validate:"gte=0,lte=200"`
}

// AllocationEntry is one row of a per-asset allocation table, weight expressed
// as a rounded percentage.
type AllocationEntry struct {
	Ticker    string  `json:"ticker"`
	WeightPct float64 `json:"weight_pct"`
}

// PortfolioSummary is a named portfolio with percentage-scaled metrics.
type PortfolioSummary struct {
	ReturnPct     float64           `json:"return_pct"`
	VolatilityPct float64           `json:"volatility_pct"`
	SharpeRatio   float64           `json:"sharpe_ratio"`
	Allocations   []AllocationEntry `json:"allocations"`
}

// FrontierSample is one frontier point in presentation units. VolatilityPct is
// nil for infeasible points so renderers can skip them; the sentinel is never
// coerced to a number.
type FrontierSample struct {
	TargetReturnPct float64  `json:"target_return_pct"`
	VolatilityPct   *float64 `json:"volatility_pct,omitempty"`
	Feasible        bool     `json:"feasible"`
}

// OptimizationReport is the full output contract of one run: both named
// portfolios plus the ordered frontier.
type OptimizationReport struct {
	Tickers       []string         `json:"tickers"`
	Start         string           `json:"start"`
	End           string           `json:"end"`
	RiskFreeRate  float64          `json:"risk_free_rate"`
	MaxSharpe     PortfolioSummary `json:"max_sharpe"`
	MinVolatility PortfolioSummary `json:"min_volatility"`
	Frontier      []FrontierSample `json:"frontier"`
}

// OptimizeJobStatus is the lifecycle state of an asynchronous optimization job.
type OptimizeJobStatus struct {
	ID     string              `json:"id"`
	State  string              `json:"state"` // queued, done, failed
	Error  string              `json:"error,omitempty"`
	Report *OptimizationReport `json:"report,omitempty"`
}

// FrontierProgressEvent is one message of the websocket progress stream.
// Stage is "max_sharpe", "min_volatility", "frontier_point" or "done".
type FrontierProgressEvent struct {
	Stage    string           `json:"stage"`
	Index    int              `json:"index,omitempty"`
	Total    int              `json:"total,omitempty"`
	Point    *FrontierSample  `json:"point,omitempty"`
	Summary  *PortfolioSummary `json:"summary,omitempty"`
	ErrorMsg string           `json:"error,omitempty"`
}
