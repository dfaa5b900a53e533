package config

// Config is the top-level configuration for the agent.
type Config struct {
	App        AppConfig        `toml:"app"`
	Market     MarketConfig     `toml:"market"`
	Risk       RiskConfig       `toml:"risk"`
	Allocation AllocationConfig `toml:"allocation"`
	Evaluator  EvaluatorConfig  `toml:"evaluator"`
	Strategy   StrategyConfig   `toml:"strategy"`
}

type AppConfig struct {
	Env                string `toml:"env"`
	LogLevel           string `toml:"log_level"`
	HTTPAddr           string `toml:"http_addr"`
	LogPath            string `toml:"log_path"`
	CycleInterval      string `toml:"cycle_interval"`
	CycleOffsetSeconds int    `toml:"cycle_offset_seconds"`
	// PaperBalanceUSD seeds the simulated account when no live portfolio
	// source is wired in.
	PaperBalanceUSD float64 `toml:"paper_balance_usd"`
}

// MarketConfig describes the external data feeds the agent reads from.
type MarketConfig struct {
	Symbols           []string `toml:"symbols"`
	CandleInterval    string   `toml:"candle_interval"`
	CandleLimit       int      `toml:"candle_limit"`
	CandlesURL        string   `toml:"candles_url"`
	FearGreedEndpoint string   `toml:"fear_greed_endpoint"`
	TrendingEndpoint  string   `toml:"trending_endpoint"`
}

// RiskConfig mirrors risk.Limits. Percent fields are 0-100 values.
type RiskConfig struct {
	MaxLeverage          int     `toml:"max_leverage"`
	MaxPositionSizePct   float64 `toml:"max_position_size_pct"`
	MaxTotalExposurePct  float64 `toml:"max_total_exposure_pct"`
	MinConfidence        float64 `toml:"min_confidence"`
	DefaultStopLossPct   float64 `toml:"default_stop_loss_pct"`
	DefaultTakeProfitPct float64 `toml:"default_take_profit_pct"`
	MinOrderUSD          float64 `toml:"min_order_usd"`
	ExchangeName         string  `toml:"exchange_name"`
	SupportsMargin       bool    `toml:"supports_margin"`
}

// AllocationConfig controls the core/opportunistic capital split.
// Percent fields are 0-100 values relative to total equity.
type AllocationConfig struct {
	CoreSymbols         []string `toml:"core_symbols"`
	CorePct             float64  `toml:"core_pct"`
	OpportunisticPct    float64  `toml:"opportunistic_pct"`
	MinOpportunityScore float64  `toml:"min_opportunity_score"`
	MaxOpportunistic    int      `toml:"max_opportunistic"`
	MaxAltCoinPct       float64  `toml:"max_alt_coin_pct"`
	// MaxTotalExposurePct caps the aggregate allocation across both tiers.
	// Defaults to 100 (full equity); strategy overrides can tighten it
	// per cycle.
	MaxTotalExposurePct float64 `toml:"max_total_exposure_pct"`
}

// EvaluatorConfig tunes the opportunity scorer's criteria thresholds.
type EvaluatorConfig struct {
	MinLiquidityUSD float64 `toml:"min_liquidity_usd"`
	MaxATRPct       float64 `toml:"max_atr_pct"`
}

// StrategyConfig points at the hot-reloadable strategy override file.
type StrategyConfig struct {
	Path   string `toml:"path"`
	Active string `toml:"active"`
}
