package config

import "github.com/spf13/viper"

const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":9982"
	defaultCycleInterval    = "1h"
	defaultCycleOffset      = 10
	defaultPaperBalance     = 10_000.0
	defaultCandleInterval   = "1h"
	defaultCandleLimit      = 300
	defaultFearGreedURL     = "https://api.alternative.me/fng/?limit=5"
	defaultTrendingURL      = "https://api.coingecko.com/api/v3/coins/markets"
	defaultMaxLeverage      = 10
	defaultMaxPositionPct   = 5.0
	defaultMaxExposurePct   = 30.0
	defaultMinConfidence    = 0.6
	defaultStopLossPct      = 3.0
	defaultTakeProfitPct    = 5.0
	defaultMinOrderUSD      = 10.0
	defaultExchangeName     = "hyperliquid"
	defaultCorePct          = 65.0
	defaultOpportunisticPct = 25.0
	defaultMinOppScore      = 60.0
	defaultMaxOpportunistic = 3
	defaultMaxAltCoinPct    = 10.0
	defaultAllocExposurePct = 100.0
	defaultMinLiquidityUSD  = 10_000_000
	defaultMaxATRPct        = 15.0
	defaultStrategyPath     = "configs/strategies.yaml"
)

func applyDefaults(v *viper.Viper) {
	v.SetDefault("app.env", defaultAppEnv)
	v.SetDefault("app.log_level", defaultAppLogLevel)
	v.SetDefault("app.http_addr", defaultAppHTTPAddr)
	v.SetDefault("app.cycle_interval", defaultCycleInterval)
	v.SetDefault("app.cycle_offset_seconds", defaultCycleOffset)
	v.SetDefault("app.paper_balance_usd", defaultPaperBalance)

	v.SetDefault("market.symbols", []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"})
	v.SetDefault("market.candle_interval", defaultCandleInterval)
	v.SetDefault("market.candle_limit", defaultCandleLimit)
	v.SetDefault("market.fear_greed_endpoint", defaultFearGreedURL)
	v.SetDefault("market.trending_endpoint", defaultTrendingURL)

	v.SetDefault("risk.max_leverage", defaultMaxLeverage)
	v.SetDefault("risk.max_position_size_pct", defaultMaxPositionPct)
	v.SetDefault("risk.max_total_exposure_pct", defaultMaxExposurePct)
	v.SetDefault("risk.min_confidence", defaultMinConfidence)
	v.SetDefault("risk.default_stop_loss_pct", defaultStopLossPct)
	v.SetDefault("risk.default_take_profit_pct", defaultTakeProfitPct)
	v.SetDefault("risk.min_order_usd", defaultMinOrderUSD)
	v.SetDefault("risk.exchange_name", defaultExchangeName)
	v.SetDefault("risk.supports_margin", true)

	v.SetDefault("allocation.core_symbols", []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"})
	v.SetDefault("allocation.core_pct", defaultCorePct)
	v.SetDefault("allocation.opportunistic_pct", defaultOpportunisticPct)
	v.SetDefault("allocation.min_opportunity_score", defaultMinOppScore)
	v.SetDefault("allocation.max_opportunistic", defaultMaxOpportunistic)
	v.SetDefault("allocation.max_alt_coin_pct", defaultMaxAltCoinPct)
	v.SetDefault("allocation.max_total_exposure_pct", defaultAllocExposurePct)

	v.SetDefault("evaluator.min_liquidity_usd", defaultMinLiquidityUSD)
	v.SetDefault("evaluator.max_atr_pct", defaultMaxATRPct)

	v.SetDefault("strategy.path", defaultStrategyPath)
}
