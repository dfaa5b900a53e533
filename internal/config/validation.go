package config

import (
	"fmt"
	"strings"
)

func validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if err := validateRisk(&cfg.Risk); err != nil {
		return err
	}
	if err := validateAllocation(&cfg.Allocation); err != nil {
		return err
	}
	if cfg.Evaluator.MinLiquidityUSD < 0 {
		return fmt.Errorf("evaluator.min_liquidity_usd must be >= 0")
	}
	if cfg.Evaluator.MaxATRPct <= 0 {
		return fmt.Errorf("evaluator.max_atr_pct must be > 0")
	}
	if len(cfg.Market.Symbols) == 0 {
		return fmt.Errorf("market.symbols cannot be empty")
	}
	return nil
}

func validateRisk(r *RiskConfig) error {
	if r.MaxLeverage < 1 {
		return fmt.Errorf("risk.max_leverage must be >= 1, got %d", r.MaxLeverage)
	}
	if r.MaxPositionSizePct <= 0 || r.MaxPositionSizePct > 100 {
		return fmt.Errorf("risk.max_position_size_pct must be in (0, 100], got %.2f", r.MaxPositionSizePct)
	}
	if r.MaxTotalExposurePct <= 0 || r.MaxTotalExposurePct > 100 {
		return fmt.Errorf("risk.max_total_exposure_pct must be in (0, 100], got %.2f", r.MaxTotalExposurePct)
	}
	if r.MinConfidence < 0 || r.MinConfidence > 1 {
		return fmt.Errorf("risk.min_confidence must be in [0, 1], got %.2f", r.MinConfidence)
	}
	if r.DefaultStopLossPct <= 0 || r.DefaultTakeProfitPct <= 0 {
		return fmt.Errorf("risk default stop-loss and take-profit percentages must be > 0")
	}
	if r.MinOrderUSD < 0 {
		return fmt.Errorf("risk.min_order_usd must be >= 0")
	}
	return nil
}

func validateAllocation(a *AllocationConfig) error {
	if len(a.CoreSymbols) == 0 {
		return fmt.Errorf("allocation.core_symbols cannot be empty")
	}
	for _, s := range a.CoreSymbols {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("allocation.core_symbols contains an empty symbol")
		}
	}
	if a.CorePct < 0 || a.OpportunisticPct < 0 {
		return fmt.Errorf("allocation percentages must be >= 0")
	}
	if a.CorePct+a.OpportunisticPct > 100 {
		return fmt.Errorf("allocation.core_pct + allocation.opportunistic_pct must not exceed 100, got %.2f",
			a.CorePct+a.OpportunisticPct)
	}
	if a.MinOpportunityScore < 0 || a.MinOpportunityScore > 100 {
		return fmt.Errorf("allocation.min_opportunity_score must be in [0, 100]")
	}
	if a.MaxOpportunistic < 0 {
		return fmt.Errorf("allocation.max_opportunistic must be >= 0")
	}
	if a.MaxAltCoinPct <= 0 || a.MaxAltCoinPct > 100 {
		return fmt.Errorf("allocation.max_alt_coin_pct must be in (0, 100]")
	}
	if a.MaxTotalExposurePct <= 0 || a.MaxTotalExposurePct > 100 {
		return fmt.Errorf("allocation.max_total_exposure_pct must be in (0, 100]")
	}
	return nil
}
