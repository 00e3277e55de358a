package service

import (
	"github.com/shopspring/decimal"

	"contestbet/config"
)

// OddsParams holds the tunables of the coefficient formula
type OddsParams struct {
	// Smoothing dampens volatility for thin pools and prevents
	// division by zero
	Smoothing decimal.Decimal
	Min       decimal.Decimal
	Max       decimal.Decimal
}

// OddsParamsFromConfig builds odds parameters from application configuration
func OddsParamsFromConfig(cfg *config.Config) OddsParams {
	return OddsParams{
		Smoothing: cfg.OddsSmoothing,
		Min:       cfg.OddsMin,
		Max:       cfg.OddsMax,
	}
}

// ComputeCoefficient derives a bet's payout multiplier from the pool state:
//
//	raw = (poolTotal + S) / (candidateTotal + S)
//
// clamped to [Min, Max] and rounded to two decimals. The more of the pool a
// candidate holds, the lower the coefficient. Pure: callers are responsible
// for reading the totals from a transactionally consistent snapshot.
func ComputeCoefficient(poolTotal, candidateTotal decimal.Decimal, p OddsParams) decimal.Decimal {
	raw := poolTotal.Add(p.Smoothing).Div(candidateTotal.Add(p.Smoothing))

	if raw.LessThan(p.Min) {
		raw = p.Min
	}
	if raw.GreaterThan(p.Max) {
		raw = p.Max
	}
	return raw.Round(2)
}
