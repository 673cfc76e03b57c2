// Package risk evaluates guardrails before orders are submitted: position
// count limits, intraday drawdown, and order-frequency cooldown.
package risk

import (
	"time"

	"github.com/mlstock/kiwoom-connector/pkg/logging"
	"github.com/mlstock/kiwoom-connector/pkg/settings"
)

// Guardrails checks risk constraints from configuration. A zero limit
// disables the corresponding check.
type Guardrails struct {
	config settings.RiskConfig
	logger logging.Logger
}

// NewGuardrails creates guardrails from the risk configuration.
func NewGuardrails(config settings.RiskConfig, logger logging.Logger) *Guardrails {
	if logger == nil {
		logger = logging.NewLogger()
	}
	return &Guardrails{config: config, logger: logger}
}

// ValidatePositionLimit reports whether opening another position stays
// within the configured maximum.
func (g *Guardrails) ValidatePositionLimit(positionsCount int) bool {
	limit := g.config.PositionLimits.MaxPositions
	if limit > 0 && positionsCount >= limit {
		g.logger.Warn("position limit reached",
			logging.Int("limit", limit),
			logging.Int("positions", positionsCount),
		)
		return false
	}
	return true
}

// ValidateDrawdown reports whether the intraday drawdown (a negative
// percentage when losing) stays above the configured limit.
func (g *Guardrails) ValidateDrawdown(intradayDrawdownPct float64) bool {
	limit := g.config.Drawdown.IntradayPct
	if limit != 0 && intradayDrawdownPct <= -abs(limit) {
		g.logger.Error("drawdown limit exceeded",
			logging.Float64("limit", limit),
			logging.Float64("value", intradayDrawdownPct),
		)
		return false
	}
	return true
}

// ValidateOrderFrequency reports whether enough time passed since the last
// order.
func (g *Guardrails) ValidateOrderFrequency(sinceLastOrder time.Duration) bool {
	minInterval := time.Duration(g.config.Cooldown.OrderSeconds * float64(time.Second))
	if minInterval > 0 && sinceLastOrder < minInterval {
		g.logger.Warn("order cooldown violation",
			logging.Duration("cooldown", minInterval),
			logging.Duration("elapsed", sinceLastOrder),
		)
		return false
	}
	return true
}

// IsOrderAllowed aggregates every guardrail. All checks run so each
// violation is logged, not just the first.
func (g *Guardrails) IsOrderAllowed(positionsCount int, intradayDrawdownPct float64, sinceLastOrder time.Duration) bool {
	positionOK := g.ValidatePositionLimit(positionsCount)
	drawdownOK := g.ValidateDrawdown(intradayDrawdownPct)
	frequencyOK := g.ValidateOrderFrequency(sinceLastOrder)
	return positionOK && drawdownOK && frequencyOK
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
