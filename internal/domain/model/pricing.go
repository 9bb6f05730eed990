package model

import "ai-content-boost/internal/domain"

// All amounts are AEJ units. Admission reserves the per-item estimate for the
// whole job; execution charges per stage. Each mode's estimate decomposes into
// the stage charges of a one-item backend run (fixed overhead plus the mode's
// generation weight), so a smooth run settles at or below its hold for any
// item count.
const (
	MaxItemsPerJob = 10

	CostStageAnalyse       = 1
	CostStageDecision      = 1
	CostGenerationFallback = 1
	CostStageApplication   = 1

	stageOverhead = CostStageAnalyse + CostStageDecision + CostStageApplication
)

var unitCosts = map[Mode]int64{
	ModeQuickBoost:  8,
	ModeFullRewrite: 12,
	ModeMetaRefresh: 4,
}

// UnitCost returns the per-item admission estimate for a mode. Legacy aliases
// price as their canonical mode.
func UnitCost(m Mode) (int64, bool) {
	c, ok := unitCosts[m.Canonical()]
	return c, ok
}

// EstimateCost is the conservative admission estimate: unit cost times item
// count.
func EstimateCost(m Mode, items int) (int64, error) {
	unit, ok := UnitCost(m)
	if !ok {
		return 0, domain.ErrInvalidArgument
	}
	if items < 1 || items > MaxItemsPerJob {
		return 0, domain.ErrInvalidArgument
	}
	return unit * int64(items), nil
}

// GenerationCost is the stage charge for a completed generation. A backend
// run bills the mode's per-item generation weight, the remainder of the unit
// cost after the fixed stage overhead; the fallback synthesizer bills one
// flat unit. Unknown modes never reach this point, admission rejects them.
func GenerationCost(m Mode, source ResultSource, items int) int64 {
	unit, ok := UnitCost(m)
	if source == SourceFallback || !ok {
		return CostGenerationFallback
	}
	return (unit - stageOverhead) * int64(items)
}
