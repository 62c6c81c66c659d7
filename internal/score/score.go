// Package score holds the pure reality-score and bias computations.
package score

import "realitycheck/backend/internal/model"

const (
	MinScore = 0
	MaxScore = 100

	// RecentWindow is how many of the newest completions feed the gap lens.
	RecentWindow = 5

	DeltaExact   = 5
	DeltaOverran = -10
	DeltaUnderan = -5

	MultiplierInflate = 1.2
	MultiplierDeflate = 0.9
	MultiplierNeutral = 1.0

	biasEpsilon = 0.01

	ratioMinSamples      = 5
	ratioOptimisticAbove = 1.15
	ratioFearfulBelow    = 0.85
)

type Completion struct {
	EffortGap   float64
	EffortRatio float64
	ScoreDelta  int
}

// ComputeCompletionDelta derives gap, ratio and score delta for a completion.
// estimated must be positive.
func ComputeCompletionDelta(estimated, actual float64) Completion {
	gap := actual - estimated
	delta := DeltaExact
	switch {
	case gap > 0:
		delta = DeltaOverran
	case gap < 0:
		delta = DeltaUnderan
	}
	return Completion{
		EffortGap:   gap,
		EffortRatio: actual / estimated,
		ScoreDelta:  delta,
	}
}

func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// Apply adds delta to score and clamps the result.
func Apply(score, delta int) int {
	return ClampScore(score + delta)
}

// FoldScore replays a phase's deltas from the initial score, clamping at
// every step so the result matches incremental updates.
func FoldScore(deltas []int) int {
	current := model.InitialRealityScore
	for _, delta := range deltas {
		current = Apply(current, delta)
	}
	return current
}

func AverageGap(gaps []float64) float64 {
	if len(gaps) == 0 {
		return 0
	}
	total := 0.0
	for _, gap := range gaps {
		total += gap
	}
	return total / float64(len(gaps))
}

// ClassifyBias classifies the newest-first gap history. Only the first
// RecentWindow gaps are considered.
func ClassifyBias(recentGaps []float64) string {
	average := AverageGap(capRecent(recentGaps))
	if average > biasEpsilon {
		return model.BiasOptimistic
	}
	if average < -biasEpsilon {
		return model.BiasFearful
	}
	return model.BiasRealistic
}

// SuggestMultiplier returns the advisory estimate multiplier for the
// newest-first gap history.
func SuggestMultiplier(recentGaps []float64) float64 {
	average := AverageGap(capRecent(recentGaps))
	if average > 0 {
		return MultiplierInflate
	}
	if average < 0 {
		return MultiplierDeflate
	}
	return MultiplierNeutral
}

// ClassifyRatioBias classifies a full effort-ratio history. Fewer than five
// samples is always REALISTIC; otherwise every ratio is averaged.
func ClassifyRatioBias(ratios []float64) string {
	if len(ratios) < ratioMinSamples {
		return model.BiasRealistic
	}
	total := 0.0
	for _, ratio := range ratios {
		total += ratio
	}
	average := total / float64(len(ratios))
	if average > ratioOptimisticAbove {
		return model.BiasOptimistic
	}
	if average < ratioFearfulBelow {
		return model.BiasFearful
	}
	return model.BiasRealistic
}

func capRecent(gaps []float64) []float64 {
	if len(gaps) > RecentWindow {
		return gaps[:RecentWindow]
	}
	return gaps
}
