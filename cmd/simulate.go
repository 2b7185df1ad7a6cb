package cmd

import (
	"fmt"
	"io"
	"math"

	"economy/models"
	"economy/service"
)

// TierResult is the observed frequency of one reward tier
type TierResult struct {
	Tokens   int64
	Expected float64
	Observed float64
	Count    int
}

// SimulationResult summarizes repeated draws from a reward table
type SimulationResult struct {
	Trials        int
	Tiers         []TierResult
	ChiSquared    float64
	ExpectedValue float64
	MeanReward    float64
}

// SimulateRewards draws trials times from table with the production draw and
// compares the observed tier frequencies against the configured chances
func SimulateRewards(table []models.RewardTier, trials int, rng service.RandomSource) (*SimulationResult, error) {
	if trials <= 0 {
		return nil, fmt.Errorf("trials must be positive, got %d", trials)
	}

	pool := make([]service.IntWeightedEntry[int], len(table))
	var total int64
	for i, tier := range table {
		pool[i] = service.IntWeightedEntry[int]{Weight: tier.Chance, Value: i}
		total += tier.Chance
	}

	counts := make([]int, len(table))
	var sum int64
	for i := 0; i < trials; i++ {
		idx, err := service.DrawInclusive(rng, pool)
		if err != nil {
			return nil, err
		}
		counts[idx]++
		sum += table[idx].Tokens
	}

	result := &SimulationResult{Trials: trials, MeanReward: float64(sum) / float64(trials)}
	for i, tier := range table {
		expected := float64(tier.Chance) / float64(total)
		expectedCount := expected * float64(trials)
		if expectedCount > 0 {
			result.ChiSquared += math.Pow(float64(counts[i])-expectedCount, 2) / expectedCount
		}
		result.ExpectedValue += expected * float64(tier.Tokens)
		result.Tiers = append(result.Tiers, TierResult{
			Tokens:   tier.Tokens,
			Expected: expected,
			Observed: float64(counts[i]) / float64(trials),
			Count:    counts[i],
		})
	}
	return result, nil
}

// PrintSimulation writes a human readable report of result to w
func PrintSimulation(w io.Writer, result *SimulationResult) {
	fmt.Fprintf(w, "=== Periodic reward draw over %d trials ===\n", result.Trials)
	for _, tier := range result.Tiers {
		deviation := 0.0
		if tier.Expected > 0 {
			deviation = (tier.Observed - tier.Expected) / tier.Expected * 100
		}
		fmt.Fprintf(w, "  %6d tokens | expected %6.2f%% | observed %6.2f%% (%d) | deviation %+6.2f%%\n",
			tier.Tokens, tier.Expected*100, tier.Observed*100, tier.Count, deviation)
	}
	fmt.Fprintf(w, "Expected value: %.2f tokens, observed mean: %.2f tokens\n", result.ExpectedValue, result.MeanReward)
	fmt.Fprintf(w, "χ²: %.2f with %d degrees of freedom\n", result.ChiSquared, len(result.Tiers)-1)
}
