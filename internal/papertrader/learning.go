package papertrader

import "sort"

const minTradesForLearning = 5

// runLearningCycleLocked recomputes the learned threshold for every
// strategy with ≥5 resolved bot trades (spec §4.G). Caller must hold
// s.mu.
func (s *State) runLearningCycleLocked() {
	byStrategy := make(map[string][]Trade)
	for _, t := range s.resolved {
		if t.Source != SourceBot {
			continue
		}
		byStrategy[t.Strategy] = append(byStrategy[t.Strategy], t)
	}

	for strategy, trades := range byStrategy {
		if len(trades) < minTradesForLearning {
			continue
		}
		s.learned[strategy] = computeLearnedThreshold(trades)
	}
}

// computeLearnedThreshold sorts trades by score descending, finds the
// score at which cumulative PnL peaks (optimalMinScore), and the lowest
// 25-wide score bucket with ≥3 samples and positive average PnL
// (profitCutoff, default 50 when none qualifies).
func computeLearnedThreshold(trades []Trade) LearnedThreshold {
	sorted := append([]Trade{}, trades...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	var cumulative, best float64
	optimalMinScore := sorted[0].Score
	for _, t := range sorted {
		cumulative += t.NetPnL
		if cumulative > best {
			best = cumulative
			optimalMinScore = t.Score
		}
	}

	buckets := make(map[int][]float64) // bucket -> netPnL list
	for _, t := range trades {
		b := scoreBucket(t.Score)
		buckets[b] = append(buckets[b], t.NetPnL)
	}
	bucketKeys := make([]int, 0, len(buckets))
	for b := range buckets {
		bucketKeys = append(bucketKeys, b)
	}
	sort.Ints(bucketKeys)

	profitCutoff := 50.0
	for _, b := range bucketKeys {
		pnls := buckets[b]
		if len(pnls) < 3 {
			continue
		}
		if average(pnls) > 0 {
			profitCutoff = float64(b)
			break
		}
	}

	wins, total := 0, 0
	var sumPnL float64
	for _, t := range trades {
		total++
		sumPnL += t.NetPnL
		if t.NetPnL > 0 {
			wins++
		}
	}

	return LearnedThreshold{
		OptimalMinScore: optimalMinScore,
		ProfitCutoff:    profitCutoff,
		SampleSize:      total,
		WinRate:         float64(wins) / float64(total),
		AvgPnL:          sumPnL / float64(total),
	}
}

func average(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
