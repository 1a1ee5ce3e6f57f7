package domain

import (
	m "pkgabidiff.dev/pkg/pkgabidiff/internal/model"
)

// ScoreInput carries everything the aggregator needs for one run.
type ScoreInput struct {
	Mode m.CompareMode
	// Pairs holds only pairs that were compared successfully.
	Pairs []m.PairResult
	// RemovedSymbols holds the symbol count of every removed object.
	RemovedSymbols []int
	ObjectsAdded   int
	ObjectsRemoved int
	ChangedSoname  int
}

// AggregateScores combines per-object compatibility into package scores.
//
// Affected percentages are weighted by the old object's symbol count. BC and
// Source_BC are scaled down by the share of symbols lost with removed objects;
// BC_Effective is not, it only reflects per-object severity where a changed
// SONAME counts as fully incompatible.
func AggregateScores(in ScoreInput) m.PackageScore {
	score := m.PackageScore{
		ObjectsAdded:   in.ObjectsAdded,
		ObjectsRemoved: in.ObjectsRemoved,
		ChangedSoname:  in.ChangedSoname,
	}

	var affected, affectedEff, affectedSrc float64

	for _, result := range in.Pairs {
		primary := result.Record.Primary()
		if primary == nil {
			continue
		}

		symbols := float64(result.Symbols)
		delta := primary.Affected * symbols

		affected += delta
		if result.Pair.SONAMEChanged() {
			affectedEff += 100 * symbols
		} else {
			affectedEff += delta
		}

		score.Problems += primary.Problems
		score.Added += primary.Added
		score.Removed += primary.Removed

		if in.Mode.Source && result.Record.Source != nil {
			affectedSrc += result.Record.Source.Affected * symbols
			score.SrcProblems += result.Record.Source.Problems
		}

		score.TotalSymbols += result.Symbols
	}

	for _, n := range in.RemovedSymbols {
		score.RemovedSymbols += n
	}

	score.BC = 100
	score.BCEffective = 100
	score.SourceBC = 100

	if score.TotalSymbols > 0 {
		total := float64(score.TotalSymbols)
		score.BC -= affected / total
		score.BCEffective -= affectedEff / total
		score.SourceBC -= affectedSrc / total
	}

	penalty := RemovalPenalty(score.TotalSymbols, score.RemovedSymbols, in.ObjectsRemoved)
	score.BC *= penalty
	score.SourceBC *= penalty

	return score
}

// RemovalPenalty returns the factor applied to BC for removed objects:
// 1 - removed/(total+removed), or 1 when nothing was removed or there are no
// symbols at all.
func RemovalPenalty(totalSymbols, removedSymbols, objectsRemoved int) float64 {
	if objectsRemoved == 0 {
		return 1
	}

	denominator := totalSymbols + removedSymbols
	if denominator == 0 {
		return 1
	}

	return 1 - float64(removedSymbols)/float64(denominator)
}

// CompatClass buckets a compatibility rate for report styling.
func CompatClass(rate float64, problems int) string {
	switch {
	case rate == 100:
		if problems > 0 {
			return "warning"
		}

		return "ok"
	case rate >= 90:
		return "warning"
	case rate >= 80:
		return "almost_compatible"
	default:
		return "incompatible"
	}
}

// BuildMeta converts a score into the meta.json layout for the given mode.
func BuildMeta(score m.PackageScore, mode m.CompareMode) m.Meta {
	meta := m.Meta{
		Added:          score.Added,
		Removed:        score.Removed,
		ObjectsAdded:   score.ObjectsAdded,
		ObjectsRemoved: score.ObjectsRemoved,
		ChangedSoname:  score.ChangedSoname,
	}

	if mode.Binary {
		bc := m.Number(m.FormatPercent(score.BC))
		bcEff := m.Number(m.FormatPercent(score.BCEffective))
		problems := score.Problems
		meta.BC = &bc
		meta.BCEffective = &bcEff
		meta.TotalProblems = &problems
	}

	if mode.Source {
		src := m.Number(m.FormatPercent(score.SourceBC))
		problems := score.SrcProblems
		meta.SourceBC = &src
		meta.SourceTotalProblem = &problems
	}

	return meta
}
