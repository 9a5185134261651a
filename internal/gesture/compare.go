package gesture

import "math"

// Score is the outcome of comparing two normalized gestures.
type Score struct {
	Position      float64
	Time          float64
	Sequence      float64
	Similarity    float64
	Compared      int
	ClickMismatch bool
}

// Compare scores attempt against reference. Samples are paired by index, so
// only the first min(len) samples of the longer buffer count. A differing
// click count is an automatic mismatch with a similarity of exactly zero.
// Weights are divided by their sum; weights summing to zero or less leave
// the component scores filled in and Similarity at zero.
func Compare(reference, attempt Buffer, w Weights) Score {
	if reference.Clicks() != attempt.Clicks() {
		return Score{ClickMismatch: true}
	}
	n := min(len(reference), len(attempt))
	if n == 0 {
		return Score{}
	}

	var posSum, timeSum float64
	matched := 0
	for i := 0; i < n; i++ {
		r, a := reference[i], attempt[i]
		posSum += 1 - math.Min(1, r.Pos.Distance(a.Pos))
		timeSum += 1 - math.Min(1, math.Abs(r.Time-a.Time))
		if r.Kind == a.Kind {
			matched++
		}
	}

	score := Score{
		Position: posSum / float64(n),
		Time:     timeSum / float64(n),
		Sequence: float64(matched) / float64(n),
		Compared: n,
	}
	total := w.sum()
	if total <= 0 {
		return score
	}
	sim := (w.Position*score.Position + w.Time*score.Time + w.Sequence*score.Sequence) / total
	score.Similarity = math.Max(0, math.Min(1, sim))
	return score
}
