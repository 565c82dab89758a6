package processor

import (
	"math"

	"reconflow/models"
)

// DefaultTolerancePct is the match threshold applied when the config leaves
// it unset.
const DefaultTolerancePct = 0.5

// Classifier computes the tolerance classification for a value pair. The
// same classifier runs before and after flow normalization.
type Classifier struct {
	TolerancePct float64
}

func NewClassifier(tolerancePct float64) Classifier {
	if tolerancePct <= 0 {
		tolerancePct = DefaultTolerancePct
	}
	return Classifier{TolerancePct: tolerancePct}
}

// Compare classifies a fully-present value pair. Percentage difference is
// relative to the larger magnitude, zero when both values are zero, and is
// persisted rounded to 4 decimals.
func (c Classifier) Compare(a, b float64) models.Diff {
	abs, pct, match := c.classify(a, b)
	return models.DiffOf(abs, pct, match)
}

// CompareNormalized is Compare for the post-normalization pass, where the
// absolute difference is persisted rounded to 6 decimals.
func (c Classifier) CompareNormalized(a, b float64) models.Diff {
	abs, pct, match := c.classify(a, b)
	return models.DiffOf(roundTo(abs, 6), pct, match)
}

func (c Classifier) classify(a, b float64) (abs, pct float64, match bool) {
	abs = math.Abs(a - b)
	denom := math.Max(math.Abs(a), math.Abs(b))
	if denom != 0 {
		pct = abs / denom * 100
	}
	pct = roundTo(pct, 4)
	return abs, pct, pct < c.TolerancePct
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}
