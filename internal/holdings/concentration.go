package holdings

import (
	"gonum.org/v1/gonum/stat"
)

// ConcentrationStats summarizes how concentrated a holdings set is, over
// per-holding weights (each in [0,1], summing to ~1).
type ConcentrationStats struct {
	HerfindahlIndex float64 // sum(weight^2); 1/n for an equally-weighted n-holding book
	MeanWeight      float64
	WeightStdDev    float64
	TopHoldingWeight float64
}

// Concentration computes portfolio concentration statistics over a
// holdings set's weights. The Herfindahl index and top weight are computed
// in a plain loop; the mean and standard deviation come from gonum's
// unweighted stat.Mean and stat.StdDev.
func Concentration(holdings []Holding) ConcentrationStats {
	if len(holdings) == 0 {
		return ConcentrationStats{}
	}

	weights := make([]float64, len(holdings))
	top := 0.0
	for i, h := range holdings {
		w, _ := h.Weight.Float64()
		weights[i] = w
		if w > top {
			top = w
		}
	}

	hhi := 0.0
	for _, w := range weights {
		hhi += w * w
	}

	return ConcentrationStats{
		HerfindahlIndex:  hhi,
		MeanWeight:       stat.Mean(weights, nil),
		WeightStdDev:     stat.StdDev(weights, nil),
		TopHoldingWeight: top,
	}
}
