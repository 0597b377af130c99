package synergy

import (
	"math"
	"sort"
)

// Quality score weights. Confidence dominates because a confidently wrong
// automation is worse than a weakly beneficial one.
const (
	qualityConfidenceWeight = 0.6
	qualityImpactWeight     = 0.4
)

// Quality returns the blended quality score used to rank synergies:
//
//	quality = 0.6*confidence + 0.4*impact_score
//
// Inputs are expected to already be in [0,1]; the result is not re-clamped.
// Zero-value fields contribute nothing, so a synergy missing an impact
// score simply ranks on confidence alone.
func (s *Synergy) Quality() float64 {
	if s == nil {
		return 0
	}
	return qualityConfidenceWeight*s.Confidence + qualityImpactWeight*s.ImpactScore
}

// RankByQuality returns a copy of the input sorted by descending quality.
// The sort is stable, so ties keep their input order.
func RankByQuality(synergies []*Synergy) []*Synergy {
	out := make([]*Synergy, len(synergies))
	copy(out, synergies)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Quality() > out[j].Quality()
	})
	return out
}

// TopByQuality reduces a candidate set to its highest-quality members.
//
// When the input already fits within limit it is returned unchanged, same
// slice, original order, and no ranking cost is paid. Otherwise the top
// limit synergies are returned in descending quality order with ties
// broken by input position.
//
// This is the pruning step that bounds chain-search cost: the chain
// detector only ever traverses a top-K reduced pair set.
func TopByQuality(synergies []*Synergy, limit int) []*Synergy {
	if limit < 0 {
		limit = 0
	}
	if len(synergies) <= limit {
		return synergies
	}
	ranked := RankByQuality(synergies)
	return ranked[:limit]
}

// Round2 rounds to two decimal places. Chain impact scores are stored
// rounded so cached and freshly computed records compare equal.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
