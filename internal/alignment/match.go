package alignment

import (
	"math/bits"
)

// HammingMatcher pairs keypoints whose descriptors are mutual nearest
// neighbours within a maximum Hamming distance.
type HammingMatcher struct {
	MaxDistance int // reject matches above this bit distance
}

// NewHammingMatcher returns a matcher with the default distance cutoff.
func NewHammingMatcher() *HammingMatcher {
	return &HammingMatcher{MaxDistance: 64}
}

// Match implements Matcher. Each returned correspondence is the mutual best
// match between the two sets; one-sided matches and matches beyond the
// distance cutoff are dropped.
func (m *HammingMatcher) Match(sci, ref []FeaturePoint) []Correspondence {
	if len(sci) == 0 || len(ref) == 0 {
		return nil
	}

	bestForSci := make([]int, len(sci))
	bestDist := make([]int, len(sci))
	for i := range sci {
		bestForSci[i] = -1
		bestDist[i] = m.MaxDistance + 1
		for j := range ref {
			d := hammingDistance(&sci[i].Desc, &ref[j].Desc)
			if d < bestDist[i] {
				bestDist[i] = d
				bestForSci[i] = j
			}
		}
	}

	bestForRef := make([]int, len(ref))
	for j := range ref {
		bestForRef[j] = -1
		best := m.MaxDistance + 1
		for i := range sci {
			d := hammingDistance(&sci[i].Desc, &ref[j].Desc)
			if d < best {
				best = d
				bestForRef[j] = i
			}
		}
	}

	var out []Correspondence
	for i, j := range bestForSci {
		if j >= 0 && bestForRef[j] == i {
			out = append(out, Correspondence{Sci: sci[i], Ref: ref[j], Distance: bestDist[i]})
		}
	}
	return out
}

// hammingDistance counts differing bits between two descriptors.
func hammingDistance(a, b *[DescriptorSize]byte) int {
	d := 0
	for i := 0; i < DescriptorSize; i++ {
		d += bits.OnesCount8(a[i] ^ b[i])
	}
	return d
}
