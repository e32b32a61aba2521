package models

import "fmt"

// Observations is an ordered sequence of binary conversion outcomes for one
// experiment variant. Elements are always 0 or 1; construct through
// NewObservations to keep that invariant.
type Observations []uint8

// NewObservations validates raw outcome values and converts them into an
// Observations sequence. It fails fast on any value outside {0, 1}.
func NewObservations(values []int) (Observations, error) {
	obs := make(Observations, len(values))
	for i, v := range values {
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("observation %d: value %d is not a binary outcome", i, v)
		}
		obs[i] = uint8(v)
	}
	return obs, nil
}

// Successes counts converted users.
func (o Observations) Successes() int {
	total := 0
	for _, v := range o {
		total += int(v)
	}
	return total
}

// Failures counts users that did not convert.
func (o Observations) Failures() int {
	return len(o) - o.Successes()
}

// Rate returns the observed conversion rate, or zero for an empty sequence.
func (o Observations) Rate() float64 {
	if len(o) == 0 {
		return 0
	}
	return float64(o.Successes()) / float64(len(o))
}
