package dhbloom

import (
	"fmt"
	"math"
)

const (
	// wordBits is the number of bits per storage word.
	wordBits = 64
	// ln2 is the natural logarithm of 2.
	ln2 = 0.6931471805599453
	// ln2Squared is ln(2)^2.
	ln2Squared = 0.4804530139182014
	// maxBits caps m at 32 TiB of filter.
	maxBits = 1 << 48
)

// ValidateParams reports whether capacity and fpRate describe a buildable filter.
// The returned error wraps ErrInvalidParameter.
func ValidateParams(capacity uint64, fpRate float64) error {
	if capacity == 0 {
		return fmt.Errorf("%w: capacity must be positive", ErrInvalidParameter)
	}
	// written so that NaN fails too
	if !(fpRate > 0 && fpRate < 1) {
		return fmt.Errorf("%w: false positive rate must be in (0, 1), got %v", ErrInvalidParameter, fpRate)
	}
	return nil
}

// OptimalParams calculates the bloom filter parameters for the expected number
// of items and the target false positive rate.
//
//	m = ceil(-capacity * ln(fpRate) / ln(2)^2)
//	k = round((m / capacity) * ln(2)), at least 1
//
// Parameters that would need more than 2^48 bits fail with ErrInvalidParameter.
func OptimalParams(capacity uint64, fpRate float64) (m uint64, k uint32, err error) {
	if err := ValidateParams(capacity, fpRate); err != nil {
		return 0, 0, err
	}

	n := float64(capacity)
	mf := math.Ceil(-n * math.Log(fpRate) / ln2Squared)
	if mf > maxBits {
		return 0, 0, fmt.Errorf("%w: capacity %d at rate %v needs %g bits", ErrInvalidParameter, capacity, fpRate, mf)
	}
	m = max(uint64(mf), 1)

	k = uint32(math.Round(float64(m) / n * ln2))
	k = max(k, 1)

	return m, k, nil
}

// wordsFor returns the number of 64-bit words needed to hold m bits.
func wordsFor(m uint64) uint64 {
	return (m + wordBits - 1) / wordBits
}

// EstimateFalsePositiveRate estimates the false positive rate of a filter with
// m bits and k hash functions after itemsAdded insertions.
// Formula: (1 - e^(-kn/m))^k
func EstimateFalsePositiveRate(m uint64, k uint32, itemsAdded uint64) float64 {
	if m == 0 || itemsAdded == 0 {
		return 0
	}

	mf := float64(m)
	n := float64(itemsAdded)
	kf := float64(k)

	return math.Pow(1-math.Exp(-kf*n/mf), kf)
}
