// Package dhbloom provides a fixed-size bloom filter built on double hashing.
//
// A bloom filter is a space-efficient probabilistic data structure that tests
// whether an element is a member of a set. False positive matches are possible,
// but false negatives are not – if the filter says an element is not present,
// it definitely is not. If it says an element might be present, it could be a
// false positive.
//
// # Sizing
//
// A filter is built from two values, the expected number of items (capacity)
// and the target false positive rate p:
//
//	m = ceil(-capacity * ln(p) / ln(2)²)   bits
//	k = round((m / capacity) * ln(2))      hash functions, at least 1
//
// Both are fixed for the life of the filter. Adding more than capacity items
// is allowed; the filter keeps answering without false negatives, but the
// realized false positive rate climbs above p. Use
// [Filter.EstimatedFalsePositiveRate] to monitor it.
//
//	// Filter for 1 million items with 1% false positive rate
//	f, err := dhbloom.New(1_000_000, 0.01)
//
// # Hashing
//
// Each key is hashed once with 128-bit xxh3. The two 64-bit halves become the
// base values h1 and h2 of the Kirsch–Mitzenmacher scheme, and the k probed
// bits are
//
//	p_i = (h1 + i*h2) mod m,  i = 0..k-1
//
// h2 is chosen in [1, m) and coprime with m, so the first min(k, m) probed
// positions are always distinct.
//
// # Keys
//
// [Filter.Add] and [Filter.Test] take raw bytes. [Filter.Insert] and
// [Filter.Query] take any supported Go value and run it through [AppendKey]
// first, a tagged canonical encoding in which equal logical values always
// produce the same bytes (int(7), int64(7) and uint8(7) are one key) and
// values of different kinds never collide. [Tuple] builds composite keys.
// A value with no encoding yields [ErrSerialization] and the filter is not
// touched.
//
// # Implementations
//
// [Filter] is the fastest option for single-threaded workloads. It has no
// synchronization.
//
// [LockedFilter] wraps a Filter in one sync.RWMutex. Writers are serialized.
//
// [AtomicFilter] sets bits with [sync/atomic.Uint64.Or]. Since bits only ever
// move from 0 to 1, concurrent Add and Test need no lock.
//
// # References
//
//   - Less Hashing, Same Performance: https://www.eecs.harvard.edu/~michaelm/postscripts/rsa2008.pdf
//   - xxh3: https://github.com/Cyan4973/xxHash
package dhbloom
