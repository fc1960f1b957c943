package dhbloom

import (
	"math/bits"
	"sync"
	"sync/atomic"
)

// Filter is a non-thread-safe bloom filter using double hashing over a flat
// bit array.
//
// The bit count and hash count are fixed at construction. Adding more items
// than the filter was sized for never fails, it only raises the false positive
// rate.
type Filter struct {
	bits     []uint64 // m bits, packed 64 per word
	m        uint64   // Number of bits
	k        uint32   // Number of hash functions
	capacity uint64   // Expected items, 0 when built from explicit params
	fpRate   float64  // Target false positive rate, 0 when built from explicit params
	count    uint64   // Number of items added
}

// New creates a bloom filter sized for capacity items at the target false
// positive rate. It fails with ErrInvalidParameter if capacity is zero or
// fpRate is not strictly between 0 and 1.
func New(capacity uint64, fpRate float64) (*Filter, error) {
	m, k, err := OptimalParams(capacity, fpRate)
	if err != nil {
		return nil, err
	}
	f := NewWithParams(m, k)
	f.capacity = capacity
	f.fpRate = fpRate
	return f, nil
}

// NewWithParams creates a bloom filter with explicit parameters.
// m is the number of bits, k is the number of hash functions. Both are
// clamped to at least 1.
func NewWithParams(m uint64, k uint32) *Filter {
	m = max(m, 1)
	k = max(k, 1)

	return &Filter{
		bits: make([]uint64, wordsFor(m)),
		m:    m,
		k:    k,
	}
}

// Add adds data to the bloom filter.
func (f *Filter) Add(data []byte) {
	f.addWithProbe(hashData(data, f.m))
}

// AddString adds a string to the bloom filter without allocating.
func (f *Filter) AddString(s string) {
	f.addWithProbe(hashString(s, f.m))
}

// Insert serializes item with AppendKey and adds it. If item cannot be
// serialized the filter is left unchanged and an error wrapping
// ErrSerialization is returned.
func (f *Filter) Insert(item any) error {
	key, err := EncodeKey(item)
	if err != nil {
		return err
	}
	f.Add(key)
	return nil
}

func (f *Filter) addWithProbe(p probe) {
	for range f.k {
		f.bits[p.pos/wordBits] |= 1 << (p.pos % wordBits)
		p.next()
	}
	f.count++
}

// Test checks if data might be in the bloom filter.
// Returns true if the data might be present (with false positive probability),
// or false if the data is definitely not present.
func (f *Filter) Test(data []byte) bool {
	return f.testWithProbe(hashData(data, f.m))
}

// TestString checks if a string might be in the bloom filter without allocating.
func (f *Filter) TestString(s string) bool {
	return f.testWithProbe(hashString(s, f.m))
}

// Query serializes item and tests it. The error is non-nil only when item
// cannot be serialized.
func (f *Filter) Query(item any) (bool, error) {
	key, err := EncodeKey(item)
	if err != nil {
		return false, err
	}
	return f.Test(key), nil
}

func (f *Filter) testWithProbe(p probe) bool {
	for range f.k {
		if f.bits[p.pos/wordBits]&(1<<(p.pos%wordBits)) == 0 {
			return false
		}
		p.next()
	}
	return true
}

// TestAndAdd reports whether data might already have been present, then adds it.
func (f *Filter) TestAndAdd(data []byte) bool {
	return f.testAndAddWithProbe(hashData(data, f.m))
}

// TestAndAddString is TestAndAdd for string keys.
func (f *Filter) TestAndAddString(s string) bool {
	return f.testAndAddWithProbe(hashString(s, f.m))
}

func (f *Filter) testAndAddWithProbe(p probe) bool {
	present := true
	for range f.k {
		word := &f.bits[p.pos/wordBits]
		mask := uint64(1) << (p.pos % wordBits)
		if *word&mask == 0 {
			present = false
			*word |= mask
		}
		p.next()
	}
	f.count++
	return present
}

// Clear resets every bit and the item count, returning the filter to its
// empty state. The sizing is unchanged.
func (f *Filter) Clear() {
	clear(f.bits)
	f.count = 0
}

// BitCount returns the number of bits in the filter (m).
func (f *Filter) BitCount() uint64 {
	return f.m
}

// K returns the number of hash functions used.
func (f *Filter) K() uint32 {
	return f.k
}

// Capacity returns the expected number of items the filter was sized for, or 0
// if it was built with NewWithParams.
func (f *Filter) Capacity() uint64 {
	return f.capacity
}

// FPRate returns the target false positive rate the filter was sized for, or 0
// if it was built with NewWithParams.
func (f *Filter) FPRate() float64 {
	return f.fpRate
}

// Count returns the number of items added to the filter.
func (f *Filter) Count() uint64 {
	return f.count
}

// EstimatedFillRatio returns the proportion of bits that are set.
func (f *Filter) EstimatedFillRatio() float64 {
	var setBits uint64
	for _, word := range f.bits {
		setBits += uint64(bits.OnesCount64(word))
	}
	return float64(setBits) / float64(f.m)
}

// EstimatedFalsePositiveRate estimates the current false positive rate
// based on the number of items added.
func (f *Filter) EstimatedFalsePositiveRate() float64 {
	return EstimateFalsePositiveRate(f.m, f.k, f.count)
}

// LockedFilter is a thread-safe bloom filter that guards a Filter with a
// single read-write mutex. Writers are serialized; readers run in parallel.
type LockedFilter struct {
	mu sync.RWMutex
	f  *Filter
}

// NewLocked creates a mutex-guarded bloom filter. Parameters are validated as
// in New.
func NewLocked(capacity uint64, fpRate float64) (*LockedFilter, error) {
	f, err := New(capacity, fpRate)
	if err != nil {
		return nil, err
	}
	return &LockedFilter{f: f}, nil
}

// Add adds data to the bloom filter.
func (l *LockedFilter) Add(data []byte) {
	p := hashData(data, l.f.m)
	l.mu.Lock()
	l.f.addWithProbe(p)
	l.mu.Unlock()
}

// AddString adds a string to the bloom filter.
func (l *LockedFilter) AddString(s string) {
	p := hashString(s, l.f.m)
	l.mu.Lock()
	l.f.addWithProbe(p)
	l.mu.Unlock()
}

// Insert serializes item before taking the lock, then adds it.
func (l *LockedFilter) Insert(item any) error {
	key, err := EncodeKey(item)
	if err != nil {
		return err
	}
	l.Add(key)
	return nil
}

// Test checks if data might be in the bloom filter.
func (l *LockedFilter) Test(data []byte) bool {
	p := hashData(data, l.f.m)
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.f.testWithProbe(p)
}

// TestString checks if a string might be in the bloom filter.
func (l *LockedFilter) TestString(s string) bool {
	p := hashString(s, l.f.m)
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.f.testWithProbe(p)
}

// Query serializes item and tests it.
func (l *LockedFilter) Query(item any) (bool, error) {
	key, err := EncodeKey(item)
	if err != nil {
		return false, err
	}
	return l.Test(key), nil
}

// TestAndAdd reports whether data might already have been present, then adds
// it. Unlike AtomicFilter.TestAndAdd this is a single atomic step.
func (l *LockedFilter) TestAndAdd(data []byte) bool {
	p := hashData(data, l.f.m)
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.testAndAddWithProbe(p)
}

// Clear resets the filter to its empty state.
func (l *LockedFilter) Clear() {
	l.mu.Lock()
	l.f.Clear()
	l.mu.Unlock()
}

// BitCount returns the number of bits in the filter.
func (l *LockedFilter) BitCount() uint64 {
	return l.f.m
}

// K returns the number of hash functions used.
func (l *LockedFilter) K() uint32 {
	return l.f.k
}

// Capacity returns the expected number of items the filter was sized for.
func (l *LockedFilter) Capacity() uint64 {
	return l.f.capacity
}

// FPRate returns the target false positive rate the filter was sized for.
func (l *LockedFilter) FPRate() float64 {
	return l.f.fpRate
}

// Count returns the number of items added to the filter.
func (l *LockedFilter) Count() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.f.count
}

// EstimatedFillRatio returns the proportion of bits that are set.
func (l *LockedFilter) EstimatedFillRatio() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.f.EstimatedFillRatio()
}

// AtomicFilter is a thread-safe bloom filter using atomic operations.
// It uses the same sizing and double hashing as Filter but stores the bits in
// atomic.Uint64 words. Bits only ever go from 0 to 1, so setting them with an
// atomic OR needs no further coordination.
type AtomicFilter struct {
	bits     []atomic.Uint64
	m        uint64
	k        uint32
	capacity uint64
	fpRate   float64
	count    atomic.Uint64
}

// NewAtomic creates a new thread-safe bloom filter sized for capacity items at
// the target false positive rate.
func NewAtomic(capacity uint64, fpRate float64) (*AtomicFilter, error) {
	m, k, err := OptimalParams(capacity, fpRate)
	if err != nil {
		return nil, err
	}
	f := NewAtomicWithParams(m, k)
	f.capacity = capacity
	f.fpRate = fpRate
	return f, nil
}

// NewAtomicWithParams creates a new thread-safe bloom filter with explicit parameters.
func NewAtomicWithParams(m uint64, k uint32) *AtomicFilter {
	m = max(m, 1)
	k = max(k, 1)

	return &AtomicFilter{
		bits: make([]atomic.Uint64, wordsFor(m)),
		m:    m,
		k:    k,
	}
}

// Add adds data to the bloom filter atomically.
func (f *AtomicFilter) Add(data []byte) {
	f.addWithProbe(hashData(data, f.m))
}

// AddString adds a string to the bloom filter atomically without allocating.
func (f *AtomicFilter) AddString(s string) {
	f.addWithProbe(hashString(s, f.m))
}

// Insert serializes item and adds it.
func (f *AtomicFilter) Insert(item any) error {
	key, err := EncodeKey(item)
	if err != nil {
		return err
	}
	f.Add(key)
	return nil
}

func (f *AtomicFilter) addWithProbe(p probe) {
	for range f.k {
		f.bits[p.pos/wordBits].Or(1 << (p.pos % wordBits))
		p.next()
	}
	f.count.Add(1)
}

// Test checks if data might be in the bloom filter.
// This operation is safe to call concurrently with Add.
func (f *AtomicFilter) Test(data []byte) bool {
	return f.testWithProbe(hashData(data, f.m))
}

// TestString checks if a string might be in the bloom filter.
func (f *AtomicFilter) TestString(s string) bool {
	return f.testWithProbe(hashString(s, f.m))
}

// Query serializes item and tests it.
func (f *AtomicFilter) Query(item any) (bool, error) {
	key, err := EncodeKey(item)
	if err != nil {
		return false, err
	}
	return f.Test(key), nil
}

func (f *AtomicFilter) testWithProbe(p probe) bool {
	for range f.k {
		if f.bits[p.pos/wordBits].Load()&(1<<(p.pos%wordBits)) == 0 {
			return false
		}
		p.next()
	}
	return true
}

// TestAndAdd reports whether data might already have been present, then adds
// it. The test and the add are not one atomic step: two goroutines adding the
// same new key may both see false.
func (f *AtomicFilter) TestAndAdd(data []byte) bool {
	p := hashData(data, f.m)
	present := true
	for range f.k {
		mask := uint64(1) << (p.pos % wordBits)
		if f.bits[p.pos/wordBits].Or(mask)&mask == 0 {
			present = false
		}
		p.next()
	}
	f.count.Add(1)
	return present
}

// Clear resets every bit. It must not race with Add.
func (f *AtomicFilter) Clear() {
	for i := range f.bits {
		f.bits[i].Store(0)
	}
	f.count.Store(0)
}

// BitCount returns the number of bits in the filter.
func (f *AtomicFilter) BitCount() uint64 {
	return f.m
}

// K returns the number of hash functions used.
func (f *AtomicFilter) K() uint32 {
	return f.k
}

// Capacity returns the expected number of items the filter was sized for, or 0
// if it was built with NewAtomicWithParams.
func (f *AtomicFilter) Capacity() uint64 {
	return f.capacity
}

// FPRate returns the target false positive rate the filter was sized for, or 0
// if it was built with NewAtomicWithParams.
func (f *AtomicFilter) FPRate() float64 {
	return f.fpRate
}

// Count returns the approximate number of items added to the filter.
func (f *AtomicFilter) Count() uint64 {
	return f.count.Load()
}

// EstimatedFillRatio estimates the proportion of bits that are set.
func (f *AtomicFilter) EstimatedFillRatio() float64 {
	var setBits uint64
	for i := range f.bits {
		setBits += uint64(bits.OnesCount64(f.bits[i].Load()))
	}
	return float64(setBits) / float64(f.m)
}

// EstimatedFalsePositiveRate estimates the current false positive rate.
func (f *AtomicFilter) EstimatedFalsePositiveRate() float64 {
	return EstimateFalsePositiveRate(f.m, f.k, f.count.Load())
}
