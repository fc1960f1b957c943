package bench

import (
	"errors"
	"fmt"

	"github.com/bits-and-blooms/bitset"
	bab "github.com/bits-and-blooms/bloom/v3"
	"github.com/cespare/xxhash/v2"
	atomicbloom "github.com/ericvolp12/atomic-bloom"
	"github.com/greatroar/blobloom"
	"github.com/spaolacci/murmur3"
	"github.com/tidwall/btree"

	"github.com/jcalabro/dhbloom"
)

// Set is the two-operation membership contract every compared structure
// satisfies. The harness is written against Set only.
type Set interface {
	Add(key []byte)
	Test(key []byte) bool
}

// Candidate is a named constructor for a Set under comparison.
type Candidate struct {
	Name string
	New  func(capacity uint64, fpRate float64) (Set, error)
}

// ErrUnknownCandidate is returned by SelectCandidates for a name that is not
// registered.
var ErrUnknownCandidate = errors.New("bench: unknown candidate")

// DefaultCandidates returns every registered candidate in reporting order.
func DefaultCandidates() []Candidate {
	return []Candidate{
		{Name: "dhbloom", New: newDHBloom},
		{Name: "dhbloom-locked", New: newDHBloomLocked},
		{Name: "dhbloom-atomic", New: newDHBloomAtomic},
		{Name: "bits-and-blooms", New: newBitsAndBlooms},
		{Name: "atomic-bloom", New: newAtomicBloom},
		{Name: "blobloom", New: newBlobloom},
		{Name: "kseeded", New: newKSeeded},
		{Name: "exact", New: newExact},
	}
}

// SelectCandidates returns the registered candidates with the given names, in
// the order given. An empty list selects every candidate.
func SelectCandidates(names []string) ([]Candidate, error) {
	all := DefaultCandidates()
	if len(names) == 0 {
		return all, nil
	}

	byName := make(map[string]Candidate, len(all))
	for _, c := range all {
		byName[c.Name] = c
	}

	out := make([]Candidate, 0, len(names))
	for _, name := range names {
		c, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCandidate, name)
		}
		out = append(out, c)
	}
	return out, nil
}

func newDHBloom(capacity uint64, fpRate float64) (Set, error) {
	f, err := dhbloom.New(capacity, fpRate)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func newDHBloomLocked(capacity uint64, fpRate float64) (Set, error) {
	f, err := dhbloom.NewLocked(capacity, fpRate)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func newDHBloomAtomic(capacity uint64, fpRate float64) (Set, error) {
	f, err := dhbloom.NewAtomic(capacity, fpRate)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// The third-party filters do not validate their inputs, so every candidate
// is held to the same construction contract as dhbloom.

type babSet struct {
	f *bab.BloomFilter
}

func newBitsAndBlooms(capacity uint64, fpRate float64) (Set, error) {
	if err := dhbloom.ValidateParams(capacity, fpRate); err != nil {
		return nil, err
	}
	return babSet{f: bab.NewWithEstimates(uint(capacity), fpRate)}, nil
}

func (s babSet) Add(key []byte)       { s.f.Add(key) }
func (s babSet) Test(key []byte) bool { return s.f.Test(key) }

// funcSet adapts a structure whose concrete type the harness does not name.
type funcSet struct {
	add  func([]byte)
	test func([]byte) bool
}

func (s funcSet) Add(key []byte)       { s.add(key) }
func (s funcSet) Test(key []byte) bool { return s.test(key) }

func newAtomicBloom(capacity uint64, fpRate float64) (Set, error) {
	if err := dhbloom.ValidateParams(capacity, fpRate); err != nil {
		return nil, err
	}
	f := atomicbloom.NewWithEstimates(uint(capacity), fpRate)
	return funcSet{
		add:  func(key []byte) { f.Add(key) },
		test: func(key []byte) bool { return f.Test(key) },
	}, nil
}

// blobloomSet pre-hashes keys with xxhash since blobloom takes 64-bit hashes.
type blobloomSet struct {
	f *blobloom.Filter
}

func newBlobloom(capacity uint64, fpRate float64) (Set, error) {
	if err := dhbloom.ValidateParams(capacity, fpRate); err != nil {
		return nil, err
	}
	return blobloomSet{f: blobloom.NewOptimized(blobloom.Config{
		Capacity: capacity,
		FPRate:   fpRate,
	})}, nil
}

func (s blobloomSet) Add(key []byte)       { s.f.Add(xxhash.Sum64(key)) }
func (s blobloomSet) Test(key []byte) bool { return s.f.Has(xxhash.Sum64(key)) }

// kSeededFilter is the textbook layout: the same m and k as dhbloom, but k
// independent murmur3 hashes, one per seed, over a plain bitset.
type kSeededFilter struct {
	bits *bitset.BitSet
	m    uint64
	k    uint32
}

func newKSeeded(capacity uint64, fpRate float64) (Set, error) {
	m, k, err := dhbloom.OptimalParams(capacity, fpRate)
	if err != nil {
		return nil, err
	}
	return &kSeededFilter{bits: bitset.New(uint(m)), m: m, k: k}, nil
}

func (f *kSeededFilter) Add(key []byte) {
	for seed := range f.k {
		f.bits.Set(uint(murmur3.Sum64WithSeed(key, seed) % f.m))
	}
}

func (f *kSeededFilter) Test(key []byte) bool {
	for seed := range f.k {
		if !f.bits.Test(uint(murmur3.Sum64WithSeed(key, seed) % f.m)) {
			return false
		}
	}
	return true
}

// exactSet is a B-tree set of the raw keys. It never reports a false
// positive and anchors the comparison's memory and speed at the other end.
type exactSet struct {
	tr btree.Set[string]
}

func newExact(capacity uint64, fpRate float64) (Set, error) {
	if err := dhbloom.ValidateParams(capacity, fpRate); err != nil {
		return nil, err
	}
	return &exactSet{}, nil
}

func (s *exactSet) Add(key []byte)       { s.tr.Insert(string(key)) }
func (s *exactSet) Test(key []byte) bool { return s.tr.Contains(string(key)) }
