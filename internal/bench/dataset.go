package bench

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/axiomhq/hyperloglog"

	"github.com/jcalabro/dhbloom"
)

// Kind selects the element domain of a generated dataset.
type Kind string

const (
	// KindInteger draws the universe 0..2n-1.
	KindInteger Kind = "int"
	// KindString draws 16-character alphanumeric strings.
	KindString Kind = "string"
	// KindMixed draws a blend of integers, letter strings and (int, letter) tuples.
	KindMixed Kind = "mixed"
)

const (
	alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	letters      = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	stringKeyLen      = 16
	mixedStringKeyLen = 10
	mixedTupleMax     = 1000
)

var mixedTupleTags = [...]string{"a", "b", "c"}

var (
	// ErrUnknownKind is returned for a dataset kind outside AllKinds.
	ErrUnknownKind = errors.New("bench: unknown dataset kind")
	// ErrInvalidSize is returned when a dataset is requested with n <= 0.
	ErrInvalidSize = errors.New("bench: dataset size must be positive")
)

// AllKinds returns every dataset kind in reporting order.
func AllKinds() []Kind {
	return []Kind{KindInteger, KindString, KindMixed}
}

// ParseKind converts a name such as "int" into a Kind. Matching is case
// insensitive and also accepts "integer".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "integer":
		return KindInteger, nil
	case "string", "str":
		return KindString, nil
	case "mixed":
		return KindMixed, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Dataset is a pair of disjoint sequences drawn from one universe of 2n
// distinct keys. Members are inserted and queried as true positives;
// NonMembers are only queried, so every hit on them is a false positive.
//
// MemberKeys and NonMemberKeys hold the canonical encodings of the items
// (dhbloom.EncodeKey), computed once so every candidate sees identical bytes.
type Dataset struct {
	Kind Kind
	Seed uint64

	Members    []any
	NonMembers []any

	MemberKeys    [][]byte
	NonMemberKeys [][]byte
}

// Len returns n, the size of each half.
func (d *Dataset) Len() int {
	return len(d.Members)
}

// EstimatedDistinct returns a HyperLogLog estimate of the number of distinct
// keys across both halves. For a well-formed dataset it lands close to 2n.
func (d *Dataset) EstimatedDistinct() uint64 {
	sk := hyperloglog.New16()
	for _, k := range d.MemberKeys {
		sk.Insert(k)
	}
	for _, k := range d.NonMemberKeys {
		sk.Insert(k)
	}
	return sk.Estimate()
}

// GenerateDataset builds the member and non-member halves for kind. The
// output is a pure function of (kind, n, seed).
//
// A universe of 2n distinct keys is drawn first; duplicates (by canonical
// encoding) are redrawn. A seeded permutation then picks n members in
// permutation order, and the non-members are the remaining keys in universe
// order, so the halves are disjoint by construction.
func GenerateDataset(kind Kind, n int, seed uint64) (*Dataset, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, n)
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	var (
		items []any
		keys  [][]byte
		err   error
	)
	switch kind {
	case KindInteger:
		items, keys, err = integerUniverse(2 * n)
	case KindString:
		items, keys, err = drawUniverse(2*n, func(int) any {
			return randomString(rng, alphanumeric, stringKeyLen)
		})
	case KindMixed:
		items, keys, err = drawUniverse(2*n, func(i int) any {
			return mixedItem(rng, i)
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		Kind:          kind,
		Seed:          seed,
		Members:       make([]any, 0, n),
		NonMembers:    make([]any, 0, n),
		MemberKeys:    make([][]byte, 0, n),
		NonMemberKeys: make([][]byte, 0, n),
	}

	chosen := make([]bool, len(items))
	for _, idx := range rng.Perm(len(items))[:n] {
		chosen[idx] = true
		ds.Members = append(ds.Members, items[idx])
		ds.MemberKeys = append(ds.MemberKeys, keys[idx])
	}
	for i, item := range items {
		if chosen[i] {
			continue
		}
		ds.NonMembers = append(ds.NonMembers, item)
		ds.NonMemberKeys = append(ds.NonMemberKeys, keys[i])
	}

	return ds, nil
}

func integerUniverse(size int) ([]any, [][]byte, error) {
	items := make([]any, size)
	keys := make([][]byte, size)
	for i := range size {
		key, err := dhbloom.EncodeKey(i)
		if err != nil {
			return nil, nil, err
		}
		items[i] = i
		keys[i] = key
	}
	return items, keys, nil
}

// drawUniverse calls draw for each index until it yields a key not seen
// before. draw must be able to produce a fresh key eventually.
func drawUniverse(size int, draw func(i int) any) ([]any, [][]byte, error) {
	items := make([]any, size)
	keys := make([][]byte, size)
	seen := make(map[string]struct{}, size)

	for i := range size {
		for {
			item := draw(i)
			key, err := dhbloom.EncodeKey(item)
			if err != nil {
				return nil, nil, err
			}
			if _, dup := seen[string(key)]; dup {
				continue
			}
			seen[string(key)] = struct{}{}
			items[i] = item
			keys[i] = key
			break
		}
	}
	return items, keys, nil
}

// mixedItem draws the i'th mixed key: the index itself, a letter string, or a
// small tuple, each with equal probability. The index is unique per position,
// so a redraw always terminates.
func mixedItem(rng *rand.Rand, i int) any {
	switch rng.IntN(3) {
	case 0:
		return i
	case 1:
		return randomString(rng, letters, mixedStringKeyLen)
	default:
		return dhbloom.Tuple{rng.IntN(mixedTupleMax + 1), mixedTupleTags[rng.IntN(len(mixedTupleTags))]}
	}
}

func randomString(rng *rand.Rand, alphabet string, n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for range n {
		sb.WriteByte(alphabet[rng.IntN(len(alphabet))])
	}
	return sb.String()
}
