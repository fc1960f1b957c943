package dhbloom

import (
	"bytes"
	"errors"
	"math"
	"testing"
	"time"
)

func mustEncode(t *testing.T, v any) []byte {
	t.Helper()
	b, err := EncodeKey(v)
	if err != nil {
		t.Fatalf("EncodeKey(%#v) failed: %v", v, err)
	}
	return b
}

func TestEncodeKeyEqualValues(t *testing.T) {
	tests := []struct {
		name string
		a, b any
	}{
		{"int kinds", int(5), uint8(5)},
		{"int and int64", int(-3), int64(-3)},
		{"uint fits int64", uint64(math.MaxInt64), int64(math.MaxInt64)},
		{"negative zero", math.Copysign(0, -1), 0.0},
		{"float32 widening", float32(0.5), 0.5},
		{"NaN payloads", math.NaN(), math.Float64frombits(0x7ff0000000000042)},
		{"tuple and []any", Tuple{1, "a"}, []any{int64(1), "a"}},
		{"nested tuple", Tuple{Tuple{1}, "x"}, Tuple{[]any{uint32(1)}, "x"}},
		{"named int", userID(5), int(5)},
		{"named string", label("blue"), "blue"},
		{"named bool and float", Tuple{flag(true), ratio(0.25)}, Tuple{true, 0.25}},
		{"byte array", [4]byte{1, 2, 3, 4}, []byte{1, 2, 3, 4}},
		{"named byte slice", digest{9, 8}, []byte{9, 8}},
		{"int array", [3]int{1, 2, 3}, Tuple{1, 2, 3}},
		{"string slice", []string{"a", "b"}, Tuple{"a", "b"}},
		{"struct", point{X: 1, Y: -2}, point{X: 1, Y: -2}},
		{"struct with unexported fields", account{id: 7, name: "x"}, account{id: 7, name: "x"}},
		{"struct field kinds", point{X: 3}, struct{ A, B uint8 }{3, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if a, b := mustEncode(t, tt.a), mustEncode(t, tt.b); !bytes.Equal(a, b) {
				t.Errorf("encodings differ: %x vs %x", a, b)
			}
		})
	}
}

func TestEncodeKeyDistinctValues(t *testing.T) {
	tests := []struct {
		name string
		a, b any
	}{
		{"int vs string", 1, "1"},
		{"string vs bytes", "ab", []byte("ab")},
		{"int vs float", 1, 1.0},
		{"bool vs int", true, 1},
		{"large uint vs negative int", uint64(math.MaxUint64), int64(-1)},
		{"tuple arity", Tuple{1, 2}, Tuple{1, 2, 3}},
		{"tuple boundary", Tuple{"ab", "c"}, Tuple{"a", "bc"}},
		{"tuple vs element", Tuple{"a"}, "a"},
		{"empty string vs empty tuple", "", Tuple{}},
		{"named int value", userID(5), userID(6)},
		{"byte array contents", [16]byte{1}, [16]byte{2}},
		{"struct vs tuple", point{X: 1, Y: 2}, Tuple{1, 2}},
		{"struct fields", point{X: 1, Y: 2}, point{X: 2, Y: 1}},
		{"unexported field", account{id: 7, name: "x"}, account{id: 8, name: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if a, b := mustEncode(t, tt.a), mustEncode(t, tt.b); bytes.Equal(a, b) {
				t.Errorf("expected distinct encodings, both %x", a)
			}
		})
	}
}

func TestEncodeKeyLayout(t *testing.T) {
	got := mustEncode(t, 258)
	want := []byte{tagInt, 0, 0, 0, 0, 0, 0, 1, 2}
	if !bytes.Equal(got, want) {
		t.Errorf("int encoding = %x, want %x", got, want)
	}

	got = mustEncode(t, "hi")
	want = []byte{tagString, 2, 'h', 'i'}
	if !bytes.Equal(got, want) {
		t.Errorf("string encoding = %x, want %x", got, want)
	}
}

func TestEncodeKeyBinaryMarshaler(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := mustEncode(t, ts)
	b := mustEncode(t, ts.Add(0))
	if !bytes.Equal(a, b) {
		t.Error("expected equal times to encode identically")
	}
	if a[0] != tagBinary {
		t.Errorf("expected binary tag, got %x", a[0])
	}
}

type (
	userID int
	label  string
	flag   bool
	ratio  float32
	digest []byte
)

type point struct {
	X, Y int
}

type account struct {
	id   uint32
	name string
}

type failingMarshaler struct{}

func (failingMarshaler) MarshalBinary() ([]byte, error) {
	return nil, errors.New("boom")
}

func TestEncodeKeyErrors(t *testing.T) {
	bad := []any{
		nil,
		map[int]int{},
		make(chan struct{}),
		func() {},
		struct{ M map[string]int }{},
		new(int),
		[2]any{1, nil},
		Tuple{1, Tuple{nil}},
		failingMarshaler{},
	}

	for _, v := range bad {
		if _, err := EncodeKey(v); !errors.Is(err, ErrSerialization) {
			t.Errorf("EncodeKey(%T): expected ErrSerialization, got %v", v, err)
		}
	}
}

func TestEncodeKeyNestedMarshalerInStruct(t *testing.T) {
	type event struct {
		At   time.Time
		Kind string
	}
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	a := mustEncode(t, event{At: ts, Kind: "login"})
	b := mustEncode(t, event{At: ts.Add(0), Kind: "login"})
	if !bytes.Equal(a, b) {
		t.Error("expected equal structs to encode identically")
	}

	type wrapped struct{ F failingMarshaler }
	if _, err := EncodeKey(wrapped{}); !errors.Is(err, ErrSerialization) {
		t.Errorf("expected ErrSerialization from nested marshaler, got %v", err)
	}
}

func TestAppendKeyLeavesPrefixOnError(t *testing.T) {
	prefix := []byte("prefix")
	out, err := AppendKey(prefix, Tuple{1, "two", map[string]int{}})
	if !errors.Is(err, ErrSerialization) {
		t.Fatalf("expected ErrSerialization, got %v", err)
	}
	if !bytes.Equal(out, []byte("prefix")) {
		t.Errorf("expected prefix back unchanged, got %q", out)
	}

	out, err = AppendKey(prefix, 7)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out, []byte("prefix")) || len(out) != len(prefix)+9 {
		t.Errorf("unexpected append result %x", out)
	}
}
