package bench

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcalabro/dhbloom"
)

// countingSet records calls and answers from a fixed set of keys.
type countingSet struct {
	added  [][]byte
	tested int
	known  map[string]bool
}

func (s *countingSet) Add(key []byte) {
	s.added = append(s.added, key)
	s.known[string(key)] = true
}

func (s *countingSet) Test(key []byte) bool {
	s.tested++
	return s.known[string(key)]
}

func TestMeasurePasses(t *testing.T) {
	ds, err := GenerateDataset(KindInteger, 100, 5)
	require.NoError(t, err)

	s := &countingSet{known: map[string]bool{}}

	elapsed := MeasureInsertion(s, ds.MemberKeys)
	assert.GreaterOrEqual(t, elapsed, time.Duration(0))
	require.Equal(t, ds.MemberKeys, s.added, "insertion must follow dataset order")

	_, found := MeasureQuery(s, ds.MemberKeys)
	assert.Equal(t, 100, found)

	assert.Equal(t, 0, MeasureFalsePositives(s, ds.NonMemberKeys))
	assert.Equal(t, 200, s.tested)
}

func TestThroughput(t *testing.T) {
	assert.InDelta(t, 1000, Throughput(500, 500*time.Millisecond), 1e-9)
	assert.Zero(t, Throughput(500, 0))
}

func TestCandidatesNoFalseNegatives(t *testing.T) {
	ds, err := GenerateDataset(KindMixed, 5000, 42)
	require.NoError(t, err)

	for _, c := range DefaultCandidates() {
		t.Run(c.Name, func(t *testing.T) {
			s, err := c.New(uint64(ds.Len()), 0.01)
			require.NoError(t, err)

			MeasureInsertion(s, ds.MemberKeys)
			_, found := MeasureQuery(s, ds.MemberKeys)
			assert.Equal(t, ds.Len(), found)

			fp := MeasureFalsePositives(s, ds.NonMemberKeys)
			if c.Name == "exact" {
				assert.Zero(t, fp)
				return
			}
			// expected 50; generous statistical bound
			assert.Less(t, fp, 150, "false positives for %s", c.Name)
		})
	}
}

func TestCandidatesRejectInvalidParams(t *testing.T) {
	for _, c := range DefaultCandidates() {
		_, err := c.New(0, 0.01)
		assert.ErrorIs(t, err, dhbloom.ErrInvalidParameter, c.Name)
		_, err = c.New(100, 1.5)
		assert.ErrorIs(t, err, dhbloom.ErrInvalidParameter, c.Name)
	}
}

func TestSelectCandidates(t *testing.T) {
	all, err := SelectCandidates(nil)
	require.NoError(t, err)
	assert.Len(t, all, len(DefaultCandidates()))

	got, err := SelectCandidates([]string{"exact", "dhbloom"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "exact", got[0].Name)
	assert.Equal(t, "dhbloom", got[1].Name)

	_, err = SelectCandidates([]string{"dhbloom", "nope"})
	assert.ErrorIs(t, err, ErrUnknownCandidate)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.N = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidSize)

	bad = cfg
	bad.FPRate = 1
	assert.ErrorIs(t, bad.Validate(), dhbloom.ErrInvalidParameter)

	bad = cfg
	bad.Kinds = nil
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Candidates = nil
	assert.Error(t, bad.Validate())
}

func TestConfigEffectiveCapacity(t *testing.T) {
	cfg := Config{N: 10}
	assert.EqualValues(t, 10, cfg.EffectiveCapacity())
	cfg.Capacity = 25
	assert.EqualValues(t, 25, cfg.EffectiveCapacity())
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.N = 2000
	cfg.Capacity = 0
	cfg.FPRate = 0.01
	return cfg
}

func TestRun(t *testing.T) {
	cfg := smallConfig()

	reports, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Len(t, reports, len(AllKinds()))

	for i, r := range reports {
		assert.Equal(t, cfg.Kinds[i], r.Kind)
		assert.Equal(t, cfg.N, r.N)
		assert.InDelta(t, 20, r.ExpectedFalsePositives, 1e-9)
		assert.NoError(t, r.Err)
		assert.InEpsilon(t, 2*cfg.N, r.EstimatedDistinct, 0.05)

		require.Len(t, r.Results, len(cfg.Candidates))
		for _, res := range r.Results {
			assert.NoError(t, res.Err, res.Candidate)
			assert.Equal(t, cfg.N, res.Found, "false negatives from %s on %s", res.Candidate, r.Kind)
		}
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	cfg := smallConfig()
	cfg.Kinds = []Kind{KindInteger, Kind("bogus"), KindString}
	cfg.Candidates = []Candidate{
		{Name: "panics", New: func(uint64, float64) (Set, error) { return panicSet{}, nil }},
		{Name: "refuses", New: func(uint64, float64) (Set, error) { return nil, errors.New("no thanks") }},
		DefaultCandidates()[0],
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	reports, err := Run(context.Background(), cfg, logger)
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.ErrorIs(t, reports[1].Err, ErrUnknownKind)
	assert.Empty(t, reports[1].Results)

	for _, r := range []KindReport{reports[0], reports[2]} {
		require.Len(t, r.Results, 3)
		assert.ErrorIs(t, r.Results[0].Err, ErrCandidatePanic)
		assert.ErrorContains(t, r.Results[1].Err, "no thanks")
		assert.NoError(t, r.Results[2].Err)
		assert.Equal(t, cfg.N, r.Results[2].Found)
	}

	assert.Contains(t, logs.String(), "candidate failed")
	assert.Contains(t, logs.String(), "dataset generation failed")
}

type panicSet struct{}

func (panicSet) Add([]byte)       { panic("broken filter") }
func (panicSet) Test([]byte) bool { return false }

func TestRunInvalidConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.N = -1
	_, err := Run(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, err := Run(ctx, smallConfig(), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, reports)
}

func TestRunSameDatasetAcrossCandidates(t *testing.T) {
	cfg := smallConfig()
	cfg.Kinds = []Kind{KindString}

	var seen [][][]byte
	record := func(uint64, float64) (Set, error) {
		s := &countingSet{known: map[string]bool{}}
		seen = append(seen, nil)
		idx := len(seen) - 1
		return recordingSet{countingSet: s, onAdd: func(k []byte) { seen[idx] = append(seen[idx], k) }}, nil
	}
	cfg.Candidates = []Candidate{{Name: "a", New: record}, {Name: "b", New: record}}

	_, err := Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, seen[0], seen[1])
}

type recordingSet struct {
	*countingSet
	onAdd func([]byte)
}

func (r recordingSet) Add(key []byte) {
	r.onAdd(key)
	r.countingSet.Add(key)
}
