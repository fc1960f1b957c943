package bench

import "time"

// MeasureInsertion adds every key to s in order and returns the wall-clock
// time of the whole pass.
func MeasureInsertion(s Set, keys [][]byte) time.Duration {
	start := time.Now()
	for _, key := range keys {
		s.Add(key)
	}
	return time.Since(start)
}

// MeasureQuery tests every key against s in order and returns the elapsed
// time and the number of positive answers.
func MeasureQuery(s Set, keys [][]byte) (time.Duration, int) {
	var found int
	start := time.Now()
	for _, key := range keys {
		if s.Test(key) {
			found++
		}
	}
	return time.Since(start), found
}

// MeasureFalsePositives tests every non-member key against s and counts the
// positives. The keys were never added, so each positive is a false positive.
func MeasureFalsePositives(s Set, nonMembers [][]byte) int {
	_, fp := MeasureQuery(s, nonMembers)
	return fp
}

// Throughput returns items per second, or 0 when no time elapsed.
func Throughput(items int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(items) / elapsed.Seconds()
}
