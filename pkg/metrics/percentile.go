package metrics

import (
	"fmt"
	"math"
	"sort"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// TrendPolicy selects how Trend metrics retain samples.
type TrendPolicy string

const (
	// PolicyExact retains every sample; percentiles use the nearest-rank method.
	PolicyExact TrendPolicy = "exact"
	// PolicyHDR keeps an HDR histogram with bounded memory for long soak runs.
	PolicyHDR TrendPolicy = "hdr"
)

const (
	// hdr values are recorded in microseconds.
	hdrMinValue = 1
	hdrMaxValue = 3_600_000_000
	hdrSigFigs  = 3
)

// ParsePolicy maps a config string to a TrendPolicy; empty means exact.
func ParsePolicy(s string) (TrendPolicy, error) {
	switch TrendPolicy(s) {
	case "", PolicyExact:
		return PolicyExact, nil
	case PolicyHDR:
		return PolicyHDR, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

type sampleStore interface {
	add(v float64)
	// freeze returns a read-only copy independent of later writes.
	freeze() quantiler
}

type quantiler interface {
	prepare()
	percentile(p float64) float64
}

func newStore(policy TrendPolicy) sampleStore {
	if policy == PolicyHDR {
		return &hdrStore{h: hdrhistogram.New(hdrMinValue, hdrMaxValue, hdrSigFigs)}
	}
	return &exactStore{}
}

type exactStore struct {
	values []float64
}

func (s *exactStore) add(v float64) {
	s.values = append(s.values, v)
}

func (s *exactStore) freeze() quantiler {
	cp := make([]float64, len(s.values))
	copy(cp, s.values)
	return &sortedSamples{values: cp}
}

type sortedSamples struct {
	values []float64
	sorted bool
}

func (s *sortedSamples) prepare() {
	if !s.sorted {
		sort.Float64s(s.values)
		s.sorted = true
	}
}

// percentile uses the nearest-rank method: the smallest sample such that at
// least p percent of the samples are less than or equal to it.
func (s *sortedSamples) percentile(p float64) float64 {
	s.prepare()
	return NearestRank(s.values, p)
}

// NearestRank returns the p-th percentile of an ascending slice.
func NearestRank(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}
	rank := int(math.Ceil(p / 100 * float64(n)))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

type hdrStore struct {
	h *hdrhistogram.Histogram
}

func (s *hdrStore) add(v float64) {
	us := int64(math.Round(v * 1000))
	if us < hdrMinValue {
		us = hdrMinValue
	}
	if us > hdrMaxValue {
		us = hdrMaxValue
	}
	_ = s.h.RecordValue(us)
}

func (s *hdrStore) freeze() quantiler {
	return &hdrQuantiles{h: hdrhistogram.Import(s.h.Export())}
}

type hdrQuantiles struct {
	h *hdrhistogram.Histogram
}

func (q *hdrQuantiles) prepare() {}

func (q *hdrQuantiles) percentile(p float64) float64 {
	if q.h.TotalCount() == 0 {
		return 0
	}
	return float64(q.h.ValueAtQuantile(p)) / 1000
}
