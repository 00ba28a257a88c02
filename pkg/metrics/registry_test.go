package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nanValue() float64 { return math.NaN() }

func TestRegistry_SameNameSameMetric(t *testing.T) {
	reg := NewRegistry(PolicyExact)
	a := reg.Counter("x")
	b := reg.Counter("x")
	assert.Same(t, a, b)
}

func TestRegistry_TypeMismatch(t *testing.T) {
	reg := NewRegistry(PolicyExact)
	reg.Counter("x")

	_, err := reg.Register("x", TypeTrend)
	assert.ErrorIs(t, err, ErrTypeMismatch)
	assert.Panics(t, func() { reg.Rate("x") })
}

func TestRegistry_EmptyName(t *testing.T) {
	reg := NewRegistry(PolicyExact)
	_, err := reg.Register("", TypeCounter)
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry(PolicyExact)
	reg.Trend("b")
	reg.Counter("a")
	assert.Equal(t, []string{"a", "b"}, reg.Names())
}

func TestRegisterBuiltins(t *testing.T) {
	reg := NewRegistry(PolicyExact)
	RegisterBuiltins(reg)

	m, ok := reg.Get(HTTPReqFailed)
	require.True(t, ok)
	assert.Equal(t, TypeRate, m.Type())

	typ, ok := BuiltinType(HTTPReqDuration)
	require.True(t, ok)
	assert.Equal(t, TypeTrend, typ)

	_, ok = BuiltinType("nope")
	assert.False(t, ok)
}

func TestRecorder_WritesSubmetric(t *testing.T) {
	reg := NewRegistry(PolicyExact)
	rec := NewRecorder(reg, Tags{TagScenario: "health_check"})

	rec.Add(HTTPReqs, 2)
	rec.Rate(HTTPReqFailed, true)
	rec.Trend(HTTPReqDuration, 12)

	snap := reg.Snapshot()
	assert.Equal(t, 2.0, snap.Metrics[HTTPReqs].Values[StatCount])

	sub, ok := snap.Get("http_reqs{scenario:health_check}")
	require.True(t, ok)
	assert.Equal(t, 2.0, sub.Values[StatCount])
	assert.Equal(t, HTTPReqs, sub.Base)
	assert.True(t, sub.IsSubmetric())
	assert.Equal(t, "health_check", sub.Tags[TagScenario])

	assert.False(t, snap.Metrics[HTTPReqs].IsSubmetric())
}

func TestRecorder_TypeMismatchDropsSample(t *testing.T) {
	reg := NewRegistry(PolicyExact)
	reg.Counter("x")
	rec := NewRecorder(reg, nil)

	assert.NotPanics(t, func() { rec.Trend("x", 1) })
	assert.Equal(t, int64(0), reg.Counter("x").Value())
}

func TestSubmetricName_RoundTrip(t *testing.T) {
	name := SubmetricName("http_req_duration", Tags{"scenario": "a", "env": "prod"})
	assert.Equal(t, "http_req_duration{env:prod,scenario:a}", name)

	base, tags := SplitSubmetricName(name)
	assert.Equal(t, "http_req_duration", base)
	assert.Equal(t, Tags{"scenario": "a", "env": "prod"}, tags)

	base, tags = SplitSubmetricName("plain")
	assert.Equal(t, "plain", base)
	assert.Nil(t, tags)
}

func TestValidStat(t *testing.T) {
	assert.True(t, ValidStat(TypeTrend, "p(95)"))
	assert.True(t, ValidStat(TypeTrend, "avg"))
	assert.False(t, ValidStat(TypeTrend, "rate"))
	assert.True(t, ValidStat(TypeRate, "rate"))
	assert.False(t, ValidStat(TypeRate, "p(95)"))
	assert.True(t, ValidStat(TypeCounter, "count"))
	assert.False(t, ValidStat(TypeCounter, "avg"))
	assert.False(t, ValidStat(TypeTrend, "p(101)"))
}
