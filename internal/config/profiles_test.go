package config

import (
	"testing"
	"time"

	"yqhp/loadtest-engine/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfiles_AllValid(t *testing.T) {
	require.Equal(t, []string{"load", "soak", "spike", "stress"}, ProfileNames())
	for _, name := range ProfileNames() {
		t.Run(name, func(t *testing.T) {
			plan, err := Profile(name)
			require.NoError(t, err)
			assert.Equal(t, name, plan.Profile)
			require.NoError(t, NewValidator().Validate(plan))
		})
	}
}

func TestProfiles_Shapes(t *testing.T) {
	cases := []struct {
		name     string
		duration time.Duration
		maxVUs   int
		failRate string
	}{
		{"load", 16 * time.Minute, 100, "rate<0.01"},
		{"stress", 14 * time.Minute, 400, "rate<0.20"},
		{"spike", 160 * time.Second, 200, "rate<0.10"},
		{"soak", 130 * time.Minute, 50, "rate<0.01"},
	}
	infos := Profiles()
	require.Len(t, infos, len(cases))

	for _, tc := range cases {
		plan, err := Profile(tc.name)
		require.NoError(t, err)
		assert.Equal(t, tc.duration, plan.TotalDuration(), tc.name)
		assert.Equal(t, tc.maxVUs, plan.MaxTarget(), tc.name)
		assert.Equal(t, tc.failRate, plan.Thresholds[metrics.HTTPReqFailed][0].Expression, tc.name)
	}
}

func TestProfiles_Details(t *testing.T) {
	load, err := Profile("load")
	require.NoError(t, err)
	assert.Len(t, load.Scenarios, 4)
	assert.Len(t, load.Thresholds, 5)
	assert.Equal(t, "openclaw-vps", load.Tags["project"])

	soak, err := Profile("soak")
	require.NoError(t, err)
	assert.Equal(t, string(metrics.PolicyHDR), soak.Options.TrendPolicy)
	assert.Len(t, soak.Scenarios[0].Requests, 3)

	// Each call returns an independent copy.
	load.Stages[0].Target = 999
	again, err := Profile("load")
	require.NoError(t, err)
	assert.Equal(t, 10, again.Stages[0].Target)
}
