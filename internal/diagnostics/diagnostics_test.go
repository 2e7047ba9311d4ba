package diagnostics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSummarize_RecommendsRelaxingLowSuccessRateStrategy(t *testing.T) {
	t0 := time.Unix(0, 0)
	c := New(t0)
	for i := 0; i < 25; i++ {
		c.RecordAttempt("ema_crossover")
	}
	c.RecordSuccess("ema_crossover", t0.Add(time.Minute)) // 1/25 = 4%, under the 5% floor

	report := c.Summarize(t0.Add(time.Hour))
	require.Contains(t, report.Recommendations, "consider relaxing thresholds for ema_crossover")
}

func TestSummarize_IgnoresLowSuccessRateBelowSampleFloor(t *testing.T) {
	t0 := time.Unix(0, 0)
	c := New(t0)
	for i := 0; i < 5; i++ {
		c.RecordAttempt("ema_crossover")
	}

	report := c.Summarize(t0.Add(time.Hour))
	require.NotContains(t, report.Recommendations, "consider relaxing thresholds for ema_crossover")
}

func TestSummarize_RecommendsInspectingDominantRejectionReason(t *testing.T) {
	t0 := time.Unix(0, 0)
	c := New(t0)
	for i := 0; i < 6; i++ {
		c.RecordRejection("confluence")
	}
	c.RecordRejection("duplicate")

	report := c.Summarize(t0.Add(time.Hour))
	require.Contains(t, report.Recommendations, "filter confluence is dominant; inspect threshold")
}

func TestSummarize_RecommendsBypassModeAfterOneHourNoSuccess(t *testing.T) {
	t0 := time.Unix(0, 0)
	c := New(t0)
	c.RecordAttempt("ema_crossover")

	report := c.Summarize(t0.Add(2 * time.Hour))
	require.Contains(t, report.Recommendations, "consider bypass mode for diagnosis")
}

func TestSummarize_NoRecommendationsWhenHealthy(t *testing.T) {
	t0 := time.Unix(0, 0)
	c := New(t0)
	c.RecordAttempt("ema_crossover")
	c.RecordSuccess("ema_crossover", t0.Add(time.Minute))

	report := c.Summarize(t0.Add(time.Minute))
	require.Empty(t, report.Recommendations)
}

func TestSummarize_ReportsRuntimeAndCounts(t *testing.T) {
	t0 := time.Unix(0, 0)
	c := New(t0)
	c.RecordAttempt("ema_crossover")
	c.RecordDataQuality("insufficient_history")

	report := c.Summarize(t0.Add(90 * time.Minute))
	require.Equal(t, 90*time.Minute, report.Runtime)
	require.Equal(t, 1, report.AttemptsByStrategy["ema_crossover"])
	require.Equal(t, 1, report.DataQualityByIssue["insufficient_history"])
	require.GreaterOrEqual(t, report.Goroutines, 1)
}
