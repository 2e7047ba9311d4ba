package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/signalforge/scanner/internal/model"
)

func TestFindSwings_DetectsFractal(t *testing.T) {
	candles := make([]model.EnrichedCandle, 0, 8)
	prices := []float64{100, 101, 105, 101, 100, 95, 96, 97}
	for i, p := range prices {
		c := model.NaNCandle(model.Candle{
			TS: time.Unix(int64(i)*60, 0), Open: p, High: p + 1, Low: p - 1, Close: p,
		})
		candles = append(candles, c)
	}
	swings := FindSwings(candles)
	require.NotEmpty(t, swings)

	var foundHigh, foundLow bool
	for _, s := range swings {
		if s.High && s.Index == 2 {
			foundHigh = true
		}
		if !s.High && s.Index == 5 {
			foundLow = true
		}
	}
	require.True(t, foundHigh)
	require.True(t, foundLow)
}

func TestFibRetracementLevels_OrderedDescending(t *testing.T) {
	levels := FibRetracementLevels(100, 200)
	require.Len(t, levels, 5)
	for i := 1; i < len(levels); i++ {
		require.Less(t, levels[i].Price, levels[i-1].Price)
	}
	nearest, dist := NearestFibLevel(levels, 176.2)
	require.Equal(t, 0.236, nearest.Ratio)
	require.InDelta(t, 0, dist, 0.5)
}

func TestClusterLevels_MergesWithinTolerance(t *testing.T) {
	swings := []SwingPoint{
		{Index: 1, Price: 100.0, High: true},
		{Index: 3, Price: 100.1, High: true},
		{Index: 5, Price: 120.0, High: false},
	}
	levels := ClusterLevels(swings, 0.01)
	require.Len(t, levels, 2)

	var merged Level
	for _, l := range levels {
		if l.Touches == 2 {
			merged = l
		}
	}
	require.InDelta(t, 100.05, merged.Price, 0.01)
}

func TestNearestRoundNumber_DisabledWhenUnitZero(t *testing.T) {
	_, _, ok := NearestRoundNumber(101, 0)
	require.False(t, ok)

	level, dist, ok := NearestRoundNumber(101, 10)
	require.True(t, ok)
	require.Equal(t, 100.0, level)
	require.InDelta(t, 0.0099, dist, 0.001)
}

func TestRegistry_AllTwelveDetectorsRegistered(t *testing.T) {
	detectors := Registry()
	require.Len(t, detectors, len(All))
	seen := map[Name]bool{}
	for _, d := range detectors {
		seen[d.Name()] = true
	}
	for _, n := range All {
		require.True(t, seen[n], "missing detector %s", n)
	}
}

func TestSessionOf(t *testing.T) {
	require.Equal(t, sessionScalp, sessionOf(model.TF5m))
	require.Equal(t, sessionDay, sessionOf(model.TF1h))
	require.Equal(t, sessionSwing, sessionOf(model.TF1d))
}

func TestCloudWidth(t *testing.T) {
	c := model.NaNCandle(model.Candle{})
	c.EMAFast, c.EMASlow, c.EMATrend = 100, 98, 95
	require.InDelta(t, 5, cloudWidth(c), 1e-9)
}

func TestDayWindow_FindsPriorCompletedSession(t *testing.T) {
	base := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	var candles []model.Candle
	for h := 0; h < 30; h++ {
		candles = append(candles, model.Candle{TS: base.Add(time.Duration(h) * time.Hour), Close: 100})
	}
	start, end, ok := dayWindow(candles, 0, 8)
	require.True(t, ok)
	require.Equal(t, 0, start)
	require.Equal(t, 8, end)
}
