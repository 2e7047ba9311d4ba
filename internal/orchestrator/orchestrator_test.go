package orchestrator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/signalforge/scanner/internal/model"
	"github.com/signalforge/scanner/internal/strategy"
)

type stubDetector struct {
	name strategy.Name
	sig  *model.Signal
	err  error
}

func (s stubDetector) Name() strategy.Name { return s.name }
func (s stubDetector) Detect(strategy.Input) (*model.Signal, error) {
	return s.sig, s.err
}

func longSig(strat string, confidence int) *model.Signal {
	return &model.Signal{StrategyName: strat, Direction: model.Long, Confidence: confidence}
}

func shortSig(strat string, confidence int) *model.Signal {
	return &model.Signal{StrategyName: strat, Direction: model.Short, Confidence: confidence}
}

func TestRun_SingleSignalWins(t *testing.T) {
	dets := []strategy.Detector{
		stubDetector{name: strategy.EMACrossover, sig: longSig("ema_crossover", 3)},
	}
	sig, conflicts, errs := Run(dets, strategy.Input{})
	require.NotNil(t, sig)
	require.Empty(t, conflicts)
	require.Empty(t, errs)
	require.Equal(t, "ema_crossover", sig.StrategyName)
}

func TestRun_HigherConfidenceWinsOppositeDirections(t *testing.T) {
	dets := []strategy.Detector{
		stubDetector{name: strategy.EMACrossover, sig: longSig("ema_crossover", 3)},
		stubDetector{name: strategy.MeanReversion, sig: shortSig("mean_reversion", 4)},
	}
	sig, conflicts, _ := Run(dets, strategy.Input{})
	require.NotNil(t, sig)
	require.Empty(t, conflicts)
	require.Equal(t, "mean_reversion", sig.StrategyName)
}

func TestRun_TieDiscardsBothAndRecordsConflict(t *testing.T) {
	dets := []strategy.Detector{
		stubDetector{name: strategy.EMACrossover, sig: longSig("ema_crossover", 4)},
		stubDetector{name: strategy.MeanReversion, sig: shortSig("mean_reversion", 4)},
	}
	sig, conflicts, _ := Run(dets, strategy.Input{})
	require.Nil(t, sig)
	require.Len(t, conflicts, 1)
	require.Equal(t, 4, conflicts[0].Confidence)
}

func TestRun_FirstDetectorWinsSameDirectionEvenWithLowerConfidence(t *testing.T) {
	dets := []strategy.Detector{
		stubDetector{name: strategy.EMACrossover, sig: longSig("ema_crossover", 2)},
		stubDetector{name: strategy.TrendAlignment, sig: longSig("trend_alignment", 5)},
	}
	sig, conflicts, _ := Run(dets, strategy.Input{})
	require.NotNil(t, sig)
	require.Empty(t, conflicts)
	require.Equal(t, "ema_crossover", sig.StrategyName)
}

type panickingDetector struct {
	name strategy.Name
}

func (p panickingDetector) Name() strategy.Name { return p.name }
func (p panickingDetector) Detect(strategy.Input) (*model.Signal, error) {
	panic("degenerate price ordering")
}

func TestRun_DetectorPanicIsIsolatedAsAttemptErr(t *testing.T) {
	dets := []strategy.Detector{
		panickingDetector{name: strategy.EMACrossover},
		stubDetector{name: strategy.MeanReversion, sig: longSig("mean_reversion", 3)},
	}
	sig, _, errs := Run(dets, strategy.Input{})
	require.NotNil(t, sig)
	require.Equal(t, "mean_reversion", sig.StrategyName)
	require.Len(t, errs, 1)
	require.Equal(t, string(strategy.EMACrossover), errs[0].Strategy)
	require.ErrorContains(t, errs[0].Err, "panicked")
}

func TestRun_DetectorErrorDoesNotAbortTick(t *testing.T) {
	dets := []strategy.Detector{
		stubDetector{name: strategy.EMACrossover, err: errors.New("boom")},
		stubDetector{name: strategy.MeanReversion, sig: longSig("mean_reversion", 3)},
	}
	sig, _, errs := Run(dets, strategy.Input{})
	require.NotNil(t, sig)
	require.Len(t, errs, 1)
	require.Equal(t, "ema_crossover", errs[0].Strategy)
}

func TestSelect_PrefersRegimeTableOrder(t *testing.T) {
	out := Select("ranging", nil)
	require.NotEmpty(t, out)
	require.Equal(t, strategy.SRBounce, out[0].Name())
}

func TestSelect_RespectsEnabledFilter(t *testing.T) {
	enabled := map[strategy.Name]bool{strategy.SRBounce: true}
	out := Select("ranging", enabled)
	require.Len(t, out, 1)
	require.Equal(t, strategy.SRBounce, out[0].Name())
}
