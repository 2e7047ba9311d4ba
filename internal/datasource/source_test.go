package datasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/signalforge/scanner/internal/model"
)

type fakeAdapter struct {
	name    string
	fail    bool
	buf     model.Buffer
	fetched int
}

func (f *fakeAdapter) Name() string                     { return f.name }
func (f *fakeAdapter) Connect(ctx context.Context) error { return nil }
func (f *fakeAdapter) Close() error                      { return nil }
func (f *fakeAdapter) FetchCandles(ctx context.Context, symbol string, tf model.Timeframe, count int) (model.Buffer, error) {
	f.fetched++
	if f.fail {
		return model.Buffer{}, &ProviderError{Provider: f.name, Kind: ErrUnavailable, Err: errors.New("down")}
	}
	return f.buf, nil
}

func freshBuffer() model.Buffer {
	return model.Buffer{
		Symbol:    "BTCUSDT",
		Timeframe: model.TF5m,
		Candles: []model.Candle{
			{TS: time.Now().UTC(), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10},
		},
	}
}

func TestSource_FallsBackToSecondAdapter(t *testing.T) {
	primary := &fakeAdapter{name: "primary", fail: true}
	secondary := &fakeAdapter{name: "secondary", buf: freshBuffer()}

	src := NewSource([]Adapter{primary, secondary}, 1, time.Minute, zerolog.Nop())

	buf, fresh, err := src.Fetch(context.Background(), "BTCUSDT", model.TF5m, 10)
	require.NoError(t, err)
	require.True(t, fresh)
	require.Equal(t, "BTCUSDT", buf.Symbol)
	require.Equal(t, 1, primary.fetched)
	require.Equal(t, 1, secondary.fetched)
}

func TestSource_SkipsOpenBreaker(t *testing.T) {
	primary := &fakeAdapter{name: "primary", fail: true}
	secondary := &fakeAdapter{name: "secondary", buf: freshBuffer()}

	src := NewSource([]Adapter{primary, secondary}, 1, time.Hour, zerolog.Nop())

	_, _, err := src.Fetch(context.Background(), "BTCUSDT", model.TF5m, 10)
	require.NoError(t, err)
	require.Equal(t, 1, primary.fetched)

	// Second fetch: primary's breaker is open (1 failure tripped it), so
	// it should be skipped entirely without a second call.
	_, _, err = src.Fetch(context.Background(), "BTCUSDT", model.TF5m, 10)
	require.NoError(t, err)
	require.Equal(t, 1, primary.fetched, "breaker-open adapter should not be retried")
	require.Equal(t, 2, secondary.fetched)
}

func TestSource_AllProvidersFail(t *testing.T) {
	primary := &fakeAdapter{name: "primary", fail: true}
	secondary := &fakeAdapter{name: "secondary", fail: true}

	src := NewSource([]Adapter{primary, secondary}, 5, time.Minute, zerolog.Nop())

	_, _, err := src.Fetch(context.Background(), "BTCUSDT", model.TF5m, 10)
	require.Error(t, err)
}

func TestSource_OnFailoverCallback(t *testing.T) {
	primary := &fakeAdapter{name: "primary", fail: true}
	secondary := &fakeAdapter{name: "secondary", buf: freshBuffer()}

	src := NewSource([]Adapter{primary, secondary}, 5, time.Minute, zerolog.Nop())

	var gotFrom, gotTo string
	src.OnFailover(func(from, to string) {
		gotFrom, gotTo = from, to
	})

	_, _, err := src.Fetch(context.Background(), "BTCUSDT", model.TF5m, 10)
	require.NoError(t, err)
	require.Equal(t, "primary", gotFrom)
	require.Equal(t, "secondary", gotTo)
}

func TestClassOf(t *testing.T) {
	require.Equal(t, ClassCrypto, ClassOf("BTCUSDT"))
	require.Equal(t, ClassForex, ClassOf("EURUSD"))
	require.Equal(t, ClassIndex, ClassOf("US30"))
	require.Equal(t, ClassMetal, ClassOf("XAUUSD"))
	require.Equal(t, ClassOther, ClassOf("UNKNOWNSYM"))
}
