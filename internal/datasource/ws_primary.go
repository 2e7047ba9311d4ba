package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/signalforge/scanner/internal/model"
)

// PrimaryWSAdapter streams OHLCV candles over a kline WebSocket feed
// using nhooyr.io/websocket, grounded on aristath-sentinel's
// MarketStatusWebSocket client (connect, background read loop, cached
// last-known-good state per key, reconnect-on-drop).
type PrimaryWSAdapter struct {
	baseURL string
	log     zerolog.Logger

	mu      sync.RWMutex
	conn    *websocket.Conn
	cache   map[string]model.Buffer // key: Buffer.Key()
	cacheMu sync.RWMutex

	connCtx    context.Context
	cancelFunc context.CancelFunc
}

type klineMessage struct {
	Symbol    string  `json:"symbol"`
	TF        string  `json:"tf"`
	TS        int64   `json:"ts"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// NewPrimaryWSAdapter builds an adapter for the given base WebSocket URL.
func NewPrimaryWSAdapter(baseURL string, log zerolog.Logger) *PrimaryWSAdapter {
	return &PrimaryWSAdapter{
		baseURL: baseURL,
		log:     log.With().Str("component", "datasource_primary_ws").Logger(),
		cache:   make(map[string]model.Buffer),
	}
}

func (a *PrimaryWSAdapter) Name() string { return "primary_ws" }

// Connect dials the WebSocket and starts a background read loop caching
// incoming candles keyed by symbol+timeframe.
func (a *PrimaryWSAdapter) Connect(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, a.baseURL, nil)
	if err != nil {
		return &ProviderError{Provider: a.Name(), Kind: ErrConnect, Err: err}
	}

	connCtx, cancelFunc := context.WithCancel(context.Background())

	a.mu.Lock()
	a.conn = conn
	a.connCtx = connCtx
	a.cancelFunc = cancelFunc
	a.mu.Unlock()

	go a.readLoop(connCtx, conn)
	return nil
}

func (a *PrimaryWSAdapter) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var msg klineMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			a.log.Warn().Err(err).Msg("datasource: primary ws read failed, stopping reader")
			return
		}
		a.ingest(msg)
	}
}

func (a *PrimaryWSAdapter) ingest(msg klineMessage) {
	c := model.Candle{
		TS:     time.Unix(msg.TS, 0).UTC(),
		Open:   msg.Open,
		High:   msg.High,
		Low:    msg.Low,
		Close:  msg.Close,
		Volume: msg.Volume,
	}

	key := msg.Symbol + ":" + msg.TF
	a.cacheMu.Lock()
	buf := a.cache[key]
	buf.Symbol = msg.Symbol
	buf.Timeframe = model.Timeframe(msg.TF)
	buf.Candles = append(buf.Candles, c)
	const maxCached = 1000
	if len(buf.Candles) > maxCached {
		buf.Candles = buf.Candles[len(buf.Candles)-maxCached:]
	}
	a.cache[key] = buf
	a.cacheMu.Unlock()
}

// FetchCandles returns the last count cached candles for (symbol, tf).
func (a *PrimaryWSAdapter) FetchCandles(ctx context.Context, symbol string, tf model.Timeframe, count int) (model.Buffer, error) {
	key := symbol + ":" + string(tf)
	a.cacheMu.RLock()
	buf, ok := a.cache[key]
	a.cacheMu.RUnlock()
	if !ok || len(buf.Candles) == 0 {
		return model.Buffer{}, &ProviderError{Provider: a.Name(), Kind: ErrUnavailable, Err: fmt.Errorf("no cached candles for %s", key)}
	}
	if len(buf.Candles) > count {
		buf.Candles = buf.Candles[len(buf.Candles)-count:]
	}
	return buf, nil
}

func (a *PrimaryWSAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	if a.conn != nil {
		return a.conn.Close(websocket.StatusNormalClosure, "shutdown")
	}
	return nil
}
