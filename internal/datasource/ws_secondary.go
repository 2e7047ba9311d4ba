package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/signalforge/scanner/internal/model"
)

// SecondaryWSAdapter is the fallback WebSocket provider, using
// gorilla/websocket the way the teacher's internal/gateway client does
// (dial, read pump into a cache, ping/pong keepalive).
type SecondaryWSAdapter struct {
	url string
	log zerolog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
	done chan struct{}

	cacheMu sync.RWMutex
	cache   map[string]model.Buffer
}

// NewSecondaryWSAdapter builds the secondary provider adapter.
func NewSecondaryWSAdapter(url string, log zerolog.Logger) *SecondaryWSAdapter {
	return &SecondaryWSAdapter{
		url:   url,
		log:   log.With().Str("component", "datasource_secondary_ws").Logger(),
		cache: make(map[string]model.Buffer),
	}
}

func (a *SecondaryWSAdapter) Name() string { return "secondary_ws" }

func (a *SecondaryWSAdapter) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 30 * time.Second}
	conn, _, err := dialer.DialContext(ctx, a.url, nil)
	if err != nil {
		return &ProviderError{Provider: a.Name(), Kind: ErrConnect, Err: err}
	}

	a.mu.Lock()
	a.conn = conn
	a.done = make(chan struct{})
	a.mu.Unlock()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go a.readPump(conn, a.done)
	go a.pingLoop(conn, a.done)
	return nil
}

func (a *SecondaryWSAdapter) readPump(conn *websocket.Conn, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			a.log.Warn().Err(err).Msg("datasource: secondary ws read failed, stopping reader")
			return
		}
		var msg klineMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		a.ingest(msg)
	}
}

func (a *SecondaryWSAdapter) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (a *SecondaryWSAdapter) ingest(msg klineMessage) {
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

func (a *SecondaryWSAdapter) FetchCandles(ctx context.Context, symbol string, tf model.Timeframe, count int) (model.Buffer, error) {
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

func (a *SecondaryWSAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.done != nil {
		close(a.done)
	}
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}
