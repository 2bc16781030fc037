package okxws

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"AutoTrader/internal/domain/models"
	drepo "AutoTrader/internal/domain/repository"
	"AutoTrader/internal/service/exchange"
	applogger "AutoTrader/pkg/logger"

	"github.com/gorilla/websocket"
)

// Client implements a PriceStream over the OKX public tickers channel.
type Client struct {
	url            string
	quote          string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	l              *applogger.Logger

	mu        sync.Mutex // guards conn writes and pairs
	conn      *websocket.Conn
	pairs     []string
	connected atomic.Bool
}

// New creates a new OKX PriceStream.
func New(url, quote string, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) drepo.PriceStream {
	if l == nil {
		l = applogger.Nop()
	}
	return &Client{
		url:            url,
		quote:          quote,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		l:              l.With("okxws"),
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("okx connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.connected.Store(true)
	c.l.Info("connected", applogger.String("url", c.url))
	return nil
}

type subArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type subRequest struct {
	Op   string   `json:"op"`
	Args []subArg `json:"args"`
}

// Subscribe asks for the tickers of pairs. They are remembered for Reconnect.
func (c *Client) Subscribe(ctx context.Context, pairs []string) error {
	req := subRequest{Op: "subscribe"}
	for _, p := range pairs {
		base, quote := exchange.SplitPair(p, c.quote)
		req.Args = append(req.Args, subArg{Channel: "tickers", InstID: base + "-" + quote})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected.Load() {
		return fmt.Errorf("okx not connected")
	}
	c.pairs = append(c.pairs[:0], pairs...)
	if len(req.Args) == 0 {
		return nil
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("okx subscribe: %w", err)
	}
	c.l.Info("subscribed", applogger.Int("pairs", len(req.Args)))
	return nil
}

type okxTicker struct {
	InstID string `json:"instId"`
	Last   string `json:"last"`
	Ts     string `json:"ts"` // ms
}

type okxMessage struct {
	Event string      `json:"event"`
	Code  string      `json:"code"`
	Msg   string      `json:"msg"`
	Arg   subArg      `json:"arg"`
	Data  []okxTicker `json:"data"`
}

// Read streams ticks and errors until ctx ends or the connection fails.
func (c *Client) Read(ctx context.Context) (<-chan models.PriceTick, <-chan error) {
	ticks := make(chan models.PriceTick, 1024)
	errs := make(chan error, 1)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	done := make(chan struct{})

	// OKX drops idle connections after 30s; a text "ping" keeps it alive
	go func() {
		if c.pingInterval <= 0 {
			return
		}
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				c.mu.Lock()
				if c.conn == conn && conn != nil {
					_ = conn.WriteMessage(websocket.TextMessage, []byte("ping"))
				}
				c.mu.Unlock()
			}
		}
	}()

	go func() {
		<-ctx.Done()
		select {
		case <-done:
		default:
			if conn != nil {
				_ = conn.SetReadDeadline(time.Now())
			}
		}
	}()

	go func() {
		defer close(done)
		defer close(ticks)
		defer close(errs)
		if conn == nil {
			errs <- fmt.Errorf("okx conn nil")
			return
		}
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.connected.Store(false)
				errs <- fmt.Errorf("okx read: %w", err)
				return
			}
			if string(b) == "pong" {
				continue
			}
			var m okxMessage
			if err := json.Unmarshal(b, &m); err != nil {
				continue
			}
			if m.Event == "error" {
				c.l.Warn("okx error event", applogger.String("code", m.Code), applogger.String("msg", m.Msg))
				continue
			}
			if m.Arg.Channel != "tickers" {
				continue
			}
			for _, d := range m.Data {
				tick, ok := c.toTick(d)
				if !ok {
					continue
				}
				select {
				case ticks <- tick:
				default:
					// drop on backpressure, the next tick supersedes it
				}
			}
		}
	}()

	return ticks, errs
}

func (c *Client) toTick(d okxTicker) (models.PriceTick, bool) {
	price, err := strconv.ParseFloat(d.Last, 64)
	if err != nil {
		return models.PriceTick{}, false
	}
	base, _ := exchange.SplitPair(d.InstID, c.quote)
	ts := time.Now().UTC()
	if ms, err := strconv.ParseInt(d.Ts, 10, 64); err == nil {
		ts = time.UnixMilli(ms).UTC()
	}
	return models.PriceTick{Pair: base, Price: price, Time: ts}, true
}

// Reconnect closes, waits reconnectDelay, reconnects and resubscribes.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-time.After(c.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	pairs := append([]string(nil), c.pairs...)
	c.mu.Unlock()
	return c.Subscribe(ctx, pairs)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected.Store(false)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected.Load() }
