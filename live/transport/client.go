// Package transport plays one game against the live server over a
// websocket.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/brensch/speed/engine/decision"
	"github.com/brensch/speed/game"
	"github.com/gorilla/websocket"
)

// ErrGameOver reports that the server ended the game or the ego player is
// out. Play treats it as a normal end.
var ErrGameOver = errors.New("transport: game over")

// Config holds client configuration.
type Config struct {
	// URL is the full websocket URL including the key.
	URL            string
	TimeURL        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	// SafetyBuffer is kept free before the server deadline.
	SafetyBuffer time.Duration
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 10 * time.Second,
		ReadTimeout:    5 * time.Minute,
		WriteTimeout:   5 * time.Second,
		SafetyBuffer:   500 * time.Millisecond,
	}
}

// Decider picks the maneuver for one tick.
type Decider interface {
	Decide(ctx context.Context, state *game.GameState) (decision.Decision, error)
}

// Observer is told about every tick after the action was sent.
type Observer func(state *game.GameState, d decision.Decision)

// Result summarises a finished game.
type Result struct {
	Rounds int
	Final  *game.GameState
	// Won is set when the ego player is the last one standing.
	Won bool
}

// Stats holds client statistics
type Stats struct {
	Ticks     int64
	Fallbacks int64
}

type Client struct {
	config Config
	logger *slog.Logger
	// offset is server clock minus local clock.
	offset time.Duration
	stats  Stats
}

func NewClient(config Config) *Client {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: config.ConnectTimeout}
	}
	return &Client{config: config, logger: logger.With("component", "transport")}
}

// Offset is the last measured server clock offset.
func (c *Client) Offset() time.Duration { return c.offset }

// GetStats returns current statistics
func (c *Client) GetStats() Stats {
	return Stats{
		Ticks:     atomic.LoadInt64(&c.stats.Ticks),
		Fallbacks: atomic.LoadInt64(&c.stats.Fallbacks),
	}
}

// SyncClock measures the server clock offset. On failure the offset is
// reset to zero and the error returned.
func (c *Client) SyncClock(ctx context.Context) error {
	c.offset = 0
	if c.config.TimeURL == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.TimeURL, nil)
	if err != nil {
		return fmt.Errorf("time request: %w", err)
	}
	sent := time.Now()
	resp, err := c.config.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("time request: %w", err)
	}
	defer resp.Body.Close()
	received := time.Now()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("time request: status %s", resp.Status)
	}

	var st serverTime
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return fmt.Errorf("decode time: %w", err)
	}
	mid := sent.Add(received.Sub(sent) / 2)
	c.offset = st.instant().Sub(mid)
	c.logger.Info("clock synchronised", "offset", c.offset, "rtt", received.Sub(sent))
	return nil
}

// Play connects, answers every state with the decider's maneuver and
// returns once the game is over for the ego player.
func (c *Client) Play(ctx context.Context, decider Decider, observe Observer) (Result, error) {
	if err := c.SyncClock(ctx); err != nil {
		c.logger.Warn("clock sync failed, assuming no offset", "error", err)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: c.config.ConnectTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.config.URL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close()

	// Unblock the read when the caller gives up.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	var res Result
	for {
		state, err := c.read(conn, res.Rounds+1)
		if err != nil {
			if errors.Is(err, ErrGameOver) {
				return res, nil
			}
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			return res, err
		}
		res.Rounds = state.Round
		res.Final = state

		me, ok := state.Me()
		if !state.Running || !ok || !me.Active {
			res.Won = ok && me.Active && state.ActivePlayers() == 1
			c.logger.Info("game over", "rounds", res.Rounds, "won", res.Won)
			return res, nil
		}

		d := c.decide(ctx, decider, state)
		if err := c.send(conn, d.Maneuver); err != nil {
			return res, err
		}
		atomic.AddInt64(&c.stats.Ticks, 1)
		if observe != nil {
			observe(state, d)
		}
	}
}

func (c *Client) read(conn *websocket.Conn, round int) (*game.GameState, error) {
	_ = conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, ErrGameOver
		}
		return nil, fmt.Errorf("read error: %w", err)
	}
	return DecodeState(message, round)
}

// decide runs the decider under the server deadline. Errors fall back to
// ChangeNothing so the server always gets an answer.
func (c *Client) decide(ctx context.Context, decider Decider, state *game.GameState) decision.Decision {
	tickCtx := ctx
	if !state.Deadline.IsZero() {
		local := state.Deadline.Add(-c.offset).Add(-c.config.SafetyBuffer)
		var cancel context.CancelFunc
		tickCtx, cancel = context.WithDeadline(ctx, local)
		defer cancel()
	}

	d, err := decider.Decide(tickCtx, state)
	if err != nil {
		atomic.AddInt64(&c.stats.Fallbacks, 1)
		c.logger.Error("decision failed, sending fallback", "round", state.Round, "error", err)
		return decision.Decision{Maneuver: game.ChangeNothing, Round: state.Round}
	}
	return d
}

func (c *Client) send(conn *websocket.Conn, m game.Maneuver) error {
	b, err := EncodeAction(m)
	if err != nil {
		return fmt.Errorf("encode action: %w", err)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	return nil
}
