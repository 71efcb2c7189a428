package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brensch/speed/engine/decision"
	"github.com/brensch/speed/game"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{"width":4,"height":5,"players":{` +
	`"1":{"x":1,"y":2,"direction":"up","speed":4,"active":true},` +
	`"2":{"x":3,"y":4,"direction":"down","speed":5,"active":true}},` +
	`"cells":[[0,1,2,3],[0,0,0,0],[0,0,0,0],[0,0,0,0],[0,0,0,0]],` +
	`"running":false,"you":1}`

func TestDecodeState(t *testing.T) {
	state, err := DecodeState([]byte(sample), 1)
	require.NoError(t, err)

	assert.Equal(t, 4, state.Width)
	assert.Equal(t, 5, state.Height)
	assert.False(t, state.Running)
	assert.True(t, state.Deadline.IsZero())

	me, ok := state.Me()
	require.True(t, ok)
	assert.Equal(t, game.Point{X: 1, Y: 2}, me.Position)
	assert.Equal(t, game.Up, me.Direction)
	assert.Equal(t, 4, me.Speed)

	opps := state.Opponents()
	require.Len(t, opps, 1)
	assert.Equal(t, game.Point{X: 3, Y: 4}, opps[0].Position)
	assert.Equal(t, game.Down, opps[0].Direction)

	assert.Equal(t, game.Empty, state.Board.Get(game.Point{X: 0, Y: 0}))
	assert.Equal(t, int8(1), state.Board.Get(game.Point{X: 1, Y: 0}))
	assert.Equal(t, int8(3), state.Board.Get(game.Point{X: 3, Y: 0}))
}

func TestDecodeStateErrors(t *testing.T) {
	for name, msg := range map[string]string{
		"json":      `{`,
		"size":      `{"width":3,"height":1,"cells":[[0,0]],"players":{},"you":1}`,
		"direction": `{"width":1,"height":1,"cells":[[0]],"players":{"1":{"direction":"north"}},"you":1}`,
		"id":        `{"width":1,"height":1,"cells":[[0]],"players":{"x":{"direction":"up"}},"you":1}`,
		"deadline":  `{"width":1,"height":1,"cells":[[0]],"players":{},"you":1,"deadline":"soon"}`,
	} {
		_, err := DecodeState([]byte(msg), 1)
		assert.Error(t, err, name)
	}
}

func TestEncodeAction(t *testing.T) {
	b, err := EncodeAction(game.TurnLeft)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"turn_left"}`, string(b))
}

type fixedDecider struct {
	mu        sync.Mutex
	deadlines []time.Time
	fail      bool
}

func (f *fixedDecider) Decide(ctx context.Context, state *game.GameState) (decision.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dl, _ := ctx.Deadline()
	f.deadlines = append(f.deadlines, dl)
	if f.fail {
		return decision.Decision{}, errors.New("no idea")
	}
	return decision.Decision{Maneuver: game.SpeedUp, Round: state.Round}, nil
}

// stateJSON is a 3x3 game with the ego player in the top left corner. The
// opponent is active while the game runs.
func stateJSON(running, active bool, deadline time.Time) string {
	dl := ""
	if !deadline.IsZero() {
		dl = deadline.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprintf(`{"width":3,"height":3,"cells":[[1,0,0],[0,0,0],[0,0,2]],"players":{`+
		`"1":{"x":0,"y":0,"direction":"right","speed":1,"active":%t},`+
		`"2":{"x":2,"y":2,"direction":"left","speed":1,"active":%t}},`+
		`"you":1,"running":%t,"deadline":%q}`, active, running, running, dl)
}

// fakeServer sends the given messages one per received action and records
// the actions.
func fakeServer(t *testing.T, messages []string) (*httptest.Server, func() []string) {
	t.Helper()
	var mu sync.Mutex
	var actions []string
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "secret" {
			http.Error(w, "bad key", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for i, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
			if i == len(messages)-1 {
				break
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				return
			}
			mu.Lock()
			actions = append(actions, string(b))
			mu.Unlock()
		}
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), actions...)
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/spe_ed?key=secret"
}

func TestPlay(t *testing.T) {
	deadline := time.Now().Add(2 * time.Second)
	srv, actions := fakeServer(t, []string{
		stateJSON(true, true, deadline),
		stateJSON(true, true, deadline),
		stateJSON(false, true, time.Time{}),
	})

	cfg := DefaultConfig()
	cfg.URL = wsURL(srv)
	cfg.SafetyBuffer = 300 * time.Millisecond
	client := NewClient(cfg)

	dec := &fixedDecider{}
	var observed []int
	res, err := client.Play(context.Background(), dec, func(s *game.GameState, d decision.Decision) {
		observed = append(observed, s.Round)
		assert.Equal(t, game.SpeedUp, d.Maneuver)
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Rounds)
	assert.True(t, res.Won)
	assert.Equal(t, []int{1, 2}, observed)
	assert.Equal(t, []string{`{"action":"speed_up"}`, `{"action":"speed_up"}`}, actions())
	require.Len(t, dec.deadlines, 2)
	assert.WithinDuration(t, deadline.Add(-300*time.Millisecond), dec.deadlines[0], 50*time.Millisecond)
	assert.Equal(t, int64(2), client.GetStats().Ticks)
}

func TestPlayFallsBackOnError(t *testing.T) {
	srv, actions := fakeServer(t, []string{
		stateJSON(true, true, time.Now().Add(time.Second)),
		stateJSON(true, false, time.Now().Add(time.Second)),
	})
	cfg := DefaultConfig()
	cfg.URL = wsURL(srv)
	client := NewClient(cfg)

	res, err := client.Play(context.Background(), &fixedDecider{fail: true}, nil)
	require.NoError(t, err)
	assert.False(t, res.Won)
	assert.Equal(t, []string{`{"action":"change_nothing"}`}, actions())
	assert.Equal(t, int64(1), client.GetStats().Fallbacks)
}

func TestPlayBadKey(t *testing.T) {
	srv, _ := fakeServer(t, nil)
	cfg := DefaultConfig()
	cfg.URL = strings.Replace(wsURL(srv), "secret", "wrong", 1)
	_, err := NewClient(cfg).Play(context.Background(), &fixedDecider{}, nil)
	assert.ErrorContains(t, err, "failed to connect")
}

func TestSyncClock(t *testing.T) {
	serverNow := time.Now().Add(3 * time.Second).UTC()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		whole := serverNow.Truncate(time.Second)
		ms := serverNow.Sub(whole).Milliseconds()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"time":"` + whole.Format(time.RFC3339) + `","milliseconds":` + strconv.FormatInt(ms, 10) + `}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.TimeURL = srv.URL
	client := NewClient(cfg)
	require.NoError(t, client.SyncClock(context.Background()))
	assert.InDelta(t, float64(3*time.Second), float64(client.Offset()), float64(200*time.Millisecond))

	cfg.TimeURL = srv.URL + "/missing\x7f"
	client = NewClient(cfg)
	assert.Error(t, client.SyncClock(context.Background()))
	assert.Zero(t, client.Offset())
}
