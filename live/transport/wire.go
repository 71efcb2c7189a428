package transport

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/brensch/speed/game"
)

// ServerState is one message from the game server.
type ServerState struct {
	Width    int                    `json:"width"`
	Height   int                    `json:"height"`
	Cells    [][]int                `json:"cells"`
	Players  map[string]ServerPlayer `json:"players"`
	You      int                    `json:"you"`
	Running  bool                   `json:"running"`
	Deadline string                 `json:"deadline,omitempty"`
}

type ServerPlayer struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Direction string `json:"direction"`
	Speed     int    `json:"speed"`
	Active    bool   `json:"active"`
	Name      string `json:"name,omitempty"`
}

// Action is the only message the client sends.
type Action struct {
	Action string `json:"action"`
}

// DecodeState parses a server message. round is the 1-based number of the
// round the message asks a move for; the server does not send it.
func DecodeState(b []byte, round int) (*game.GameState, error) {
	var msg ServerState
	if err := json.Unmarshal(b, &msg); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return msg.toGame(round)
}

func (m ServerState) toGame(round int) (*game.GameState, error) {
	board, err := game.BoardFromRows(m.Cells)
	if err != nil {
		return nil, fmt.Errorf("decode cells: %w", err)
	}
	if board.Width != m.Width || board.Height != m.Height {
		return nil, fmt.Errorf("cells are %dx%d, header says %dx%d", board.Width, board.Height, m.Width, m.Height)
	}

	state := &game.GameState{
		Width:   m.Width,
		Height:  m.Height,
		Board:   board,
		Players: make(map[int]game.Player, len(m.Players)),
		You:     m.You,
		Running: m.Running,
		Round:   round,
	}
	if m.Deadline != "" {
		d, err := time.Parse(time.RFC3339Nano, m.Deadline)
		if err != nil {
			return nil, fmt.Errorf("decode deadline: %w", err)
		}
		state.Deadline = d
	}
	for key, p := range m.Players {
		id, err := strconv.Atoi(key)
		if err != nil || id < 1 || id > game.MaxPlayers {
			return nil, fmt.Errorf("invalid player id %q", key)
		}
		dir, err := game.ParseDirection(p.Direction)
		if err != nil {
			return nil, fmt.Errorf("player %d: %w", id, err)
		}
		state.Players[id] = game.Player{
			ID:        id,
			Name:      p.Name,
			Position:  game.Point{X: p.X, Y: p.Y},
			Direction: dir,
			Speed:     p.Speed,
			Active:    p.Active,
		}
	}
	return state, nil
}

func EncodeAction(m game.Maneuver) ([]byte, error) {
	return json.Marshal(Action{Action: m.String()})
}

// serverTime is the reply of the clock endpoint.
type serverTime struct {
	Time         time.Time `json:"time"`
	Milliseconds int       `json:"milliseconds"`
}

func (t serverTime) instant() time.Time {
	return t.Time.Add(time.Duration(t.Milliseconds) * time.Millisecond)
}
