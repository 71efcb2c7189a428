package store

import (
	"fmt"
	"time"

	"github.com/brensch/speed/game"
	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is the compact, self-contained form of a game state kept next to
// each decision. Cells are row-major board values.
type Snapshot struct {
	Width    int              `msgpack:"w"`
	Height   int              `msgpack:"h"`
	Cells    []int8           `msgpack:"c"`
	Players  []SnapshotPlayer `msgpack:"p"`
	You      int              `msgpack:"y"`
	Round    int              `msgpack:"r"`
	Running  bool             `msgpack:"run"`
	Deadline int64            `msgpack:"d,omitempty"`
}

type SnapshotPlayer struct {
	ID        int    `msgpack:"id"`
	Name      string `msgpack:"n,omitempty"`
	X         int    `msgpack:"x"`
	Y         int    `msgpack:"y"`
	Direction string `msgpack:"dir"`
	Speed     int    `msgpack:"s"`
	Active    bool   `msgpack:"a"`
}

func EncodeSnapshot(state *game.GameState) ([]byte, error) {
	if state == nil || state.Board == nil {
		return nil, fmt.Errorf("state without board")
	}
	s := Snapshot{
		Width:   state.Width,
		Height:  state.Height,
		Cells:   state.Board.Cells,
		You:     state.You,
		Round:   state.Round,
		Running: state.Running,
	}
	if !state.Deadline.IsZero() {
		s.Deadline = state.Deadline.UnixMilli()
	}
	for id := 1; id <= game.MaxPlayers; id++ {
		p, ok := state.Players[id]
		if !ok {
			continue
		}
		s.Players = append(s.Players, SnapshotPlayer{
			ID:        p.ID,
			Name:      p.Name,
			X:         p.Position.X,
			Y:         p.Position.Y,
			Direction: p.Direction.String(),
			Speed:     p.Speed,
			Active:    p.Active,
		})
	}
	return msgpack.Marshal(&s)
}

func DecodeSnapshot(b []byte) (*game.GameState, error) {
	var s Snapshot
	if err := msgpack.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("msgpack unmarshal: %w", err)
	}
	if s.Width <= 0 || s.Height <= 0 || len(s.Cells) != s.Width*s.Height {
		return nil, fmt.Errorf("invalid snapshot dimensions %dx%d with %d cells", s.Width, s.Height, len(s.Cells))
	}

	board := game.NewBoard(s.Width, s.Height)
	copy(board.Cells, s.Cells)
	state := &game.GameState{
		Width:   s.Width,
		Height:  s.Height,
		Board:   board,
		Players: make(map[int]game.Player, len(s.Players)),
		You:     s.You,
		Round:   s.Round,
		Running: s.Running,
	}
	if s.Deadline != 0 {
		state.Deadline = time.UnixMilli(s.Deadline)
	}
	for _, p := range s.Players {
		dir, err := game.ParseDirection(p.Direction)
		if err != nil {
			return nil, fmt.Errorf("player %d: %w", p.ID, err)
		}
		state.Players[p.ID] = game.Player{
			ID:        p.ID,
			Name:      p.Name,
			Position:  game.Point{X: p.X, Y: p.Y},
			Direction: dir,
			Speed:     p.Speed,
			Active:    p.Active,
		}
	}
	return state, nil
}
