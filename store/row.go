// Package store records per-tick decisions as parquet rows.
package store

import (
	"fmt"

	"github.com/brensch/speed/engine/decision"
	"github.com/brensch/speed/game"
	"github.com/parquet-go/parquet-go"
)

// SchemaVersion is written into every file's key/value metadata.
const SchemaVersion = "decision_row_v2"

// WinnerUnknown marks rows of games whose result was not observed.
const WinnerUnknown = -1

// DecisionRow is one solver decision for one player on one tick.
//
// The rating columns hold one value per maneuver in enumeration order:
// turn_left, turn_right, slow_down, speed_up, change_nothing.
// Solver is the solver kind, or the seat label in self-play. Snapshot is the
// msgpack encoded state the decision was made on and Matrices the layers
// behind the decision, see EncodeMatrices. Winner is the player left
// standing, 0 for a draw or WinnerUnknown.
type DecisionRow struct {
	GameID     string    `parquet:"game_id,dict"`
	Round      int32     `parquet:"round"`
	Player     int32     `parquet:"player"`
	Width      int32     `parquet:"width"`
	Height     int32     `parquet:"height"`
	Maneuver   string    `parquet:"maneuver,dict"`
	Scores     []float32 `parquet:"scores"`
	Success    []float32 `parquet:"success"`
	Cutoff     []float32 `parquet:"cutoff"`
	Importance []float32 `parquet:"importance"`
	ElapsedMs  int64     `parquet:"elapsed_ms"`
	Nodes      int64     `parquet:"nodes"`
	Depth      int32     `parquet:"depth"`
	Active     int32     `parquet:"active"`
	Solver     string    `parquet:"solver,dict"`
	Source     string    `parquet:"source,dict"`
	Winner     int32     `parquet:"winner"`
	Snapshot   []byte    `parquet:"snapshot,optional"`
	Matrices   []byte    `parquet:"matrices,optional"`
}

// NewDecisionRow flattens d for the ego player of state.
func NewDecisionRow(gameID, source string, state *game.GameState, d decision.Decision) (DecisionRow, error) {
	snap, err := EncodeSnapshot(state)
	if err != nil {
		return DecisionRow{}, fmt.Errorf("encode snapshot: %w", err)
	}
	matrices, err := EncodeMatrices(d.Matrices)
	if err != nil {
		return DecisionRow{}, fmt.Errorf("encode matrices: %w", err)
	}
	return DecisionRow{
		GameID:     gameID,
		Round:      int32(state.Round),
		Player:     int32(state.You),
		Width:      int32(state.Width),
		Height:     int32(state.Height),
		Maneuver:   d.Maneuver.String(),
		Scores:     toFloat32(d.Scores),
		Success:    toFloat32(d.Success),
		Cutoff:     toFloat32(d.Cutoff),
		Importance: toFloat32(d.Importance),
		ElapsedMs:  d.Elapsed.Milliseconds(),
		Nodes:      int64(d.Paths),
		Depth:      int32(d.MaxDepth),
		Active:     int32(state.ActivePlayers()),
		Solver:     d.Solver,
		Source:     source,
		Winner:     WinnerUnknown,
		Snapshot:   snap,
		Matrices:   matrices,
	}, nil
}

// SetWinner stamps the game result on rows.
func SetWinner(rows []DecisionRow, winner int) {
	for i := range rows {
		rows[i].Winner = int32(winner)
	}
}

func toFloat32(r decision.Rating) []float32 {
	out := make([]float32, len(r))
	for i, v := range r {
		out[i] = float32(v)
	}
	return out
}

// ReadDecisionParquet loads every row of a decision file.
func ReadDecisionParquet(path string) ([]DecisionRow, error) {
	rows, err := parquet.ReadFile[DecisionRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return rows, nil
}
