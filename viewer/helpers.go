package main

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/brensch/speed/engine/decision"
	"github.com/brensch/speed/game"
	"github.com/brensch/speed/store"
)

func withCORS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// parseIntQuery returns def for a missing, malformed or negative value.
func parseIntQuery(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil || n < 0 {
		return def
	}
	return n
}

func parseBoolQuery(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(r.URL.Query().Get(key)))
	return b
}

// gameOptions selects the blob columns decoded for /api/games/{id}.
type gameOptions struct {
	Boards   bool
	Matrices bool
}

func parseGameOptions(r *http.Request) gameOptions {
	return gameOptions{
		Boards:   parseBoolQuery(r, "boards"),
		Matrices: parseBoolQuery(r, "matrices"),
	}
}

// playerIDs converts the DuckDB list of distinct players.
func playerIDs(v any) []int32 {
	if ids, ok := v.([]int32); ok {
		return ids
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]int32, 0, len(list))
	for _, x := range list {
		switch t := x.(type) {
		case int32:
			out = append(out, t)
		case int64:
			out = append(out, int32(t))
		}
	}
	return out
}

// rating converts a scanned rating column. Anything but one value per
// maneuver is dropped.
func rating(v any) []float32 {
	if r, ok := v.([]float32); ok && len(r) == game.NumManeuvers {
		return r
	}
	list, ok := v.([]any)
	if !ok || len(list) != game.NumManeuvers {
		return nil
	}
	out := make([]float32, len(list))
	for i, x := range list {
		switch t := x.(type) {
		case float32:
			out[i] = t
		case float64:
			out[i] = float32(t)
		}
	}
	return out
}

// attachBoard decodes the snapshot the decision was made on into d.
func attachBoard(d *Decision, snapshot []byte) error {
	if len(snapshot) == 0 {
		return nil
	}
	state, err := store.DecodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("round %d player %d: %w", d.Round, d.Player, err)
	}
	d.Board = state.Board.Rows()
	for id := 1; id <= game.MaxPlayers; id++ {
		if p, ok := state.Players[id]; ok {
			d.Players = append(d.Players, Player{
				ID:        p.ID,
				X:         p.Position.X,
				Y:         p.Position.Y,
				Direction: p.Direction.String(),
				Speed:     p.Speed,
				Active:    p.Active,
			})
		}
	}
	return nil
}

// attachMatrices decodes the layers behind the decision into d.
func attachMatrices(d *Decision, blob []byte) error {
	ms, err := store.DecodeMatrices(blob)
	if err != nil {
		return fmt.Errorf("round %d player %d: %w", d.Round, d.Player, err)
	}
	for _, m := range ms {
		d.Matrices = append(d.Matrices, matrixRows(m))
	}
	return nil
}

// matrixRows splits a layer into rows, rounded to the precision the
// recording kept.
func matrixRows(m decision.NamedMatrix) Matrix {
	out := Matrix{Name: m.Name, Min: m.Min, Max: m.Max, Rows: make([][]float64, m.Height)}
	for y := range out.Rows {
		row := make([]float64, m.Width)
		for x := range row {
			row[x] = math.Round(m.Values[y*m.Width+x]*1000) / 1000
		}
		out.Rows[y] = row
	}
	return out
}
