package main

// GameSummary is one recorded game.
type GameSummary struct {
	GameID    string  `json:"game_id"`
	Source    string  `json:"source"`
	Rounds    int32   `json:"rounds"`
	Decisions int64   `json:"decisions"`
	Width     int32   `json:"width"`
	Height    int32   `json:"height"`
	Players   []int32 `json:"players"`
	Solvers   string  `json:"solvers"`
	// Winner is the surviving player, 0 for a draw, -1 when unknown.
	Winner     int32  `json:"winner"`
	SourceFile string `json:"file"`
}

type GamesResponse struct {
	Total int64         `json:"total"`
	Games []GameSummary `json:"games"`
}

// Decision is one row of a game as served to the client.
type Decision struct {
	Round      int32     `json:"round"`
	Player     int32     `json:"player"`
	Maneuver   string    `json:"maneuver"`
	Scores     []float32 `json:"scores"`
	Success    []float32 `json:"success"`
	Cutoff     []float32 `json:"cutoff"`
	Importance []float32 `json:"importance"`
	ElapsedMs  int64     `json:"elapsed_ms"`
	Nodes      int64     `json:"nodes"`
	Depth      int32     `json:"depth"`
	Active     int32     `json:"active"`
	Solver     string    `json:"solver"`
	// Board is only filled when the client asks for boards, Matrices when
	// it asks for matrices and the decision was recorded with them.
	Board    [][]int  `json:"board,omitempty"`
	Players  []Player `json:"players,omitempty"`
	Matrices []Matrix `json:"matrices,omitempty"`
}

// Matrix is one layer behind a decision, row by row.
type Matrix struct {
	Name string      `json:"name"`
	Min  float64     `json:"min"`
	Max  float64     `json:"max"`
	Rows [][]float64 `json:"rows"`
}

type Player struct {
	ID        int    `json:"id"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Direction string `json:"direction"`
	Speed     int    `json:"speed"`
	Active    bool   `json:"active"`
}

type GameResponse struct {
	GameID    string     `json:"game_id"`
	Winner    int32      `json:"winner"`
	Decisions []Decision `json:"decisions"`
}

// SolverStats aggregates the decisions of one solver.
type SolverStats struct {
	Solver        string           `json:"solver"`
	Decisions     int64            `json:"decisions"`
	Games         int64            `json:"games"`
	Wins          int64            `json:"wins"`
	MeanElapsedMs float64          `json:"mean_elapsed_ms"`
	MeanNodes     float64          `json:"mean_nodes"`
	Maneuvers     map[string]int64 `json:"maneuvers"`
}

type StatsResponse struct {
	Decisions     int64            `json:"decisions"`
	MeanElapsedMs float64          `json:"mean_elapsed_ms"`
	Maneuvers     map[string]int64 `json:"maneuvers"`
	Solvers       []SolverStats    `json:"solvers"`
}
