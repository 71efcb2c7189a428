package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

// DBCache keeps a DuckDB connection whose decisions view is rebuilt
// periodically so that newly finalized parquet files show up.
type DBCache struct {
	roots       []string
	refreshRate time.Duration

	mu          sync.RWMutex
	db          *sql.DB
	lastRefresh time.Time
}

func NewDBCache(roots []string, refreshRate time.Duration) *DBCache {
	return &DBCache{
		roots:       roots,
		refreshRate: refreshRate,
	}
}

// Get returns the cached connection, refreshing it when stale.
func (c *DBCache) Get() (*sql.DB, error) {
	c.mu.RLock()
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		db := c.db
		c.mu.RUnlock()
		return db, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil && time.Since(c.lastRefresh) < c.refreshRate {
		return c.db, nil
	}
	return c.refreshLocked()
}

func (c *DBCache) refreshLocked() (*sql.DB, error) {
	start := time.Now()
	newDB, err := openDuckDBWithGlobs(c.roots)
	if err != nil {
		return nil, err
	}
	if c.db != nil {
		_ = c.db.Close()
	}
	c.db = newDB
	c.lastRefresh = time.Now()
	log.Printf("DBCache refreshed in %v", time.Since(start))
	return c.db, nil
}

func (c *DBCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		err := c.db.Close()
		c.db = nil
		return err
	}
	return nil
}

// openDuckDBWithGlobs exposes the parquet files directly inside roots as the
// decisions view. Files still in a writer's tmp/ directory are not matched.
func openDuckDBWithGlobs(roots []string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, err
	}
	_, _ = db.Exec("PRAGMA threads=4")

	globs := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		// read_parquet fails on a pattern without matches.
		glob := filepath.Join(root, "*.parquet")
		if matches, _ := filepath.Glob(glob); len(matches) == 0 {
			continue
		}
		globs = append(globs, "'"+escapeSQLString(glob)+"'")
	}

	var sqlText string
	if len(globs) == 0 {
		sqlText = `CREATE OR REPLACE VIEW decisions AS
			SELECT * FROM (
				SELECT
					NULL::VARCHAR AS game_id,
					NULL::INTEGER AS round,
					NULL::INTEGER AS player,
					NULL::INTEGER AS width,
					NULL::INTEGER AS height,
					NULL::VARCHAR AS maneuver,
					NULL::REAL[] AS scores,
					NULL::REAL[] AS success,
					NULL::REAL[] AS cutoff,
					NULL::REAL[] AS importance,
					NULL::BIGINT AS elapsed_ms,
					NULL::BIGINT AS nodes,
					NULL::INTEGER AS depth,
					NULL::INTEGER AS active,
					NULL::VARCHAR AS solver,
					NULL::VARCHAR AS source,
					NULL::INTEGER AS winner,
					NULL::BLOB AS snapshot,
					NULL::BLOB AS matrices,
					NULL::VARCHAR AS filename
			) WHERE 1=0`
	} else {
		sqlText = `CREATE OR REPLACE VIEW decisions AS
			SELECT * FROM read_parquet([` + strings.Join(globs, ",") + `], filename=true, union_by_name=true)`
	}
	if _, err := db.Exec(sqlText); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create decisions view: %w", err)
	}
	return db, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func queryGames(ctx context.Context, db *sql.DB, limit, offset int) (int64, []GameSummary, error) {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT game_id) FROM decisions`).Scan(&total); err != nil {
		return 0, nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT
			game_id,
			any_value(source),
			max(round),
			count(*),
			any_value(width),
			any_value(height),
			list_sort(list(DISTINCT player)),
			string_agg(DISTINCT solver, ','),
			max(winner),
			any_value(filename)
		FROM decisions
		GROUP BY game_id
		ORDER BY any_value(filename) DESC, game_id
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	games := make([]GameSummary, 0, min(limit, 1024))
	for rows.Next() {
		var g GameSummary
		var players any
		if err := rows.Scan(&g.GameID, &g.Source, &g.Rounds, &g.Decisions, &g.Width, &g.Height, &players, &g.Solvers, &g.Winner, &g.SourceFile); err != nil {
			return 0, nil, err
		}
		g.Players = playerIDs(players)
		games = append(games, g)
	}
	return total, games, rows.Err()
}

// queryGame returns the decisions of one game ordered by round and player.
// opts selects which recorded blobs are decoded.
func queryGame(ctx context.Context, db *sql.DB, gameID string, opts gameOptions) (GameResponse, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT round, player, maneuver, scores, success, cutoff, importance,
			elapsed_ms, nodes, depth, active, solver, winner, snapshot, matrices
		FROM decisions
		WHERE game_id = ?
		ORDER BY round, player`, gameID)
	if err != nil {
		return GameResponse{}, err
	}
	defer rows.Close()

	res := GameResponse{GameID: gameID}
	for rows.Next() {
		var d Decision
		var scores, success, cutoff, importance any
		var snapshot, matrices []byte
		if err := rows.Scan(&d.Round, &d.Player, &d.Maneuver, &scores, &success, &cutoff, &importance,
			&d.ElapsedMs, &d.Nodes, &d.Depth, &d.Active, &d.Solver, &res.Winner, &snapshot, &matrices); err != nil {
			return GameResponse{}, err
		}
		d.Scores = rating(scores)
		d.Success = rating(success)
		d.Cutoff = rating(cutoff)
		d.Importance = rating(importance)

		if opts.Boards {
			if err := attachBoard(&d, snapshot); err != nil {
				return GameResponse{}, err
			}
		}
		if opts.Matrices {
			if err := attachMatrices(&d, matrices); err != nil {
				return GameResponse{}, err
			}
		}
		res.Decisions = append(res.Decisions, d)
	}
	if err := rows.Err(); err != nil {
		return GameResponse{}, err
	}
	if len(res.Decisions) == 0 {
		return GameResponse{}, sql.ErrNoRows
	}
	return res, nil
}

func queryStats(ctx context.Context, db *sql.DB) (StatsResponse, error) {
	res := StatsResponse{Maneuvers: make(map[string]int64)}

	rows, err := db.QueryContext(ctx, `
		SELECT solver, maneuver, count(*), CAST(sum(elapsed_ms) AS DOUBLE), CAST(sum(nodes) AS DOUBLE)
		FROM decisions
		GROUP BY solver, maneuver
		ORDER BY solver, maneuver`)
	if err != nil {
		return res, err
	}
	defer rows.Close()

	bySolver := make(map[string]*SolverStats)
	var order []string
	var elapsedTotal float64
	nodeTotals := make(map[string]float64)
	elapsedTotals := make(map[string]float64)
	for rows.Next() {
		var solver, maneuver string
		var n int64
		var elapsed, nodes float64
		if err := rows.Scan(&solver, &maneuver, &n, &elapsed, &nodes); err != nil {
			return res, err
		}
		s, ok := bySolver[solver]
		if !ok {
			s = &SolverStats{Solver: solver, Maneuvers: make(map[string]int64)}
			bySolver[solver] = s
			order = append(order, solver)
		}
		s.Decisions += n
		s.Maneuvers[maneuver] += n
		nodeTotals[solver] += nodes
		elapsedTotals[solver] += elapsed

		res.Decisions += n
		res.Maneuvers[maneuver] += n
		elapsedTotal += elapsed
	}
	if err := rows.Err(); err != nil {
		return res, err
	}
	if res.Decisions > 0 {
		res.MeanElapsedMs = elapsedTotal / float64(res.Decisions)
	}

	games, err := db.QueryContext(ctx, `
		SELECT solver,
			COUNT(DISTINCT game_id),
			COUNT(DISTINCT CASE WHEN player = winner THEN game_id END)
		FROM decisions
		GROUP BY solver`)
	if err != nil {
		return res, err
	}
	defer games.Close()
	for games.Next() {
		var solver string
		var played, won int64
		if err := games.Scan(&solver, &played, &won); err != nil {
			return res, err
		}
		if s, ok := bySolver[solver]; ok {
			s.Games = played
			s.Wins = won
		}
	}
	if err := games.Err(); err != nil {
		return res, err
	}

	for _, name := range order {
		s := bySolver[name]
		if s.Decisions > 0 {
			s.MeanElapsedMs = elapsedTotals[name] / float64(s.Decisions)
			s.MeanNodes = nodeTotals[name] / float64(s.Decisions)
		}
		res.Solvers = append(res.Solvers, *s)
	}
	return res, nil
}
