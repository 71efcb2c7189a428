package store

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// Batch describes a finalized decision file.
type Batch struct {
	// Path is empty when no game was written.
	Path    string
	Rows    int
	GameIDs []string
}

// BatchWriter collects whole games into one decision file. Every game is
// its own row group with rows ordered by round, then player, so a reader
// can fetch one game without decoding the others. The file is written under
// outDir/tmp and only moved into outDir by Finalize.
type BatchWriter struct {
	tmpPath string
	outPath string

	file   *os.File
	writer *parquet.GenericWriter[DecisionRow]

	games []string
	seen  map[string]bool
	rows  int
}

func NewBatchWriter(outDir string) (*BatchWriter, error) {
	if outDir == "" {
		return nil, fmt.Errorf("outDir is required")
	}
	absOut, err := filepath.Abs(outDir)
	if err != nil {
		absOut = outDir
	}
	tmpDir := filepath.Join(absOut, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("decisions_%d.parquet", time.Now().UnixNano())
	b := &BatchWriter{
		tmpPath: filepath.Join(tmpDir, name),
		outPath: filepath.Join(absOut, name),
		seen:    make(map[string]bool),
	}
	b.file, err = os.OpenFile(b.tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp parquet: %w", err)
	}

	// Blob columns carry no page bounds.
	b.writer = parquet.NewGenericWriter[DecisionRow](
		b.file,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.SkipPageBounds("snapshot"),
		parquet.SkipPageBounds("matrices"),
	)
	b.writer.SetKeyValueMetadata("schema", SchemaVersion)
	return b, nil
}

func (b *BatchWriter) TmpPath() string { return b.tmpPath }
func (b *BatchWriter) OutPath() string { return b.outPath }

// Games is the number of games written so far.
func (b *BatchWriter) Games() int { return len(b.games) }
func (b *BatchWriter) Rows() int  { return b.rows }

// WriteGame appends the rows of one game as a new row group. All rows must
// carry the same game id and a game can only be written once per file. An
// empty game is ignored.
func (b *BatchWriter) WriteGame(rows []DecisionRow) error {
	if b.writer == nil {
		return fmt.Errorf("batch writer is closed")
	}
	if len(rows) == 0 {
		return nil
	}
	id := rows[0].GameID
	for _, r := range rows[1:] {
		if r.GameID != id {
			return fmt.Errorf("rows of games %q and %q in one write", id, r.GameID)
		}
	}
	if b.seen[id] {
		return fmt.Errorf("game %q already written", id)
	}

	ordered := slices.Clone(rows)
	slices.SortStableFunc(ordered, func(a, c DecisionRow) int {
		return cmp.Or(cmp.Compare(a.Round, c.Round), cmp.Compare(a.Player, c.Player))
	})
	if _, err := b.writer.Write(ordered); err != nil {
		return fmt.Errorf("write game %s: %w", id, err)
	}
	if err := b.writer.Flush(); err != nil {
		return fmt.Errorf("flush game %s: %w", id, err)
	}

	b.seen[id] = true
	b.games = append(b.games, id)
	b.rows += len(ordered)
	return nil
}

// Finalize closes the file and moves it into outDir. The game ids are
// recorded in the "games" metadata key. Without any game the tmp file is
// removed and the returned batch has no path. Calling it again is a no-op.
func (b *BatchWriter) Finalize() (Batch, error) {
	if b.writer == nil {
		return Batch{}, nil
	}
	batch := Batch{Path: b.outPath, Rows: b.rows, GameIDs: b.games}

	b.writer.SetKeyValueMetadata("games", strings.Join(b.games, ","))
	closeErr := b.writer.Close()
	b.writer = nil
	_ = b.file.Sync()
	fileErr := b.file.Close()
	b.file = nil
	if closeErr != nil {
		return Batch{}, fmt.Errorf("close parquet writer: %w", closeErr)
	}
	if fileErr != nil {
		return Batch{}, fmt.Errorf("close parquet file: %w", fileErr)
	}

	if batch.Rows == 0 {
		_ = os.Remove(b.tmpPath)
		return Batch{}, nil
	}
	if err := os.Rename(b.tmpPath, b.outPath); err != nil {
		return Batch{}, fmt.Errorf("rename parquet: %w", err)
	}
	return batch, nil
}
