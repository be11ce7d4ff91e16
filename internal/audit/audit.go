// Package audit appends one JSON line per analysis run to a rotating log.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ppiankov/cram/internal/model"
)

// Config represents audit log configuration
type Config struct {
	// Dir holds the log file; created on first append
	Dir string

	// FileName is the JSONL file name inside Dir
	FileName string

	// MaxSize is the maximum size in megabytes before rotation
	MaxSize int

	// MaxBackups is the maximum number of rotated files to keep
	MaxBackups int

	// Compress gzips rotated files
	Compress bool
}

// DefaultConfig returns the default audit location
func DefaultConfig() Config {
	return Config{
		Dir:        "data/audit_logs",
		FileName:   "analysis_runs.jsonl",
		MaxSize:    100,
		MaxBackups: 10,
	}
}

// DataSource names an upstream event dataset
type DataSource struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DefaultDataSources are the event datasets feeding the vector store
var DefaultDataSources = []DataSource{
	{Name: "GDELT", Description: "Global Database of Events, Language, and Tone"},
	{Name: "ACLED", Description: "Armed Conflict Location & Event Data Project"},
}

// Meta describes the models and data behind a run
type Meta struct {
	LLMModel              string       `json:"llm_model"`
	LLMBaseURL            string       `json:"llm_base_url"`
	EmbeddingModel        string       `json:"embedding_model"`
	VectorStoreCollection string       `json:"vector_store_collection"`
	DataSources           []DataSource `json:"data_sources"`
}

// Payload is the run content of an audit record
type Payload struct {
	State          *model.AnalysisState  `json:"state"`
	Explainability *model.Explainability `json:"explainability"`
}

// Record is one line of the audit log
type Record struct {
	RunID    string  `json:"run_id"`
	LoggedAt string  `json:"logged_at"`
	Payload  Payload `json:"payload"`
	Meta     Meta    `json:"meta"`
}

// Logger appends run records. Appends from concurrent runs are serialized.
type Logger struct {
	cfg    Config
	meta   Meta
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	writer *lumberjack.Logger
}

// NewLogger creates an audit logger. It never fails; problems surface as an
// empty log path from Append.
func NewLogger(cfg Config, meta Meta, logger *zap.Logger) *Logger {
	def := DefaultConfig()
	if cfg.Dir == "" {
		cfg.Dir = def.Dir
	}
	if cfg.FileName == "" {
		cfg.FileName = def.FileName
	}
	if meta.DataSources == nil {
		meta.DataSources = DefaultDataSources
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{cfg: cfg, meta: meta, logger: logger, now: time.Now}
}

// Path returns the active log file path
func (l *Logger) Path() string {
	return filepath.Join(l.cfg.Dir, l.cfg.FileName)
}

// NewRunID returns a fresh 32-character hex run identifier
func NewRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Append writes one record and returns the run id and log path. runID may be
// empty, in which case a fresh one is generated. On any failure the returned
// path is empty; the error is logged, never returned.
func (l *Logger) Append(runID string, state *model.AnalysisState, explain *model.Explainability) (string, string) {
	if runID == "" {
		runID = NewRunID()
	}

	var snapshot *model.AnalysisState
	if state != nil {
		s := *state
		s.Explainability = nil // carried once, beside the state
		snapshot = &s
	}

	rec := Record{
		RunID:    runID,
		LoggedAt: l.now().UTC().Format("2006-01-02T15:04:05.000000"),
		Payload:  Payload{State: snapshot, Explainability: explain},
		Meta:     l.meta,
	}

	line, err := json.Marshal(rec)
	if err != nil {
		l.logger.Warn("audit record not serializable", zap.String("run_id", runID), zap.Error(err))
		return runID, ""
	}
	line = append(line, '\n')

	if err := l.write(line); err != nil {
		l.logger.Warn("audit append failed",
			zap.String("run_id", runID),
			zap.String("path", l.Path()),
			zap.Error(err),
		)
		return runID, ""
	}
	return runID, l.Path()
}

func (l *Logger) write(line []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	if l.writer == nil {
		l.writer = &lumberjack.Logger{
			Filename:   l.Path(),
			MaxSize:    l.cfg.MaxSize,
			MaxBackups: l.cfg.MaxBackups,
			Compress:   l.cfg.Compress,
		}
	}
	if _, err := l.writer.Write(line); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}

// Close closes the underlying file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writer == nil {
		return nil
	}
	err := l.writer.Close()
	l.writer = nil
	return err
}

// ReadRecords decodes an audit log stream. Malformed lines are skipped and
// counted.
func ReadRecords(r io.Reader) ([]Record, int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 32*1024*1024)

	var (
		records []Record
		bad     int
	)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			bad++
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return records, bad, fmt.Errorf("read audit log: %w", err)
	}
	return records, bad, nil
}
