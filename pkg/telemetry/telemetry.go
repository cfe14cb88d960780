// Package telemetry records policy decisions and their quality outcomes as
// Parquet files for offline analysis.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
)

// DecisionRecord captures one query's policy decision and outcome.
type DecisionRecord struct {
	ID             string    `parquet:"id"`
	Timestamp      time.Time `parquet:"timestamp"`
	Query          string    `parquet:"query"`
	Policy         string    `parquet:"policy"`
	FinalPolicy    string    `parquet:"final_policy"`
	Cost           float64   `parquet:"cost"`
	Quality        float64   `parquet:"quality"`
	FallbackUsed   bool      `parquet:"fallback_used"`
	BudgetWarning  bool      `parquet:"budget_warning"`
	ResultCount    int32     `parquet:"result_count"`
	DurationMillis int64     `parquet:"duration_millis"`
}

// Recorder buffers decision records and flushes them to Parquet files in
// batches. Safe for concurrent use.
type Recorder struct {
	outputDir string
	batchSize int

	mu     sync.Mutex
	buffer []DecisionRecord
}

// NewRecorder creates a recorder writing under outputDir.
func NewRecorder(outputDir string) (*Recorder, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
	}
	return &Recorder{
		outputDir: outputDir,
		batchSize: 100,
		buffer:    make([]DecisionRecord, 0, 100),
	}, nil
}

// Record buffers one decision, flushing when the batch fills.
func (r *Recorder) Record(record DecisionRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, record)
	if len(r.buffer) >= r.batchSize {
		return r.flushLocked()
	}
	return nil
}

// Flush writes any buffered records out immediately.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushLocked()
}

func (r *Recorder) flushLocked() error {
	if len(r.buffer) == 0 {
		return nil
	}

	name := fmt.Sprintf("decisions-%s.parquet", time.Now().UTC().Format("20060102-150405.000000"))
	path := filepath.Join(r.outputDir, name)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create telemetry file: %w", err)
	}

	writer := parquet.NewGenericWriter[DecisionRecord](file)
	if _, err := writer.Write(r.buffer); err != nil {
		file.Close()
		return fmt.Errorf("failed to write telemetry records: %w", err)
	}
	if err := writer.Close(); err != nil {
		file.Close()
		return fmt.Errorf("failed to finalize telemetry file: %w", err)
	}
	if err := file.Close(); err != nil {
		return err
	}

	r.buffer = r.buffer[:0]
	return nil
}

// Close flushes remaining records.
func (r *Recorder) Close() error {
	return r.Flush()
}
