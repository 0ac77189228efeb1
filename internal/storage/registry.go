package storage

import (
	"log/slog"
	"sync"
)

// ExportFileName is the file each host's records are appended to.
const ExportFileName = "requests.jsonl"

// WriterRegistry manages one JSONLWriter per destination host, so each
// host's records land in their own directory.
type WriterRegistry struct {
	baseDir    string
	maxSizeMB  int
	bufferSize int

	writers map[string]*JSONLWriter
	mu      sync.RWMutex
}

// NewWriterRegistry creates a new WriterRegistry for managing multiple JSONL writers.
func NewWriterRegistry(baseDir string, bufferSize int, maxSizeMB int) *WriterRegistry {
	return &WriterRegistry{
		baseDir:    baseDir,
		maxSizeMB:  maxSizeMB,
		bufferSize: bufferSize,
		writers:    make(map[string]*JSONLWriter),
	}
}

// GetWriter returns (or creates) the writer for a host path segment.
func (r *WriterRegistry) GetWriter(hostSegment string) *JSONLWriter {
	r.mu.RLock()
	if writer, ok := r.writers[hostSegment]; ok {
		r.mu.RUnlock()
		return writer
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if writer, ok := r.writers[hostSegment]; ok {
		return writer
	}

	writer := NewJSONLWriter(r.baseDir, hostSegment, ExportFileName, r.bufferSize, r.maxSizeMB)
	r.writers[hostSegment] = writer

	slog.Info("Created new JSONL writer", "host", hostSegment)
	return writer
}

// Len returns the number of open writers.
func (r *WriterRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.writers)
}

// Close closes all managed writers.
func (r *WriterRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error
	for host, writer := range r.writers {
		if err := writer.Close(); err != nil {
			slog.Error("Failed to close writer",
				"host", host,
				"error", err)
			lastErr = err
		}
	}

	r.writers = make(map[string]*JSONLWriter)

	return lastErr
}
