package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"rewardEngine/internal/model"
)

// DecodeErrorLog appends rejected records to a JSONL file.
type DecodeErrorLog struct {
	path string
	mu   sync.Mutex
}

func NewDecodeErrorLog(path string) *DecodeErrorLog {
	return &DecodeErrorLog{path: path}
}

func (s *DecodeErrorLog) Path() string { return s.path }

// PutDecodeErrors appends one JSON line per rejected record.
func (s *DecodeErrorLog) PutDecodeErrors(errs []model.DecodeError) error {
	if len(errs) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open decode error file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	enc := json.NewEncoder(writer)
	for _, record := range errs {
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("write decode error: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush decode errors: %w", err)
	}
	return nil
}

// ReadDecodeErrors reads back a decode error file.
func ReadDecodeErrors(path string) ([]model.DecodeError, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	out := make([]model.DecodeError, 0)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec model.DecodeError
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("parse decode error line: %w", err)
		}
		out = append(out, rec)
	}
	return out, scanner.Err()
}
