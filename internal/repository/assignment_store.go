package repository

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/assignment-tracker/internal/models"
	appErrors "github.com/noah-isme/assignment-tracker/pkg/errors"
)

// LoadResult describes what Load found at the persistence location.
type LoadResult struct {
	Assignments []models.Assignment
	Skipped     int
	Missing     bool
}

// AssignmentStore owns the in-memory assignment collection and its flat-file round-trip.
type AssignmentStore struct {
	path   string
	logger *zap.Logger

	mu    sync.RWMutex
	items []models.Assignment
}

// NewAssignmentStore builds a store persisting to path.
func NewAssignmentStore(path string, logger *zap.Logger) *AssignmentStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentStore{path: path, logger: logger}
}

// Path returns the persistence location.
func (s *AssignmentStore) Path() string {
	return s.path
}

// Load replaces the collection with the records found on disk. A missing file
// yields an empty collection and Missing=true. Malformed rows are skipped and
// counted. Any other failure leaves the collection empty and returns a
// persistence error.
func (s *AssignmentStore) Load(ctx context.Context) (LoadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil

	if err := ctx.Err(); err != nil {
		return LoadResult{}, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Info("no assignment file, starting empty", zap.String("path", s.path))
			return LoadResult{Missing: true}, nil
		}
		return LoadResult{}, appErrors.Persistence(err, "failed to open assignment file")
	}
	defer f.Close() //nolint:errcheck

	rows, skipped, err := decodeAssignments(f, func(line int, reason string, record []string) {
		s.logger.Warn("skipping corrupt assignment row",
			zap.Int("line", line),
			zap.String("reason", reason),
			zap.Strings("record", record),
		)
	})
	if err != nil {
		return LoadResult{}, appErrors.Persistence(err, "failed to read assignment file")
	}

	for i := range rows {
		rows[i].ID = uuid.NewString()
	}
	s.items = rows

	s.logger.Info("assignments loaded",
		zap.String("path", s.path),
		zap.Int("count", len(rows)),
		zap.Int("skipped", skipped),
	)
	return LoadResult{Assignments: cloneAll(rows), Skipped: skipped}, nil
}

// Save writes the collection back. An empty collection removes the file.
func (s *AssignmentStore) Save(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	records := cloneAll(s.items)
	s.mu.RUnlock()

	if len(records) == 0 {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return appErrors.Persistence(err, "failed to remove empty assignment file")
		}
		s.logger.Info("no assignments, removed file", zap.String("path", s.path))
		return nil
	}

	data, err := encodeAssignments(records)
	if err != nil {
		return appErrors.Persistence(err, "failed to encode assignments")
	}
	if err := writeFileAtomic(s.path, data, 0o644); err != nil {
		return appErrors.Persistence(err, "failed to write assignment file")
	}
	s.logger.Info("assignments saved", zap.String("path", s.path), zap.Int("count", len(records)))
	return nil
}

// All returns a copy of the collection in insertion order.
func (s *AssignmentStore) All() []models.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.items)
}

// At returns the assignment at a 0-based position.
func (s *AssignmentStore) At(index int) (models.Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.items) {
		return models.Assignment{}, false
	}
	return clone(s.items[index]), true
}

// Find returns the assignment with the given ID.
func (s *AssignmentStore) Find(id string) (models.Assignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.items {
		if a.ID == id {
			return clone(a), true
		}
	}
	return models.Assignment{}, false
}

// Append adds an assignment, assigning an ID when it has none.
func (s *AssignmentStore) Append(a models.Assignment) models.Assignment {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a = clone(a)
	s.mu.Lock()
	s.items = append(s.items, a)
	s.mu.Unlock()
	return clone(a)
}

// Replace overwrites the stored assignment sharing a's ID.
func (s *AssignmentStore) Replace(a models.Assignment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == a.ID {
			s.items[i] = clone(a)
			return true
		}
	}
	return false
}

func clone(a models.Assignment) models.Assignment {
	if a.Score != nil {
		v := *a.Score
		a.Score = &v
	}
	return a
}

func cloneAll(items []models.Assignment) []models.Assignment {
	out := make([]models.Assignment, len(items))
	for i, a := range items {
		out[i] = clone(a)
	}
	return out
}
