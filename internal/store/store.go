package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/shopsync/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var bucketRuns = []byte("runs")

// RunStore implements domain.RunStore using BoltDB.
type RunStore struct {
	db   *bolt.DB
	keep int // runs retained on disk, 0 = unlimited

	wmu sync.Mutex // serializes read-modify-write of a run
	mu  sync.RWMutex
	// Memory copy of every run touched this session; the only copy in memory-only mode
	cache map[string][]byte
}

// NewRunStore opens the archive for serverURL under baseDir. An empty baseDir keeps
// runs in memory only.
func NewRunStore(baseDir, serverURL string, keep int) (*RunStore, error) {
	if baseDir == "" {
		return &RunStore{keep: keep, cache: make(map[string][]byte)}, nil
	}

	dir := baseDir
	if serverURL != "" {
		dir = filepath.Join(baseDir, hashServerURL(serverURL))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "runs.db")
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRuns)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &RunStore{db: db, keep: keep, cache: make(map[string][]byte)}, nil
}

func hashServerURL(serverURL string) string {
	normalized := strings.TrimRight(strings.ToLower(serverURL), "/")
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:6])
}

func (s *RunStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// === Generic helpers ===

func (s *RunStore) load(id uuid.UUID) (*domain.RunRecord, error) {
	key := id.String()

	s.mu.RLock()
	data, ok := s.cache[key]
	s.mu.RUnlock()

	if !ok && s.db != nil {
		s.db.View(func(tx *bolt.Tx) error {
			if v := tx.Bucket(bucketRuns).Get([]byte(key)); v != nil {
				data = make([]byte, len(v))
				copy(data, v)
			}
			return nil
		})
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunNotFound, key)
	}

	var run domain.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", key, err)
	}
	return &run, nil
}

func (s *RunStore) save(run *domain.RunRecord) error {
	data, err := json.Marshal(run)
	if err != nil {
		return err
	}
	key := run.ID.String()

	s.mu.Lock()
	s.cache[key] = data
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRuns).Put([]byte(key), data)
	})
}

func (s *RunStore) update(id uuid.UUID, fn func(run *domain.RunRecord)) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	run, err := s.load(id)
	if err != nil {
		return err
	}
	fn(run)
	return s.save(run)
}

// === Runs ===

func (s *RunStore) CreateRun(run domain.RunRecord) error {
	if run.ID == uuid.Nil {
		return fmt.Errorf("run without id")
	}
	if run.Lines == nil {
		run.Lines = []string{}
	}
	if err := s.save(&run); err != nil {
		return err
	}
	return s.prune()
}

// AppendLine records one progress message and bumps the synced or error tally
func (s *RunStore) AppendLine(id uuid.UUID, line string, synced, failed bool) error {
	return s.update(id, func(run *domain.RunRecord) {
		run.Lines = append(run.Lines, line)
		if synced {
			run.SyncedCount++
		}
		if failed {
			run.ErrorCount++
		}
	})
}

func (s *RunStore) FinishRun(id uuid.UUID) error {
	return s.update(id, func(run *domain.RunRecord) {
		run.Done = true
		run.FinishedAt = time.Now()
	})
}

func (s *RunStore) GetRun(id uuid.UUID) (*domain.RunRecord, error) {
	return s.load(id)
}

// ListRuns returns up to limit runs, newest first (limit <= 0 means all)
func (s *RunStore) ListRuns(limit int) ([]domain.RunRecord, error) {
	runs, err := s.all()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// all merges the memory copy with the database, memory winning
func (s *RunStore) all() ([]domain.RunRecord, error) {
	raw := make(map[string][]byte)

	if s.db != nil {
		err := s.db.View(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
				data := make([]byte, len(v))
				copy(data, v)
				raw[string(k)] = data
				return nil
			})
		})
		if err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	for k, v := range s.cache {
		raw[k] = v
	}
	s.mu.RUnlock()

	runs := make([]domain.RunRecord, 0, len(raw))
	for k, data := range raw {
		var run domain.RunRecord
		if err := json.Unmarshal(data, &run); err != nil {
			return nil, fmt.Errorf("decode run %s: %w", k, err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// prune drops the oldest finished runs beyond the retention limit
func (s *RunStore) prune() error {
	if s.keep <= 0 {
		return nil
	}
	runs, err := s.ListRuns(0)
	if err != nil {
		return err
	}
	if len(runs) <= s.keep {
		return nil
	}

	var stale [][]byte
	for _, run := range runs[s.keep:] {
		if run.Done {
			stale = append(stale, []byte(run.ID.String()))
		}
	}
	if len(stale) == 0 {
		return nil
	}

	s.mu.Lock()
	for _, k := range stale {
		delete(s.cache, string(k))
	}
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRuns)
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}
