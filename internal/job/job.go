// Package job manages job-scoped working directories for processing runs.
//
// Every batch or merge invocation gets its own UUID-keyed temp directory so
// concurrent jobs never share intermediates. The Manager tracks live jobs
// and can sweep abandoned ones.
package job

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Job is one processing run's identity and scratch space.
type Job struct {
	ID        string
	Dir       string
	CreatedAt time.Time
}

// Path joins elements onto the job's working directory.
func (j *Job) Path(elem ...string) string {
	return filepath.Join(append([]string{j.Dir}, elem...)...)
}

// MkdirAll creates a subdirectory inside the job's working directory.
func (j *Job) MkdirAll(elem ...string) (string, error) {
	dir := j.Path(elem...)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create job dir %s: %w", dir, err)
	}
	return dir, nil
}

// Cleanup removes the job's working directory and everything in it.
func (j *Job) Cleanup() {
	if j.Dir == "" {
		return
	}
	if err := os.RemoveAll(j.Dir); err != nil {
		log.WithField("job", j.ID).WithError(err).Warn("failed to remove job directory")
	}
}

// Manager tracks active jobs.
type Manager struct {
	mu   sync.Mutex
	jobs map[string]*Job
	root string
}

// NewManager creates a manager rooted at dir, or os.TempDir() when dir is
// empty.
func NewManager(dir string) *Manager {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Manager{
		jobs: make(map[string]*Job),
		root: dir,
	}
}

// New creates a job with a fresh UUID and working directory.
func (m *Manager) New() (*Job, error) {
	id := uuid.New().String()
	dir := filepath.Join(m.root, "shipdocs-"+id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create working directory for job %s: %w", id, err)
	}

	j := &Job{ID: id, Dir: dir, CreatedAt: time.Now()}
	m.mu.Lock()
	m.jobs[id] = j
	m.mu.Unlock()
	return j, nil
}

// Get returns the job with the given ID.
func (m *Manager) Get(id string) (*Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	return j, ok
}

// Release cleans up the job's files and forgets it.
func (m *Manager) Release(id string) {
	m.mu.Lock()
	j, ok := m.jobs[id]
	delete(m.jobs, id)
	m.mu.Unlock()
	if ok {
		j.Cleanup()
	}
}

// Sweep cleans up jobs older than maxAge and returns how many were removed.
func (m *Manager) Sweep(maxAge time.Duration) int {
	m.mu.Lock()
	var stale []*Job
	for id, j := range m.jobs {
		if time.Since(j.CreatedAt) > maxAge {
			stale = append(stale, j)
			delete(m.jobs, id)
		}
	}
	m.mu.Unlock()

	for _, j := range stale {
		j.Cleanup()
	}
	return len(stale)
}
