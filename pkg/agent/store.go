package agent

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status is a session's lifecycle state. Terminal states are absorbing: once
// finished or errored, a session never changes again.
type Status string

const (
	StatusCreated  Status = "created"
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusError    Status = "error"
)

// terminal reports whether the status absorbs further transitions.
func (s Status) terminal() bool {
	return s == StatusFinished || s == StatusError
}

// Step records one executed tool call within a session. Immutable once
// appended.
type Step struct {
	Iteration int            `json:"iteration"`
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args"`
	Result    string         `json:"result"`
}

// Session is one run of the plan-act-observe loop for a single task.
type Session struct {
	ID             string    `json:"id"`
	Status         Status    `json:"status"`
	Message        string    `json:"message"`
	Trace          []Step    `json:"trace"`
	LastAction     string    `json:"lastAction,omitempty"`
	LastToolResult string    `json:"lastToolResult,omitempty"`
	Result         string    `json:"result,omitempty"`
	Error          string    `json:"error,omitempty"`
	LastUpdate     time.Time `json:"lastUpdate"`
}

// SessionSummary is the listing view of a session.
type SessionSummary struct {
	ID         string    `json:"id"`
	Status     Status    `json:"status"`
	Message    string    `json:"message"`
	Steps      int       `json:"steps"`
	LastUpdate time.Time `json:"lastUpdate"`
}

var metricActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "surf",
	Name:      "sessions_active_total",
	Help:      "Number of sessions currently running.",
})

// Store is the in-memory session map. Records are mutated only by the owning
// controller run and live for the process lifetime; there is no eviction.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session for the task and returns its id.
func (s *Store) Create(task string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.sessions[id] = &Session{
		ID:         id,
		Status:     StatusCreated,
		Message:    task,
		LastUpdate: time.Now(),
	}
	return id
}

// Get returns a snapshot copy of the session, safe for JSON encoding while
// the owning controller keeps mutating the record.
func (s *Store) Get(id string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	return snapshotSession(session), true
}

// List returns a summary of every session.
func (s *Store) List() []SessionSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]SessionSummary, 0, len(s.sessions))
	for _, session := range s.sessions {
		summaries = append(summaries, SessionSummary{
			ID:         session.ID,
			Status:     session.Status,
			Message:    session.Message,
			Steps:      len(session.Trace),
			LastUpdate: session.LastUpdate,
		})
	}
	return summaries
}

// setRunning transitions a session into the running state.
func (s *Store) setRunning(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || session.Status.terminal() {
		return
	}
	session.Status = StatusRunning
	session.LastUpdate = time.Now()
	metricActiveSessions.Inc()
}

// appendStep records one executed tool call and the latest observation.
func (s *Store) appendStep(id string, step Step) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || session.Status.terminal() {
		return
	}
	session.Trace = append(session.Trace, step)
	session.LastAction = step.Tool
	session.LastToolResult = step.Result
	session.LastUpdate = time.Now()
}

// finish marks a session finished with its terminal payload.
func (s *Store) finish(id, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || session.Status.terminal() {
		return
	}
	if session.Status == StatusRunning {
		metricActiveSessions.Dec()
	}
	session.Status = StatusFinished
	session.Result = result
	session.LastUpdate = time.Now()
}

// fail marks a session errored with its terminal failure reason.
func (s *Store) fail(id, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || session.Status.terminal() {
		return
	}
	if session.Status == StatusRunning {
		metricActiveSessions.Dec()
	}
	session.Status = StatusError
	session.Error = reason
	session.LastUpdate = time.Now()
}

// snapshotSession deep-copies the mutable parts of a session record.
func snapshotSession(session *Session) Session {
	snapshot := *session
	snapshot.Trace = make([]Step, len(session.Trace))
	copy(snapshot.Trace, session.Trace)
	return snapshot
}
