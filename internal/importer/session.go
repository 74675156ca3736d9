package importer

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/MigzCtrl/TireOps-sub000/internal/match"
)

// State tracks where a customer import session is in its lifecycle.
type State string

const (
	StateEmpty     State = "empty"
	StateStaged    State = "staged"
	StateCommitted State = "committed"
	StateAbandoned State = "abandoned"
)

var (
	// ErrNoCommitableRows is returned when commit is requested with nothing
	// valid to persist; no store call must be made in that case.
	ErrNoCommitableRows = errors.New("no commitable rows in session")
	// ErrAnalysisInFlight guards the one-extraction-at-a-time rule per session.
	ErrAnalysisInFlight = errors.New("analysis already in flight for session")
	// ErrSessionClosed rejects mutations after commit or cancellation.
	ErrSessionClosed = errors.New("session is closed")
	// ErrRowOutOfRange reports an invalid staged row index.
	ErrRowOutOfRange = errors.New("staged row index out of range")
)

// placeholderNames are extraction artifacts (column headers read as data)
// that must never become staged rows.
var placeholderNames = map[string]struct{}{
	"customer name": {},
	"name":          {},
}

// IngestStats summarizes what one analyze pass did to the staged set.
type IngestStats struct {
	Added   int `json:"added"`
	Merged  int `json:"merged"`
	Dropped int `json:"dropped"`
}

// CommitRow is a sanitized staged row ready for persistence, paired with its
// optional vehicle sub-data.
type CommitRow struct {
	Name    string
	Phone   string
	Email   string
	Vehicle *match.Vehicle
}

// Session owns the staged, human-editable record set for one customer import.
// It accumulates extraction passes, applies the resolver/merge pipeline on
// re-uploads, and produces sanitized rows at commit time. A session belongs
// to one user and is mutated from one request at a time; the internal mutex
// only protects against overlapping HTTP requests on the same id.
type Session struct {
	ID        string
	ShopID    uint
	CreatedAt time.Time

	mu        sync.Mutex
	state     State
	method    string
	staged    []match.Candidate
	busy      bool
	touchedAt time.Time
}

func newSession(id string, shopID uint) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		ShopID:    shopID,
		CreatedAt: now,
		state:     StateEmpty,
		touchedAt: now,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Method returns the extraction method tag recorded on the first upload.
func (s *Session) Method() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.method
}

// BeginAnalysis marks the session busy while an extraction call is in
// flight. A second analyze on the same session is rejected until EndAnalysis.
func (s *Session) BeginAnalysis() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateCommitted || s.state == StateAbandoned {
		return ErrSessionClosed
	}
	if s.busy {
		return ErrAnalysisInFlight
	}
	s.busy = true
	return nil
}

// EndAnalysis releases the in-flight flag.
func (s *Session) EndAnalysis() {
	s.mu.Lock()
	s.busy = false
	s.touchedAt = time.Now()
	s.mu.Unlock()
}

// ResetStaged discards staged rows after a failed fresh extraction attempt.
// Re-upload failures must NOT call this: prior staged work is preserved.
func (s *Session) ResetStaged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = nil
	s.method = ""
	if s.state == StateStaged {
		s.state = StateEmpty
	}
}

// Ingest folds one extraction result into the staged set. The first surviving
// upload seeds the set verbatim; later uploads are resolved row by row
// against the current staged set, merging at most once per staged entry per
// pass and accepting unmatched rows only when they look legitimate.
func (s *Session) Ingest(rows []match.Candidate, method string) (IngestStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateCommitted || s.state == StateAbandoned {
		return IngestStats{}, ErrSessionClosed
	}

	var stats IngestStats
	survivors := make([]match.Candidate, 0, len(rows))
	for _, row := range rows {
		if isPlaceholderRow(row) {
			stats.Dropped++
			continue
		}
		survivors = append(survivors, row)
	}

	if len(s.staged) == 0 {
		s.staged = survivors
		s.method = method
		stats.Added = len(survivors)
		if len(s.staged) > 0 {
			s.state = StateStaged
		}
		s.touchedAt = time.Now()
		return stats, nil
	}

	used := make(map[int]struct{}, len(s.staged))
	for _, cand := range survivors {
		result := match.FindBestMatch(cand, s.staged)
		if result != nil {
			if _, taken := used[result.Index]; !taken {
				s.staged[result.Index] = match.Merge(s.staged[result.Index], cand, result.Confidence)
				used[result.Index] = struct{}{}
				stats.Merged++
				continue
			}
		}
		if looksLegitimate(cand) {
			s.staged = append(s.staged, cand)
			stats.Added++
		} else {
			stats.Dropped++
		}
	}
	s.touchedAt = time.Now()
	return stats, nil
}

// Rows returns a copy of the staged set for display and editing.
func (s *Session) Rows() []match.Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]match.Candidate, len(s.staged))
	copy(out, s.staged)
	return out
}

// UpdateRow replaces a staged row with user-edited values. Edits bypass the
// resolver entirely.
func (s *Session) UpdateRow(index int, row match.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateCommitted || s.state == StateAbandoned {
		return ErrSessionClosed
	}
	if index < 0 || index >= len(s.staged) {
		return ErrRowOutOfRange
	}
	s.staged[index] = row
	s.touchedAt = time.Now()
	return nil
}

// DeleteRow removes a staged row.
func (s *Session) DeleteRow(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateCommitted || s.state == StateAbandoned {
		return ErrSessionClosed
	}
	if index < 0 || index >= len(s.staged) {
		return ErrRowOutOfRange
	}
	s.staged = append(s.staged[:index], s.staged[index+1:]...)
	s.touchedAt = time.Now()
	return nil
}

// AddBlankRow appends an empty row for manual entry and returns its index.
func (s *Session) AddBlankRow() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateCommitted || s.state == StateAbandoned {
		return 0, ErrSessionClosed
	}
	s.staged = append(s.staged, match.Candidate{})
	s.state = StateStaged
	s.touchedAt = time.Now()
	return len(s.staged) - 1, nil
}

// CommitableCount reports how many staged rows would survive commit
// filtering right now.
func (s *Session) CommitableCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, row := range s.staged {
		if isCommitable(row) {
			count++
		}
	}
	return count
}

// CommitRows filters and sanitizes the staged set for persistence. It does
// not change session state; the caller marks the session committed once the
// store accepts the batch.
func (s *Session) CommitRows() ([]CommitRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateCommitted || s.state == StateAbandoned {
		return nil, ErrSessionClosed
	}

	rows := make([]CommitRow, 0, len(s.staged))
	for _, row := range s.staged {
		if !isCommitable(row) {
			continue
		}
		rows = append(rows, CommitRow{
			Name:    strings.TrimSpace(row.Name),
			Phone:   match.CleanPhoneForImport(row.Phone),
			Email:   match.CleanEmailForImport(row.Email),
			Vehicle: row.Vehicle,
		})
	}
	if len(rows) == 0 {
		return nil, ErrNoCommitableRows
	}
	return rows, nil
}

// MarkCommitted finalizes the session after a successful batch insert.
func (s *Session) MarkCommitted() {
	s.mu.Lock()
	s.state = StateCommitted
	s.touchedAt = time.Now()
	s.mu.Unlock()
}

// Cancel abandons the session and discards staged state.
func (s *Session) Cancel() {
	s.mu.Lock()
	s.state = StateAbandoned
	s.staged = nil
	s.touchedAt = time.Now()
	s.mu.Unlock()
}

func (s *Session) lastTouched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

func isPlaceholderRow(row match.Candidate) bool {
	if len(strings.TrimSpace(row.Name)) < 2 {
		return true
	}
	_, placeholder := placeholderNames[match.NormalizeName(row.Name)]
	return placeholder
}

// looksLegitimate decides whether an unmatched re-upload row deserves a new
// staged entry: a spaced or reasonably long name, or any contact signal.
func looksLegitimate(row match.Candidate) bool {
	name := strings.TrimSpace(row.Name)
	if strings.Contains(name, " ") || len(name) >= 4 {
		return true
	}
	return strings.TrimSpace(row.Phone) != "" || strings.TrimSpace(row.Email) != ""
}

func isCommitable(row match.Candidate) bool {
	name := strings.TrimSpace(row.Name)
	if name == "" {
		return false
	}
	_, placeholder := placeholderNames[match.NormalizeName(row.Name)]
	return !placeholder
}
