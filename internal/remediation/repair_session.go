package remediation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"m365console/internal/monitor"
)

// maxHistory bounds the tier history kept in a session.
const maxHistory = 50

// RepairAttempt records one tier execution.
type RepairAttempt struct {
	Tier          Tier      `json:"tier"`
	Timestamp     time.Time `json:"timestamp"`
	Success       bool      `json:"success"`
	Forced        bool      `json:"forced,omitempty"`
	FailingChecks []string  `json:"failingChecks,omitempty"`
	Errors        []string  `json:"errors,omitempty"`
}

// RepairSession is the escalator's running state for one process.
type RepairSession struct {
	State               State                `json:"state"`
	Tier                Tier                 `json:"tier"`
	ConsecutiveFailures int                  `json:"consecutiveFailures"`
	TotalAttempts       int                  `json:"totalAttempts"`
	MaxRepairAttempts   int                  `json:"maxRepairAttempts"`
	History             []RepairAttempt      `json:"history"`
	LastReport          *monitor.FaultReport `json:"lastReport,omitempty"`
	UpdatedAt           time.Time            `json:"updatedAt"`
}

// StateLabel renders the state with its tier, e.g. "Repairing(Deep)".
func (s RepairSession) StateLabel() string {
	if s.State == StateRepairing {
		return fmt.Sprintf("Repairing(%s)", s.Tier)
	}
	return s.State.String()
}

func (s *RepairSession) record(a RepairAttempt) {
	s.History = append(s.History, a)
	if len(s.History) > maxHistory {
		s.History = append([]RepairAttempt(nil), s.History[len(s.History)-maxHistory:]...)
	}
}

// clone returns a deep enough copy for callers to read without locking.
func (s RepairSession) clone() RepairSession {
	s.History = append([]RepairAttempt(nil), s.History...)
	if s.LastReport != nil {
		r := *s.LastReport
		r.Checks = append([]monitor.FaultCheck(nil), r.Checks...)
		s.LastReport = &r
	}
	return s
}

// SnapshotFile is where the session snapshot lives under the state directory.
const SnapshotFile = "repair-session.json"

// SnapshotStore persists RepairSession snapshots for the status command.
type SnapshotStore struct {
	Path string
}

// NewSnapshotStore stores snapshots at <root>/state/repair-session.json.
func NewSnapshotStore(layout monitor.Layout) *SnapshotStore {
	return &SnapshotStore{Path: filepath.Join(layout.Dir(monitor.DirState), SnapshotFile)}
}

// Save writes the snapshot atomically. The state directory is created if
// needed.
func (s *SnapshotStore) Save(session RepairSession) error {
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("encode repair session: %w", err)
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+SnapshotFile+".*")
	if err != nil {
		return fmt.Errorf("write repair session: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write repair session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write repair session: %w", err)
	}
	return os.Rename(tmp.Name(), s.Path)
}

// Load reads the last saved snapshot.
func (s *SnapshotStore) Load() (RepairSession, error) {
	var session RepairSession
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return session, fmt.Errorf("read repair session: %w", err)
	}
	if err := json.Unmarshal(data, &session); err != nil {
		return session, fmt.Errorf("decode repair session: %w", err)
	}
	return session, nil
}
