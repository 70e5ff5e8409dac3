// Package attendance implements the per-student, per-day attendance ledger.
package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Attendance statuses.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
)

var (
	// ErrNotFound indicates the record does not exist or is not owned by the caller.
	ErrNotFound = errors.New("attendance record not found")
	// ErrInvalidStatus indicates a status outside present/absent/late.
	ErrInvalidStatus = errors.New("invalid attendance status")
	// ErrInvalidSubject indicates the target user does not exist or is not a student.
	ErrInvalidSubject = errors.New("attendance can only be recorded for students")
)

var marksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rollcall_attendance_marks_total",
		Help: "Attendance records written, by actor and status",
	},
	[]string{"actor", "status"},
)

func init() {
	prometheus.MustRegister(marksTotal)
}

// Record is one attendance entry for one student on one day.
type Record struct {
	ID     string    `bson:"_id" json:"id"`
	UserID string    `bson:"userId" json:"userId"`
	Date   time.Time `bson:"date" json:"date"`
	Status string    `bson:"status" json:"status"`
}

// Summary aggregates one day's records by status.
type Summary struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
}

// RosterEntry is a student joined with their status for today, if any.
type RosterEntry struct {
	StudentID   string  `json:"studentId"`
	Username    string  `json:"username"`
	TodayStatus *string `json:"todayStatus"`
}

// RecordStore is what the service needs from persistence.
type RecordStore interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	FindInWindow(ctx context.Context, userID string, from, to time.Time) (*Record, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdateOwned(ctx context.Context, id, userID, status string) (*Record, error)
	DeleteOwned(ctx context.Context, id, userID string) error
	DeleteInWindow(ctx context.Context, userID string, from, to time.Time) error
	ListByUser(ctx context.Context, userID string) ([]Record, error)
	ListInWindow(ctx context.Context, from, to time.Time) ([]Record, error)
}

// Roster is the slice of the identity adapter the ledger depends on: the
// student-precondition check and the student list for the roster join.
type Roster interface {
	IsStudent(ctx context.Context, id string) (bool, error)
	StudentEntries(ctx context.Context) ([]RosterStudent, error)
}

// RosterStudent is the minimal student projection used by the roster join.
type RosterStudent struct {
	ID       string
	Username string
}

// Service coordinates ledger operations and enforces the student
// precondition before any write.
type Service struct {
	repo     RecordStore
	students Roster
	now      func() time.Time
}

// NewService creates a ledger service.
func NewService(repo RecordStore, students Roster) *Service {
	return &Service{repo: repo, students: students, now: time.Now}
}

// dayWindow returns [local midnight, next midnight) for the given time.
func dayWindow(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.Add(24 * time.Hour)
}

func validStatus(status string) bool {
	switch status {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	}
	return false
}

func (s *Service) requireStudent(ctx context.Context, userID string) error {
	ok, err := s.students.IsStudent(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidSubject
	}
	return nil
}

// MarkSelf records a student's own check-in dated now. Same-day duplicates
// are not rejected here; only teacher-driven marking is upsert-by-day.
func (s *Service) MarkSelf(ctx context.Context, studentID, status string) (Record, error) {
	if !validStatus(status) {
		return Record{}, ErrInvalidStatus
	}
	if err := s.requireStudent(ctx, studentID); err != nil {
		return Record{}, err
	}
	rec, err := s.repo.Insert(ctx, Record{UserID: studentID, Date: s.now().UTC(), Status: status})
	if err != nil {
		return Record{}, err
	}
	marksTotal.WithLabelValues("student", status).Inc()
	return rec, nil
}

// MarkByTeacher upserts the student's record for today: an existing record in
// the day window gets its status replaced, otherwise a new record dated now
// is created. The read-then-write is not isolated; concurrent marks for the
// same student race with last write winning.
func (s *Service) MarkByTeacher(ctx context.Context, studentID, status string) (Record, error) {
	if !validStatus(status) {
		return Record{}, ErrInvalidStatus
	}
	if err := s.requireStudent(ctx, studentID); err != nil {
		return Record{}, err
	}
	from, to := dayWindow(s.now())
	existing, err := s.repo.FindInWindow(ctx, studentID, from, to)
	if err != nil {
		return Record{}, err
	}
	if existing != nil {
		if err := s.repo.UpdateStatus(ctx, existing.ID, status); err != nil {
			return Record{}, err
		}
		existing.Status = status
		marksTotal.WithLabelValues("teacher", status).Inc()
		return *existing, nil
	}
	rec, err := s.repo.Insert(ctx, Record{UserID: studentID, Date: s.now().UTC(), Status: status})
	if err != nil {
		return Record{}, err
	}
	marksTotal.WithLabelValues("teacher", status).Inc()
	return rec, nil
}

// UpdateOwn updates a record the student owns. Foreign records are reported
// as not found.
func (s *Service) UpdateOwn(ctx context.Context, recordID, studentID, status string) (Record, error) {
	if !validStatus(status) {
		return Record{}, ErrInvalidStatus
	}
	rec, err := s.repo.UpdateOwned(ctx, recordID, studentID, status)
	if err != nil {
		return Record{}, err
	}
	return *rec, nil
}

// DeleteOwn deletes a record the student owns.
func (s *Service) DeleteOwn(ctx context.Context, recordID, studentID string) error {
	return s.repo.DeleteOwned(ctx, recordID, studentID)
}

// DeleteToday removes the student's record in today's window. It is a no-op
// when no record exists.
func (s *Service) DeleteToday(ctx context.Context, studentID string) error {
	from, to := dayWindow(s.now())
	return s.repo.DeleteInWindow(ctx, studentID, from, to)
}

// History returns all records for a student, newest first.
func (s *Service) History(ctx context.Context, studentID string) ([]Record, error) {
	return s.repo.ListByUser(ctx, studentID)
}

// Summary counts today's records by status.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	from, to := dayWindow(s.now())
	records, err := s.repo.ListInWindow(ctx, from, to)
	if err != nil {
		return Summary{}, err
	}
	var sum Summary
	for _, rec := range records {
		switch rec.Status {
		case StatusPresent:
			sum.Present++
		case StatusAbsent:
			sum.Absent++
		case StatusLate:
			sum.Late++
		}
	}
	return sum, nil
}

// RosterWithTodayStatus left-joins every student against today's records.
// Students without a record today carry a null status.
func (s *Service) RosterWithTodayStatus(ctx context.Context) ([]RosterEntry, error) {
	students, err := s.students.StudentEntries(ctx)
	if err != nil {
		return nil, err
	}
	from, to := dayWindow(s.now())
	records, err := s.repo.ListInWindow(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byUser := make(map[string]string, len(records))
	for _, rec := range records {
		byUser[rec.UserID] = rec.Status
	}
	entries := make([]RosterEntry, 0, len(students))
	for _, st := range students {
		entry := RosterEntry{StudentID: st.ID, Username: st.Username}
		if status, ok := byUser[st.ID]; ok {
			entry.TodayStatus = &status
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
