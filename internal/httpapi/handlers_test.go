package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/identity"
)

// In-memory identity stores backing full-stack handler tests.

type memUserStore struct {
	users map[string]identity.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[string]identity.User)}
}

func (m *memUserStore) Find(ctx context.Context, f identity.Filter) (*identity.User, error) {
	for _, u := range m.users {
		if f.ID != "" && u.ID != f.ID {
			continue
		}
		if f.Username != "" && u.Username != f.Username {
			continue
		}
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		out := u
		return &out, nil
	}
	return nil, identity.ErrNotFound
}

func (m *memUserStore) Insert(ctx context.Context, u identity.User) (identity.User, error) {
	m.users[u.ID] = u
	return u, nil
}

func (m *memUserStore) Delete(ctx context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return identity.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memUserStore) List(ctx context.Context, role string) ([]identity.User, error) {
	var out []identity.User
	for _, u := range m.users {
		if u.Role == role {
			u.Password = ""
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memUserStore) SetPassword(ctx context.Context, username, hash string) error {
	for id, u := range m.users {
		if u.Username == username {
			u.Password = hash
			m.users[id] = u
			return nil
		}
	}
	return identity.ErrNotFound
}

type memTeacherStore struct {
	teachers map[string]identity.Teacher
}

func newMemTeacherStore() *memTeacherStore {
	return &memTeacherStore{teachers: make(map[string]identity.Teacher)}
}

func (m *memTeacherStore) Get(ctx context.Context, username string) (*identity.Teacher, error) {
	t, ok := m.teachers[username]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return &t, nil
}

func (m *memTeacherStore) Insert(ctx context.Context, t identity.Teacher) error {
	m.teachers[t.Username] = t
	return nil
}

func (m *memTeacherStore) Exists(ctx context.Context, username string) (bool, error) {
	_, ok := m.teachers[username]
	return ok, nil
}

func (m *memTeacherStore) Delete(ctx context.Context, username string) error {
	if _, ok := m.teachers[username]; !ok {
		return identity.ErrNotFound
	}
	delete(m.teachers, username)
	return nil
}

func (m *memTeacherStore) List(ctx context.Context) ([]identity.Teacher, error) {
	var out []identity.Teacher
	for _, t := range m.teachers {
		t.Password = ""
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

type memRecordStore struct {
	records map[string]attendance.Record
}

func newMemRecordStore() *memRecordStore {
	return &memRecordStore{records: make(map[string]attendance.Record)}
}

func (m *memRecordStore) Insert(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.records[rec.ID] = rec
	return rec, nil
}

func (m *memRecordStore) FindInWindow(ctx context.Context, userID string, from, to time.Time) (*attendance.Record, error) {
	for _, rec := range m.records {
		if rec.UserID == userID && !rec.Date.Before(from) && rec.Date.Before(to) {
			out := rec
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memRecordStore) UpdateStatus(ctx context.Context, id, status string) error {
	rec, ok := m.records[id]
	if !ok {
		return attendance.ErrNotFound
	}
	rec.Status = status
	m.records[id] = rec
	return nil
}

func (m *memRecordStore) UpdateOwned(ctx context.Context, id, userID, status string) (*attendance.Record, error) {
	rec, ok := m.records[id]
	if !ok || rec.UserID != userID {
		return nil, attendance.ErrNotFound
	}
	rec.Status = status
	m.records[id] = rec
	return &rec, nil
}

func (m *memRecordStore) DeleteOwned(ctx context.Context, id, userID string) error {
	rec, ok := m.records[id]
	if !ok || rec.UserID != userID {
		return attendance.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *memRecordStore) DeleteInWindow(ctx context.Context, userID string, from, to time.Time) error {
	for id, rec := range m.records {
		if rec.UserID == userID && !rec.Date.Before(from) && rec.Date.Before(to) {
			delete(m.records, id)
			return nil
		}
	}
	return nil
}

func (m *memRecordStore) ListByUser(ctx context.Context, userID string) ([]attendance.Record, error) {
	var out []attendance.Record
	for _, rec := range m.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *memRecordStore) ListInWindow(ctx context.Context, from, to time.Time) ([]attendance.Record, error) {
	var out []attendance.Record
	for _, rec := range m.records {
		if !rec.Date.Before(from) && rec.Date.Before(to) {
			out = append(out, rec)
		}
	}
	return out, nil
}

type dirRoster struct {
	dir *identity.Directory
}

func (a dirRoster) IsStudent(ctx context.Context, id string) (bool, error) {
	return a.dir.IsStudent(ctx, id)
}

func (a dirRoster) StudentEntries(ctx context.Context) ([]attendance.RosterStudent, error) {
	students, err := a.dir.Students(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]attendance.RosterStudent, 0, len(students))
	for _, s := range students {
		out = append(out, attendance.RosterStudent{ID: s.ID, Username: s.Username})
	}
	return out, nil
}

type testEnv struct {
	router *gin.Engine
	dir    *identity.Directory
	users  *memUserStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := newMemUserStore()
	teachers := newMemTeacherStore()
	hasher := auth.NewHasher(4)
	dir := identity.NewDirectory(users, teachers, hasher)
	ledger := attendance.NewService(newMemRecordStore(), dirRoster{dir: dir})
	tokens := auth.NewIssuer("test-key", "rollcall", time.Hour)

	r := gin.New()
	New(dir, ledger, tokens).Mount(r)
	return &testEnv{router: r, dir: dir, users: users}
}

// seedAdmin inserts an admin account directly; the system has no admin
// registration endpoint.
func (e *testEnv) seedAdmin(t *testing.T, username, password string) {
	t.Helper()
	hasher := auth.NewHasher(4)
	hash, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	_, err = e.users.Insert(context.Background(), identity.User{
		ID:         uuid.NewString(),
		Username:   username,
		Password:   hash,
		Role:       identity.RoleAdmin,
		IsApproved: true,
	})
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, username, password, role string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"username": username, "password": password, "role": role,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s/%s: status %d body %s", username, role, w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if resp.Role != role {
		t.Fatalf("login role = %q, want %q", resp.Role, role)
	}
	return resp.Token
}

func TestStudentRegisterLoginCheckIn(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice", "password": "pw1", "role": "student",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("register: status %d body %s", w.Code, w.Body.String())
	}

	// Second registration with the same username conflicts.
	w = env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice", "password": "pw1", "role": "student",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("duplicate register: status %d, want 400", w.Code)
	}

	token := env.login(t, "alice", "pw1", "student")

	w = env.do(t, http.MethodPost, "/api/student/attendance", token, gin.H{"status": "present"})
	if w.Code != http.StatusOK {
		t.Fatalf("check-in: status %d body %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/student/attendance", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: status %d", w.Code)
	}
	var records []attendance.Record
	if err := json.Unmarshal(w.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode records: %v", err)
	}
	if len(records) != 1 || records[0].Status != "present" {
		t.Errorf("records = %+v, want one present record", records)
	}
}

func TestRegisterNonStudentRejected(t *testing.T) {
	env := newTestEnv(t)

	for _, role := range []string{"teacher", "admin"} {
		w := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
			"username": "mallory", "password": "pw", "role": role,
		})
		if w.Code != http.StatusForbidden {
			t.Errorf("register role %s: status %d, want 403", role, w.Code)
		}
	}
}

func TestAdminAddsTeacherWhoCanLogin(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t, "root", "rootpw")
	adminToken := env.login(t, "root", "rootpw", "admin")

	w := env.do(t, http.MethodPost, "/api/admin/add-teacher", adminToken, gin.H{
		"username": "bob", "password": "pw2",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("add-teacher: status %d body %s", w.Code, w.Body.String())
	}

	// Admin token cannot reach teacher routes.
	if w := env.do(t, http.MethodGet, "/api/teacher/students", adminToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("admin on teacher route: status %d, want 403", w.Code)
	}

	teacherToken := env.login(t, "bob", "pw2", "teacher")
	if w := env.do(t, http.MethodGet, "/api/teacher/students", teacherToken, nil); w.Code != http.StatusOK {
		t.Errorf("teacher roster: status %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/admin/teachers", adminToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list teachers: status %d", w.Code)
	}
	var teachers []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &teachers); err != nil {
		t.Fatalf("decode teachers: %v", err)
	}
	if len(teachers) != 1 || teachers[0].Username != "bob" {
		t.Errorf("teachers = %+v, want [bob]", teachers)
	}
}

func TestTeacherMarksAndSummary(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t, "root", "rootpw")
	adminToken := env.login(t, "root", "rootpw", "admin")

	if w := env.do(t, http.MethodPost, "/api/admin/add-student", adminToken, gin.H{
		"username": "alice", "password": "pw1",
	}); w.Code != http.StatusOK {
		t.Fatalf("add-student: status %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/admin/add-teacher", adminToken, gin.H{
		"username": "bob", "password": "pw2",
	}); w.Code != http.StatusOK {
		t.Fatalf("add-teacher: status %d", w.Code)
	}
	teacherToken := env.login(t, "bob", "pw2", "teacher")

	var roster []attendance.RosterEntry
	w := env.do(t, http.MethodGet, "/api/teacher/students", teacherToken, nil)
	if err := json.Unmarshal(w.Body.Bytes(), &roster); err != nil {
		t.Fatalf("decode roster: %v", err)
	}
	if len(roster) != 1 || roster[0].TodayStatus != nil {
		t.Fatalf("roster = %+v, want one unmarked student", roster)
	}
	studentID := roster[0].StudentID

	// Mark present, then re-mark late: one record, latest status wins.
	if w := env.do(t, http.MethodPost, "/api/teacher/attendance", teacherToken, gin.H{
		"userId": studentID, "status": "present",
	}); w.Code != http.StatusOK {
		t.Fatalf("mark: status %d body %s", w.Code, w.Body.String())
	}
	if w := env.do(t, http.MethodPost, "/api/teacher/attendance", teacherToken, gin.H{
		"userId": studentID, "status": "late",
	}); w.Code != http.StatusOK {
		t.Fatalf("remark: status %d", w.Code)
	}

	var sum attendance.Summary
	w = env.do(t, http.MethodGet, "/api/teacher/attendance-summary", teacherToken, nil)
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.Present != 0 || sum.Late != 1 || sum.Absent != 0 {
		t.Errorf("summary = %+v, want {present:0 absent:0 late:1}", sum)
	}

	// Marking a non-student subject is rejected.
	if w := env.do(t, http.MethodPost, "/api/teacher/attendance", teacherToken, gin.H{
		"userId": "no-such-user", "status": "present",
	}); w.Code != http.StatusBadRequest {
		t.Errorf("mark non-student: status %d, want 400", w.Code)
	}

	// Delete today's record; repeating is a no-op, not an error.
	if w := env.do(t, http.MethodDelete, "/api/teacher/attendance/"+studentID, teacherToken, nil); w.Code != http.StatusOK {
		t.Errorf("delete today: status %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/teacher/attendance/"+studentID, teacherToken, nil); w.Code != http.StatusOK {
		t.Errorf("repeat delete today: status %d, want 200", w.Code)
	}
}

func TestAuthGateStatuses(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodGet, "/api/student/profile", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("no token: status %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/student/profile", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("malformed header: status %d, want 400", w.Code)
	}

	if w := env.do(t, http.MethodGet, "/api/student/profile", "garbage", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status %d, want 401", w.Code)
	}
}

func TestLoginFailures(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice", "password": "pw1", "role": "student",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("register: status %d", w.Code)
	}

	cases := []gin.H{
		{"username": "alice", "password": "wrong", "role": "student"},
		{"username": "ghost", "password": "pw1", "role": "student"},
		{"username": "alice", "password": "pw1", "role": "admin"},
		{"username": "alice", "password": "pw1", "role": "teacher"},
	}
	for _, body := range cases {
		if w := env.do(t, http.MethodPost, "/api/auth/login", "", body); w.Code != http.StatusUnauthorized {
			t.Errorf("login %v: status %d, want 401", body, w.Code)
		}
	}

	if w := env.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing fields: status %d, want 400", w.Code)
	}
}

func TestPasswordReset(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": "alice", "password": "pw1", "role": "student",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("register: status %d", w.Code)
	}

	if w := env.do(t, http.MethodPost, "/api/auth/forgot-password", "", gin.H{
		"username": "alice", "newPassword": "pw9",
	}); w.Code != http.StatusOK {
		t.Fatalf("forgot-password: status %d body %s", w.Code, w.Body.String())
	}

	env.login(t, "alice", "pw9", "student")

	if w := env.do(t, http.MethodPost, "/api/auth/reset-password", "", gin.H{
		"username": "ghost", "newPassword": "pw9",
	}); w.Code != http.StatusNotFound {
		t.Errorf("reset unknown user: status %d, want 404", w.Code)
	}
}

func TestStudentOwnsRecordsOnly(t *testing.T) {
	env := newTestEnv(t)
	for _, u := range []string{"alice", "eve"} {
		w := env.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
			"username": u, "password": "pw", "role": "student",
		})
		if w.Code != http.StatusOK {
			t.Fatalf("register %s: status %d", u, w.Code)
		}
	}
	aliceToken := env.login(t, "alice", "pw", "student")
	eveToken := env.login(t, "eve", "pw", "student")

	w := env.do(t, http.MethodPost, "/api/student/attendance", aliceToken, gin.H{"status": "present"})
	if w.Code != http.StatusOK {
		t.Fatalf("check-in: status %d", w.Code)
	}
	var created struct {
		Record attendance.Record `json:"record"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	recID := created.Record.ID

	// Eve cannot see, update, or delete Alice's record; it reads as 404.
	if w := env.do(t, http.MethodPut, "/api/student/attendance/"+recID, eveToken, gin.H{"status": "late"}); w.Code != http.StatusNotFound {
		t.Errorf("foreign update: status %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/student/attendance/"+recID, eveToken, nil); w.Code != http.StatusNotFound {
		t.Errorf("foreign delete: status %d, want 404", w.Code)
	}

	if w := env.do(t, http.MethodPut, "/api/student/attendance/"+recID, aliceToken, gin.H{"status": "late"}); w.Code != http.StatusOK {
		t.Errorf("own update: status %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/student/attendance/"+recID, aliceToken, nil); w.Code != http.StatusOK {
		t.Errorf("own delete: status %d", w.Code)
	}
}

func TestAdminStudentLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t, "root", "rootpw")
	adminToken := env.login(t, "root", "rootpw", "admin")

	if w := env.do(t, http.MethodPost, "/api/admin/add-student", adminToken, gin.H{
		"username": "alice", "password": "pw1",
	}); w.Code != http.StatusOK {
		t.Fatalf("add-student: status %d", w.Code)
	}

	w := env.do(t, http.MethodGet, "/api/admin/students", adminToken, nil)
	var students []identity.User
	if err := json.Unmarshal(w.Body.Bytes(), &students); err != nil {
		t.Fatalf("decode students: %v", err)
	}
	if len(students) != 1 || students[0].Username != "alice" {
		t.Fatalf("students = %+v, want [alice]", students)
	}
	if bytes.Contains(w.Body.Bytes(), []byte("password")) {
		t.Error("student listing leaks password field")
	}

	if w := env.do(t, http.MethodDelete, "/api/admin/students/"+students[0].ID, adminToken, nil); w.Code != http.StatusOK {
		t.Errorf("delete student: status %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/admin/students/"+students[0].ID, adminToken, nil); w.Code != http.StatusNotFound {
		t.Errorf("delete missing student: status %d, want 404", w.Code)
	}

	// Student routes are closed to admins.
	if w := env.do(t, http.MethodGet, "/api/student/profile", adminToken, nil); w.Code != http.StatusForbidden {
		t.Errorf("admin on student route: status %d, want 403", w.Code)
	}
}

func TestDeleteTeacherEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedAdmin(t, "root", "rootpw")
	adminToken := env.login(t, "root", "rootpw", "admin")

	if w := env.do(t, http.MethodPost, "/api/admin/add-teacher", adminToken, gin.H{
		"username": "bob", "password": "pw2",
	}); w.Code != http.StatusOK {
		t.Fatalf("add-teacher: status %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/admin/teachers/bob", adminToken, nil); w.Code != http.StatusOK {
		t.Errorf("delete teacher: status %d", w.Code)
	}
	if w := env.do(t, http.MethodDelete, "/api/admin/teachers/bob", adminToken, nil); w.Code != http.StatusNotFound {
		t.Errorf("delete missing teacher: status %d, want 404", w.Code)
	}
}
