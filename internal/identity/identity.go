// Package identity unifies account lookup and credential resolution across
// the two backing stores: users (students and admins) live in the document
// store, teacher accounts live in Redis hashes.
package identity

import "errors"

// Roles known to the system. Each route is gated on exactly one of these.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

var (
	// ErrNotFound indicates the requested account does not exist.
	ErrNotFound = errors.New("account not found")
	// ErrConflict indicates an account with the same username already exists.
	ErrConflict = errors.New("account already exists")
	// ErrInvalidCredentials indicates the username, role, or password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User is a student or admin account stored in the document store.
// The password field holds a bcrypt hash and is never serialized.
type User struct {
	ID         string `bson:"_id" json:"id"`
	Username   string `bson:"username" json:"username"`
	Password   string `bson:"password" json:"-"`
	Role       string `bson:"role" json:"role"`
	IsApproved bool   `bson:"isApproved" json:"isApproved"`
	RollNo     string `bson:"rollNo,omitempty" json:"rollNo,omitempty"`
	ClassID    string `bson:"classId,omitempty" json:"classId,omitempty"`
}

// Teacher is an account stored as a Redis hash under teacher:<username>.
// There is no enforced schema beyond these conventional fields.
type Teacher struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
	Role     string `json:"role"`
}

// Filter narrows user lookups; zero fields are ignored.
type Filter struct {
	ID       string
	Username string
	Role     string
}
