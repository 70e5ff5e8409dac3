package identity

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/auth"
)

// UserStore is the document-store side of the adapter.
type UserStore interface {
	Find(ctx context.Context, f Filter) (*User, error)
	Insert(ctx context.Context, u User) (User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, role string) ([]User, error)
	SetPassword(ctx context.Context, username, hash string) error
}

// TeacherStore is the key-value side of the adapter.
type TeacherStore interface {
	Get(ctx context.Context, username string) (*Teacher, error)
	Insert(ctx context.Context, t Teacher) error
	Exists(ctx context.Context, username string) (bool, error)
	Delete(ctx context.Context, username string) error
	List(ctx context.Context) ([]Teacher, error)
}

// Directory fronts both identity stores. It owns credential hashing on every
// write path and credential resolution at login.
type Directory struct {
	users    UserStore
	teachers TeacherStore
	hasher   auth.Hasher
}

// NewDirectory wires the two stores behind one adapter.
func NewDirectory(users UserStore, teachers TeacherStore, hasher auth.Hasher) *Directory {
	return &Directory{users: users, teachers: teachers, hasher: hasher}
}

// Authenticate resolves a login across the two stores by role and verifies
// the supplied password. Admins and students are document-store records with
// hashed credentials; teachers live in Redis and may still carry a legacy
// plaintext credential.
func (d *Directory) Authenticate(ctx context.Context, username, password, role string) (string, string, error) {
	switch role {
	case RoleAdmin, RoleStudent:
		user, err := d.users.Find(ctx, Filter{Username: username, Role: role})
		if err != nil {
			if err == ErrNotFound {
				return "", "", ErrInvalidCredentials
			}
			return "", "", err
		}
		if !auth.VerifyHash(password, user.Password) {
			return "", "", ErrInvalidCredentials
		}
		return user.ID, user.Role, nil
	case RoleTeacher:
		teacher, err := d.teachers.Get(ctx, username)
		if err != nil {
			if err == ErrNotFound {
				return "", "", ErrInvalidCredentials
			}
			return "", "", err
		}
		if teacher.Password == "" || !auth.VerifyLegacy(password, teacher.Password) {
			return "", "", ErrInvalidCredentials
		}
		id := teacher.ID
		if id == "" {
			id = strconv.FormatInt(time.Now().UnixMilli(), 10)
		}
		return id, RoleTeacher, nil
	default:
		return "", "", ErrInvalidCredentials
	}
}

// CreateStudent registers a student account. Self-registration and the admin
// add-student path both land here. Duplicate usernames within the student
// role are a conflict.
func (d *Directory) CreateStudent(ctx context.Context, username, password string) (User, error) {
	if _, err := d.users.Find(ctx, Filter{Username: username, Role: RoleStudent}); err == nil {
		return User{}, ErrConflict
	} else if err != ErrNotFound {
		return User{}, err
	}
	hash, err := d.hasher.Hash(password)
	if err != nil {
		return User{}, err
	}
	return d.users.Insert(ctx, User{
		ID:         uuid.NewString(),
		Username:   username,
		Password:   hash,
		Role:       RoleStudent,
		IsApproved: true,
	})
}

// CreateTeacher writes a teacher hash to the key-value store. New teacher
// records always store a bcrypt hash.
func (d *Directory) CreateTeacher(ctx context.Context, username, password string) (Teacher, error) {
	exists, err := d.teachers.Exists(ctx, username)
	if err != nil {
		return Teacher{}, err
	}
	if exists {
		return Teacher{}, ErrConflict
	}
	hash, err := d.hasher.Hash(password)
	if err != nil {
		return Teacher{}, err
	}
	t := Teacher{
		ID:       uuid.NewString(),
		Username: username,
		Password: hash,
		Role:     RoleTeacher,
	}
	if err := d.teachers.Insert(ctx, t); err != nil {
		return Teacher{}, err
	}
	return t, nil
}

// ResetPassword replaces the credential of a document-store user. There is
// no reset path for teacher records.
func (d *Directory) ResetPassword(ctx context.Context, username, newPassword string) error {
	if _, err := d.users.Find(ctx, Filter{Username: username}); err != nil {
		return err
	}
	hash, err := d.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return d.users.SetPassword(ctx, username, hash)
}

// StudentProfile returns the student with the given id, password redacted.
func (d *Directory) StudentProfile(ctx context.Context, id string) (*User, error) {
	user, err := d.users.Find(ctx, Filter{ID: id, Role: RoleStudent})
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

// Students lists all student accounts, passwords redacted.
func (d *Directory) Students(ctx context.Context) ([]User, error) {
	return d.users.List(ctx, RoleStudent)
}

// DeleteStudent removes a student account by id.
func (d *Directory) DeleteStudent(ctx context.Context, id string) error {
	return d.users.Delete(ctx, id)
}

// Teachers lists all teacher accounts, passwords redacted.
func (d *Directory) Teachers(ctx context.Context) ([]Teacher, error) {
	return d.teachers.List(ctx)
}

// DeleteTeacher removes a teacher hash by username.
func (d *Directory) DeleteTeacher(ctx context.Context, username string) error {
	return d.teachers.Delete(ctx, username)
}

// IsStudent reports whether the id belongs to an existing student account.
// The attendance ledger uses this as its create precondition.
func (d *Directory) IsStudent(ctx context.Context, id string) (bool, error) {
	_, err := d.users.Find(ctx, Filter{ID: id, Role: RoleStudent})
	if err == ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
