package identity

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
)

const teacherKeyPrefix = "teacher:"

// TeacherRepo persists teacher accounts as Redis hashes keyed teacher:<username>.
type TeacherRepo struct {
	client *redis.Client
}

// NewTeacherRepo creates a repo over the given Redis client.
func NewTeacherRepo(client *redis.Client) *TeacherRepo {
	return &TeacherRepo{client: client}
}

func teacherKey(username string) string {
	return teacherKeyPrefix + username
}

// Get returns the teacher stored under teacher:<username>. Existence is
// determined by key presence; an empty hash means not found.
func (r *TeacherRepo) Get(ctx context.Context, username string) (*Teacher, error) {
	fields, err := r.client.HGetAll(ctx, teacherKey(username)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	t := Teacher{
		ID:       fields["id"],
		Username: fields["username"],
		Password: fields["password"],
		Role:     fields["role"],
	}
	if t.Username == "" {
		t.Username = username
	}
	if t.Role == "" {
		t.Role = RoleTeacher
	}
	return &t, nil
}

// Insert writes a new teacher hash. The password must already be hashed.
func (r *TeacherRepo) Insert(ctx context.Context, t Teacher) error {
	return r.client.HSet(ctx, teacherKey(t.Username), map[string]interface{}{
		"id":       t.ID,
		"username": t.Username,
		"password": t.Password,
		"role":     RoleTeacher,
	}).Err()
}

// Exists reports whether a teacher hash is present for the username.
func (r *TeacherRepo) Exists(ctx context.Context, username string) (bool, error) {
	n, err := r.client.Exists(ctx, teacherKey(username)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes the teacher hash.
func (r *TeacherRepo) Delete(ctx context.Context, username string) error {
	n, err := r.client.Del(ctx, teacherKey(username)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// List scans all teacher:* keys and returns the stored accounts, passwords
// redacted. Keys that are not hashes are skipped.
func (r *TeacherRepo) List(ctx context.Context) ([]Teacher, error) {
	var teachers []Teacher
	iter := r.client.Scan(ctx, 0, teacherKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		kind, err := r.client.Type(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		if kind != "hash" {
			continue
		}
		username := strings.TrimPrefix(key, teacherKeyPrefix)
		t, err := r.Get(ctx, username)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		t.Password = ""
		teachers = append(teachers, *t)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return teachers, nil
}
