package memstore

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"rollcall/internal/apperr"
	"rollcall/internal/auth"
)

// Users is the users table of a DB. It has the method set of
// auth.UserRepository.
type Users struct {
	db *DB
}

// Users returns the users table.
func (db *DB) Users() *Users {
	return &Users{db: db}
}

// Create inserts a user. Usernames are unique.
func (u *Users) Create(_ context.Context, username string) (auth.User, error) {
	if strings.TrimSpace(username) == "" {
		return auth.User{}, apperr.Invalid("username required")
	}
	db := u.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, taken := db.usernames[username]; taken {
		return auth.User{}, apperr.Conflict("username %q taken", username)
	}
	user := auth.User{ID: uuid.New(), Username: username, CreatedAt: db.now().UTC()}
	db.users[user.ID] = user
	db.usernames[username] = user.ID
	return user, nil
}

// GetByID returns a single user by id.
func (u *Users) GetByID(_ context.Context, id uuid.UUID) (auth.User, error) {
	u.db.mu.RLock()
	defer u.db.mu.RUnlock()
	user, ok := u.db.users[id]
	if !ok {
		return auth.User{}, apperr.NotFound("user %s", id)
	}
	return user, nil
}

// GetByUsername returns a single user by username.
func (u *Users) GetByUsername(_ context.Context, username string) (auth.User, error) {
	u.db.mu.RLock()
	defer u.db.mu.RUnlock()
	id, ok := u.db.usernames[username]
	if !ok {
		return auth.User{}, apperr.NotFound("user %q", username)
	}
	return u.db.users[id], nil
}

// Delete removes a user. Classrooms they taught are kept with no teacher.
func (u *Users) Delete(_ context.Context, id uuid.UUID) error {
	db := u.db
	db.mu.Lock()
	defer db.mu.Unlock()
	user, ok := db.users[id]
	if !ok {
		return apperr.NotFound("user %s", id)
	}
	for cid, c := range db.classrooms {
		if c.TeacherID.Valid && c.TeacherID.UUID == id {
			c.TeacherID = uuid.NullUUID{}
			db.classrooms[cid] = c
		}
	}
	delete(db.usernames, user.Username)
	delete(db.users, id)
	return nil
}
