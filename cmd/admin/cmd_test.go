package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/apperr"
	"rollcall/internal/auth"
	"rollcall/internal/directory"
	"rollcall/internal/memstore"
)

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantOutput string
}

func setup(t *testing.T) (*commandLine, *bytes.Buffer, *directory.Service) {
	t.Helper()
	out := &bytes.Buffer{}
	db := memstore.New(nil)
	dir := directory.NewService(db, nil, nil)
	return &commandLine{
		out:      out,
		users:    db.Users(),
		teachers: dir,
		issuer:   auth.NewIssuer("rollcall-test", "secret", time.Minute, time.Hour),
		migrate:  func(context.Context) error { return nil },
	}, out, dir
}

func Test_commandLine_run(t *testing.T) {
	tests := []cliTest{
		{name: "no command", args: nil, wantErr: errHelp, wantOutput: "Usage:"},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp, wantOutput: "Usage:"},
		{name: "migrate", args: []string{"migrate"}, wantOutput: "schema up to date"},
		{name: "create-user without username", args: []string{"create-user"}, wantErr: errHelp},
		{name: "bad flag", args: []string{"issue-token", "-nope"}, wantErr: errHelp},
		{name: "create-user", args: []string{"create-user", "-username", "ms.k"}, wantOutput: "refresh_token: "},
		{name: "issue-token for unknown user", args: []string{"issue-token", "-username", "ghost"}, wantErr: apperr.ErrNotFound},
		{name: "delete unknown user", args: []string{"delete-user", "-username", "ghost"}, wantErr: apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, out, _ := setup(t)
			err := cli.run(append([]string{"admin"}, tt.args...))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Contains(t, out.String(), tt.wantOutput)
		})
	}
}

func Test_commandLine_migrateFailure(t *testing.T) {
	cli, _, _ := setup(t)
	boom := errors.New("boom")
	cli.migrate = func(context.Context) error { return boom }
	assert.ErrorIs(t, cli.run([]string{"admin", "migrate"}), boom)
}

func Test_commandLine_createAndIssue(t *testing.T) {
	cli, out, _ := setup(t)
	require.NoError(t, cli.run([]string{"admin", "create-user", "-username", "ms.k"}))
	assert.ErrorIs(t, cli.run([]string{"admin", "create-user", "-username", "ms.k"}), apperr.ErrConflict)

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "issue-token", "-username", "ms.k"}))
	assert.Contains(t, out.String(), "access_token: ")

	u, err := cli.users.GetByUsername(context.Background(), "ms.k")
	require.NoError(t, err)
	var access string
	for _, line := range bytes.Split(out.Bytes(), []byte("\n")) {
		if v, ok := bytes.CutPrefix(line, []byte("access_token: ")); ok {
			access = string(v)
		}
	}
	claims, err := cli.issuer.Parse(access, auth.KindAccess)
	require.NoError(t, err)
	assert.Equal(t, u.ID.String(), claims.Subject)
}

func Test_commandLine_deleteUserReleasesClassrooms(t *testing.T) {
	cli, out, dir := setup(t)
	ctx := context.Background()
	require.NoError(t, cli.run([]string{"admin", "create-user", "-username", "ms.k"}))
	u, err := cli.users.GetByUsername(ctx, "ms.k")
	require.NoError(t, err)

	classroom, err := dir.CreateClassroom(ctx, directory.NewClassroom{
		Name:      "10A",
		TeacherID: uuid.NullUUID{UUID: u.ID, Valid: true},
	})
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, cli.run([]string{"admin", "delete-user", "-username", "ms.k"}))
	assert.Contains(t, out.String(), "1 classroom(s) left without teacher")

	got, err := dir.GetClassroom(ctx, classroom.ID)
	require.NoError(t, err)
	assert.False(t, got.TeacherID.Valid)
	_, err = cli.users.GetByUsername(ctx, "ms.k")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
