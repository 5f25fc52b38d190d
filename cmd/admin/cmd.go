package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/google/uuid"

	"rollcall/internal/auth"
)

var errHelp = errors.New("help provided")

type userStore interface {
	Create(ctx context.Context, username string) (auth.User, error)
	GetByUsername(ctx context.Context, username string) (auth.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type teacherReleaser interface {
	ReleaseTeacher(ctx context.Context, teacherID uuid.UUID) (int64, error)
}

type commandLine struct {
	out      io.Writer
	users    userStore
	teachers teacherReleaser
	issuer   *auth.Issuer
	migrate  func(ctx context.Context) error
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate                        - create or update the database schema")
	fmt.Fprintln(cli.out, "  create-user -username USERNAME - add a user and print a token pair")
	fmt.Fprintln(cli.out, "  issue-token -username USERNAME - print a fresh token pair for a user")
	fmt.Fprintln(cli.out, "  delete-user -username USERNAME - remove a user, keeping their classrooms")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	switch args[1] {
	case "migrate":
		if err := cli.migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(cli.out, "schema up to date")
		return nil
	case "create-user", "issue-token", "delete-user":
		fs := flag.NewFlagSet(args[1], flag.ContinueOnError)
		fs.SetOutput(cli.out)
		username := fs.String("username", "", "The user's unique username.")
		if err := fs.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *username == "" {
			fs.Usage()
			return errHelp
		}
		switch args[1] {
		case "create-user":
			return cli.createUser(ctx, *username)
		case "issue-token":
			return cli.issueToken(ctx, *username)
		default:
			return cli.deleteUser(ctx, *username)
		}
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) createUser(ctx context.Context, username string) error {
	u, err := cli.users.Create(ctx, username)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %s created with id %s\n", u.Username, u.ID)
	return cli.printTokens(u)
}

func (cli *commandLine) issueToken(ctx context.Context, username string) error {
	u, err := cli.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	return cli.printTokens(u)
}

// deleteUser detaches the user from their classrooms before removing them.
func (cli *commandLine) deleteUser(ctx context.Context, username string) error {
	u, err := cli.users.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	n, err := cli.teachers.ReleaseTeacher(ctx, u.ID)
	if err != nil {
		return err
	}
	if err := cli.users.Delete(ctx, u.ID); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %s deleted, %d classroom(s) left without teacher\n", u.Username, n)
	return nil
}

func (cli *commandLine) printTokens(u auth.User) error {
	pair, err := cli.issuer.Issue(u.ID.String(), "teacher")
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}
	fmt.Fprintf(cli.out, "access_token: %s\nrefresh_token: %s\n", pair.AccessToken, pair.RefreshToken)
	return nil
}
