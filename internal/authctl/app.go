// Package authctl implements the operator CLI: password hashing, schema
// migrations and user provisioning against the server's database.
package authctl

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/config"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

const minPasswordLength = 6

var ErrUnknownCommand = errors.New("unknown command")

const usage = `Usage: authctl <command> [flags]

Server flags (-d, -e, -l, -c ...) and environment variables select the
database and bcrypt cost, as for the server.

Commands:
  hash                            read a password, print its bcrypt hash
  migrate                         apply database migrations
  create-user -name N -email E    read a password, create the user
  help                            show this message
`

type App struct {
	config *config.Config
	out    io.Writer
	logger logging.Logger

	// openDB is a seam for tests.
	openDB func(dsn string) (*sql.DB, error)
	rm     repomanager.RepositoryManager
}

func NewApp(c *config.Config, out io.Writer, l logging.Logger) *App {
	return &App{
		config: c,
		out:    out,
		logger: l.With("module", "authctl"),
		openDB: repomanager.Open,
		rm:     repomanager.NewPostgresRepositoryManager(),
	}
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	cmd, rest := flagx.Subcommand(args)

	switch cmd {
	case "hash":
		return a.hash()
	case "migrate":
		return a.migrate(ctx)
	case "create-user":
		return a.createUser(ctx, rest)
	case "", "help":
		_, err := fmt.Fprint(a.out, usage)
		return err
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

func (a *App) hash() error {
	pw, err := GetPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}
	defer wipe(pw)

	h, err := auth.NewHasher(a.config.BcryptCost).Hash(string(pw))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, h)
	return err
}

func (a *App) withDB(ctx context.Context, fn func(db *sql.DB) error) error {
	db, err := a.openDB(a.config.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return fn(db)
}

func (a *App) migrate(ctx context.Context) error {
	return a.withDB(ctx, func(db *sql.DB) error {
		if err := a.rm.RunMigrations(ctx, db); err != nil {
			return err
		}
		a.logger.Info(ctx, "migrations applied")
		_, err := fmt.Fprintln(a.out, "migrations applied")
		return err
	})
}

func (a *App) createUser(ctx context.Context, args []string) error {
	var name, email string

	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(a.out)
	fs.StringVar(&name, "name", "", "display name")
	fs.StringVar(&email, "email", "", "login email")
	if err := fs.Parse(flagx.FilterArgs(args, "name", "email")); err != nil {
		return err
	}
	if name == "" || email == "" {
		return errors.New("create-user requires -name and -email")
	}

	pw, err := GetNewPassword(a.out, minPasswordLength)
	if err != nil {
		return err
	}
	defer wipe(pw)

	return a.withDB(ctx, func(db *sql.DB) error {
		us := services.NewUserService(db, a.rm, auth.NewHasher(a.config.BcryptCost), a.logger)
		u, err := us.Register(ctx, name, email, string(pw))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(a.out, "created user %d <%s>\n", u.ID, u.Email)
		return err
	})
}
