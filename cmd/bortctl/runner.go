package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"bortsbooks/internal/config"
	"bortsbooks/internal/database"
	"bortsbooks/internal/server"
	"bortsbooks/internal/service"
	"bortsbooks/internal/storage"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var errMissingFile = errors.New("an import file argument is required")

// Runner holds the configuration shared by every bortctl command
type Runner struct {
	config *config.Config
	logger *zap.Logger
	output io.Writer
}

type RunnerOpts struct {
	Config *config.Config
	Logger *zap.Logger
	Output io.Writer
}

func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Runner{config: opts.Config, logger: opts.Logger, output: opts.Output}
}

// Command builds the bortctl command tree
func (r *Runner) Command() *cli.Command {
	return &cli.Command{
		Name:  "bortctl",
		Usage: "Operate the Bort's Books catalog from the command line",
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "Apply pending database migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "dir", Value: "migrations", Usage: "migrations directory"},
					&cli.BoolFlag{Name: "status", Usage: "only print the migration status"},
				},
				Action: r.Migrate,
			},
			{
				Name:      "import",
				Usage:     "Import a CSV or XLSX listing export",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "images", Usage: "scrape and download listing photos"},
					&cli.BoolFlag{Name: "debug", Usage: "include per-row diagnostics in the output"},
				},
				Action: r.Import,
			},
			{
				Name:   "backfill",
				Usage:  "Fetch images for imported products that have none",
				Action: r.Backfill,
			},
			{
				Name:  "create-admin",
				Usage: "Create a back-office account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
				},
				Action: r.CreateAdmin,
			},
		},
	}
}

func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	db, err := database.New(r.config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cmd.Bool("status") {
		states, err := database.MigrationStatus(ctx, db.DB(), cmd.String("dir"))
		if err != nil {
			return err
		}
		return r.writeJSON(states)
	}
	return database.RunMigrations(ctx, db.DB(), cmd.String("dir"), r.logger)
}

func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return errMissingFile
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	return r.withServices(ctx, func(services *server.Services) error {
		result, err := services.Import.ImportFile(ctx, path, file, service.ImportOptions{
			FetchImages: cmd.Bool("images"),
			Debug:       cmd.Bool("debug"),
		})
		if err != nil {
			return err
		}
		return r.writeJSON(result)
	})
}

func (r *Runner) Backfill(ctx context.Context, cmd *cli.Command) error {
	return r.withServices(ctx, func(services *server.Services) error {
		result, err := services.Backfill.Run(ctx)
		if err != nil {
			return err
		}
		return r.writeJSON(result)
	})
}

func (r *Runner) CreateAdmin(ctx context.Context, cmd *cli.Command) error {
	return r.withServices(ctx, func(services *server.Services) error {
		admin, err := services.Admin.CreateAdmin(ctx, cmd.String("email"), cmd.String("password"))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(r.output, "created admin %s (%s)\n", admin.Email, admin.ID)
		return err
	})
}

// withServices opens the database and image store for the duration of fn
func (r *Runner) withServices(ctx context.Context, fn func(*server.Services) error) error {
	db, err := database.New(r.config.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := storage.New(ctx, r.config.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize image store: %w", err)
	}

	return fn(server.NewServices(r.config, db.DB(), store, r.logger))
}

func (r *Runner) writeJSON(data any) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(r.output, string(out))
	return err
}
