package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/neighbora/neighbora-api/cmd/neighbora-admin/cli"
	"github.com/neighbora/neighbora-api/internal/admins"
	"github.com/neighbora/neighbora-api/internal/app"
	"github.com/neighbora/neighbora-api/internal/identity"
	"github.com/neighbora/neighbora-api/internal/platform/mongodb"
	"github.com/neighbora/neighbora-api/jobs"
)

const usage = `usage: neighbora-admin <command> [flags]

commands:
  add      --uid UID --email EMAIL [--name NAME] [--role admin|superadmin] [--condominium ID] [--permissions a,b]
  list     list active admins
  remove   --uid UID
  claims   --uid UID   rewrite provider custom claims from the admin record
  jobs     trigger|queue|scheduled

every command accepts --json`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, usage)
		return 2
	}
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	logger := app.NewLogger(cfg)

	command, rest := args[0], args[1:]
	if command == "jobs" {
		return runJobs(ctx, cfg.Redis().Asynq(), rest, stdout, stderr)
	}

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(stderr)
	jsonOut := fs.Bool("json", false, "emit JSON")
	uid := fs.String("uid", "", "firebase uid")
	email := fs.String("email", "", "admin email")
	name := fs.String("name", "", "display name")
	role := fs.String("role", "", "admin or superadmin")
	condo := fs.String("condominium", "", "condominium id")
	perms := fs.String("permissions", "", "comma separated permissions")
	if err := fs.Parse(rest); err != nil {
		return 2
	}

	mongoClient, db, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "connect mongodb: %v\n", err)
		return 1
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Warn("mongodb disconnect", slog.Any("error", err))
		}
	}()

	var provider identity.Provider
	firebaseProvider, err := identity.NewFirebaseProvider(ctx, identity.FirebaseConfig{
		ProjectID:          cfg.FirebaseProjectID,
		ServiceAccountJSON: cfg.FirebaseServiceAccountKey,
		ServiceAccountPath: cfg.FirebaseServiceAccountPath,
	})
	switch {
	case err == nil:
		provider = firebaseProvider
	case errors.Is(err, identity.ErrNotConfigured):
		logger.Warn("firebase not configured, custom claims will not be synced")
	default:
		_, _ = fmt.Fprintf(stderr, "init firebase: %v\n", err)
		return 1
	}

	adminCLI, err := cli.NewAdminCLI(admins.NewService(admins.NewRepository(db), provider, logger))
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		return 1
	}
	opts := cli.Options{JSONOutput: *jsonOut, Stdout: stdout, Stderr: stderr}

	switch command {
	case "add":
		return adminCLI.AddCommand(ctx, cli.AddOptions{
			Options:       opts,
			FirebaseUID:   *uid,
			Email:         *email,
			Name:          *name,
			Role:          *role,
			CondominiumID: *condo,
			Permissions:   splitList(*perms),
		})
	case "list":
		return adminCLI.ListCommand(ctx, opts)
	case "remove":
		return adminCLI.RemoveCommand(ctx, cli.RemoveOptions{Options: opts, FirebaseUID: *uid})
	case "claims":
		return adminCLI.ClaimsCommand(ctx, cli.RemoveOptions{Options: opts, FirebaseUID: *uid})
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n%s\n", command, usage)
		return 2
	}
}

func runJobs(ctx context.Context, redisOpts asynq.RedisClientOpt, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, "jobs: expected trigger, queue or scheduled")
		return 2
	}
	fs := flag.NewFlagSet("jobs "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	size := fs.Int("size", 10, "page size for scheduled")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	jobsCLI := cli.NewJobsCLI(redisOpts)
	defer func() { _ = jobsCLI.Close() }()

	var out any
	switch args[0] {
	case "trigger":
		name := fs.Arg(0)
		if name == "" {
			name = jobs.TaskOverdueSweep
		}
		info, err := jobsCLI.Trigger(ctx, name)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs trigger: %v\n", err)
			return 1
		}
		out = map[string]string{"id": info.ID, "type": info.Type, "queue": info.Queue}
	case "queue":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs queue: %v\n", err)
			return 1
		}
		out = stats
	case "scheduled":
		infos, err := jobsCLI.ListScheduled(ctx, *size)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs scheduled: %v\n", err)
			return 1
		}
		rows := make([]map[string]any, 0, len(infos))
		for _, info := range infos {
			rows = append(rows, map[string]any{"id": info.ID, "type": info.Type, "nextProcessAt": info.NextProcessAt, "retried": info.Retried})
		}
		out = rows
	default:
		_, _ = fmt.Fprintf(stderr, "jobs: unknown subcommand %q\n", strings.TrimSpace(args[0]))
		return 2
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		_, _ = fmt.Fprintf(stderr, "jobs: encode json: %v\n", err)
		return 1
	}
	return 0
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
