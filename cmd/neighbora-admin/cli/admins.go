package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/neighbora/neighbora-api/internal/admins"
	"github.com/neighbora/neighbora-api/internal/shared"
)

// cliActor is recorded as createdBy/lastModifiedBy for CLI provisioning.
const cliActor = "neighbora-admin"

// AdminStore is the subset of the admins service used by the CLI.
type AdminStore interface {
	List(ctx context.Context) ([]admins.Admin, error)
	Create(ctx context.Context, actor string, in admins.CreateInput) (*admins.Admin, error)
	DeactivateByFirebaseUID(ctx context.Context, actor, uid string) (*admins.Admin, error)
	SyncClaims(ctx context.Context, uid string) error
}

// AdminCLI provisions admin records outside the HTTP surface.
type AdminCLI struct {
	store AdminStore
}

// NewAdminCLI constructs the CLI over store.
func NewAdminCLI(store AdminStore) (*AdminCLI, error) {
	if store == nil {
		return nil, errors.New("admin cli: store is required")
	}
	return &AdminCLI{store: store}, nil
}

// Options are shared by every admin command.
type Options struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

func (o *Options) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// AddOptions defines the flags of the add command.
type AddOptions struct {
	Options
	FirebaseUID   string
	Email         string
	Name          string
	Role          string
	CondominiumID string
	Permissions   []string
}

// AddCommand registers an admin and mirrors its claims.
func (c *AdminCLI) AddCommand(ctx context.Context, opts AddOptions) int {
	opts.defaults()
	if strings.TrimSpace(opts.FirebaseUID) == "" || strings.TrimSpace(opts.Email) == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "admin add: --uid and --email are required")
		return 1
	}
	admin, err := c.store.Create(ctx, cliActor, admins.CreateInput{
		FirebaseUID:   opts.FirebaseUID,
		Email:         opts.Email,
		Name:          opts.Name,
		Role:          opts.Role,
		CondominiumID: opts.CondominiumID,
		Permissions:   opts.Permissions,
	})
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "admin add: %v\n", err)
		return exitCode(err)
	}
	if opts.JSONOutput {
		return encode(opts.Options, "admin add", admin)
	}
	_, _ = fmt.Fprintf(opts.Stdout, "added %s %s (%s)\n", admin.Role, admin.FirebaseUID, admin.Email)
	return 0
}

// ListCommand prints the active admins.
func (c *AdminCLI) ListCommand(ctx context.Context, opts Options) int {
	opts.defaults()
	list, err := c.store.List(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "admin list: %v\n", err)
		return 1
	}
	if list == nil {
		list = []admins.Admin{}
	}
	if opts.JSONOutput {
		return encode(opts, "admin list", list)
	}
	if len(list) == 0 {
		_, _ = fmt.Fprintln(opts.Stdout, "no active admins")
		return 0
	}
	tw := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "UID\tEMAIL\tROLE\tCONDOMINIUM")
	for _, a := range list {
		condo := "-"
		if a.CondominiumID != nil {
			condo = a.CondominiumID.Hex()
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", a.FirebaseUID, a.Email, a.Role, condo)
	}
	_ = tw.Flush()
	return 0
}

// RemoveOptions defines the flags of the remove command.
type RemoveOptions struct {
	Options
	FirebaseUID string
}

// RemoveCommand deactivates the admin record of a uid.
func (c *AdminCLI) RemoveCommand(ctx context.Context, opts RemoveOptions) int {
	opts.defaults()
	if strings.TrimSpace(opts.FirebaseUID) == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "admin remove: --uid is required")
		return 1
	}
	admin, err := c.store.DeactivateByFirebaseUID(ctx, cliActor, opts.FirebaseUID)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "admin remove: %v\n", err)
		return exitCode(err)
	}
	if opts.JSONOutput {
		return encode(opts.Options, "admin remove", admin)
	}
	_, _ = fmt.Fprintf(opts.Stdout, "deactivated %s\n", admin.FirebaseUID)
	return 0
}

// ClaimsCommand rewrites the provider claims of a uid from its record.
func (c *AdminCLI) ClaimsCommand(ctx context.Context, opts RemoveOptions) int {
	opts.defaults()
	if strings.TrimSpace(opts.FirebaseUID) == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "admin claims: --uid is required")
		return 1
	}
	if err := c.store.SyncClaims(ctx, opts.FirebaseUID); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "admin claims: %v\n", err)
		return exitCode(err)
	}
	if opts.JSONOutput {
		return encode(opts.Options, "admin claims", map[string]any{"uid": opts.FirebaseUID, "synced": true})
	}
	_, _ = fmt.Fprintf(opts.Stdout, "claims synced for %s\n", opts.FirebaseUID)
	return 0
}

// exitCode maps domain failures to distinct codes so scripts can branch.
func exitCode(err error) int {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return 3
	case errors.Is(err, shared.ErrConflict):
		return 4
	case errors.Is(err, shared.ErrProviderUnavailable):
		return 5
	default:
		return 1
	}
}

func encode(opts Options, command string, v any) int {
	enc := json.NewEncoder(opts.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "%s: encode json: %v\n", command, err)
		return 1
	}
	return 0
}
