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

	"github.com/madrasa-erp/madrasa-erp/internal/rbac"
)

// ExitFindings is returned by the integrity command when problems were found.
const ExitFindings = 10

// SnapshotSource yields the role data the operator commands inspect.
type SnapshotSource interface {
	Snapshot() *rbac.Snapshot
}

// RBACCLI offers read-only inspection of the loaded role data.
type RBACCLI struct {
	source SnapshotSource
}

// NewRBACCLI constructs a new helper instance.
func NewRBACCLI(source SnapshotSource) (*RBACCLI, error) {
	if source == nil {
		return nil, errors.New("rbac cli: snapshot source required")
	}
	return &RBACCLI{source: source}, nil
}

// EffectiveOptions defines available flags for the rbac effective command.
type EffectiveOptions struct {
	Roles      []string
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// EffectiveReport describes the JSON response for rbac effective.
type EffectiveReport struct {
	Roles          []string `json:"roles"`
	EffectiveRoles []string `json:"effective_roles"`
	Universal      bool     `json:"universal"`
	Permissions    []string `json:"permissions"`
	UnknownRoles   []string `json:"unknown_roles,omitempty"`
}

// Effective resolves the union of permissions held by the given roles.
func (c *RBACCLI) Effective(roleIDs []string) EffectiveReport {
	snap := c.source.Snapshot()
	report := EffectiveReport{Roles: roleIDs}
	for _, id := range roleIDs {
		if _, ok := snap.Graph().Role(id); !ok {
			report.UnknownRoles = append(report.UnknownRoles, id)
		}
	}
	res := snap.Resolve(roleIDs...)
	report.Universal = res.Universal
	report.Permissions = res.Permissions.Slice()
	report.EffectiveRoles = snap.EffectiveRoles(roleIDs...)
	return report
}

// EffectiveCommand prints the effective permission set and returns an exit code.
func (c *RBACCLI) EffectiveCommand(ctx context.Context, opts EffectiveOptions) int {
	opts = withWriters(opts)
	roles := splitRoles(opts.Roles)
	if len(roles) == 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "rbac effective: at least one --role is required")
		return 1
	}
	report := c.Effective(roles)
	for _, id := range report.UnknownRoles {
		_, _ = fmt.Fprintf(opts.Stderr, "rbac effective: unknown role %q grants nothing\n", id)
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(report); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "rbac effective: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	renderEffectiveHuman(opts.Stdout, report)
	return 0
}

// IntegrityOptions defines available flags for the rbac check-integrity command.
type IntegrityOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// IntegritySummary describes the JSON response for rbac check-integrity.
type IntegritySummary struct {
	OK       bool           `json:"ok"`
	Version  uint64         `json:"version"`
	Findings []rbac.Finding `json:"findings"`
}

// IntegrityCommand runs the integrity scan. It exits with ExitFindings when
// anything is reported.
func (c *RBACCLI) IntegrityCommand(ctx context.Context, opts IntegrityOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	snap := c.source.Snapshot()
	findings := rbac.CheckIntegrity(snap)
	if findings == nil {
		findings = []rbac.Finding{}
	}
	if opts.JSONOutput {
		summary := IntegritySummary{OK: len(findings) == 0, Version: snap.Version(), Findings: findings}
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "rbac check-integrity: encode json: %v\n", err)
			return 1
		}
	} else if len(findings) == 0 {
		_, _ = fmt.Fprintf(opts.Stdout, "No integrity problems in %d roles.\n", snap.Graph().Len())
	} else {
		_, _ = fmt.Fprintf(opts.Stdout, "%d problem(s) detected:\n", len(findings))
		for _, f := range findings {
			_, _ = fmt.Fprintf(opts.Stdout, "  - %s\n", f)
		}
	}
	if len(findings) > 0 {
		return ExitFindings
	}
	return 0
}

func renderEffectiveHuman(out io.Writer, report EffectiveReport) {
	_, _ = fmt.Fprintf(out, "Roles: %s\n", strings.Join(report.EffectiveRoles, " -> "))
	if report.Universal {
		_, _ = fmt.Fprintln(out, "Universal: holds every permission, including ones added later.")
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "#\tPERMISSION\n")
	for i, p := range report.Permissions {
		_, _ = fmt.Fprintf(tw, "%d\t%s\n", i+1, p)
	}
	_ = tw.Flush()
}

func withWriters(opts EffectiveOptions) EffectiveOptions {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	return opts
}

// splitRoles accepts repeated flags as well as comma separated lists.
func splitRoles(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
