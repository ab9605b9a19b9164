package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ExitError carries a non-zero exit code out of a command.
type ExitError struct {
	Code int
}

func (e ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// StoreOpener loads the role data for a single CLI invocation.
type StoreOpener func(ctx context.Context) (SnapshotSource, func(), error)

// JobsOpener connects to the job queue for a single CLI invocation.
type JobsOpener func(ctx context.Context) (*JobsCLI, error)

// NewRBACCmd creates the rbac command group.
func NewRBACCmd(open StoreOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rbac",
		Short: "Inspect roles and permissions",
	}
	cmd.AddCommand(newEffectiveCmd(open), newCheckIntegrityCmd(open))
	return cmd
}

func newEffectiveCmd(open StoreOpener) *cobra.Command {
	var opts EffectiveOptions
	cmd := &cobra.Command{
		Use:   "effective",
		Short: "Print the effective permissions of one or more roles",
		Long: `Resolve role inheritance and print every permission the given roles
hold. Unknown roles grant nothing and are reported on stderr.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCLI(cmd, open, func(c *RBACCLI) int {
				opts.Stdout, opts.Stderr = cmd.OutOrStdout(), cmd.ErrOrStderr()
				return c.EffectiveCommand(cmd.Context(), opts)
			})
		},
	}
	cmd.Flags().StringSliceVar(&opts.Roles, "role", nil, "role id (repeatable)")
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newCheckIntegrityCmd(open StoreOpener) *cobra.Command {
	var opts IntegrityOptions
	cmd := &cobra.Command{
		Use:   "check-integrity",
		Short: "Report dangling references, cycles and duplicate root roles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withCLI(cmd, open, func(c *RBACCLI) int {
				opts.Stdout, opts.Stderr = cmd.OutOrStdout(), cmd.ErrOrStderr()
				return c.IntegrityCommand(cmd.Context(), opts)
			})
		},
	}
	cmd.Flags().BoolVar(&opts.JSONOutput, "json", false, "output as JSON")
	return cmd
}

func withCLI(cmd *cobra.Command, open StoreOpener, run func(*RBACCLI) int) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
		cmd.SetContext(ctx)
	}
	source, closeFn, err := open(ctx)
	if err != nil {
		return fmt.Errorf("load rbac data: %w", err)
	}
	defer closeFn()
	c, err := NewRBACCLI(source)
	if err != nil {
		return err
	}
	if code := run(c); code != 0 {
		return ExitError{Code: code}
	}
	return nil
}

// NewJobsCmd creates the jobs command group.
func NewJobsCmd(open JobsOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage background jobs",
	}

	var reload bool
	trigger := &cobra.Command{
		Use:   "trigger <task>",
		Short: "Enqueue a background job now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			info, err := c.Trigger(cmd.Context(), args[0], reload)
			if err != nil {
				return err
			}
			cmd.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
			return nil
		},
	}
	trigger.Flags().BoolVar(&reload, "reload", false, "re-read the role source before scanning")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show queue depth",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			s, err := c.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(s)
		},
	}

	cmd.AddCommand(trigger, stats)
	return cmd
}
