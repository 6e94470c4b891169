package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/membreg/reconciler/internal/config"
	"github.com/membreg/reconciler/internal/report"
	"github.com/membreg/reconciler/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type StatusOptions struct {
	Scope  string
	Output string
}

func NewCmdStatus() *cobra.Command {
	o := &StatusOptions{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Display the number of candidates per verification status.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := report.ValidateFormat(o.Output); err != nil {
				return err
			}
			return o.Run(cmd.Context(), cmd)
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *StatusOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVar(&o.Scope, "scope", o.Scope, "Only count candidates of this scope code.")
	fs.StringVarP(&o.Output, "output", "o", o.Output, fmt.Sprintf("Output format. One of: (%s).", strings.Join(report.LegalOutputTypes(), ", ")))
}

func (o *StatusOptions) Run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("reading configuration: %w", err)
	}

	undo := initLogging(cfg)
	defer undo()

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	filter := store.NewCandidateQueryFilter()
	if o.Scope != "" {
		filter = filter.ByScope(o.Scope)
	}

	counts, err := s.Candidate().CountByStatus(ctx, filter)
	if err != nil {
		return err
	}

	return report.WriteStatusCounts(cmd.OutOrStdout(), counts, o.Output)
}
