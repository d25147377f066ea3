package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/vytor/realorai/internal/app"
	"github.com/vytor/realorai/internal/config"
)

// RootOptions holds global flags and the hooks commands use to reach the store.
type RootOptions struct {
	Format string // "json" | "text"

	LoadConfig func() (config.Config, error)
	AppOptions []app.Option
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the puzzlectl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{LoadConfig: loadConfig}

	cmd := &cobra.Command{
		Use:   "puzzlectl",
		Short: "Administer the daily real-or-AI puzzle",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewScheduleCommand(opts))
	cmd.AddCommand(NewBatchCommand(opts))
	cmd.AddCommand(NewDayCommand(opts))
	cmd.AddCommand(NewDaysCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

func loadConfig() (config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// withApp builds the app for one command and closes it afterwards.
func withApp(ctx context.Context, opts *RootOptions, fn func(a *app.App) error) error {
	cfg, err := opts.LoadConfig()
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, opts.AppOptions...)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
