package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vytor/realorai/internal/app"
	"github.com/vytor/realorai/internal/auth"
	"github.com/vytor/realorai/internal/models"
	"gopkg.in/yaml.v3"
)

// NewMigrateCommand applies pending migrations and reports the schema version.
func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}
			store, err := app.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			version, dirty, err := store.SchemaVersion(cmd.Context())
			if err != nil {
				return err
			}
			result := map[string]any{"driver": store.Driver, "version": version, "dirty": dirty}
			return output(cmd.OutOrStdout(), opts, result, func(w io.Writer) {
				fmt.Fprintf(w, "%s schema at version %d (dirty=%t)\n", store.Driver, version, dirty)
			})
		},
	}
}

// NewScheduleCommand places one finished pair.
func NewScheduleCommand(opts *RootOptions) *cobra.Command {
	var date, human, ai string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Place a human/AI pair on a date or the next day with room",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pair := models.ImagePair{HumanImageURL: human, AIImageURL: ai}
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				var (
					day *models.PuzzleDay
					err error
				)
				if date != "" {
					day, err = a.Scheduler.ScheduleExplicit(cmd.Context(), date, pair)
				} else {
					_, day, err = a.Scheduler.ScheduleNextAvailable(cmd.Context(), pair)
				}
				if err != nil {
					return err
				}
				return output(cmd.OutOrStdout(), opts, day, func(w io.Writer) { printDay(w, day) })
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "civil day (YYYY-MM-DD); next available when empty")
	cmd.Flags().StringVar(&human, "human", "", "human image URL")
	cmd.Flags().StringVar(&ai, "ai", "", "AI image URL")
	_ = cmd.MarkFlagRequired("human")
	_ = cmd.MarkFlagRequired("ai")
	return cmd
}

// Manifest is the YAML document read by the batch command.
type Manifest struct {
	BatchID string                  `yaml:"batch_id,omitempty"`
	Items   []models.GenerationItem `yaml:"items"`
}

// LoadManifest reads and checks a batch manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(m.Items) == 0 {
		return nil, fmt.Errorf("manifest %s has no items", path)
	}
	for i, item := range m.Items {
		if item.HumanImageURL == "" {
			return nil, fmt.Errorf("manifest %s: item %d has no human_image_url", path, i)
		}
	}
	return &m, nil
}

// NewBatchCommand runs a generation batch in the foreground.
func NewBatchCommand(opts *RootOptions) *cobra.Command {
	var manifestPath string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Generate AI counterparts for a manifest of human images and schedule them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				report := a.Pipeline.RunBatch(cmd.Context(), manifest.BatchID, manifest.Items)
				if err := output(cmd.OutOrStdout(), opts, report, func(w io.Writer) { printReport(w, report) }); err != nil {
					return err
				}
				if report.Scheduled == 0 && report.Failed > 0 {
					return fmt.Errorf("batch %s: no item scheduled", report.BatchID)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "path to a YAML manifest")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

// NewDayCommand prints one puzzle day.
func NewDayCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "day <date>",
		Short: "Show a puzzle day and its pairs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				day, err := a.Puzzles.GetDay(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return output(cmd.OutOrStdout(), opts, day, func(w io.Writer) { printDay(w, day) })
			})
		},
	}
}

// NewDaysCommand lists puzzle days.
func NewDaysCommand(opts *RootOptions) *cobra.Command {
	var filter models.DayFilter

	cmd := &cobra.Command{
		Use:   "days",
		Short: "List puzzle days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				days, err := a.Puzzles.ListDays(cmd.Context(), filter)
				if err != nil {
					return err
				}
				return output(cmd.OutOrStdout(), opts, days, func(w io.Writer) {
					for _, d := range days {
						fmt.Fprintf(w, "%s  %-8s  %d/%d\n", d.DayKey, d.Status, d.PairCount, models.MaxPairs)
					}
				})
			})
		},
	}

	cmd.Flags().StringVar(&filter.From, "from", "", "first day (inclusive)")
	cmd.Flags().StringVar(&filter.To, "to", "", "last day (inclusive)")
	cmd.Flags().StringVar(&filter.Status, "status", "", "only days with this status")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum number of days")
	return cmd
}

// NewStatusCommand sets a day's review status.
func NewStatusCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <date> <pending|approved|live>",
		Short: "Set the review status of a puzzle day",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				if err := a.Puzzles.SetStatus(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				result := map[string]string{"date": args[0], "status": args[1]}
				return output(cmd.OutOrStdout(), opts, result, func(w io.Writer) {
					fmt.Fprintf(w, "%s is now %s\n", args[0], args[1])
				})
			})
		},
	}
}

// NewTokenCommand issues a bearer token signed with the configured secret.
func NewTokenCommand(opts *RootOptions) *cobra.Command {
	var (
		user  string
		admin bool
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.LoadConfig()
			if err != nil {
				return err
			}
			tok, err := auth.New(cfg.JWTSecret, cfg.JWTIssuer).Issue(user, admin, ttl)
			if err != nil {
				return err
			}
			result := map[string]any{"token": tok, "user": user, "admin": admin, "expiresIn": ttl.String()}
			return output(cmd.OutOrStdout(), opts, result, func(w io.Writer) { fmt.Fprintln(w, tok) })
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "subject of the token")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant admin routes")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
