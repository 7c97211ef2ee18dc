package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/hackfeed-backend/internal/app"
	jobtypes "github.com/yungbote/hackfeed-backend/internal/domain/jobs"
	"github.com/yungbote/hackfeed-backend/internal/temporalx/maintenance"
)

var envFiles []string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp loads the config and wires the app. The caller must defer a.Close().
func newApp(ctx context.Context, mutate ...func(*app.Config)) (*app.App, error) {
	cfg, err := app.LoadConfig(envFiles...)
	if err != nil {
		return nil, err
	}
	for _, m := range mutate {
		m(&cfg)
	}
	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseIDs(args []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(args))
	for _, a := range args {
		id, err := uuid.Parse(a)
		if err != nil {
			return nil, fmt.Errorf("bad id %q: %w", a, err)
		}
		out = append(out, id)
	}
	return out, nil
}

var rootCmd = &cobra.Command{
	Use:          "hackfeed",
	Short:        "Content lifecycle and deduplication engine",
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daily jobs on cron or as a Temporal worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return a.Serve(ctx)
	},
}

var runCmd = &cobra.Command{
	Use:   "run [job]",
	Short: "Run one job now (default: lifecycle)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		job := jobtypes.TypeLifecycle
		if len(args) == 1 {
			job = args[0]
		}
		viaTemporal, _ := cmd.Flags().GetBool("temporal")
		return runJob(cmd.Context(), job, viaTemporal)
	},
}

func runJob(ctx context.Context, job string, viaTemporal bool) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if viaTemporal {
		if a.Clients.Temporal == nil {
			return fmt.Errorf("--temporal needs TEMPORAL_ADDRESS")
		}
		res, err := maintenance.Trigger(ctx, a.Clients.Temporal, a.Cfg.Temporal.TaskQueue, job)
		if err != nil {
			return err
		}
		return printJSON(res)
	}

	out, err := a.RunJob(ctx, job, jobtypes.TriggerManual)
	if err != nil {
		return err
	}
	return printJSON(out)
}

// jobCmd is a shortcut for `run <job>`.
func jobCmd(job, short string) *cobra.Command {
	return &cobra.Command{
		Use:   job,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd.Context(), job, false)
		},
	}
}

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Inspect and resolve duplicate content",
}

var duplicatesFindCmd = &cobra.Command{
	Use:   "find <content-id>",
	Short: "List likely duplicates of one item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		var category *uuid.UUID
		if raw, _ := cmd.Flags().GetString("category"); raw != "" {
			c, err := uuid.Parse(raw)
			if err != nil {
				return fmt.Errorf("bad category id: %w", err)
			}
			category = &c
		}

		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		matches, err := a.Services.Detector.FindPotentialDuplicates(cmd.Context(), ids[0], category)
		if err != nil {
			return err
		}
		if len(matches) == 0 {
			fmt.Println("No duplicates found.")
			return nil
		}
		return printJSON(matches)
	},
}

var duplicatesResolveCmd = &cobra.Command{
	Use:   "resolve <keep-id> <dup-id>...",
	Short: "Keep the first item and archive the rest as its duplicates",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Services.Detector.ResolveDuplicates(cmd.Context(), ids)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage archived content",
}

var archiveRestoreCmd = &cobra.Command{
	Use:   "restore <archive-id>",
	Short: "Bring an archived item back as a draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := a.Services.Moderation.Restore(cmd.Context(), ids[0])
		if err != nil {
			return err
		}
		return printJSON(c)
	},
}

var archivePurgeCmd = &cobra.Command{
	Use:   "purge <archive-id>",
	Short: "Delete an archive record for good",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := parseIDs(args)
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Services.Moderation.Purge(cmd.Context(), ids[0]); err != nil {
			return err
		}
		fmt.Printf("Purged %s\n", ids[0])
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables or indexes for the configured store",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), func(c *app.Config) { c.AutoMigrate = true })
		if err != nil {
			return err
		}
		defer a.Close()
		fmt.Printf("Migrated %s store\n", a.Store.Driver)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print job run events as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if a.Clients.Events == nil {
			return fmt.Errorf("watch needs REDIS_ADDR")
		}
		err = a.Clients.Events.StartForwarder(ctx, func(ev jobtypes.RunEvent) {
			_ = printJSON(ev)
		})
		if err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load (default .env)")

	runCmd.Flags().Bool("temporal", false, "start the job as a Temporal workflow and wait for it")
	duplicatesFindCmd.Flags().String("category", "", "only compare within this category")

	duplicatesCmd.AddCommand(duplicatesFindCmd, duplicatesResolveCmd)
	archiveCmd.AddCommand(archiveRestoreCmd, archivePurgeCmd)

	rootCmd.AddCommand(
		serveCmd,
		runCmd,
		jobCmd(jobtypes.TypeRecycle, "Republish proven older content"),
		jobCmd(jobtypes.TypeStreaks, "Reset streaks of inactive users"),
		jobCmd(jobtypes.TypeSubscriptions, "Expire lapsed subscriptions"),
		jobCmd(jobtypes.TypeIntegrity, "Sweep duplicates and reconcile the archive"),
		duplicatesCmd,
		archiveCmd,
		migrateCmd,
		watchCmd,
	)
}
