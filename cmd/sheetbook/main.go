package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"

	"github.com/sheetbook/sheetbook/pkg/config"
	"github.com/sheetbook/sheetbook/pkg/importer"
	"github.com/sheetbook/sheetbook/pkg/ledger"
	"github.com/sheetbook/sheetbook/pkg/server"
	"github.com/sheetbook/sheetbook/pkg/sheets"
	"github.com/sheetbook/sheetbook/pkg/state"
	"github.com/sheetbook/sheetbook/pkg/syncer"
	"github.com/sheetbook/sheetbook/pkg/watcher"
)

var (
	cfgFile string
	verbose bool
)

// app bundles the wired components every subcommand needs.
type app struct {
	cfg      *config.Config
	logger   *log.Logger
	store    *ledger.Store
	state    *state.State
	resolver *ledger.Resolver
	importer *importer.Importer
	syncer   *syncer.Syncer
	watcher  *watcher.Watcher
	source   sheets.Source
}

func buildApp(cmd *cobra.Command) (*app, error) {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "sheetbook",
		Level:           level,
	})

	cfg, err := config.Build(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	st, err := state.Load(cfg.StatePath())
	if err != nil {
		return nil, err
	}

	backend, err := ledger.NewFileBackend(cfg.LedgerDir())
	if err != nil {
		return nil, err
	}
	store := ledger.NewStore(backend, logger)
	resolver := ledger.NewResolver(st)

	fetcher := sheets.NewHTTPFetcher(cfg.HTTPTimeout)
	imp := importer.New(store, fetcher, logger)
	source := sheets.New(cfg.Source.Ref, sheets.Kind(cfg.Source.Kind))

	sync := syncer.New(store, buildTarget(cfg, logger), logger)
	w := watcher.New(imp, fetcher, st, resolver, cfg.UserID, source, cfg.PollInterval, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		state:    st,
		resolver: resolver,
		importer: imp,
		syncer:   sync,
		watcher:  w,
		source:   source,
	}, nil
}

// buildTarget picks the push destination from configuration. Webhook wins
// when both are configured; no configuration means pushes are no-ops.
func buildTarget(cfg *config.Config, logger *log.Logger) syncer.Target {
	if cfg.Webhook.URL != "" {
		return syncer.NewWebhookTarget(cfg.Webhook.URL, cfg.HTTPTimeout)
	}
	if cfg.YNAB.BudgetID != "" && cfg.YNAB.AccountID != "" {
		token := cfg.YNABToken()
		if token == "" {
			logger.Warn("ynab target configured but token env is empty", "env", cfg.YNAB.TokenEnv)
			return nil
		}
		return syncer.NewYNABTarget(token, cfg.YNAB.BudgetID, cfg.YNAB.AccountID)
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "sheetbook",
	Short: "Personal expense ledger synced with external spreadsheets",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Show help when no subcommand is provided
		return cmd.Help()
	},
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import expenses from the configured spreadsheet or a local export",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		ledgerID := a.resolver.Resolve(a.cfg.UserID)
		onProgress := func(imported, total int) {
			fmt.Printf("\rimported %d/%d", imported, total)
		}

		var imported int
		if len(args) == 1 {
			imported, err = a.importer.ImportFile(ctx, args[0], ledgerID, onProgress)
		} else {
			imported, err = a.importer.Import(ctx, a.source, ledgerID, onProgress)
		}
		if imported > 0 {
			fmt.Println()
		}
		if err != nil {
			if errors.Is(err, importer.ErrCancelled) {
				grayStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
				fmt.Println(grayStyle.Render(fmt.Sprintf("cancelled, %d row(s) kept", imported)))
				return nil
			}
			return err
		}

		doneStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
		fmt.Println(doneStyle.Render(fmt.Sprintf("imported %d row(s) into ledger %s", imported, ledgerID)))
		return a.syncer.Push(ctx, ledgerID)
	},
}

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Show the ledger with refs and running balance, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd)
		if err != nil {
			return err
		}

		ledgerID := a.resolver.Resolve(a.cfg.UserID)
		view, err := a.store.View(ledgerID)
		if err != nil {
			return err
		}

		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			pp.Println(view)
			return nil
		}

		inStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))  // green
		outStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")) // red

		for _, e := range view.Display() {
			amount := outStyle.Render(fmt.Sprintf("-%s", e.Out.StringFixed(2)))
			if e.Out.IsZero() {
				amount = inStyle.Render(fmt.Sprintf("+%s", e.In.StringFixed(2)))
			}
			fmt.Printf("#%-4d %s | %-30s | %-12s | %10s | %10s\n",
				e.Ref, e.OccurredOn.Format("2006-01-02"), e.Description, e.Category, amount, e.Balance.StringFixed(2))
		}
		fmt.Printf("\nBalance: %s (%d entries)\n", view.Balance().StringFixed(2), view.Len())
		return nil
	},
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push the full ledger to the configured sync target",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp(cmd)
		if err != nil {
			return err
		}
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		ledgerID := a.resolver.Resolve(a.cfg.UserID)
		if err := a.syncer.Push(ctx, ledgerID); err != nil {
			return err
		}
		fmt.Printf("ledger %s pushed\n", ledgerID)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the spreadsheet for changes and import them",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp(cmd)
		if err != nil {
			return err
		}

		if disable, _ := cmd.Flags().GetBool("disable"); disable {
			return a.watcher.Disable()
		}
		if err := a.watcher.Enable(); err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		unsubscribe := a.syncer.WatchLedger(a.resolver.Resolve(a.cfg.UserID))
		defer unsubscribe()

		a.watcher.Start(ctx)
		<-ctx.Done()
		a.watcher.Stop()
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API with the background watcher",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := buildApp(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		unsubscribe := a.syncer.WatchLedger(a.resolver.Resolve(a.cfg.UserID))
		defer unsubscribe()

		a.watcher.Start(ctx)
		defer a.watcher.Stop()

		srv := server.New(a.cfg, a.logger, a.store, a.importer, a.syncer, a.watcher)
		a.logger.Info("starting server", "addr", a.cfg.ListenAddr)
		return srv.Start(a.cfg.ListenAddr)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	viewCmd.Flags().Bool("debug", false, "Dump the raw derived view")
	watchCmd.Flags().Bool("disable", false, "Persist the disabled flag and exit")

	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	_ = gotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
