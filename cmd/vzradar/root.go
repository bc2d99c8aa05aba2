package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/deusflow/vzradar/internal/app"
	"github.com/deusflow/vzradar/internal/briefing"
	"github.com/deusflow/vzradar/internal/config"
	"github.com/deusflow/vzradar/internal/logger"
	"github.com/deusflow/vzradar/internal/news"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vzradar",
		Short: "Venezuela news radar",
		Long: "vzradar searches Venezuelan news per category, extracts figures and " +
			"asks a hosted model for a short strategic analysis of each section.",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init()
		},
	}
	root.AddCommand(newServeCmd(), newBriefCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "vzradar %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			srv, err := a.Server()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.Config.HTTPAddr
			}
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default HTTP_ADDR or :8080)")
	return cmd
}

type briefOptions struct {
	window     string
	bodies     bool
	asJSON     bool
	telegram   bool
	categories []string
}

func newBriefCmd() *cobra.Command {
	var opts briefOptions
	cmd := &cobra.Command{
		Use:   "brief",
		Short: "Run one brief and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := news.ParseWindow(opts.window)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			req := briefing.Request{
				Window:      window,
				FetchBodies: opts.bodies || a.Config.FetchBodies,
				Categories:  opts.categories,
			}
			report, err := a.RunBrief(ctx, req, opts.telegram)
			if report == nil {
				return err
			}
			if opts.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(report); encErr != nil {
					return encErr
				}
			} else {
				printReport(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&opts.window, "window", "w", "hoy", "recency window: hoy, semana or mes")
	cmd.Flags().BoolVar(&opts.bodies, "bodies", false, "read full article bodies")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&opts.telegram, "telegram", false, "also post the report to Telegram")
	cmd.Flags().StringSliceVarP(&opts.categories, "category", "c", nil, "only these categories (key or label)")
	return cmd
}

func setup(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return app.New(ctx, cfg)
}

func printReport(w io.Writer, report *briefing.Report) {
	fmt.Fprintf(w, "Radar Venezuela: %s (%s)\n", report.Window.Label(), report.GeneratedAt.Format("02/01/2006 15:04"))
	for _, sec := range report.Sections {
		fmt.Fprintf(w, "\n== %s ==\n", sec.Category.Label)
		if sec.Notice != "" {
			fmt.Fprintf(w, "! %s\n", sec.NoticeMessage())
		}
		if len(sec.Figures) > 0 {
			fmt.Fprintf(w, "Cifras: %s\n", strings.Join(sec.Figures, " | "))
		}
		fmt.Fprintf(w, "\n%s\n\n", sec.Analysis.Display())
		for _, h := range sec.Headlines {
			fmt.Fprintf(w, "  [%s] %s", h.Category, h.Title)
			if h.Source != "" {
				fmt.Fprintf(w, " (%s)", h.Source)
			}
			fmt.Fprintf(w, "\n      %s\n", h.Link)
		}
	}
	fmt.Fprintf(w, "\n%d titulares en %s\n", len(report.Headlines()), report.Duration.Round(100*time.Millisecond))
}
