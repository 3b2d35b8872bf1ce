package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"miniappe2e/internal/config"
	"miniappe2e/internal/logger"
	"miniappe2e/internal/terminal"
	api "miniappe2e/pkg/api"
	"miniappe2e/pkg/model"

	"github.com/spf13/cobra"
)

// errFailed 有场景失败，进程以 1 退出
var errFailed = errors.New("one or more scenarios failed")

// main 命令行入口
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

type app struct {
	configPath string
	svc        api.Service
	term       *terminal.Terminal
	log        logger.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "miniappe2e",
		Short:         "Browser end-to-end suite for the mini app",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.svc == nil {
				return nil
			}
			return a.svc.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file (yaml)")
	pf.String("base-url", "", "base URL of the app under test")
	pf.String("devtools-url", "", "attach to a running browser instead of launching one")
	pf.Bool("headless", true, "run the launched browser headless")
	pf.Bool("video", true, "record screencast frames per scenario")
	pf.String("artifacts", "", "directory for screenshots and videos")
	pf.String("log-level", "", "debug, info, warn or error")

	root.AddCommand(a.runCmd(), a.listCmd(), a.historyCmd())
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	a.log = logger.New(logger.Options{
		Level:   cfg.Log.Level,
		Writers: cfg.Log.Writer,
		File:    cfg.Log.File,
	})
	a.term = terminal.New(a.log)
	a.svc = api.NewService(cfg, a.log, a.term)
	return nil
}

func (a *app) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run scenarios (all when none given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.svc.Run(cmd.Context(), args)
			if err != nil {
				return err
			}
			failed := 0
			for _, s := range report.Scenarios {
				if s.Status != model.StatusPassed {
					failed++
				}
			}
			a.term.Log(fmt.Sprintf("%d passing, %d failing (%s)",
				len(report.Scenarios)-failed, failed, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond)))
			if !report.Passed() {
				return errFailed
			}
			return nil
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available scenarios",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			var rows [][]string
			for _, s := range a.svc.ListScenarios() {
				rows = append(rows, []string{s.Name, s.Description})
			}
			a.term.Table([]string{"SCENARIO", "DESCRIPTION"}, rows)
			return nil
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runs, err := a.svc.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			var rows [][]string
			for _, r := range runs {
				rows = append(rows, []string{
					r.ID,
					r.StartedAt.Local().Format(time.DateTime),
					r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String(),
					strconv.Itoa(r.Total),
					strconv.Itoa(r.Failed),
				})
			}
			a.term.Table([]string{"RUN", "STARTED", "DURATION", "TOTAL", "FAILED"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}
