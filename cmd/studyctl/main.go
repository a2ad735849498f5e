// Command studyctl drives study sessions from a terminal. It talks to the
// study server over HTTP and keeps a local display clock seeded from the
// server's accumulators.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/habitguard/study-server/internal/client"
	"github.com/habitguard/study-server/internal/model"
	"github.com/habitguard/study-server/internal/timer"
)

type rootFlags struct {
	configPath string
	baseURL    string
	token      string
	verbose    bool
}

// app is built once per invocation after flags are parsed.
type app struct {
	cfgPath string
	cfg     cliConfig
	api     *client.Client
	timer   *timer.Adapter
	out     io.Writer
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := newRootCmd().Execute(); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags rootFlags
	a := &app{out: os.Stdout}

	root := &cobra.Command{
		Use:          appName,
		Short:        "Run and inspect study sessions",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/studyctl/config.yaml)")
	pf.StringVar(&flags.baseURL, "server", "", "Server base URL, overrides config")
	pf.StringVar(&flags.token, "token", "", "Bearer token, overrides config")
	pf.BoolVar(&flags.verbose, "verbose", false, "Log requests and timer seeding to stderr")

	root.AddCommand(
		a.loginCmd(),
		a.createCmd(),
		a.transitionCmd("start", "Start a not-yet-started session"),
		a.transitionCmd("pause", "Pause the running session"),
		a.transitionCmd("resume", "Resume a paused session"),
		a.stopCmd(),
		a.cancelCmd(),
		a.statusCmd(),
		a.watchCmd(),
		a.historyCmd(),
		a.statsCmd(),
	)
	return root
}

func (a *app) init(flags rootFlags) error {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if flags.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	path := flags.configPath
	if path == "" {
		p, err := defaultConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	if flags.baseURL != "" {
		cfg.BaseURL = flags.baseURL
	}
	if flags.token != "" {
		cfg.Token = flags.token
	}
	if env := os.Getenv("STUDYCTL_TOKEN"); env != "" && flags.token == "" {
		cfg.Token = env
	}

	a.cfgPath = path
	a.cfg = cfg
	a.api = client.New(cfg.BaseURL, cfg.Token)
	a.timer = timer.New(a.api)
	return nil
}

// loginCmd stores the server and token given as flags into the config file.
func (a *app) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Save --server and --token to the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Token == "" {
				return errors.New("--token is required")
			}
			if err := saveConfig(a.cfgPath, a.cfg); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "saved %s\n", a.cfgPath)
			return nil
		},
	}
}

func (a *app) createCmd() *cobra.Command {
	var (
		req   client.CreateSessionRequest
		plan  string
		start bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a session for a subject",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if plan != "" {
				req.PlanID = &plan
			}
			state, err := a.timer.Create(ctx, req)
			if err != nil {
				return err
			}
			a.remember(state.SessionID)
			if start {
				if state, err = a.timer.Start(ctx); err != nil {
					return err
				}
			}
			a.printState(state)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.SubjectCode, "subject", "", "Subject code, e.g. CS101")
	f.StringVar(&req.SubjectName, "name", "", "Subject name if the code is unknown")
	f.IntVar(&req.PlannedDurationMinutes, "minutes", 60, "Planned duration in minutes")
	f.StringVar(&plan, "plan", "", "Study plan id")
	f.BoolVar(&start, "start", false, "Start the session right away")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

// transitionCmd covers the transitions that take no extra input.
func (a *app) transitionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " [session-id]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.load(ctx, args); err != nil {
				return err
			}

			var (
				state timer.State
				err   error
			)
			switch action {
			case "start":
				state, err = a.timer.Start(ctx)
			case "pause":
				state, err = a.timer.Pause(ctx)
			case "resume":
				state, err = a.timer.Resume(ctx)
			}
			if err != nil {
				return err
			}
			a.printState(state)
			return nil
		},
	}
}

func (a *app) stopCmd() *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "stop [session-id]",
		Short: "Complete the session and record study time",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.load(ctx, args); err != nil {
				return err
			}
			result, state, err := a.timer.Stop(ctx, notes)
			if err != nil {
				return err
			}
			a.printState(state)
			fmt.Fprintf(a.out, "studied %d min, %.2f%% of plan\n", result.StudyMinutes, result.CompletionPercentage)
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "Session notes")
	return cmd
}

func (a *app) cancelCmd() *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "cancel [session-id]",
		Short: "Abandon the session without crediting statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.load(ctx, args); err != nil {
				return err
			}
			state, err := a.timer.Cancel(ctx, notes)
			if err != nil {
				return err
			}
			a.printState(state)
			return nil
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "Session notes")
	return cmd
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [session-id]",
		Short: "Show the live session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd.Context(), args); err != nil {
				if errors.Is(err, timer.ErrNoSession) {
					fmt.Fprintln(a.out, "no active session")
					return nil
				}
				return err
			}
			a.printState(a.timer.State())
			return nil
		},
	}
}

// watchCmd renders the clock once per second and re-seeds it whenever the
// session changes on another device.
func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [session-id]",
		Short: "Show a live clock for the session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := a.load(ctx, args); err != nil {
				return err
			}

			go func() {
				err := a.api.Subscribe(ctx, func(e client.Event) {
					if e.Type == "connected" {
						return
					}
					if _, err := a.timer.Foreground(ctx); err != nil {
						log.Warn().Err(err).Str("event", e.Type).Msg("reload after event failed")
					}
				})
				if err != nil && ctx.Err() == nil {
					log.Warn().Err(err).Msg("event stream closed")
				}
			}()

			a.render(a.timer.State())
			a.timer.Run(ctx, a.render)
			fmt.Fprintln(a.out)
			return nil
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	var (
		limit, offset int
		subjectID     int64
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var subject *int64
			if cmd.Flags().Changed("subject-id") {
				subject = &subjectID
			}
			h, err := a.api.History(cmd.Context(), limit, offset, subject)
			if err != nil {
				return err
			}
			for _, s := range h.Sessions {
				end := "-"
				if s.EndTime != nil {
					end = s.EndTime.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(a.out, "%s  %-10s %-9s %8s  %s\n",
					end, s.SubjectCode, s.Status, timer.State{ElapsedSeconds: s.ElapsedSeconds}.Display(), s.ID)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&limit, "limit", 20, "Page size")
	f.IntVar(&offset, "offset", 0, "Rows to skip")
	f.Int64Var(&subjectID, "subject-id", 0, "Only sessions of this subject")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize study time",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := a.api.Statistics(cmd.Context(), model.StatsPeriod(period))
			if err != nil {
				return err
			}
			o := report.Overall
			fmt.Fprintf(a.out, "%s: %d min over %d sessions (%d completed, %d pauses, avg %.1f min)\n",
				report.Period, o.TotalMinutes, o.TotalSessions, o.CompletedSessions, o.TotalPauses, o.AvgSessionMinutes)
			for _, s := range report.BySubject {
				fmt.Fprintf(a.out, "  %-10s %5d min  %3d sessions\n", s.SubjectCode, s.TotalMinutes, s.TotalSessions)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", string(model.StatsPeriodWeek), "week, month or all")
	return cmd
}

// load picks the session a command acts on: the id argument, else the live
// session, else the last session this CLI created.
func (a *app) load(ctx context.Context, args []string) error {
	if len(args) == 1 {
		_, err := a.timer.LoadSession(ctx, args[0])
		return err
	}

	state, err := a.timer.Load(ctx)
	if err != nil {
		return err
	}
	if state.Loaded {
		return nil
	}
	if a.cfg.LastSession == "" {
		return timer.ErrNoSession
	}
	state, err = a.timer.LoadSession(ctx, a.cfg.LastSession)
	if err != nil {
		return err
	}
	if state.Status.IsTerminal() {
		return timer.ErrNoSession
	}
	return nil
}

func (a *app) remember(sessionID string) {
	a.cfg.LastSession = sessionID
	if err := saveConfig(a.cfgPath, a.cfg); err != nil {
		log.Warn().Err(err).Msg("could not save last session")
	}
}

func (a *app) printState(s timer.State) {
	if !s.Loaded {
		fmt.Fprintln(a.out, "no session")
		return
	}
	fmt.Fprintf(a.out, "%s  %s  %s  %s / %d min (%.0f%%)\n",
		s.SessionID, s.SubjectCode, s.Status, s.Display(), s.PlannedMinutes, s.Progress)
}

func (a *app) render(s timer.State) {
	fmt.Fprintf(a.out, "\r%s  %-11s %s  %.0f%%   ", s.SubjectCode, s.Status, s.Display(), s.Progress)
}
