package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"fitdesk/backoffice/internal/client"
	"fitdesk/backoffice/internal/config"
	"fitdesk/backoffice/internal/logging"
	"fitdesk/backoffice/internal/planner"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	alertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle  = lipgloss.NewStyle().Faint(true)
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	configDir string
	apiURL    string
	token     string
	timeout   time.Duration
	logLevel  string
	verbose   bool
	assumeYes bool

	api *client.Client
	log *logging.Log
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: bufio.NewReader(in), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "plannerctl",
		Short:         "Inspect and edit the periods of a training template",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				a.log.Closer()
			}
		},
	}
	root.Version = version
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configDir, "config", ".", "Directory holding config.yaml")
	pf.StringVar(&a.apiURL, "api", "", "API base URL (overrides planner.api_base_url)")
	pf.StringVar(&a.token, "token", "", "Bearer token (default $PLANNER_TOKEN)")
	pf.DurationVar(&a.timeout, "timeout", 0, "Per-request timeout")
	pf.StringVar(&a.logLevel, "log-level", "warn", "Log level for diagnostics on stderr")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Log every request (same as --log-level debug)")

	root.AddCommand(newTemplatesCmd(a), newPeriodsCmd(a), newExportCmd(a))
	return root
}

// setup merges config and flags and builds the API client.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cmd.Flags().Changed("api") {
		a.apiURL = cfg.Planner.APIBaseURL
	}
	if !cmd.Flags().Changed("token") {
		a.token = cfg.Planner.Token
	}
	if !cmd.Flags().Changed("timeout") {
		a.timeout = cfg.Planner.RequestTimeout
	}

	lg, err := logging.New(a.errOut, a.logLevel, "dev")
	if err != nil {
		return err
	}
	if a.verbose {
		lg.Level.SetLevel(zapcore.DebugLevel)
	}
	a.log = lg
	a.api = client.New(a.apiURL, client.StaticToken(a.token), a.timeout)
	return nil
}

// reconciler loads templateID into a fresh Reconciler wired to the terminal.
func (a *app) reconciler(ctx context.Context, templateID string) (*planner.Reconciler, error) {
	rec := planner.NewReconciler(a.api, planner.ConfirmFunc(a.confirm), planner.NotifyFunc(a.alert), a.log.Base)
	if err := rec.LoadFrom(ctx, a.api, templateID); err != nil {
		return nil, err
	}
	a.log.Sugar.Debugf("template %s: %d periods over %d weeks", templateID, len(rec.Periods()), rec.TotalWeeks())
	return rec, nil
}

// confirm asks on the terminal; anything but y/yes declines.
func (a *app) confirm(_ context.Context, prompt string) bool {
	if a.assumeYes {
		return true
	}
	fmt.Fprintf(a.out, "%s [y/N]: ", prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "s", "si", "sí":
		return true
	}
	return false
}

func (a *app) alert(msg string) {
	fmt.Fprintln(a.errOut, alertStyle.Render("! "+msg))
}
