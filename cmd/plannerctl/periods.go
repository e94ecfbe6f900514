package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"fitdesk/backoffice/internal/planner"

	"github.com/spf13/cobra"
)

func newTemplatesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{Use: "templates", Short: "Work with templates"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := a.api.ListTemplates(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tWEEKS\tPERIODS")
			for _, t := range list {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", t.ID, t.Name, t.TotalWeeks, len(t.Ranges))
			}
			return tw.Flush()
		},
	})
	return cmd
}

func newPeriodsCmd(a *app) *cobra.Command {
	var templateID string
	cmd := &cobra.Command{Use: "periods", Short: "List, inspect, rename and delete template periods"}
	cmd.PersistentFlags().StringVarP(&templateID, "template", "t", "", "Template ID")
	_ = cmd.MarkPersistentFlagRequired("template")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List the periods in order",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				rec, err := a.reconciler(cmd.Context(), templateID)
				if err != nil {
					return err
				}
				printPeriods(a, rec.Periods())
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <n>",
			Short: "Show the plan days covered by period n",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				rec, err := a.reconciler(cmd.Context(), templateID)
				if err != nil {
					return err
				}
				p, err := periodArg(rec, args[0])
				if err != nil {
					return err
				}
				if err := rec.SelectPeriod(p.Key); err != nil {
					return err
				}
				printDetail(a, p, rec.SelectedDays())
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename <n> <name>",
			Short: "Rename period n",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				rec, err := a.reconciler(cmd.Context(), templateID)
				if err != nil {
					return err
				}
				p, err := periodArg(rec, args[0])
				if err != nil {
					return err
				}
				name := strings.Join(args[1:], " ")
				if err := rec.RenamePeriod(cmd.Context(), p.Key, name); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Renamed %q to %q\n", p.DisplayName(), strings.TrimSpace(name))
				return nil
			},
		},
		newDeleteCmd(a, &templateID),
	)
	return cmd
}

func newDeleteCmd(a *app, templateID *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <n>",
		Short: "Delete period n (asks for confirmation)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.reconciler(cmd.Context(), *templateID)
			if err != nil {
				return err
			}
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("period number %q: %w", args[0], err)
			}
			p, err := rec.Period(n - 1)
			if err != nil {
				return fmt.Errorf("period %d: %w", n, err)
			}
			if err := rec.DeletePeriod(cmd.Context(), n-1); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Deleted %q\n", p.DisplayName())
			return nil
		},
	}
	cmd.Flags().BoolVarP(&a.assumeYes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		templateID string
		format     string
		start      string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the template's periods as ICS or XLSX and print the download link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var day1 time.Time
			if start != "" {
				parsed, err := time.Parse("2006-01-02", start)
				if err != nil {
					return fmt.Errorf("--start must be YYYY-MM-DD: %w", err)
				}
				day1 = parsed
			}
			e, err := a.api.ExportTemplate(cmd.Context(), templateID, format, day1)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, e.URL)
			fmt.Fprintln(a.out, mutedStyle.Render("expires "+e.ExpiresAt.Local().Format(time.RFC822)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&templateID, "template", "t", "", "Template ID")
	cmd.Flags().StringVarP(&format, "format", "f", "ics", "ics or xlsx")
	cmd.Flags().StringVar(&start, "start", "", "Date of plan day 1 (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

// periodArg resolves a 1-based period number.
func periodArg(rec *planner.Reconciler, arg string) (planner.Period, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return planner.Period{}, fmt.Errorf("period number %q: %w", arg, err)
	}
	p, err := rec.Period(n - 1)
	if err != nil {
		return planner.Period{}, fmt.Errorf("period %d: %w", n, err)
	}
	return p, nil
}

func printPeriods(a *app, periods []planner.Period) {
	if len(periods) == 0 {
		fmt.Fprintln(a.out, mutedStyle.Render("no periods"))
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tFROM\tTO\tDAYS\tSAVED")
	for i, p := range periods {
		sw, sd, ew, ed := p.Bounds()
		_, saved := p.Persisted()
		fmt.Fprintf(tw, "%d\t%s\tS%d D%d\tS%d D%d\t%d\t%t\n", i+1, p.DisplayName(), sw, sd, ew, ed, p.Len(), saved)
	}
	_ = tw.Flush()
}

func printDetail(a *app, p planner.Period, days []planner.ScheduledDay) {
	fmt.Fprintln(a.out, headerStyle.Render(fmt.Sprintf("%s (días %d-%d)", p.DisplayName(), p.StartDay, p.EndDay)))
	if len(days) == 0 {
		fmt.Fprintln(a.out, mutedStyle.Render("no sessions planned"))
		return
	}
	for _, d := range days {
		fmt.Fprintf(a.out, "S%d D%d\n", d.Week, d.DayOfWeek)
		for _, s := range d.Sessions {
			line := "  - " + s.Name
			if s.Sets > 0 && s.Reps > 0 {
				line += fmt.Sprintf(" %dx%d", s.Sets, s.Reps)
			}
			if s.Notes != "" {
				line += " (" + s.Notes + ")"
			}
			fmt.Fprintln(a.out, line)
		}
	}
}
