package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	emissionservice "github.com/smallbiznis/cbam/internal/emission/service"
	reportdomain "github.com/smallbiznis/cbam/internal/report/domain"
	"github.com/smallbiznis/cbam/internal/session"
	"github.com/spf13/cobra"
)

func newReportsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reports",
		Short: "Show the dashboard of saved reports",
		Long:  "Prints the profile, report count, average intensity and every saved report, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			manager, _, err := a.sessions(ctx)
			if err != nil {
				return err
			}
			defer manager.Stop()

			sess, err := manager.GetCurrentSession(ctx)
			if err != nil {
				return err
			}
			if sess == nil {
				return describeAuthError(session.ErrNotSignedIn)
			}

			svc, err := a.reportService()
			if err != nil {
				return err
			}
			reports, err := svc.ListReports(ctx, sess.UserID)
			if err != nil {
				return err
			}
			return printDashboard(cmd.OutOrStdout(), sess, reports)
		},
	}
}

func printDashboard(w io.Writer, sess *session.UserSession, reports []reportdomain.Report) error {
	summary := reportdomain.Summarize(reports)
	fmt.Fprintf(w, "%s · %s\n", sess.User.DisplayName, sess.User.CompanyName)
	fmt.Fprintf(w, "Reports: %d   Average intensity: %s\n\n", summary.Count, summary.FormatAverage())
	if len(reports) == 0 {
		fmt.Fprintln(w, "No reports yet. Export a PDF to save one.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tCN CODE\tPRODUCT\tQTY (t)\tTOTAL\tINTENSITY\tIMPACT")
	for _, r := range reports {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.UTC().Format("2006-01-02"),
			r.CNCode,
			r.ProductType,
			trimNumber(r.ProductionQty),
			emissionservice.FormatTonnes(r.TotalEmissions),
			emissionservice.FormatIntensity(r.Intensity),
			reportdomain.ImpactOf(r.Intensity),
		)
	}
	return tw.Flush()
}
