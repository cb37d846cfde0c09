package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/smallbiznis/cbam/internal/workbench"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the saved form as a declaration document",
		Long: `Calculates the saved form and writes the declaration document.

PDF exports are saved to your report history and need a signed-in account.
XML exports are written locally only.`,
	}
	cmd.PersistentFlags().StringVarP(&outDir, "out", "o", ".", "directory to write the document to")

	pdf := &cobra.Command{
		Use:   "pdf",
		Short: "Save the report and write the PDF summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, a, outDir, true, func(ctx context.Context, c *workbench.Controller) (workbench.Document, error) {
				return c.ExportPDF(ctx)
			})
		},
	}

	xml := &cobra.Command{
		Use:   "xml",
		Short: "Write the CBAM XML declaration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExport(cmd, a, outDir, false, func(ctx context.Context, c *workbench.Controller) (workbench.Document, error) {
				return c.ExportXML(ctx)
			})
		},
	}

	cmd.AddCommand(pdf, xml)
	return cmd
}

func runExport(cmd *cobra.Command, a *app, outDir string, withAccount bool, render func(context.Context, *workbench.Controller) (workbench.Document, error)) error {
	ctx := cmd.Context()
	c, done, err := a.workbench(ctx, withAccount)
	if err != nil {
		return err
	}
	defer done()

	if _, err := c.Calculate(ctx); err != nil {
		return describeInputError(err)
	}
	doc, err := render(ctx, c)
	if errors.Is(err, workbench.ErrAuthRequired) {
		return errors.New("sign in to save reports, run 'cbam auth login' first")
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(outDir, doc.Name)
	if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s\n", path)
	if doc.ReportID != "" {
		fmt.Fprintf(out, "Report %s saved.\n", doc.ReportID)
	}
	return nil
}
