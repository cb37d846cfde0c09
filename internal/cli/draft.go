package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	draftdomain "github.com/smallbiznis/cbam/internal/draft/domain"
	"github.com/smallbiznis/cbam/internal/workbench"
	"github.com/spf13/cobra"
)

var draftFields = []string{
	draftdomain.FieldCNCode,
	draftdomain.FieldProductionQty,
	draftdomain.FieldElectricity,
	draftdomain.FieldDiesel,
	draftdomain.FieldCoal,
}

func newDraftCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Edit the saved calculator form",
		Long: `Edits the calculator form kept in CBAM_HOME. Every change is saved
immediately, so the form survives between commands.`,
	}
	cmd.AddCommand(
		newDraftShowCmd(a),
		newDraftSetCmd(a),
		newDraftPrecursorsCmd(a),
		newDraftClearCmd(a),
	)
	return cmd
}

// editDraft opens the form, applies fn and prints the result.
func editDraft(cmd *cobra.Command, a *app, fn func(c *workbench.Controller) error) error {
	ctx := cmd.Context()
	c, done, err := a.workbench(ctx, false)
	if err != nil {
		return err
	}
	defer done()
	if err := fn(c); err != nil {
		return err
	}
	return printDraft(cmd.OutOrStdout(), c.View())
}

func newDraftShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the saved form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return editDraft(cmd, a, func(*workbench.Controller) error { return nil })
		},
	}
}

func newDraftSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "set <field> <value>",
		Short:     "Set one form field",
		Long:      "Sets one of the form fields: cnCode, productionQty, electricity, diesel or coal.",
		Example:   "  cbam draft set cnCode 72031000\n  cbam draft set productionQty 100",
		Args:      cobra.ExactArgs(2),
		ValidArgs: draftFields,
		RunE: func(cmd *cobra.Command, args []string) error {
			return editDraft(cmd, a, func(c *workbench.Controller) error {
				return c.SetField(cmd.Context(), args[0], args[1])
			})
		},
	}
}

func newDraftPrecursorsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "precursors",
		Short: "Edit the precursor materials section",
	}

	toggle := &cobra.Command{
		Use:   "toggle",
		Short: "Show or hide the precursor section",
		Long:  "Flips the precursor section. Rows are kept while the section is hidden.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return editDraft(cmd, a, func(c *workbench.Controller) error {
				return c.TogglePrecursors(cmd.Context())
			})
		},
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Append an empty precursor row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return editDraft(cmd, a, func(c *workbench.Controller) error {
				return c.AddPrecursor(cmd.Context())
			})
		},
	}

	set := &cobra.Command{
		Use:     "set <row> <material> <tonnes>",
		Short:   "Set the material and quantity of a row",
		Example: `  cbam draft precursors set 0 "Iron Ore" 10`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := rowIndex(args[0])
			if err != nil {
				return err
			}
			return editDraft(cmd, a, func(c *workbench.Controller) error {
				return c.UpdatePrecursor(cmd.Context(), row, draftdomain.PrecursorDraft{Type: args[1], Qty: args[2]})
			})
		},
	}

	remove := &cobra.Command{
		Use:   "remove <row>",
		Short: "Delete a precursor row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := rowIndex(args[0])
			if err != nil {
				return err
			}
			return editDraft(cmd, a, func(c *workbench.Controller) error {
				return c.RemovePrecursor(cmd.Context(), row)
			})
		},
	}

	cmd.AddCommand(toggle, add, set, remove)
	return cmd
}

func newDraftClearCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.draftService().Clear(cmd.Context(), draftdomain.DefaultSlot); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Form cleared.")
			return nil
		},
	}
}

func rowIndex(raw string) (int, error) {
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("row must be a number, got %q", raw)
	}
	return i, nil
}

func printDraft(w io.Writer, v workbench.View) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	status := string(v.Classification.State)
	switch {
	case v.Classification.Category != "":
		status = v.Classification.Category
	case v.Classification.Message != "":
		status = v.Classification.Message
	}
	fmt.Fprintf(tw, "cnCode\t%s\t%s\n", v.Draft.CNCode, status)
	fmt.Fprintf(tw, "productionQty\t%s\tt\n", v.Draft.ProductionQty)
	fmt.Fprintf(tw, "electricity\t%s\tkWh\n", v.Draft.Electricity)
	fmt.Fprintf(tw, "diesel\t%s\tL\n", v.Draft.Diesel)
	fmt.Fprintf(tw, "coal\t%s\tkg\n", v.Draft.Coal)
	section := "hidden"
	if v.Draft.PrecursorActive {
		section = "shown"
	}
	fmt.Fprintf(tw, "precursors\t%s\t%d rows\n", section, len(v.Draft.Precursors))
	for i, row := range v.Draft.Precursors {
		fmt.Fprintf(tw, "  [%d]\t%s\t%s t\n", i, row.Type, row.Qty)
	}
	return tw.Flush()
}
