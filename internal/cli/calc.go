package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	draftdomain "github.com/smallbiznis/cbam/internal/draft/domain"
	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
	emissionservice "github.com/smallbiznis/cbam/internal/emission/service"
	"github.com/spf13/cobra"
)

type calcFlags struct {
	form       draftdomain.FormDraft
	precursors []string
	fromDraft  bool
	asJSON     bool
}

func newCalcCmd(a *app) *cobra.Command {
	var f calcFlags
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Calculate embedded emissions",
		Long: `Calculates Scope 1 (diesel, coal), Scope 2 (grid electricity) and Scope 3
(precursor materials) emissions and the intensity per tonne of product.

Inputs come from flags, or from the saved form with --draft.`,
		Example: `  # Steel batch with fuel and grid inputs
  cbam calc --cn-code 72031000 --qty 100 --electricity 5000 --diesel 2000 --coal 1000

  # Add precursor materials
  cbam calc --cn-code 72031000 --qty 10 --precursor "Iron Ore=10" --precursor Scrap=2

  # Calculate the form edited with 'cbam draft'
  cbam calc --draft`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalc(cmd, a, f)
		},
	}

	cmd.Flags().StringVar(&f.form.CNCode, "cn-code", "", "8 digit CN code of the product")
	cmd.Flags().StringVar(&f.form.ProductionQty, "qty", "", "production quantity in tonnes")
	cmd.Flags().StringVar(&f.form.Electricity, "electricity", "", "grid electricity in kWh")
	cmd.Flags().StringVar(&f.form.Diesel, "diesel", "", "diesel in litres")
	cmd.Flags().StringVar(&f.form.Coal, "coal", "", "coal in kg")
	cmd.Flags().StringArrayVar(&f.precursors, "precursor", nil, `precursor as "Material=tonnes", repeatable`)
	cmd.Flags().BoolVar(&f.fromDraft, "draft", false, "calculate the saved form")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the result as JSON")
	cmd.MarkFlagsMutuallyExclusive("draft", "cn-code")
	return cmd
}

func runCalc(cmd *cobra.Command, a *app, f calcFlags) error {
	ctx := cmd.Context()
	emission, err := a.emissionService()
	if err != nil {
		return err
	}

	var result emissiondomain.CalculationResult
	if f.fromDraft {
		c, done, err := a.workbench(ctx, false)
		if err != nil {
			return err
		}
		defer done()
		if result, err = c.Calculate(ctx); err != nil {
			return describeInputError(err)
		}
	} else {
		form, err := formFromFlags(f)
		if err != nil {
			return err
		}
		if result, err = emission.Calculate(ctx, form.Input()); err != nil {
			return describeInputError(err)
		}
	}

	if f.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printResult(cmd.OutOrStdout(), result, emission.Validate(result.CNCode))
}

func formFromFlags(f calcFlags) (draftdomain.FormDraft, error) {
	form := f.form.Clone()
	for _, raw := range f.precursors {
		material, qty, ok := strings.Cut(raw, "=")
		if !ok || strings.TrimSpace(material) == "" {
			return form, fmt.Errorf("invalid --precursor %q, want Material=tonnes", raw)
		}
		form.PrecursorActive = true
		form.Precursors = append(form.Precursors, draftdomain.PrecursorDraft{
			Type: strings.TrimSpace(material),
			Qty:  strings.TrimSpace(qty),
		})
	}
	return form, nil
}

// describeInputError turns validation sentinels into the messages the form shows.
func describeInputError(err error) error {
	switch {
	case errors.Is(err, emissiondomain.ErrInvalidCNCode):
		return fmt.Errorf("cn code: %s", emissiondomain.InvalidCodeMessage)
	case errors.Is(err, emissiondomain.ErrInvalidProductionQty):
		return errors.New("production quantity must be greater than 0")
	case errors.Is(err, emissiondomain.ErrNegativeQuantity):
		return errors.New("quantities must not be negative")
	default:
		return err
	}
}

func printResult(w io.Writer, result emissiondomain.CalculationResult, class emissiondomain.Classification) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "CN code\t%s (%s)\n", result.CNCode, class.Category)
	fmt.Fprintf(tw, "Production\t%s t\n", trimNumber(result.ProductionQty))
	fmt.Fprintf(tw, "Scope 1\t%s\n", emissionservice.FormatTonnes(result.Scope1))
	fmt.Fprintf(tw, "Scope 2\t%s\n", emissionservice.FormatTonnes(result.Scope2))
	fmt.Fprintf(tw, "Scope 3\t%s\n", emissionservice.FormatTonnes(result.Scope3))
	fmt.Fprintf(tw, "Total\t%s\n", emissionservice.FormatTonnes(result.Total))
	fmt.Fprintf(tw, "Intensity\t%s tCO₂e/t\n", emissionservice.FormatIntensity(result.Intensity))
	return tw.Flush()
}

func trimNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
