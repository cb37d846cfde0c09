package export

import (
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
	emissionservice "github.com/smallbiznis/cbam/internal/emission/service"
)

// documentDate is stamped into every PDF so equal inputs give equal bytes.
var documentDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// PDF renders the emissions summary of one saved report.
func PDF(result emissiondomain.CalculationResult, reportID string) ([]byte, error) {
	cfg := config.NewBuilder().
		WithCreationDate(documentDate).
		WithTitle("CBAM Emissions Report", false).
		WithSubject("CBAM report "+reportID, false).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(14,
		text.NewCol(12, "CBAM Emissions Report", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(24,
		col.New(12).Add(
			text.New("CN Code: "+result.CNCode, props.Text{Top: 0}),
			text.New("Product Category: "+emissionservice.ProductType(result.CNCode), props.Text{Top: 5}),
			text.New(fmt.Sprintf("Production Quantity: %s t", trimFloat(result.ProductionQty)), props.Text{Top: 10}),
		),
	)

	m.AddRow(2, line.NewCol(12))

	m.AddRow(10,
		text.NewCol(8, "Emission Scope", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(4, "tCO2e", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)
	for _, row := range []struct {
		label string
		value float64
	}{
		{"Scope 1 (Direct)", result.Scope1},
		{"Scope 2 (Electricity)", result.Scope2},
		{"Scope 3 (Precursors)", result.Scope3},
	} {
		m.AddRow(8,
			text.NewCol(8, row.label, props.Text{Size: 10}),
			text.NewCol(4, fmt.Sprintf("%.2f", row.value), props.Text{Size: 10, Align: align.Right}),
		)
	}

	m.AddRow(2, line.NewCol(12))

	m.AddRow(10,
		text.NewCol(8, "Total Embedded Emissions", props.Text{Style: fontstyle.Bold, Size: 11}),
		text.NewCol(4, fmt.Sprintf("%.2f tCO2e", result.Total), props.Text{Style: fontstyle.Bold, Size: 11, Align: align.Right}),
	)
	m.AddRow(10,
		text.NewCol(8, "Emission Intensity", props.Text{Size: 10}),
		text.NewCol(4, fmt.Sprintf("%.3f tCO2e/t", result.Intensity), props.Text{Size: 10, Align: align.Right}),
	)

	m.AddRow(16,
		text.NewCol(12, "Report ID: "+reportID, props.Text{Size: 8, Top: 8}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate pdf: %w", err)
	}
	return doc.GetBytes(), nil
}
