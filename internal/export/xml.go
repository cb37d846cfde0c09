package export

import (
	"encoding/xml"
	"strconv"

	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
	emissionservice "github.com/smallbiznis/cbam/internal/emission/service"
)

type xmlReport struct {
	XMLName            xml.Name     `xml:"CBAMReport"`
	CNCode             string       `xml:"CNCode"`
	ProductCategory    string       `xml:"ProductCategory"`
	ProductionQuantity string       `xml:"ProductionQuantity"`
	Emissions          xmlEmissions `xml:"Emissions"`
	Intensity          string       `xml:"EmissionIntensity"`
}

type xmlEmissions struct {
	Unit   string `xml:"unit,attr"`
	Scope1 string `xml:"Scope1"`
	Scope2 string `xml:"Scope2"`
	Scope3 string `xml:"Scope3"`
	Total  string `xml:"Total"`
}

// XML renders a calculation result as an indented CBAMReport document.
func XML(result emissiondomain.CalculationResult) ([]byte, error) {
	doc := xmlReport{
		CNCode:             result.CNCode,
		ProductCategory:    emissionservice.ProductType(result.CNCode),
		ProductionQuantity: decimal6(result.ProductionQty),
		Emissions: xmlEmissions{
			Unit:   "tCO2e",
			Scope1: decimal6(result.Scope1),
			Scope2: decimal6(result.Scope2),
			Scope3: decimal6(result.Scope3),
			Total:  decimal6(result.Total),
		},
		Intensity: decimal6(result.Intensity),
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	return append(out, '\n'), nil
}

func decimal6(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
