package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
	emissionservice "github.com/smallbiznis/cbam/internal/emission/service"
)

type precursorFactorView struct {
	Material string  `json:"material"`
	Factor   float64 `json:"factor"`
}

type factorsView struct {
	GridFactor   float64               `json:"grid_factor"`
	DieselFactor float64               `json:"diesel_factor"`
	CoalFactor   float64               `json:"coal_factor"`
	Precursors   []precursorFactorView `json:"precursors"`
}

type ValidateCNCodeRequest struct {
	CNCode string `json:"cn_code"`
}

type formattedResult struct {
	Scope1    string `json:"scope1"`
	Scope2    string `json:"scope2"`
	Scope3    string `json:"scope3"`
	Total     string `json:"total"`
	Intensity string `json:"intensity"`
}

type calculationView struct {
	Result    emissiondomain.CalculationResult `json:"result"`
	Category  string                           `json:"category"`
	Formatted formattedResult                  `json:"formatted"`
}

func (s *Server) Factors(c *gin.Context) {
	table := s.emissionSvc.Factors()
	view := factorsView{
		GridFactor:   table.GridFactor,
		DieselFactor: table.DieselFactor,
		CoalFactor:   table.CoalFactor,
		Precursors:   make([]precursorFactorView, 0, len(table.Precursors)),
	}
	for _, name := range table.PrecursorMaterials() {
		view.Precursors = append(view.Precursors, precursorFactorView{Material: name, Factor: table.Precursors[name]})
	}
	c.JSON(http.StatusOK, gin.H{"data": view})
}

func (s *Server) ValidateCNCode(c *gin.Context) {
	var req ValidateCNCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": s.emissionSvc.Validate(req.CNCode)})
}

func (s *Server) Calculate(c *gin.Context) {
	result, ok := s.calculateFromBody(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": calculationView{
		Result:   result,
		Category: s.emissionSvc.Validate(result.CNCode).Category,
		Formatted: formattedResult{
			Scope1:    emissionservice.FormatTonnes(result.Scope1),
			Scope2:    emissionservice.FormatTonnes(result.Scope2),
			Scope3:    emissionservice.FormatTonnes(result.Scope3),
			Total:     emissionservice.FormatTonnes(result.Total),
			Intensity: emissionservice.FormatIntensity(result.Intensity),
		},
	}})
}

// calculateFromBody binds a CalculationInput and runs it. On failure the
// error is already attached to c.
func (s *Server) calculateFromBody(c *gin.Context) (emissiondomain.CalculationResult, bool) {
	input, ok := bindInput(c)
	if !ok {
		return emissiondomain.CalculationResult{}, false
	}
	result, err := s.emissionSvc.Calculate(c.Request.Context(), input)
	if err != nil {
		AbortWithError(c, err)
		return emissiondomain.CalculationResult{}, false
	}
	return result, true
}

func bindInput(c *gin.Context) (emissiondomain.CalculationInput, bool) {
	var input emissiondomain.CalculationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		AbortWithError(c, invalidRequestError())
		return emissiondomain.CalculationInput{}, false
	}
	if input.Precursors == nil {
		input.Precursors = []emissiondomain.PrecursorInput{}
	}
	return input, true
}
