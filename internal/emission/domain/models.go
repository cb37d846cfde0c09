// Package domain contains the types shared by the emissions calculator.
package domain

// PrecursorInput is one upstream material line of a calculation.
type PrecursorInput struct {
	Type string  `json:"type"`
	Qty  float64 `json:"qty"`
}

// CalculationInput is the parsed form of the calculator inputs.
type CalculationInput struct {
	CNCode        string           `json:"cn_code"`
	ProductionQty float64          `json:"production_qty"` // tonnes
	Electricity   float64          `json:"electricity"`    // kWh
	Diesel        float64          `json:"diesel"`         // litres
	Coal          float64          `json:"coal"`           // kg
	Precursors    []PrecursorInput `json:"precursors"`
}

// CalculationResult is the outcome of one calculation. It is never mutated;
// a new calculation supersedes it.
type CalculationResult struct {
	Scope1        float64 `json:"scope1"`
	Scope2        float64 `json:"scope2"`
	Scope3        float64 `json:"scope3"`
	Total         float64 `json:"total"`
	Intensity     float64 `json:"intensity"`
	CNCode        string  `json:"cn_code"`
	ProductionQty float64 `json:"production_qty"`
}

// ClassificationState is the UI state of a CN code field.
type ClassificationState string

const (
	StateEmpty         ClassificationState = "empty"
	StateCategorized   ClassificationState = "categorized"
	StateUncategorized ClassificationState = "uncategorized"
	StateInvalid       ClassificationState = "invalid"
)

const (
	// ValidCodeLabel is shown for well-formed codes outside the category table.
	ValidCodeLabel = "Valid CN Code"
	// UnknownProductType is persisted when the prefix has no category.
	UnknownProductType = "Unknown"
	// InvalidCodeMessage is the inline error for malformed codes.
	InvalidCodeMessage = "Must be exactly 8 digits"
)

// Classification is the validator verdict for a CN code.
type Classification struct {
	State    ClassificationState `json:"state"`
	Valid    bool                `json:"valid"`
	Category string              `json:"category,omitempty"`
	Message  string              `json:"message,omitempty"`
}
