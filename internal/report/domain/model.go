// Package domain contains the persisted report types.
package domain

import (
	"time"

	"github.com/google/uuid"
	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
	"gorm.io/datatypes"
)

// InputSnapshot is the raw consumption data a report was calculated from.
type InputSnapshot struct {
	Electricity float64                         `json:"electricity"`
	Diesel      float64                         `json:"diesel"`
	Coal        float64                         `json:"coal"`
	Precursors  []emissiondomain.PrecursorInput `json:"precursors"`
}

// Report is one saved calculation.
type Report struct {
	ID             uuid.UUID                           `json:"id" gorm:"column:id;type:uuid;primaryKey"`
	UserID         string                              `json:"user_id" gorm:"column:user_id;type:text;not null;index:idx_cbam_reports_user_created,priority:1"`
	CNCode         string                              `json:"cn_code" gorm:"column:cn_code;type:text;not null"`
	ProductType    string                              `json:"product_type" gorm:"column:product_type;type:text;not null"`
	ProductionQty  float64                             `json:"production_qty" gorm:"column:production_qty;not null"`
	InputData      datatypes.JSONType[InputSnapshot]   `json:"input_data" gorm:"column:input_data;not null"`
	TotalEmissions float64                             `json:"total_emissions" gorm:"column:total_emissions;not null"`
	Intensity      float64                             `json:"intensity" gorm:"column:intensity;not null"`
	CreatedAt      time.Time                           `json:"created_at" gorm:"column:created_at;not null;index:idx_cbam_reports_user_created,priority:2"`
}

// TableName sets the database table name.
func (Report) TableName() string { return "cbam_reports" }

