package domain

import "errors"

var (
	ErrInvalidCNCode        = errors.New("invalid_cn_code")
	ErrInvalidProductionQty = errors.New("invalid_production_qty")
	ErrNegativeQuantity     = errors.New("invalid_quantity")
)
