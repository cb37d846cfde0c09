package service

import (
	emissiondomain "github.com/smallbiznis/cbam/internal/emission/domain"
)

const cnCodeLength = 8

// Validate classifies a CN code. An empty code is its own state rather than
// an error so the caller can hide feedback until the user types.
func Validate(code string) emissiondomain.Classification {
	if code == "" {
		return emissiondomain.Classification{State: emissiondomain.StateEmpty}
	}
	if !isCNCode(code) {
		return emissiondomain.Classification{
			State:   emissiondomain.StateInvalid,
			Message: emissiondomain.InvalidCodeMessage,
		}
	}
	if category, ok := emissiondomain.CBAMGoods[code[:2]]; ok {
		return emissiondomain.Classification{
			State:    emissiondomain.StateCategorized,
			Valid:    true,
			Category: category,
		}
	}
	return emissiondomain.Classification{
		State:    emissiondomain.StateUncategorized,
		Valid:    true,
		Category: emissiondomain.ValidCodeLabel,
	}
}

// ProductType returns the category persisted with a report.
func ProductType(code string) string {
	if len(code) >= 2 {
		if category, ok := emissiondomain.CBAMGoods[code[:2]]; ok {
			return category
		}
	}
	return emissiondomain.UnknownProductType
}

// isCNCode matches ^[0-9]{8}$ without allocating a regexp.
func isCNCode(code string) bool {
	if len(code) != cnCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
