package money

import "math"

// Round rounds a monetary amount to two decimal places. All order, tax and
// commission arithmetic goes through here so that stored values never carry
// sub-cent noise from float operations.
func Round(amount float64) float64 {
	return math.Round(amount*100) / 100
}
