package pricing

import "github.com/shopspring/decimal"

// Truncate cuts d to places decimal digits toward zero, so -1.29 becomes -1.2.
// Values already within precision are returned unchanged.
func Truncate(d decimal.Decimal, places int32) decimal.Decimal {
	return d.Truncate(places)
}

// FloorTo rounds d toward negative infinity at places decimal digits.
func FloorTo(d decimal.Decimal, places int32) decimal.Decimal {
	return d.RoundFloor(places)
}
