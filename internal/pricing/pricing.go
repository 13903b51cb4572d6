package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Pricing bases. Buy and sell share the fat base and differ only on the SNF
// base, so the margin is taken on the SNF component alone.
var (
	buyBaseSNF  = decimal.RequireFromString("9.0")
	sellBaseSNF = decimal.RequireFromString("8.5")
	baseFat     = decimal.RequireFromString("6.5")

	fatShare = decimal.NewFromInt(60)
	snfShare = decimal.NewFromInt(40)

	clrDivisor   = decimal.NewFromInt(4)
	clrFatFactor = decimal.RequireFromString("0.20")
	clrOffset    = decimal.RequireFromString("0.14")
)

const (
	ratePlaces      = 3
	buyTotalPlaces  = 2
	sellTotalPlaces = 3
	avgRatePlaces   = 2
	derivedPlaces   = 2
	displayPlaces   = 2
	profitPlaces    = 2
)

// Result is a completed calculation. It carries a snapshot of the inputs it
// was computed from and is never modified once recorded.
type Result struct {
	ID        string
	Timestamp string

	Quantity   decimal.Decimal
	Rate       decimal.Decimal
	Fat        decimal.Decimal
	Mode       Mode
	SNF        decimal.NullDecimal
	CLR        decimal.NullDecimal
	DerivedSNF decimal.NullDecimal

	FatKg decimal.Decimal
	SNFKg decimal.Decimal

	BuyFatRate  decimal.Decimal
	BuySNFRate  decimal.Decimal
	SellFatRate decimal.Decimal
	SellSNFRate decimal.Decimal

	BuyTotal    decimal.Decimal
	SellTotal   decimal.Decimal
	BuyAvgRate  decimal.Decimal
	SellAvgRate decimal.Decimal
}

// EffectiveSNF returns the SNF percentage the amounts were priced with.
func (r Result) EffectiveSNF() decimal.Decimal {
	if r.Mode == ModeCLR && r.DerivedSNF.Valid {
		return r.DerivedSNF.Decimal
	}
	return r.SNF.Decimal
}

// SellTotalDisplay formats the sell total the way it is shown to the user.
func (r Result) SellTotalDisplay() string {
	return r.SellTotal.StringFixed(displayPlaces)
}

// Profit is the sell total less the buy total, rounded to two places.
func (r Result) Profit() decimal.Decimal {
	return r.SellTotal.Sub(r.BuyTotal).Round(profitPlaces)
}

// DeriveSNFFromCLR converts a corrected lactometer reading into an SNF
// percentage, floored to two decimal places.
func DeriveSNFFromCLR(clr, fat decimal.Decimal) decimal.Decimal {
	snf := clr.Div(clrDivisor).Add(clrFatFactor.Mul(fat)).Add(clrOffset)
	return FloorTo(snf, derivedPlaces)
}

// Calculate validates in and computes buy and sell amounts. It is pure: ID and
// Timestamp are left empty for the caller to assign.
func Calculate(in Inputs) (Result, error) {
	mode := in.mode()
	if !mode.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownMode, in.Mode)
	}

	v := validator{}
	quantity := v.positive(FieldQuantity, in.Quantity)
	rate := v.positive(FieldRate, in.Rate)
	fat := v.percent(FieldFat, in.Fat)

	res := Result{Mode: mode}
	var snf decimal.Decimal
	switch mode {
	case ModeSNF:
		snf = v.percent(FieldSNF, in.SNF)
		res.SNF = decimal.NullDecimal{Decimal: snf, Valid: true}
	case ModeCLR:
		clr := v.number(FieldCLR, in.CLR)
		if err := v.err(); err != nil {
			return Result{}, err
		}
		snf = DeriveSNFFromCLR(clr, fat)
		res.CLR = decimal.NullDecimal{Decimal: clr, Valid: true}
		res.DerivedSNF = decimal.NullDecimal{Decimal: snf, Valid: true}
	}
	if err := v.err(); err != nil {
		return Result{}, err
	}

	res.Quantity = quantity
	res.Rate = rate
	res.Fat = fat

	res.FatKg = percentOf(quantity, fat)
	res.SNFKg = percentOf(quantity, snf)

	res.BuyFatRate = rate.Mul(fatShare).DivRound(baseFat, ratePlaces)
	res.BuySNFRate = rate.Mul(snfShare).DivRound(buyBaseSNF, ratePlaces)
	res.SellFatRate = rate.Mul(fatShare).DivRound(baseFat, ratePlaces)
	res.SellSNFRate = rate.Mul(snfShare).DivRound(sellBaseSNF, ratePlaces)

	res.BuyTotal = res.FatKg.Mul(res.BuyFatRate).Add(res.SNFKg.Mul(res.BuySNFRate)).Round(buyTotalPlaces)
	res.SellTotal = res.FatKg.Mul(res.SellFatRate).Add(res.SNFKg.Mul(res.SellSNFRate)).Round(sellTotalPlaces)

	res.BuyAvgRate = res.BuyTotal.DivRound(quantity, avgRatePlaces)
	res.SellAvgRate = res.SellTotal.DivRound(quantity, avgRatePlaces)

	return res, nil
}

// percentOf returns pct percent of q without rounding.
func percentOf(q, pct decimal.Decimal) decimal.Decimal {
	return q.Mul(pct).Shift(-2)
}
