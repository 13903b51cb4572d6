package main

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/dairycalc/internal/pricing"
)

// formValue is a form field as typed. Clients may send it as a JSON string or
// a JSON number.
type formValue string

func (v *formValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = formValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = formValue(n.String())
	return nil
}

type inputsPayload struct {
	Quantity formValue `json:"quantity" validate:"max=32"`
	Rate     formValue `json:"rate" validate:"max=32"`
	Fat      formValue `json:"fat" validate:"max=32"`
	Mode     string    `json:"mode" validate:"omitempty,oneof=snf clr"`
	SNF      formValue `json:"snf" validate:"max=32"`
	CLR      formValue `json:"clr" validate:"max=32"`
}

func (p inputsPayload) toInputs() pricing.Inputs {
	return pricing.Inputs{
		Quantity: string(p.Quantity),
		Rate:     string(p.Rate),
		Fat:      string(p.Fat),
		Mode:     pricing.Mode(p.Mode),
		SNF:      string(p.SNF),
		CLR:      string(p.CLR),
	}
}

// formatRequest edits one field of a form snapshot, or switches its mode.
type formatRequest struct {
	Inputs inputsPayload `json:"inputs"`
	Field  string        `json:"field" validate:"omitempty,oneof=quantity rate fat snf clr"`
	Value  string        `json:"value" validate:"max=32"`
	Mode   string        `json:"mode" validate:"omitempty,oneof=snf clr"`
}

type formatResponse struct {
	Inputs     pricing.Inputs `json:"inputs"`
	DerivedSNF *string        `json:"derivedSnf"`
}

type resultResponse struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Mode      string `json:"mode"`

	Quantity   decimal.Decimal     `json:"quantity"`
	Rate       decimal.Decimal     `json:"rate"`
	Fat        decimal.Decimal     `json:"fat"`
	SNF        decimal.NullDecimal `json:"snf"`
	CLR        decimal.NullDecimal `json:"clr"`
	DerivedSNF decimal.NullDecimal `json:"derivedSnf"`

	FatKg decimal.Decimal `json:"fatKg"`
	SNFKg decimal.Decimal `json:"snfKg"`

	BuyFatRate  decimal.Decimal `json:"buyFatRate"`
	BuySNFRate  decimal.Decimal `json:"buySnfRate"`
	SellFatRate decimal.Decimal `json:"sellFatRate"`
	SellSNFRate decimal.Decimal `json:"sellSnfRate"`

	BuyTotal         decimal.Decimal `json:"buyTotal"`
	SellTotal        decimal.Decimal `json:"sellTotal"`
	SellTotalDisplay string          `json:"sellTotalDisplay"`
	BuyAvgRate       decimal.Decimal `json:"buyAvgRate"`
	SellAvgRate      decimal.Decimal `json:"sellAvgRate"`
	Profit           decimal.Decimal `json:"profit"`
}

func newResultResponse(r pricing.Result) resultResponse {
	return resultResponse{
		ID:               r.ID,
		Timestamp:        r.Timestamp,
		Mode:             string(r.Mode),
		Quantity:         r.Quantity,
		Rate:             r.Rate,
		Fat:              r.Fat,
		SNF:              r.SNF,
		CLR:              r.CLR,
		DerivedSNF:       r.DerivedSNF,
		FatKg:            r.FatKg,
		SNFKg:            r.SNFKg,
		BuyFatRate:       r.BuyFatRate,
		BuySNFRate:       r.BuySNFRate,
		SellFatRate:      r.SellFatRate,
		SellSNFRate:      r.SellSNFRate,
		BuyTotal:         r.BuyTotal,
		SellTotal:        r.SellTotal,
		SellTotalDisplay: r.SellTotalDisplay(),
		BuyAvgRate:       r.BuyAvgRate,
		SellAvgRate:      r.SellAvgRate,
		Profit:           r.Profit(),
	}
}

type calculationResponse struct {
	Result  resultResponse `json:"result"`
	Warning string         `json:"warning,omitempty"`
}

type historyResponse struct {
	Results []resultResponse `json:"results"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
}
