package history

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/dairycalc/internal/pricing"
)

// number is a numeric field that reads JSON numbers, numeric strings, empty
// strings and null. It is written back as a plain JSON number, or null when
// absent.
type number struct {
	decimal.NullDecimal
}

func present(d decimal.Decimal) number {
	return number{decimal.NullDecimal{Decimal: d, Valid: true}}
}

func (n *number) UnmarshalJSON(data []byte) error {
	raw := string(bytes.TrimSpace(data))
	if raw == "null" {
		*n = number{}
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSuffix(strings.TrimSpace(s), ".")
		if raw == "" {
			*n = number{}
			return nil
		}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("parse number %s: %w", data, err)
	}
	*n = present(d)
	return nil
}

func (n number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	places := -n.Decimal.Exponent()
	if places < 0 {
		places = 0
	}
	return []byte(n.Decimal.StringFixed(places)), nil
}

func (n number) value() decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	return n.Decimal
}

// record is the stored shape of one calculation. Keys match the records the
// mobile calculator wrote, so existing histories decode unchanged.
type record struct {
	ID        string `json:"id,omitempty"`
	Timestamp string `json:"timestamp"`
	Mode      string `json:"mode,omitempty"`

	Quantity      number `json:"quantity"`
	Rate          number `json:"rate"`
	Fat           number `json:"fat"`
	SNF           number `json:"snf"`
	CLR           number `json:"clr"`
	CalculatedSNF number `json:"calculatedSNF"`

	FatKg number `json:"fatKg"`
	SNFKg number `json:"snfKg"`

	BuyFatRate  number `json:"buyFatRate"`
	BuySNFRate  number `json:"buySnfRate"`
	SellFatRate number `json:"sellFatRate"`
	SellSNFRate number `json:"sellSnfRate"`

	BuyTotal    number `json:"buyTotal"`
	SellTotal   number `json:"sellTotal"`
	BuyAvgRate  number `json:"buyAvgRate"`
	SellAvgRate number `json:"sellAvgRate"`
}

func fromResult(r pricing.Result) record {
	return record{
		ID:            r.ID,
		Timestamp:     r.Timestamp,
		Mode:          string(r.Mode),
		Quantity:      present(r.Quantity),
		Rate:          present(r.Rate),
		Fat:           present(r.Fat),
		SNF:           number{r.SNF},
		CLR:           number{r.CLR},
		CalculatedSNF: number{r.DerivedSNF},
		FatKg:         present(r.FatKg),
		SNFKg:         present(r.SNFKg),
		BuyFatRate:    present(r.BuyFatRate),
		BuySNFRate:    present(r.BuySNFRate),
		SellFatRate:   present(r.SellFatRate),
		SellSNFRate:   present(r.SellSNFRate),
		BuyTotal:      present(r.BuyTotal),
		SellTotal:     present(r.SellTotal),
		BuyAvgRate:    present(r.BuyAvgRate),
		SellAvgRate:   present(r.SellAvgRate),
	}
}

func (rec record) toResult() pricing.Result {
	mode := pricing.Mode(rec.Mode)
	if !mode.Valid() {
		mode = pricing.ModeSNF
		if rec.CLR.Valid {
			mode = pricing.ModeCLR
		}
	}
	return pricing.Result{
		ID:          rec.ID,
		Timestamp:   rec.Timestamp,
		Quantity:    rec.Quantity.value(),
		Rate:        rec.Rate.value(),
		Fat:         rec.Fat.value(),
		Mode:        mode,
		SNF:         rec.SNF.NullDecimal,
		CLR:         rec.CLR.NullDecimal,
		DerivedSNF:  rec.CalculatedSNF.NullDecimal,
		FatKg:       rec.FatKg.value(),
		SNFKg:       rec.SNFKg.value(),
		BuyFatRate:  rec.BuyFatRate.value(),
		BuySNFRate:  rec.BuySNFRate.value(),
		SellFatRate: rec.SellFatRate.value(),
		SellSNFRate: rec.SellSNFRate.value(),
		BuyTotal:    rec.BuyTotal.value(),
		SellTotal:   rec.SellTotal.value(),
		BuyAvgRate:  rec.BuyAvgRate.value(),
		SellAvgRate: rec.SellAvgRate.value(),
	}
}

// Encode serializes results, newest first, as a JSON array.
func Encode(results []pricing.Result) (string, error) {
	records := make([]record, 0, len(results))
	for _, r := range results {
		records = append(records, fromResult(r))
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encode history: %w", err)
	}
	return string(data), nil
}

// Decode parses a JSON array written by Encode or by the mobile calculator.
// Unknown fields are ignored and missing fields are left absent.
func Decode(raw string) ([]pricing.Result, error) {
	var records []record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, err
	}
	results := make([]pricing.Result, 0, len(records))
	for _, rec := range records {
		results = append(results, rec.toResult())
	}
	return results, nil
}
