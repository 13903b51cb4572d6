package pricing

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func decimalEqual(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("%s = %s, want %s", name, got, want)
	}
}

func TestCalculate_SNFModeRegressionVector(t *testing.T) {
	in := Inputs{Quantity: "100", Rate: "30", Fat: "4.0", Mode: ModeSNF, SNF: "8.5"}

	result, err := Calculate(in)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	decimalEqual(t, "fatKg", result.FatKg, "4")
	decimalEqual(t, "snfKg", result.SNFKg, "8.5")
	decimalEqual(t, "buyFatRate", result.BuyFatRate, "276.923")
	decimalEqual(t, "buySnfRate", result.BuySNFRate, "133.333")
	decimalEqual(t, "sellFatRate", result.SellFatRate, "276.923")
	decimalEqual(t, "sellSnfRate", result.SellSNFRate, "141.176")
	decimalEqual(t, "buyTotal", result.BuyTotal, "2241.02")
	decimalEqual(t, "sellTotal", result.SellTotal, "2307.688")
	decimalEqual(t, "buyAvgRate", result.BuyAvgRate, "22.41")
	decimalEqual(t, "sellAvgRate", result.SellAvgRate, "23.08")
	decimalEqual(t, "profit", result.Profit(), "66.67")

	if got := result.SellTotalDisplay(); got != "2307.69" {
		t.Fatalf("SellTotalDisplay() = %q, want %q", got, "2307.69")
	}
	if result.ID != "" || result.Timestamp != "" {
		t.Fatalf("Calculate must leave ID and Timestamp unset, got %q %q", result.ID, result.Timestamp)
	}
}

func TestCalculate_SNFModeUsesSNFExactly(t *testing.T) {
	result, err := Calculate(Inputs{Quantity: "12.5", Rate: "45", Fat: "6.2", SNF: "9.1"})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if result.Mode != ModeSNF {
		t.Fatalf("mode = %q, want %q", result.Mode, ModeSNF)
	}
	if result.DerivedSNF.Valid {
		t.Fatalf("expected no derived SNF in SNF mode")
	}
	decimalEqual(t, "effectiveSnf", result.EffectiveSNF(), "9.1")
	decimalEqual(t, "fatKg", result.FatKg, "0.775")
	decimalEqual(t, "snfKg", result.SNFKg, "1.1375")
	decimalEqual(t, "buyTotal", result.BuyTotal, "549.42")
	decimalEqual(t, "sellTotal", result.SellTotal, "562.806")
	decimalEqual(t, "buyAvgRate", result.BuyAvgRate, "43.95")
	decimalEqual(t, "sellAvgRate", result.SellAvgRate, "45.02")
	decimalEqual(t, "profit", result.Profit(), "13.39")
}

func TestCalculate_CLRModeDerivesSNF(t *testing.T) {
	in := Inputs{Quantity: "50", Rate: "32", Fat: "4.0", Mode: ModeCLR, CLR: "28.5"}

	result, err := Calculate(in)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if !result.DerivedSNF.Valid || result.SNF.Valid {
		t.Fatalf("expected derived SNF only, got snf=%v derived=%v", result.SNF, result.DerivedSNF)
	}
	decimalEqual(t, "derivedSnf", result.DerivedSNF.Decimal, "8.06")
	decimalEqual(t, "clr", result.CLR.Decimal, "28.5")
	decimalEqual(t, "snfKg", result.SNFKg, "4.03")
	decimalEqual(t, "buyFatRate", result.BuyFatRate, "295.385")
	decimalEqual(t, "buySnfRate", result.BuySNFRate, "142.222")
	decimalEqual(t, "sellSnfRate", result.SellSNFRate, "150.588")
	decimalEqual(t, "buyTotal", result.BuyTotal, "1163.92")
	decimalEqual(t, "sellTotal", result.SellTotal, "1197.64")
	decimalEqual(t, "buyAvgRate", result.BuyAvgRate, "23.28")
	decimalEqual(t, "sellAvgRate", result.SellAvgRate, "23.95")
	decimalEqual(t, "profit", result.Profit(), "33.72")
}

func TestCalculate_BuyAndSellShareFatRate(t *testing.T) {
	for _, rate := range []string{"1", "29.5", "33.33", "77"} {
		result, err := Calculate(Inputs{Quantity: "10", Rate: rate, Fat: "3.5", SNF: "8.0"})
		if err != nil {
			t.Fatalf("Calculate(rate=%s): %v", rate, err)
		}
		if !result.BuyFatRate.Equal(result.SellFatRate) {
			t.Fatalf("rate=%s: buy fat rate %s != sell fat rate %s", rate, result.BuyFatRate, result.SellFatRate)
		}
		if !result.SellSNFRate.GreaterThan(result.BuySNFRate) {
			t.Fatalf("rate=%s: sell SNF rate %s should exceed buy SNF rate %s", rate, result.SellSNFRate, result.BuySNFRate)
		}
	}
}

func TestCalculate_IsDeterministic(t *testing.T) {
	in := Inputs{Quantity: "73.4", Rate: "31.7", Fat: "5.3", Mode: ModeCLR, CLR: "27.45"}

	first, err := Calculate(in)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	second, err := Calculate(in)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("results differ:\n%+v\n%+v", first, second)
	}
}

func TestCalculate_MissingBaseFields(t *testing.T) {
	full := Inputs{Quantity: "100", Rate: "30", Fat: "4.0", SNF: "8.5"}

	cases := []struct {
		name  string
		in    Inputs
		field string
	}{
		{name: "quantity", in: Inputs{Rate: full.Rate, Fat: full.Fat, SNF: full.SNF}, field: FieldQuantity},
		{name: "rate", in: Inputs{Quantity: full.Quantity, Fat: full.Fat, SNF: full.SNF}, field: FieldRate},
		{name: "fat", in: Inputs{Quantity: full.Quantity, Rate: full.Rate, SNF: full.SNF}, field: FieldFat},
		{name: "snf", in: Inputs{Quantity: full.Quantity, Rate: full.Rate, Fat: full.Fat}, field: FieldSNF},
		{name: "clr", in: Inputs{Quantity: full.Quantity, Rate: full.Rate, Fat: full.Fat, Mode: ModeCLR, SNF: "8.5"}, field: FieldCLR},
		{name: "trailing point", in: Inputs{Quantity: "100.", Rate: full.Rate, Fat: full.Fat, SNF: full.SNF}, field: FieldQuantity},
		{name: "not a number", in: Inputs{Quantity: full.Quantity, Rate: "abc", Fat: full.Fat, SNF: full.SNF}, field: FieldRate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(tc.in)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if len(ve.Missing) != 1 || ve.Missing[0] != tc.field {
				t.Fatalf("missing = %v, want [%s]", ve.Missing, tc.field)
			}
		})
	}
}

func TestCalculate_ReportsAllMissingFields(t *testing.T) {
	_, err := Calculate(Inputs{Mode: ModeCLR})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	want := []string{FieldQuantity, FieldRate, FieldFat, FieldCLR}
	if !reflect.DeepEqual(ve.Missing, want) {
		t.Fatalf("missing = %v, want %v", ve.Missing, want)
	}
	if !IsValidationError(err) {
		t.Fatalf("IsValidationError(%v) = false", err)
	}
}

func TestCalculate_RejectsOutOfRangeValues(t *testing.T) {
	_, err := Calculate(Inputs{Quantity: "0", Rate: "-3", Fat: "101", SNF: "8.5"})

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	want := []string{FieldQuantity, FieldRate, FieldFat}
	if !reflect.DeepEqual(ve.Invalid, want) {
		t.Fatalf("invalid = %v, want %v", ve.Invalid, want)
	}
	if len(ve.Missing) != 0 {
		t.Fatalf("missing = %v, want none", ve.Missing)
	}
}

func TestCalculate_RejectsExponentAndOversizedNumbers(t *testing.T) {
	cases := []struct {
		name  string
		in    Inputs
		field string
	}{
		{name: "tiny exponent", in: Inputs{Quantity: "1e-9999999", Rate: "30", Fat: "4.0", SNF: "8.5"}, field: FieldQuantity},
		{name: "large exponent", in: Inputs{Quantity: "100", Rate: "3E+5", Fat: "4.0", SNF: "8.5"}, field: FieldRate},
		{name: "long fraction", in: Inputs{Quantity: "100", Rate: "30", Fat: "4.00000000001", SNF: "8.5"}, field: FieldFat},
		{name: "long integer", in: Inputs{Quantity: "1234567890123", Rate: "30", Fat: "4.0", SNF: "8.5"}, field: FieldQuantity},
		{name: "clr exponent", in: Inputs{Quantity: "100", Rate: "30", Fat: "4.0", Mode: ModeCLR, CLR: "2.85e1"}, field: FieldCLR},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Calculate(tc.in)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if !reflect.DeepEqual(ve.Invalid, []string{tc.field}) || len(ve.Missing) != 0 {
				t.Fatalf("invalid = %v missing = %v, want invalid [%s]", ve.Invalid, ve.Missing, tc.field)
			}
		})
	}

	if _, err := Calculate(Inputs{Quantity: "123456789012.5", Rate: "30", Fat: "4.0000000001", SNF: "8.5"}); err != nil {
		t.Fatalf("values at the digit bounds should be accepted: %v", err)
	}
}

func TestCalculate_UnknownMode(t *testing.T) {
	_, err := Calculate(Inputs{Quantity: "1", Rate: "1", Fat: "1", SNF: "1", Mode: "lactose"})
	if !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
}

func TestDeriveSNFFromCLR_Truncates(t *testing.T) {
	cases := []struct {
		clr, fat, want string
	}{
		{clr: "36", fat: "4.0", want: "9.94"},
		{clr: "36.789", fat: "4.0", want: "10.13"},
		{clr: "28.5", fat: "4.0", want: "8.06"},
		{clr: "27.99", fat: "3.3", want: "7.79"},
	}

	for _, tc := range cases {
		got := DeriveSNFFromCLR(decimal.RequireFromString(tc.clr), decimal.RequireFromString(tc.fat))
		decimalEqual(t, "derived("+tc.clr+","+tc.fat+")", got, tc.want)
	}
}
