package ledger

import (
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type CurrencyDef struct {
	Code     string
	Name     string
	Exponent int // 2 for USD (100 cents), 0 for JPY
}

const DefaultCurrency = "USD"

var Currencies = map[string]CurrencyDef{
	"USD": {Code: "USD", Name: "US Dollar", Exponent: 2},
	"EUR": {Code: "EUR", Name: "Euro", Exponent: 2},
	"GBP": {Code: "GBP", Name: "Pound Sterling", Exponent: 2},
	"JPY": {Code: "JPY", Name: "Japanese Yen", Exponent: 0},
	"CHF": {Code: "CHF", Name: "Swiss Franc", Exponent: 2},
	"AUD": {Code: "AUD", Name: "Australian Dollar", Exponent: 2},
	"CAD": {Code: "CAD", Name: "Canadian Dollar", Exponent: 2},
	"NZD": {Code: "NZD", Name: "New Zealand Dollar", Exponent: 2},
	"MXN": {Code: "MXN", Name: "Mexican Peso", Exponent: 2},
}

func ValidCurrency(code string) bool {
	_, ok := Currencies[code]
	return ok
}

// ToMinorUnits converts a decimal string like "10.50" to 1050 for USD.
// Bank-export noise is tolerated: a leading currency symbol, thousands
// separators and accounting-style parentheses for negatives. Amounts with
// more fractional digits than the currency allows are rejected.
func ToMinorUnits(amount string, currency string) (int64, error) {
	cur, ok := Currencies[currency]
	if !ok {
		return 0, Validationf("unsupported currency %q", currency)
	}

	s := strings.TrimSpace(amount)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.NewReplacer(",", "", "$", "", "€", "", "£", "", " ", "").Replace(s)
	if s == "" {
		return 0, Validationf("amount is empty")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, Validationf("invalid amount %q", amount)
	}
	scaled := d.Shift(int32(cur.Exponent))
	if !scaled.IsInteger() {
		return 0, Validationf("amount %q has more than %d decimal places", amount, cur.Exponent)
	}
	if scaled.Abs().GreaterThan(maxMinorUnits) {
		return 0, Validationf("amount %q is out of range", amount)
	}
	minor := scaled.IntPart()
	if negative {
		minor = -minor
	}
	return minor, nil
}

var maxMinorUnits = decimal.NewFromInt(math.MaxInt64)

// FormatAmount converts minor units to a display string. E.g. 1050 USD -> "10.50".
func FormatAmount(amount int64, currency string) string {
	exp := 2
	if cur, ok := Currencies[currency]; ok {
		exp = cur.Exponent
	}
	return decimal.New(amount, int32(-exp)).StringFixed(int32(exp))
}

// CurrencyCodes returns a sorted list of supported currency codes.
func CurrencyCodes() []string {
	codes := make([]string, 0, len(Currencies))
	for code := range Currencies {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
