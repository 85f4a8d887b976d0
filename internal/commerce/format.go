package commerce

import (
	"strings"

	"github.com/pborman/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// FormatMoney renders amount with two decimals using the separators of lang.
func FormatMoney(amount decimal.Decimal, currency, lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	p := message.NewPrinter(tag)
	return currency + " " + p.Sprintf("%.2f", amount.Round(2).InexactFloat64())
}

// ParseAmount accepts both dot and comma as the decimal separator.
func ParseAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.Replace(strings.TrimSpace(s), ",", ".", 1))
}

func newID() string {
	id, _, _ := strings.Cut(uuid.New(), "-")
	return id
}
