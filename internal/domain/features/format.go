package features

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var usd = message.NewPrinter(language.AmericanEnglish)

// FormatUSD renders a revenue figure as "$1,234.56".
func FormatUSD(v float64) string {
	return usd.Sprintf("$%.2f", v)
}
