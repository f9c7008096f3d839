package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatCredits renders an amount with thousands separators, e.g. "1,500 credits".
func FormatCredits(amount int64) string {
	if amount == 1 || amount == -1 {
		return printer.Sprintf("%d credit", amount)
	}
	return printer.Sprintf("%d credits", amount)
}
