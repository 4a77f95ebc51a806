package pricing

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var gbPrinter = message.NewPrinter(language.BritishEnglish)

// FormatGBP formats whole pounds with thousands separators, e.g. "£1,207".
func FormatGBP(amount int) string {
	if amount < 0 {
		return "-" + gbPrinter.Sprintf("£%d", -amount)
	}
	return gbPrinter.Sprintf("£%d", amount)
}

// FormatMonthly formats a monthly figure, e.g. "£45/mo".
func FormatMonthly(amount int) string {
	return FormatGBP(amount) + "/mo"
}
