package shape

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	return groupDigits(strconv.Itoa(n))
}

// FormatKWh formats an energy value as "1,234.5 kWh".
func FormatKWh(v float64) string {
	return formatGrouped(v, 1) + " kWh"
}

// FormatMoney formats a dollar amount as "$1,234.56".
func FormatMoney(v float64) string {
	if v < 0 {
		return "-$" + formatGrouped(-v, 2)
	}
	return "$" + formatGrouped(v, 2)
}

// FormatMinutes formats a duration in whole minutes.
func FormatMinutes(minutes float64) string {
	return fmt.Sprintf("%.0f min", minutes)
}

// formatGrouped renders v with the given number of decimals and comma
// separators in the integer part.
func formatGrouped(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		return groupDigits(s[:dot]) + s[dot:]
	}
	return groupDigits(s)
}

func groupDigits(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	if len(s) <= 3 {
		return sign + s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return sign + b.String()
}
