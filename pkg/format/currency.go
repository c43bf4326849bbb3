// Package format 提供面向界面的金额格式化。
package format

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var mxPrinter = message.NewPrinter(language.MustParse("es-MX"))

// Currency 以 es-MX 的 MXN 格式输出整数金额，例如 $245,000。
func Currency(value float64) string {
	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}
	return sign + "$" + mxPrinter.Sprint(number.Decimal(math.Round(value), number.MaxFractionDigits(0)))
}

// CurrencyShort 输出紧凑金额：$1.2M、$245K、$950。
func CurrencyShort(value float64) string {
	switch {
	case value >= 1000000:
		return fmt.Sprintf("$%.1fM", value/1000000)
	case value >= 1000:
		return fmt.Sprintf("$%dK", int64(math.Round(value/1000)))
	default:
		return "$" + strconv.FormatFloat(value, 'f', -1, 64)
	}
}
