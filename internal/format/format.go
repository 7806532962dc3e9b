package format

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"
)

// CLP formats an integer peso amount the way the storefront displays prices.
// Example: CLP(199990) => "$199.990"
func CLP(amount int64) string {
	if amount < 0 {
		return "-$" + thousandSep(-amount)
	}
	return "$" + thousandSep(amount)
}

func thousandSep(n int64) string {
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, c := range s {
		if i != 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// StockLabel renders the stock line shown under the price.
func StockLabel(units int) string {
	if units == 1 {
		return "Stock: 1 unidad"
	}
	return fmt.Sprintf("Stock: %d unidades", units)
}

// InquiryMessage is the prefilled WhatsApp text for a product.
func InquiryMessage(parentName, variantName string) string {
	return fmt.Sprintf("¡Hola! Estoy interesado/a en %s - %s. ¿Podrías proporcionarme más información?", parentName, variantName)
}

// WhatsAppLink builds a wa.me link with the inquiry text. Non-digits are dropped from number.
// It returns "" when number has no digits.
func WhatsAppLink(number, parentName, variantName string) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, number)
	if digits == "" {
		return ""
	}
	text := strings.ReplaceAll(url.QueryEscape(InquiryMessage(parentName, variantName)), "+", "%20")
	return "https://wa.me/" + digits + "?text=" + text
}

// Date formats t as day-month-year, as used in the admin lists.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02-01-2006")
}
