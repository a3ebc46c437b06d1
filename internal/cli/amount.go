package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/shared-ledger/internal/model"
)

// FormatAmount renders minor units as a decimal string in the currency's
// precision, e.g. 123456 USD as "1,234.56" and -5000 KRW as "-5,000".
func FormatAmount(minor int64, currency string) string {
	digits := model.CurrencyDigits(currency)

	negative := minor < 0
	abs := uint64(minor)
	if negative {
		abs = uint64(-(minor + 1)) + 1
	}

	s := strconv.FormatUint(abs, 10)
	if len(s) <= digits {
		s = strings.Repeat("0", digits-len(s)+1) + s
	}
	whole, frac := s[:len(s)-digits], s[len(s)-digits:]

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if digits > 0 {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// ParseAmount reads a decimal amount such as "1,234.56" into minor units of
// currency. More fraction digits than the currency carries is an error.
func ParseAmount(s, currency string) (int64, error) {
	digits := model.CurrencyDigits(currency)
	text := strings.ReplaceAll(strings.TrimSpace(s), ",", "")

	negative := strings.HasPrefix(text, "-")
	text = strings.TrimPrefix(strings.TrimPrefix(text, "-"), "+")

	whole, frac, hasFrac := strings.Cut(text, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if hasFrac && len(frac) > digits {
		return 0, fmt.Errorf("amount %q has more than %d fraction digits for %s", s, digits, currency)
	}
	frac += strings.Repeat("0", digits-len(frac))

	if whole == "" {
		whole = "0"
	}
	n, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil || strings.ContainsAny(whole+frac, "+-") {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if negative {
		n = -n
	}
	return n, nil
}
