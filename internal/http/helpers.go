package http

import (
	"html/template"
	"strings"

	"github.com/shopspring/decimal"

	"restobook/internal/core"
)

// sanitizeInput removes control characters (except tab and newlines) and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// barWidth scales part against top to a percentage, keeping small non-zero
// values visible.
func barWidth(part, top decimal.Decimal) int {
	if !top.IsPositive() || !part.IsPositive() {
		return 0
	}
	width := int(part.Mul(decimal.NewFromInt(100)).Div(top).Round(0).IntPart())
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}

var templateFuncs = template.FuncMap{
	"amount": core.FormatAmount,
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"quantity": func(q *decimal.Decimal) string {
		if q == nil {
			return ""
		}
		return q.String()
	},
	"unit": func(u *core.Unit) string {
		if u == nil {
			return ""
		}
		return string(*u)
	},
}
