package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tabunganku/backend/core/transaction"
)

// Format identifiers
const (
	FormatPDF   = "pdf"
	FormatExcel = "xlsx"
)

const (
	allClassesToken = "semua-kelas"
	allDatesToken   = "semua-tanggal"
)

// Filename derives the download name of a recap export from its filters,
// e.g. "rekapitulasi-tabungan-Kelas 3-20230915.pdf" or
// "rekapitulasi-tabungan-semua-kelas-semua-tanggal.xlsx". The class value
// is embedded as entered; only the empty filters get placeholder tokens.
func Filename(class string, w transaction.Window, format string) string {
	classToken := allClassesToken
	if class != "" {
		classToken = class
	}
	dateToken := allDatesToken
	switch {
	case !w.From.IsZero():
		dateToken = w.From.Format("20060102")
	case !w.To.IsZero():
		dateToken = w.To.Format("20060102")
	}
	return fmt.Sprintf("rekapitulasi-tabungan-%s-%s.%s", classToken, dateToken, format)
}

// formatRupiah renders an amount the Indonesian way: dot-separated
// thousands, no decimals. Negative amounts keep their sign.
func formatRupiah(d decimal.Decimal) string {
	s := d.Round(0).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := "Rp " + b.String()
	if neg {
		out = "-" + out
	}
	return out
}

// periodLabel describes the recap window for report headers.
func periodLabel(w transaction.Window) string {
	const layout = "02-01-2006"
	switch {
	case !w.From.IsZero() && !w.To.IsZero():
		return fmt.Sprintf("Periode: %s s.d. %s", w.From.Format(layout), w.To.Format(layout))
	case !w.From.IsZero():
		return fmt.Sprintf("Periode: sejak %s", w.From.Format(layout))
	case !w.To.IsZero():
		return fmt.Sprintf("Periode: hingga %s", w.To.Format(layout))
	}
	return "Periode: Semua Tanggal"
}

// classLabel describes the class filter for report headers.
func classLabel(class string) string {
	if class == "" {
		return "Semua Kelas"
	}
	return class
}
