package report

import (
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"

	"github.com/tabunganku/backend/core/transaction"
)

var pdfColumns = []struct {
	title string
	width float64
}{
	{"No", 10},
	{"Nama Siswa", 55},
	{"NISN", 30},
	{"Kelas", 22},
	{"Setoran", 38},
	{"Penarikan", 38},
	{"Saldo", 38},
}

// WritePDF renders a recap as an A4 landscape table. Amount columns show
// window totals; the balance column is all-time.
func WritePDF(w io.Writer, class string, window transaction.Window, rows []transaction.PeriodSummary, totals transaction.RecapTotals) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, "Rekapitulasi Tabungan Siswa", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, classLabel(class), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, periodLabel(window), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range pdfColumns {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for i, r := range rows {
		pdf.CellFormat(pdfColumns[0].width, 6, strconv.Itoa(i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(pdfColumns[1].width, 6, r.StudentName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(pdfColumns[2].width, 6, r.NISN, "1", 0, "C", false, 0, "")
		pdf.CellFormat(pdfColumns[3].width, 6, r.Class, "1", 0, "C", false, 0, "")
		pdf.CellFormat(pdfColumns[4].width, 6, formatRupiah(r.PeriodDeposits), "1", 0, "R", false, 0, "")
		pdf.CellFormat(pdfColumns[5].width, 6, formatRupiah(r.PeriodWithdrawals), "1", 0, "R", false, 0, "")
		pdf.CellFormat(pdfColumns[6].width, 6, formatRupiah(r.DisplayBalance()), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	labelWidth := pdfColumns[0].width + pdfColumns[1].width + pdfColumns[2].width + pdfColumns[3].width
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(labelWidth, 7, "Total", "1", 0, "C", true, 0, "")
	pdf.CellFormat(pdfColumns[4].width, 7, formatRupiah(totals.Deposits), "1", 0, "R", true, 0, "")
	pdf.CellFormat(pdfColumns[5].width, 7, formatRupiah(totals.Withdrawals), "1", 0, "R", true, 0, "")
	pdf.CellFormat(pdfColumns[6].width, 7, formatRupiah(totals.NetChange), "1", 0, "R", true, 0, "")
	pdf.Ln(-1)

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "writing recap pdf")
	}
	return nil
}
