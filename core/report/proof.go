package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Fallbacks for signature blocks when the linked profile has no name.
const (
	ProofParentFallback  = "Orang Tua"
	ProofTeacherFallback = "Guru"
)

// WithdrawalProof holds everything printed on a withdrawal receipt.
type WithdrawalProof struct {
	TransactionID string
	Date          time.Time
	StudentName   string
	NISN          string
	Class         string
	Amount        decimal.Decimal
	Description   string
	ParentName    string
	TeacherName   string
}

// ProofFilename derives the download name of a withdrawal receipt,
// e.g. "bukti-penarikan-Ani Lestari-3f2a.pdf".
func ProofFilename(studentName, transactionID string) string {
	return fmt.Sprintf("bukti-penarikan-%s-%s.pdf", studentName, transactionID)
}

// WriteProof renders a withdrawal receipt as an A4 portrait page: the
// transaction details, a thank-you line and signature blocks for the
// parent and the teacher.
func WriteProof(w io.Writer, p WithdrawalProof) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, "BUKTI PENARIKAN TABUNGAN SISWA", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	const dateLayout = "02-01-2006"
	desc := p.Description
	if desc == "" {
		desc = "-"
	}
	fields := []struct{ label, value string }{
		{"Tanggal Transaksi", p.Date.Format(dateLayout)},
		{"ID Transaksi", p.TransactionID},
		{"Nama Siswa", p.StudentName},
		{"NISN", p.NISN},
		{"Kelas", p.Class},
		{"Jumlah Penarikan (Rp)", formatRupiah(p.Amount)},
		{"Deskripsi", desc},
	}
	pdf.SetFont("Arial", "", 11)
	for _, f := range fields {
		pdf.CellFormat(60, 8, f.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(5, 8, ":", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 8, f.value, "", 1, "L", false, 0, "")
	}

	pdf.Ln(6)
	pdf.CellFormat(0, 6, "Tanggal Cetak: "+time.Now().Format(dateLayout), "", 1, "L", false, 0, "")
	pdf.Ln(4)
	pdf.SetFont("Arial", "I", 11)
	pdf.CellFormat(0, 6, "Terima kasih telah menggunakan layanan kami.", "", 1, "C", false, 0, "")
	pdf.Ln(14)

	parent := p.ParentName
	if parent == "" {
		parent = ProofParentFallback
	}
	teacher := p.TeacherName
	if teacher == "" {
		teacher = ProofTeacherFallback
	}
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 6, "Orang Tua / Wali,", "", 0, "C", false, 0, "")
	pdf.CellFormat(95, 6, "Guru,", "", 1, "C", false, 0, "")
	pdf.Ln(20)
	pdf.CellFormat(95, 6, "( "+parent+" )", "", 0, "C", false, 0, "")
	pdf.CellFormat(95, 6, "( "+teacher+" )", "", 1, "C", false, 0, "")

	pdf.SetY(-25)
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, "TabunganKu | Anang Creative Production", "", 1, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "writing withdrawal proof pdf")
	}
	return nil
}
