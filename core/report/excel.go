package report

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/tabunganku/backend/core/transaction"
)

const recapSheet = "Rekapitulasi"

var excelHeader = []interface{}{"No", "Nama Siswa", "NISN", "Kelas", "Setoran", "Penarikan", "Saldo"}

// WriteExcel renders a recap as a single-sheet workbook. Amounts are kept
// numeric so the sheet stays usable for further arithmetic.
func WriteExcel(w io.Writer, class string, window transaction.Window, rows []transaction.PeriodSummary, totals transaction.RecapTotals) error {
	f := excelize.NewFile()
	defer f.Close()

	idx := f.NewSheet(recapSheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	if err := f.SetCellValue(recapSheet, "A1", "Rekapitulasi Tabungan Siswa"); err != nil {
		return errors.Wrap(err, "writing recap title")
	}
	_ = f.SetCellValue(recapSheet, "A2", classLabel(class))
	_ = f.SetCellValue(recapSheet, "A3", periodLabel(window))

	const headerRow = 5
	if err := f.SetSheetRow(recapSheet, cell(0, headerRow), &excelHeader); err != nil {
		return errors.Wrap(err, "writing recap header")
	}

	for i, r := range rows {
		deposits, _ := r.PeriodDeposits.Float64()
		withdrawals, _ := r.PeriodWithdrawals.Float64()
		balance, _ := r.DisplayBalance().Float64()
		row := []interface{}{i + 1, r.StudentName, r.NISN, r.Class, deposits, withdrawals, balance}
		if err := f.SetSheetRow(recapSheet, cell(0, headerRow+1+i), &row); err != nil {
			return errors.Wrapf(err, "writing recap row %d", i)
		}
	}

	totDeposits, _ := totals.Deposits.Float64()
	totWithdrawals, _ := totals.Withdrawals.Float64()
	totNet, _ := totals.NetChange.Float64()
	totalRow := []interface{}{"", "Total", "", "", totDeposits, totWithdrawals, totNet}
	if err := f.SetSheetRow(recapSheet, cell(0, headerRow+1+len(rows)), &totalRow); err != nil {
		return errors.Wrap(err, "writing recap totals")
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "writing recap workbook")
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row)
	return name
}
