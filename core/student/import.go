package student

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/tabunganku/backend/core"
)

// import sheet column headers, matching the template handed to teachers
var importColumns = struct{ Name, NISN, Class string }{"Nama", "NISN", "Kelas"}

var errNoImportData = errors.New("no data found in file or invalid format")

// ParseImportFile reads the first sheet of an .xlsx workbook into student
// rows. Rows that fail field validation are returned as indexed errors so
// the caller can report them alongside the batch outcome; valid and invalid
// rows may interleave.
func ParseImportFile(r io.Reader) ([]NewStudent, []core.BatchError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening workbook")
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errNoImportData
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, errors.Wrap(err, "reading sheet")
	}
	if len(rows) < 2 {
		return nil, nil, errNoImportData
	}

	// map header cells to columns; the template order is not guaranteed
	colIdx := map[string]int{}
	for i, cell := range rows[0] {
		colIdx[core.CleanString(cell)] = i
	}
	nameIdx, nameOK := colIdx[importColumns.Name]
	nisnIdx, nisnOK := colIdx[importColumns.NISN]
	classIdx, classOK := colIdx[importColumns.Class]
	if !(nameOK && nisnOK && classOK) {
		return nil, nil, errors.Errorf(
			"missing required columns; expected %q, %q and %q",
			importColumns.Name, importColumns.NISN, importColumns.Class,
		)
	}

	cellAt := func(row []string, idx int) string {
		if idx < len(row) {
			return core.CleanString(row[idx])
		}
		return ""
	}

	var (
		students []NewStudent
		failed   []core.BatchError
	)
	for i, row := range rows[1:] {
		ns := NewStudent{
			Name:  cellAt(row, nameIdx),
			NISN:  cellAt(row, nisnIdx),
			Class: cellAt(row, classIdx),
		}
		if err := validateImportRow(ns); err != nil {
			failed = append(failed, core.BatchError{Index: i, Err: err})
			continue
		}
		students = append(students, ns)
	}
	if len(students) == 0 && len(failed) == 0 {
		return nil, nil, errNoImportData
	}
	return students, failed, nil
}

func validateImportRow(ns NewStudent) error {
	var flds []core.FieldError
	if ns.Name == "" {
		flds = append(flds, core.FieldError{Field: "name", Error: "name must not be empty"})
	}
	if ns.NISN == "" {
		flds = append(flds, core.FieldError{Field: "nisn", Error: "NISN must not be empty"})
	}
	if !core.IsKnownClass(ns.Class) {
		flds = append(flds, core.FieldError{
			Field: "class",
			Error: "unknown class; expected one of " + strings.Join(core.ClassOptions, ", "),
		})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}
