package student

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, header []string, rows [][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func TestParseImportFile(t *testing.T) {
	header := []string{"Nama", "NISN", "Kelas"}

	t.Run("valid rows", func(t *testing.T) {
		buf := writeWorkbook(t, header, [][]string{
			{"Budi Santoso", "0012345678", "Kelas 1"},
			{"Siti Aminah", "0012345679", "Kelas 1"},
		})
		students, failed, err := ParseImportFile(buf)
		require.NoError(t, err)
		assert.Empty(t, failed)
		require.Len(t, students, 2)
		assert.Equal(t, NewStudent{Name: "Budi Santoso", NISN: "0012345678", Class: "Kelas 1"}, students[0])
	})

	t.Run("shuffled columns", func(t *testing.T) {
		buf := writeWorkbook(t, []string{"Kelas", "Nama", "NISN"}, [][]string{
			{"Kelas 2", "Budi Santoso", "0012345678"},
		})
		students, failed, err := ParseImportFile(buf)
		require.NoError(t, err)
		assert.Empty(t, failed)
		require.Len(t, students, 1)
		assert.Equal(t, "Kelas 2", students[0].Class)
	})

	t.Run("invalid rows collected, valid rows kept", func(t *testing.T) {
		buf := writeWorkbook(t, header, [][]string{
			{"Budi Santoso", "0012345678", "Kelas 1"},
			{"", "0012345679", "Kelas 1"},       // missing name
			{"Siti Aminah", "", "Kelas 1"},      // missing NISN
			{"Dewi Lestari", "0012345680", "1"}, // unknown class
			{"Agus Salim", "0012345681", "Kelas 3"},
		})
		students, failed, err := ParseImportFile(buf)
		require.NoError(t, err)
		assert.Len(t, students, 2)
		assert.Len(t, failed, 3)
		// the failed indices are zero-based data-row positions
		assert.Equal(t, 1, failed[0].Index)
		assert.Equal(t, 2, failed[1].Index)
		assert.Equal(t, 3, failed[2].Index)
	})

	t.Run("missing columns", func(t *testing.T) {
		buf := writeWorkbook(t, []string{"Nama", "Kelas"}, [][]string{{"Budi", "Kelas 1"}})
		_, _, err := ParseImportFile(buf)
		assert.Error(t, err)
	})

	t.Run("empty sheet", func(t *testing.T) {
		buf := writeWorkbook(t, header, nil)
		_, _, err := ParseImportFile(buf)
		assert.Equal(t, errNoImportData, err)
	})
}

func TestParentEmail(t *testing.T) {
	assert.Equal(t, "nisn-0012345678@tabunganku.com", ParentEmail("0012345678"))
	assert.Equal(t, "nisn-0012345678@tabunganku.com", ParentEmail("  0012345678 "))
}
