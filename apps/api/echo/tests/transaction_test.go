package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabunganku/backend/core/profile"
	"github.com/tabunganku/backend/core/transaction"
)

func Test_transactionApi_create(t *testing.T) {
	e := setup(t)

	admin := createProfile(t, e, "Ibu Kepala", "kepala@sd.sch.id", profile.RoleAdmin, "", true)
	teacher := createProfile(t, e, "Pak Budi", "budi@sd.sch.id", profile.RoleTeacher, "Kelas 1", true)
	std := createStudent(t, e, "Ani Lestari", "0051234567", "Kelas 1", teacher.ID)

	teacherToken := getToken(t, e, teacher)

	body := func(studentID, typ string, amount int64) []byte {
		return marchallObj(t, map[string]interface{}{
			"student_id": studentID, "type": typ, "amount": amount,
		})
	}

	t.Run("auth required", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/transactions", body(std.ID, "deposit", 5000))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("admins do not record transactions", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/transactions", getToken(t, e, admin), body(std.ID, "deposit", 5000))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("deposit", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/transactions", teacherToken, body(std.ID, "deposit", 50000))
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var got transaction.Transaction
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, std.ID, got.StudentID)
		assert.Equal(t, teacher.ID, got.TeacherID)
		assert.Equal(t, transaction.TypeDeposit, got.Type)
		assert.True(t, got.Amount.Equal(decimalFromInt(50000)))
	})

	t.Run("withdrawal within balance", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/transactions", teacherToken, body(std.ID, "withdrawal", 20000))
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("withdrawal over balance", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/transactions", teacherToken, body(std.ID, "withdrawal", 40000))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"amount": "Jumlah penarikan melebihi saldo yang tersedia."}),
		}, rec)
	})

	t.Run("non positive amount", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/transactions", teacherToken, body(std.ID, "deposit", 0))
		e.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})

	t.Run("deposit outside the scheduled day", func(t *testing.T) {
		// weekly plan on a day that is never "today"
		otherDay := weekdayNameFor(time.Now().AddDate(0, 0, 1))
		createSchedule(t, e, std.ID, "Kelas 1", 5000, "weekly", otherDay, teacher.ID)

		req, rec := newAuthRequest(http.MethodPost, "/v1/transactions", teacherToken, body(std.ID, "deposit", 5000))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"student_id": fmt.Sprintf("Setoran hanya dapat dilakukan pada hari %s sesuai jadwal.", otherDay),
			}),
		}, rec)
	})
}

func Test_transactionApi_balancesAndStats(t *testing.T) {
	e := setup(t)

	admin := createProfile(t, e, "Ibu Kepala", "kepala@sd.sch.id", profile.RoleAdmin, "", true)
	budi := createProfile(t, e, "Pak Budi", "budi@sd.sch.id", profile.RoleTeacher, "Kelas 1", true)
	sari := createProfile(t, e, "Bu Sari", "sari@sd.sch.id", profile.RoleTeacher, "Kelas 2", true)

	ani := createStudent(t, e, "Ani Lestari", "0051234567", "Kelas 1", budi.ID)
	dimas := createStudent(t, e, "Dimas Putra", "0052345678", "Kelas 2", sari.ID)

	now := time.Now().UTC()
	createTransaction(t, e, ani.ID, budi.ID, "deposit", 50000, now)
	createTransaction(t, e, ani.ID, budi.ID, "withdrawal", 10000, now)
	createTransaction(t, e, dimas.ID, sari.ID, "deposit", 20000, now)

	balances := func(token, query string) []transaction.StudentBalance {
		req, rec := newAuthRequest(http.MethodGet, "/v1/balances"+query, token)
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got []transaction.StudentBalance
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		return got
	}

	t.Run("teacher sees own class only", func(t *testing.T) {
		got := balances(getToken(t, e, budi), "")
		require.Len(t, got, 1)
		assert.Equal(t, ani.ID, got[0].StudentID)
		assert.True(t, got[0].CurrentBalance.Equal(decimalFromInt(40000)))
	})

	t.Run("admin sees everyone", func(t *testing.T) {
		got := balances(getToken(t, e, admin), "")
		assert.Len(t, got, 2)
	})

	t.Run("admin filters by class", func(t *testing.T) {
		got := balances(getToken(t, e, admin), "?class=Kelas+2")
		require.Len(t, got, 1)
		assert.Equal(t, dimas.ID, got[0].StudentID)
	})

	t.Run("stats are admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/stats", getToken(t, e, budi))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/v1/stats", getToken(t, e, admin))
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var stats transaction.GlobalStats
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, 2, stats.TotalStudents)
		assert.True(t, stats.TotalBalance.Equal(decimalFromInt(60000)))
		assert.True(t, stats.TotalDeposits.Equal(decimalFromInt(70000)))
		assert.True(t, stats.TotalWithdrawals.Equal(decimalFromInt(10000)))
	})
}

func Test_transactionApi_recap(t *testing.T) {
	e := setup(t)

	admin := createProfile(t, e, "Ibu Kepala", "kepala@sd.sch.id", profile.RoleAdmin, "", true)
	budi := createProfile(t, e, "Pak Budi", "budi@sd.sch.id", profile.RoleTeacher, "Kelas 1", true)

	ani := createStudent(t, e, "Ani Lestari", "0051234567", "Kelas 1", budi.ID)
	citra := createStudent(t, e, "Citra Dewi", "0053456789", "Kelas 1", budi.ID)

	day := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	createTransaction(t, e, ani.ID, budi.ID, "deposit", 50000, day)
	createTransaction(t, e, ani.ID, budi.ID, "withdrawal", 10000, day)
	createTransaction(t, e, citra.ID, budi.ID, "deposit", 20000, day.AddDate(0, 0, 5))

	adminToken := getToken(t, e, admin)

	t.Run("single day window", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/recap?date=2026-03-02", adminToken)
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Rows   []transaction.PeriodSummary `json:"rows"`
			Totals transaction.RecapTotals     `json:"totals"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		// every student appears, active or not
		require.Len(t, resp.Rows, 2)
		assert.Equal(t, "Ani Lestari", resp.Rows[0].StudentName)
		assert.True(t, resp.Rows[0].PeriodDeposits.Equal(decimalFromInt(50000)))
		assert.True(t, resp.Rows[0].PeriodWithdrawals.Equal(decimalFromInt(10000)))
		assert.True(t, resp.Rows[1].PeriodDeposits.IsZero())

		assert.True(t, resp.Totals.Deposits.Equal(decimalFromInt(50000)))
		assert.True(t, resp.Totals.Withdrawals.Equal(decimalFromInt(10000)))
		assert.True(t, resp.Totals.NetChange.Equal(decimalFromInt(40000)))
	})

	t.Run("bad date format", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/recap?date=02-03-2026", adminToken)
		e.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})

	t.Run("pdf export", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/recap/export?format=pdf&class=Kelas+1&date=2026-03-02", adminToken)
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), `rekapitulasi-tabungan-Kelas 1-20260302.pdf`)
		assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
	})

	t.Run("excel export", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/recap/export?format=xlsx", adminToken)
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Contains(t, rec.Header().Get("Content-Disposition"), `rekapitulasi-tabungan-semua-kelas-semua-tanggal.xlsx`)
		assert.NotZero(t, rec.Body.Len())
	})

	t.Run("export is admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/recap/export", getToken(t, e, budi))
		e.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	})

	t.Run("unknown format", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/recap/export?format=csv", adminToken)
		e.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})
}

func Test_transactionApi_withdrawalProof(t *testing.T) {
	e := setup(t)

	admin := createProfile(t, e, "Ibu Kepala", "kepala@sd.sch.id", profile.RoleAdmin, "", true)
	budi := createProfile(t, e, "Pak Budi", "budi@sd.sch.id", profile.RoleTeacher, "Kelas 1", true)
	sari := createProfile(t, e, "Bu Sari", "sari@sd.sch.id", profile.RoleTeacher, "Kelas 2", true)
	ani := createStudent(t, e, "Ani Lestari", "0051234567", "Kelas 1", budi.ID)

	now := time.Now().UTC()
	dep := createTransaction(t, e, ani.ID, budi.ID, "deposit", 50000, now)
	wd := createTransaction(t, e, ani.ID, budi.ID, "withdrawal", 20000, now)

	budiToken := getToken(t, e, budi)

	t.Run("own teacher downloads the receipt", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/transactions/"+wd.ID+"/proof", budiToken)
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "bukti-penarikan-Ani Lestari-"+wd.ID+".pdf")
		assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF"))
	})

	t.Run("deposits have no receipt", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/transactions/"+dep.ID+"/proof", budiToken)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "Transaksi yang diminta bukan transaksi penarikan."}),
		}, rec)
	})

	t.Run("another teacher is rejected", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/transactions/"+wd.ID+"/proof", getToken(t, e, sari))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "Akses ditolak. Anda bukan guru siswa ini."}),
		}, rec)
	})

	t.Run("admins are not teachers here", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/transactions/"+wd.ID+"/proof", getToken(t, e, admin))
		e.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	})

	t.Run("missing transaction", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/transactions/nope/proof", budiToken)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "transaction not found"}),
		}, rec)
	})
}

func Test_transactionApi_destroy(t *testing.T) {
	e := setup(t)

	admin := createProfile(t, e, "Ibu Kepala", "kepala@sd.sch.id", profile.RoleAdmin, "", true)
	budi := createProfile(t, e, "Pak Budi", "budi@sd.sch.id", profile.RoleTeacher, "Kelas 1", true)
	ani := createStudent(t, e, "Ani Lestari", "0051234567", "Kelas 1", budi.ID)

	txn := createTransaction(t, e, ani.ID, budi.ID, "deposit", 50000, time.Now().UTC())
	createTransaction(t, e, ani.ID, budi.ID, "deposit", 5000, time.Now().UTC())

	adminToken := getToken(t, e, admin)

	t.Run("teachers cannot delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/transactions/"+txn.ID, getToken(t, e, budi))
		e.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	})

	t.Run("delete one", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/transactions/"+txn.ID, adminToken)
		e.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	})

	t.Run("delete missing", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/transactions/"+txn.ID, adminToken)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "transaction not found"}),
		}, rec)
	})

	t.Run("delete all", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/transactions", adminToken)
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"deleted": 1}`, rec.Body.String())
	})
}
