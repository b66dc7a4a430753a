package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabunganku/backend/core/profile"
	"github.com/tabunganku/backend/core/schedule"
)

func Test_scheduleApi_bulkCreate(t *testing.T) {
	e := setup(t)

	admin := createProfile(t, e, "Ibu Kepala", "kepala@sd.sch.id", profile.RoleAdmin, "", true)
	teacher := createProfile(t, e, "Pak Budi", "budi@sd.sch.id", profile.RoleTeacher, "Kelas 1", true)

	createStudent(t, e, "Ani Lestari", "0051234567", "Kelas 1", teacher.ID)
	createStudent(t, e, "Citra Dewi", "0053456789", "Kelas 1", teacher.ID)

	adminToken := getToken(t, e, admin)

	body := func(class, frequency, day string, amount int64) []byte {
		return marchallObj(t, map[string]interface{}{
			"class": class, "frequency": frequency, "day_of_week": day, "amount_expected": amount,
		})
	}

	t.Run("admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/saving-schedules", getToken(t, e, teacher),
			body("Kelas 1", "daily", "", 5000))
		e.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	})

	t.Run("weekly requires a day", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/saving-schedules", adminToken,
			body("Kelas 1", "weekly", "", 5000))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"day_of_week": "day_of_week is required for weekly schedules"}),
		}, rec)
	})

	t.Run("daily must not carry a day", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/saving-schedules", adminToken,
			body("Kelas 1", "daily", "Senin", 5000))
		e.app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	})

	t.Run("empty class", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/saving-schedules", adminToken,
			body("Kelas 6", "daily", "", 5000))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"class": "no students in class"}),
		}, rec)
	})

	t.Run("creates one plan per student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/saving-schedules", adminToken,
			body("Kelas 1", "weekly", "Senin", 5000))
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"created": 2}`, rec.Body.String())
	})

	t.Run("recreating replaces the plan", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/saving-schedules", adminToken,
			body("Kelas 1", "daily", "", 2000))
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		groups := queryGroups(t, e, adminToken, "")
		require.Len(t, groups, 1)
		assert.Equal(t, "daily", groups[0].Frequency)
		assert.Equal(t, 2, groups[0].StudentCount)
	})
}

func queryGroups(t *testing.T, e *env, token, query string) []schedule.Group {
	t.Helper()
	req, rec := newAuthRequest(http.MethodGet, "/v1/saving-schedules"+query, token)
	e.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var groups []schedule.Group
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	return groups
}

func Test_scheduleApi_grouped(t *testing.T) {
	e := setup(t)

	admin := createProfile(t, e, "Ibu Kepala", "kepala@sd.sch.id", profile.RoleAdmin, "", true)
	budi := createProfile(t, e, "Pak Budi", "budi@sd.sch.id", profile.RoleTeacher, "Kelas 1", true)
	sari := createProfile(t, e, "Bu Sari", "sari@sd.sch.id", profile.RoleTeacher, "Kelas 2", true)

	ani := createStudent(t, e, "Ani Lestari", "0051234567", "Kelas 1", budi.ID)
	citra := createStudent(t, e, "Citra Dewi", "0053456789", "Kelas 1", budi.ID)
	dimas := createStudent(t, e, "Dimas Putra", "0052345678", "Kelas 2", sari.ID)

	// Kelas 1 shares one plan assigned by Pak Budi; Dimas has his own
	// without a teacher.
	createSchedule(t, e, ani.ID, "Kelas 1", 5000, "weekly", "Senin", budi.ID)
	createSchedule(t, e, citra.ID, "Kelas 1", 5000, "weekly", "Senin", budi.ID)
	createSchedule(t, e, dimas.ID, "Kelas 2", 10000, "monthly", "", "")

	adminToken := getToken(t, e, admin)

	t.Run("admin sees both groups", func(t *testing.T) {
		groups := queryGroups(t, e, adminToken, "")
		require.Len(t, groups, 2)

		assert.Equal(t, "Kelas 1", groups[0].Class)
		assert.Equal(t, 2, groups[0].StudentCount)
		assert.Equal(t, "Pak Budi", groups[0].TeacherName)

		assert.Equal(t, "Kelas 2", groups[1].Class)
		assert.Equal(t, schedule.UnassignedTeacher, groups[1].TeacherName)
	})

	t.Run("teacher scope filters students", func(t *testing.T) {
		groups := queryGroups(t, e, getToken(t, e, sari), "")
		require.Len(t, groups, 1)
		assert.Equal(t, "Kelas 2", groups[0].Class)
	})

	t.Run("grouped update rewrites the whole plan", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/saving-schedules/grouped", adminToken, marchallObj(t, map[string]interface{}{
			"selector": map[string]interface{}{
				"class": "Kelas 1", "amount_expected": 5000, "frequency": "weekly", "day_of_week": "Senin",
			},
			"changes": map[string]interface{}{
				"class": "Kelas 1", "amount_expected": 7500, "frequency": "weekly", "day_of_week": "Jumat",
			},
		}))
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"updated": 2}`, rec.Body.String())

		sch, err := e.schedSvc.GetForStudent(ani.ID)
		require.NoError(t, err)
		assert.Equal(t, "Jumat", sch.DayOfWeek.String)
		assert.True(t, sch.AmountExpected.Equal(decimalFromInt(7500)))
	})

	t.Run("delete spans teachers on the same plan", func(t *testing.T) {
		// rows assigned by Pak Budi go too; the tuple carries no teacher
		req, rec := newAuthRequest(http.MethodDelete, "/v1/saving-schedules/grouped", adminToken, marchallObj(t, map[string]interface{}{
			"class": "Kelas 1", "amount_expected": 7500, "frequency": "weekly", "day_of_week": "Jumat",
		}))
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"deleted": 2}`, rec.Body.String())

		_, err := e.schedSvc.GetForStudent(ani.ID)
		assert.Error(t, err)
	})

	t.Run("delete matches absent teacher rows", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/saving-schedules/grouped", adminToken, marchallObj(t, map[string]interface{}{
			"class": "Kelas 2", "amount_expected": 10000, "frequency": "monthly",
		}))
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"deleted": 1}`, rec.Body.String())

		_, err := e.schedSvc.GetForStudent(dimas.ID)
		assert.Error(t, err)
	})

	t.Run("selector misses silently", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/saving-schedules/grouped", adminToken, marchallObj(t, map[string]interface{}{
			"class": "Kelas 2", "amount_expected": 999, "frequency": "monthly",
		}))
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"deleted": 0}`, rec.Body.String())
	})
}

func Test_scheduleApi_forStudent(t *testing.T) {
	e := setup(t)

	teacher := createProfile(t, e, "Pak Budi", "budi@sd.sch.id", profile.RoleTeacher, "Kelas 1", true)
	std := createStudent(t, e, "Ani Lestari", "0051234567", "Kelas 1", teacher.ID)
	createSchedule(t, e, std.ID, "Kelas 1", 5000, "weekly", "Senin", teacher.ID)

	token := getToken(t, e, teacher)

	t.Run("found", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/saving-schedules/student/"+std.ID, token)
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var sch schedule.Schedule
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sch))
		assert.Equal(t, std.ID, sch.StudentID)
		assert.Equal(t, "Senin", sch.DayOfWeek.String)
	})

	t.Run("no plan", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/saving-schedules/student/nope", token)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "schedule not found"}),
		}, rec)
	})
}
