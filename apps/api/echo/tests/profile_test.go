package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabunganku/backend/core/profile"
	"github.com/tabunganku/backend/core/student"
)

type loginResp struct {
	Token string `json:"token"`
	Home  string `json:"home"`
}

func Test_profileApi_login(t *testing.T) {
	e := setup(t)

	admin := createProfile(t, e, "Ibu Kepala", "kepala@sd.sch.id", profile.RoleAdmin, "", true)
	createProfile(t, e, "Pak Budi", "budi@sd.sch.id", profile.RoleTeacher, "Kelas 1", true)
	naughty := createProfile(t, e, "Off Boarded", "gone@sd.sch.id", profile.RoleTeacher, "", false)

	body := func(email, pwd string) []byte {
		return marchallObj(t, map[string]string{"email": email, "password": pwd})
	}

	tests := []httpTest{
		{
			name: "empty body", body: body("", ""), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown email", body: body("who@sd.sch.id", testPassword), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: body(admin.Email, "nope"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: body(naughty.Email, testPassword), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			e.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("success lands on role home", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", body("budi@sd.sch.id", testPassword))
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp loginResp
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "/teacher/dashboard", resp.Home)
	})
}

func Test_profileApi_initialSetup(t *testing.T) {
	e := setup(t)

	exists := func() []byte {
		req, rec := newRequest(http.MethodGet, "/v1/admin/exists")
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		return rec.Body.Bytes()
	}

	assert.JSONEq(t, `{"exists": false}`, string(exists()))

	req, rec := newRequest(http.MethodPost, "/v1/admin/initial-setup", marchallObj(t, map[string]string{
		"email":     "kepala@sd.sch.id",
		"password":  testPassword,
		"full_name": "Ibu Kepala Sekolah",
	}))
	e.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp loginResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "/admin/dashboard", resp.Home)

	assert.JSONEq(t, `{"exists": true}`, string(exists()))

	t.Run("admin name is exposed", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/admin/name")
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"name": "Ibu Kepala Sekolah"}`, rec.Body.String())
	})

	t.Run("second admin is rejected", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/admin/initial-setup", marchallObj(t, map[string]string{
			"email":     "kepala2@sd.sch.id",
			"password":  testPassword,
			"full_name": "Penyusup Sekolah",
		}))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "an admin account already exists"}),
		}, rec)
	})
}

func Test_profileApi_teacherRegister(t *testing.T) {
	e := setup(t)

	req, rec := newRequest(http.MethodPost, "/v1/users/teacher-register", marchallObj(t, map[string]string{
		"email":        "budi@sd.sch.id",
		"password":     testPassword,
		"full_name":    "Pak Budi Santoso",
		"class_taught": "Kelas 2",
	}))
	e.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp loginResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "/teacher/dashboard", resp.Home)

	prof, err := e.profileSvc.GetByEmail("budi@sd.sch.id")
	require.NoError(t, err)
	assert.Equal(t, profile.RoleTeacher, prof.Role)
	assert.Equal(t, "Kelas 2", prof.ClassTaught.String)
}

func Test_profileApi_parentRegister(t *testing.T) {
	e := setup(t)

	teacher := createProfile(t, e, "Pak Budi", "budi@sd.sch.id", profile.RoleTeacher, "Kelas 1", true)
	std := createStudent(t, e, "Ani Lestari", "0051234567", "Kelas 1", teacher.ID)

	body := func(nisn string) []byte {
		return marchallObj(t, map[string]string{
			"nisn":             nisn,
			"password":         testPassword,
			"password_confirm": testPassword,
		})
	}

	t.Run("unknown NISN", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/parent-register", body("9999999999"))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "student not found"}),
		}, rec)
	})

	t.Run("registers and links", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/parent-register", body(std.NISN))
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp loginResp
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "/parent/dashboard", resp.Home)

		prof, err := e.profileSvc.GetByEmail(student.ParentEmail(std.NISN))
		require.NoError(t, err)
		assert.Equal(t, profile.RoleParent, prof.Role)
		assert.Equal(t, "Orang Tua Ani Lestari", prof.FullName())

		// the student is now claimed
		linked, err := e.studentSvc.GetForParentRegistration(std.NISN)
		assert.Error(t, err)
		assert.Empty(t, linked.StudentID)
	})

	t.Run("claimed student cannot be registered again", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/parent-register", body(std.NISN))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "student is already linked to another parent account"}),
		}, rec)
	})

	t.Run("parent login with NISN", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/parent-login", marchallObj(t, map[string]string{
			"nisn": std.NISN, "password": testPassword,
		}))
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp loginResp
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "/parent/dashboard", resp.Home)
	})
}

func Test_profileApi_profileQuery(t *testing.T) {
	e := setup(t)

	admin := createProfile(t, e, "Ibu Kepala", "kepala@sd.sch.id", profile.RoleAdmin, "", true)
	teacher := createProfile(t, e, "Pak Budi", "budi@sd.sch.id", profile.RoleTeacher, "Kelas 1", true)
	parent := createProfile(t, e, "Orang Tua Ani", "nisn-0051234567@tabunganku.com", profile.RoleParent, "", true)

	adminToken := getToken(t, e, admin)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", token: getToken(t, e, teacher), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{name: "get all", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, admin, teacher, parent)},
		{name: "filter by role", path: "/v1/users?role=teacher", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, teacher)},
		{name: "search", path: "/v1/users?search=budi", token: adminToken, wantCode: http.StatusOK, wantData: marchallList(t, teacher)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.path == "" {
				tt.path = "/v1/users"
			}
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			e.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_profileApi_update(t *testing.T) {
	e := setup(t)

	admin := createProfile(t, e, "Ibu Kepala", "kepala@sd.sch.id", profile.RoleAdmin, "", true)
	teacher := createProfile(t, e, "Pak Budi", "budi@sd.sch.id", profile.RoleTeacher, "Kelas 1", true)
	other := createProfile(t, e, "Bu Sari", "sari@sd.sch.id", profile.RoleTeacher, "Kelas 2", true)

	t.Run("self update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+teacher.ID, getToken(t, e, teacher),
			marchallObj(t, map[string]string{"first_name": "Budiman"}))
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got profile.Profile
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "Budiman", got.FirstName)
	})

	t.Run("role change is admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+teacher.ID, getToken(t, e, teacher),
			marchallObj(t, map[string]string{"role": profile.RoleAdmin}))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		}, rec)
	})

	t.Run("other profiles are hidden from non-admins", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+other.ID, getToken(t, e, teacher),
			marchallObj(t, map[string]string{"first_name": "Nope"}))
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		}, rec)
	})

	t.Run("admin updates anyone", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+other.ID, getToken(t, e, admin),
			marchallObj(t, map[string]interface{}{"class_taught": "Kelas 3"}))
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got profile.Profile
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "Kelas 3", got.ClassTaught.String)
	})
}

func Test_profileApi_destroy(t *testing.T) {
	e := setup(t)

	admin := createProfile(t, e, "Ibu Kepala", "kepala@sd.sch.id", profile.RoleAdmin, "", true)
	teacher := createProfile(t, e, "Pak Budi", "budi@sd.sch.id", profile.RoleTeacher, "Kelas 1", true)
	adminToken := getToken(t, e, admin)

	t.Run("self delete is refused", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+admin.ID, adminToken)
		e.app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "cannot delete own account"}),
		}, rec)
	})

	t.Run("admin deletes a teacher", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+teacher.ID, adminToken)
		e.app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		_, err := e.profileSvc.GetByID(teacher.ID)
		assert.Error(t, err)
	})
}

func Test_profileApi_changePassword(t *testing.T) {
	e := setup(t)

	teacher := createProfile(t, e, "Pak Budi", "budi@sd.sch.id", profile.RoleTeacher, "Kelas 1", true)
	token := getToken(t, e, teacher)

	newPwd := "An0ther#Secr3t"
	req, rec := newAuthRequest(http.MethodPut, "/v1/users/password", token, marchallObj(t, map[string]string{
		"old_password":     testPassword,
		"new_password":     newPwd,
		"password_confirm": newPwd,
	}))
	e.app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	prof, err := e.profileSvc.GetByID(teacher.ID)
	require.NoError(t, err)
	assert.NoError(t, prof.CheckPassword(newPwd))
}
