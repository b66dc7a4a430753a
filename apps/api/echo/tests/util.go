package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	. "github.com/tabunganku/backend/apps/api/echo"
	"github.com/tabunganku/backend/core"
	"github.com/tabunganku/backend/core/authz"
	"github.com/tabunganku/backend/core/profile"
	"github.com/tabunganku/backend/core/schedule"
	"github.com/tabunganku/backend/core/student"
	"github.com/tabunganku/backend/core/transaction"
	emailsvc "github.com/tabunganku/backend/services/email"
	inmemdb "github.com/tabunganku/backend/storage/database/inmem"
)

// testPassword satisfies the password policy for every fixture account.
const testPassword = "V3ryS3cur3#Pwd"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	conf *core.Config
	db   *inmemdb.DB
	app  Server

	profileRepo profile.Repository
	studentRepo student.Repository
	txnRepo     transaction.Repository
	schedRepo   schedule.Repository

	profileSvc profile.ServiceInterface
	studentSvc student.ServiceInterface
	txnSvc     transaction.ServiceInterface
	schedSvc   schedule.ServiceInterface
}

func setup(t *testing.T) *env {
	t.Helper()

	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true

	logger := core.NewStdLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags))

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	profile.RegisterValidations(validate, translator)

	db := inmemdb.Open()
	profileRepo := inmemdb.NewProfileRepository(db)
	studentRepo := inmemdb.NewStudentRepository(db)
	txnRepo := inmemdb.NewTransactionRepository(db)
	schedRepo := inmemdb.NewScheduleRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	profileSvc := profile.NewService(conf, nil, profileRepo, mailSvc)
	studentSvc := student.NewService(nil, studentRepo, logger)
	schedSvc := schedule.NewService(nil, schedRepo, validate, logger)
	txnSvc := transaction.NewService(nil, txnRepo, validate, schedSvc)

	app := NewServer(&Options{
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		ProfileSvc:     profileSvc,
		StudentSvc:     studentSvc,
		TransactionSvc: txnSvc,
		ScheduleSvc:    schedSvc,
		SignalShutdown: func() {},
	})

	return &env{
		conf:        conf,
		db:          db,
		app:         app,
		profileRepo: profileRepo,
		studentRepo: studentRepo,
		txnRepo:     txnRepo,
		schedRepo:   schedRepo,
		profileSvc:  profileSvc,
		studentSvc:  studentSvc,
		txnSvc:      txnSvc,
		schedSvc:    schedSvc,
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, e *env, prof profile.Profile) string {
	t.Helper()
	claims := GetProfileClaims(e.conf, prof)
	token, err := GenerateToken(e.conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %v", rec.Code, tt.wantCode, rec.Body.String())
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decimalFromInt(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func authzPrivileged() authz.Scope { return authz.Privileged() }

func weekdayNameFor(t time.Time) string { return schedule.WeekdayName(t.Weekday()) }

// Fixtures. These go through the repos directly so tests control every field.

func createProfile(t *testing.T, e *env, fullName, email, role, class string, active bool) profile.Profile {
	t.Helper()

	first, last := profile.SplitFullName(fullName)
	prof := profile.Profile{
		Email:     email,
		FirstName: first,
		LastName:  last,
		Role:      role,
	}
	if class != "" {
		prof.ClassTaught = null.StringFrom(class)
	}
	prof.SetActive(active)
	require.NoError(t, prof.SetPassword(testPassword))

	prof, err := e.profileRepo.CreateProfile(context.Background(), prof)
	require.NoError(t, err)
	return prof
}

func createStudent(t *testing.T, e *env, name, nisn, class string, teacherID string) student.Student {
	t.Helper()

	std := student.Student{Name: name, NISN: nisn, Class: class}
	if teacherID != "" {
		std.TeacherID = null.StringFrom(teacherID)
	}
	std, err := e.studentRepo.CreateStudent(context.Background(), std)
	require.NoError(t, err)
	return std
}

func createTransaction(t *testing.T, e *env, studentID, teacherID, typ string, amount int64, at time.Time) transaction.Transaction {
	t.Helper()

	txn := transaction.Transaction{
		StudentID: studentID,
		TeacherID: teacherID,
		Amount:    decimal.NewFromInt(amount),
		Type:      typ,
		CreatedAt: at,
	}
	txn, err := e.txnRepo.CreateTransaction(context.Background(), txn)
	require.NoError(t, err)
	return txn
}

func createSchedule(t *testing.T, e *env, studentID, class string, amount int64, frequency, dayOfWeek, teacherID string) schedule.Schedule {
	t.Helper()

	sch := schedule.Schedule{
		StudentID:      studentID,
		Class:          class,
		AmountExpected: decimal.NewFromInt(amount),
		Frequency:      frequency,
	}
	if dayOfWeek != "" {
		sch.DayOfWeek = null.StringFrom(dayOfWeek)
	}
	if teacherID != "" {
		sch.TeacherID = null.StringFrom(teacherID)
	}
	sch, err := e.schedRepo.UpsertSchedule(context.Background(), sch)
	require.NoError(t, err)
	return sch
}
