package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiwada/portal/core"
	"github.com/apiwada/portal/core/course"
	"github.com/apiwada/portal/core/settings"
	"github.com/apiwada/portal/core/user"
	"github.com/apiwada/portal/core/watch"
	emailsvc "github.com/apiwada/portal/services/email"
	inmemdb "github.com/apiwada/portal/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

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
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type testApp struct {
	server Server
	usrSvc user.Service
	crsSvc course.Service
	setSvc settings.Service
	mgr    *watch.Manager
}

func setup(t *testing.T) *testApp {
	t.Helper()

	core.Conf.Debug = false
	core.Conf.TestMode = true
	core.Conf.AdminCredentials = map[string]string{
		"ADMIN1": "open@sesame",
		"ADMIN2": "second#pwd",
		"ADMIN3": "third$pwd",
	}

	db := inmemdb.NewDB()
	usrSvc := user.NewService(inmemdb.NewUserRepository(db), emailsvc.NewConsoleServiceMock())
	crsSvc := course.NewService(inmemdb.NewCourseRepository(db))
	setSvc := settings.NewService(inmemdb.NewSettingsRepository(db))
	mgr := watch.NewManager(usrSvc, nopLogger{})

	server := NewServer(&Options{
		Address:        ":0",
		DisableReqLogs: true,
		Logger:         nopLogger{},
		UserSvc:        usrSvc,
		CourseSvc:      crsSvc,
		SettingsSvc:    setSvc,
		WatchMgr:       mgr,
	})
	t.Cleanup(mgr.StopAll)

	return &testApp{server: server, usrSvc: usrSvc, crsSvc: crsSvc, setSvc: setSvc, mgr: mgr}
}

func (app *testApp) registerStudent(t *testing.T, name, contact, pwd string) user.User {
	return app.registerStudentOfYear(t, name, contact, pwd, "2026")
}

func (app *testApp) registerStudentOfYear(t *testing.T, name, contact, pwd, examYear string) user.User {
	t.Helper()
	usr, err := app.usrSvc.Register(context.Background(), user.NewUser{
		Name:     name,
		Password: pwd,
		ExamYear: examYear,
		School:   "Royal College",
		Birthday: "2008-03-14",
		Contact:  contact,
	})
	require.NoError(t, err)
	return usr
}

func (app *testApp) addCourse(t *testing.T, crs course.Course) course.Course {
	t.Helper()
	existing, err := app.crsSvc.QueryAll(context.Background())
	require.NoError(t, err)
	require.NoError(t, app.crsSvc.ReplaceAll(context.Background(), append(existing, crs)))
	return crs
}

func (app *testApp) enroll(t *testing.T, usr user.User, courseID string) user.User {
	t.Helper()
	usr, err := app.usrSvc.ToggleCourse(context.Background(), usr.IndexNumber, courseID)
	require.NoError(t, err)
	return usr
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

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func adminToken(t *testing.T, adminID string) string {
	t.Helper()
	return getToken(t, user.NewAdminSession(adminID))
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
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
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
