package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiwada/portal/core/user"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	app.registerStudent(t, "Nimal Perera", "0771234567", "pass@123")

	loginPath := "/v1/users/login"
	body := func(identifier, pwd string) []byte {
		return marchallObj(t, LoginRequest{Identifier: identifier, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "admin ok", path: loginPath, body: body("ADMIN1", "open@sesame"),
			wantCode: http.StatusOK,
		},
		{
			name: "admin wrong password does not fall through to students", path: loginPath,
			body:     body("ADMIN1", "pass@123"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid admin credential"}),
		},
		{
			name: "student by contact ok", path: loginPath, body: body("0771234567", "pass@123"),
			wantCode: http.StatusOK,
		},
		{
			name: "student wrong password", path: loginPath, body: body("0771234567", "nope@123"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "incorrect password"}),
		},
		{
			name: "unknown identifier", path: loginPath, body: body("0719999999", "pass@123"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "no account matches this identifier"}),
		},
		{
			name: "missing fields", path: loginPath, body: body("", ""),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"identifier": "this field is required",
				"password":   "this field is required",
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, tt.path, tt.body)
			app.server.ServeHTTP(rec, req)

			if tt.wantData == nil { // success: assert a usable token came back
				require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
				var resp LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Token)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("admin token carries the admin flag", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, loginPath, body("ADMIN2", "second#pwd"))
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp LoginResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		meReq, meRec := newAuthRequest(http.MethodGet, "/v1/users/me", resp.Token)
		app.server.ServeHTTP(meRec, meReq)
		require.Equal(t, http.StatusOK, meRec.Code)

		var me user.User
		require.NoError(t, json.Unmarshal(meRec.Body.Bytes(), &me))
		assert.Equal(t, user.AdminIndexNumber, me.IndexNumber)
		assert.Equal(t, user.RoleAdmin, me.Role)
		assert.Equal(t, "ADMIN2", me.Contact)
	})
}

func Test_userApi_register(t *testing.T) {
	app := setup(t)
	app.registerStudent(t, "Kamal Silva", "0719876543", "word@123")

	registerPath := "/v1/users/register"
	payload := func(alter func(*user.NewUser)) []byte {
		nu := user.NewUser{
			Name:     "Nimal Perera",
			Password: "pass@123",
			ExamYear: "2026",
			School:   "Royal College",
			Birthday: "2008-03-14",
			Contact:  "0771234567",
		}
		if alter != nil {
			alter(&nu)
		}
		return marchallObj(t, nu)
	}

	t.Run("created with issued index number", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, registerPath, payload(nil))
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var usr user.User
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &usr))
		assert.NotEmpty(t, usr.IndexNumber)
		assert.Equal(t, user.RoleStudent, usr.Role)
		assert.Empty(t, usr.ActiveCourses)
	})

	tests := []httpTest{
		{
			name: "duplicate contact",
			body: payload(func(nu *user.NewUser) { nu.Contact = "0719876543" }),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"contact": "this contact number is already registered"}),
		},
		{
			name: "9 digit contact",
			body: payload(func(nu *user.NewUser) { nu.Contact = "077123456" }),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"contact": "contact number must be exactly 10 digits"}),
		},
		{
			name: "short password",
			body: payload(func(nu *user.NewUser) { nu.Password = "pass@12"; nu.Contact = "0770000001" }),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password must be exactly 8 characters long"}),
		},
		{
			name: "no special character",
			body: payload(func(nu *user.NewUser) { nu.Password = "Pass1234"; nu.Contact = "0770000002" }),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"password": "password must include at least one special character (@, #, $, %, &)",
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, registerPath, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_me(t *testing.T) {
	app := setup(t)
	student := app.registerStudent(t, "Nimal Perera", "0771234567", "pass@123")

	tests := []httpTest{
		{
			name: "no token", method: http.MethodGet, path: "/v1/users/me",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "me", method: http.MethodGet, path: "/v1/users/me", token: getToken(t, student),
			wantCode: http.StatusOK, wantData: marchallObj(t, student),
		},
		{
			name: "marks empty", method: http.MethodGet, path: "/v1/users/me/marks", token: getToken(t, student),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, MarksResponse{Marks: []user.Mark{}}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_updateMe(t *testing.T) {
	app := setup(t)
	student := app.registerStudent(t, "Nimal Perera", "0771234567", "pass@123")

	body := marchallObj(t, user.UpdateProfile{Name: "Nimal P", Password: "word@123"})
	req, rec := newAuthRequest(http.MethodPut, "/v1/users/me", getToken(t, student), body)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated user.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Nimal P", updated.Name)

	// the new password is effective immediately
	loginBody := marchallObj(t, LoginRequest{Identifier: "0771234567", Password: "word@123"})
	req, rec = newRequest(http.MethodPost, "/v1/users/login", loginBody)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// admins have no stored profile to edit
	req, rec = newAuthRequest(http.MethodPut, "/v1/users/me", adminToken(t, "ADMIN1"), body)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
