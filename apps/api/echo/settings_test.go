package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiwada/portal/core/course"
	"github.com/apiwada/portal/core/settings"
)

func Test_settingsApi_retrieve(t *testing.T) {
	app := setup(t)

	t.Run("unconfigured site serves the zero document", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/settings")
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, settings.SiteSettings{}),
		}, rec)
	})

	t.Run("admin save is public immediately", func(t *testing.T) {
		doc := settings.SiteSettings{
			ContactEmail: "info@apiwada.lk",
			ContactPhone: "0771112223",
			HeroTitle:    "Physics, properly taught",
		}
		req, rec := newAuthRequest(http.MethodPut, "/v1/admin/settings", adminToken(t, "ADMIN1"), marchallObj(t, doc))
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		req, rec = newRequest(http.MethodGet, "/v1/settings")
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var got settings.SiteSettings
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "info@apiwada.lk", got.ContactEmail)
		assert.Equal(t, "Physics, properly taught", got.HeroTitle)
	})

	t.Run("students may not save", func(t *testing.T) {
		student := app.registerStudent(t, "Nimal Perera", "0771234567", "pass@123")
		req, rec := newAuthRequest(http.MethodPut, "/v1/admin/settings", getToken(t, student),
			marchallObj(t, settings.SiteSettings{}))
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func Test_settingsApi_live(t *testing.T) {
	app := setup(t)
	student2026 := app.registerStudent(t, "Nimal Perera", "0771234567", "pass@123") // examYear 2026

	t.Run("no active session", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/live")
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	running := settings.LiveSession{
		ID:              "live1",
		Title:           "Revision class",
		ExamYear:        "2026",
		StartTime:       time.Now().Add(-10 * time.Minute).Format(time.RFC3339),
		DurationMinutes: 60,
	}
	require.NoError(t, app.setSvc.Save(context.Background(), settings.SiteSettings{
		LiveSessions: []settings.LiveSession{running},
	}))

	tests := []httpTest{
		{
			name: "public live", method: http.MethodGet, path: "/v1/live",
			wantCode: http.StatusOK, wantData: marchallObj(t, running),
		},
		{
			name: "join own batch", method: http.MethodGet, path: "/v1/live/join",
			token: getToken(t, student2026), wantCode: http.StatusOK, wantData: marchallObj(t, running),
		},
		{
			name: "admin exempt from batch gate", method: http.MethodGet, path: "/v1/live/join",
			token: adminToken(t, "ADMIN1"), wantCode: http.StatusOK, wantData: marchallObj(t, running),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("other batch is refused", func(t *testing.T) {
		other := app.registerStudentOfYear(t, "Kamal Silva", "0719876543", "word@123", "2027")
		req, rec := newAuthRequest(http.MethodGet, "/v1/live/join", getToken(t, other))
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func Test_courseApi(t *testing.T) {
	app := setup(t)

	t.Run("empty catalog", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/courses")
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, []course.Course{})}, rec)
	})

	t.Run("admin replace assigns IDs and is public", func(t *testing.T) {
		payload := course.Replace{Courses: []course.Course{
			{Title: "Mechanics", Price: 2500, DurationMinutes: 60, Videos: []course.CourseVideo{{Title: "Intro"}}},
			{ID: "crs2", Title: "Waves", Price: 3000, DurationMinutes: 90},
		}}
		req, rec := newAuthRequest(http.MethodPut, "/v1/admin/courses", adminToken(t, "ADMIN2"), marchallObj(t, payload))
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var saved []course.Course
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
		require.Len(t, saved, 2)
		assert.NotEmpty(t, saved[0].ID)
		assert.NotEmpty(t, saved[0].Videos[0].ID)
		assert.Equal(t, "crs2", saved[1].ID)

		req, rec = newRequest(http.MethodGet, "/v1/courses")
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, saved)}, rec)
	})

	t.Run("students may not replace", func(t *testing.T) {
		student := app.registerStudent(t, "Nimal Perera", "0771234567", "pass@123")
		req, rec := newAuthRequest(http.MethodPut, "/v1/admin/courses", getToken(t, student),
			marchallObj(t, course.Replace{}))
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
