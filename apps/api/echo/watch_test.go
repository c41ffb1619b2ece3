package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiwada/portal/core/course"
	"github.com/apiwada/portal/core/watch"
)

func Test_watchApi(t *testing.T) {
	app := setup(t)
	crs := app.addCourse(t, course.Course{ID: "crs1", Title: "Mechanics", DurationMinutes: 60})
	student := app.registerStudent(t, "Nimal Perera", "0771234567", "pass@123")
	student = app.enroll(t, student, crs.ID)
	outsider := app.registerStudent(t, "Kamal Silva", "0719876543", "word@123")

	statusPath := "/v1/courses/" + crs.ID + "/watch"

	t.Run("fresh status", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, statusPath, getToken(t, student))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, watch.Status{Elapsed: 0, Allowance: 7200, Remaining: 7200}),
		}, rec)
	})

	t.Run("start and stop", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, statusPath+"/start", getToken(t, student))
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var st watch.Status
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
		assert.False(t, st.Locked)
		assert.Equal(t, 7200, st.Allowance)

		req, rec = newAuthRequest(http.MethodPost, statusPath+"/stop", getToken(t, student))
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not enrolled", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, statusPath+"/start", getToken(t, outsider))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "not enrolled in this course"}),
		}, rec)
	})

	t.Run("unknown course", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/nope/watch", getToken(t, student))
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("exhausted allowance reads locked", func(t *testing.T) {
		require.NoError(t, app.usrSvc.SetWatchTime(context.Background(), student.IndexNumber, crs.ID, 7200))

		// token claims are stale; the handler reloads the user from the store
		req, rec := newAuthRequest(http.MethodPost, statusPath+"/start", getToken(t, student))
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var st watch.Status
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
		assert.True(t, st.Locked)
		assert.Equal(t, 0, st.Remaining)
	})

	t.Run("anonymous is refused", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, statusPath)
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
