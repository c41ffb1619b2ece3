package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/apiwada/portal/core/settings"
	"github.com/apiwada/portal/core/user"
)

type settingsApi struct {
	svc    settings.Service
	usrSvc user.Service
}

func registerSettingsAPI(g, admin *echo.Group, jwt echo.MiddlewareFunc, svc settings.Service, usrSvc user.Service) {
	api := settingsApi{svc: svc, usrSvc: usrSvc}

	g.GET("/settings", api.retrieve)
	g.GET("/live", api.liveSession)
	g.GET("/live/join", api.joinLiveSession, jwt)
	admin.PUT("/settings", api.save)
}

// retrieve serves the public site configuration; an unconfigured site yields
// the zero document rather than an error.
func (api *settingsApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context())
	if err != nil {
		if errors.Cause(err) == settings.ErrNotFound {
			return ctx.JSON(http.StatusOK, settings.SiteSettings{})
		}
		return errors.Wrap(err, "getting site settings")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *settingsApi) liveSession(ctx echo.Context) error {
	sess, ok, err := api.svc.ActiveLiveSession(ctx.Request().Context(), time.Now())
	if err != nil {
		return errors.Wrap(err, "getting active live session")
	}
	if !ok {
		return ctx.NoContent(http.StatusNoContent)
	}
	return ctx.JSON(http.StatusOK, sess)
}

// joinLiveSession gates entry to the running session: students may only join
// a session held for their own exam year batch; admins are exempt.
func (api *settingsApi) joinLiveSession(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	sess, ok, err := api.svc.ActiveLiveSession(ctx.Request().Context(), time.Now())
	if err != nil {
		return errors.Wrap(err, "getting active live session")
	}
	if !ok {
		return errHttpNotFound
	}
	if !usr.IsAdmin() && sess.ExamYear != "" && sess.ExamYear != usr.ExamYear {
		return errBatchRestricted
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *settingsApi) save(ctx echo.Context) error {
	var data settings.SiteSettings
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SiteSettings")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.Save(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "saving site settings")
	}
	return ctx.JSON(http.StatusOK, data)
}
