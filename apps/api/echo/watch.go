package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/apiwada/portal/core/course"
	"github.com/apiwada/portal/core/user"
	"github.com/apiwada/portal/core/watch"
)

type watchApi struct {
	mgr    *watch.Manager
	usrSvc user.Service
	crsSvc course.Service

	// meterCtx outlives any single request; a meter keeps ticking after the
	// start request returns, until stopped, expired or the server shuts down.
	meterCtx context.Context
}

func registerWatchAPI(g *echo.Group, jwt echo.MiddlewareFunc, mgr *watch.Manager, usrSvc user.Service, crsSvc course.Service) {
	api := watchApi{
		mgr:      mgr,
		usrSvc:   usrSvc,
		crsSvc:   crsSvc,
		meterCtx: context.Background(),
	}

	wg := g.Group("/courses/:id/watch", jwt)
	wg.POST("/start", api.start)
	wg.POST("/stop", api.stop)
	wg.GET("", api.status)
}

// resolve loads the (student, course) pair and enforces enrollment.
func (api *watchApi) resolve(ctx echo.Context) (user.User, course.Course, error) {
	usr, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return user.User{}, course.Course{}, errors.Wrap(err, "getting context user")
	}

	crs, err := api.crsSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return user.User{}, course.Course{}, errHttpNotFound
		}
		return user.User{}, course.Course{}, errors.Wrap(err, "finding course by ID")
	}

	if !usr.IsEnrolled(crs.ID) {
		return user.User{}, course.Course{}, errNotEnrolled
	}
	return usr, crs, nil
}

func (api *watchApi) start(ctx echo.Context) error {
	usr, crs, err := api.resolve(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.mgr.Start(api.meterCtx, usr, crs))
}

func (api *watchApi) stop(ctx echo.Context) error {
	usr, crs, err := api.resolve(ctx)
	if err != nil {
		return err
	}
	api.mgr.Stop(usr.IndexNumber, crs.ID)
	return ctx.JSON(http.StatusOK, api.mgr.Status(usr, crs))
}

func (api *watchApi) status(ctx echo.Context) error {
	usr, crs, err := api.resolve(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.mgr.Status(usr, crs))
}
