package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/apiwada/portal/core/course"
)

type courseApi struct {
	svc course.Service
}

func registerCourseAPI(g, admin *echo.Group, svc course.Service) {
	api := courseApi{svc: svc}

	g.GET("/courses", api.query)
	admin.PUT("/courses", api.replace)
}

func (api *courseApi) query(ctx echo.Context) error {
	courses, err := api.svc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

// replace overwrites the whole catalog; the last save wins.
func (api *courseApi) replace(ctx echo.Context) error {
	var data course.Replace
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Replace")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	if err := api.svc.ReplaceAll(ctx.Request().Context(), data.Courses); err != nil {
		return errors.Wrap(err, "replacing courses")
	}
	return ctx.JSON(http.StatusOK, data.Courses)
}
