package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/apiwada/portal/core/user"
)

type adminStudentsApi struct {
	svc user.Service
}

func registerAdminStudentsAPI(admin *echo.Group, svc user.Service) {
	api := adminStudentsApi{svc: svc}

	sg := admin.Group("/students")
	sg.GET("", api.query)
	sg.GET("/:index", api.retrieve)
	sg.PUT("/:index/password", api.resetPassword)
	sg.POST("/:index/marks", api.addMark)
	sg.PUT("/:index/courses", api.toggleCourse)
}

func (api *adminStudentsApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()

	users, err := api.svc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *adminStudentsApi) retrieve(ctx echo.Context) error {
	usr, err := api.getStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *adminStudentsApi) resetPassword(ctx echo.Context) error {
	usr, err := api.getStudent(ctx)
	if err != nil {
		return err
	}

	var data user.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err = api.svc.ResetPassword(ctx.Request().Context(), usr.IndexNumber, data.Password)
	if err != nil {
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *adminStudentsApi) addMark(ctx echo.Context) error {
	usr, err := api.getStudent(ctx)
	if err != nil {
		return err
	}

	var data user.NewMark
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMark")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err = api.svc.AddMark(ctx.Request().Context(), usr.IndexNumber, user.Mark{
		Label: data.Label,
		Score: data.Score,
		Date:  data.Date,
	})
	if err != nil {
		return errors.Wrap(err, "adding mark")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

// toggleCourse grants the course if the student lacks it, revokes it otherwise.
func (api *adminStudentsApi) toggleCourse(ctx echo.Context) error {
	usr, err := api.getStudent(ctx)
	if err != nil {
		return err
	}

	var data user.CourseToggle
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CourseToggle")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err = api.svc.ToggleCourse(ctx.Request().Context(), usr.IndexNumber, data.CourseID)
	if err != nil {
		return errors.Wrap(err, "toggling course")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *adminStudentsApi) getStudent(ctx echo.Context) (user.User, error) {
	usr, err := api.svc.GetByIndex(ctx.Request().Context(), ctx.Param("index"))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errHttpNotFound
		}
		return user.User{}, errors.Wrap(err, "finding student by index number")
	}
	return usr, nil
}
