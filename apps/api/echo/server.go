package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/apiwada/portal/core"
	"github.com/apiwada/portal/core/course"
	"github.com/apiwada/portal/core/settings"
	"github.com/apiwada/portal/core/user"
	"github.com/apiwada/portal/core/watch"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool
		Logger         core.Logger
		UserSvc        user.Service
		CourseSvc      course.Service
		SettingsSvc    settings.Service
		WatchMgr       *watch.Manager
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		opts  *Options
		app   *echo.Echo
		errCh chan error
		sigCh chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:  opts,
		app:   echo.New(),
		errCh: make(chan error, 1),
		sigCh: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(core.Conf.Debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = core.Conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)
	admin := v1.Group("/admin", jwt, adminMiddleware())

	registerUserAPI(v1, jwt, s.opts.UserSvc)
	registerCourseAPI(v1, admin, s.opts.CourseSvc)
	registerSettingsAPI(v1, admin, jwt, s.opts.SettingsSvc, s.opts.UserSvc)
	registerWatchAPI(v1, jwt, s.opts.WatchMgr, s.opts.UserSvc, s.opts.CourseSvc)
	registerAdminStudentsAPI(admin, s.opts.UserSvc)
}

func (s *server) Start() {
	signal.Notify(s.sigCh, syscall.SIGINT, syscall.SIGTERM)
	if err := s.app.Start(s.opts.Address); err != nil && err != http.ErrServerClosed {
		s.errCh <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	if s.opts.WatchMgr != nil {
		s.opts.WatchMgr.StopAll()
	}
	return s.app.Shutdown(ctx)
}

func (s *server) Errors() <-chan error { return s.errCh }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.sigCh }

// signalShutdown lets the error handler request a graceful stop when an
// unrecoverable error surfaces.
func (s *server) signalShutdown() {
	s.sigCh <- syscall.SIGTERM
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to the "+core.Conf.AppName+" API!")
}
