package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/apiwada/portal/apps/api/echo"
	"github.com/apiwada/portal/core"
	"github.com/apiwada/portal/core/course"
	"github.com/apiwada/portal/core/settings"
	"github.com/apiwada/portal/core/user"
	"github.com/apiwada/portal/core/watch"
	emailsvc "github.com/apiwada/portal/services/email"
	logsvc "github.com/apiwada/portal/services/logger"
	"github.com/apiwada/portal/storage/database"
	sqlxrepos "github.com/apiwada/portal/storage/database/sqlx"
)

const shutdownTimeout = 20 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	db, err := setUpDB()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc)
	crsSvc := course.NewService(sqlxrepos.NewCourseRepository(db))
	setSvc := settings.NewService(sqlxrepos.NewSettingsRepository(db))
	watchMgr := watch.NewManager(usrSvc, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	defer stopRefresh()
	setSvc.StartRefresh(refreshCtx, logger)

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(&echoapi.Options{
		Address:     core.Conf.Addr(),
		Logger:      logger,
		UserSvc:     usrSvc,
		CourseSvc:   crsSvc,
		SettingsSvc: setSvc,
		WatchMgr:    watchMgr,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		stopRefresh()

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

func setUpDB() (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		return nil, err
	}

	db, err := database.Open(core.Conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
