package settings

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/apiwada/portal/core"
)

var ErrNotFound = errors.New("site settings not configured")

type (
	// Repository is the site/settings singleton document.
	Repository interface {
		GetSettings(ctx context.Context) (SiteSettings, error)
		// SaveSettings overwrites the singleton wholesale; last writer wins.
		SaveSettings(ctx context.Context, s SiteSettings) error
	}

	Service interface {
		Get(ctx context.Context) (SiteSettings, error)
		Save(ctx context.Context, s SiteSettings) error
		// ActiveLiveSession returns the live session running at now, if any.
		ActiveLiveSession(ctx context.Context, now time.Time) (LiveSession, bool, error)
		// StartRefresh polls the store on the configured interval and keeps a
		// cached snapshot warm until ctx is cancelled. Failed polls are logged
		// and the previous snapshot stays in service.
		StartRefresh(ctx context.Context, logger core.Logger)
	}

	service struct {
		repo Repository

		mu     sync.RWMutex
		cached SiteSettings
		warm   bool
	}
)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Get(ctx context.Context) (SiteSettings, error) {
	if s, ok := svc.snapshot(); ok {
		return s, nil
	}
	return svc.refresh(ctx)
}

func (svc *service) Save(ctx context.Context, s SiteSettings) error {
	if err := svc.repo.SaveSettings(ctx, s); err != nil {
		return err
	}
	svc.store(s)
	return nil
}

func (svc *service) ActiveLiveSession(ctx context.Context, now time.Time) (LiveSession, bool, error) {
	s, err := svc.Get(ctx)
	if err != nil {
		return LiveSession{}, false, err
	}
	for _, ls := range s.LiveSessions {
		if ls.ActiveAt(now) {
			return ls, true, nil
		}
	}
	return LiveSession{}, false, nil
}

func (svc *service) StartRefresh(ctx context.Context, logger core.Logger) {
	interval := core.Conf.Settings.RefreshInterval
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := svc.refresh(ctx); err != nil && errors.Cause(err) != ErrNotFound {
					logger.Warn("refreshing site settings", err)
				}
			}
		}
	}()
}

func (svc *service) refresh(ctx context.Context) (SiteSettings, error) {
	s, err := svc.repo.GetSettings(ctx)
	if err != nil {
		return SiteSettings{}, err
	}
	svc.store(s)
	return s, nil
}

func (svc *service) snapshot() (SiteSettings, bool) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return svc.cached, svc.warm
}

func (svc *service) store(s SiteSettings) {
	svc.mu.Lock()
	svc.cached = s
	svc.warm = true
	svc.mu.Unlock()
}
