package course

import (
	"context"

	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("course not found")

type (
	// Repository is the courses collection of the document store.
	Repository interface {
		QueryAllCourses(ctx context.Context) ([]Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		// ReplaceCourses overwrites the whole catalog; last writer wins.
		ReplaceCourses(ctx context.Context, courses []Course) error
	}

	Service interface {
		QueryAll(ctx context.Context) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		ReplaceAll(ctx context.Context, courses []Course) error
	}

	service struct {
		repo Repository
	}
)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) QueryAll(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryAllCourses(ctx)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) ReplaceAll(ctx context.Context, courses []Course) error {
	return svc.repo.ReplaceCourses(ctx, courses)
}
