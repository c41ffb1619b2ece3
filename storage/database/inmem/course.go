package inmemdb

import (
	"context"

	"github.com/apiwada/portal/core/course"
)

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.courses}
}

func (repo *courseRepository) QueryAllCourses(_ context.Context) ([]course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	courses := make([]course.Course, len(repo.db.table))
	copy(courses, repo.db.table)
	return courses, nil
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id string) (course.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, crs := range repo.db.table {
		if crs.ID == id {
			return crs, nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) ReplaceCourses(_ context.Context, courses []course.Course) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table = make([]course.Course, len(courses))
	copy(repo.db.table, courses)
	return nil
}
