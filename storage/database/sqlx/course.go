package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/apiwada/portal/core/course"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	var rows [][]byte
	q := "SELECT doc FROM courses ORDER BY position"
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}

	courses := make([]course.Course, 0, len(rows))
	for _, raw := range rows {
		var crs course.Course
		if err := unmarshalDoc(raw, &crs); err != nil {
			return nil, err
		}
		courses = append(courses, crs)
	}
	return courses, nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var raw []byte
	err := repo.db.GetContext(ctx, &raw, "SELECT doc FROM courses WHERE id = $1", id)
	switch err {
	case nil:
	case sql.ErrNoRows:
		return course.Course{}, course.ErrNotFound
	default:
		return course.Course{}, errors.Wrap(err, "getting course")
	}

	var crs course.Course
	if err = unmarshalDoc(raw, &crs); err != nil {
		return course.Course{}, err
	}
	return crs, nil
}

// ReplaceCourses swaps the whole catalog in one transaction; the position
// column preserves the admin's ordering.
func (repo courseRepository) ReplaceCourses(ctx context.Context, courses []course.Course) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM courses"); err != nil {
			return errors.Wrap(err, "clearing courses")
		}
		for pos, crs := range courses {
			raw, err := marshalDoc(crs)
			if err != nil {
				return err
			}
			q := "INSERT INTO courses (id, position, doc) VALUES ($1, $2, $3)"
			if _, err = tx.ExecContext(ctx, q, crs.ID, pos, raw); err != nil {
				return errors.Wrap(err, "inserting course")
			}
		}
		return nil
	})
}
