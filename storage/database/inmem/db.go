// Package inmemdb provides mutex-guarded map implementations of the document
// store repositories. Used by tests and local development without Postgres.
package inmemdb

import (
	"sync"

	"github.com/apiwada/portal/core/course"
	"github.com/apiwada/portal/core/settings"
	"github.com/apiwada/portal/core/user"
)

type DB struct {
	users    *userTable
	courses  *courseTable
	settings *settingsTable
}

func NewDB() *DB {
	return &DB{
		users:    &userTable{table: make(map[string]*user.User)},
		courses:  &courseTable{},
		settings: &settingsTable{},
	}
}

type userTable struct {
	mutex sync.RWMutex
	table map[string]*user.User // keyed by index number
	// counter holds the last issued index number; 0 means unseeded.
	counter int
}

type courseTable struct {
	mutex sync.RWMutex
	table []course.Course
}

type settingsTable struct {
	mutex sync.RWMutex
	doc   *settings.SiteSettings
}
