package inmemdb

import (
	"context"
	"strconv"
	"strings"

	"github.com/apiwada/portal/core"
	"github.com/apiwada/portal/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.users}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, *u)
	}
	return users
}

// RegisterUser issues the next index number and creates the user under the
// same lock, so concurrent registrations always get distinct numbers.
func (repo *userRepository) RegisterUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.db.counter == 0 {
		repo.db.counter = core.Conf.Registration.InitialIndex
	} else {
		repo.db.counter++
	}
	usr.IndexNumber = strconv.Itoa(repo.db.counter)
	repo.db.table[usr.IndexNumber] = &usr
	return usr, nil
}

func (repo *userRepository) GetUserByIndex(_ context.Context, indexNumber string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.table[indexNumber]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) LookupUserByContact(_ context.Context, contact string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.query() {
		if usr.Contact == contact {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryAllUsers(_ context.Context) ([]user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.query(), nil
}

func (repo *userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
	users, err := repo.QueryAllUsers(ctx)
	if err != nil {
		return nil, err
	}
	if filter.IsEmpty() {
		return users, nil
	}

	search := strings.ToLower(filter.Search)
	matches := make([]user.User, 0, len(users))
	for _, usr := range users {
		if strings.Contains(strings.ToLower(usr.Name), search) ||
			strings.Contains(usr.IndexNumber, filter.Search) ||
			strings.Contains(usr.Contact, filter.Search) {
			matches = append(matches, usr)
		}
	}
	return matches, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[usr.IndexNumber]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.table[usr.IndexNumber] = &usr
	return usr, nil
}

func (repo *userRepository) SaveWatchTime(_ context.Context, indexNumber, courseID string, seconds int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr, ok := repo.db.table[indexNumber]
	if !ok {
		return user.ErrNotFound
	}
	if usr.WatchTime == nil {
		usr.WatchTime = make(map[string]int)
	}
	usr.WatchTime[courseID] = seconds
	return nil
}
