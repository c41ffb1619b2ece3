package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/apiwada/portal/core"
	"github.com/apiwada/portal/core/user"
)

const userCounterID = "user_counter"

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

// userDoc is the persisted shape of a user. The password hash never leaves
// the API (the core struct json-omits it) but must survive storage round-trips.
type userDoc struct {
	user.User
	PasswordHash []byte `json:"passwordHash,omitempty"`
}

func newUserDoc(usr user.User) userDoc {
	return userDoc{User: usr, PasswordHash: usr.PasswordHash}
}

type counterDoc struct {
	Current int `json:"current"`
}

func (repo userRepository) RegisterUser(ctx context.Context, usr user.User) (user.User, error) {
	var registered user.User
	var err error
	for attempt := 1; ; attempt++ {
		registered, err = repo.registerUserTx(ctx, usr)
		if err == nil || !isSerializationErr(err) || attempt == registerAttempts {
			return registered, err
		}
	}
}

// registerUserTx advances the counter and creates the user document in one
// transaction so no two registrations can ever share an index number.
func (repo userRepository) registerUserTx(ctx context.Context, usr user.User) (user.User, error) {
	err := inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var raw []byte
		counter := counterDoc{Current: core.Conf.Registration.InitialIndex - 1}
		err := tx.GetContext(ctx, &raw, "SELECT doc FROM metadata WHERE id = $1 FOR UPDATE", userCounterID)
		switch err {
		case nil:
			if err = unmarshalDoc(raw, &counter); err != nil {
				return err
			}
		case sql.ErrNoRows: // first ever registration seeds the counter
		default:
			return errors.Wrap(err, "reading user counter")
		}

		counter.Current++
		usr.IndexNumber = strconv.Itoa(counter.Current)

		counterRaw, err := marshalDoc(counter)
		if err != nil {
			return err
		}
		q := `INSERT INTO metadata (id, doc) VALUES ($1, $2)
			  ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`
		if _, err = tx.ExecContext(ctx, q, userCounterID, counterRaw); err != nil {
			return errors.Wrap(err, "writing user counter")
		}

		userRaw, err := marshalDoc(newUserDoc(usr))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "INSERT INTO users (index_number, doc) VALUES ($1, $2)", usr.IndexNumber, userRaw)
		return errors.Wrap(err, "creating user")
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo userRepository) GetUserByIndex(ctx context.Context, indexNumber string) (user.User, error) {
	var raw []byte
	err := repo.db.GetContext(ctx, &raw, "SELECT doc FROM users WHERE index_number = $1", indexNumber)
	switch err {
	case nil:
	case sql.ErrNoRows:
		return user.User{}, user.ErrNotFound
	default:
		return user.User{}, errors.Wrap(err, "getting user")
	}
	return repo.decode(raw)
}

func (repo userRepository) LookupUserByContact(ctx context.Context, contact string) (user.User, error) {
	users, err := repo.QueryAllUsers(ctx)
	if err != nil {
		return user.User{}, err
	}
	for _, usr := range users {
		if usr.Contact == contact {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo userRepository) QueryAllUsers(ctx context.Context) ([]user.User, error) {
	var rows [][]byte
	q := "SELECT doc FROM users ORDER BY index_number"
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	users := make([]user.User, 0, len(rows))
	for _, raw := range rows {
		usr, err := repo.decode(raw)
		if err != nil {
			return nil, err
		}
		users = append(users, usr)
	}
	return users, nil
}

func (repo userRepository) FilterUsers(ctx context.Context, filter user.QueryFilter) ([]user.User, error) {
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

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	raw, err := marshalDoc(newUserDoc(usr))
	if err != nil {
		return user.User{}, err
	}
	res, err := repo.db.ExecContext(ctx, "UPDATE users SET doc = $2 WHERE index_number = $1", usr.IndexNumber, raw)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) SaveWatchTime(ctx context.Context, indexNumber, courseID string, seconds int) error {
	return inTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var raw []byte
		err := tx.GetContext(ctx, &raw, "SELECT doc FROM users WHERE index_number = $1 FOR UPDATE", indexNumber)
		switch err {
		case nil:
		case sql.ErrNoRows:
			return user.ErrNotFound
		default:
			return errors.Wrap(err, "getting user")
		}

		var doc userDoc
		if err = unmarshalDoc(raw, &doc); err != nil {
			return err
		}
		if doc.WatchTime == nil {
			doc.WatchTime = make(map[string]int)
		}
		doc.WatchTime[courseID] = seconds

		raw, err = marshalDoc(doc)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, "UPDATE users SET doc = $2 WHERE index_number = $1", indexNumber, raw)
		return errors.Wrap(err, "saving watch time")
	})
}

func (repo userRepository) decode(raw []byte) (user.User, error) {
	var doc userDoc
	if err := unmarshalDoc(raw, &doc); err != nil {
		return user.User{}, err
	}
	usr := doc.User
	usr.PasswordHash = doc.PasswordHash
	return usr, nil
}
