// Package sqlxrepos implements the document-store repositories over Postgres.
// Each collection is a table of JSONB documents read and written whole, which
// keeps the storage layer symmetrical with the in-memory implementation.
package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// registerAttempts bounds the transaction retry loop of RegisterUser.
const registerAttempts = 5

func unmarshalDoc(raw []byte, dest interface{}) error {
	return errors.Wrap(json.Unmarshal(raw, dest), "unmarshaling document")
}

func marshalDoc(src interface{}) ([]byte, error) {
	raw, err := json.Marshal(src)
	return raw, errors.Wrap(err, "marshaling document")
}

// isSerializationErr reports whether a transaction failed due to a concurrent
// conflicting write and is safe to retry from the top.
func isSerializationErr(err error) bool {
	var pqErr *pq.Error
	if errors.As(errors.Cause(err), &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "23505": // serialization_failure, deadlock_detected, unique_violation
			return true
		}
	}
	return false
}

func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
