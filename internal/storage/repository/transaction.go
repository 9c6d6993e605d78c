package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// maxInParams bounds the number of placeholders per IN clause.
const maxInParams = 500

// txFunc is a function that runs within a transaction.
type txFunc func(*sql.Tx) error

// withTransaction executes fn within a database transaction.
// It commits on success and rolls back on error or panic.
func withTransaction(ctx context.Context, db *sql.DB, fn txFunc) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("transaction error: %w, rollback error: %v", err, rbErr)
			}
		} else {
			if err = tx.Commit(); err != nil {
				err = fmt.Errorf("failed to commit transaction: %w", err)
			}
		}
	}()

	return fn(tx)
}

// deleteWhereIDIn deletes rows of table whose id column is in ids, in one
// transaction. Absent ids are ignored.
func deleteWhereIDIn(ctx context.Context, db *sql.DB, table string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err := withTransaction(ctx, db, func(tx *sql.Tx) error {
		for start := 0; start < len(ids); start += maxInParams {
			end := min(start+maxInParams, len(ids))
			chunk := ids[start:end]

			query := fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", table, placeholders(len(chunk)))
			res, err := tx.ExecContext(ctx, query, stringArgs(chunk)...)
			if err != nil {
				return fmt.Errorf("failed to delete from %s: %w", table, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to count deleted rows: %w", err)
			}
			deleted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(values []string) []interface{} {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}
