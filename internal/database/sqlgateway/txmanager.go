package sqlgateway

import (
	"context"
	"database/sql"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var ErrTxClosed = errors.New("transaction is already closed")

type TxCallback func(context.Context, *sqlx.Tx) error

// TxManager opens at most one transaction per Begin on the gateway connection
// and guarantees it is closed exactly once, either committed or rolled back
type TxManager struct {
	conn *sqlx.Conn
	opts *sql.TxOptions
}

func NewTxManager(conn *sqlx.Conn) *TxManager {
	return &TxManager{conn: conn, opts: &sql.TxOptions{}}
}

// Begin starts the transaction, statements run through it are
// no longer auto committed
func (txm *TxManager) Begin(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := txm.conn.BeginTxx(ctx, txm.opts)
	if err != nil {
		return nil, errors.Wrap(err, "could not start transaction")
	}

	return tx, nil
}

func (txm *TxManager) Commit(tx *sqlx.Tx) error {
	if err := tx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return ErrTxClosed
		}

		return errors.Wrap(err, "could not commit transaction")
	}

	return nil
}

func (txm *TxManager) RollbackAll(tx *sqlx.Tx) error {
	if err := tx.Rollback(); err != nil {
		if errors.Is(err, sql.ErrTxDone) {
			return ErrTxClosed
		}

		return errors.Wrap(err, "could not rollback transaction")
	}

	return nil
}

// InTx runs cb inside a fresh transaction. On any error from cb the whole
// transaction is rolled back and that very error is returned. A failed
// rollback is appended to the message, the cause stays the same.
func (txm *TxManager) InTx(ctx context.Context, cb TxCallback) error {
	tx, err := txm.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = txm.RollbackAll(tx)
			panic(p)
		}
	}()

	if cbErr := cb(ctx, tx); cbErr != nil {
		if rbErr := txm.RollbackAll(tx); rbErr != nil {
			return errors.WithMessage(cbErr, "ROLLBACK: "+rbErr.Error())
		}

		return cbErr
	}

	return txm.Commit(tx)
}
