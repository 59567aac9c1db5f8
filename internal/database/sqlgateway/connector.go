package sqlgateway

import (
	"context"
	"github.com/jmoiron/sqlx"
	"github.com/oniti/migrations/internal/database"
	"github.com/oniti/migrations/internal/retry"
	"github.com/pkg/errors"
	"time"
)

const (
	DefaultConnectionAttempts    = 1
	DefaultConnectionTimeout     = 60 * time.Second
	DefaultConnectionAttemptStep = 2 * time.Second
)

type ConnectOptions struct {
	MaxAttempts int
	MaxTimeout  time.Duration
	RetryStep   time.Duration
}

func NewDefaultConnectOptions() *ConnectOptions {
	return &ConnectOptions{
		MaxAttempts: DefaultConnectionAttempts,
		MaxTimeout:  DefaultConnectionTimeout,
		RetryStep:   DefaultConnectionAttemptStep,
	}
}

type SQLConnector interface {
	Connect(ctx context.Context) (*sqlx.Conn, error)
	Close() error
}

// RetryingConnector holds a single connection taken from the pool,
// every statement of a migrate or rollback call goes through it
type RetryingConnector struct {
	options *ConnectOptions
	db      *sqlx.DB
	conn    *sqlx.Conn
}

var _ SQLConnector = (*RetryingConnector)(nil)

func MakeRetryingConnector(db *sqlx.DB, options *ConnectOptions) *RetryingConnector {
	if options == nil {
		options = NewDefaultConnectOptions()
	}

	return &RetryingConnector{db: db, options: options}
}

func (c *RetryingConnector) Connect(ctx context.Context) (*sqlx.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}

	if c.db == nil {
		return nil, errors.Wrap(database.ErrConnection, "no database handle given")
	}

	if c.options.MaxTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.options.MaxTimeout)
		defer cancel()
	}

	var conn *sqlx.Conn
	err := retry.Incremental(ctx, c.options.RetryStep, c.options.MaxAttempts, func(attempt int) error {
		candidate, err := c.db.Connx(ctx)
		if err != nil {
			return retry.Error(errors.Wrap(err, "could not establish DB connection"), attempt)
		}

		if err := Ping(ctx, candidate); err != nil {
			_ = candidate.Close()
			return retry.Error(err, attempt)
		}

		conn = candidate
		return nil
	})

	if err != nil {
		return nil, errors.Wrapf(database.ErrConnection, "%s", err.Error())
	}

	c.conn = conn

	return conn, nil
}

func (c *RetryingConnector) Close() error {
	if c.conn != nil {
		conn := c.conn
		c.conn = nil
		if err := conn.Close(); err != nil {
			return errors.Wrap(err, "retrying connector could not close the connection")
		}
	}

	return nil
}
