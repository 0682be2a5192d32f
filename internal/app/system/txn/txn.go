// Package txn runs a group of MongoDB writes inside a multi-document
// transaction.
//
// Transactions need a replica set (or sharded cluster). Against a standalone
// server Run can fall back to executing fn without a transaction; RunStrict
// never does. The fallback gives up atomicity, so it is logged every time.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

// ErrNotSupported is returned by RunStrict when the deployment cannot run
// multi-document transactions.
var ErrNotSupported = errors.New("txn: multi-document transactions are not supported by this deployment")

// Run executes fn inside a transaction, falling back to a plain execution
// when the server does not support transactions.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	return run(ctx, db, log, true, fn)
}

// RunStrict executes fn inside a transaction and fails with ErrNotSupported
// rather than running it non-atomically.
func RunStrict(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	return run(ctx, db, log, false, fn)
}

func run(ctx context.Context, db *mongo.Database, log *zap.Logger, fallback bool, fn func(ctx context.Context) error) error {
	if log == nil {
		log = zap.NewNop()
	}

	sess, err := db.Client().StartSession()
	if err != nil {
		return notSupported(ctx, log, fallback, err, fn)
	}
	defer sess.EndSession(ctx)

	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, opts)
	if err != nil && IsNotSupported(err) {
		return notSupported(ctx, log, fallback, err, fn)
	}
	return err
}

func notSupported(ctx context.Context, log *zap.Logger, fallback bool, cause error, fn func(ctx context.Context) error) error {
	if !fallback {
		log.Error("transaction unavailable; refusing non-atomic write", zap.Error(cause))
		return errors.Join(ErrNotSupported, cause)
	}
	log.Warn("transaction unavailable; running writes without atomicity", zap.Error(cause))
	return fn(ctx)
}

// IsNotSupported reports whether err means the deployment cannot run
// transactions (standalone server, unsupported command, session misuse).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	hasTxn := strings.Contains(msg, "transaction")
	switch {
	case hasTxn && strings.Contains(msg, "replica set"):
		return true
	case hasTxn && strings.Contains(msg, "session"):
		return true
	case hasTxn && strings.Contains(msg, "illegal operation"):
		return true
	case strings.Contains(msg, "session") && strings.Contains(msg, "not supported"):
		return true
	}
	return false
}
