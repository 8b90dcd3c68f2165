package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/iho/walletledger/internal/usecase"
)

// ErrSessionClosed is returned when a finished session is used again.
var ErrSessionClosed = errors.New("mongo: session already finished")

// SessionManager implements usecase.ScopeManager with multi-document transactions.
// The deployment must be a replica set.
type SessionManager struct {
	client *mongo.Client
}

// NewSessionManager creates a new SessionManager.
func NewSessionManager(client *mongo.Client) *SessionManager {
	return &SessionManager{client: client}
}

// Begin starts a session and a snapshot transaction on it.
func (m *SessionManager) Begin(ctx context.Context) (usecase.Scope, error) {
	sess, err := m.client.StartSession()
	if err != nil {
		return nil, err
	}

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := sess.StartTransaction(txnOpts); err != nil {
		sess.EndSession(ctx)
		return nil, err
	}

	return &Session{session: sess}, nil
}

// Session wraps a driver session with an open transaction.
type Session struct {
	session mongo.Session
	done    bool
}

// Commit commits the transaction and ends the session.
func (s *Session) Commit(ctx context.Context) error {
	if s.done {
		return ErrSessionClosed
	}
	s.done = true
	defer s.session.EndSession(ctx)
	return s.session.CommitTransaction(ctx)
}

// Rollback aborts the transaction. Rolling back a finished session is a no-op.
func (s *Session) Rollback(ctx context.Context) error {
	if s.done {
		return nil
	}
	s.done = true
	defer s.session.EndSession(ctx)
	return s.session.AbortTransaction(ctx)
}

func sessionContext(ctx context.Context, scope usecase.Scope) (mongo.SessionContext, error) {
	s, ok := scope.(*Session)
	if !ok {
		return nil, fmt.Errorf("mongo: unsupported scope %T", scope)
	}
	if s.done {
		return nil, ErrSessionClosed
	}
	return mongo.NewSessionContext(ctx, s.session), nil
}
