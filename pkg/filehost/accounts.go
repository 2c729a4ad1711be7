package filehost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Accounts stores login records in the document store only. There is no
// cache and no uniqueness check beyond what the caller supplies.
type Accounts struct {
	docs       DocumentStore
	collection string
	logger     *slog.Logger
}

// FindUser returns the login record with the given username.
func (a *Accounts) FindUser(ctx context.Context, username string) (LoginRecord, error) {
	doc, err := a.docs.FindOne(ctx, a.collection, Filter{"username": username})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
		}
		return nil, &DocumentError{Collection: a.collection, Op: "find_one", Err: err}
	}
	return LoginRecord(doc), nil
}

// Signup inserts a login record as supplied.
func (a *Accounts) Signup(ctx context.Context, record LoginRecord) error {
	if len(record) == 0 {
		return fmt.Errorf("%w: login data is required", ErrBadRequest)
	}
	if err := a.docs.InsertOne(ctx, a.collection, map[string]interface{}(record)); err != nil {
		a.logger.Error("Failed to insert login record", "username", record.Username(), "error", err)
		return &DocumentError{Collection: a.collection, Op: "insert", Err: err}
	}
	a.logger.Info("Login record created", "username", record.Username())
	return nil
}
