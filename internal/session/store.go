// Package session persists the single bearer token issued at login.
// Exactly one token is active at a time; a new login overwrites the old
// token and logout removes it.
package session

import (
	"context"
	"errors"
)

var (
	// ErrNoSession is returned by Token when no token has been stored,
	// or when a previous one was cleared by logout.
	ErrNoSession = errors.New("no session token stored")
)

type Store interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	Clear(ctx context.Context) error
	Close() error
}
