package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrConflict          = errors.New("resource already exists")
	QueryTimeoutDuration = time.Second * 5
)

type Storage struct {
	Users interface {
		Create(context.Context, *User) error
		GetByID(context.Context, int64) (*User, error)
		GetByEmail(context.Context, string) (*User, error)
		Update(context.Context, int64, map[string]interface{}) error
	}
	Stores interface {
		Create(context.Context, *Store) error
		GetByRef(context.Context, string) (*Store, error)
		ListByVerified(context.Context, bool) ([]Store, error)
		ListByCreatorEmail(context.Context, string) ([]Store, error)
		Stats(context.Context) (StoreStats, error)
		AppendVerification(context.Context, int64, VerificationRequest) (*Store, error)
		MarkVerified(context.Context, int64) error
	}
}

func NewStorage(db *sql.DB) Storage {
	return Storage{
		Users:  &UsersStore{db},
		Stores: &StoresStore{db},
	}
}
