package storage

import (
	"context"
	"regexp"
)

// Storage is the key-value contract the cart persists through.
// Values are opaque strings; Set replaces the whole value.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	Init() error
	Close() error
	Backup() error
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]{1,128}$`)

func validateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return ErrInvalidKey
	}
	return nil
}
