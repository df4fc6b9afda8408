// Package localstore provides the synchronous durable key-value store
// backing the draft mirror and recovery snapshots. It is a safety net,
// not the source of truth: writes are best effort and the upstream
// content API remains authoritative.
package localstore

import (
	"errors"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("localstore: key not found")

type Store interface {
	Init() error

	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error

	Close() error
}

var storeLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	storeLogger = l
}
