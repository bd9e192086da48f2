package storage

import (
	"context"
	"time"

	"github.com/sw33tLie/scopediff/pkg/snapshot"
)

// Info describes one cached snapshot.
type Info struct {
	Key       snapshot.Key
	Size      int
	UpdatedAt time.Time
}

// Backend is a snapshot.Store that can also enumerate what it holds.
type Backend interface {
	snapshot.Store
	List(ctx context.Context) ([]Info, error)
	Close() error
}
