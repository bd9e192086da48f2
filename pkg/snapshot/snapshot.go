// Package snapshot defines the keys that identify tracked datasets and the
// collaborators that read and write their raw snapshots.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by a Store when no snapshot exists for a key.
	ErrNotFound = errors.New("snapshot not found")
	// ErrSourceUnavailable wraps fetch failures and malformed upstream content.
	ErrSourceUnavailable = errors.New("source unavailable")
)

// Kind tells program snapshots apart from flat domain lists.
type Kind int

const (
	KindProgram Kind = iota
	KindList
)

func (k Kind) String() string {
	if k == KindList {
		return "list"
	}
	return "program"
}

// Key identifies one tracked dataset: a platform's program list or a flat list.
type Key struct {
	Name string
	Kind Kind
}

func (k Key) String() string { return k.Name }

// FileName is the name under which the snapshot is cached locally.
func (k Key) FileName() string {
	if k.Kind == KindList {
		return k.Name + "_data.txt"
	}
	return k.Name + "_data.json"
}

// ParseKey returns the key for a file name produced by FileName.
func ParseKey(fileName string) (Key, error) {
	if name, ok := strings.CutSuffix(fileName, "_data.json"); ok && name != "" {
		return Key{Name: name, Kind: KindProgram}, nil
	}
	if name, ok := strings.CutSuffix(fileName, "_data.txt"); ok && name != "" {
		return Key{Name: name, Kind: KindList}, nil
	}
	return Key{}, fmt.Errorf("not a snapshot file name: %s", fileName)
}

var (
	DefaultPlatforms = []string{"bugcrowd", "hackerone", "federacy", "hackenproof", "intigriti", "yeswehack"}
	DefaultLists     = []string{"domains", "wildcards"}
)

// KeySet is the fixed set of datasets a run covers.
type KeySet struct {
	Platforms []string
	Lists     []string
}

// DefaultKeySet returns the platforms and lists published upstream.
func DefaultKeySet() KeySet {
	return KeySet{
		Platforms: append([]string(nil), DefaultPlatforms...),
		Lists:     append([]string(nil), DefaultLists...),
	}
}

// Keys returns program keys first, then list keys, in configuration order.
func (s KeySet) Keys() []Key {
	keys := make([]Key, 0, len(s.Platforms)+len(s.Lists))
	for _, p := range s.Platforms {
		keys = append(keys, Key{Name: p, Kind: KindProgram})
	}
	for _, l := range s.Lists {
		keys = append(keys, Key{Name: l, Kind: KindList})
	}
	return keys
}

// Source supplies the latest upstream snapshot for a key.
type Source interface {
	Fetch(ctx context.Context, key Key) ([]byte, error)
}

// Store supplies the previously cached snapshot for a key and persists new ones.
// Load must return an error matching ErrNotFound when nothing is cached.
type Store interface {
	Load(ctx context.Context, key Key) ([]byte, error)
	Save(ctx context.Context, key Key, data []byte) error
}
