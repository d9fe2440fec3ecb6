// Package storage holds the persistence backends of the template store.
//
// A [Backend] is a synchronous key-value store that keeps one string blob per
// key. The template store writes its whole collection as a single JSON blob
// under a fixed key, so backends never see partial updates.
package storage

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Backend is a synchronous key-value blob store.
type Backend interface {
	// Get returns the value stored under key. ok is false when the key is
	// absent; that is not an error.
	Get(key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
}

var errInvalidKey = errors.New("invalid storage key")

// Close releases the resources held by b, if any.
func Close(b Backend) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// checkKey rejects keys that cannot be used as a plain file name.
func checkKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: %q", errInvalidKey, key)
	}
	return nil
}
