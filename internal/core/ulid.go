// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RosterCraft Contributors

// Package core holds identifier generation and change broadcasting shared by the
// tournament state components.
package core

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// NewULID generates a new ULID. Ids generated in the same millisecond sort in
// generation order, which keeps freshly created roles and staff in insertion
// order when listed by id.
func NewULID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// ParseULID parses a tournament, role or staff id. Surrounding whitespace is
// ignored. The zero ULID is rejected: no stored entity carries it.
func ParseULID(s string) (ulid.ULID, error) {
	trimmed := strings.TrimSpace(s)
	id, err := ulid.ParseStrict(trimmed)
	if err != nil {
		return ulid.ULID{}, oops.In("core").With("value", s).Wrapf(err, "invalid ULID %q", s)
	}
	if IsZero(id) {
		return ulid.ULID{}, oops.In("core").With("value", s).Errorf("invalid ULID %q: zero id", s)
	}
	return id, nil
}

// ParseULIDs parses a list of ids as given on the command line or in a
// request body. Blank entries are skipped, so "a,,b" and a trailing comma are
// accepted. Parsing fails on the first invalid entry.
func ParseULIDs(ss []string) ([]ulid.ULID, error) {
	ids := make([]ulid.ULID, 0, len(ss))
	for _, s := range ss {
		if strings.TrimSpace(s) == "" {
			continue
		}
		id, err := ParseULID(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// IsZero reports whether id is the zero ULID.
func IsZero(id ulid.ULID) bool {
	return id.Compare(ulid.ULID{}) == 0
}
