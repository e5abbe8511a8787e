// Package repository implements MySQL-backed stores for users, tenants and
// refresh tokens. Sentinel errors let higher layers branch on the failure
// without inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when a row does not exist or is filtered out by an
// active-only predicate. Callers cannot tell the two apart.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert collides with the unique key on
// users.email. The unique key, not the pre-check, is the source of truth.
var ErrEmailExists = errors.New("email already exists")

// ErrTokenNotFound is returned when a refresh token is absent, expired or
// revoked. The three cases are deliberately indistinguishable.
var ErrTokenNotFound = errors.New("refresh token not found")
