// SPDX-License-Identifier: MIT

package neograph

import (
	"errors"
	"fmt"

	"github.com/Aetherall/neograph-sub003/internal/query"
	"github.com/Aetherall/neograph-sub003/internal/schema"
	"github.com/Aetherall/neograph-sub003/internal/store"
)

// Kind is the §7 error-kind discriminant surfaced to Host API callers,
// so embedders can branch on what went wrong without string matching.
type Kind uint8

const (
	KindSchemaError Kind = iota
	KindQueryValidationError
	KindExpansionError
	KindNotFound
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindSchemaError:
		return "schema_error"
	case KindQueryValidationError:
		return "query_validation_error"
	case KindExpansionError:
		return "expansion_error"
	case KindNotFound:
		return "not_found"
	case KindInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Error wraps every failure the Host API returns in one type carrying
// a Kind, so a caller across a language binding boundary (spec §6's
// "out of scope: language bindings") has a single tag to switch on
// instead of needing Go's errors.As against four internal types.
type Error struct {
	Kind Kind
	Msg  string
	err  error
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.err }

func wrapErr(k Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, Msg: err.Error(), err: err}
}

func classify(err error) *Error {
	if err == nil {
		return nil
	}
	var se *schema.Error
	if errors.As(err, &se) {
		return wrapErr(KindSchemaError, err)
	}
	var te *store.TypeError
	if errors.As(err, &te) {
		return wrapErr(KindSchemaError, err)
	}
	var ve *query.ValidationError
	if errors.As(err, &ve) {
		return wrapErr(KindQueryValidationError, err)
	}
	var ee *query.ExpansionError
	if errors.As(err, &ee) {
		return wrapErr(KindExpansionError, err)
	}
	var ne *NotFoundError
	if errors.As(err, &ne) {
		return wrapErr(KindNotFound, err)
	}
	var ie *InvariantError
	if errors.As(err, &ie) {
		return wrapErr(KindInvariant, err)
	}
	return wrapErr(KindInvariant, err)
}

// NotFoundError is raised by update/delete/link/unlink against an
// unknown node id.
type NotFoundError struct{ Id uint64 }

func (e *NotFoundError) Error() string { return fmt.Sprintf("neograph: node %d not found", e.Id) }

// InvariantError marks an internal consistency violation (spec §7):
// fatal to the current operation only, never to the graph itself.
type InvariantError struct{ Msg string }

func (e *InvariantError) Error() string { return "neograph: invariant violation: " + e.Msg }
