// SPDX-License-Identifier: MIT

// Package queryast decodes a query tree from its §6 wire shape
// (structured value or JSON text) into a plain Go value the query
// package compiles against a schema. It performs no schema-aware
// validation itself — that is the compiler's job, once names can be
// resolved to ids.
package queryast

import (
	"bufio"
	"io"
	"strings"

	"git.lukeshu.com/go/lowmemjson"
)

// FilterDef is one `{field, op, value}` leaf predicate. Value is
// decoded as one of string/float64/bool/nil by lowmemjson's default
// `any` handling, matching JSON's own dynamic typing; the compiler
// narrows it against the bound property's declared kind.
type FilterDef struct {
	Field string      `json:"field"`
	Op    string      `json:"op"`
	Value interface{} `json:"value"`
}

type SortDef struct {
	Field     string `json:"field"`
	Direction string `json:"direction,omitempty"` // "asc" (default) | "desc"
}

// EdgeSel is one nested edge selection, recursively shaped the same
// as Query minus `root`/`id`.
type EdgeSel struct {
	Name      string    `json:"name"`
	Virtual   bool      `json:"virtual,omitempty"`
	Recursive bool      `json:"recursive,omitempty"`
	Filters   []FilterDef `json:"filters,omitempty"`
	Sorts     []SortDef   `json:"sorts,omitempty"`
	Edges     []EdgeSel   `json:"edges,omitempty"`
}

// Query is the root of a query tree, per spec §4.4.
type Query struct {
	Root    string      `json:"root"`
	Id      *uint64     `json:"id,omitempty"`
	Virtual bool        `json:"virtual,omitempty"`
	Filters []FilterDef `json:"filters,omitempty"`
	Sorts   []SortDef   `json:"sorts,omitempty"`
	Edges   []EdgeSel   `json:"edges,omitempty"`
}

// DecodeQueryJSON parses a query document using the project's
// lowmemjson codec, matching how schema documents are decoded.
func DecodeQueryJSON(text string) (Query, error) {
	var q Query
	r := bufio.NewReader(strings.NewReader(text))
	if err := lowmemjson.DecodeThenEOF(r, &q); err != nil {
		return Query{}, err
	}
	return q, nil
}

func EncodeQueryJSON(w io.Writer, q Query) error {
	return lowmemjson.Encode(w, q)
}
