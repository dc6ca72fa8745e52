// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"git.lukeshu.com/go/lowmemjson"

	neograph "github.com/Aetherall/neograph-sub003"
)

// fixtureOp is one entry of a seed or mutation-script JSON file: a
// flat array of ops applied to a Graph in order. "ref" lets a later op
// refer back to a node an earlier "insert" created without knowing
// its allocated id ahead of time; "id"/"src"/"target" accept either a
// bound ref or a decimal node id literal.
type fixtureOp struct {
	Op     string                 `json:"op"` // insert|update|delete|link|unlink
	Type   string                 `json:"type,omitempty"`
	Ref    string                 `json:"ref,omitempty"`
	Id     string                 `json:"id,omitempty"`
	Props  map[string]interface{} `json:"props,omitempty"`
	Edge   string                 `json:"edge,omitempty"`
	Src    string                 `json:"src,omitempty"`
	Target string                 `json:"target,omitempty"`
}

func loadSchemaFile(path string) (*neograph.Graph, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := neograph.NewGraphFromJSON(string(bs))
	if err != nil {
		return nil, err
	}
	return g, nil
}

func loadOpsFile(path string) ([]fixtureOp, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var ops []fixtureOp
	if err := lowmemjson.DecodeThenEOF(bufio.NewReader(f), &ops); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ops, nil
}

// refs resolves fixtureOp id/src/target fields: a name bound by an
// earlier "ref", or a decimal node id literal.
type refs map[string]uint64

func (r refs) resolve(s string) (uint64, error) {
	if id, ok := r[s]; ok {
		return id, nil
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unresolved node reference %q", s)
	}
	return id, nil
}

// applyOps replays ops against g in order, binding each "insert"'s
// assigned id under its ref (if given) for later ops to resolve.
func applyOps(g *neograph.Graph, ops []fixtureOp) (refs, error) {
	r := make(refs)
	for i, op := range ops {
		if err := applyOp(g, r, op); err != nil {
			return nil, fmt.Errorf("op %d (%s): %w", i, op.Op, err)
		}
	}
	return r, nil
}

func applyOp(g *neograph.Graph, r refs, op fixtureOp) error {
	switch op.Op {
	case "insert":
		id, err := g.Insert(op.Type, op.Props)
		if err != nil {
			return err
		}
		if op.Ref != "" {
			r[op.Ref] = id
		}
		return nil
	case "update":
		id, err := r.resolve(op.Id)
		if err != nil {
			return err
		}
		return g.Update(id, op.Props)
	case "delete":
		id, err := r.resolve(op.Id)
		if err != nil {
			return err
		}
		return g.Delete(id)
	case "link", "unlink":
		src, err := r.resolve(op.Src)
		if err != nil {
			return err
		}
		tgt, err := r.resolve(op.Target)
		if err != nil {
			return err
		}
		if op.Op == "link" {
			return g.Link(src, op.Edge, tgt)
		}
		return g.Unlink(src, op.Edge, tgt)
	default:
		return fmt.Errorf("unknown op %q", op.Op)
	}
}
