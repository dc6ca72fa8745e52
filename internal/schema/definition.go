// SPDX-License-Identifier: MIT

package schema

import (
	"bufio"
	"io"
	"strings"

	"git.lukeshu.com/go/lowmemjson"

	"github.com/Aetherall/neograph-sub003/internal/ids"
)

// Definition is the schema-as-data shape from spec §6: accepted
// either as a Go value built up by hand (tests, embedders who already
// have the shape in memory) or decoded from JSON text via
// DecodeDefinitionJSON. Field names and JSON tags match the spec's
// wire shape exactly: {"types": [...]}.
type Definition struct {
	Types []TypeDefinition `json:"types"`
}

type TypeDefinition struct {
	Name       string                 `json:"name"`
	Properties []PropertyDefinition   `json:"properties"`
	Edges      []EdgeDefinition       `json:"edges"`
	Indexes    []IndexDefinition      `json:"indexes"`
	Rollups    []RollupDefinition     `json:"rollups,omitempty"`
}

type PropertyDefinition struct {
	Name string `json:"name"`
	Type string `json:"type"` // "string"|"int"|"number"|"bool"
}

type EdgeDefinition struct {
	Name    string `json:"name"`
	Target  string `json:"target"`
	Reverse string `json:"reverse"`
}

type IndexFieldDefinition struct {
	Name      string `json:"name"`
	Direction string `json:"direction,omitempty"` // "asc" (default) | "desc"
}

type IndexDefinition struct {
	Fields []IndexFieldDefinition `json:"fields"`
}

type RollupDefinition struct {
	Name  string `json:"name"`
	Kind  string `json:"kind"` // "count"|"traverse"|"first"|"last"
	Edge  string `json:"edge"`
	Field string `json:"field,omitempty"` // traverse only
	Index int    `json:"index,omitempty"` // first/last only: index into the target type's Indexes
}

// DecodeDefinitionJSON parses a schema JSON document (the §6 wire
// shape) using the project's lowmemjson codec rather than
// encoding/json, matching how the rest of the engine (de)serializes
// structured data.
func DecodeDefinitionJSON(text string) (Definition, error) {
	var def Definition
	r := bufio.NewReader(strings.NewReader(text))
	if err := lowmemjson.DecodeThenEOF(r, &def); err != nil {
		return Definition{}, errorf("invalid schema JSON: %v", err)
	}
	return def, nil
}

// EncodeDefinitionJSON renders the definition back to the §6 wire shape, e.g.
// so a demo CLI can round-trip a schema it loaded.
func EncodeDefinitionJSON(w io.Writer, def Definition) error {
	return lowmemjson.Encode(w, def)
}

func kindFromString(s string) (ids.Kind, bool) {
	switch s {
	case "string":
		return ids.KindString, true
	case "int":
		return ids.KindInt, true
	case "number":
		return ids.KindNumber, true
	case "bool":
		return ids.KindBool, true
	default:
		return ids.KindNull, false
	}
}

// Compile validates and resolves a Definition into an immutable
// Schema: interns names into small integer ids, resolves each edge's
// target type and pairs it with its declared reverse (failing if the
// reverse is missing per the "every directed edge declares a reverse"
// invariant), validates every index's fields against the owning
// type's (and, for edge-prefixed indexes, the edge's) declarations,
// and builds the reverse maps the index manager and rollup cache use
// for incremental maintenance.
func Compile(def Definition) (*Schema, error) {
	s := &Schema{typeByName: make(map[string]ids.TypeId, len(def.Types))}

	for i, td := range def.Types {
		if td.Name == "" {
			return nil, errorf("type %d: missing name", i)
		}
		if _, dup := s.typeByName[td.Name]; dup {
			return nil, errorf("duplicate type name %q", td.Name)
		}
		s.typeByName[td.Name] = ids.TypeId(i)
	}

	s.types = make([]*Type, len(def.Types))
	for i, td := range def.Types {
		t := &Type{
			Id:                     ids.TypeId(i),
			Name:                   td.Name,
			propertyByName:         make(map[string]ids.PropertyId, len(td.Properties)),
			edgeByName:             make(map[string]ids.EdgeId, len(td.Edges)),
			rollupByName:           make(map[string]ids.RollupId, len(td.Rollups)),
			indexesByProperty:      make(map[ids.PropertyId][]ids.IndexId),
			indexesByEdge:          make(map[ids.EdgeId][]ids.IndexId),
			rollupsByEdge:          make(map[ids.EdgeId][]ids.RollupId),
			rollupsByTraverseField: make(map[ids.PropertyId][]RollupRef),
		}
		for pi, pd := range td.Properties {
			kind, ok := kindFromString(pd.Type)
			if !ok {
				return nil, errorf("type %q property %q: unknown kind %q", td.Name, pd.Name, pd.Type)
			}
			if _, dup := t.propertyByName[pd.Name]; dup {
				return nil, errorf("type %q: duplicate property %q", td.Name, pd.Name)
			}
			id := ids.PropertyId(pi)
			t.propertyByName[pd.Name] = id
			t.Properties = append(t.Properties, Property{Id: id, Name: pd.Name, Kind: kind})
		}
		for ei, ed := range td.Edges {
			if _, dup := t.edgeByName[ed.Name]; dup {
				return nil, errorf("type %q: duplicate edge %q", td.Name, ed.Name)
			}
			targetId, ok := s.typeByName[ed.Target]
			if !ok {
				return nil, errorf("type %q edge %q: unknown target type %q", td.Name, ed.Name, ed.Target)
			}
			id := ids.EdgeId(ei)
			t.edgeByName[ed.Name] = id
			t.Edges = append(t.Edges, Edge{Id: id, Name: ed.Name, TargetType: targetId})
		}
		s.types[i] = t
	}

	// Pair every edge with its declared reverse, now that every
	// type's own edges are registered.
	for ti, td := range def.Types {
		t := s.types[ti]
		for ei, ed := range td.Edges {
			target := s.types[t.Edges[ei].TargetType]
			reverseId, ok := target.edgeByName[ed.Reverse]
			if !ok {
				return nil, errorf("type %q edge %q: reverse edge %q not declared on %q",
					td.Name, ed.Name, ed.Reverse, target.Name)
			}
			reverse := target.Edges[reverseId]
			if reverse.TargetType != t.Id {
				return nil, errorf("type %q edge %q: reverse edge %q on %q does not point back to %q",
					td.Name, ed.Name, ed.Reverse, target.Name, td.Name)
			}
			t.Edges[ei].ReverseId = reverseId
			target.Edges[reverseId].ReverseId = ids.EdgeId(ei)
		}
	}

	for ti, td := range def.Types {
		t := s.types[ti]
		for xi, xd := range td.Indexes {
			fields, err := compileIndexFields(s, t, xd)
			if err != nil {
				return nil, err
			}
			idxId := ids.IndexId(xi)
			t.Indexes = append(t.Indexes, Index{Id: idxId, Fields: fields})
			for _, f := range fields {
				switch f.Kind {
				case FieldProperty:
					t.indexesByProperty[f.Property] = append(t.indexesByProperty[f.Property], idxId)
				case FieldEdge:
					t.indexesByEdge[f.Edge] = append(t.indexesByEdge[f.Edge], idxId)
				}
			}
		}
	}

	for ti, td := range def.Types {
		t := s.types[ti]
		for ri, rd := range td.Rollups {
			r, err := compileRollup(s, t, rd)
			if err != nil {
				return nil, err
			}
			r.Id = ids.RollupId(ri)
			t.rollupByName[rd.Name] = r.Id
			t.Rollups = append(t.Rollups, r)
			t.rollupsByEdge[r.Edge] = append(t.rollupsByEdge[r.Edge], r.Id)
			if r.Kind == RollupTraverse {
				target := s.types[t.Edges[r.Edge].TargetType]
				ref := RollupRef{Type: t.Id, Rollup: r.Id}
				target.rollupsByTraverseField[r.TraverseField] = append(
					target.rollupsByTraverseField[r.TraverseField], ref)
			}
		}
	}

	return s, nil
}

func compileIndexFields(s *Schema, t *Type, xd IndexDefinition) ([]IndexField, error) {
	if len(xd.Fields) == 0 {
		return nil, errorf("type %q: index has no fields", t.Name)
	}
	fields := make([]IndexField, 0, len(xd.Fields))
	for i, fd := range xd.Fields {
		desc := fd.Direction == "desc"
		if propId, ok := t.propertyByName[fd.Name]; ok {
			fields = append(fields, IndexField{Kind: FieldProperty, Property: propId, Desc: desc})
			continue
		}
		if edgeId, ok := t.edgeByName[fd.Name]; ok {
			if i != 0 {
				return nil, errorf("type %q: index field %q is an edge but not the leading field", t.Name, fd.Name)
			}
			fields = append(fields, IndexField{Kind: FieldEdge, Edge: edgeId, Desc: desc})
			continue
		}
		return nil, errorf("type %q: index field %q is neither a property nor an edge", t.Name, fd.Name)
	}
	return fields, nil
}

func compileRollup(s *Schema, t *Type, rd RollupDefinition) (Rollup, error) {
	edgeId, ok := t.edgeByName[rd.Edge]
	if !ok {
		return Rollup{}, errorf("type %q rollup %q: unknown edge %q", t.Name, rd.Name, rd.Edge)
	}
	r := Rollup{Name: rd.Name, Edge: edgeId}
	target := s.types[t.Edges[edgeId].TargetType]
	switch rd.Kind {
	case "count":
		r.Kind = RollupCount
	case "traverse":
		r.Kind = RollupTraverse
		fieldId, ok := target.propertyByName[rd.Field]
		if !ok {
			return Rollup{}, errorf("type %q rollup %q: unknown field %q on %q", t.Name, rd.Name, rd.Field, target.Name)
		}
		r.TraverseField = fieldId
	case "first", "last":
		if rd.Kind == "first" {
			r.Kind = RollupFirst
		} else {
			r.Kind = RollupLast
		}
		if rd.Index < 0 || rd.Index >= len(target.Indexes) {
			return Rollup{}, errorf("type %q rollup %q: index %d out of range on %q", t.Name, rd.Name, rd.Index, target.Name)
		}
		r.ChildIndex = ids.IndexId(rd.Index)
	default:
		return Rollup{}, errorf("type %q rollup %q: unknown kind %q", t.Name, rd.Name, rd.Kind)
	}
	return r, nil
}
