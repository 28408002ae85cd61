package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// ChangeKind classifies an entry of a manifest diff.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeModified ChangeKind = "modified"
)

// Change is one structural difference between two manifest versions.
// Path uses ids, not indexes, for nodes, edges and state fields
// (e.g. "nodes.fetch.config", "state_schema.user.default"). Edges without an
// id are named by their endpoints and type (e.g. "edges.a->b:default").
type Change struct {
	Path string     `json:"path"`
	Kind ChangeKind `json:"kind"`
	Old  any        `json:"old,omitempty"`
	New  any        `json:"new,omitempty"`
}

// DiffManifests compares the content of two manifests key by key.
// Identity, timestamps and the version record are excluded.
func DiffManifests(a, b *Manifest) []Change {
	var changes []Change

	compare := func(path string, oldVal, newVal any) {
		o, n := normalize(oldVal), normalize(newVal)
		if !reflect.DeepEqual(o, n) {
			changes = append(changes, Change{Path: path, Kind: ChangeModified, Old: o, New: n})
		}
	}

	compare("name", a.Name, b.Name)
	compare("description", a.Description, b.Description)
	compare("tags", a.Tags, b.Tags)
	compare("entry_node_id", a.EntryNodeID, b.EntryNodeID)
	compare("metadata", a.Metadata, b.Metadata)

	// Nodes
	oldNodes := make(map[string]Node, len(a.Nodes))
	for _, n := range a.Nodes {
		oldNodes[n.ID] = n
	}
	newNodes := make(map[string]Node, len(b.Nodes))
	for _, n := range b.Nodes {
		newNodes[n.ID] = n
	}
	for _, on := range a.Nodes {
		nn, ok := newNodes[on.ID]
		if !ok {
			changes = append(changes, Change{Path: "nodes." + on.ID, Kind: ChangeRemoved, Old: normalize(on)})
			continue
		}
		prefix := "nodes." + on.ID + "."
		compare(prefix+"type", on.Type, nn.Type)
		compare(prefix+"label", on.Label, nn.Label)
		compare(prefix+"config", on.Config, nn.Config)
		compare(prefix+"retry_policy", on.RetryPolicy, nn.RetryPolicy)
		compare(prefix+"metadata", on.Metadata, nn.Metadata)
	}
	for _, nn := range b.Nodes {
		if _, ok := oldNodes[nn.ID]; !ok {
			changes = append(changes, Change{Path: "nodes." + nn.ID, Kind: ChangeAdded, New: normalize(nn)})
		}
	}

	// Edges
	oldKeys, newKeys := edgeKeys(a.Edges), edgeKeys(b.Edges)
	oldEdges := make(map[string]Edge, len(a.Edges))
	for i, e := range a.Edges {
		oldEdges[oldKeys[i]] = e
	}
	newEdges := make(map[string]Edge, len(b.Edges))
	for i, e := range b.Edges {
		newEdges[newKeys[i]] = e
	}
	for i, oe := range a.Edges {
		key := oldKeys[i]
		ne, ok := newEdges[key]
		if !ok {
			changes = append(changes, Change{Path: "edges." + key, Kind: ChangeRemoved, Old: normalize(oe)})
			continue
		}
		prefix := "edges." + key + "."
		compare(prefix+"source", oe.Source, ne.Source)
		compare(prefix+"target", oe.Target, ne.Target)
		compare(prefix+"type", oe.Kind(), ne.Kind())
		compare(prefix+"label", oe.Label, ne.Label)
		compare(prefix+"condition", oe.Condition, ne.Condition)
	}
	for i, ne := range b.Edges {
		if _, ok := oldEdges[newKeys[i]]; !ok {
			changes = append(changes, Change{Path: "edges." + newKeys[i], Kind: ChangeAdded, New: normalize(ne)})
		}
	}

	// State schema
	oldFields := make(map[string]StateField, len(a.StateSchema))
	for _, f := range a.StateSchema {
		oldFields[f.Name] = f
	}
	newFields := make(map[string]StateField, len(b.StateSchema))
	for _, f := range b.StateSchema {
		newFields[f.Name] = f
	}
	for _, of := range a.StateSchema {
		nf, ok := newFields[of.Name]
		if !ok {
			changes = append(changes, Change{Path: "state_schema." + of.Name, Kind: ChangeRemoved, Old: normalize(of)})
			continue
		}
		prefix := "state_schema." + of.Name + "."
		compare(prefix+"type", of.Type, nf.Type)
		compare(prefix+"default", of.Default, nf.Default)
		compare(prefix+"description", of.Description, nf.Description)
	}
	for _, nf := range b.StateSchema {
		if _, ok := oldFields[nf.Name]; !ok {
			changes = append(changes, Change{Path: "state_schema." + nf.Name, Kind: ChangeAdded, New: normalize(nf)})
		}
	}

	return changes
}

// edgeKeys identifies edges across versions. An edge is keyed by its id,
// or by "source->target:type" when the id is empty. Keys that still repeat
// get an occurrence suffix ("#2", "#3", ...) in declaration order.
func edgeKeys(edges []Edge) []string {
	keys := make([]string, len(edges))
	seen := make(map[string]int, len(edges))
	for i, e := range edges {
		key := e.ID
		if key == "" {
			key = fmt.Sprintf("%s->%s:%s", e.Source, e.Target, e.Kind())
		}
		seen[key]++
		if n := seen[key]; n > 1 {
			key = fmt.Sprintf("%s#%d", key, n)
		}
		keys[i] = key
	}
	return keys
}

// normalize converts a value to its generic JSON shape so that values which
// travelled through different stores compare equal.
func normalize(v any) any {
	var data []byte
	switch raw := v.(type) {
	case json.RawMessage:
		if len(raw) == 0 {
			return nil
		}
		data = raw
	default:
		var err error
		data, err = json.Marshal(v)
		if err != nil {
			return v
		}
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	switch c := out.(type) {
	case []any:
		if len(c) == 0 {
			return nil
		}
	case map[string]any:
		if len(c) == 0 {
			return nil
		}
	}
	return out
}
