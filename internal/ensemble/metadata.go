package ensemble

import (
	"encoding/json"
	"fmt"
)

// Tree is one ensemble member.
type Tree struct {
	Index     int   `json:"tree_index"`
	Structure *Node `json:"structure"`
}

// Metadata is the read-only collection of ensemble trees, in service order.
type Metadata struct {
	trees   []Tree
	byIndex map[int]int
}

// NewMetadata indexes trees by tree_index. Indices must be non-negative and unique
// and every tree must carry a structure.
func NewMetadata(trees []Tree) (*Metadata, error) {
	m := &Metadata{
		trees:   make([]Tree, len(trees)),
		byIndex: make(map[int]int, len(trees)),
	}
	copy(m.trees, trees)
	for pos, t := range m.trees {
		if t.Index < 0 {
			return nil, fmt.Errorf("tree at position %d has negative index %d", pos, t.Index)
		}
		if t.Structure == nil {
			return nil, fmt.Errorf("tree %d has no structure", t.Index)
		}
		if _, dup := m.byIndex[t.Index]; dup {
			return nil, fmt.Errorf("duplicate tree index %d", t.Index)
		}
		m.byIndex[t.Index] = pos
	}
	return m, nil
}

// Len returns the ensemble size.
func (m *Metadata) Len() int {
	if m == nil {
		return 0
	}
	return len(m.trees)
}

// Tree returns the member with the given tree_index.
func (m *Metadata) Tree(index int) (Tree, bool) {
	if m == nil {
		return Tree{}, false
	}
	pos, ok := m.byIndex[index]
	if !ok {
		return Tree{}, false
	}
	return m.trees[pos], true
}

// Trees returns the members in service order.
func (m *Metadata) Trees() []Tree {
	if m == nil {
		return nil
	}
	out := make([]Tree, len(m.trees))
	copy(out, m.trees)
	return out
}

// First returns the first member in service order.
func (m *Metadata) First() (Tree, bool) {
	if m.Len() == 0 {
		return Tree{}, false
	}
	return m.trees[0], true
}

// Decode parses the GET /tree-data payload.
func Decode(data []byte) (*Metadata, error) {
	var trees []Tree
	if err := json.Unmarshal(data, &trees); err != nil {
		return nil, fmt.Errorf("decode tree data: %w", err)
	}
	return NewMetadata(trees)
}
