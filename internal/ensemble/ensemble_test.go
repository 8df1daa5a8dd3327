package ensemble

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const treeData = `[
  {"tree_index": 0, "structure": {"name": "T_image <= 6.5", "children": [
    {"name": "Visual Learner"},
    {"name": "N_msgs_posted <= 120", "children": [
      {"name": "Kinesthetic Learner"},
      {"name": "Auditory Learner"}
    ]}
  ]}},
  {"tree_index": 1, "structure": {"name": "Read/Write Learner"}},
  {"tree_index": 2, "structure": {"name": "broken", "children": [{"name": "only child"}]}}
]`

func TestDecode(t *testing.T) {
	m, err := Decode([]byte(treeData))
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())

	first, ok := m.First()
	require.True(t, ok)
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "T_image <= 6.5", first.Structure.Label)

	s, err := first.Structure.Stats()
	require.NoError(t, err)
	assert.Equal(t, Stats{Nodes: 5, Decisions: 2, Leaves: 3, Depth: 3}, s)

	leaf, ok := m.Tree(1)
	require.True(t, ok)
	assert.True(t, leaf.Structure.IsLeaf())

	_, ok = m.Tree(7)
	assert.False(t, ok)
}

func TestValidateArity(t *testing.T) {
	m, err := Decode([]byte(treeData))
	require.NoError(t, err)

	broken, ok := m.Tree(2)
	require.True(t, ok)
	err = broken.Structure.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrArity))

	var ae *ArityError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "broken", ae.Label)
	assert.Equal(t, 1, ae.Children)
}

func TestBranchesRejectsNilChild(t *testing.T) {
	n := &Node{Label: "x", Children: []*Node{Leaf("a"), nil}}
	_, _, err := n.Branches()
	assert.ErrorIs(t, err, ErrArity)
}

func TestNewMetadataRejectsBadIndices(t *testing.T) {
	tests := []struct {
		name  string
		trees []Tree
	}{
		{"negative index", []Tree{{Index: -1, Structure: Leaf("a")}}},
		{"duplicate index", []Tree{{Index: 0, Structure: Leaf("a")}, {Index: 0, Structure: Leaf("b")}}},
		{"missing structure", []Tree{{Index: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMetadata(tt.trees)
			assert.Error(t, err)
		})
	}
}

func TestNodeJSONRoundTrip(t *testing.T) {
	root := Decision(`say "hi" <= 1`, Leaf("yes"), Leaf("no"))
	data, err := json.Marshal(root)
	require.NoError(t, err)

	var back Node
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, root.Label, back.Label)
	require.Len(t, back.Children, 2)
	assert.Equal(t, "no", back.Children[1].Label)
}

func TestNilMetadata(t *testing.T) {
	var m *Metadata
	assert.Equal(t, 0, m.Len())
	assert.Nil(t, m.Trees())
	_, ok := m.First()
	assert.False(t, ok)
}
