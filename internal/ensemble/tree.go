// Package ensemble models the structural metadata of the random-forest classifier:
// one owned, acyclic tree per ensemble member, reachable only from its root.
package ensemble

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrArity reports a decision node without exactly two children.
var ErrArity = errors.New("decision node must have exactly two children")

// Node is either a leaf (no children) or a decision (children[0] when the
// condition holds, children[1] otherwise).
type Node struct {
	Label    string
	Children []*Node
}

// Leaf returns a terminal node.
func Leaf(label string) *Node {
	return &Node{Label: label}
}

// Decision returns a node that branches to t when its condition holds and to f otherwise.
func Decision(label string, t, f *Node) *Node {
	return &Node{Label: label, Children: []*Node{t, f}}
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Branches returns the true and false children of a decision node.
func (n *Node) Branches() (t, f *Node, err error) {
	if len(n.Children) != 2 || n.Children[0] == nil || n.Children[1] == nil {
		return nil, nil, &ArityError{Label: n.Label, Children: len(n.Children)}
	}
	return n.Children[0], n.Children[1], nil
}

// ArityError carries the offending node of a structural violation.
type ArityError struct {
	Label    string
	Children int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("node %q has %d children: %v", e.Label, e.Children, ErrArity)
}

func (e *ArityError) Is(target error) bool {
	return target == ErrArity
}

// Stats counts the nodes of a well-formed subtree.
type Stats struct {
	Nodes     int
	Decisions int
	Leaves    int
	Depth     int
}

// Stats walks the subtree rooted at n.
func (n *Node) Stats() (Stats, error) {
	if n.IsLeaf() {
		return Stats{Nodes: 1, Leaves: 1, Depth: 1}, nil
	}
	t, f, err := n.Branches()
	if err != nil {
		return Stats{}, err
	}
	ts, err := t.Stats()
	if err != nil {
		return Stats{}, err
	}
	fs, err := f.Stats()
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Nodes:     1 + ts.Nodes + fs.Nodes,
		Decisions: 1 + ts.Decisions + fs.Decisions,
		Leaves:    ts.Leaves + fs.Leaves,
		Depth:     1 + max(ts.Depth, fs.Depth),
	}, nil
}

// Validate checks the zero-or-two children invariant on every node.
func (n *Node) Validate() error {
	_, err := n.Stats()
	return err
}

type wireNode struct {
	Name     string  `json:"name"`
	Children []*Node `json:"children,omitempty"`
}

// UnmarshalJSON decodes {"name": ..., "children": [...]}. Arity is not checked here
// so that one malformed tree cannot hide the rest of the ensemble.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	n.Label = w.Name
	n.Children = w.Children
	return nil
}

// MarshalJSON encodes the node in the same wire form it is decoded from.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireNode{Name: n.Label, Children: n.Children})
}
