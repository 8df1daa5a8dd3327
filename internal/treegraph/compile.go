// Package treegraph renders ensemble trees as Mermaid flowchart descriptions.
package treegraph

import (
	"fmt"
	"strings"

	"learnstyle/internal/ensemble"
)

// RootID is the identifier given to the root node of a compiled tree.
const RootID = "n0"

// Header opens every flowchart description.
const Header = "graph TD\n"

var quoteEscaper = strings.NewReplacer(`"`, "#quot;")

// Escape makes label safe inside a quoted Mermaid node text.
func Escape(label string) string {
	return quoteEscaper.Replace(label)
}

// Compile renders the subtree rooted at node, naming it id. Decision children are
// named id_L (condition true) and id_R (condition false).
func Compile(node *ensemble.Node, id string) (string, error) {
	var b strings.Builder
	if err := compile(&b, node, id); err != nil {
		return "", err
	}
	return b.String(), nil
}

// CompileTree renders a whole ensemble member, header included.
func CompileTree(t ensemble.Tree) (string, error) {
	body, err := Compile(t.Structure, RootID)
	if err != nil {
		return "", fmt.Errorf("tree %d: %w", t.Index, err)
	}
	return Header + body, nil
}

func compile(b *strings.Builder, node *ensemble.Node, id string) error {
	if node == nil {
		return fmt.Errorf("node %s: missing: %w", id, ensemble.ErrArity)
	}
	if node.IsLeaf() {
		fmt.Fprintf(b, "%s[\"%s\"]\n", id, Escape(node.Label))
		return nil
	}
	t, f, err := node.Branches()
	if err != nil {
		return fmt.Errorf("node %s: %w", id, err)
	}

	left, right := id+"_L", id+"_R"
	fmt.Fprintf(b, "%s(\"%s\")\n", id, Escape(node.Label))
	fmt.Fprintf(b, "%s -- \"True\" --> %s\n", id, left)
	fmt.Fprintf(b, "%s -- \"False\" --> %s\n", id, right)

	if err := compile(b, t, left); err != nil {
		return err
	}
	return compile(b, f, right)
}
