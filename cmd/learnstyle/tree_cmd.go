package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"learnstyle/internal/render"
	"learnstyle/internal/treegraph"
)

type treeCmdConfig struct {
	*rootCmdConfig
	index  int
	list   bool
	outDir string
}

func treeCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &treeCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show one decision tree of the ensemble",
		Long:  `Fetch the ensemble structure and print the Mermaid flowchart of one tree, or list the available trees`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.run(cmd)
		},
	}
	cmd.Flags().IntVarP(&(config.index), "index", "i", -1, "tree_index of the tree to show (defaults to the first tree)")
	cmd.Flags().BoolVarP(&(config.list), "list", "l", false, "list the trees instead of showing one")
	cmd.Flags().StringVarP(&(config.outDir), "out", "o", "", "also write the graph to this directory")
	return cmd
}

func (tcc *treeCmdConfig) run(cmd *cobra.Command) error {
	meta, err := tcc.client().TreeData(cmd.Context())
	if err != nil {
		return fmt.Errorf("fetch tree data: %w", err)
	}

	if tcc.list {
		for _, t := range meta.Trees() {
			fmt.Fprintf(tcc.out, "Tree #%d\t(tree_index %d)\n", t.Index+1, t.Index)
		}
		return nil
	}

	index := tcc.index
	if index < 0 {
		first, ok := meta.First()
		if !ok {
			return fmt.Errorf("the ensemble has no trees")
		}
		index = first.Index
	}
	t, ok := meta.Tree(index)
	if !ok {
		return fmt.Errorf("tree %d not found among %d trees", index, meta.Len())
	}
	graph, err := treegraph.CompileTree(t)
	if err != nil {
		return err
	}
	fmt.Fprint(tcc.out, graph)

	if tcc.outDir != "" {
		surface, err := render.NewDirSurface(tcc.outDir)
		if err != nil {
			return err
		}
		a := render.TreeGraph(index, graph)
		if err := surface.Draw(a); err != nil {
			return err
		}
		fmt.Fprintf(tcc.out, "%%%% written to %s\n", surface.Path(a))
	}
	return nil
}
