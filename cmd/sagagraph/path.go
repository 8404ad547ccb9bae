package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/saga-graph/pkg/interaction"
)

func newPathCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path GRAPH_ID FROM TO",
		Short: "Find the shortest relationship path between two entities",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer o.Close()

			path, ok, err := o.session.FindPath(cmd.Context(), args[1], args[2])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ok {
				warn.Fprintln(out, interaction.NoPathMessage)
				return nil
			}

			g := o.session.Graph()
			labels := make([]string, len(path))
			for i, id := range path {
				labels[i] = id
				if n, found := g.Node(id); found && n.Label != id {
					labels[i] = fmt.Sprintf("%s (%s)", n.Label, id)
				}
			}
			fmt.Fprintln(out, strings.Join(labels, subtle.Sprint(" → ")))
			good.Fprintf(out, "%d hops\n", len(path)-1)
			return nil
		},
	}
}
