package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dd0wney/saga-graph/pkg/render"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		output string
		format string
		save   bool
	)
	cmd := &cobra.Command{
		Use:   "render GRAPH_ID",
		Short: "Lay out a graph and write it as SVG or PNG",
		Example: `  sagagraph render 42 -o saga.svg
  sagagraph render 42 --file graph.json --layout radial -o saga.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = formatFromPath(output)
			}
			if _, _, err := render.ParseFormat(format); err != nil {
				return err
			}

			o, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer o.Close()

			if save {
				if err := o.session.SaveLayout(cmd.Context()); err != nil {
					return fmt.Errorf("save layout: %w", err)
				}
			}

			var w io.Writer = os.Stdout
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			bw := bufio.NewWriter(w)
			mode, err := o.session.Render(bw, format)
			if err != nil {
				return err
			}
			if err := bw.Flush(); err != nil {
				return err
			}

			if output != "" && output != "-" {
				st := o.session.Status()
				good.Fprintf(cmd.ErrOrStderr(), "wrote %s ", output)
				subtle.Fprintf(cmd.ErrOrStderr(), "(%s, %s layout, %d nodes, %d edges)\n", mode, st.Layout, st.Nodes, st.Edges)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().StringVar(&format, "format", "", "svg or png; taken from the output extension when empty")
	cmd.Flags().BoolVar(&save, "save", false, "persist the settled layout to the layout store")
	return cmd
}

// formatFromPath picks the render format from a file extension. Unknown
// extensions leave the choice to the node count.
func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return "svg"
	case ".png":
		return "png"
	}
	return ""
}
