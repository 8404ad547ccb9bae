package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// degreeRank is one row of the centrality table
type degreeRank struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Degree int    `json:"degree"`
}

// analysis is the JSON form of the analyze command
type analysis struct {
	GraphID     string              `json:"graphId"`
	Nodes       int                 `json:"nodes"`
	Edges       int                 `json:"edges"`
	Issues      []string            `json:"issues,omitempty"`
	Centrality  []degreeRank        `json:"centrality"`
	Communities map[string][]string `json:"communities"`
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		top    int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "analyze GRAPH_ID",
		Short: "Report degree centrality, communities and data issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if top < 0 {
				return fmt.Errorf("--top must not be negative, got %d", top)
			}
			o, err := a.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer o.Close()

			s := o.session
			degrees, err := s.Centrality(cmd.Context())
			if err != nil {
				return err
			}
			communities, err := s.Communities(cmd.Context())
			if err != nil {
				return err
			}
			g := s.Graph()
			labels := make(map[string]string, g.Len())
			for _, n := range g.Nodes {
				labels[n.ID] = n.Label
			}

			st := s.Status()
			res := analysis{
				GraphID:     s.GraphID(),
				Nodes:       st.Nodes,
				Edges:       st.Edges,
				Centrality:  rankDegrees(degrees, labels, top),
				Communities: communities,
			}
			for _, issue := range s.Issues() {
				res.Issues = append(res.Issues, issue.String())
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			banner(out, "analysis of graph "+res.GraphID)
			fmt.Fprintf(out, "  Nodes:  %d\n", res.Nodes)
			fmt.Fprintf(out, "  Edges:  %d\n", res.Edges)
			if len(res.Issues) > 0 {
				warn.Fprintf(out, "  Issues: %d\n", len(res.Issues))
				for _, issue := range res.Issues {
					subtle.Fprintf(out, "    %s\n", issue)
				}
			}
			fmt.Fprintln(out)

			rows := make([][]string, 0, len(res.Centrality))
			for i, r := range res.Centrality {
				rows = append(rows, []string{strconv.Itoa(i + 1), r.ID, r.Label, strconv.Itoa(r.Degree)})
			}
			table(out, []string{"#", "ID", "LABEL", "DEGREE"}, rows)
			fmt.Fprintln(out)

			types := make([]string, 0, len(communities))
			for t := range communities {
				types = append(types, t)
			}
			sort.Strings(types)
			rows = rows[:0]
			for _, t := range types {
				members := append([]string(nil), communities[t]...)
				sort.Strings(members)
				rows = append(rows, []string{t, strconv.Itoa(len(members)), strings.Join(members, ", ")})
			}
			table(out, []string{"COMMUNITY", "SIZE", "MEMBERS"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", 10, "number of central entities to list, 0 for all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of tables")
	return cmd
}

// rankDegrees orders nodes by degree, highest first, then by id, and keeps
// the first top entries when top > 0
func rankDegrees(degrees map[string]int, labels map[string]string, top int) []degreeRank {
	ranks := make([]degreeRank, 0, len(degrees))
	for id, d := range degrees {
		ranks = append(ranks, degreeRank{ID: id, Label: labels[id], Degree: d})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Degree != ranks[j].Degree {
			return ranks[i].Degree > ranks[j].Degree
		}
		return ranks[i].ID < ranks[j].ID
	})
	if top > 0 && len(ranks) > top {
		ranks = ranks[:top]
	}
	return ranks
}
