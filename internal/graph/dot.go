package graph

import (
	"bufio"
	"fmt"
	"io"
)

// WriteDOT renders the schema as a Graphviz digraph. Edges point from a
// dependency to the task that needs it and are labelled with the parameter.
// Transient tasks are drawn dashed. Output is stable for a given schema.
func WriteDOT(w io.Writer, s Schema) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "digraph schema {")
	fmt.Fprintln(bw, "\trankdir=LR;")
	fmt.Fprintln(bw, "\tnode [shape=box];")

	names := Names(s)
	for _, name := range names {
		task := s[name]
		style := "solid"
		if !task.Persists() {
			style = "dashed"
		}
		uses := ""
		if task.Uses != nil {
			uses = task.Uses.Name
		}
		fmt.Fprintf(bw, "\t%q [label=%q, style=%s];\n", name, fmt.Sprintf("%s\n%s.%s", name, uses, task.Fn), style)
	}

	for _, name := range names {
		task := s[name]
		for _, param := range task.Params() {
			fmt.Fprintf(bw, "\t%q -> %q [label=%q];\n", task.Needs[param], name, param)
		}
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
