package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mqtt-tools/hivemq-tui/internal/hivemq"
)

// NewResourcesCommand creates the resources command
func NewResourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List the resource types that can be browsed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeCatalogue(cmd.OutOrStdout(), hivemq.Resources())
		},
	}
}

func writeCatalogue(w io.Writer, resources []hivemq.Resource) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPATH\tFILTER PATH\tOPERATIONS")
	for _, r := range resources {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, r.Path, r.FilterPath, operations(r))
	}
	return tw.Flush()
}

// operations renders the capabilities of r, e.g. "list,get,create".
func operations(r hivemq.Resource) string {
	ops := []string{"list"}
	for _, op := range []struct {
		name string
		ok   bool
	}{
		{"get", r.Get},
		{"create", r.Create},
		{"update", r.Update},
		{"delete", r.Delete},
	} {
		if op.ok {
			ops = append(ops, op.name)
		}
	}
	return strings.Join(ops, ",")
}
