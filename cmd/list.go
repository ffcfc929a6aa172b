package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/mqtt-tools/hivemq-tui/internal/browser"
	"github.com/mqtt-tools/hivemq-tui/internal/hivemq"
	"github.com/mqtt-tools/hivemq-tui/internal/resource"
	"github.com/mqtt-tools/hivemq-tui/pkg/logger"
)

const (
	outputIDs  = "ids"
	outputJSON = "json"
	outputYAML = "yaml"
)

// ListFlags contains flags for the list command
type ListFlags struct {
	Resource   string
	Filter     string
	FilterPath string // overrides the resource's default filter path
	Output     string
}

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "Print every item of a resource collection",
		Long: `Load a whole resource collection, following pagination cursors, optionally
filter it and print the result.

Examples:
  # Print every data policy as JSON
  hivemq-tui list data-policies

  # Ids of the clients whose id contains "sensor"
  hivemq-tui list clients --filter sensor -o ids

  # Behavior policies matching a client id regex, as YAML
  hivemq-tui list behavior-policies --regex --filter '^device-' -o yaml`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: hivemq.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := &ListFlags{
				Resource:   args[0],
				Filter:     getStringFlag(cmd, "filter"),
				FilterPath: getStringFlag(cmd, "filter-path"),
				Output:     getStringFlag(cmd, "output"),
			}
			return runListCommand(cmd, flags, cmd.OutOrStdout())
		},
	}

	cmd.Flags().String("filter", "", "Only print items whose filter path value matches")
	cmd.Flags().String("filter-path", "", "Document path the filter applies to (default depends on the resource)")
	cmd.Flags().StringP("output", "o", outputJSON, "Output format: json, yaml or ids")

	return cmd
}

// runListCommand executes the list command
func runListCommand(cmd *cobra.Command, flags *ListFlags, out io.Writer) error {
	r, ok := hivemq.Lookup(flags.Resource)
	if !ok {
		return unknownResource(flags.Resource)
	}
	switch flags.Output {
	case outputIDs, outputJSON, outputYAML:
	default:
		return fmt.Errorf("unsupported output format %q (use json, yaml or ids)", flags.Output)
	}

	s, err := openSession(cmd, os.Stderr)
	if err != nil {
		return err
	}
	defer s.Close()

	var opts []browser.Option
	if flags.FilterPath != "" {
		opts = append(opts, browser.WithFilterPath(flags.FilterPath))
	}
	ctrl, err := s.controller(r, opts...)
	if err != nil {
		return err
	}

	ctx := logger.WithFields(cmd.Context(), logger.Fields{"resource": r.Name})
	s.log.Debug(ctx, "Listing collection", logger.Fields{
		"endpoint": s.client.Endpoint(),
		"filter":   flags.Filter,
	})

	items, err := collectItems(ctx, ctrl, flags.Filter)
	if err != nil {
		return err
	}
	s.log.Debug(ctx, "Listed collection", logger.Fields{"items": len(items)})
	return writeItems(out, items, flags.Output)
}

// collectItems loads the controller's collection, applies filter when it
// is not empty and returns the visible items in display order.
func collectItems(ctx context.Context, ctrl *browser.Controller, filter string) ([]resource.Item, error) {
	ctx, cancel := context.WithCancel(ctx)
	loop := browser.NewLoop(ctrl, 0)
	defer func() {
		cancel()
		loop.Wait()
	}()

	if !loop.Post(ctx, browser.LoadAllItems{}) {
		return nil, ctx.Err()
	}

	var (
		final   browser.LoadingState
		pending = -1 // filter actions still to be handled
	)
	err := loop.Run(ctx, func(st browser.LoadingState, _ browser.Effects) bool {
		switch st.(type) {
		case browser.Errored:
			final = st
			return true
		case browser.Loading:
			return false
		}
		if pending < 0 {
			if filter == "" {
				final = st
				return true
			}
			pending = 3
			loop.Post(ctx, browser.Filter{})
			loop.Post(ctx, browser.SetFilterInput{Text: filter})
			loop.Post(ctx, browser.ConfirmPopup{})
			return false
		}
		pending--
		if pending == 0 {
			final = st
			return true
		}
		return false
	})
	if err != nil {
		return nil, err
	}

	switch st := final.(type) {
	case browser.Errored:
		return nil, fmt.Errorf("failed to load %s: %s", ctrl.Name(), st.Message)
	case browser.Loaded:
		if p, ok := st.View.Popup.(browser.ErrorPopup); ok {
			return nil, fmt.Errorf("%s: %s", strings.ToLower(p.Title), p.Message)
		}
		items := make([]resource.Item, 0, len(st.View.IDs))
		for _, id := range st.View.IDs {
			it, ok, err := ctrl.Item(id)
			if err != nil {
				return nil, err
			}
			if ok {
				items = append(items, it)
			}
		}
		return items, nil
	}
	return nil, fmt.Errorf("unexpected state %T", final)
}

func writeItems(w io.Writer, items []resource.Item, format string) error {
	if format == outputIDs {
		for _, it := range items {
			if _, err := fmt.Fprintln(w, it.ID); err != nil {
				return err
			}
		}
		return nil
	}

	docs := make([]json.RawMessage, 0, len(items))
	for _, it := range items {
		docs = append(docs, it.Document)
	}
	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	if format == outputYAML {
		if data, err = yaml.JSONToYAML(data); err != nil {
			return fmt.Errorf("encode items: %w", err)
		}
	} else {
		data = append(data, '\n')
	}
	_, err = w.Write(data)
	return err
}

func unknownResource(name string) error {
	return fmt.Errorf("unknown resource %q (available: %s)", name, strings.Join(hivemq.Names(), ", "))
}
