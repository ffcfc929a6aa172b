package cmd

import (
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mqtt-tools/hivemq-tui/internal/hivemq"
	"github.com/mqtt-tools/hivemq-tui/internal/tui"
	"github.com/mqtt-tools/hivemq-tui/pkg/logger"
)

// NewTUICommand creates the `tui` subcommand for hivemq-tui.
func NewTUICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui [resource...]",
		Short: "Launch interactive terminal UI",
		Long: `Launch an interactive terminal UI to browse HiveMQ resources, one tab per
resource type, with filtering, create, edit, delete and copy actions.

Without arguments every resource type gets a tab. Logs are discarded unless
--log-file is set.`,
		Args:      cobra.OnlyValidArgs,
		ValidArgs: hivemq.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUICommand(cmd, args)
		},
	}
	return cmd
}

func runTUICommand(cmd *cobra.Command, names []string) error {
	s, err := openSession(cmd, io.Discard)
	if err != nil {
		return err
	}
	defer s.Close()

	resources, err := selectResources(names)
	if err != nil {
		return err
	}
	tabs := make([]tui.Tab, 0, len(resources))
	for _, r := range resources {
		ctrl, err := s.controller(r)
		if err != nil {
			return err
		}
		tabs = append(tabs, tui.Tab{Title: r.Title, Controller: ctrl})
	}

	ctx := cmd.Context()
	s.log.Info(ctx, "Starting TUI", logger.Fields{
		"endpoint":  s.client.Endpoint(),
		"resources": len(tabs),
		"cache":     s.cfg.Cache.Backend,
	})

	m := tui.New(tabs, tui.Options{Context: ctx, Endpoint: s.client.Endpoint(), Logger: s.log})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

// selectResources resolves resource names, keeping catalogue order when
// names is empty.
func selectResources(names []string) ([]hivemq.Resource, error) {
	if len(names) == 0 {
		return hivemq.Resources(), nil
	}
	out := make([]hivemq.Resource, 0, len(names))
	for _, name := range names {
		r, ok := hivemq.Lookup(name)
		if !ok {
			return nil, unknownResource(name)
		}
		out = append(out, r)
	}
	return out, nil
}
