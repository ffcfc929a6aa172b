package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

// Version information, set at build time:
//
//	go build -ldflags="-X github.com/mqtt-tools/hivemq-tui/cmd.Version=1.2.3 \
//	                   -X github.com/mqtt-tools/hivemq-tui/cmd.Commit=abc123 \
//	                   -X github.com/mqtt-tools/hivemq-tui/cmd.Date=2024-01-01T10:00:00Z" \
//	  ./cmd/hivemq-tui
var (
	Version   = "dev"
	Commit    = "unknown"
	Date      = "unknown"
	Tag       = "none"
	GoVersion = runtime.Version() // not set via ldflags
)

type buildInfo struct {
	Version   string `json:"version"`
	Tag       string `json:"tag,omitempty"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func currentBuild() buildInfo {
	info := buildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if Tag != "none" {
		info.Tag = Tag
	}
	return info
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version, build information, and runtime details for hivemq-tui.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeVersion(cmd.OutOrStdout(), currentBuild(), getStringFlag(cmd, "output"))
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output format: yaml (default is plain text)")
	return cmd
}

func writeVersion(w io.Writer, info buildInfo, format string) error {
	switch format {
	case "":
	case outputYAML:
		data, err := yaml.Marshal(info)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}

	fmt.Fprintf(w, "%s version %s\n", appName, info.Version)
	if info.Tag != "" {
		fmt.Fprintf(w, "Git tag: %s\n", info.Tag)
	}
	fmt.Fprintf(w, "Git commit: %s\n", info.Commit)
	fmt.Fprintf(w, "Built: %s\n", info.Date)
	fmt.Fprintf(w, "Go version: %s\n", info.GoVersion)
	fmt.Fprintf(w, "OS/Arch: %s\n", info.Platform)
	return nil
}
