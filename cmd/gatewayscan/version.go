package main

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/nao1215/gatewayscan/internal/detect"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = ""
	commit  = ""
	date    = ""
)

const (
	develVersion = "(devel)"
	unknownValue = "unknown"
	shortCommit  = 7
)

// buildInfo describes the running binary.
type buildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuiltAt   string `json:"builtAt"`
	GoVersion string `json:"goVersion"`
	Signals   int    `json:"signals"`

	SignalNames []string `json:"signalNames"`
}

// currentBuild merges ldflags values with the module build information.
// ldflags win; missing values fall back to VCS stamps.
func currentBuild() buildInfo {
	info := buildInfo{
		Version:   version,
		Commit:    commit,
		BuiltAt:   date,
		GoVersion: runtime.Version(),
		Signals:   detect.DefaultBank().Len(),

		SignalNames: detect.DefaultBank().Names(),
	}

	var settings map[string]string
	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" && bi.Main.Version != "" {
			info.Version = bi.Main.Version
		}
		settings = make(map[string]string, len(bi.Settings))
		for _, s := range bi.Settings {
			settings[s.Key] = s.Value
		}
	}

	if info.Version == "" {
		info.Version = develVersion
	}
	if info.Commit == "" {
		info.Commit = settings["vcs.revision"]
	}
	if len(info.Commit) > shortCommit {
		info.Commit = info.Commit[:shortCommit]
	}
	if info.Commit == "" {
		info.Commit = unknownValue
	}
	if info.BuiltAt == "" {
		info.BuiltAt = settings["vcs.time"]
	}
	if info.BuiltAt == "" {
		info.BuiltAt = unknownValue
	}
	return info
}

// getVersion returns the version string shown by --version.
func getVersion() string {
	return currentBuild().Version
}

func (b buildInfo) writeText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "gatewayscan version %s\n  commit:  %s\n  built:   %s\n  go:      %s\n  signals: %d\n",
		b.Version, b.Commit, b.BuiltAt, b.GoVersion, b.Signals)
	return err
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit, build date, Go version and signal bank size of gatewayscan.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			info := currentBuild()
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(info)
			}
			return info.writeText(cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolP("json", "j", false, "Print build information as JSON")
	return cmd
}
