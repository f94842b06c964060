package cli

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/lazypower/forgeone/internal/server"
)

// Set via -ldflags at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := Build()
		if versionJSON {
			return printJSON(cmd.OutOrStdout(), info)
		}
		printVersion(cmd.OutOrStdout(), info)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Print build info as JSON")
}

// Build reports the binary's build info. Values not stamped through
// -ldflags fall back to what the Go toolchain embedded.
func Build() server.BuildInfo {
	return buildInfo(debug.ReadBuildInfo)
}

func buildInfo(read func() (*debug.BuildInfo, bool)) server.BuildInfo {
	info := server.BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
	}
	bi, ok := read()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch {
		case s.Key == "vcs.revision" && info.Commit == "unknown":
			info.Commit = s.Value
		case s.Key == "vcs.time" && info.BuildDate == "unknown":
			info.BuildDate = s.Value
		case s.Key == "vcs.modified" && s.Value == "true":
			info.Dirty = true
		}
	}
	if bi.GoVersion != "" {
		info.GoVersion = bi.GoVersion
	}
	return info
}

func printVersion(w io.Writer, info server.BuildInfo) {
	commit := info.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if info.Dirty {
		commit += "-dirty"
	}
	fmt.Fprintf(w, "forgeone %s (commit: %s, built: %s, %s)\n", info.Version, commit, info.BuildDate, info.GoVersion)
}
