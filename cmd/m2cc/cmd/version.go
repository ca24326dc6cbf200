package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
)

var minToolchain string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display detailed version information including commit hash and build date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("m2cc version %s\n", Version)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		fmt.Printf("Build Date: %s\n", BuildDate)
		fmt.Printf("Target C++ toolchain: %s\n", EmbeddedToolchainVersion)

		if minToolchain != "" {
			v := minToolchain
			if v[0] != 'v' {
				v = "v" + v
			}
			if !semver.IsValid(v) {
				return fmt.Errorf("invalid --min-toolchain semver: %s", minToolchain)
			}
			target := EmbeddedToolchainVersion
			if target[0] != 'v' {
				target = "v" + target
			}
			if semver.Compare(target, v) < 0 {
				return fmt.Errorf("embedded toolchain %s is older than required minimum %s", EmbeddedToolchainVersion, minToolchain)
			}
		}
		return nil
	},
}

// EmbeddedToolchainVersion identifies the C++ toolchain the emitted code
// targets. It is reported by `version` and checked by --min-toolchain; it
// is not written into the generated files.
const EmbeddedToolchainVersion = "17.0.0"

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().StringVar(&minToolchain, "min-toolchain", "", "fail if the embedded toolchain version is older than this semver")
}
