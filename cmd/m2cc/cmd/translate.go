package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kvance/go-m2cc/internal/diag"
	"github.com/kvance/go-m2cc/pkg/m2cc"
)

var (
	outProgram           string
	outEntry             string
	entryPointName       string
	mathematicalNotation bool
	disallowResizing     bool
	writeToWorkspace     bool
	translateGlob        string
	translateJSON        bool
)

var translateCmd = &cobra.Command{
	Use:   "translate [file]",
	Short: "Translate a source file into C++17",
	Long: `Translate runs the full pipeline over a source file and writes two
artifacts: a standalone C++17 program and an embeddable host-extension
entry point. When the source carries a leading doc comment, a help
sidecar file is also written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTranslate,
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringVarP(&outProgram, "out", "o", "", "output path for the standalone program (default: <input>.cpp)")
	translateCmd.Flags().StringVar(&outEntry, "entry-out", "", "output path for the embeddable entry point (default: <input>_entry.cpp)")
	translateCmd.Flags().StringVar(&entryPointName, "entry-name", "", "name registered for the embeddable entry point")
	translateCmd.Flags().BoolVar(&mathematicalNotation, "mathematical-notation", false, "use strict (non-broadcasting) addition/subtraction shape rules")
	translateCmd.Flags().BoolVar(&disallowResizing, "disallow-resizing", false, "forbid reassigning a variable with a shape different from its first assignment")
	translateCmd.Flags().BoolVar(&writeToWorkspace, "write-to-workspace", false, "re-export top-level variables from the embeddable entry point")
	translateCmd.Flags().StringVar(&translateGlob, "glob", "", "translate every file matching this glob instead of a single input")
	translateCmd.Flags().BoolVar(&translateJSON, "json", false, "emit diagnostics as JSON records instead of formatted text")
}

func runTranslate(cmd *cobra.Command, args []string) error {
	if translateGlob != "" {
		matches, err := filepath.Glob(translateGlob)
		if err != nil {
			return fmt.Errorf("invalid --glob pattern: %w", err)
		}
		for _, path := range matches {
			if err := translateOne(path, ""); err != nil {
				return err
			}
		}
		return nil
	}

	if len(args) != 1 {
		return fmt.Errorf("expected exactly one input file, or use --glob")
	}
	return translateOne(args[0], outProgram)
}

func translateOne(path, programOut string) error {
	slog.Debug("translating", "file", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	base := strings.TrimSuffix(path, filepath.Ext(path))
	if programOut == "" {
		programOut = base + ".cpp"
	}
	entryOut := outEntry
	if entryOut == "" {
		entryOut = base + "_entry.cpp"
	}
	name := entryPointName
	if name == "" {
		name = filepath.Base(base)
	}

	result, err := m2cc.Translate(string(data),
		m2cc.WithFileName(path),
		m2cc.WithMathematicalNotation(mathematicalNotation),
		m2cc.WithDisallowResizing(disallowResizing),
		m2cc.WithWriteToWorkspace(writeToWorkspace),
		m2cc.WithEntryPointName(name),
	)
	if err != nil {
		reportDiagnostics(result, path)
		return fmt.Errorf("translation of %s failed: %w", path, err)
	}

	if err := os.WriteFile(programOut, []byte(result.StandaloneProgram), 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(entryOut, []byte(result.EmbeddableEntry), 0o644); err != nil {
		return err
	}
	if result.DocComment != "" {
		helpOut := base + ".help.txt"
		if err := os.WriteFile(helpOut, []byte(result.DocComment), 0o644); err != nil {
			return err
		}
		slog.Debug("wrote help sidecar", "path", helpOut)
	}

	fmt.Printf("%s -> %s, %s\n", path, programOut, entryOut)
	return nil
}

type jsonDiagnostic struct {
	Stage   string `json:"stage"`
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func reportDiagnostics(result *m2cc.Result, path string) {
	if result == nil {
		return
	}
	if translateJSON {
		var records []jsonDiagnostic
		for _, d := range result.Diagnostics {
			if sd, ok := d.(diag.Diagnostic); ok {
				u := sd.Underlying()
				records = append(records, jsonDiagnostic{Stage: string(sd.StageName()), Line: u.Pos.Line, Message: u.Message})
			} else {
				records = append(records, jsonDiagnostic{Stage: "Parser", Message: d.Error()})
			}
		}
		enc := json.NewEncoder(os.Stderr)
		enc.SetIndent("", "  ")
		enc.Encode(records)
		return
	}
	for _, d := range result.Diagnostics {
		fmt.Fprintf(os.Stderr, "%s: %s\n", path, d.Error())
	}
}
