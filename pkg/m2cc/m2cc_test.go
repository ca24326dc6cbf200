package m2cc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateEmitsBothArtifacts(t *testing.T) {
	res, err := Translate("x = 1 + 2;\n")
	require.NoError(t, err)
	assert.Contains(t, res.StandaloneProgram, "int main(")
	assert.Contains(t, res.EmbeddableEntry, `extern "C" Value`)
	assert.Empty(t, res.Diagnostics)
}

func TestTranslateWithMathematicalNotation(t *testing.T) {
	res, err := Translate("m = [1 2 3];\ny = m + 1;\n", WithMathematicalNotation(true))
	require.NoError(t, err)
	assert.NotEmpty(t, res.StandaloneProgram)
}

func TestTranslateWithEntryPointName(t *testing.T) {
	res, err := Translate("x = 1;\n", WithEntryPointName("my_unit"))
	require.NoError(t, err)
	assert.Contains(t, res.EmbeddableEntry, `"my_unit"`)
}

func TestTranslateWithWriteToWorkspace(t *testing.T) {
	res, err := Translate("x = 1;\ny = 2;\n", WithWriteToWorkspace(true))
	require.NoError(t, err)
	assert.Contains(t, res.EmbeddableEntry, `workspace.set("x", x)`)
	assert.Contains(t, res.EmbeddableEntry, `workspace.set("y", y)`)
}

func TestTranslateOmitsWorkspaceWritesByDefault(t *testing.T) {
	res, err := Translate("x = 1;\n")
	require.NoError(t, err)
	assert.NotContains(t, res.EmbeddableEntry, "workspace.set(")
}

func TestTranslateReturnsParseErrors(t *testing.T) {
	res, err := Translate("x = ;\n")
	require.Error(t, err)
	require.NotEmpty(t, res.Diagnostics)
	assert.Empty(t, res.StandaloneProgram)
}

func TestTranslateReturnsShapeErrors(t *testing.T) {
	res, err := Translate("a = [1 2 3];\nb = [1 2 3];\nc = a * b;\n")
	require.Error(t, err)
	require.NotEmpty(t, res.Diagnostics)
}

func TestTranslateCapturesDocComment(t *testing.T) {
	res, err := Translate("% A short description.\nx = 1;\n")
	require.NoError(t, err)
	assert.NotEmpty(t, res.DocComment)
}

func TestLoadProjectConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m2cc.yaml")
	contents := []byte("output:\n  program: out.cpp\n  entry: entry.cpp\nmathematical_notation: true\ndisallow_resizing: true\nwrite_to_workspace: true\n")
	require.NoError(t, os.WriteFile(path, contents, 0o644))

	cfg, err := LoadProjectConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "out.cpp", cfg.Output.Program)
	assert.Equal(t, "entry.cpp", cfg.Output.Entry)
	assert.True(t, cfg.MathematicalNotation)
	assert.True(t, cfg.DisallowResizing)
	assert.True(t, cfg.WriteToWorkspace)
}

func TestLoadProjectConfigMissingFile(t *testing.T) {
	_, err := LoadProjectConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestProjectConfigAsOptions(t *testing.T) {
	cfg := &ProjectConfig{}
	cfg.MathematicalNotation = true
	cfg.DisallowResizing = true
	cfg.WriteToWorkspace = false

	o := &Options{}
	for _, apply := range cfg.AsOptions() {
		apply(o)
	}
	assert.True(t, o.MathematicalNotation)
	assert.True(t, o.DisallowResizing)
	assert.False(t, o.WriteToWorkspace)
}
