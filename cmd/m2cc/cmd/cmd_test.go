package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestVersionCommand(t *testing.T) {
	require.NoError(t, execute(t, "version"))
}

func TestVersionCommandRejectsInvalidMinToolchain(t *testing.T) {
	err := execute(t, "version", "--min-toolchain", "not-a-semver")
	assert.Error(t, err)
}

func TestVersionCommandAcceptsSatisfiedMinToolchain(t *testing.T) {
	require.NoError(t, execute(t, "version", "--min-toolchain", "10.0.0"))
}

func TestLexCommandWithInlineExpression(t *testing.T) {
	require.NoError(t, execute(t, "lex", "-e", "x = 1 + 2"))
}

func TestLexCommandReportsIllegalTokens(t *testing.T) {
	err := execute(t, "lex", "--only-errors", "-e", "x = #")
	assert.Error(t, err)
}

func TestParseCommandWithInlineExpression(t *testing.T) {
	require.NoError(t, execute(t, "parse", "-e", "1 + 2"))
}

func TestParseCommandReportsParseErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.m")
	require.NoError(t, os.WriteFile(path, []byte("x = ;\n"), 0o644))
	err := execute(t, "parse", path)
	assert.Error(t, err)
}

func TestTranslateCommandWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.m")
	require.NoError(t, os.WriteFile(src, []byte("x = 1 + 2;\n"), 0o644))

	require.NoError(t, execute(t, "translate", src))

	base := src[:len(src)-len(filepath.Ext(src))]
	_, err := os.Stat(base + ".cpp")
	require.NoError(t, err)
	_, err = os.Stat(base + "_entry.cpp")
	require.NoError(t, err)
}

func TestTranslateCommandReportsTranslationFailure(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.m")
	require.NoError(t, os.WriteFile(src, []byte("x = ;\n"), 0o644))

	err := execute(t, "translate", src)
	assert.Error(t, err)
}

func TestTranslateCommandRequiresInputOrGlob(t *testing.T) {
	err := execute(t, "translate")
	assert.Error(t, err)
}

func TestHighlightCommandWithSourceFlag(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "prog.m")
	require.NoError(t, os.WriteFile(src, []byte("x = 1 + 2;\n"), 0o644))

	require.NoError(t, execute(t, "highlight", "--source", src))
}
