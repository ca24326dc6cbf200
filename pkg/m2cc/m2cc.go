// Package m2cc is the embeddable, host-facing engine API: the same
// pipeline the CLI drives, exposed as a plain function call so other Go
// programs can translate source without shelling out to the `m2cc`
// binary. Grounded on the role the teacher's pkg/dwscript package was
// meant to play (a stable boundary between CLI and engine), rebuilt fresh
// since the teacher's version was test-only scaffolding.
package m2cc

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kvance/go-m2cc/internal/emit"
	"github.com/kvance/go-m2cc/internal/lexer"
	"github.com/kvance/go-m2cc/internal/parser"
	"github.com/kvance/go-m2cc/internal/scope"
	"github.com/kvance/go-m2cc/internal/shapeinfer"
	"github.com/kvance/go-m2cc/internal/typeinfer"
)

// Option configures a Translate call using the teacher's functional-option
// pattern (internal/interp/options.go: WithX constructors over a plain
// struct).
type Option func(*Options)

// Options mirrors the CLI's translate subcommand flags (spec.md section 6).
type Options struct {
	MathematicalNotation bool
	DisallowResizing     bool
	WriteToWorkspace     bool
	EntryPointName       string
	File                 string
}

func WithMathematicalNotation(v bool) Option { return func(o *Options) { o.MathematicalNotation = v } }
func WithDisallowResizing(v bool) Option     { return func(o *Options) { o.DisallowResizing = v } }
func WithWriteToWorkspace(v bool) Option     { return func(o *Options) { o.WriteToWorkspace = v } }
func WithEntryPointName(name string) Option  { return func(o *Options) { o.EntryPointName = name } }
func WithFileName(name string) Option        { return func(o *Options) { o.File = name } }

// Result carries the emitted artifacts and the doc comment captured from
// the source, which the CLI writes out as a help sidecar when non-empty.
type Result struct {
	StandaloneProgram string
	EmbeddableEntry   string
	DocComment        string
	Diagnostics       []error
}

// Translate runs the full pipeline — scan, parse, resolve scopes, infer
// shapes, infer types, emit — over source and returns both C++ artifacts,
// or a non-nil error list in Diagnostics on the first fatal stage.
func Translate(source string, opts ...Option) (*Result, error) {
	o := Options{}
	for _, apply := range opts {
		apply(&o)
	}

	p := parser.New(source)
	root := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		diags := make([]error, len(errs))
		for i, e := range errs {
			diags[i] = e
		}
		return &Result{Diagnostics: diags}, fmt.Errorf("parse failed with %d error(s)", len(errs))
	}

	tree := p.Tree()
	ctx := &scope.Context{Source: source, File: o.File}
	mgr := scope.NewManager(scope.Builder{}, scope.Resolver{})
	if err := mgr.RunAll(tree, root, ctx); err != nil {
		return nil, err
	}
	if ctx.HasErrors() {
		return resultFromScopeErrors(ctx), fmt.Errorf("name resolution failed with %d error(s)", len(ctx.Errors))
	}

	shapeinfer.MathematicalNotation = o.MathematicalNotation
	shapeinfer.DisallowResizing = o.DisallowResizing
	shapePass := scope.NewManager(shapeinfer.Pass{})
	if err := shapePass.RunAll(tree, root, ctx); err != nil {
		return nil, err
	}
	if ctx.HasErrors() {
		return resultFromScopeErrors(ctx), fmt.Errorf("shape inference failed with %d error(s)", len(ctx.Errors))
	}

	typePass := scope.NewManager(typeinfer.Pass{})
	if err := typePass.RunAll(tree, root, ctx); err != nil {
		return nil, err
	}
	if ctx.HasErrors() {
		return resultFromScopeErrors(ctx), fmt.Errorf("type inference failed with %d error(s)", len(ctx.Errors))
	}

	docComment := lexer.CaptureDoc(source)
	emitOpts := emit.Options{
		MathematicalNotation: o.MathematicalNotation,
		WriteToWorkspace:     o.WriteToWorkspace,
		EntryPointName:       o.EntryPointName,
		DocComment:           docComment,
	}
	standalone, err := emit.EmitStandalone(tree, root, emitOpts)
	if err != nil {
		return nil, err
	}
	embeddable, err := emit.EmitEmbeddable(tree, root, emitOpts)
	if err != nil {
		return nil, err
	}

	return &Result{StandaloneProgram: standalone, EmbeddableEntry: embeddable, DocComment: docComment}, nil
}

func resultFromScopeErrors(ctx *scope.Context) *Result {
	diags := make([]error, len(ctx.Errors))
	for i, e := range ctx.Errors {
		diags[i] = e
	}
	return &Result{Diagnostics: diags}
}

// ProjectConfig is the optional m2cc.yaml sidecar: default flags and
// output paths for a batch translation run.
type ProjectConfig struct {
	Output struct {
		Program string `yaml:"program"`
		Entry   string `yaml:"entry"`
	} `yaml:"output"`
	MathematicalNotation bool `yaml:"mathematical_notation"`
	DisallowResizing     bool `yaml:"disallow_resizing"`
	WriteToWorkspace     bool `yaml:"write_to_workspace"`
}

// LoadProjectConfig reads and parses an m2cc.yaml file.
func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AsOptions converts a loaded ProjectConfig into functional Options.
func (c *ProjectConfig) AsOptions() []Option {
	return []Option{
		WithMathematicalNotation(c.MathematicalNotation),
		WithDisallowResizing(c.DisallowResizing),
		WithWriteToWorkspace(c.WriteToWorkspace),
	}
}

