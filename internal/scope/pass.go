// Package scope implements the Scope Builder and Name Resolver passes
// (spec.md sections 4.3/4.4), sequenced through a Pass/PassManager
// architecture grounded on the teacher's internal/semantic/pass.go.
package scope

import (
	"github.com/kvance/go-m2cc/internal/ast"
	"github.com/kvance/go-m2cc/internal/diag"
)

// Context carries the state passes share: the source text and file name
// (for diagnostic formatting) and the accumulated diagnostics themselves.
// Errors is typed as diag.Diagnostic (not a single stage-specific kind)
// since scope, shapeinfer, and typeinfer each raise their own kind through
// the same Context.
type Context struct {
	Source string
	File   string
	Errors []diag.Diagnostic
}

// HasErrors reports whether any pass has recorded a fatal diagnostic.
func (c *Context) HasErrors() bool { return len(c.Errors) > 0 }

// Pass is one stage of semantic analysis over the arena.
type Pass interface {
	Name() string
	Run(tree *ast.Tree, root ast.NodeID, ctx *Context) error
}

// Manager sequences passes, stopping at the first one that reports fatal
// errors (mirrors the teacher's PassManager.RunAll early-exit behavior).
type Manager struct {
	passes []Pass
}

// NewManager builds a Manager running passes in the given order.
func NewManager(passes ...Pass) *Manager {
	return &Manager{passes: passes}
}

// RunAll runs every pass in order, stopping after the first pass leaves
// fatal errors in ctx.
func (m *Manager) RunAll(tree *ast.Tree, root ast.NodeID, ctx *Context) error {
	for _, p := range m.passes {
		if err := p.Run(tree, root, ctx); err != nil {
			return err
		}
		if ctx.HasErrors() {
			return nil
		}
	}
	return nil
}
