// Package block declares the output tree the reconstruction core builds: basic blocks,
// scope blocks, and exception-handler blocks. The tree is built bottom-up, append-only,
// and is never mutated once returned to the caller.
package block

// Kind discriminates the three Block variants.
type Kind int

const (
	// BasicKind identifies a leaf block holding a single node's contents.
	BasicKind Kind = iota
	// ScopeKind identifies an ordered container of child blocks.
	ScopeKind
	// ExceptionHandlerKind identifies a protected-plus-handlers wrapper.
	ExceptionHandlerKind
)

func (k Kind) String() string {
	switch k {
	case BasicKind:
		return "basic"
	case ScopeKind:
		return "scope"
	case ExceptionHandlerKind:
		return "exception-handler"
	default:
		return "unknown"
	}
}

// Block is implemented by Basic, Scope, and ExceptionHandler. Callers switch on Kind
// (or a type switch) to recover the concrete variant.
type Block interface {
	Kind() Kind
}

// Basic is a leaf block holding a single CFG node's payload.
type Basic struct {
	// Contents is the payload of the node this block was built from.
	Contents any
}

// Kind implements Block.
func (*Basic) Kind() Kind { return BasicKind }

// NewBasic builds a Basic block from a node's contents.
func NewBasic(contents any) *Basic {
	return &Basic{Contents: contents}
}

// Scope is an ordered container of child blocks. The output tree's root is always a
// Scope.
type Scope struct {
	Children []Block
}

// Kind implements Block.
func (*Scope) Kind() Kind { return ScopeKind }

// NewScope returns an empty scope block.
func NewScope() *Scope {
	return &Scope{}
}

// Append adds a child block to the end of the scope's children.
func (s *Scope) Append(child Block) {
	s.Children = append(s.Children, child)
}

// ExceptionHandler wraps a protected scope block and its ordered handler scope blocks.
// It appears as a child of a Scope, never as a tree root.
type ExceptionHandler struct {
	protected *Scope
	handlers  []*Scope
}

// Kind implements Block.
func (*ExceptionHandler) Kind() Kind { return ExceptionHandlerKind }

// NewExceptionHandler returns an exception-handler block with a fresh, empty protected
// scope and no handlers yet.
func NewExceptionHandler() *ExceptionHandler {
	return &ExceptionHandler{protected: NewScope()}
}

// Protected returns the protected (try) scope block. It is created once, in
// NewExceptionHandler, and reused for the lifetime of the block.
func (e *ExceptionHandler) Protected() *Scope {
	return e.protected
}

// Handlers returns the handler (catch) scope blocks built so far, in the order they
// were appended.
func (e *ExceptionHandler) Handlers() []*Scope {
	return e.handlers
}

// AppendHandler creates a fresh handler scope block, appends it to the handler list,
// and returns it so the caller can populate it.
func (e *ExceptionHandler) AppendHandler() *Scope {
	s := NewScope()
	e.handlers = append(e.handlers, s)
	return s
}
