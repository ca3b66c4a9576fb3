package fluence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeDeclareAndLookup(t *testing.T) {
	s := NewScope(nil)
	s.Declare(&Symbol{Name: "x", Kind: SymVariable, Reg: 0})

	sym, ok := s.Lookup("x")
	assert.True(t, ok)
	assert.Equal(t, SymVariable, sym.Kind)

	_, ok = s.Lookup("missing")
	assert.False(t, ok)
}

func TestScopeLookupWalksToParent(t *testing.T) {
	parent := NewScope(nil)
	parent.Declare(&Symbol{Name: "outer", Kind: SymVariable})
	child := NewScope(parent)

	sym, ok := child.Lookup("outer")
	assert.True(t, ok)
	assert.Equal(t, "outer", sym.Name)
}

func TestScopeChildShadowsParent(t *testing.T) {
	parent := NewScope(nil)
	parent.Declare(&Symbol{Name: "x", Kind: SymVariable, Reg: 1})
	child := NewScope(parent)
	child.Declare(&Symbol{Name: "x", Kind: SymVariable, Reg: 2})

	sym, ok := child.Lookup("x")
	assert.True(t, ok)
	assert.Equal(t, 2, sym.Reg)

	sym, ok = parent.Lookup("x")
	assert.True(t, ok)
	assert.Equal(t, 1, sym.Reg)
}

func TestScopeAllocRegIsPerScopeSequential(t *testing.T) {
	s := NewScope(nil)
	assert.Equal(t, 0, s.AllocReg())
	assert.Equal(t, 1, s.AllocReg())
	assert.Equal(t, 2, s.AllocReg())

	child := NewScope(s)
	assert.Equal(t, 0, child.AllocReg())
}

func TestScopeIsGlobalScope(t *testing.T) {
	top := NewScope(nil)
	assert.True(t, top.IsGlobalScope())
	nested := NewScope(top)
	assert.False(t, nested.IsGlobalScope())
}

func TestScopeImportsResolveInReverseDeclarationOrderOnConflict(t *testing.T) {
	s := NewScope(nil)
	first := NewScope(nil)
	first.Declare(&Symbol{Name: "shared", Kind: SymVariable, Reg: 1})
	second := NewScope(nil)
	second.Declare(&Symbol{Name: "shared", Kind: SymVariable, Reg: 2})

	s.AddImport(first)
	s.AddImport(second)

	sym, ok := s.Lookup("shared")
	assert.True(t, ok)
	assert.Equal(t, 2, sym.Reg, "later import should shadow an earlier one")
}

func TestScopeOwnDeclarationBeatsImports(t *testing.T) {
	s := NewScope(nil)
	imported := NewScope(nil)
	imported.Declare(&Symbol{Name: "x", Kind: SymVariable, Reg: 9})
	s.AddImport(imported)
	s.Declare(&Symbol{Name: "x", Kind: SymVariable, Reg: 1})

	sym, ok := s.Lookup("x")
	assert.True(t, ok)
	assert.Equal(t, 1, sym.Reg)
}

func TestSymbolLookupMethodByMangledArity(t *testing.T) {
	sym := &Symbol{
		Name: "Greeter",
		Kind: SymStruct,
		Methods: map[string]*Symbol{
			MangledMethodName("greet", 0): {Name: "greet", Arity: 0},
			MangledMethodName("greet", 1): {Name: "greet", Arity: 1},
		},
	}
	m, ok := sym.LookupMethod("greet", 1)
	assert.True(t, ok)
	assert.Equal(t, 1, m.Arity)

	_, ok = sym.LookupMethod("greet", 2)
	assert.False(t, ok)
}

func TestScopeSymbolsReturnsOwnDeclarationsOnly(t *testing.T) {
	parent := NewScope(nil)
	parent.Declare(&Symbol{Name: "outer", Kind: SymVariable})
	child := NewScope(parent)
	child.Declare(&Symbol{Name: "inner", Kind: SymVariable})

	names := child.Symbols()
	_, hasInner := names["inner"]
	_, hasOuter := names["outer"]
	assert.True(t, hasInner)
	assert.False(t, hasOuter)
}
