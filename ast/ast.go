// Package ast defines the surface and simplified AST shared by the
// frontend (syntax, typing, patmat) and consumed by stg.Lower: a
// value-definition list, each definition (name, optional scheme,
// type-annotation, expression), plus a constructor map from name to
// (arity, scheme, tag).
//
// The same Expr variants serve both the raw, just-parsed tree (where Case
// alternatives carry arbitrary nested Pattern trees) and the simplified
// tree patmat.Compile produces (where Case alternatives are shallow,
// single-level, and always carry a default). stg.Lower requires the
// latter; nothing at the ast level enforces it structurally — pattern
// match compilation is a precondition supplied by an earlier stage
// rather than a type-level invariant.
package ast

import "github.com/thunkc/thunkc/report"

// Program is a whole compiled unit: a list of top-level value definitions
// plus the constructor map describing every data declaration in scope.
type Program struct {
	Defs         []*Def
	Constructors *ConstructorMap
}

// Def is a top-level value definition: `name = expr` or a function
// definition `name p1 p2 = expr`, already merged from however many
// pattern-matching equations the source gave for that name.
type Def struct {
	Name string
	Span *report.TextSpan

	// Scheme is the (possibly polymorphic) inferred or declared type
	// scheme. Filled in by typing.Infer; nil beforehand.
	Scheme *Scheme

	Body Expr
}

// ConstructorInfo describes one data constructor: its arity, the fields'
// declared types (used by typing), the algebraic type it belongs to, and
// the integer tag assigned at declaration order.
type ConstructorInfo struct {
	Name      string
	TypeName  string
	Tag       int
	Arity     int
	FieldType []Type
}

// ConstructorMap maps a constructor name to its info, and a type name to
// the ordered list of its constructors (needed to know how many
// alternatives a ConstrAlts case must eventually cover, and to assign
// tags in the first place).
type ConstructorMap struct {
	ByName map[string]*ConstructorInfo
	ByType map[string][]*ConstructorInfo
}

// NewConstructorMap creates an empty map, ready to have declarations
// registered into it in source order (so tags come out deterministic).
func NewConstructorMap() *ConstructorMap {
	return &ConstructorMap{
		ByName: make(map[string]*ConstructorInfo),
		ByType: make(map[string][]*ConstructorInfo),
	}
}

// Declare registers a data declaration's constructors, assigning each one
// the next tag within its type in declaration order.
func (cm *ConstructorMap) Declare(typeName string, ctorNames []string, fieldTypes [][]Type) {
	for i, name := range ctorNames {
		info := &ConstructorInfo{
			Name:      name,
			TypeName:  typeName,
			Tag:       i,
			Arity:     len(fieldTypes[i]),
			FieldType: fieldTypes[i],
		}
		cm.ByName[name] = info
		cm.ByType[typeName] = append(cm.ByType[typeName], info)
	}
}
