package bridgegen

import (
	"slices"
)

// Closure is the set of declarations the generated file must contain.
type Closure struct {
	Decls []*Decl // types first, then functions, each in scan order

	// Dependencies are declarations pulled in only because a whitelisted
	// symbol needs them, by name.
	Dependencies []string
}

// Close resolves every whitelisted symbol in table and adds the typedefs and
// tag definitions their declarations reference, transitively. A symbol with
// no declaration, or with a declaration of the wrong kind, is an error.
func Close(table *SymbolTable, w Whitelist) (*Closure, error) {
	included := make(map[*Decl]bool)
	var queue []*Decl

	include := func(d *Decl) {
		if !included[d] {
			included[d] = true
			queue = append(queue, d)
		}
	}

	for _, name := range w.Types {
		d := table.Lookup(name)
		if d == nil {
			return nil, newError(StageCodegen, KindMissing, "type is not declared in any scanned header or whitelist decl").
				withSymbol(name)
		}
		if d.Kind == DeclFunction {
			return nil, newError(StageCodegen, KindMismatch, "listed as a type but declared as a %s at %s", d.Kind, d.Pos).
				withSymbol(name)
		}
		include(d)
	}
	for _, name := range w.Functions {
		d := table.Lookup(name)
		if d == nil {
			return nil, newError(StageCodegen, KindMissing, "function is not declared in any scanned header or whitelist decl").
				withSymbol(name)
		}
		if d.Kind != DeclFunction {
			return nil, newError(StageCodegen, KindMismatch, "listed as a function but declared as a %s at %s", d.Kind, d.Pos).
				withSymbol(name)
		}
		include(d)
	}

	roots := make(map[*Decl]bool, len(queue))
	for _, d := range queue {
		roots[d] = true
	}

	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]
		for _, ref := range d.Refs {
			dep := table.Lookup(ref)
			if dep == nil || dep.Kind == DeclFunction {
				continue
			}
			include(dep)
		}
	}

	c := &Closure{}
	for d := range included {
		c.Decls = append(c.Decls, d)
		if !roots[d] {
			c.Dependencies = append(c.Dependencies, d.Names...)
		}
	}
	slices.SortFunc(c.Decls, func(a, b *Decl) int {
		ak, bk := a.Kind == DeclFunction, b.Kind == DeclFunction
		switch {
		case ak != bk && bk:
			return -1
		case ak != bk:
			return 1
		}
		return a.order - b.order
	})
	slices.Sort(c.Dependencies)
	return c, nil
}

// Functions returns the function declarations of the closure.
func (c *Closure) Functions() []*Decl {
	var out []*Decl
	for _, d := range c.Decls {
		if d.Kind == DeclFunction {
			out = append(out, d)
		}
	}
	return out
}
