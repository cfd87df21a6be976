package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/its-hmny/schemec/pkg/runtime"
	"github.com/its-hmny/schemec/pkg/sexpr"
)

// FreeVarsTable is the sorted, deduplicated table of every name the
// generated code may look up as a free variable: one reserved slot per
// built-in primitive, plus one per name the program itself references
// free.
type FreeVarsTable struct {
	names      []string
	referenced map[string]bool // names the program itself references free
}

// NewFreeVarsTable builds the table from every free-referenced name found
// in the program plus the full primitive set, sorted lexicographically and
// deduplicated. referenced records the program's own free references,
// which the binding bootstrap uses to decide which primitives actually
// need a bind_primitive call.
func NewFreeVarsTable(programFree []string) *FreeVarsTable {
	seen := make(map[string]bool, len(programFree)+len(runtime.Primitives))
	referenced := make(map[string]bool, len(programFree))
	var names []string
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, n := range runtime.Names() {
		add(n)
	}
	for _, n := range programFree {
		add(n)
		referenced[n] = true
	}
	sort.Strings(names)
	return &FreeVarsTable{names: names, referenced: referenced}
}

// Referenced reports whether the program itself contains a free reference
// to name, as opposed to name only being present as a reserved primitive
// slot nothing in the program ever touches.
func (t *FreeVarsTable) Referenced(name string) bool { return t.referenced[name] }

// Names returns every reserved free-variable name, in table order.
func (t *FreeVarsTable) Names() []string { return t.names }

// Label returns the assembly label reserved for name's free-variable slot.
func (t *FreeVarsTable) Label(name string) (string, bool) {
	i := sort.SearchStrings(t.names, name)
	if i < len(t.names) && t.names[i] == name {
		return fmt.Sprintf("free_var_%d", i), true
	}
	return "", false
}

// IsPrimitive reports whether name names a built-in primitive rather than a
// program-defined global.
func (t *FreeVarsTable) IsPrimitive(name string) bool {
	_, ok := runtime.Lookup(name)
	return ok
}

// Render emits the NASM data segment reserving one quadword per slot.
// Each slot starts out pointing at its own undefined cell, which in turn
// points at the slot's name-string constant so the runtime's undefined-
// variable handler can report which name was read. The name string is
// guaranteed present: Collect inserts one for every free name and every
// primitive.
func (t *FreeVarsTable) Render(constants *ConstantsTable) string {
	var b strings.Builder
	b.WriteString("section .data\n")
	for i, name := range t.names {
		off, _ := constants.Offset(sexpr.String(name))
		fmt.Fprintf(&b,
			"free_var_%d:\n\tdq free_var_%d_undef\nfree_var_%d_undef:\n\tdb %d\n\tdq %s + %d\n",
			i, i, i, runtime.TUndefined, runtime.LConstants, off)
	}
	return b.String()
}
