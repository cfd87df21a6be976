package runtime

// Arity distinguishes primitives the code generator can validate at
// compile time (fixed arity) from those it must let the runtime check.
type Arity struct {
	Fixed    int  // number of required arguments
	Variadic bool // accepts any number at or above Fixed
}

// Primitive is one row of the fixed table of built-in primitives the
// runtime provides: a Scheme-visible name, the code pointer label the
// generated binding loop loads, and its arity class.
type Primitive struct {
	Name  string
	Label string
	Arity Arity
}

// Primitives is the full built-in primitive set. The free-variables table
// (pkg/codegen) always reserves a slot for every one of these names; the
// binding bootstrap only emits a bind_primitive call for the ones
// actually free-referenced in the program being compiled.
var Primitives = []Primitive{
	{"cons", "prim_cons", Arity{2, false}},
	{"car", "prim_car", Arity{1, false}},
	{"cdr", "prim_cdr", Arity{1, false}},
	{"set-car!", "prim_set_car", Arity{2, false}},
	{"set-cdr!", "prim_set_cdr", Arity{2, false}},

	{"pair?", "prim_pair_p", Arity{1, false}},
	{"null?", "prim_null_p", Arity{1, false}},
	{"boolean?", "prim_boolean_p", Arity{1, false}},
	{"char?", "prim_char_p", Arity{1, false}},
	{"string?", "prim_string_p", Arity{1, false}},
	{"symbol?", "prim_symbol_p", Arity{1, false}},
	{"procedure?", "prim_procedure_p", Arity{1, false}},
	{"vector?", "prim_vector_p", Arity{1, false}},
	{"integer?", "prim_integer_p", Arity{1, false}},
	{"rational?", "prim_rational_p", Arity{1, false}},
	{"real?", "prim_real_p", Arity{1, false}},
	{"number?", "prim_number_p", Arity{1, false}},
	{"zero?", "prim_zero_p", Arity{1, false}},
	{"not", "prim_not", Arity{1, false}},
	{"eq?", "prim_eq_p", Arity{2, false}},
	{"equal?", "prim_equal_p", Arity{2, false}},

	{"+", "prim_add", Arity{0, true}},
	{"-", "prim_sub", Arity{1, true}},
	{"*", "prim_mul", Arity{0, true}},
	{"/", "prim_div", Arity{1, true}},
	{"<", "prim_lt", Arity{1, true}},
	{">", "prim_gt", Arity{1, true}},
	{"<=", "prim_le", Arity{1, true}},
	{">=", "prim_ge", Arity{1, true}},
	{"=", "prim_numeq", Arity{1, true}},
	{"quotient", "prim_quotient", Arity{2, false}},
	{"remainder", "prim_remainder", Arity{2, false}},
	{"numerator", "prim_numerator", Arity{1, false}},
	{"denominator", "prim_denominator", Arity{1, false}},
	{"exact->inexact", "prim_exact_to_inexact", Arity{1, false}},

	{"string-length", "prim_string_length", Arity{1, false}},
	{"string-ref", "prim_string_ref", Arity{2, false}},
	{"string-set!", "prim_string_set", Arity{3, false}},
	{"make-string", "prim_make_string", Arity{1, true}},
	{"string->symbol", "prim_string_to_symbol", Arity{1, false}},
	{"symbol->string", "prim_symbol_to_string", Arity{1, false}},
	{"string-append", "prim_string_append", Arity{0, true}},
	{"format", "prim_format", Arity{1, true}},

	{"vector-length", "prim_vector_length", Arity{1, false}},
	{"vector-ref", "prim_vector_ref", Arity{2, false}},
	{"vector-set!", "prim_vector_set", Arity{3, false}},
	{"make-vector", "prim_make_vector", Arity{1, true}},
	{"vector", "prim_vector", Arity{0, true}},
	{"list->vector", "prim_list_to_vector", Arity{1, false}},

	{"apply", "prim_apply", Arity{2, false}},
	{"append", "prim_append", Arity{0, true}},
	{"map", "prim_map", Arity{2, true}},
	{"for-each", "prim_for_each", Arity{2, true}},

	{"display", "prim_display", Arity{1, false}},
	{"write", "prim_write", Arity{1, false}},
	{"gensym", "prim_gensym", Arity{0, false}},
}

// Names returns the Scheme-visible name of every primitive.
func Names() []string {
	out := make([]string, len(Primitives))
	for i, p := range Primitives {
		out[i] = p.Name
	}
	return out
}

// Lookup finds a primitive by its Scheme name.
func Lookup(name string) (Primitive, bool) {
	for _, p := range Primitives {
		if p.Name == name {
			return p, true
		}
	}
	return Primitive{}, false
}
