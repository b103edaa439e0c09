package entity

// typeFamilies folds concrete source-language types into canonical
// families so that, for example, an ArrayList field and a LinkedList
// field count as the same structural evidence. Unknown types map to
// themselves; user-defined types stay distinct.
var typeFamilies = map[string]string{
	// numeric primitives and boxes
	"short": "number", "Short": "number",
	"int": "number", "Integer": "number",
	"long": "number", "Long": "number",
	"float": "number", "Float": "number",
	"double": "number", "Double": "number",
	"byte": "number", "Byte": "number",
	"complex": "number",

	"boolean": "bool", "Boolean": "bool", "bool": "bool",

	"char": "string", "Character": "string",
	"String": "string", "str": "string", "string": "string",
	"CharSequence": "string", "StringBuilder": "string", "StringBuffer": "string",

	// collections
	"ArrayList": "list", "LinkedList": "list", "List": "list", "list": "list",
	"tuple":   "list",
	"HashSet": "set", "TreeSet": "set", "LinkedHashSet": "set", "Set": "set",
	"set": "set", "frozenset": "set",
	"HashMap": "map", "TreeMap": "map", "LinkedHashMap": "map", "Map": "map",
	"dict": "map",

	// JavaFX property types collapse with their scalar families
	"FloatProperty": "number", "IntegerProperty": "number",
	"LongProperty": "number", "DoubleProperty": "number",
	"BooleanProperty": "bool", "StringProperty": "string",
}

// CanonicalType maps a declared type token to its canonical family.
// A token with no family is returned unchanged.
func CanonicalType(t string) string {
	if fam, ok := typeFamilies[t]; ok {
		return fam
	}
	return t
}
