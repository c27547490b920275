package value

// Kind identifies the variant of a Type.
type Kind uint8

const (
	// KindAny only appears in command signatures. No runtime value has it.
	KindAny Kind = iota
	KindNil
	KindNum
	KindBool
	KindStr
	KindTable
	KindTableRow
	KindRecord
)

// Type is the static type of a value.
//
// Type is comparable so it can be used as part of map keys (the content cache
// keys entries by path and Type). Name is only set for KindRecord.
type Type struct {
	Kind Kind
	Name string
}

// Predefined types.
var (
	TypeAny      = Type{Kind: KindAny}
	TypeNil      = Type{Kind: KindNil}
	TypeNum      = Type{Kind: KindNum}
	TypeBool     = Type{Kind: KindBool}
	TypeStr      = Type{Kind: KindStr}
	TypeTable    = Type{Kind: KindTable}
	TypeTableRow = Type{Kind: KindTableRow}
)

// RecordType returns the type of records declared with the given name.
func RecordType(name string) Type {
	return Type{Kind: KindRecord, Name: name}
}

// String returns the user-facing type name.
func (t Type) String() string {
	switch t.Kind {
	case KindAny:
		return "Any"
	case KindNil:
		return "Nil"
	case KindNum:
		return "Num"
	case KindBool:
		return "Bool"
	case KindStr:
		return "Str"
	case KindTable:
		return "Table"
	case KindTableRow:
		return "TableRow"
	case KindRecord:
		return t.Name
	default:
		return "?"
	}
}

// Accepts reports whether a value of type other satisfies t.
// Matching is structural: the same variant, and for records the same
// declared name. There is no widening apart from TypeAny.
func (t Type) Accepts(other Type) bool {
	if t.Kind == KindAny {
		return true
	}
	return t == other
}

// IsRecord reports whether t names a user-defined record type.
func (t Type) IsRecord() bool {
	return t.Kind == KindRecord
}

// ParseBuiltinType resolves one of the builtin type names.
// Record type names are resolved by the definition registry instead.
func ParseBuiltinType(name string) (Type, bool) {
	switch name {
	case "Nil":
		return TypeNil, true
	case "Num":
		return TypeNum, true
	case "Bool":
		return TypeBool, true
	case "Str":
		return TypeStr, true
	case "Table":
		return TypeTable, true
	case "TableRow":
		return TypeTableRow, true
	default:
		return Type{}, false
	}
}

// BuiltinTypeNames lists the names accepted by ParseBuiltinType.
func BuiltinTypeNames() []string {
	return []string{"Nil", "Num", "Bool", "Str", "Table", "TableRow"}
}
