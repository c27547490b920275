package parser

import "strings"

// Expecting is the set of syntax items that would have allowed parsing to
// continue at the failure point. Interactive hosts use it for completion.
type Expecting uint16

const (
	ExpectNothing Expecting = 0
	ExpectCommand Expecting = 1 << iota
	ExpectTerm
	ExpectType
	ExpectImpl
	ExpectName
	ExpectCloseBrace
	ExpectCloseParen
	ExpectOpenBrace
)

var expectingNames = []struct {
	bit  Expecting
	name string
}{
	{ExpectCommand, "command"},
	{ExpectTerm, "term"},
	{ExpectType, "type"},
	{ExpectImpl, "`=>`"},
	{ExpectName, "name"},
	{ExpectCloseBrace, "`}`"},
	{ExpectCloseParen, "`)`"},
	{ExpectOpenBrace, "`{`"},
}

// Has reports whether every bit of o is set.
func (e Expecting) Has(o Expecting) bool { return e&o == o && o != 0 }

// Names lists the expected items in a fixed order.
func (e Expecting) Names() []string {
	var names []string
	for _, n := range expectingNames {
		if e&n.bit != 0 {
			names = append(names, n.name)
		}
	}
	return names
}

func (e Expecting) String() string {
	if e == ExpectNothing {
		return "nothing"
	}
	return strings.Join(e.Names(), " or ")
}
