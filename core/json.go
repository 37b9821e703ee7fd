package core

import "encoding/json"

// MarshalJSON encodes numbers as JSON numbers and every other term as its
// text: symbols and strings unquoted, functions in ASP syntax.
func (t Term) MarshalJSON() ([]byte, error) {
	if t.Kind == Number {
		return json.Marshal(t.Num)
	}
	return json.Marshal(t.Text())
}

// MarshalJSON encodes the atom as its ASP text.
func (a Atom) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}
