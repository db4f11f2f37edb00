// Package dsl parses compact endpoint signatures such as
//
//	GET /users/{id:int}?active:bool -> UserList
//
// into an Endpoint value. The parser is a hand-written recursive descent over
// the input string; it holds no state between calls and is safe for
// concurrent use.
package dsl

// Method is one of the four HTTP verbs the grammar accepts.
type Method string

const (
	GET    Method = "GET"
	POST   Method = "POST"
	PUT    Method = "PUT"
	DELETE Method = "DELETE"
)

// VariableType is the closed set of scalar types a variable may carry.
type VariableType string

const (
	TypeString VariableType = "string"
	TypeShort  VariableType = "short"
	TypeInt    VariableType = "int"
	TypeLong   VariableType = "long"
	TypeByte   VariableType = "byte"
	TypeFloat  VariableType = "float"
	TypeDouble VariableType = "double"
	TypeBool   VariableType = "bool"
)

// VariableTypes lists every accepted type keyword in grammar order.
var VariableTypes = []VariableType{
	TypeString, TypeShort, TypeInt, TypeLong, TypeByte, TypeFloat, TypeDouble, TypeBool,
}

// Valid reports whether t is one of the accepted type keywords.
func (t VariableType) Valid() bool {
	for _, v := range VariableTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ComponentKind tags a PathComponent.
type ComponentKind string

const (
	SegmentComponent  ComponentKind = "segment"
	VariableComponent ComponentKind = "variable"
)

// PathComponent is either a literal segment (/name) or a typed path
// variable (/{name:type}). Type is empty for segments.
type PathComponent struct {
	Kind ComponentKind `json:"kind" yaml:"kind"`
	Name string        `json:"name" yaml:"name"`
	Type VariableType  `json:"type,omitempty" yaml:"type,omitempty"`
}

// Segment returns a literal path component.
func Segment(name string) PathComponent {
	return PathComponent{Kind: SegmentComponent, Name: name}
}

// PathVariable returns a typed path variable component.
func PathVariable(name string, typ VariableType) PathComponent {
	return PathComponent{Kind: VariableComponent, Name: name, Type: typ}
}

// IsVariable reports whether the component is a path variable.
func (c PathComponent) IsVariable() bool { return c.Kind == VariableComponent }

// Variable is a name:type pair used for path variables and query parameters.
type Variable struct {
	Name string       `json:"name" yaml:"name"`
	Type VariableType `json:"type" yaml:"type"`
}

// Endpoint is the root of a parsed signature. RequestType and ResponseType
// are empty when the signature omits them; a present name is never empty.
type Endpoint struct {
	Method       Method          `json:"method" yaml:"method"`
	Path         []PathComponent `json:"path" yaml:"path"`
	QueryParams  []Variable      `json:"queryParams" yaml:"queryParams"`
	RequestType  string          `json:"requestType,omitempty" yaml:"requestType,omitempty"`
	ResponseType string          `json:"responseType,omitempty" yaml:"responseType,omitempty"`
}

// PathVariables returns the path components that are variables, in order.
func (e *Endpoint) PathVariables() []Variable {
	var out []Variable
	for _, c := range e.Path {
		if c.IsVariable() {
			out = append(out, Variable{Name: c.Name, Type: c.Type})
		}
	}
	return out
}
