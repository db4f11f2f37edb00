package dsl

import "strings"

// String renders the endpoint in canonical form: upper-case method, single
// spaces between clauses. Parsing the result yields an equal Endpoint.
func (e *Endpoint) String() string {
	var b strings.Builder
	b.WriteString(string(e.Method))
	b.WriteByte(' ')
	b.WriteString(e.PathString())
	for i, q := range e.QueryParams {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(q.String())
	}
	if e.RequestType != "" {
		b.WriteByte(' ')
		b.WriteString(e.RequestType)
	}
	if e.ResponseType != "" {
		b.WriteString(" -> ")
		b.WriteString(e.ResponseType)
	}
	return b.String()
}

// PathString renders only the path, with variables in {name:type} form.
func (e *Endpoint) PathString() string {
	var b strings.Builder
	for _, c := range e.Path {
		b.WriteString(c.String())
	}
	return b.String()
}

// TemplatePath renders the path with untyped {name} placeholders, the form
// used by URI templates and OpenAPI path keys.
func (e *Endpoint) TemplatePath() string {
	var b strings.Builder
	for _, c := range e.Path {
		b.WriteByte('/')
		if c.IsVariable() {
			b.WriteByte('{')
			b.WriteString(c.Name)
			b.WriteByte('}')
			continue
		}
		b.WriteString(c.Name)
	}
	return b.String()
}

func (c PathComponent) String() string {
	if c.IsVariable() {
		return "/{" + c.Name + ":" + string(c.Type) + "}"
	}
	return "/" + c.Name
}

func (v Variable) String() string {
	return v.Name + ":" + string(v.Type)
}
