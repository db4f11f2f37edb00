package spec

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mark3labs/endpointdsl/internal/dsl"
)

const (
	defaultTitle   = "Endpoints"
	defaultVersion = "0.0.0"
	openAPIVersion = "3.0.3"
)

// ToOpenAPI maps the model onto an OpenAPI 3 document and validates it.
// Request and response names become placeholder object schemas under
// #/components/schemas; their shape is owned by whatever registry defines
// them.
func ToOpenAPI(ctx context.Context, sm *ServiceModel) (*openapi3.T, error) {
	if sm == nil {
		return nil, fmt.Errorf("nil ServiceModel")
	}

	doc := &openapi3.T{
		OpenAPI: openAPIVersion,
		Info: &openapi3.Info{
			Title:       firstNonEmpty(sm.Title, defaultTitle),
			Version:     firstNonEmpty(sm.Version, defaultVersion),
			Description: sm.Description,
		},
		Paths:      openapi3.Paths{},
		Components: &openapi3.Components{Schemas: openapi3.Schemas{}},
	}
	for _, s := range sm.Servers {
		if strings.TrimSpace(s.URL) == "" {
			continue
		}
		doc.Servers = append(doc.Servers, &openapi3.Server{URL: s.URL, Description: s.Description})
	}
	for _, t := range sm.Tags {
		doc.Tags = append(doc.Tags, &openapi3.Tag{Name: t})
	}
	for _, name := range sm.TypeNames {
		doc.Components.Schemas[name] = openapi3.NewSchemaRef("", placeholderSchema(name))
	}

	for _, em := range sm.Endpoints {
		op := openapi3.NewOperation()
		op.OperationID = em.Name
		op.Summary = em.Summary
		op.Description = "Signature: `" + em.Signature + "`"
		op.Tags = append([]string(nil), em.Tags...)
		for _, v := range em.PathParams {
			op.AddParameter(openapi3.NewPathParameter(v.Name).WithSchema(SchemaFor(v.Type)))
		}
		for _, v := range em.QueryParams {
			op.AddParameter(openapi3.NewQueryParameter(v.Name).WithSchema(SchemaFor(v.Type)))
		}
		if em.RequestType != "" {
			body := openapi3.NewRequestBody().
				WithRequired(true).
				WithJSONSchemaRef(componentRef(doc, em.RequestType))
			op.RequestBody = &openapi3.RequestBodyRef{Value: body}
		}
		resp := openapi3.NewResponse().WithDescription("Success")
		if em.ResponseType != "" {
			resp = resp.WithJSONSchemaRef(componentRef(doc, em.ResponseType))
		}
		op.Responses = openapi3.Responses{"200": &openapi3.ResponseRef{Value: resp}}

		item := doc.Paths[em.Path]
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths[em.Path] = item
		}
		item.SetOperation(string(em.Method), op)
	}

	if err := doc.Validate(ctx); err != nil {
		return nil, mapValidateErr(err)
	}
	return doc, nil
}

// SchemaFor returns the OpenAPI schema of a variable type. Integer widths
// follow the usual two's-complement sizes.
func SchemaFor(t dsl.VariableType) *openapi3.Schema {
	switch t {
	case dsl.TypeShort:
		return openapi3.NewInt32Schema().WithMin(-32768).WithMax(32767)
	case dsl.TypeInt:
		return openapi3.NewInt32Schema()
	case dsl.TypeLong:
		return openapi3.NewInt64Schema()
	case dsl.TypeByte:
		return openapi3.NewInt32Schema().WithMin(-128).WithMax(127)
	case dsl.TypeFloat:
		return openapi3.NewFloat64Schema().WithFormat("float")
	case dsl.TypeDouble:
		return openapi3.NewFloat64Schema().WithFormat("double")
	case dsl.TypeBool:
		return openapi3.NewBoolSchema()
	default:
		return openapi3.NewStringSchema()
	}
}

func placeholderSchema(name string) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	s.Title = name
	return s
}

func componentRef(doc *openapi3.T, name string) *openapi3.SchemaRef {
	ref := "#/components/schemas/" + name
	if existing := doc.Components.Schemas[name]; existing != nil {
		return &openapi3.SchemaRef{Ref: ref, Value: existing.Value}
	}
	value := placeholderSchema(name)
	doc.Components.Schemas[name] = openapi3.NewSchemaRef("", value)
	return &openapi3.SchemaRef{Ref: ref, Value: value}
}

func mapValidateErr(err error) error {
	return &SpecError{
		Code:        ValidationError,
		Message:     fmt.Sprintf("openapi: %v", err),
		JSONPointer: extractJSONPointer(err),
		Cause:       err,
	}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'"]+`)

func extractJSONPointer(err error) string {
	if err == nil {
		return ""
	}
	var me openapi3.MultiError
	if errors.As(err, &me) && len(me) > 0 {
		return extractJSONPointer(me[0])
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if parts := se.JSONPointer(); len(parts) > 0 {
			return "#/" + strings.Join(parts, "/")
		}
	}
	if m := jsonPtrRe.FindString(err.Error()); m != "" {
		return m
	}
	return ""
}
