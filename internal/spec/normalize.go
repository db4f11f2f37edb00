package spec

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/mark3labs/endpointdsl/internal/dsl"
)

// BuildOption configures how the ServiceModel is built from parsed endpoints.
type BuildOption func(*buildConfig)

type buildConfig struct {
	includeTags map[string]struct{}
	excludeTags map[string]struct{}
	methods     map[dsl.Method]struct{}
	pathRes     []*regexp.Regexp
	title       string
	version     string
}

// WithIncludeTags keeps only endpoints that have at least one of the given tags.
func WithIncludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		if len(tags) == 0 {
			return
		}
		if c.includeTags == nil {
			c.includeTags = make(map[string]struct{}, len(tags))
		}
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			c.includeTags[t] = struct{}{}
		}
	}
}

// WithExcludeTags removes endpoints that have any of the given tags.
func WithExcludeTags(tags []string) BuildOption {
	return func(c *buildConfig) {
		if len(tags) == 0 {
			return
		}
		if c.excludeTags == nil {
			c.excludeTags = make(map[string]struct{}, len(tags))
		}
		for _, t := range tags {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			c.excludeTags[t] = struct{}{}
		}
	}
}

// WithMethods keeps only endpoints using one of the provided HTTP methods.
func WithMethods(methods []dsl.Method) BuildOption {
	return func(c *buildConfig) {
		if len(methods) == 0 {
			return
		}
		if c.methods == nil {
			c.methods = make(map[dsl.Method]struct{}, len(methods))
		}
		for _, m := range methods {
			c.methods[m] = struct{}{}
		}
	}
}

// WithPathPatterns keeps only endpoints whose template path matches at least
// one of the provided regular expressions.
func WithPathPatterns(patterns []*regexp.Regexp) BuildOption {
	return func(c *buildConfig) {
		for _, re := range patterns {
			if re != nil {
				c.pathRes = append(c.pathRes, re)
			}
		}
	}
}

// WithTitle overrides the manifest title.
func WithTitle(title string) BuildOption {
	return func(c *buildConfig) { c.title = strings.TrimSpace(title) }
}

// WithVersion overrides the manifest version.
func WithVersion(version string) BuildOption {
	return func(c *buildConfig) { c.version = strings.TrimSpace(version) }
}

// BuildServiceModel converts parsed endpoints into the Internal Model (IM),
// applying the configured filters. Endpoints keep manifest order. Two
// endpoints with the same method and the same path shape (variable names
// ignored), or with the same operation name, are rejected as a
// ValidationError.
func BuildServiceModel(ctx context.Context, m *Manifest, parsed []ParsedEndpoint, opts ...BuildOption) (*ServiceModel, error) {
	_ = ctx
	if m == nil {
		return nil, fmt.Errorf("nil manifest")
	}

	cfg := &buildConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	sm := &ServiceModel{
		Title:       firstNonEmpty(cfg.title, m.Title),
		Version:     firstNonEmpty(cfg.version, m.Version),
		Description: m.Description,
		Servers:     append([]Server(nil), m.Servers...),
	}

	tagSet := map[string]struct{}{}
	typeSet := map[string]struct{}{}
	seen := map[string]string{}
	names := map[string]string{}
	for _, pe := range parsed {
		if pe.Endpoint == nil {
			continue
		}
		ep := pe.Endpoint
		tags := cleanTags(pe.Entry.Tags)
		if !cfg.keep(ep, tags) {
			continue
		}

		location := fmt.Sprintf("%s:%d", m.Location, pe.Entry.Line)
		shape := string(ep.Method) + " " + routeShape(ep)
		if prev, dup := seen[shape]; dup {
			return nil, &SpecError{
				Code:     ValidationError,
				Message:  fmt.Sprintf("duplicate route %s %s (also declared at %s)", ep.Method, ep.TemplatePath(), prev),
				Location: location,
			}
		}
		seen[shape] = location

		name := pe.Entry.Name
		if name == "" {
			name = deriveOperationName(ep)
		}
		if prev, dup := names[name]; dup {
			return nil, &SpecError{
				Code:     ValidationError,
				Message:  fmt.Sprintf("duplicate operation name %q for %s %s (also declared at %s)", name, ep.Method, ep.TemplatePath(), prev),
				Location: location,
			}
		}
		names[name] = location
		em := EndpointModel{
			ID:           string(ep.Method) + " " + ep.TemplatePath(),
			Name:         name,
			Method:       ep.Method,
			Path:         ep.TemplatePath(),
			Summary:      pe.Entry.Summary,
			Tags:         tags,
			Signature:    ep.String(),
			Location:     location,
			PathParams:   ep.PathVariables(),
			QueryParams:  append([]dsl.Variable(nil), ep.QueryParams...),
			RequestType:  ep.RequestType,
			ResponseType: ep.ResponseType,
			AST:          ep,
		}
		for _, t := range tags {
			tagSet[t] = struct{}{}
		}
		if em.RequestType != "" {
			typeSet[em.RequestType] = struct{}{}
		}
		if em.ResponseType != "" {
			typeSet[em.ResponseType] = struct{}{}
		}
		sm.Endpoints = append(sm.Endpoints, em)
	}

	sm.Tags = sortedKeys(tagSet)
	sm.TypeNames = sortedKeys(typeSet)
	return sm, nil
}

func (c *buildConfig) keep(ep *dsl.Endpoint, tags []string) bool {
	if len(c.methods) > 0 {
		if _, ok := c.methods[ep.Method]; !ok {
			return false
		}
	}
	if len(c.includeTags) > 0 && !anyTagIn(tags, c.includeTags) {
		return false
	}
	if len(c.excludeTags) > 0 && anyTagIn(tags, c.excludeTags) {
		return false
	}
	if len(c.pathRes) > 0 {
		path := ep.TemplatePath()
		matched := false
		for _, re := range c.pathRes {
			if re.MatchString(path) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func anyTagIn(tags []string, set map[string]struct{}) bool {
	for _, t := range tags {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// routeShape is the template path with variable names erased, so /a/{x} and
// /a/{y} compare equal.
func routeShape(ep *dsl.Endpoint) string {
	var b strings.Builder
	for _, c := range ep.Path {
		if c.IsVariable() {
			b.WriteString("/{}")
			continue
		}
		b.WriteString("/" + c.Name)
	}
	return b.String()
}

// deriveOperationName builds a camelCase name from the method and path, e.g.
// GET /users/{id} becomes getUsersById.
func deriveOperationName(ep *dsl.Endpoint) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(string(ep.Method)))
	for _, c := range ep.Path {
		if c.IsVariable() {
			b.WriteString("By")
		}
		b.WriteString(upperFirst(c.Name))
	}
	return b.String()
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func cleanTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
