package spec

import "github.com/mark3labs/endpointdsl/internal/dsl"

// Internal Model (IM) built from a manifest of endpoint signatures.

type ServiceModel struct {
	Title       string
	Version     string
	Description string
	Servers     []Server
	Tags        []string
	Endpoints   []EndpointModel
	TypeNames   []string // request/response names referenced by endpoints, sorted
}

type Server struct {
	URL         string `yaml:"url" json:"url"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

type EndpointModel struct {
	ID           string // method + template path
	Name         string // operation name, explicit or derived
	Method       dsl.Method
	Path         string // template path, e.g. /users/{id}
	Summary      string
	Tags         []string
	Signature    string // canonical DSL text
	Location     string // file:line of the declaring entry
	PathParams   []dsl.Variable
	QueryParams  []dsl.Variable
	RequestType  string
	ResponseType string
	AST          *dsl.Endpoint // parsed signature, shared with the ParsedEndpoint
}

// Manifest is a decoded endpoint manifest before any signature is parsed.
type Manifest struct {
	Title       string
	Version     string
	Description string
	Servers     []Server
	Entries     []Entry
	Location    string // file path, URL or "-" for stdin
}

// Entry is one endpoint signature plus optional metadata. Line and Column
// locate the first byte of Signature in the manifest (both 1-based).
type Entry struct {
	Signature string
	Name      string
	Summary   string
	Tags      []string
	Line      int
	Column    int
}

// ParsedEndpoint pairs an entry with its AST.
type ParsedEndpoint struct {
	Entry    Entry
	Endpoint *dsl.Endpoint
}
