package spec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
)

// SpecError is a structured error with optional location and JSON Pointer.
type SpecError struct {
	Code        ErrorCode
	Message     string
	Location    string // file path or URL, optionally with :line
	JSONPointer string // e.g. "#/paths/~1pets/get"
	Cause       error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// Settings configures loader behavior.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
	// MaxBytes caps the size of a manifest read from any source.
	MaxBytes int64
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
		MaxBytes:    8 << 20,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option             { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option  { return func(s *Settings) { s.BackoffBase = d } }
func WithMaxBytes(n int64) Option             { return func(s *Settings) { s.MaxBytes = n } }

// Load reads and decodes an endpoint manifest. input may be a filesystem path
// or an http/https URL; file:// URLs are rejected.
//
// Two formats are accepted. A YAML document whose root mapping has an
// "endpoints" key is decoded as a structured manifest; anything else is read
// as plain text with one signature per line, where blank lines and lines
// starting with '#' are ignored.
func Load(ctx context.Context, input string, opts ...Option) (*Manifest, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &SpecError{Code: InputError, Message: "manifest: input is empty"}
	}

	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}

	u, uerr := url.Parse(input)
	isURL := uerr == nil && u.Scheme != "" && u.Host != ""

	if isURL {
		scheme := strings.ToLower(u.Scheme)
		if scheme == "file" {
			return nil, &SpecError{Code: InputError, Message: "manifest: file:// URLs are not supported, pass a path", Location: input}
		}
		if scheme != "http" && scheme != "https" {
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("manifest: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
		}
		raw, err := fetchWithRetry(ctx, input, settings)
		if err != nil {
			return nil, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
		}
		return Decode(raw, input)
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
	}
	raw, err := readFileLimited(abs, settings.MaxBytes)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
	}
	return Decode(raw, abs)
}

// LoadReader decodes a manifest from r, for example stdin.
func LoadReader(r io.Reader, location string, opts ...Option) (*Manifest, error) {
	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	raw, err := readAllLimited(r, settings.MaxBytes)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read %s: %v", location, err), Location: location, Cause: err}
	}
	return Decode(raw, location)
}

// Decode detects the manifest format of data and decodes it. location is
// recorded on the manifest and used in error messages.
func Decode(data []byte, location string) (*Manifest, error) {
	var root yaml.Node
	yerr := yaml.Unmarshal(data, &root)
	if yerr == nil && hasEndpointsKey(&root) {
		return decodeYAML(&root, location)
	}
	if isYAMLPath(location) {
		if yerr != nil {
			return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("parse manifest: %v", yerr), Location: location, Cause: yerr}
		}
		return nil, &SpecError{Code: ParseError, Message: "manifest: missing top-level \"endpoints\" list", Location: location}
	}
	return decodeText(data, location), nil
}

func isYAMLPath(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	return ext == ".yaml" || ext == ".yml"
}

func hasEndpointsKey(root *yaml.Node) bool {
	doc := root
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value == "endpoints" {
			return true
		}
	}
	return false
}

type yamlManifest struct {
	Title       string      `yaml:"title"`
	Version     string      `yaml:"version"`
	Description string      `yaml:"description"`
	Servers     []Server    `yaml:"servers"`
	Endpoints   []yamlEntry `yaml:"endpoints"`
}

// yamlEntry accepts either a bare signature string or a mapping with an
// "endpoint" key plus metadata.
type yamlEntry struct {
	Entry
}

func (e *yamlEntry) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		e.Signature = value.Value
		e.Line, e.Column = scalarStart(value)
		return nil
	case yaml.MappingNode:
		var raw struct {
			Endpoint string   `yaml:"endpoint"`
			Name     string   `yaml:"name"`
			Summary  string   `yaml:"summary"`
			Tags     []string `yaml:"tags"`
		}
		if err := value.Decode(&raw); err != nil {
			return err
		}
		if strings.TrimSpace(raw.Endpoint) == "" {
			return fmt.Errorf("line %d: entry is missing \"endpoint\"", value.Line)
		}
		e.Signature = raw.Endpoint
		e.Name = strings.TrimSpace(raw.Name)
		e.Summary = strings.TrimSpace(raw.Summary)
		e.Tags = raw.Tags
		e.Line, e.Column = value.Line, value.Column
		for i := 0; i+1 < len(value.Content); i += 2 {
			if value.Content[i].Value == "endpoint" {
				e.Line, e.Column = scalarStart(value.Content[i+1])
			}
		}
		return nil
	default:
		return fmt.Errorf("line %d: entry must be a string or a mapping", value.Line)
	}
}

// scalarStart returns the position of the first content byte of a scalar,
// skipping the opening quote of quoted styles.
func scalarStart(n *yaml.Node) (int, int) {
	if n.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0 {
		return n.Line, n.Column + 1
	}
	return n.Line, n.Column
}

func decodeYAML(root *yaml.Node, location string) (*Manifest, error) {
	var raw yamlManifest
	if err := root.Decode(&raw); err != nil {
		return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("decode manifest: %v", err), Location: location, Cause: err}
	}
	m := &Manifest{
		Title:       strings.TrimSpace(raw.Title),
		Version:     strings.TrimSpace(raw.Version),
		Description: strings.TrimSpace(raw.Description),
		Servers:     raw.Servers,
		Location:    location,
	}
	for _, e := range raw.Endpoints {
		m.Entries = append(m.Entries, e.Entry)
	}
	return m, nil
}

func decodeText(data []byte, location string) *Manifest {
	m := &Manifest{Location: location}
	lines := strings.Split(string(data), "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimLeft(line, " \t")
		if strings.TrimSpace(trimmed) == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		m.Entries = append(m.Entries, Entry{
			Signature: strings.TrimRight(trimmed, " \t"),
			Line:      i + 1,
			Column:    len(line) - len(trimmed) + 1,
		})
	}
	return m
}

func readFileLimited(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readAllLimited(f, limit)
}

func readAllLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("manifest exceeds %d bytes", limit)
	}
	return data, nil
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	var lastErr error
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err == nil && resp.StatusCode < 300 {
			data, rerr := readAllLimited(resp.Body, settings.MaxBytes)
			resp.Body.Close()
			return data, rerr
		}
		if err != nil {
			lastErr = err
		} else {
			status := resp.StatusCode
			if status >= 500 || status == http.StatusTooManyRequests {
				resp.Body.Close()
				lastErr = fmt.Errorf("transient http error %d", status)
			} else {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
				resp.Body.Close()
				return nil, fmt.Errorf("http %d: %s", status, strings.TrimSpace(string(body)))
			}
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, lastErr
}
