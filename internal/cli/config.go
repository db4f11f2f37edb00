package cli

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/endpointdsl/internal/dsl"
	genspec "github.com/mark3labs/endpointdsl/internal/spec"
)

// Config captures all inputs that influence a command after merging
// defaults, config file values, and CLI overrides. Each command reads the
// fields it needs.
type Config struct {
	Input             string
	Format            string `validate:"omitempty,oneof=text json yaml"`
	Out               string
	Title             string
	Version           string
	IncludeTags       []string
	ExcludeTags       []string
	Methods           []string `validate:"omitempty,dive,oneof=GET POST PUT DELETE"`
	PathPatterns      []string
	Workers           int `validate:"gte=0,lte=1024"`
	MaxInputLength    int `validate:"gte=0"`
	MaxPathComponents int `validate:"gte=0"`
	MaxQueryParams    int `validate:"gte=0"`
	ConfigPath        string
	DryRun            bool
	Force             bool
	Verbose           bool
	Watch             bool
}

func defaultConfig() Config {
	limits := dsl.DefaultLimits()
	return Config{
		MaxInputLength:    limits.MaxInputLength,
		MaxPathComponents: limits.MaxPathComponents,
		MaxQueryParams:    limits.MaxQueryParams,
	}
}

var configValidator = validator.New()

// Parser returns a parser enforcing the configured limits.
func (c *Config) Parser() *dsl.Parser {
	return dsl.NewParser(dsl.WithLimits(dsl.Limits{
		MaxInputLength:    c.MaxInputLength,
		MaxPathComponents: c.MaxPathComponents,
		MaxQueryParams:    c.MaxQueryParams,
	}))
}

// ParseOptions returns the manifest parse options for this config.
func (c *Config) ParseOptions() []genspec.ParseOption {
	return []genspec.ParseOption{genspec.WithWorkers(c.Workers), genspec.WithParser(c.Parser())}
}

// MethodFilter converts Methods to AST methods.
func (c *Config) MethodFilter() []dsl.Method {
	out := make([]dsl.Method, 0, len(c.Methods))
	for _, m := range c.Methods {
		out = append(out, dsl.Method(m))
	}
	return out
}

// CompiledPathPatterns compiles PathPatterns.
func (c *Config) CompiledPathPatterns() ([]*regexp.Regexp, error) {
	var out []*regexp.Regexp
	for _, p := range c.PathPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, newUsageError(fmt.Sprintf("invalid path pattern %q: %v", p, err))
		}
		out = append(out, re)
	}
	return out, nil
}

func resolveConfig(cmd *cobra.Command) (*Config, error) {
	cfg := defaultConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	if err := cfg.validate(cmd.Name()); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// addLimitFlags registers the parser limit and worker flags on a command.
func addLimitFlags(flags *pflag.FlagSet) {
	limits := dsl.DefaultLimits()
	flags.Int("max-input-length", limits.MaxInputLength, "Maximum signature length in bytes (0 = unlimited)")
	flags.Int("max-path-components", limits.MaxPathComponents, "Maximum path components per signature (0 = unlimited)")
	flags.Int("max-query-params", limits.MaxQueryParams, "Maximum query parameters per signature (0 = unlimited)")
	flags.Int("workers", 0, "Signatures parsed concurrently (0 = GOMAXPROCS)")
}

func applyFlagOverrides(flags *pflag.FlagSet, cfg *Config) error {
	strFlags := map[string]*string{
		"input":   &cfg.Input,
		"format":  &cfg.Format,
		"out":     &cfg.Out,
		"title":   &cfg.Title,
		"version": &cfg.Version,
	}
	for name, dst := range strFlags {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}

	sliceFlags := map[string]*[]string{
		"include-tags":  &cfg.IncludeTags,
		"exclude-tags":  &cfg.ExcludeTags,
		"methods":       &cfg.Methods,
		"path-patterns": &cfg.PathPatterns,
	}
	for name, dst := range sliceFlags {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetStringSlice(name)
		if err != nil {
			return err
		}
		*dst = sanitizeList(value)
	}

	intFlags := map[string]*int{
		"workers":             &cfg.Workers,
		"max-input-length":    &cfg.MaxInputLength,
		"max-path-components": &cfg.MaxPathComponents,
		"max-query-params":    &cfg.MaxQueryParams,
	}
	for name, dst := range intFlags {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetInt(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	boolFlags := map[string]*bool{
		"dry-run": &cfg.DryRun,
		"force":   &cfg.Force,
		"verbose": &cfg.Verbose,
		"watch":   &cfg.Watch,
	}
	for name, dst := range boolFlags {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	return nil
}

func (c *Config) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Out = strings.TrimSpace(c.Out)
	c.Title = strings.TrimSpace(c.Title)
	c.Version = strings.TrimSpace(c.Version)
	c.IncludeTags = sanitizeList(c.IncludeTags)
	c.ExcludeTags = sanitizeList(c.ExcludeTags)
	c.PathPatterns = sanitizeList(c.PathPatterns)
	methods := sanitizeList(c.Methods)
	for i := range methods {
		methods[i] = strings.ToUpper(methods[i])
	}
	c.Methods = sanitizeList(methods)
}

func (c *Config) validate(command string) error {
	if err := configValidator.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			rule := fe.Tag()
			if fe.Param() != "" {
				rule += "=" + fe.Param()
			}
			return newUsageError(fmt.Sprintf("%s: invalid %s %v (rule %s)", command, fe.Field(), fe.Value(), rule))
		}
		return newUsageError(fmt.Sprintf("%s: %v", command, err))
	}

	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("%s: include/exclude tags overlap: %s", command, strings.Join(overlap, ", ")))
	}
	return nil
}

func sanitizeList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}

func applyConfigFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	for key, value := range raw {
		if err := applyConfigValue(cfg, normalizeKey(key), value); err != nil {
			if errors.Is(err, errUnknownField) {
				return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
			}
			return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
		}
	}

	return nil
}

var errUnknownField = errors.New("unknown field")

func applyConfigValue(cfg *Config, key string, value any) error {
	var err error
	switch key {
	case "input":
		cfg.Input, err = valueAsString(value)
	case "format":
		cfg.Format, err = valueAsString(value)
	case "out":
		cfg.Out, err = valueAsString(value)
	case "title":
		cfg.Title, err = valueAsString(value)
	case "version":
		cfg.Version, err = valueAsString(value)
	case "includetags":
		cfg.IncludeTags, err = valueAsStringSlice(value)
	case "excludetags":
		cfg.ExcludeTags, err = valueAsStringSlice(value)
	case "methods":
		cfg.Methods, err = valueAsStringSlice(value)
	case "pathpatterns":
		cfg.PathPatterns, err = valueAsStringSlice(value)
	case "workers":
		cfg.Workers, err = valueAsInt(value)
	case "maxinputlength":
		cfg.MaxInputLength, err = valueAsInt(value)
	case "maxpathcomponents":
		cfg.MaxPathComponents, err = valueAsInt(value)
	case "maxqueryparams":
		cfg.MaxQueryParams, err = valueAsInt(value)
	case "dryrun":
		cfg.DryRun, err = valueAsBool(value)
	case "force":
		cfg.Force, err = valueAsBool(value)
	case "verbose":
		cfg.Verbose, err = valueAsBool(value)
	case "watch":
		cfg.Watch, err = valueAsBool(value)
	default:
		return errUnknownField
	}
	return err
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case nil:
		return "", nil
	case int, float64:
		return fmt.Sprint(val), nil
	default:
		return "", fmt.Errorf("expected string, got %T", v)
	}
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		return splitAndTrim(val), nil
	case []any:
		items := make([]string, 0, len(val))
		for idx, elem := range val {
			str, err := valueAsString(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", idx, err)
			}
			if str != "" {
				items = append(items, str)
			}
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected string or list, got %T", v)
	}
}

func valueAsInt(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case nil:
		return 0, nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
}

func valueAsBool(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		trimmed := strings.ToLower(strings.TrimSpace(val))
		switch trimmed {
		case "true", "t", "1", "yes", "y":
			return true, nil
		case "false", "f", "0", "no", "n":
			return false, nil
		case "":
			return false, nil
		default:
			return false, fmt.Errorf("invalid boolean value %q", val)
		}
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("expected boolean, got %T", v)
	}
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
