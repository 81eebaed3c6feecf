// Package autocomplete looks a person up by identifier and copies the response
// into form fields, locking what it filled and unlocking everything again on
// not-found, error, or reset.
package autocomplete

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hyperjump/montero/internal/lookup"
	"github.com/hyperjump/montero/pkg/utils"
)

// Defaults for the full identifier shape and the engine behavior.
const (
	DefaultTypeField   = "tipoDocumento"
	DefaultValueField  = "numeroDocumento"
	DefaultFixedType   = "CC"
	DefaultMinDigits   = 5
	DefaultDebounce    = 300 * time.Millisecond
	DefaultMessageTTL  = 5 * time.Second
	DefaultEndpoint    = lookup.UsuariosEndpoint
	defaultFoundText   = "User found. Fields were filled automatically."
	defaultMissingText = "User not found. Please complete the fields manually."
	defaultErrorPrefix = "User lookup failed: "
)

// Identifier says where the identifier type and value come from. It is either
// Full or Simplified.
type Identifier interface {
	valueField() string
	// typeSource returns the type field, or the fixed type when there is none.
	typeSource() (field string, fixed string)
}

// Full reads the identifier type from its own field; changing that field resets
// the form.
type Full struct {
	TypeField  string
	ValueField string
}

func (f Full) valueField() string           { return f.ValueField }
func (f Full) typeSource() (string, string) { return f.TypeField, "" }

// Simplified uses a single value field and a fixed identifier type.
type Simplified struct {
	ValueField  string
	DefaultType string
}

func (s Simplified) valueField() string           { return s.ValueField }
func (s Simplified) typeSource() (string, string) { return "", s.DefaultType }

// FieldMapping copies one response attribute into one form field. When Compose
// is set the field receives the space-joined values of those attributes instead
// of Remote.
type FieldMapping struct {
	Remote   string
	Selector string
	Compose  []string
}

// Map maps a single attribute to a selector.
func Map(remote, selector string) FieldMapping {
	return FieldMapping{Remote: remote, Selector: selector}
}

// Compose maps several attributes, joined by a space, to one selector.
func Compose(selector string, remotes ...string) FieldMapping {
	return FieldMapping{Selector: selector, Compose: remotes}
}

// resolve returns the text for the mapping and whether the entity defines it.
func (m FieldMapping) resolve(e lookup.Entity) (string, bool) {
	if len(m.Compose) == 0 {
		if !e.Has(m.Remote) {
			return "", false
		}
		return FormatValue(e[m.Remote]), true
	}
	var parts []string
	found := false
	for _, attr := range m.Compose {
		if e.Has(attr) {
			found = true
			parts = append(parts, FormatValue(e[attr]))
		}
	}
	return utils.JoinNonEmpty(" ", parts...), found
}

// Messages holds the feedback texts.
type Messages struct {
	Found       string
	NotFound    string
	ErrorPrefix string
}

// Config configures an Engine. Zero values take the documented defaults.
type Config struct {
	Identifier Identifier
	// Endpoint is informational; the Lookuper decides the actual URL.
	Endpoint string
	Mapping  []FieldMapping

	OnSuccess  func(lookup.Entity)
	OnNotFound func()
	OnError    func(error)

	AutoLock     *bool
	ShowMessages *bool
	MinDigits    int
	Debounce     time.Duration
	Messages     Messages
}

// AutoLockOrDefault returns whether filled fields are locked; defaults to true when unset.
func (c *Config) AutoLockOrDefault() bool {
	if c.AutoLock != nil {
		return *c.AutoLock
	}
	return true
}

// ShowMessagesOrDefault returns whether feedback is rendered; defaults to true when unset.
func (c *Config) ShowMessagesOrDefault() bool {
	if c.ShowMessages != nil {
		return *c.ShowMessages
	}
	return true
}

// Bool returns a pointer to b, for the optional Config flags.
func Bool(b bool) *bool { return &b }

// DefaultMapping is the usuario mapping used when a config gives none: every
// attribute fills the field with the same id.
func DefaultMapping() []FieldMapping {
	names := []string{
		"primerNombre", "segundoNombre", "primerApellido", "segundoApellido",
		"correoElectronico", "telefonoCelular", "direccion",
		"ibc", "claseRiesgoARL", "empresa_nit",
		"epsNombre", "afpNombre", "arlNombre", "ccfNombre",
	}
	out := make([]FieldMapping, len(names))
	for i, n := range names {
		out[i] = Map(n, n)
	}
	return out
}

// ApplyDefaults fills zero values in cfg.
func ApplyDefaults(cfg *Config) {
	switch id := cfg.Identifier.(type) {
	case nil:
		cfg.Identifier = Full{TypeField: DefaultTypeField, ValueField: DefaultValueField}
	case Full:
		if id.TypeField == "" {
			id.TypeField = DefaultTypeField
		}
		if id.ValueField == "" {
			id.ValueField = DefaultValueField
		}
		cfg.Identifier = id
	case Simplified:
		if id.ValueField == "" {
			id.ValueField = DefaultValueField
		}
		if id.DefaultType == "" {
			id.DefaultType = DefaultFixedType
		}
		cfg.Identifier = id
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Mapping == nil {
		cfg.Mapping = DefaultMapping()
	}
	if cfg.MinDigits < 1 {
		cfg.MinDigits = DefaultMinDigits
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Messages.Found == "" {
		cfg.Messages.Found = defaultFoundText
	}
	if cfg.Messages.NotFound == "" {
		cfg.Messages.NotFound = defaultMissingText
	}
	if cfg.Messages.ErrorPrefix == "" {
		cfg.Messages.ErrorPrefix = defaultErrorPrefix
	}
}

// Targets returns the distinct mapped selectors in mapping order.
func (c *Config) Targets() []string {
	seen := make(map[string]struct{}, len(c.Mapping))
	out := make([]string, 0, len(c.Mapping))
	for _, m := range c.Mapping {
		if _, ok := seen[m.Selector]; ok {
			continue
		}
		seen[m.Selector] = struct{}{}
		out = append(out, m.Selector)
	}
	return out
}

// LegacyOptions is the older one-field configuration shape: an input id, a flat
// attribute-to-selector map, and one success callback.
type LegacyOptions struct {
	InputID  string
	Mapping  map[string]string
	Callback func(lookup.Entity)
}

// Normalize converts the legacy shape into a simplified Config. Map entries are
// ordered by attribute name.
func (o LegacyOptions) Normalize() Config {
	cfg := Config{
		Identifier: Simplified{ValueField: o.InputID},
		OnSuccess:  o.Callback,
	}
	if o.Mapping != nil {
		remotes := make([]string, 0, len(o.Mapping))
		for r := range o.Mapping {
			remotes = append(remotes, r)
		}
		sort.Strings(remotes)
		cfg.Mapping = make([]FieldMapping, 0, len(remotes))
		for _, r := range remotes {
			cfg.Mapping = append(cfg.Mapping, Map(r, o.Mapping[r]))
		}
	}
	return cfg
}

// FormatValue renders a decoded JSON value as field text. Nil becomes "".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return strings.Trim(string(b), `"`)
	}
}
