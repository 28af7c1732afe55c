// Package forms decodes server-supplied form metadata into a typed schema.
// Each field carries a Kind resolved once when the metadata is loaded, and
// rendering and validation switch on that kind.
package forms

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind is the tag of a field variant.
type Kind string

const (
	KindText     Kind = "text"
	KindTextarea Kind = "textarea"
	KindRichText Kind = "richtext"
	KindNumber   Kind = "number"
	KindEmail    Kind = "email"
	KindURL      Kind = "url"
	KindSelect   Kind = "select"
	KindCheckbox Kind = "checkbox"
	KindDate     Kind = "date"
	KindImage    Kind = "image"
	KindHidden   Kind = "hidden"
)

var kindAliases = map[string]Kind{}

func init() {
	for kind, names := range map[Kind][]string{
		KindText:     {"text", "string", "char"},
		KindTextarea: {"textarea", "longtext"},
		KindRichText: {"richtext", "wysiwyg", "html"},
		KindNumber:   {"number", "integer", "decimal", "float"},
		KindEmail:    {"email"},
		KindURL:      {"url", "link"},
		KindSelect:   {"select", "choice", "dropdown"},
		KindCheckbox: {"checkbox", "boolean", "bool"},
		KindDate:     {"date", "datetime"},
		KindImage:    {"image", "file", "profilepic"},
		KindHidden:   {"hidden"},
	} {
		for _, name := range names {
			kindAliases[name] = kind
		}
	}
}

// ErrUnknownKind is wrapped by decode errors for unsupported field types.
var ErrUnknownKind = errors.New("unknown field kind")

// Option is a choice of a select field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field is one resolved form field.
type Field struct {
	Name        string
	Label       string
	Kind        Kind
	Required    bool
	Placeholder string
	Help        string
	Default     string
	Options     []Option
	Min         *float64
	Max         *float64
	MaxLength   int
}

// Schema is a form resolved from forms_metadata/{name}.
type Schema struct {
	Name   string
	Title  string
	APIURL string // may contain {id}
	Method string // POST creates, PUT updates
	Fields []Field
}

type rawOption struct {
	Value any    `json:"value"`
	Label string `json:"label"`
}

type rawField struct {
	Name        string          `json:"name"`
	Label       string          `json:"label"`
	Type        string          `json:"type"`
	Required    bool            `json:"required"`
	Placeholder string          `json:"placeholder"`
	Help        string          `json:"help"`
	Default     json.RawMessage `json:"default"`
	Options     json.RawMessage `json:"options"`
	Min         *float64        `json:"min"`
	Max         *float64        `json:"max"`
	MaxLength   int             `json:"maxLength"`
}

type rawSchema struct {
	Name   string     `json:"name"`
	Title  string     `json:"title"`
	APIURL string     `json:"apiUrl"`
	Method string     `json:"method"`
	Fields []rawField `json:"fields"`
}

// Decode resolves raw metadata JSON into a Schema.
func Decode(data []byte) (*Schema, error) {
	var raw rawSchema
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid form metadata: %w", err)
	}
	if strings.TrimSpace(raw.APIURL) == "" {
		return nil, errors.New("form metadata has no apiUrl")
	}

	schema := &Schema{
		Name:   raw.Name,
		Title:  raw.Title,
		APIURL: raw.APIURL,
		Method: strings.ToUpper(strings.TrimSpace(raw.Method)),
	}
	if schema.Method == "" {
		schema.Method = "POST"
	}
	if schema.Method != "POST" && schema.Method != "PUT" {
		return nil, fmt.Errorf("form metadata method %q not supported", raw.Method)
	}

	seen := make(map[string]bool, len(raw.Fields))
	for i, rf := range raw.Fields {
		field, err := resolveField(rf)
		if err != nil {
			return nil, fmt.Errorf("field %d (%s): %w", i, rf.Name, err)
		}
		if seen[field.Name] {
			return nil, fmt.Errorf("field %d: duplicate name %q", i, field.Name)
		}
		seen[field.Name] = true
		schema.Fields = append(schema.Fields, field)
	}
	return schema, nil
}

func resolveField(rf rawField) (Field, error) {
	if strings.TrimSpace(rf.Name) == "" {
		return Field{}, errors.New("field has no name")
	}
	kind, ok := kindAliases[strings.ToLower(strings.TrimSpace(rf.Type))]
	if !ok {
		return Field{}, fmt.Errorf("%w %q", ErrUnknownKind, rf.Type)
	}

	field := Field{
		Name:        rf.Name,
		Label:       rf.Label,
		Kind:        kind,
		Required:    rf.Required,
		Placeholder: rf.Placeholder,
		Help:        rf.Help,
		Default:     scalarString(rf.Default),
		Min:         rf.Min,
		Max:         rf.Max,
		MaxLength:   rf.MaxLength,
	}
	if field.Label == "" {
		field.Label = humanize(rf.Name)
	}

	if kind == KindSelect {
		options, err := decodeOptions(rf.Options)
		if err != nil {
			return Field{}, err
		}
		if len(options) == 0 {
			return Field{}, errors.New("select field has no options")
		}
		field.Options = options
	}
	return field, nil
}

// decodeOptions accepts ["a","b"] or [{"value":..,"label":..}].
func decodeOptions(raw json.RawMessage) ([]Option, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var plain []string
	if err := json.Unmarshal(raw, &plain); err == nil {
		options := make([]Option, len(plain))
		for i, v := range plain {
			options[i] = Option{Value: v, Label: v}
		}
		return options, nil
	}
	var objects []rawOption
	if err := json.Unmarshal(raw, &objects); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	options := make([]Option, len(objects))
	for i, o := range objects {
		value := fmt.Sprint(o.Value)
		label := o.Label
		if label == "" {
			label = value
		}
		options[i] = Option{Value: value, Label: label}
	}
	return options, nil
}

func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func humanize(name string) string {
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// ResolveURL fills the {id} placeholder. Templates without one are returned
// unchanged; a template that needs an id but gets none is an error.
func (s *Schema) ResolveURL(id string) (string, error) {
	if !strings.Contains(s.APIURL, "{id}") {
		return s.APIURL, nil
	}
	if id == "" {
		return "", fmt.Errorf("form %s needs an id", s.Name)
	}
	return strings.ReplaceAll(s.APIURL, "{id}", url.PathEscape(id)), nil
}

// FieldErrors maps field names to messages.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for name, msg := range e {
		parts = append(parts, name+": "+msg)
	}
	sort.Strings(parts)
	return "invalid form: " + strings.Join(parts, "; ")
}

// Validate checks submitted values against the schema and converts them to
// the payload sent to the API. Checkbox values become booleans and numbers
// become float64.
func (s *Schema) Validate(values map[string]string) (map[string]any, FieldErrors) {
	payload := make(map[string]any, len(s.Fields))
	errs := FieldErrors{}

	for _, f := range s.Fields {
		raw := strings.TrimSpace(values[f.Name])

		if f.Kind == KindCheckbox {
			payload[f.Name] = raw == "on" || raw == "true" || raw == "1"
			continue
		}
		if raw == "" {
			if f.Required {
				errs[f.Name] = "is required"
			}
			continue
		}
		if f.MaxLength > 0 && len([]rune(raw)) > f.MaxLength {
			errs[f.Name] = fmt.Sprintf("must be at most %d characters", f.MaxLength)
			continue
		}

		switch f.Kind {
		case KindNumber:
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				errs[f.Name] = "must be a number"
				continue
			}
			if f.Min != nil && n < *f.Min {
				errs[f.Name] = fmt.Sprintf("must be at least %g", *f.Min)
				continue
			}
			if f.Max != nil && n > *f.Max {
				errs[f.Name] = fmt.Sprintf("must be at most %g", *f.Max)
				continue
			}
			payload[f.Name] = n
		case KindEmail:
			if _, err := mail.ParseAddress(raw); err != nil {
				errs[f.Name] = "must be an email address"
				continue
			}
			payload[f.Name] = raw
		case KindURL, KindImage:
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https" && !strings.HasPrefix(raw, "/")) {
				errs[f.Name] = "must be a link"
				continue
			}
			payload[f.Name] = raw
		case KindDate:
			if _, err := time.Parse("2006-01-02", raw); err != nil {
				errs[f.Name] = "must be a date (YYYY-MM-DD)"
				continue
			}
			payload[f.Name] = raw
		case KindSelect:
			if !f.hasOption(raw) {
				errs[f.Name] = "is not one of the choices"
				continue
			}
			payload[f.Name] = raw
		default:
			payload[f.Name] = raw
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return payload, nil
}

func (f Field) hasOption(value string) bool {
	for _, o := range f.Options {
		if o.Value == value {
			return true
		}
	}
	return false
}
