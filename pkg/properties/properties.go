// Package properties holds the build properties the goals publish into.
package properties

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	slogcontext "github.com/veqryn/slog-context"
)

// placeholder matches ${name} references
var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

// Properties is an insertion-ordered set of named string values
type Properties struct {
	names  []string
	values map[string]string
}

// New creates an empty property set
func New() *Properties {
	return &Properties{
		values: make(map[string]string),
	}
}

// Set adds or replaces a property
func (p *Properties) Set(name, value string) {
	if _, exists := p.values[name]; !exists {
		p.names = append(p.names, name)
	}
	p.values[name] = value
}

// Get returns the value of a property
func (p *Properties) Get(name string) (string, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Names returns the property names in insertion order
func (p *Properties) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Len returns the number of properties
func (p *Properties) Len() int {
	return len(p.names)
}

// Interpolate replaces ${name} references in every value with the value of
// the named property. Unknown names and self references are left as they are.
// Each value is expanded once against the values as they were before the call.
func (p *Properties) Interpolate() {
	snapshot := make(map[string]string, len(p.values))
	for k, v := range p.values {
		snapshot[k] = v
	}

	for _, name := range p.names {
		p.values[name] = placeholder.ReplaceAllStringFunc(snapshot[name], func(ref string) string {
			key := placeholder.FindStringSubmatch(ref)[1]
			if key == name {
				return ref
			}
			if v, ok := snapshot[key]; ok {
				return v
			}
			return ref
		})
	}
}

// Export mirrors every property through setenv, typically os.Setenv
func (p *Properties) Export(setenv func(key, value string) error) error {
	for _, name := range p.names {
		if err := setenv(name, p.values[name]); err != nil {
			return fmt.Errorf("failed to export property %s: %w", name, err)
		}
	}
	return nil
}

// Debug logs every property at debug level
func (p *Properties) Debug(ctx context.Context) {
	logger := slogcontext.FromCtx(ctx)
	for _, name := range p.names {
		logger.Log(ctx, slog.LevelDebug, "property", slog.String("name", name), slog.String("value", p.values[name]))
	}
}

// WriteTo writes the properties in Java .properties format, sorted by name
func (p *Properties) WriteTo(w io.Writer) (int64, error) {
	names := p.Names()
	sort.Strings(names)

	var written int64
	for _, name := range names {
		n, err := fmt.Fprintf(w, "%s=%s\n", escapeKey(name), escapeValue(p.values[name]))
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

var keyEscaper = strings.NewReplacer(`\`, `\\`, `=`, `\=`, `:`, `\:`, ` `, `\ `, "\n", `\n`)

var valueEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

func escapeKey(s string) string {
	return keyEscaper.Replace(s)
}

func escapeValue(s string) string {
	return valueEscaper.Replace(s)
}
