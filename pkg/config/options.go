package config

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
)

// Options is the untyped option map the host supplies to a scan.
type Options map[string]string

// ParseOptionList turns host catalog entries of the form name=value into
// Options. Entries without "=" are kept with an empty value so that their
// presence still counts.
func ParseOptionList(list []string) Options {
	opts := make(Options, len(list))
	for _, entry := range list {
		name, value, _ := strings.Cut(entry, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		opts[name] = value
	}
	return opts
}

// CheckOptionsContain fails with a configuration error when name is absent
// from the raw host option list.
func CheckOptionsContain(list []string, name string, scope core.Scope) error {
	prefix := name + "="
	for _, entry := range list {
		if entry == name || strings.HasPrefix(entry, prefix) {
			return nil
		}
	}
	return errors.MissingOption(name, scope.String())
}

// Has reports whether name is present
func (o Options) Has(name string) bool {
	_, ok := o[name]
	return ok
}

// Require returns the non-empty value of name or a configuration error.
func (o Options) Require(name string, scope core.Scope) (string, error) {
	v, ok := o[name]
	if !ok || strings.TrimSpace(v) == "" {
		return "", errors.MissingOption(name, scope.String())
	}
	return v, nil
}

// Get returns the value of name or def when absent or empty.
func (o Options) Get(name, def string) string {
	if v, ok := o[name]; ok && v != "" {
		return v
	}
	return def
}

// Int returns name parsed as an integer, def when absent.
func (o Options) Int(name string, def int) (int, error) {
	v, ok := o[name]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, errors.InvalidOption(name, v, err)
	}
	return n, nil
}

// Bool returns name parsed as a boolean, def when absent.
func (o Options) Bool(name string, def bool) (bool, error) {
	v, ok := o[name]
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, errors.InvalidOption(name, v, err)
	}
	return b, nil
}

// Merge returns a copy of o overlaid with other. Keys in other win.
func (o Options) Merge(other Options) Options {
	out := make(Options, len(o)+len(other))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// List renders the options as sorted name=value entries.
func (o Options) List() []string {
	out := make([]string, 0, len(o))
	for k, v := range o {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
