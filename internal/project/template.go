// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package project

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Template syntax:
//
//	{name}          value of field "name"
//	{name:0>3}      padded to width 3 with '0', right aligned (align is <, > or ^)
//	{name:03}       zero flag: '0' fill; numbers are padded after their sign
//	                ("7" -> "007", "-7" -> "-07"), other values are left aligned
//	{{ and }}       literal braces

type placeholder struct {
	name  string
	fill  rune
	align byte // 0 when not given
	zero  bool
	width int
}

// scanTemplate walks tmpl, calling lit for literal text and ph for each placeholder.
func scanTemplate(tmpl string, lit func(string), ph func(placeholder) error) error {
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			lit(text.String())
			text.Reset()
		}
	}

	for i := 0; i < len(tmpl); {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				text.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexAny(tmpl[i+1:], "{}")
			if end < 0 || tmpl[i+1+end] != '}' {
				return fmt.Errorf("%w: unclosed '{' at offset %d", ErrMalformedTemplate, i)
			}
			p, err := parsePlaceholder(tmpl[i+1 : i+1+end])
			if err != nil {
				return fmt.Errorf("%w: offset %d: %v", ErrMalformedTemplate, i, err)
			}
			flush()
			if err := ph(p); err != nil {
				return err
			}
			i += end + 2
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				text.WriteByte('}')
				i += 2
				continue
			}
			return fmt.Errorf("%w: single '}' at offset %d", ErrMalformedTemplate, i)
		default:
			text.WriteByte(c)
			i++
		}
	}
	flush()
	return nil
}

func parsePlaceholder(body string) (placeholder, error) {
	name, spec, hasSpec := strings.Cut(body, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return placeholder{}, fmt.Errorf("empty placeholder name")
	}
	p := placeholder{name: name, fill: ' '}
	if !hasSpec || spec == "" {
		return p, nil
	}

	// [[fill]align][0]width
	explicitFill := false
	if r, size := utf8.DecodeRuneInString(spec); size < len(spec) && isAlign(spec[size]) {
		p.fill = r
		p.align = spec[size]
		spec = spec[size+1:]
		explicitFill = true
	} else if isAlign(spec[0]) {
		p.align = spec[0]
		spec = spec[1:]
	}
	if len(spec) > 1 && spec[0] == '0' {
		p.zero = true
		if !explicitFill {
			p.fill = '0'
		}
		spec = spec[1:]
	}
	if spec == "" {
		return p, nil
	}
	width, err := strconv.Atoi(spec)
	if err != nil || width < 0 {
		return placeholder{}, fmt.Errorf("invalid format spec for %q", name)
	}
	p.width = width
	return p, nil
}

func isAlign(b byte) bool {
	return b == '<' || b == '>' || b == '^'
}

func (p placeholder) apply(value string) string {
	n := utf8.RuneCountInString(value)
	if n >= p.width {
		return value
	}
	pad := p.width - n
	fill := string(p.fill)

	align := p.align
	if align == 0 {
		align = '<'
		if _, err := strconv.ParseFloat(value, 64); p.zero && err == nil {
			align = '='
		}
	}
	switch align {
	case '=':
		sign := ""
		if value[0] == '-' || value[0] == '+' {
			sign, value = value[:1], value[1:]
		}
		return sign + strings.Repeat(fill, pad) + value
	case '>':
		return strings.Repeat(fill, pad) + value
	case '^':
		left := pad / 2
		return strings.Repeat(fill, left) + value + strings.Repeat(fill, pad-left)
	default:
		return value + strings.Repeat(fill, pad)
	}
}

// Placeholders returns the distinct placeholder names of tmpl in order of first appearance.
func Placeholders(tmpl string) ([]string, error) {
	var names []string
	seen := map[string]struct{}{}
	err := scanTemplate(tmpl, func(string) {}, func(p placeholder) error {
		if _, ok := seen[p.name]; !ok {
			seen[p.name] = struct{}{}
			names = append(names, p.name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// FormatTemplate substitutes every placeholder in tmpl with its value from fields.
// All missing fields are reported together.
func FormatTemplate(tmpl string, fields map[string]string) (string, error) {
	var out strings.Builder
	var missing []string
	err := scanTemplate(tmpl, func(s string) {
		out.WriteString(s)
	}, func(p placeholder) error {
		v, ok := fields[p.name]
		if !ok {
			missing = append(missing, p.name)
			return nil
		}
		out.WriteString(p.apply(v))
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingField, strings.Join(dedupe(missing), ", "))
	}
	return out.String(), nil
}

// Format formats the template called name.
func (c *Config) Format(name string, fields map[string]string) (string, error) {
	tmpl, ok := c.Template[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	s, err := FormatTemplate(tmpl, fields)
	if err != nil {
		return "", fmt.Errorf("template %q: %w", name, err)
	}
	return s, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
