// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package filter

import (
	"regexp"
	"sort"

	"github.com/pkg/errors"
)

// Extended filter strings come in two shapes: a quoted comparison where the
// value may contain whitespace, and a bare-token comparison where the value
// may itself be a field name. Go's regexp has no backreferences, so the two
// quote styles are separate alternatives.
var (
	quotedPattern   = regexp.MustCompile(`^(\w+) *(>=|<=|==|!=|<|>) *(?:'((?:\\?.)*?)'|"((?:\\?.)*?)")$`)
	unquotedPattern = regexp.MustCompile(`^(\w+) *(>=|<=|==|!=|<|>) *(\S+)$`)
)

// Normalize parses the raw filter inputs into canonical terms.
//
// Equality filters map exposed field names to a value or a list of
// alternative values; extended filters are comparison strings like
// "installation_date >= '2020-01-01'". Field names are translated through
// the field table and values rendered by the field's transformer. Names not
// in the table pass through untranslated and unrendered; they are collected
// into the returned diagnostics slice so the caller can surface one
// aggregated warning. A malformed extended filter fails the whole call.
//
// Equality filters are processed in sorted key order so output is
// deterministic.
func Normalize(equality map[string]interface{}, extended []string, fields FieldMap) ([]Term, []string, error) {
	var terms []Term
	var unknown []string

	keys := make([]string, 0, len(equality))
	for k := range equality {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := equality[k]
		field, known := fields.Lookup(k)

		name := k
		transform := Verbatim
		if known {
			if field.NonFilterable {
				return nil, nil, errors.Errorf("filtering on %q is not supported by this service", k)
			}
			name = field.TheirNameGet
			transform = field.transform
		} else {
			unknown = append(unknown, k)
		}

		if isNonStringIterable(v) {
			elems := iterate(v)
			list := make([]string, len(elems))
			for i, elem := range elems {
				rendered, err := transform(elem)
				if err != nil {
					return nil, nil, errors.Wrapf(err, "rendering filter value for %q", k)
				}
				list[i] = rendered
			}
			terms = append(terms, Term{Field: name, Op: OpEq, List: list})
			continue
		}

		rendered, err := transform(v)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "rendering filter value for %q", k)
		}
		terms = append(terms, Term{Field: name, Op: OpEq, Value: rendered})
	}

	for _, entry := range extended {
		term, unknownName, err := parseExtended(entry, fields)
		if err != nil {
			return nil, nil, err
		}
		if unknownName != "" {
			unknown = append(unknown, unknownName)
		}
		terms = append(terms, term)
	}

	return terms, unknown, nil
}

func parseExtended(entry string, fields FieldMap) (Term, string, error) {
	var key, symbol, value string
	var quote byte

	if m := quotedPattern.FindStringSubmatch(entry); m != nil {
		key, symbol = m[1], m[2]
		if m[3] != "" || entry[len(entry)-1] == '\'' {
			value, quote = m[3], '\''
		} else {
			value, quote = m[4], '"'
		}
	} else if m := unquotedPattern.FindStringSubmatch(entry); m != nil {
		key, symbol, value = m[1], m[2], m[3]
	} else {
		return Term{}, "", errors.Errorf("failed to parse filter entry %q", entry)
	}

	op, ok := ParseOperator(symbol)
	if !ok {
		return Term{}, "", errors.Errorf("unknown operator %q in filter entry %q", symbol, entry)
	}

	field, known := fields.Lookup(key)
	if known {
		if field.NonFilterable {
			return Term{}, "", errors.Errorf("filtering on %q is not supported by this service", key)
		}
		if quote == 0 {
			// A bare token naming another field is a field-to-field
			// comparison and must stay unquoted.
			if target, ok := fields.Lookup(value); ok {
				return Term{Field: field.TheirNameGet, Op: op, Value: target.TheirNameGet}, "", nil
			}
		}
		rendered, err := field.transform(value)
		if err != nil {
			return Term{}, "", errors.Wrapf(err, "rendering filter value in %q", entry)
		}
		return Term{Field: field.TheirNameGet, Op: op, Value: rendered}, "", nil
	}

	// Unknown fields keep the caller's own quoting: a quoted value is
	// re-quoted with the same quote character, a bare token passes through
	// completely unchanged (numbers, null, datetimeoffset'...' and so on).
	if quote != 0 {
		value = string(quote) + value + string(quote)
	}
	return Term{Field: key, Op: op, Value: value}, key, nil
}
