// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package filter

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Operator is a comparison operator in a filter term. Its string form is the
// OData wire token ("eq", "ne", ...), which is what the backends understand.
type Operator int

const (
	OpEq Operator = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var opTokens = [...]string{"eq", "ne", "lt", "le", "gt", "ge"}

func (op Operator) String() string {
	if op < OpEq || op > OpGe {
		return fmt.Sprintf("Operator(%d)", int(op))
	}
	return opTokens[op]
}

var symbolOps = map[string]Operator{
	"==": OpEq,
	"!=": OpNe,
	"<":  OpLt,
	"<=": OpLe,
	">":  OpGt,
	">=": OpGe,
}

// ParseOperator maps a comparison symbol ("==", "<=", ...) to its Operator.
func ParseOperator(symbol string) (Operator, bool) {
	op, ok := symbolOps[symbol]
	return op, ok
}

// Term is one canonical filter term produced by Normalize. A non-nil List
// denotes "match any of these" and makes the term breakable; otherwise Value
// holds the single rendered operand. Terms are never mutated after Normalize.
type Term struct {
	Field string
	Op    Operator
	Value string
	List  []string
}

// IsList reports whether the term is a multi-valued equality.
func (t Term) IsList() bool {
	return t.List != nil
}

func (t Term) String() string {
	if t.IsList() {
		return fmt.Sprintf("%s %s [%s]", t.Field, t.Op, strings.Join(t.List, ", "))
	}
	return fmt.Sprintf("%s %s %s", t.Field, t.Op, t.Value)
}

// Transformer renders a raw filter value into its wire representation for
// one field. Each backend dialect supplies its own set; QuoteString is the
// default for the AssetCentral-style services.
type Transformer func(value interface{}) (string, error)

// Field describes one property of an entity: the name we expose, the names
// the backend uses for reads and writes, and how query values are rendered.
type Field struct {
	OurName      string
	TheirNameGet string
	TheirNamePut string

	// IsMandatory marks fields that must be present in write payloads.
	IsMandatory bool
	// Hidden fields are carried for completeness but not exposed as columns.
	Hidden bool
	// NonFilterable fields cannot be used in queries; the post-fetch
	// evaluator skips them with a diagnostic instead.
	NonFilterable bool

	// Transform renders query values for this field. Nil means QuoteString.
	Transform Transformer
	// Extract converts the raw backend value on reads. Nil means identity.
	Extract func(value interface{}) interface{}
}

func (f *Field) transform(v interface{}) (string, error) {
	if f.Transform != nil {
		return f.Transform(v)
	}
	return QuoteString(v)
}

// ExtractFrom returns the field's value from a raw record, converted.
func (f *Field) ExtractFrom(record map[string]interface{}) interface{} {
	v := record[f.TheirNameGet]
	if f.Extract != nil {
		return f.Extract(v)
	}
	return v
}

// IsWritable reports whether the field has a write-side name.
func (f *Field) IsWritable() bool {
	return f.TheirNamePut != ""
}

// FieldMap is an ordered field table for one entity type. Lookups are by the
// exposed name; tables are small enough that a scan beats a second index.
type FieldMap []*Field

// Lookup finds a field by its exposed name.
func (m FieldMap) Lookup(ourName string) (*Field, bool) {
	for _, f := range m {
		if f.OurName == ourName {
			return f, true
		}
	}
	return nil, false
}

// LookupTheir finds a field by the backend's read-side name.
func (m FieldMap) LookupTheir(theirName string) (*Field, bool) {
	for _, f := range m {
		if f.TheirNameGet == theirName {
			return f, true
		}
	}
	return nil, false
}

// Exposed returns the exposed field names in declaration order.
func (m FieldMap) Exposed() []string {
	var names []string
	for _, f := range m {
		if !f.Hidden {
			names = append(names, f.OurName)
		}
	}
	return names
}

func isNull(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == "null"
}

func stringify(v interface{}) string {
	return fmt.Sprintf("%v", v)
}

// QuoteString renders a value in single quotes, except the literal null.
// Already-quoted values pass through unchanged so rendering is idempotent.
func QuoteString(v interface{}) (string, error) {
	if isNull(v) {
		return "null", nil
	}
	s := stringify(v)
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s, nil
	}
	return "'" + s + "'", nil
}

// Verbatim renders a value exactly as given, with no quoting.
func Verbatim(v interface{}) (string, error) {
	return stringify(v), nil
}

// Double renders a numeric value with the OData double suffix, e.g. "2.5d".
func Double(v interface{}) (string, error) {
	if isNull(v) {
		return "null", nil
	}
	return stringify(v) + "d", nil
}

// BoolIntString renders a boolean as the backend's quoted '0'/'1' dialect.
func BoolIntString(v interface{}) (string, error) {
	if isNull(v) {
		return "null", nil
	}
	b, ok := v.(bool)
	if !ok {
		return "", errors.Errorf("expected a boolean value, got %v (%T)", v, v)
	}
	if b {
		return "'1'", nil
	}
	return "'0'", nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func anyToTime(v interface{}) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, errors.Errorf("cannot parse %q as a timestamp", t)
	default:
		return time.Time{}, errors.Errorf("cannot interpret %v (%T) as a timestamp", v, v)
	}
}

// Timestamp renders a value as a quoted ISO-8601 Zulu timestamp.
func Timestamp(v interface{}) (string, error) {
	if isNull(v) {
		return "null", nil
	}
	t, err := anyToTime(v)
	if err != nil {
		return "", err
	}
	return "'" + t.Format("2006-01-02T15:04:05Z") + "'", nil
}

// DatetimeOffset renders a timestamp in the odata datetimeoffset dialect,
// i.e. datetimeoffset'yyyy-mm-ddThh:mm:ssZ'.
func DatetimeOffset(v interface{}) (string, error) {
	if isNull(v) {
		return "null", nil
	}
	t, err := anyToTime(v)
	if err != nil {
		return "", err
	}
	return "datetimeoffset'" + t.Format("2006-01-02T15:04:05Z") + "'", nil
}

// DateOnly renders a timestamp as a quoted calendar date.
func DateOnly(v interface{}) (string, error) {
	if isNull(v) {
		return "null", nil
	}
	t, err := anyToTime(v)
	if err != nil {
		return "", err
	}
	return "'" + t.Format("2006-01-02") + "'", nil
}

// isNonStringIterable reports whether v is a slice or array that should be
// treated as a list of alternatives. Strings and byte slices are scalars.
func isNonStringIterable(v interface{}) bool {
	if v == nil {
		return false
	}
	if _, ok := v.([]byte); ok {
		return false
	}
	k := reflect.TypeOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

func iterate(v interface{}) []interface{} {
	rv := reflect.ValueOf(v)
	out := make([]interface{}, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
