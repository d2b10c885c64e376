// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package filter

import (
	"strconv"

	"github.com/pkg/errors"
)

// Record is one raw backend record, as decoded from JSON.
type Record = map[string]interface{}

// Evaluate filters already-fetched records in memory using the same
// canonical terms the composer works from. It is the fallback for endpoints
// that ignore filter parameters: a record is retained iff it satisfies every
// term.
//
// Rendered term values carry the wire quoting, so quote marks are stripped
// before comparing. Multi-valued terms are membership tests; scalar terms
// apply the operator natively. A term on a field the table marks
// non-filterable is skipped and reported in the returned diagnostics; a
// field missing from a record, or an operand combination that cannot be
// compared, is an error.
func Evaluate(records []Record, terms []Term, fields FieldMap) ([]Record, []string, error) {
	var skipped []string

	active := make([]Term, 0, len(terms))
	for _, t := range terms {
		if f, ok := fields.LookupTheir(t.Field); ok && f.NonFilterable {
			skipped = append(skipped, t.Field)
			continue
		}
		active = append(active, t)
	}

	var result []Record
	for _, record := range records {
		keep := true
		for _, t := range active {
			ok, err := matches(record, t)
			if err != nil {
				return nil, skipped, err
			}
			if !ok {
				keep = false
				break
			}
		}
		if keep {
			result = append(result, record)
		}
	}
	return result, skipped, nil
}

func matches(record Record, t Term) (bool, error) {
	value, present := record[t.Field]
	if !present {
		return false, errors.Errorf("record has no field %q to filter on", t.Field)
	}

	if t.IsList() {
		for _, candidate := range t.List {
			ok, err := compare(value, stripQuoteMarks(candidate), OpEq)
			if err != nil {
				return false, errors.Wrapf(err, "filtering on %q", t.Field)
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	ok, err := compare(value, stripQuoteMarks(t.Value), t.Op)
	if err != nil {
		return false, errors.Wrapf(err, "filtering on %q", t.Field)
	}
	return ok, nil
}

// stripQuoteMarks undoes the quoting applied during normalization.
func stripQuoteMarks(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// compare applies op between a record value of whatever type the JSON
// decoder produced and the unquoted term operand. Numbers compare
// numerically, strings lexicographically; booleans and null support only
// equality. Anything else cannot be compared and errors.
func compare(value interface{}, operand string, op Operator) (bool, error) {
	switch v := value.(type) {
	case nil:
		return equalityOnly(op, operand == "null")
	case bool:
		b, err := strconv.ParseBool(operand)
		if err != nil {
			return equalityOnly(op, false)
		}
		return equalityOnly(op, v == b)
	case string:
		return ordered(op, compareStrings(v, operand))
	case float64:
		return compareNumber(v, operand, op)
	case float32:
		return compareNumber(float64(v), operand, op)
	case int:
		return compareNumber(float64(v), operand, op)
	case int64:
		return compareNumber(float64(v), operand, op)
	default:
		return false, errors.Errorf("cannot compare value %v (%T)", value, value)
	}
}

func compareNumber(v float64, operand string, op Operator) (bool, error) {
	n, err := strconv.ParseFloat(operand, 64)
	if err != nil {
		return false, errors.Errorf("cannot compare number %v with %q", v, operand)
	}
	switch {
	case v < n:
		return ordered(op, -1)
	case v > n:
		return ordered(op, 1)
	default:
		return ordered(op, 0)
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func ordered(op Operator, cmp int) (bool, error) {
	switch op {
	case OpEq:
		return cmp == 0, nil
	case OpNe:
		return cmp != 0, nil
	case OpLt:
		return cmp < 0, nil
	case OpLe:
		return cmp <= 0, nil
	case OpGt:
		return cmp > 0, nil
	case OpGe:
		return cmp >= 0, nil
	}
	return false, errors.Errorf("unknown operator %v", op)
}

func equalityOnly(op Operator, equal bool) (bool, error) {
	switch op {
	case OpEq:
		return equal, nil
	case OpNe:
		return !equal, nil
	}
	return false, errors.Errorf("operator %v is not defined for this value type", op)
}
