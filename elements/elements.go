// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package elements is the shared base layer for the typed entities the
// backend packages return: identity, duplicate handling, in-memory subset
// filtering and tabular rendering.
package elements

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/pkg/errors"

	"github.com/sailor-analytics/sailor/filter"
	"github.com/sailor-analytics/sailor/logger"
)

// Entity is anything with a backend-assigned identity.
type Entity interface {
	ID() string
}

// StringField reads a string property from a raw record through the field
// table; non-string and absent values come back as the empty string.
func StringField(record filter.Record, fields filter.FieldMap, ourName string) string {
	f, ok := fields.Lookup(ourName)
	if !ok {
		return ""
	}
	v := f.ExtractFrom(record)
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// Set is an ordered collection of entities of one type. Construction drops
// duplicate identities: the same record can legitimately arrive through
// more than one composed query after a split.
type Set[E Entity] struct {
	Elements []E
}

// NewSet builds a Set, discarding elements whose ID was already seen and
// logging which ones were dropped.
func NewSet[E Entity](elements []E, log logger.Logger) Set[E] {
	if log == nil {
		log = logger.NopLogger
	}
	seen := make(map[string]bool, len(elements))
	kept := make([]E, 0, len(elements))
	var dropped []string
	for _, e := range elements {
		if seen[e.ID()] {
			dropped = append(dropped, e.ID())
			continue
		}
		seen[e.ID()] = true
		kept = append(kept, e)
	}
	if len(dropped) > 0 {
		log.Infof("duplicate elements discarded while building result set: %s",
			strings.Join(dropped, ", "))
	}
	return Set[E]{Elements: kept}
}

// Len returns the number of entities in the set.
func (s Set[E]) Len() int {
	return len(s.Elements)
}

// Filter returns the subset for which keep returns true, preserving order.
func (s Set[E]) Filter(keep func(E) bool) Set[E] {
	var out []E
	for _, e := range s.Elements {
		if keep(e) {
			out = append(out, e)
		}
	}
	return Set[E]{Elements: out}
}

// Concat appends another set, dropping entities already present.
func (s Set[E]) Concat(other Set[E]) Set[E] {
	return NewSet(append(append([]E{}, s.Elements...), other.Elements...), nil)
}

// IDs returns every entity identity in order.
func (s Set[E]) IDs() []string {
	ids := make([]string, len(s.Elements))
	for i, e := range s.Elements {
		ids[i] = e.ID()
	}
	return ids
}

// WriteTable renders a result set to w, one row per entity, one column per
// exposed field.
func WriteTable(w io.Writer, header []string, rows [][]interface{}) error {
	if len(header) == 0 {
		return errors.New("attempt to render a table without columns")
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	// keep field names as-is rather than uppercased
	t.Style().Format.Header = text.FormatDefault

	h := make(table.Row, len(header))
	for i, col := range header {
		h[i] = col
	}
	t.AppendHeader(h)
	for _, row := range rows {
		for i := range row {
			if row[i] == nil {
				row[i] = ""
			}
		}
		t.AppendRow(table.Row(row))
	}
	t.Render()
	return nil
}

// TableRows derives the header/rows pair for a slice of raw records using
// the exposed fields of a field table.
func TableRows(records []filter.Record, fields filter.FieldMap) ([]string, [][]interface{}) {
	header := fields.Exposed()
	rows := make([][]interface{}, len(records))
	for i, record := range records {
		row := make([]interface{}, len(header))
		for j, name := range header {
			f, _ := fields.Lookup(name)
			row[j] = f.ExtractFrom(record)
		}
		rows[i] = row
	}
	return header, rows
}
