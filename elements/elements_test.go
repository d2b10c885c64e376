// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package elements_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sailor-analytics/sailor/elements"
	"github.com/sailor-analytics/sailor/filter"
	"github.com/sailor-analytics/sailor/logger"
)

type thing struct{ id, name string }

func (t thing) ID() string { return t.id }

func TestNewSet_DropsDuplicates(t *testing.T) {
	log := logger.NewCaptureLogger()
	s := elements.NewSet([]thing{
		{"1", "a"}, {"2", "b"}, {"1", "a again"}, {"3", "c"}, {"2", "b again"},
	}, log)

	assert.Equal(t, []string{"1", "2", "3"}, s.IDs())
	assert.True(t, log.Contains("duplicate elements discarded"))
}

func TestSet_Filter(t *testing.T) {
	s := elements.NewSet([]thing{{"1", "pump"}, {"2", "valve"}, {"3", "pump"}}, nil)
	pumps := s.Filter(func(e thing) bool { return e.name == "pump" })
	assert.Equal(t, []string{"1", "3"}, pumps.IDs())
	assert.Equal(t, 3, s.Len(), "filter must not mutate the source set")
}

func TestSet_Concat(t *testing.T) {
	a := elements.NewSet([]thing{{"1", "a"}, {"2", "b"}}, nil)
	b := elements.NewSet([]thing{{"2", "b"}, {"3", "c"}}, nil)
	assert.Equal(t, []string{"1", "2", "3"}, a.Concat(b).IDs())
}

func TestWriteTable(t *testing.T) {
	fields := filter.FieldMap{
		{OurName: "name", TheirNameGet: "internalId"},
		{OurName: "location", TheirNameGet: "location"},
		{OurName: "secret", TheirNameGet: "secret", Hidden: true},
	}
	records := []filter.Record{
		{"internalId": "PumpA", "location": "Paris", "secret": "x"},
		{"internalId": "PumpB", "location": nil, "secret": "y"},
	}

	header, rows := elements.TableRows(records, fields)
	var buf bytes.Buffer
	require.NoError(t, elements.WriteTable(&buf, header, rows))
	out := buf.String()
	assert.Contains(t, out, "name")
	assert.Contains(t, out, "PumpA")
	assert.Contains(t, out, "Paris")
	assert.NotContains(t, out, "secret", "hidden fields must not render")
}

func TestStringField(t *testing.T) {
	fields := filter.FieldMap{{OurName: "name", TheirNameGet: "internalId"}}
	record := filter.Record{"internalId": "PumpA"}
	assert.Equal(t, "PumpA", elements.StringField(record, fields, "name"))
	assert.Equal(t, "", elements.StringField(record, fields, "unknown"))
}
