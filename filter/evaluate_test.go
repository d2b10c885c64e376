// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package filter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sailor-analytics/sailor/filter"
)

func sampleRecords() []filter.Record {
	return []filter.Record{
		{"internalId": "PumpA", "location": "Paris", "generation": float64(1), "active": true},
		{"internalId": "PumpB", "location": "London", "generation": float64(2), "active": false},
		{"internalId": "PumpC", "location": "Paris", "generation": float64(3), "active": true},
	}
}

func TestEvaluate_Scalar(t *testing.T) {
	records := sampleRecords()

	tests := []struct {
		name string
		term filter.Term
		want []string // internalIds retained
	}{
		{"StringEquality",
			filter.Term{Field: "location", Op: filter.OpEq, Value: "'Paris'"},
			[]string{"PumpA", "PumpC"}},
		{"QuoteMarksStripped",
			filter.Term{Field: "internalId", Op: filter.OpEq, Value: `"PumpB"`},
			[]string{"PumpB"}},
		{"NumericGreaterThan",
			filter.Term{Field: "generation", Op: filter.OpGt, Value: "1"},
			[]string{"PumpB", "PumpC"}},
		{"NumericLessOrEqual",
			filter.Term{Field: "generation", Op: filter.OpLe, Value: "2"},
			[]string{"PumpA", "PumpB"}},
		{"NotEqual",
			filter.Term{Field: "location", Op: filter.OpNe, Value: "'Paris'"},
			[]string{"PumpB"}},
		{"BooleanEquality",
			filter.Term{Field: "active", Op: filter.OpEq, Value: "true"},
			[]string{"PumpA", "PumpC"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, skipped, err := filter.Evaluate(records, []filter.Term{tt.term}, nil)
			require.NoError(t, err)
			assert.Empty(t, skipped)
			var got []string
			for _, r := range result {
				got = append(got, r["internalId"].(string))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluate_Membership(t *testing.T) {
	records := sampleRecords()
	term := filter.Term{Field: "location", Op: filter.OpEq, List: []string{"'London'", "'Berlin'"}}

	result, _, err := filter.Evaluate(records, []filter.Term{term}, nil)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "PumpB", result[0]["internalId"])
}

func TestEvaluate_Conjunction(t *testing.T) {
	records := sampleRecords()
	terms := []filter.Term{
		{Field: "location", Op: filter.OpEq, Value: "'Paris'"},
		{Field: "generation", Op: filter.OpGe, Value: "2"},
	}
	result, _, err := filter.Evaluate(records, terms, nil)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "PumpC", result[0]["internalId"])
}

func TestEvaluate_MissingFieldIsError(t *testing.T) {
	records := sampleRecords()
	_, _, err := filter.Evaluate(records,
		[]filter.Term{{Field: "nonexistent", Op: filter.OpEq, Value: "'x'"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestEvaluate_OrderedOperatorOnBoolIsError(t *testing.T) {
	records := sampleRecords()
	_, _, err := filter.Evaluate(records,
		[]filter.Term{{Field: "active", Op: filter.OpLt, Value: "true"}}, nil)
	require.Error(t, err)
}

func TestEvaluate_NonFilterableSkippedWithDiagnostic(t *testing.T) {
	fields := filter.FieldMap{
		{OurName: "tag_number", TheirNameGet: "tagNumber", NonFilterable: true},
	}
	records := []filter.Record{
		{"internalId": "PumpA", "tagNumber": "T1"},
		{"internalId": "PumpB", "tagNumber": "T2"},
	}
	terms := []filter.Term{{Field: "tagNumber", Op: filter.OpEq, Value: "'T1'"}}

	result, skipped, err := filter.Evaluate(records, terms, fields)
	require.NoError(t, err)
	assert.Equal(t, []string{"tagNumber"}, skipped)
	// the term was skipped entirely, so nothing is filtered out
	assert.Len(t, result, 2)
}

func TestEvaluate_NullHandling(t *testing.T) {
	records := []filter.Record{
		{"internalId": "A", "location": nil},
		{"internalId": "B", "location": "Paris"},
	}
	result, _, err := filter.Evaluate(records,
		[]filter.Term{{Field: "location", Op: filter.OpEq, Value: "null"}}, nil)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "A", result[0]["internalId"])

	result, _, err = filter.Evaluate(records,
		[]filter.Term{{Field: "location", Op: filter.OpNe, Value: "null"}}, nil)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "B", result[0]["internalId"])
}
