// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package filter_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sailor-analytics/sailor/filter"
)

func TestCompose_Trivial(t *testing.T) {
	t.Run("EmptyInput", func(t *testing.T) {
		queries, err := filter.Compose(nil, nil, 0)
		require.NoError(t, err)
		assert.Empty(t, queries)
	})

	t.Run("SingleUnbreakable", func(t *testing.T) {
		queries, err := filter.Compose([]string{"a eq 'x'"}, nil, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"a eq 'x'"}, queries)
	})

	t.Run("MultipleUnbreakable", func(t *testing.T) {
		queries, err := filter.Compose([]string{"a eq 'x'", "b gt 5d"}, nil, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"a eq 'x' and b gt 5d"}, queries)
	})

	t.Run("SingleGroup", func(t *testing.T) {
		queries, err := filter.Compose(nil, [][]string{{"loc eq 'Paris'", "loc eq 'London'"}}, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"(loc eq 'Paris' or loc eq 'London')"}, queries)
	})

	t.Run("MultiGroup", func(t *testing.T) {
		queries, err := filter.Compose(nil, [][]string{
			{"a eq '1'", "a eq '2'"},
			{"b eq 'x'", "b eq 'y'"},
		}, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"(a eq '1' or a eq '2') and (b eq 'x' or b eq 'y')"}, queries)
	})

	t.Run("UnbreakableAndGroup", func(t *testing.T) {
		queries, err := filter.Compose(
			[]string{"status eq 'A'"},
			[][]string{{"loc eq 'Paris'", "loc eq 'London'"}}, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"status eq 'A' and (loc eq 'Paris' or loc eq 'London')"}, queries)
	})
}

func TestCompose_ForcedSplit(t *testing.T) {
	group := make([]string, 100)
	alternatives := make(map[string]bool, 100)
	for i := range group {
		group[i] = fmt.Sprintf("loc eq 'Location%02d'", i)
		alternatives[group[i]] = true
	}
	unbreakable := []string{"status eq 'Active'"}

	const budget = 250
	queries, err := filter.Compose(unbreakable, [][]string{group}, budget)
	require.NoError(t, err)
	require.Greater(t, len(queries), 1, "whole group cannot fit, must split")

	seen := make(map[string]bool)
	for _, q := range queries {
		assert.LessOrEqual(t, len(q), budget, "budget invariant violated: %q", q)
		assert.True(t, strings.HasPrefix(q, "status eq 'Active' and "),
			"unbreakable conjunct missing from %q", q)
		rest := strings.TrimPrefix(q, "status eq 'Active' and ")
		rest = strings.TrimPrefix(rest, "(")
		rest = strings.TrimSuffix(rest, ")")
		for _, alt := range strings.Split(rest, " or ") {
			require.True(t, alternatives[alt], "unexpected alternative %q in %q", alt, q)
			seen[alt] = true
		}
	}
	assert.Len(t, seen, 100, "union of split queries must cover every alternative")
}

func TestCompose_CartesianExpansion(t *testing.T) {
	// Three groups, a budget that fits none of them whole: all but the last
	// expand as a cartesian product, the last is chunked.
	groups := [][]string{
		{"a eq 'aaaaaaaaaa'", "a eq 'bbbbbbbbbb'"},
		{"b eq 'cccccccccc'", "b eq 'dddddddddd'"},
		{"c eq 'eeeeeeeeee'", "c eq 'ffffffffff'"},
	}
	const budget = 70
	queries, err := filter.Compose(nil, groups, budget)
	require.NoError(t, err)
	require.NotEmpty(t, queries)

	counts := make(map[string]int)
	for _, q := range queries {
		require.LessOrEqual(t, len(q), budget)
		for _, part := range strings.Split(q, " and ") {
			part = strings.TrimPrefix(part, "(")
			part = strings.TrimSuffix(part, ")")
			for _, alt := range strings.Split(part, " or ") {
				counts[alt]++
			}
		}
	}
	for _, group := range groups {
		for _, alt := range group {
			assert.Greater(t, counts[alt], 0, "alternative %q lost in composition", alt)
		}
	}
}

func TestCompose_SingletonLeftover(t *testing.T) {
	// The last group's final alternative may end up alone in its chunk.
	group := []string{
		"loc eq 'aaaaaaaaaaaaaaaaaaaa'",
		"loc eq 'bbbbbbbbbbbbbbbbbbbb'",
		"loc eq 'cccccccccccccccccccc'",
	}
	const budget = 70
	queries, err := filter.Compose(nil, [][]string{group}, budget)
	require.NoError(t, err)

	joined := strings.Join(queries, "\n")
	for _, alt := range group {
		assert.Contains(t, joined, alt)
	}
	for _, q := range queries {
		assert.LessOrEqual(t, len(q), budget)
	}
}

func TestCompose_SingleAlternativeGroup(t *testing.T) {
	// A group of one alternative that cannot be kept whole (the parens plus
	// lookahead margin push it over) must still survive composition.
	alt := "f eq '" + strings.Repeat("x", 40) + "'"
	budget := len(alt) + len(" and ") + 1
	queries, err := filter.Compose(nil, [][]string{{alt}}, budget)
	require.NoError(t, err)
	require.NotEmpty(t, queries)
	found := false
	for _, q := range queries {
		require.LessOrEqual(t, len(q), budget)
		if strings.Contains(q, alt) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCompose_TooComplex(t *testing.T) {
	long := "field eq '" + strings.Repeat("v", 100) + "'"
	_, err := filter.Compose([]string{long}, nil, 50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, filter.ErrTooComplex))
	assert.Contains(t, err.Error(), "split your query")

	// one enormous alternative can never fit, no matter the splitting
	_, err = filter.Compose(nil, [][]string{{"a eq '1'", long}}, 50)
	require.Error(t, err)
	assert.True(t, errors.Is(err, filter.ErrTooComplex))
}

func TestCompose_EmptyGroup(t *testing.T) {
	_, err := filter.Compose(nil, [][]string{{}}, 0)
	require.Error(t, err)
}

func TestCompose_GroupOrderingByRenderedLength(t *testing.T) {
	// The compact group is kept whole in front even when passed last.
	small := []string{"s eq '1'", "s eq '2'"}
	big := make([]string, 50)
	for i := range big {
		big[i] = fmt.Sprintf("b eq 'value%04d'", i)
	}
	queries, err := filter.Compose(nil, [][]string{big, small}, 120)
	require.NoError(t, err)
	require.Greater(t, len(queries), 1)
	for _, q := range queries {
		assert.True(t, strings.HasPrefix(q, "(s eq '1' or s eq '2') and "),
			"compact group should lead every query: %q", q)
		assert.LessOrEqual(t, len(q), 120)
	}
}

// TestCompose_SemanticEquivalence checks the core correctness promise: the
// records matched by the union of the composed queries equal the records
// matched by evaluating the original terms directly.
func TestCompose_SemanticEquivalence(t *testing.T) {
	locations := make([]string, 30)
	locList := make([]string, 30)
	for i := range locations {
		locations[i] = fmt.Sprintf("Site%02d", i)
		locList[i] = "'" + locations[i] + "'"
	}
	terms := []filter.Term{
		{Field: "status", Op: filter.OpEq, Value: "'Active'"},
		{Field: "location", Op: filter.OpEq, List: locList[:20]},
	}

	var records []filter.Record
	for i, loc := range locations {
		status := "Active"
		if i%3 == 0 {
			status = "Retired"
		}
		records = append(records, filter.Record{"status": status, "location": loc, "id": i})
	}

	reference, _, err := filter.Evaluate(records, terms, nil)
	require.NoError(t, err)
	require.NotEmpty(t, reference)

	unbreakable, breakable := filter.Classify(terms)
	for _, budget := range []int{120, 200, 400, 2000} {
		queries, err := filter.Compose(unbreakable, breakable, budget)
		require.NoError(t, err, "budget %d", budget)

		matched := make(map[int]bool)
		for _, q := range queries {
			require.LessOrEqual(t, len(q), budget)
			for _, r := range evaluateComposed(t, q, records) {
				matched[r["id"].(int)] = true
			}
		}

		want := make(map[int]bool)
		for _, r := range reference {
			want[r["id"].(int)] = true
		}
		if diff := cmp.Diff(want, matched); diff != "" {
			t.Errorf("budget %d: composed union differs from direct evaluation (-want +got):\n%s", budget, diff)
		}
	}
}

// evaluateComposed interprets a composed query string as a reference
// predicate: " and "-joined clauses where a parenthesized clause is an OR of
// equality alternatives.
func evaluateComposed(t *testing.T, query string, records []filter.Record) []filter.Record {
	t.Helper()
	var terms []filter.Term
	for _, clause := range strings.Split(query, " and ") {
		alts := []string{clause}
		if strings.HasPrefix(clause, "(") && strings.HasSuffix(clause, ")") {
			alts = strings.Split(clause[1:len(clause)-1], " or ")
		}
		list := make([]string, len(alts))
		var field string
		for i, alt := range alts {
			parts := strings.SplitN(alt, " ", 3)
			require.Len(t, parts, 3, "clause %q", clause)
			require.Equal(t, "eq", parts[1])
			field, list[i] = parts[0], parts[2]
		}
		terms = append(terms, filter.Term{Field: field, Op: filter.OpEq, List: list})
	}
	out, _, err := filter.Evaluate(records, terms, nil)
	require.NoError(t, err)
	return out
}
