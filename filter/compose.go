// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package filter

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// DefaultMaxQueryLength is the default byte budget for one composed query.
// The backends accept filter expressions as part of a GET request and cap
// the request size; 2000 keeps a margin under the real limit. Different
// services impose different limits, so the budget stays a parameter.
const DefaultMaxQueryLength = 2000

// ErrTooComplex is returned when even maximal splitting cannot bring every
// composed query under the budget.
var ErrTooComplex = errors.New("filter conditions are too complex, please split your query into multiple calls")

const andSep = " and "

// Compose packs the classified filters into complete filter strings, each no
// longer than budget (<= 0 selects DefaultMaxQueryLength), such that the
// disjunction of the returned queries is equivalent to AND-ing all
// unbreakable filters with each breakable group's OR.
//
// The shortest way to split would put exactly one alternative from every
// group in each query, which yields the most queries; keeping every group
// whole yields one query that may be too long. The compromise, taken from
// the shape of the problem rather than any optimality proof: keep whole
// groups while they fit (smallest rendering first), expand what remains as a
// cartesian product, and split only the last group into OR-chunks sized to
// fill the leftover budget. Chunk boundaries are chosen greedily left to
// right; the result is deterministic and budget-correct, not minimal.
//
// Empty input composes to no queries at all, which callers interpret as an
// unfiltered fetch.
func Compose(unbreakable []string, breakable [][]string, budget int) ([]string, error) {
	if budget <= 0 {
		budget = DefaultMaxQueryLength
	}
	if len(unbreakable) == 0 && len(breakable) == 0 {
		return nil, nil
	}
	for _, group := range breakable {
		if len(group) == 0 {
			return nil, errors.New("breakable filter group has no alternatives")
		}
	}

	fixed := strings.Join(unbreakable, andSep)

	// The most space-efficient valid decomposition still needs the longest
	// alternative of every group in one query. If that cannot fit, no
	// amount of splitting helps.
	need := len(fixed) + worstCombinationLen(breakable)
	if fixed != "" && len(breakable) > 0 {
		need += len(andSep)
	}
	if budget < need {
		return nil, errors.Wrapf(ErrTooComplex,
			"no decomposition fits %d bytes", budget)
	}

	groups := make([][]string, len(breakable))
	copy(groups, breakable)
	sort.SliceStable(groups, func(i, j int) bool {
		return orGroupLen(groups[i]) < orGroupLen(groups[j])
	})

	// Keep whole groups while the worst-case combination of everything
	// still to come leaves room for them.
	query := fixed
	broke := len(groups)
	for i, group := range groups {
		sub := renderOrGroup(group)
		rest := worstCombinationLen(groups[i+1:])
		if budget <= len(sub)+len(query)+rest+2*len(andSep) {
			broke = i
			break
		}
		query = andJoin(query, sub)
	}
	if broke == len(groups) {
		return []string{query}, nil
	}

	// Expand all unfitted groups but the last as a cartesian product: one
	// query variant per combination of alternatives.
	variants := []string{query}
	if broke < len(groups)-1 {
		variants = variants[:0]
		for _, combo := range cartesian(groups[broke : len(groups)-1]) {
			variants = append(variants, andJoin(query, strings.Join(combo, andSep)))
		}
	}

	// The last group fills the remaining space in OR-chunks. One budget is
	// computed against the longest variant so every chunk fits every
	// variant; a leftover singleton becomes a bare chunk.
	longest := 0
	for _, v := range variants {
		if len(v) > longest {
			longest = len(v)
		}
	}
	chunks := chunkOrGroup(groups[len(groups)-1], budget-longest-len(andSep))

	queries := make([]string, 0, len(variants)*len(chunks))
	for _, chunk := range chunks {
		for _, v := range variants {
			queries = append(queries, andJoin(v, chunk))
		}
	}
	return queries, nil
}

// worstCombinationLen returns the rendered length of the longest possible
// cartesian-product combination: the longest alternative from every group,
// joined by " and ". Zero for no groups.
func worstCombinationLen(groups [][]string) int {
	total := 0
	for i, group := range groups {
		longest := 0
		for _, alt := range group {
			if len(alt) > longest {
				longest = len(alt)
			}
		}
		total += longest
		if i > 0 {
			total += len(andSep)
		}
	}
	return total
}

func orGroupLen(group []string) int {
	n := 2 // parens
	for i, alt := range group {
		n += len(alt)
		if i > 0 {
			n += len(" or ")
		}
	}
	return n
}

func renderOrGroup(group []string) string {
	return "(" + strings.Join(group, " or ") + ")"
}

func andJoin(prefix, clause string) string {
	if prefix == "" {
		return clause
	}
	return prefix + andSep + clause
}

// cartesian enumerates every combination of one alternative per group, in
// group order with the last group varying fastest.
func cartesian(groups [][]string) [][]string {
	combos := [][]string{{}}
	for _, group := range groups {
		next := make([][]string, 0, len(combos)*len(group))
		for _, combo := range combos {
			for _, alt := range group {
				extended := make([]string, len(combo), len(combo)+1)
				copy(extended, combo)
				next = append(next, append(extended, alt))
			}
		}
		combos = next
	}
	return combos
}

// chunkOrGroup splits a group's alternatives into consecutive OR-chunks
// whose parenthesized rendering fits within remaining bytes. The window
// grows one alternative at a time and closes at the previous boundary on
// overflow; whatever is left at the end forms the final chunk even if it is
// a single alternative, which is rendered bare.
func chunkOrGroup(group []string, remaining int) []string {
	var chunks []string
	start := 0
	for start < len(group) {
		end := start + 1
		for end < len(group) && orGroupLen(group[start:end+1]) <= remaining {
			end++
		}
		if end-start == 1 {
			chunks = append(chunks, group[start])
		} else {
			chunks = append(chunks, renderOrGroup(group[start:end]))
		}
		start = end
	}
	return chunks
}
