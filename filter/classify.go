// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package filter

import "fmt"

// Classify partitions canonical terms into unbreakable conjunct strings and
// breakable OR-groups for the composer.
//
// A multi-valued term fans out to one rendered alternative per element; the
// group as a whole is AND'd with everything else but may be split across
// queries. A scalar term renders to a single string that must appear in
// every composed query. Order is preserved on both sides.
func Classify(terms []Term) (unbreakable []string, breakable [][]string) {
	for _, t := range terms {
		if t.IsList() {
			group := make([]string, len(t.List))
			for i, elem := range t.List {
				group[i] = fmt.Sprintf("%s %s %s", t.Field, t.Op, elem)
			}
			breakable = append(breakable, group)
			continue
		}
		unbreakable = append(unbreakable, fmt.Sprintf("%s %s %s", t.Field, t.Op, t.Value))
	}
	return unbreakable, breakable
}
