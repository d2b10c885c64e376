// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package filter is the query engine shared by every backend integration.
//
// User-supplied filters (an equality map plus extended comparison strings)
// are normalized into canonical terms, classified into unbreakable conjuncts
// and breakable OR-groups, and composed into one or more filter strings that
// each respect a transport length budget. The same canonical terms drive
// in-memory re-evaluation for endpoints that ignore filter parameters.
//
// Everything in this package is a pure transformation: no I/O, no logging,
// no state shared between calls. Backend dialect differences (field names,
// value quoting) enter exclusively through FieldMap and the Transformer
// functions attached to its fields.
package filter
