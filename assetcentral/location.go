// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package assetcentral

import (
	"context"

	"github.com/sailor-analytics/sailor/elements"
	"github.com/sailor-analytics/sailor/filter"
)

// LocationFields maps our location terminology to AssetCentral's.
var LocationFields = filter.FieldMap{
	{OurName: "id", TheirNameGet: "locationId"},
	{OurName: "name", TheirNameGet: "name"},
	{OurName: "short_description", TheirNameGet: "shortDescription"},
	{OurName: "type", TheirNameGet: "locationType"},
	{OurName: "type_description", TheirNameGet: "locationTypeDescription"},
}

// Location is one AssetCentral location object.
type Location struct {
	Raw filter.Record
}

func (l Location) ID() string {
	return elements.StringField(l.Raw, LocationFields, "id")
}

func (l Location) Name() string {
	return elements.StringField(l.Raw, LocationFields, "name")
}

// LocationSet is a deduplicated collection of Locations.
type LocationSet = elements.Set[Location]

// FindLocations fetches all locations matching the query.
func (c *Client) FindLocations(ctx context.Context, q Query) (LocationSet, error) {
	records, _, err := c.find(ctx, viewLocation, q, LocationFields)
	if err != nil {
		return LocationSet{}, err
	}
	locations := make([]Location, len(records))
	for i, r := range records {
		locations[i] = Location{Raw: r}
	}
	return elements.NewSet(locations, c.log), nil
}

// LocationRows renders the set for tabular output.
func LocationRows(s LocationSet) ([]string, [][]interface{}) {
	records := make([]filter.Record, len(s.Elements))
	for i, l := range s.Elements {
		records[i] = l.Raw
	}
	return elements.TableRows(records, LocationFields)
}
