// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package assetcentral

import (
	"context"

	"github.com/sailor-analytics/sailor/elements"
	"github.com/sailor-analytics/sailor/filter"
)

// ModelFields maps our model terminology to AssetCentral's. generation is a
// numeric field and uses the double rendering.
var ModelFields = filter.FieldMap{
	{OurName: "id", TheirNameGet: "modelId"},
	{OurName: "name", TheirNameGet: "name"},
	{OurName: "short_description", TheirNameGet: "shortDescription"},
	{OurName: "long_description", TheirNameGet: "longDescription", Hidden: true},
	{OurName: "generation", TheirNameGet: "generation", Transform: filter.Double},
	{OurName: "manufacturer", TheirNameGet: "manufacturer"},
	{OurName: "model_expiration_date", TheirNameGet: "modelExpirationDate",
		Transform: filter.Timestamp, Extract: msTimestamp},
	{OurName: "model_template_id", TheirNameGet: "modelTemplate"},
	{OurName: "service_expiration_date", TheirNameGet: "serviceExpirationDate",
		Transform: filter.Timestamp, Extract: msTimestamp},
	{OurName: "template_id", TheirNameGet: "templateId"},
}

// Model is one AssetCentral equipment model.
type Model struct {
	Raw filter.Record
}

func (m Model) ID() string {
	return elements.StringField(m.Raw, ModelFields, "id")
}

func (m Model) Name() string {
	return elements.StringField(m.Raw, ModelFields, "name")
}

// ModelSet is a deduplicated collection of Models.
type ModelSet = elements.Set[Model]

// FindModels fetches all models matching the query. Like the equipment
// view, the models view ignores some filters server-side, so the terms are
// re-applied locally.
func (c *Client) FindModels(ctx context.Context, q Query) (ModelSet, error) {
	records, terms, err := c.find(ctx, viewModels, q, ModelFields)
	if err != nil {
		return ModelSet{}, err
	}
	records, err = c.refilter(records, terms, ModelFields)
	if err != nil {
		return ModelSet{}, err
	}
	models := make([]Model, len(records))
	for i, r := range records {
		models[i] = Model{Raw: r}
	}
	return elements.NewSet(models, c.log), nil
}

// ModelRows renders the set for tabular output.
func ModelRows(s ModelSet) ([]string, [][]interface{}) {
	records := make([]filter.Record, len(s.Elements))
	for i, m := range s.Elements {
		records[i] = m.Raw
	}
	return elements.TableRows(records, ModelFields)
}
