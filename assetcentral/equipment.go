// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package assetcentral

import (
	"context"

	"github.com/sailor-analytics/sailor/elements"
	"github.com/sailor-analytics/sailor/filter"
)

// EquipmentFields maps our equipment terminology to AssetCentral's. The
// service quotes everything except null, so the default transformer applies
// unless a field says otherwise.
var EquipmentFields = filter.FieldMap{
	{OurName: "id", TheirNameGet: "equipmentId", TheirNamePut: "equipmentId"},
	{OurName: "name", TheirNameGet: "internalId", TheirNamePut: "internalId"},
	{OurName: "status", TheirNameGet: "status", Hidden: true},
	{OurName: "status_text", TheirNameGet: "statusDescription"},
	{OurName: "model_id", TheirNameGet: "modelId", TheirNamePut: "modelId"},
	{OurName: "model_name", TheirNameGet: "modelName", TheirNamePut: "modelName"},
	{OurName: "short_description", TheirNameGet: "shortDescription", TheirNamePut: "description", IsMandatory: true},
	{OurName: "template_id", TheirNameGet: "templateId", TheirNamePut: "templateId"},
	{OurName: "location_name", TheirNameGet: "location", TheirNamePut: "location"},
	{OurName: "criticality_description", TheirNameGet: "criticalityDescription"},
	{OurName: "manufacturer", TheirNameGet: "manufacturer", TheirNamePut: "manufacturer"},
	{OurName: "serial_number", TheirNameGet: "serialNumber", TheirNamePut: "serialNumber"},
	{OurName: "batch_number", TheirNameGet: "batchNumber", TheirNamePut: "batchNumber"},
	{OurName: "lifecycle_description", TheirNameGet: "lifeCycleDescription"},
	{OurName: "operator", TheirNameGet: "operator", TheirNamePut: "operatorID"},
	{OurName: "installation_date", TheirNameGet: "installationDate", TheirNamePut: "installationDate",
		Transform: filter.Timestamp, Extract: msTimestamp},
	{OurName: "build_date", TheirNameGet: "buildDate", TheirNamePut: "buildDate",
		Transform: filter.Timestamp, Extract: msTimestamp},
	{OurName: "created_on", TheirNameGet: "createdOn", Hidden: true},
	{OurName: "changed_on", TheirNameGet: "changedOn", Hidden: true},
}

// Equipment is one AssetCentral equipment object, wrapping the raw record.
type Equipment struct {
	Raw filter.Record
}

func (e Equipment) ID() string {
	return elements.StringField(e.Raw, EquipmentFields, "id")
}

func (e Equipment) Name() string {
	return elements.StringField(e.Raw, EquipmentFields, "name")
}

func (e Equipment) ModelID() string {
	return elements.StringField(e.Raw, EquipmentFields, "model_id")
}

func (e Equipment) LocationName() string {
	return elements.StringField(e.Raw, EquipmentFields, "location_name")
}

// EquipmentSet is a deduplicated collection of Equipment.
type EquipmentSet = elements.Set[Equipment]

// FindEquipment fetches all equipment matching the query.
//
// The equipment view ignores some filter terms server-side, so the same
// canonical terms are re-applied to the fetched records before the set is
// built.
func (c *Client) FindEquipment(ctx context.Context, q Query) (EquipmentSet, error) {
	records, terms, err := c.find(ctx, viewEquipment, q, EquipmentFields)
	if err != nil {
		return EquipmentSet{}, err
	}
	records, err = c.refilter(records, terms, EquipmentFields)
	if err != nil {
		return EquipmentSet{}, err
	}

	equipment := make([]Equipment, len(records))
	for i, r := range records {
		equipment[i] = Equipment{Raw: r}
	}
	return elements.NewSet(equipment, c.log), nil
}

// FindEquipmentForModel is a convenience wrapper: all equipment built from
// the given model.
func (c *Client) FindEquipmentForModel(ctx context.Context, modelID string) (EquipmentSet, error) {
	return c.FindEquipment(ctx, Query{Filters: map[string]interface{}{"model_id": modelID}})
}

// EquipmentRows renders the set for tabular output.
func EquipmentRows(s EquipmentSet) ([]string, [][]interface{}) {
	records := make([]filter.Record, len(s.Elements))
	for i, e := range s.Elements {
		records[i] = e.Raw
	}
	return elements.TableRows(records, EquipmentFields)
}
