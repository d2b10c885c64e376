// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package assetcentral

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/sailor-analytics/sailor/elements"
	"github.com/sailor-analytics/sailor/fetch"
	"github.com/sailor-analytics/sailor/filter"
)

// NotificationFields maps our notification terminology to AssetCentral's.
var NotificationFields = filter.FieldMap{
	{OurName: "id", TheirNameGet: "notificationId"},
	{OurName: "name", TheirNameGet: "internalId"},
	{OurName: "short_description", TheirNameGet: "shortDescription", TheirNamePut: "description", IsMandatory: true},
	{OurName: "long_description", TheirNameGet: "longDescription", TheirNamePut: "longDescription", Hidden: true},
	{OurName: "breakdown", TheirNameGet: "breakdown", TheirNamePut: "breakdown",
		Transform: filter.BoolIntString},
	{OurName: "equipment_id", TheirNameGet: "equipmentId", TheirNamePut: "equipmentID", IsMandatory: true},
	{OurName: "equipment_name", TheirNameGet: "equipmentName"},
	{OurName: "location_id", TheirNameGet: "locationID"},
	{OurName: "location_name", TheirNameGet: "location"},
	{OurName: "notification_type", TheirNameGet: "notificationType", TheirNamePut: "type", IsMandatory: true},
	{OurName: "notification_type_description", TheirNameGet: "notificationTypeDescription"},
	{OurName: "priority", TheirNameGet: "priority", TheirNamePut: "priority", IsMandatory: true},
	{OurName: "priority_description", TheirNameGet: "priorityDescription"},
	{OurName: "status_text", TheirNameGet: "statusDescription"},
	{OurName: "start_date", TheirNameGet: "startDate", TheirNamePut: "startDate",
		Transform: filter.Timestamp},
	{OurName: "end_date", TheirNameGet: "endDate", TheirNamePut: "endDate",
		Transform: filter.Timestamp},
	{OurName: "malfunction_start_date", TheirNameGet: "malfunctionStartDate", TheirNamePut: "malfunctionStartDate",
		Transform: filter.Timestamp},
	{OurName: "malfunction_end_date", TheirNameGet: "malfunctionEndDate", TheirNamePut: "malfunctionEndDate",
		Transform: filter.Timestamp},
}

// Notification is one AssetCentral notification.
type Notification struct {
	Raw filter.Record
}

func (n Notification) ID() string {
	return elements.StringField(n.Raw, NotificationFields, "id")
}

func (n Notification) Name() string {
	return elements.StringField(n.Raw, NotificationFields, "name")
}

func (n Notification) EquipmentID() string {
	return elements.StringField(n.Raw, NotificationFields, "equipment_id")
}

// NotificationSet is a deduplicated collection of Notifications.
type NotificationSet = elements.Set[Notification]

// FindNotifications fetches all notifications matching the query.
func (c *Client) FindNotifications(ctx context.Context, q Query) (NotificationSet, error) {
	records, _, err := c.find(ctx, viewNotifications, q, NotificationFields)
	if err != nil {
		return NotificationSet{}, err
	}
	notifications := make([]Notification, len(records))
	for i, r := range records {
		notifications[i] = Notification{Raw: r}
	}
	return elements.NewSet(notifications, c.log), nil
}

// CreateNotification creates a notification from exposed field names and
// returns the created object as the backend reports it. Every mandatory
// writable field must be present; names outside the field table are
// rejected rather than sent on blindly.
func (c *Client) CreateNotification(ctx context.Context, values map[string]interface{}) (*Notification, error) {
	payload, err := buildWritePayload(NotificationFields, values)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "encoding notification payload")
	}

	respBody, _, err := c.transport.PerformRequest(ctx, "POST",
		c.baseURL+viewNotifications, nil, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	records, err := fetch.Decode(respBody)
	if err != nil {
		return nil, err
	}
	if len(records) != 1 {
		return nil, errors.Errorf("expected one created notification in response, got %d", len(records))
	}
	return &Notification{Raw: records[0]}, nil
}

// NotificationRows renders the set for tabular output.
func NotificationRows(s NotificationSet) ([]string, [][]interface{}) {
	records := make([]filter.Record, len(s.Elements))
	for i, n := range s.Elements {
		records[i] = n.Raw
	}
	return elements.TableRows(records, NotificationFields)
}

func buildWritePayload(fields filter.FieldMap, values map[string]interface{}) (map[string]interface{}, error) {
	payload := map[string]interface{}{}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		f, ok := fields.Lookup(k)
		if !ok {
			return nil, errors.Errorf("unknown field %q in write request", k)
		}
		if !f.IsWritable() {
			return nil, errors.Errorf("field %q cannot be set on this service", k)
		}
		payload[f.TheirNamePut] = values[k]
	}

	var missing []string
	for _, f := range fields {
		if f.IsMandatory && f.IsWritable() {
			if _, ok := values[f.OurName]; !ok {
				missing = append(missing, f.OurName)
			}
		}
	}
	if len(missing) > 0 {
		return nil, errors.Errorf("the following parameters are mandatory but missing: %s",
			strings.Join(missing, ", "))
	}
	return payload, nil
}
