// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package pai exposes Predictive Asset Insights alerts. The alert read
// service is OData v2: responses arrive in a d/results envelope and
// timestamps come back as "/Date(ms)/" strings.
package pai

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sailor-analytics/sailor/config"
	"github.com/sailor-analytics/sailor/elements"
	"github.com/sailor-analytics/sailor/fetch"
	"github.com/sailor-analytics/sailor/filter"
	"github.com/sailor-analytics/sailor/logger"
	"github.com/sailor-analytics/sailor/oauth"
)

const alertsReadPath = "/AlertsOData.svc/Alerts"

// AlertFields maps our alert terminology to the read service's. Names
// starting with an underscore in the service stay hidden from tabular
// output but remain filterable.
var AlertFields = filter.FieldMap{
	{OurName: "description", TheirNameGet: "Description"},
	{OurName: "severity_code", TheirNameGet: "SeverityCode"},
	{OurName: "category", TheirNameGet: "Category"},
	{OurName: "equipment_name", TheirNameGet: "EquipmentName"},
	{OurName: "model_name", TheirNameGet: "ModelName"},
	{OurName: "indicator_name", TheirNameGet: "IndicatorName"},
	{OurName: "indicator_group_name", TheirNameGet: "IndicatorGroupName"},
	{OurName: "template_name", TheirNameGet: "TemplateName"},
	{OurName: "count", TheirNameGet: "Count"},
	{OurName: "status_code", TheirNameGet: "StatusCode"},
	{OurName: "triggered_on", TheirNameGet: "TriggeredOn",
		Transform: filter.DatetimeOffset, Extract: odataTimestamp},
	{OurName: "last_occured_on", TheirNameGet: "LastOccuredOn",
		Transform: filter.DatetimeOffset, Extract: odataTimestamp},
	{OurName: "type_description", TheirNameGet: "AlertTypeDescription"},
	{OurName: "error_code_description", TheirNameGet: "ErrorCodeDescription"},
	{OurName: "type", TheirNameGet: "AlertType"},
	{OurName: "id", TheirNameGet: "AlertId"},
	{OurName: "equipment_id", TheirNameGet: "EquipmentID"},
	{OurName: "model_id", TheirNameGet: "ModelID"},
	{OurName: "template_id", TheirNameGet: "TemplateID"},
	{OurName: "indicator_id", TheirNameGet: "IndicatorID"},
	{OurName: "indicator_group_id", TheirNameGet: "IndicatorGroupID"},
	{OurName: "notification_id", TheirNameGet: "NotificationId"},
	{OurName: "indicator_description", TheirNameGet: "IndicatorDescription", Hidden: true},
	{OurName: "country_id", TheirNameGet: "CountryID", Hidden: true},
	{OurName: "functional_location_id", TheirNameGet: "FunctionalLocationID", Hidden: true},
	{OurName: "maintenance_plant", TheirNameGet: "MaintenancePlant", Hidden: true},
	{OurName: "functional_location_description", TheirNameGet: "FunctionalLocationDescription", Hidden: true},
	{OurName: "top_functional_location_name", TheirNameGet: "TopFunctionalLocationName", Hidden: true},
	{OurName: "planner_group", TheirNameGet: "PlannerGroup", Hidden: true},
	{OurName: "ref_alert_type_id", TheirNameGet: "RefAlertTypeId", Hidden: true},
	{OurName: "operator_name", TheirNameGet: "OperatorName", Hidden: true},
	{OurName: "created_by", TheirNameGet: "CreatedBy", Hidden: true},
	{OurName: "changed_by", TheirNameGet: "ChangedBy", Hidden: true},
	{OurName: "serial_number", TheirNameGet: "SerialNumber", Hidden: true},
	{OurName: "changed_on", TheirNameGet: "ChangedOn", Hidden: true,
		Transform: filter.DatetimeOffset, Extract: odataTimestamp},
	{OurName: "processor", TheirNameGet: "Processor", Hidden: true},
	{OurName: "top_equipment_id", TheirNameGet: "TopEquipmentID", Hidden: true},
	{OurName: "planning_plant", TheirNameGet: "PlanningPlant", Hidden: true},
	{OurName: "error_code_id", TheirNameGet: "ErrorCodeID", Hidden: true},
	{OurName: "operator_id", TheirNameGet: "OperatorID", Hidden: true},
	{OurName: "source", TheirNameGet: "Source", Hidden: true},
	{OurName: "top_equipment_name", TheirNameGet: "TopEquipmentName", Hidden: true},
	{OurName: "created_on", TheirNameGet: "CreatedOn", Hidden: true,
		Transform: filter.DatetimeOffset, Extract: odataTimestamp},
	{OurName: "model_description", TheirNameGet: "ModelDescription", Hidden: true},
	{OurName: "top_equipment_description", TheirNameGet: "TopEquipmentDescription", Hidden: true},
	{OurName: "functional_location_name", TheirNameGet: "FunctionalLocationName", Hidden: true},
	{OurName: "top_functional_location_description", TheirNameGet: "TopFunctionalLocationDescription", Hidden: true},
	{OurName: "top_functional_location_id", TheirNameGet: "TopFunctionalLocationID", Hidden: true},
	{OurName: "equipment_description", TheirNameGet: "EquipmentDescription", Hidden: true},
}

// Alert is one PAI alert.
type Alert struct {
	Raw filter.Record
}

func (a Alert) ID() string {
	return elements.StringField(a.Raw, AlertFields, "id")
}

func (a Alert) EquipmentID() string {
	return elements.StringField(a.Raw, AlertFields, "equipment_id")
}

func (a Alert) Type() string {
	return elements.StringField(a.Raw, AlertFields, "type")
}

// TriggeredOn returns the alert trigger time, zero if absent or unparseable.
func (a Alert) TriggeredOn() time.Time {
	if ts, ok := odataTimestamp(a.Raw["TriggeredOn"]).(time.Time); ok {
		return ts
	}
	return time.Time{}
}

// AlertSet is a deduplicated collection of Alerts.
type AlertSet = elements.Set[Alert]

// Query carries the user's filter request, identical in shape to the other
// services.
type Query struct {
	Filters  map[string]interface{}
	Extended []string
}

// Client talks to one PAI tenant.
type Client struct {
	transport fetch.Client
	baseURL   string
	log       logger.Logger
}

// Open builds a Client from the process configuration.
func Open(log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.StderrLogger
	}
	session, err := oauth.GetClient(config.ServicePAI, log)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Get()
	if err != nil {
		return nil, err
	}
	sc, err := cfg.Service(config.ServicePAI)
	if err != nil {
		return nil, err
	}
	return NewClient(session, sc.ApplicationURL, log), nil
}

// NewClient wires a Client onto an explicit transport, mainly for tests.
func NewClient(transport fetch.Client, baseURL string, log logger.Logger) *Client {
	if log == nil {
		log = logger.NopLogger
	}
	return &Client{transport: transport, baseURL: strings.TrimSuffix(baseURL, "/"), log: log}
}

// FindAlerts fetches all alerts matching the query.
func (c *Client) FindAlerts(ctx context.Context, q Query) (AlertSet, error) {
	terms, unknown, err := filter.Normalize(q.Filters, q.Extended, AlertFields)
	if err != nil {
		return AlertSet{}, err
	}
	if len(unknown) > 0 {
		c.log.Warnf("following parameters are not in our terminology: %s", strings.Join(unknown, ", "))
	}
	unbreakable, breakable := filter.Classify(terms)

	records, err := fetch.Execute(ctx, c.transport, c.baseURL+alertsReadPath, unbreakable, breakable, fetch.Options{
		Logger: c.log,
	})
	if err != nil {
		return AlertSet{}, err
	}
	alerts := make([]Alert, len(records))
	for i, r := range records {
		alerts[i] = Alert{Raw: r}
	}
	return elements.NewSet(alerts, c.log), nil
}

// AlertRows renders the set for tabular output.
func AlertRows(s AlertSet) ([]string, [][]interface{}) {
	records := make([]filter.Record, len(s.Elements))
	for i, a := range s.Elements {
		records[i] = a.Raw
	}
	return elements.TableRows(records, AlertFields)
}

// odataTimestamp parses the "/Date(1601241600000)/" millisecond strings the
// OData v2 service returns. Anything else passes through.
func odataTimestamp(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if !strings.HasPrefix(s, "/Date(") || !strings.HasSuffix(s, ")/") {
		return s
	}
	ms, err := strconv.ParseInt(s[len("/Date(") : len(s)-len(")/")], 10, 64)
	if err != nil {
		return s
	}
	return time.UnixMilli(ms).UTC()
}
