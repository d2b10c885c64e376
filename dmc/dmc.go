// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package dmc exposes Digital Manufacturing Cloud scenarios and inspection
// logs. Unlike the odata services, the DMC endpoints take plain query
// parameters: every filter is an equality filter, values are stringified
// and renamed to the service's parameter names, and unknown names pass
// through verbatim with a warning.
package dmc

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/sailor-analytics/sailor/config"
	"github.com/sailor-analytics/sailor/elements"
	"github.com/sailor-analytics/sailor/fetch"
	"github.com/sailor-analytics/sailor/filter"
	"github.com/sailor-analytics/sailor/logger"
	"github.com/sailor-analytics/sailor/oauth"
)

// AI/ML endpoint group paths.
const (
	aimlGroup                = "/aiml"
	pathInspectionLogs       = "/inspectionLogsForContext"
	pathInspectionLogDetails = "/inspectionLog"
	pathActiveScenarios      = "/active-scenarios"
)

// InspectionLogFields maps our inspection log terminology to DMC's record
// fields. The service has no stable log ID; the log time stands in for one.
var InspectionLogFields = filter.FieldMap{
	{OurName: "file_id", TheirNameGet: "fileId"},
	{OurName: "id", TheirNameGet: "inspectionLogTime"},
	{OurName: "type", TheirNameGet: "inspectionType"},
	{OurName: "view_name", TheirNameGet: "inspectionViewName"},
	{OurName: "logged_annotation", TheirNameGet: "loggedAnnotation"},
	{OurName: "logged_nc_code", TheirNameGet: "loggedNCCode"},
	{OurName: "material", TheirNameGet: "material"},
	{OurName: "operation", TheirNameGet: "operation"},
	{OurName: "plant", TheirNameGet: "plant"},
	{OurName: "predicted_annotation", TheirNameGet: "predictedAnnotation"},
	{OurName: "predicted_class", TheirNameGet: "predictedClass"},
	{OurName: "predicted_nc_code", TheirNameGet: "predictedNCCode"},
	{OurName: "resource", TheirNameGet: "resource"},
	{OurName: "routing", TheirNameGet: "routing"},
	{OurName: "sfc", TheirNameGet: "sfcId"},
	{OurName: "source", TheirNameGet: "source"},
}

// inspectionLogFilterFields are the request parameters the
// inspectionLogsForContext endpoint accepts; they do not line up one to one
// with the record fields.
var inspectionLogFilterFields = map[string]string{
	"file_id":              "fileID",
	"from_date":            "fromDate",
	"to_date":              "toDate",
	"inspection_view_name": "inspectionViewName",
	"logged_nc_code":       "loggedNCCode",
	"material":             "material",
	"operation":            "operation",
	"plant":                "plant",
	"resource":             "resource",
	"routing":              "routing",
	"scenario_id":          "scenarioID",
	"scenario_version":     "scenarioVersion",
	"sfc":                  "sfc",
	"skip":                 "skip",
	"source":               "source",
	"top":                  "top",
	"id":                   "inspectionLogTime",
}

// ScenarioFields maps our scenario terminology to DMC's record fields.
var ScenarioFields = filter.FieldMap{
	{OurName: "short_description", TheirNameGet: "scenarioDescription"},
	{OurName: "id", TheirNameGet: "scenarioId"},
	{OurName: "name", TheirNameGet: "scenarioName"},
	{OurName: "objective", TheirNameGet: "scenarioObjective"},
	{OurName: "status", TheirNameGet: "scenarioStatus"},
	{OurName: "version", TheirNameGet: "scenarioVersion"},
	{OurName: "created_at", TheirNameGet: "scenarioCreatedAt"},
	{OurName: "changed_at", TheirNameGet: "scenarioChangedAt"},
	{OurName: "combinations", TheirNameGet: "scenarioCombinations", Hidden: true},
	{OurName: "deployment", TheirNameGet: "deployment", Hidden: true},
}

var scenarioFilterFields = map[string]string{
	"deployment_type": "deploymentType",
	"material":        "material",
	"operation":       "operation",
	"plant":           "plant",
	"resource":        "resource",
	"routing":         "routing",
	"sfc":             "sfc",
}

// InspectionLog is one DMC inspection log.
type InspectionLog struct {
	Raw filter.Record
}

func (l InspectionLog) ID() string {
	return elements.StringField(l.Raw, InspectionLogFields, "id")
}

func (l InspectionLog) FileID() string {
	return elements.StringField(l.Raw, InspectionLogFields, "file_id")
}

func (l InspectionLog) Plant() string {
	return elements.StringField(l.Raw, InspectionLogFields, "plant")
}

// Scenario is one active DMC AI/ML scenario.
type Scenario struct {
	Raw filter.Record
}

func (s Scenario) ID() string {
	return elements.StringField(s.Raw, ScenarioFields, "id")
}

func (s Scenario) Name() string {
	return elements.StringField(s.Raw, ScenarioFields, "name")
}

func (s Scenario) Version() string {
	return elements.StringField(s.Raw, ScenarioFields, "version")
}

type (
	InspectionLogSet = elements.Set[InspectionLog]
	ScenarioSet      = elements.Set[Scenario]
)

// InspectionLogDetails is the detail record for one inspection log,
// optionally carrying its decoded image.
type InspectionLogDetails struct {
	Record filter.Record
	// Image holds the decoded file content when the endpoint returned one.
	Image []byte
}

// Client talks to the AI/ML endpoints of one DMC tenant.
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
	session, err := oauth.GetClient(config.ServiceDMC, log)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Get()
	if err != nil {
		return nil, err
	}
	sc, err := cfg.Service(config.ServiceDMC)
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

// FindInspectionLogs fetches all inspection logs for one scenario context.
// The endpoint requires scenario_id and scenario_version; all other filters
// are optional.
func (c *Client) FindInspectionLogs(ctx context.Context, filters map[string]interface{}) (InspectionLogSet, error) {
	if _, ok := filters["scenario_id"]; !ok {
		return InspectionLogSet{}, errors.New("scenario_id and scenario_version are required")
	}
	if _, ok := filters["scenario_version"]; !ok {
		return InspectionLogSet{}, errors.New("scenario_id and scenario_version are required")
	}

	records, err := c.fetch(ctx, aimlGroup+pathInspectionLogs, filters, inspectionLogFilterFields)
	if err != nil {
		return InspectionLogSet{}, err
	}
	logs := make([]InspectionLog, len(records))
	for i, r := range records {
		logs[i] = InspectionLog{Raw: r}
	}
	return elements.NewSet(logs, c.log), nil
}

// FindScenarios fetches the active scenarios for one production context.
// The endpoint needs either plant and sfc, or plant, material and
// operation.
func (c *Client) FindScenarios(ctx context.Context, filters map[string]interface{}) (ScenarioSet, error) {
	if !hasAll(filters, "plant", "sfc") && !hasAll(filters, "plant", "material", "operation") {
		return ScenarioSet{}, errors.New("either plant and sfc, or plant, material and operation are required")
	}

	records, err := c.fetch(ctx, aimlGroup+pathActiveScenarios, filters, scenarioFilterFields)
	if err != nil {
		return ScenarioSet{}, err
	}
	scenarios := make([]Scenario, len(records))
	for i, r := range records {
		scenarios[i] = Scenario{Raw: r}
	}
	return elements.NewSet(scenarios, c.log), nil
}

// FindInspectionLogsForScenario fetches all inspection logs belonging to
// the scenario.
func (c *Client) FindInspectionLogsForScenario(ctx context.Context, s Scenario) (InspectionLogSet, error) {
	return c.FindInspectionLogs(ctx, map[string]interface{}{
		"scenario_id":      s.ID(),
		"scenario_version": s.Version(),
	})
}

// InspectionLogDetails fetches the detail record for one inspection log and
// decodes the attached image, if any. Material and operation are sent along
// because the endpoint tends to omit the file content without them.
func (c *Client) InspectionLogDetails(ctx context.Context, l InspectionLog) (*InspectionLogDetails, error) {
	records, err := c.fetch(ctx, aimlGroup+pathInspectionLogDetails, map[string]interface{}{
		"id":        l.ID(),
		"file_id":   l.FileID(),
		"plant":     l.Plant(),
		"sfc":       elements.StringField(l.Raw, InspectionLogFields, "sfc"),
		"material":  elements.StringField(l.Raw, InspectionLogFields, "material"),
		"operation": elements.StringField(l.Raw, InspectionLogFields, "operation"),
	}, inspectionLogFilterFields)
	if err != nil {
		return nil, err
	}
	if len(records) != 1 {
		return nil, errors.Errorf("expected one inspection log detail record, got %d", len(records))
	}

	details := &InspectionLogDetails{Record: records[0]}
	if content, ok := records[0]["fileContent"].(string); ok {
		image, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, errors.Wrap(err, "decoding inspection log image")
		}
		details.Image = image
		delete(records[0], "fileContent")
	}
	return details, nil
}

// fetch translates the filters into the endpoint's query parameters and
// GETs the result. Unknown filter names go through unchanged so new service
// parameters stay reachable, but they are reported in one aggregate
// warning.
func (c *Client) fetch(ctx context.Context, path string, filters map[string]interface{}, filterFields map[string]string) ([]filter.Record, error) {
	params := url.Values{}
	var notOurTerm []string

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key, ok := filterFields[k]
		if !ok {
			key = k
			notOurTerm = append(notOurTerm, key)
		}
		params.Set(key, fmt.Sprint(filters[k]))
	}
	if len(notOurTerm) > 0 {
		c.log.Warnf("following parameters are not in our terminology: %s", strings.Join(notOurTerm, ", "))
	}

	body, _, err := c.transport.PerformRequest(ctx, "GET", c.baseURL+path, params, nil)
	if err != nil {
		return nil, err
	}
	records, err := fetch.Decode(body)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		c.log.Warnf("no data found for the given parameters")
	}
	return records, nil
}

func hasAll(filters map[string]interface{}, keys ...string) bool {
	for _, k := range keys {
		if _, ok := filters[k]; !ok {
			return false
		}
	}
	return true
}
