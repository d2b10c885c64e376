// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package iot exposes the SAP IoT device connectivity API: devices, sensor
// types and capabilities. The API diverges from the odata services in two
// ways that matter here: the filter string travels in a bare "filter"
// parameter, and system options like $format are rejected.
package iot

import (
	"context"
	"strings"

	"github.com/sailor-analytics/sailor/config"
	"github.com/sailor-analytics/sailor/elements"
	"github.com/sailor-analytics/sailor/fetch"
	"github.com/sailor-analytics/sailor/filter"
	"github.com/sailor-analytics/sailor/logger"
	"github.com/sailor-analytics/sailor/oauth"
)

// Device connectivity view endpoints.
const (
	viewDevices     = "/api/v1/devices"
	viewSensorTypes = "/api/v1/sensorTypes"
	viewCapability  = "/api/v1/capabilities"
)

var DeviceFields = filter.FieldMap{
	{OurName: "id", TheirNameGet: "id"},
	{OurName: "name", TheirNameGet: "name"},
	{OurName: "alternate_id", TheirNameGet: "alternateId"},
	{OurName: "gateway_id", TheirNameGet: "gatewayId", Hidden: true},
	{OurName: "online", TheirNameGet: "online", Hidden: true, Transform: filter.Verbatim},
	{OurName: "sensors", TheirNameGet: "sensors", NonFilterable: true},
	{OurName: "authentications", TheirNameGet: "authentications", Hidden: true, NonFilterable: true},
	{OurName: "creation_timestamp", TheirNameGet: "creationTimestamp", Hidden: true},
}

var SensorTypeFields = filter.FieldMap{
	{OurName: "name", TheirNameGet: "name"},
	{OurName: "alternate_id", TheirNameGet: "alternateId"},
	{OurName: "capabilities", TheirNameGet: "capabilities", NonFilterable: true},
	{OurName: "id", TheirNameGet: "id"},
}

var CapabilityFields = filter.FieldMap{
	{OurName: "name", TheirNameGet: "name"},
	{OurName: "alternate_id", TheirNameGet: "alternateId"},
	{OurName: "properties", TheirNameGet: "properties", NonFilterable: true},
	{OurName: "id", TheirNameGet: "id"},
}

// Device is one registered IoT device.
type Device struct {
	Raw filter.Record
}

func (d Device) ID() string {
	return elements.StringField(d.Raw, DeviceFields, "id")
}

func (d Device) Name() string {
	return elements.StringField(d.Raw, DeviceFields, "name")
}

func (d Device) AlternateID() string {
	return elements.StringField(d.Raw, DeviceFields, "alternate_id")
}

// SensorTypeIDs lists the sensor type IDs assigned to the device through
// its sensors.
func (d Device) SensorTypeIDs() []string {
	sensors, ok := d.Raw["sensors"].([]interface{})
	if !ok {
		return nil
	}
	var ids []string
	for _, s := range sensors {
		sensor, ok := s.(map[string]interface{})
		if !ok {
			continue
		}
		if id, ok := sensor["sensorTypeId"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// SensorType describes the sensor types a device carries.
type SensorType struct {
	Raw filter.Record
}

func (s SensorType) ID() string {
	return elements.StringField(s.Raw, SensorTypeFields, "id")
}

func (s SensorType) Name() string {
	return elements.StringField(s.Raw, SensorTypeFields, "name")
}

// CapabilityIDs lists the capability IDs assigned to the sensor type.
func (s SensorType) CapabilityIDs() []string {
	capabilities, ok := s.Raw["capabilities"].([]interface{})
	if !ok {
		return nil
	}
	var ids []string
	for _, c := range capabilities {
		capability, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		if id, ok := capability["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Capability describes one measurable capability.
type Capability struct {
	Raw filter.Record
}

func (c Capability) ID() string {
	return elements.StringField(c.Raw, CapabilityFields, "id")
}

func (c Capability) Name() string {
	return elements.StringField(c.Raw, CapabilityFields, "name")
}

type (
	DeviceSet     = elements.Set[Device]
	SensorTypeSet = elements.Set[SensorType]
	CapabilitySet = elements.Set[Capability]
)

// Query carries the user's filter request, identical in shape to the other
// services.
type Query struct {
	Filters  map[string]interface{}
	Extended []string
}

// Client talks to the device connectivity API of one IoT tenant.
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
	session, err := oauth.GetClient(config.ServiceIoT, log)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Get()
	if err != nil {
		return nil, err
	}
	sc, err := cfg.Service(config.ServiceIoT)
	if err != nil {
		return nil, err
	}
	return NewClient(session, sc.DeviceConnectivityURL, log), nil
}

// NewClient wires a Client onto an explicit transport, mainly for tests.
func NewClient(transport fetch.Client, baseURL string, log logger.Logger) *Client {
	if log == nil {
		log = logger.NopLogger
	}
	return &Client{transport: transport, baseURL: strings.TrimSuffix(baseURL, "/"), log: log}
}

func (c *Client) find(ctx context.Context, view string, q Query, fields filter.FieldMap) ([]filter.Record, error) {
	terms, unknown, err := filter.Normalize(q.Filters, q.Extended, fields)
	if err != nil {
		return nil, err
	}
	if len(unknown) > 0 {
		c.log.Warnf("following parameters are not in our terminology: %s", strings.Join(unknown, ", "))
	}
	unbreakable, breakable := filter.Classify(terms)

	return fetch.Execute(ctx, c.transport, c.baseURL+view, unbreakable, breakable, fetch.Options{
		FilterParam: "filter",
		OmitFormat:  true,
		Logger:      c.log,
	})
}

// FindDevices fetches all devices matching the query.
func (c *Client) FindDevices(ctx context.Context, q Query) (DeviceSet, error) {
	records, err := c.find(ctx, viewDevices, q, DeviceFields)
	if err != nil {
		return DeviceSet{}, err
	}
	devices := make([]Device, len(records))
	for i, r := range records {
		devices[i] = Device{Raw: r}
	}
	return elements.NewSet(devices, c.log), nil
}

// FindSensorTypes fetches all sensor types matching the query.
func (c *Client) FindSensorTypes(ctx context.Context, q Query) (SensorTypeSet, error) {
	records, err := c.find(ctx, viewSensorTypes, q, SensorTypeFields)
	if err != nil {
		return SensorTypeSet{}, err
	}
	types := make([]SensorType, len(records))
	for i, r := range records {
		types[i] = SensorType{Raw: r}
	}
	return elements.NewSet(types, c.log), nil
}

// FindCapabilities fetches all capabilities matching the query.
func (c *Client) FindCapabilities(ctx context.Context, q Query) (CapabilitySet, error) {
	records, err := c.find(ctx, viewCapability, q, CapabilityFields)
	if err != nil {
		return CapabilitySet{}, err
	}
	capabilities := make([]Capability, len(records))
	for i, r := range records {
		capabilities[i] = Capability{Raw: r}
	}
	return elements.NewSet(capabilities, c.log), nil
}

// FindSensorTypesForDevices fetches the sensor types assigned to the given
// devices through their sensors.
func (c *Client) FindSensorTypesForDevices(ctx context.Context, devices DeviceSet) (SensorTypeSet, error) {
	var ids []string
	for _, d := range devices.Elements {
		ids = append(ids, d.SensorTypeIDs()...)
	}
	if len(ids) == 0 {
		return SensorTypeSet{}, nil
	}
	return c.FindSensorTypes(ctx, Query{Filters: map[string]interface{}{"id": ids}})
}

// FindCapabilitiesForSensorTypes fetches the capabilities assigned to the
// given sensor types.
func (c *Client) FindCapabilitiesForSensorTypes(ctx context.Context, types SensorTypeSet) (CapabilitySet, error) {
	var ids []string
	for _, s := range types.Elements {
		ids = append(ids, s.CapabilityIDs()...)
	}
	if len(ids) == 0 {
		return CapabilitySet{}, nil
	}
	return c.FindCapabilities(ctx, Query{Filters: map[string]interface{}{"id": ids}})
}

// DeviceRows renders the set for tabular output.
func DeviceRows(s DeviceSet) ([]string, [][]interface{}) {
	records := make([]filter.Record, len(s.Elements))
	for i, d := range s.Elements {
		records[i] = d.Raw
	}
	return elements.TableRows(records, DeviceFields)
}
