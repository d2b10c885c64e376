// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package iot

import (
	"context"
	"io"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu        sync.Mutex
	responses map[string][]byte
	requests  []fakeRequest
}

type fakeRequest struct {
	endpoint string
	params   url.Values
}

func (f *fakeTransport) PerformRequest(ctx context.Context, method, endpoint string, params url.Values, body io.Reader) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, fakeRequest{endpoint: endpoint, params: params})
	resp, ok := f.responses[endpoint]
	if !ok {
		resp = []byte(`[]`)
	}
	return resp, "application/json", nil
}

func TestFindDevices_BareFilterParam(t *testing.T) {
	transport := &fakeTransport{responses: map[string][]byte{
		"https://iot.example.com" + viewDevices: []byte(`[
			{"id":"D1","name":"drill","alternateId":"drill-01",
			 "sensors":[{"id":"S1","sensorTypeId":"ST1"},{"id":"S2","sensorTypeId":"ST2"}]}
		]`),
	}}
	c := NewClient(transport, "https://iot.example.com", nil)

	set, err := c.FindDevices(context.Background(), Query{
		Filters: map[string]interface{}{"alternate_id": "drill-01"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	assert.Equal(t, "D1", set.Elements[0].ID())
	assert.Equal(t, []string{"ST1", "ST2"}, set.Elements[0].SensorTypeIDs())

	require.Len(t, transport.requests, 1)
	req := transport.requests[0]
	assert.Equal(t, "alternateId eq 'drill-01'", req.params.Get("filter"))
	assert.False(t, req.params.Has("$filter"))
	assert.False(t, req.params.Has("$format"))
}

func TestFindDevices_SingleObjectResponse(t *testing.T) {
	transport := &fakeTransport{responses: map[string][]byte{
		"https://iot.example.com" + viewDevices: []byte(`{"id":"D1","name":"drill"}`),
	}}
	c := NewClient(transport, "https://iot.example.com", nil)

	set, err := c.FindDevices(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
}

func TestFindSensorTypesForDevices(t *testing.T) {
	transport := &fakeTransport{responses: map[string][]byte{
		"https://iot.example.com" + viewSensorTypes: []byte(`[
			{"id":"ST1","name":"temperature","capabilities":[{"id":"C1"}]},
			{"id":"ST2","name":"pressure","capabilities":[{"id":"C2"}]}
		]`),
	}}
	c := NewClient(transport, "https://iot.example.com", nil)

	devices := DeviceSet{Elements: []Device{
		{Raw: map[string]interface{}{"id": "D1", "sensors": []interface{}{
			map[string]interface{}{"sensorTypeId": "ST1"},
			map[string]interface{}{"sensorTypeId": "ST2"},
		}}},
	}}

	types, err := c.FindSensorTypesForDevices(context.Background(), devices)
	require.NoError(t, err)
	assert.Equal(t, []string{"ST1", "ST2"}, types.IDs())

	// Two IDs turn into one OR group.
	filterStr := transport.requests[0].params.Get("filter")
	assert.True(t, strings.HasPrefix(filterStr, "("), "got %q", filterStr)
	assert.Contains(t, filterStr, "id eq 'ST1' or id eq 'ST2'")

	capabilities, err := c.FindCapabilitiesForSensorTypes(context.Background(), types)
	require.NoError(t, err)
	assert.Equal(t, 0, capabilities.Len()) // no canned response for the view
	assert.Contains(t, transport.requests[1].params.Get("filter"), "id eq 'C1' or id eq 'C2'")
}

func TestFindSensorTypesForDevices_NoSensors(t *testing.T) {
	transport := &fakeTransport{}
	c := NewClient(transport, "https://iot.example.com", nil)

	types, err := c.FindSensorTypesForDevices(context.Background(), DeviceSet{})
	require.NoError(t, err)
	assert.Equal(t, 0, types.Len())
	assert.Empty(t, transport.requests)
}

func TestFindDevices_NonFilterableSensors(t *testing.T) {
	c := NewClient(&fakeTransport{}, "https://iot.example.com", nil)

	_, err := c.FindDevices(context.Background(), Query{
		Filters: map[string]interface{}{"sensors": "anything"},
	})
	require.Error(t, err)
}
