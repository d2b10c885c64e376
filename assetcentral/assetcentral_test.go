// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package assetcentral

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sailor-analytics/sailor/logger"
)

// fakeTransport serves canned responses keyed by endpoint and records every
// request it sees.
type fakeTransport struct {
	mu        sync.Mutex
	responses map[string][]byte
	requests  []fakeRequest
}

type fakeRequest struct {
	method   string
	endpoint string
	params   url.Values
	body     []byte
}

func (f *fakeTransport) PerformRequest(ctx context.Context, method, endpoint string, params url.Values, body io.Reader) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var b []byte
	if body != nil {
		b, _ = io.ReadAll(body)
	}
	f.requests = append(f.requests, fakeRequest{method: method, endpoint: endpoint, params: params, body: b})
	resp, ok := f.responses[endpoint]
	if !ok {
		resp = []byte(`[]`)
	}
	return resp, "application/json", nil
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestFindEquipment(t *testing.T) {
	transport := &fakeTransport{responses: map[string][]byte{
		"https://ac.example.com" + viewEquipment: mustJSON(t, []map[string]interface{}{
			{"equipmentId": "EQ1", "internalId": "pump-1", "modelId": "M1"},
			{"equipmentId": "EQ2", "internalId": "pump-2", "modelId": "M2"},
		}),
	}}
	c := NewClient(transport, "https://ac.example.com/", nil)

	set, err := c.FindEquipment(context.Background(), Query{
		Filters: map[string]interface{}{"model_id": "M1"},
	})
	require.NoError(t, err)

	// The equipment view ignores filters server-side; both records came
	// back, and the post-fetch pass keeps only the matching one.
	require.Equal(t, 1, set.Len())
	assert.Equal(t, "EQ1", set.Elements[0].ID())
	assert.Equal(t, "pump-1", set.Elements[0].Name())

	require.Len(t, transport.requests, 1)
	req := transport.requests[0]
	assert.Equal(t, "GET", req.method)
	assert.Equal(t, "modelId eq 'M1'", req.params.Get("$filter"))
	assert.Equal(t, "json", req.params.Get("$format"))
}

func TestFindEquipmentForModel(t *testing.T) {
	transport := &fakeTransport{responses: map[string][]byte{}}
	c := NewClient(transport, "https://ac.example.com", nil)

	_, err := c.FindEquipmentForModel(context.Background(), "M7")
	require.NoError(t, err)
	require.Len(t, transport.requests, 1)
	assert.Equal(t, "modelId eq 'M7'", transport.requests[0].params.Get("$filter"))
}

func TestFindLocations(t *testing.T) {
	transport := &fakeTransport{responses: map[string][]byte{
		"https://ac.example.com" + viewLocation: mustJSON(t, []map[string]interface{}{
			{"locationId": "L1", "name": "pit"},
			{"locationId": "L1", "name": "pit"},
			{"locationId": "L2", "name": "rim"},
		}),
	}}
	log := logger.NewCaptureLogger()
	c := NewClient(transport, "https://ac.example.com", log)

	set, err := c.FindLocations(context.Background(), Query{})
	require.NoError(t, err)

	// Duplicate IDs collapse into one element.
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []string{"L1", "L2"}, set.IDs())

	// No filter, so the request carries no $filter at all.
	assert.Empty(t, transport.requests[0].params.Get("$filter"))
}

func TestFindModels_ExtendedFilter(t *testing.T) {
	transport := &fakeTransport{responses: map[string][]byte{
		"https://ac.example.com" + viewModels: mustJSON(t, []map[string]interface{}{
			{"modelId": "M1", "name": "compressor", "generation": "4"},
		}),
	}}
	c := NewClient(transport, "https://ac.example.com", nil)

	_, err := c.FindModels(context.Background(), Query{
		Extended: []string{"generation >= 3"},
	})
	require.NoError(t, err)
	assert.Equal(t, "generation ge 3d", transport.requests[0].params.Get("$filter"))
}

func TestFind_UnknownFilterWarns(t *testing.T) {
	transport := &fakeTransport{responses: map[string][]byte{}}
	log := logger.NewCaptureLogger()
	c := NewClient(transport, "https://ac.example.com", log)

	_, err := c.FindLocations(context.Background(), Query{
		Filters: map[string]interface{}{"whatsit": "x", "name": "pit"},
	})
	require.NoError(t, err)
	assert.True(t, log.Contains("not in our terminology"))
	assert.True(t, log.Contains("whatsit"))
}

func TestFindNotifications(t *testing.T) {
	transport := &fakeTransport{responses: map[string][]byte{
		"https://ac.example.com" + viewNotifications: mustJSON(t, []map[string]interface{}{
			{"notificationId": "N1", "internalId": "100", "equipmentId": "EQ1"},
		}),
	}}
	c := NewClient(transport, "https://ac.example.com", nil)

	set, err := c.FindNotifications(context.Background(), Query{
		Filters: map[string]interface{}{"equipment_id": "EQ1"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())
	assert.Equal(t, "N1", set.Elements[0].ID())
	assert.Equal(t, "EQ1", set.Elements[0].EquipmentID())
	assert.Equal(t, "equipmentId eq 'EQ1'", transport.requests[0].params.Get("$filter"))
}

func TestCreateNotification(t *testing.T) {
	transport := &fakeTransport{responses: map[string][]byte{
		"https://ac.example.com" + viewNotifications: mustJSON(t, map[string]interface{}{
			"notificationId": "N9", "internalId": "900",
		}),
	}}
	c := NewClient(transport, "https://ac.example.com", nil)

	created, err := c.CreateNotification(context.Background(), map[string]interface{}{
		"short_description": "pump leaking",
		"equipment_id":      "EQ1",
		"notification_type": "M2",
		"priority":          "25",
	})
	require.NoError(t, err)
	assert.Equal(t, "N9", created.ID())

	require.Len(t, transport.requests, 1)
	req := transport.requests[0]
	assert.Equal(t, "POST", req.method)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(req.body, &payload))
	assert.Equal(t, map[string]interface{}{
		"description": "pump leaking",
		"equipmentID": "EQ1",
		"type":        "M2",
		"priority":    "25",
	}, payload)
}

func TestCreateNotification_MissingMandatory(t *testing.T) {
	c := NewClient(&fakeTransport{}, "https://ac.example.com", nil)

	_, err := c.CreateNotification(context.Background(), map[string]interface{}{
		"short_description": "pump leaking",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mandatory")
	assert.Contains(t, err.Error(), "equipment_id")
}

func TestCreateNotification_RejectsUnknownAndReadOnly(t *testing.T) {
	c := NewClient(&fakeTransport{}, "https://ac.example.com", nil)

	_, err := c.CreateNotification(context.Background(), map[string]interface{}{
		"frobnication": "yes",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")

	_, err = c.CreateNotification(context.Background(), map[string]interface{}{
		"status_text": "open",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be set")
}

func TestEquipmentRows(t *testing.T) {
	set := EquipmentSet{Elements: []Equipment{
		{Raw: map[string]interface{}{"equipmentId": "EQ1", "internalId": "pump-1", "status": "1"}},
	}}
	header, rows := EquipmentRows(set)
	assert.Contains(t, header, "id")
	assert.NotContains(t, header, "status") // hidden
	require.Len(t, rows, 1)
}
