// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package assetcentral exposes the AssetCentral entities: equipment,
// locations, models and notifications. All finders speak the common filter
// language; AssetCentral takes the composed queries in the $filter
// parameter with odata quoting.
package assetcentral

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/sailor-analytics/sailor/config"
	"github.com/sailor-analytics/sailor/fetch"
	"github.com/sailor-analytics/sailor/filter"
	"github.com/sailor-analytics/sailor/logger"
	"github.com/sailor-analytics/sailor/oauth"
)

// AssetCentral view endpoints.
const (
	viewEquipment     = "/services/api/v1/equipment"
	viewLocation      = "/services/api/v1/location"
	viewModels        = "/services/api/v1/models"
	viewNotifications = "/services/api/v1/notification"
)

// Query carries the user's filter request: equality filters on exposed
// field names (value or list of alternatives) plus extended comparison
// strings like "installation_date >= '2020-01-01'".
type Query struct {
	Filters  map[string]interface{}
	Extended []string
}

// Client talks to one AssetCentral tenant.
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
	session, err := oauth.GetClient(config.ServiceAssetCentral, log)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Get()
	if err != nil {
		return nil, err
	}
	sc, err := cfg.Service(config.ServiceAssetCentral)
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

// find runs the full filter pipeline against one view: normalize, classify,
// compose, fetch. The returned terms let callers re-apply the filters in
// memory for endpoints that ignore some of them.
func (c *Client) find(ctx context.Context, view string, q Query, fields filter.FieldMap) ([]filter.Record, []filter.Term, error) {
	terms, unknown, err := filter.Normalize(q.Filters, q.Extended, fields)
	if err != nil {
		return nil, nil, err
	}
	if len(unknown) > 0 {
		c.log.Warnf("following parameters are not in our terminology: %s", strings.Join(unknown, ", "))
	}
	unbreakable, breakable := filter.Classify(terms)

	records, err := fetch.Execute(ctx, c.transport, c.baseURL+view, unbreakable, breakable, fetch.Options{
		Paginate: true,
		Logger:   c.log,
	})
	if err != nil {
		return nil, nil, err
	}
	return records, terms, nil
}

// refilter applies the canonical terms to fetched records for views that
// ignore part of the filter string server-side.
func (c *Client) refilter(records []filter.Record, terms []filter.Term, fields filter.FieldMap) ([]filter.Record, error) {
	filtered, skipped, err := filter.Evaluate(records, terms, fields)
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		c.log.Warnf("filters on non-filterable fields were skipped: %s", strings.Join(skipped, ", "))
	}
	return filtered, nil
}

// msTimestamp converts the millisecond epoch strings AssetCentral returns
// into time.Time for display; anything unparseable passes through.
func msTimestamp(v interface{}) interface{} {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return time.UnixMilli(int64(t)).UTC()
	case string:
		ms, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return t
		}
		return time.UnixMilli(ms).UTC()
	default:
		return v
	}
}
