// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package fetch executes composed filter queries against an odata-style
// endpoint: one GET per composed query, optional $skip/$top pagination, and
// the concatenation of every response into one record list. Callers
// deduplicate the result by entity identity afterwards, since a record may
// satisfy more than one composed disjunct.
package fetch

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/sailor-analytics/sailor/filter"
	"github.com/sailor-analytics/sailor/logger"
)

// DefaultPageSize is the $top value used while paginating.
const DefaultPageSize = 50000

// Client is the transport capability fetch needs; *oauth.Session satisfies
// it. The request is assumed to have retried/authenticated already by the
// time it returns.
type Client interface {
	PerformRequest(ctx context.Context, method, endpoint string, params url.Values, body io.Reader) ([]byte, string, error)
}

// Options controls how composed queries are sent.
type Options struct {
	// FilterParam is the query parameter carrying the filter string.
	// Empty means "$filter"; the IoT device connectivity API uses "filter".
	FilterParam string
	// OmitFormat suppresses the $format=json parameter for services that
	// reject odata system options.
	OmitFormat bool
	// Paginate walks the endpoint with $skip/$top until a page comes back
	// short.
	Paginate bool
	// PageSize overrides DefaultPageSize when paginating.
	PageSize int
	// Parallelism bounds how many composed queries are in flight at once.
	// Zero or one means sequential, preserving exact query order.
	Parallelism int
	// Budget overrides the composer's query length budget.
	Budget int
	// Logger receives progress and the no-data warning. Nil means none.
	Logger logger.Logger
}

func (o Options) filterParam() string {
	if o.FilterParam == "" {
		return "$filter"
	}
	return o.FilterParam
}

func (o Options) pageSize() int {
	if o.PageSize <= 0 {
		return DefaultPageSize
	}
	return o.PageSize
}

func (o Options) logger() logger.Logger {
	if o.Logger == nil {
		return logger.NopLogger
	}
	return o.Logger
}

// Execute composes the classified filters and fetches every resulting
// query. No filters at all turns into a single unfiltered request. Results
// concatenate in query order regardless of parallelism.
func Execute(ctx context.Context, client Client, endpoint string, unbreakable []string, breakable [][]string, opts Options) ([]filter.Record, error) {
	queries, err := filter.Compose(unbreakable, breakable, opts.Budget)
	if err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		queries = []string{""}
	}

	log := opts.logger()
	perQuery := make([][]filter.Record, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	limit := opts.Parallelism
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			records, err := fetchOne(gctx, client, endpoint, q, opts)
			if err != nil {
				return err
			}
			perQuery[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var result []filter.Record
	for _, records := range perQuery {
		result = append(result, records...)
	}
	if len(result) == 0 {
		log.Warnf("no data found for the given parameters")
	}
	return result, nil
}

func fetchOne(ctx context.Context, client Client, endpoint, query string, opts Options) ([]filter.Record, error) {
	params := url.Values{}
	if query != "" {
		params.Set(opts.filterParam(), query)
	}
	if !opts.OmitFormat {
		params.Set("$format", "json")
	}

	if !opts.Paginate {
		return call(ctx, client, endpoint, params)
	}

	var result []filter.Record
	skip := 0
	for {
		params.Set("$skip", strconv.Itoa(skip))
		params.Set("$top", strconv.Itoa(opts.pageSize()))
		page, err := call(ctx, client, endpoint, params)
		if err != nil {
			return nil, err
		}
		result = append(result, page...)
		if len(page) < opts.pageSize() {
			break
		}
		skip = len(result)
		opts.logger().Infof("fetch data progress: %d", skip)
	}
	return result, nil
}

func call(ctx context.Context, client Client, endpoint string, params url.Values) ([]filter.Record, error) {
	body, _, err := client.PerformRequest(ctx, "GET", endpoint, params, nil)
	if err != nil {
		return nil, err
	}
	return Decode(body)
}

// Decode interprets an endpoint response as records. The services answer
// with a bare JSON array, a single object, or an OData v2 envelope
// {"d": {"results": [...]}}.
func Decode(body []byte) ([]filter.Record, error) {
	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Wrap(err, "decoding endpoint response")
	}
	if envelope, ok := payload.(map[string]interface{}); ok {
		if d, ok := envelope["d"].(map[string]interface{}); ok {
			if results, ok := d["results"].([]interface{}); ok {
				payload = results
			}
		}
	}
	switch v := payload.(type) {
	case []interface{}:
		records := make([]filter.Record, 0, len(v))
		for _, elem := range v {
			record, ok := elem.(map[string]interface{})
			if !ok {
				return nil, errors.Errorf("unexpected element %T in endpoint response", elem)
			}
			records = append(records, record)
		}
		return records, nil
	case map[string]interface{}:
		return []filter.Record{v}, nil
	default:
		return nil, errors.Errorf("unexpected endpoint response of type %T", payload)
	}
}
