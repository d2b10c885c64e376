// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package oauth provides the authenticated HTTP sessions used to talk to
// the SAP backend services. A Session owns a client-credentials token
// source and a retrying transport; the filter engine never sees any of
// this, it only produces the query strings a Session sends.
package oauth

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/sailor-analytics/sailor/config"
	"github.com/sailor-analytics/sailor/logger"
)

const (
	defaultRetryMax     = 10
	defaultRetryWaitMin = 500 * time.Millisecond
	defaultRetryWaitMax = 30 * time.Second
)

// RequestError reports a non-2xx backend response.
type RequestError struct {
	StatusCode int
	Reason     string
	Body       string
}

func (e *RequestError) Error() string {
	return "request failed. Response " + e.Reason + ": " + e.Body
}

// Session is an authenticated HTTP client for one backend service.
type Session struct {
	name   string
	client *http.Client
	log    logger.Logger
}

// TokenURL returns the token endpoint with the tenant subdomain spliced
// into the host, the convention the SAP authorization servers use. An
// empty subdomain leaves the URL untouched.
func TokenURL(cfg *config.ServiceConfig) string {
	if cfg.Subdomain == "" {
		return cfg.AccessTokenURL
	}
	u := strings.TrimPrefix(cfg.AccessTokenURL, "https://")
	return "https://" + cfg.Subdomain + "." + u
}

// NewSession builds a Session for the named service. The underlying
// transport retries 429 (honoring Retry-After via the backoff) and 5xx
// responses with exponential backoff before anything is reported back as an
// error; token requests go through the same transport.
func NewSession(name string, cfg *config.ServiceConfig, log logger.Logger) *Session {
	if log == nil {
		log = logger.NopLogger
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = defaultRetryMax
	rc.RetryWaitMin = defaultRetryWaitMin
	rc.RetryWaitMax = defaultRetryWaitMax
	rc.Logger = nil
	rc.CheckRetry = checkRetry

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     TokenURL(cfg),
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, rc.StandardClient())

	return &Session{
		name:   name,
		client: cc.Client(ctx),
		log:    log.WithPrefix("oauth[" + name + "] "),
	}
}

// checkRetry retries connection errors, 429 and 5xx. 501 is permanent, as
// in the default policy.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return true, nil
	}
	if resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented {
		return true, nil
	}
	return false, nil
}

// PerformRequest sends one request with the given query parameters merged
// into any already on the endpoint URL, and returns the response body and
// content type. Non-2xx responses become a *RequestError.
func (s *Session) PerformRequest(ctx context.Context, method, endpoint string, params url.Values, body io.Reader) ([]byte, string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, "", errors.Wrapf(err, "parsing endpoint url %q", endpoint)
	}
	q := u.Query()
	for key, values := range params {
		for _, v := range values {
			q.Set(key, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, "", errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	s.log.Debugf("calling %s %s", method, u.String())
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", errors.Wrapf(err, "requesting %s", u.Host)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errors.Wrap(err, "reading response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reqErr := &RequestError{
			StatusCode: resp.StatusCode,
			Reason:     resp.Status,
			Body:       string(data),
		}
		s.log.Errorf("%v", reqErr)
		return nil, "", reqErr
	}
	return data, resp.Header.Get("Content-Type"), nil
}
