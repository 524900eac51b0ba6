// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package offline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// HTTPSubmitter posts payloads as JSON to the request-creation endpoint.
// Header is copied onto every request (session cookie, auth).
type HTTPSubmitter struct {
	URL    string
	Client *http.Client
	Header http.Header
}

// Submit implements SubmitFunc. Network failures are returned as errors;
// HTTP responses, including error statuses, become a SubmitResult.
func (s *HTTPSubmitter) Submit(ctx context.Context, payload json.RawMessage) (SubmitResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(payload))
	if err != nil {
		return SubmitResult{}, fmt.Errorf("failed to build request: %w", err)
	}
	for k, vs := range s.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("submit failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return SubmitResult{}, fmt.Errorf("failed to read response: %w", err)
	}

	var res SubmitResult
	if err := json.Unmarshal(body, &res); err != nil {
		res = SubmitResult{}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		res.Success = false
		if res.ErrorCode == "" {
			res.ErrorCode = "http_" + strconv.Itoa(resp.StatusCode)
		}
	}
	return res, nil
}

// HealthProbe returns a Probe that reports online when url answers 2xx
func HealthProbe(client *http.Client, url string) Probe {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode >= 200 && resp.StatusCode < 300
	}
}
