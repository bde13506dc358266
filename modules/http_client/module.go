// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package http_client provides a shareable HTTP client host object and a
// function for making individual HTTP requests with it.
package http_client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vk/gridscript/internal/ctxlog"
	"github.com/vk/gridscript/internal/dynamic"
	"github.com/vk/gridscript/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// ClientType is the script type of a client.
var ClientType = dynamic.RegisterType[http.Client]("http_client")

// DefaultClient serves http_request calls that do not pass a client.
var DefaultClient = &http.Client{Timeout: 30 * time.Second}

// Module implements the registry.Module interface for this package.
type Module struct{}

// NewClient creates a client with a pooled transport.
func NewClient(timeout string) (*http.Client, error) {
	d, err := time.ParseDuration(timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timeout: %w", err)
	}
	return &http.Client{
		Timeout: d,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}, nil
}

// Request performs a request and returns {status_code, status, body}.
func Request(ctx context.Context, client *http.Client, method, url, body string) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Making HTTP request", "method", method, "url", url)

	if client == nil {
		return cty.NilVal, fmt.Errorf("http client is closed or missing")
	}

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, reader)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	logger.Info("Received HTTP response", "status", resp.Status)
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to read response body: %w", err)
	}

	return cty.ObjectVal(map[string]cty.Value{
		"status_code": cty.NumberIntVal(int64(resp.StatusCode)),
		"status":      cty.StringVal(resp.Status),
		"body":        cty.StringVal(string(bodyBytes)),
	}), nil
}

// Register registers the module's functions.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFn("http_client", NewClient)
	r.RegisterFn("http_close", func(client *http.Client) {
		if client != nil {
			client.CloseIdleConnections()
		}
	})
	r.RegisterFn("http_request", func(ctx context.Context, method, url string) (cty.Value, error) {
		return Request(ctx, DefaultClient, method, url, "")
	})
	r.RegisterFn("http_request", func(ctx context.Context, client *http.Client, method, url string) (cty.Value, error) {
		return Request(ctx, client, method, url, "")
	})
	r.RegisterFn("http_request", func(ctx context.Context, client *http.Client, method, url, body string) (cty.Value, error) {
		return Request(ctx, client, method, url, body)
	})
}
