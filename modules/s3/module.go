// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package s3 moves files to and from pre-signed object storage URLs.
package s3

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/vk/gridscript/internal/ctxlog"
	"github.com/vk/gridscript/internal/registry"
	"github.com/vk/gridscript/modules/http_client"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Upload PUTs the file at sourcePath to a pre-signed URL.
func Upload(ctx context.Context, client *http.Client, sourcePath, uploadURL string) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("action", "upload")

	file, err := os.Open(sourcePath)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to open source file '%s': %w", sourcePath, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to get file stats for '%s': %w", sourcePath, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, file)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create upload request: %w", err)
	}

	contentType := mime.TypeByExtension(filepath.Ext(sourcePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = stat.Size()

	logger.Info("Uploading file", "source", sourcePath, "size", stat.Size(), "contentType", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to execute upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cty.NilVal, fmt.Errorf("upload failed with status: %s", resp.Status)
	}

	logger.Info("Successfully uploaded file", "status", resp.Status)
	return cty.ObjectVal(map[string]cty.Value{
		"success": cty.True,
		"status":  cty.StringVal(resp.Status),
	}), nil
}

// Download GETs a pre-signed URL into destPath.
func Download(ctx context.Context, client *http.Client, downloadURL, destPath string) (cty.Value, error) {
	logger := ctxlog.FromContext(ctx).With("action", "download")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to execute download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cty.NilVal, fmt.Errorf("download failed with status: %s", resp.Status)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to create destination file '%s': %w", destPath, err)
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return cty.NilVal, fmt.Errorf("failed to write destination file '%s': %w", destPath, err)
	}

	logger.Info("Successfully downloaded file", "dest", destPath, "size", n)
	return cty.ObjectVal(map[string]cty.Value{
		"success": cty.True,
		"status":  cty.StringVal(resp.Status),
		"size":    cty.NumberIntVal(n),
	}), nil
}

// Register registers the module's functions. Each has an overload taking an
// http_client as its first argument.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFn("s3_upload", func(ctx context.Context, sourcePath, uploadURL string) (cty.Value, error) {
		return Upload(ctx, http_client.DefaultClient, sourcePath, uploadURL)
	})
	r.RegisterFn("s3_upload", Upload)
	r.RegisterFn("s3_download", func(ctx context.Context, downloadURL, destPath string) (cty.Value, error) {
		return Download(ctx, http_client.DefaultClient, downloadURL, destPath)
	})
	r.RegisterFn("s3_download", Download)
}
