// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package socketio gives scripts a socket.io client. A connection is a host
// object: socket_connect returns it and the other functions take it as their
// first argument.
package socketio

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/gridscript/internal/bridge"
	"github.com/vk/gridscript/internal/ctxlog"
	"github.com/vk/gridscript/internal/dynamic"
	"github.com/vk/gridscript/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Default waits.
const (
	DefaultConnectTimeout = 15 * time.Second
	DefaultRequestTimeout = 10 * time.Second
)

// ErrNotConnected is returned when a function is given a closed client.
var ErrNotConnected = errors.New("socket.io client is not connected")

// ClientType is the script type of a connection.
var ClientType = dynamic.RegisterType[socket.Socket]("socketio_client")

// Module implements the registry.Module interface for this package.
type Module struct{}

// ConnectOptions are the optional settings of socket_connect.
type ConnectOptions struct {
	Namespace          string
	InsecureSkipVerify bool
	Timeout            time.Duration
}

var optionsType = cty.ObjectWithOptionalAttrs(map[string]cty.Type{
	"namespace":            cty.String,
	"insecure_skip_verify": cty.Bool,
	"timeout":              cty.String,
}, []string{"namespace", "insecure_skip_verify", "timeout"})

// ParseConnectOptions reads an options object. Unknown attributes are
// ignored.
func ParseConnectOptions(m dynamic.Map) (ConnectOptions, error) {
	opts := ConnectOptions{Timeout: DefaultConnectTimeout}
	val, err := convert.Convert(cty.ObjectVal(m), optionsType)
	if err != nil {
		return opts, fmt.Errorf("invalid connect options: %w", err)
	}
	if v := val.GetAttr("namespace"); !v.IsNull() {
		opts.Namespace = v.AsString()
	}
	if v := val.GetAttr("insecure_skip_verify"); !v.IsNull() {
		opts.InsecureSkipVerify = v.True()
	}
	if v := val.GetAttr("timeout"); !v.IsNull() {
		d, err := time.ParseDuration(v.AsString())
		if err != nil {
			return opts, fmt.Errorf("failed to parse timeout: %w", err)
		}
		opts.Timeout = d
	}
	return opts, nil
}

// Connect opens a connection and waits until it is established.
func Connect(ctx context.Context, rawURL string, o ConnectOptions) (*socket.Socket, error) {
	logger := ctxlog.FromContext(ctx).With("url", rawURL, "namespace", o.Namespace)
	logger.Debug("Creating socket.io client.")

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	opts.SetReconnection(false)
	if o.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(o.Namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Debug("Successfully connected", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err, _ := errs[0].(error)
		if err == nil {
			err = fmt.Errorf("%v", errs[0])
		}
		connectChan <- err
	})

	io.Connect()

	timer := time.NewTimer(o.Timeout)
	defer timer.Stop()
	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return io, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-timer.C:
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %v waiting for socket.io connection", o.Timeout)
	}
}

func payload(data dynamic.Value) (any, error) {
	out, err := dynamic.ToInterface(data.Cty())
	if err != nil {
		return nil, fmt.Errorf("failed to convert event data: %w", err)
	}
	return out, nil
}

// Emit sends an event without waiting for an answer.
func Emit(call *bridge.CallContext, client *socket.Socket, event string, data dynamic.Value) error {
	if client == nil || !client.Connected() {
		return ErrNotConnected
	}
	out, err := payload(data)
	if err != nil {
		return err
	}
	call.Logger().Debug("Emitting event", "event", event, "sid", client.Id())
	return client.Emit(event, out)
}

// Request emits an event and waits for the response event.
func Request(call *bridge.CallContext, client *socket.Socket, emitEvent string, data dynamic.Value, onEvent string, timeout time.Duration) (dynamic.Value, error) {
	if client == nil || !client.Connected() {
		return dynamic.Unit(), ErrNotConnected
	}
	logger := call.Logger().With("sid", client.Id())

	type opResult struct {
		value cty.Value
		err   error
	}
	done := make(chan opResult, 1)
	opCtx, cancel := context.WithTimeout(call.Context(), timeout)
	defer cancel()

	client.Once(types.EventName(onEvent), func(args ...any) {
		var res any
		if len(args) > 0 {
			res = args[0]
		}
		v, err := dynamic.FromInterface(res)
		done <- opResult{value: v, err: err}
	})

	out, err := payload(data)
	if err != nil {
		return dynamic.Unit(), err
	}
	jsonData, _ := json.Marshal(out)
	logger.Debug("Emitting event", "event", emitEvent, "data", string(jsonData))
	if err := client.Emit(emitEvent, out); err != nil {
		return dynamic.Unit(), err
	}

	select {
	case <-opCtx.Done():
		return dynamic.Unit(), fmt.Errorf("timed out after %v waiting for event '%s'", timeout, onEvent)
	case res := <-done:
		if res.err != nil {
			return dynamic.Unit(), res.err
		}
		logger.Debug("Received response event", "event", onEvent)
		return dynamic.Wrap(res.value), nil
	}
}

// Register registers the module's functions.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFn("socket_connect", func(ctx context.Context, rawURL string) (*socket.Socket, error) {
		return Connect(ctx, rawURL, ConnectOptions{Timeout: DefaultConnectTimeout})
	})
	r.RegisterFn("socket_connect", func(ctx context.Context, rawURL string, options dynamic.Map) (*socket.Socket, error) {
		o, err := ParseConnectOptions(options)
		if err != nil {
			return nil, err
		}
		return Connect(ctx, rawURL, o)
	})
	r.RegisterFn("socket_emit", Emit)
	r.RegisterFn("socket_request", func(call *bridge.CallContext, client *socket.Socket, emitEvent string, data dynamic.Value, onEvent string) (dynamic.Value, error) {
		return Request(call, client, emitEvent, data, onEvent, DefaultRequestTimeout)
	})
	r.RegisterFn("socket_request", func(call *bridge.CallContext, client *socket.Socket, emitEvent string, data dynamic.Value, onEvent, timeout string) (dynamic.Value, error) {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return dynamic.Unit(), fmt.Errorf("failed to parse timeout: %w", err)
		}
		return Request(call, client, emitEvent, data, onEvent, d)
	})
	r.RegisterFn("socket_connected", func(client *socket.Socket) bool {
		return client != nil && client.Connected()
	})
	r.RegisterFn("socket_close", func(call *bridge.CallContext, client *socket.Socket) {
		if client == nil {
			return
		}
		call.Logger().Debug("Closing socket.io client", "sid", client.Id())
		client.Disconnect()
	})
}
