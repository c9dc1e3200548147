package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/npym/pkg/observability"
)

// debugHooks reports resolver, emitter, cache and registry events as debug
// log lines.
type debugHooks struct {
	logger *log.Logger
}

// EnableDebugHooks routes observability events to the CLI logger. Called
// by main when --verbose is set.
func (c *CLI) EnableDebugHooks() {
	h := debugHooks{logger: c.Logger}
	observability.SetResolveHooks(h)
	observability.SetEmitHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}

func (h debugHooks) OnResolveStart(_ context.Context, pkg, spec string) {
	h.logger.Debug("resolve start", "package", pkg, "spec", spec)
}

func (h debugHooks) OnResolveComplete(_ context.Context, pkg string, nodes int, d time.Duration, err error) {
	h.logger.Debug("resolve done", "package", pkg, "nodes", nodes, "duration", d, "err", err)
}

func (h debugHooks) OnMetadataFetch(_ context.Context, pkg string, d time.Duration, err error) {
	h.logger.Debug("metadata", "package", pkg, "duration", d, "err", err)
}

func (h debugHooks) OnEmitStart(_ context.Context, pkg, version string) {
	h.logger.Debug("emit start", "package", pkg, "version", version)
}

func (h debugHooks) OnEmitComplete(_ context.Context, filename string, size int64, d time.Duration, err error) {
	h.logger.Debug("emit done", "file", filename, "size", size, "duration", d, "err", err)
}

func (h debugHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h debugHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h debugHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "size", size)
}

func (h debugHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h debugHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "duration", d)
}

func (h debugHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}
