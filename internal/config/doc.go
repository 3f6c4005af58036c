// Package config manages application configuration for the Lootbound API.
//
// Configuration is parsed from environment variables into typed groups with
// github.com/caarlos0/env struct tags; every field carries its default in an
// envDefault tag.
//
//	cfg, err := config.Load()
//	if err := cfg.Validate(); err != nil { ... }
//
// # Configuration Groups
//
//   - ServerConfig: HTTP server settings (port, timeouts, CORS)
//   - DatabaseConfig: store driver and SurrealDB connection settings
//   - ChainConfig: JSON-RPC node, sender and contract addresses
//   - HubConfig: WebSocket session buffers and keepalive
//   - MQConfig: optional RabbitMQ exchange for domain events
//   - TelemetryConfig: optional OTLP trace export
//   - LendingConfig: expiry sweeper interval
//   - RateLimitConfig: per-caller token bucket
//
// Optional integrations are switched off by leaving their URL empty:
// CHAIN_RPC_URL, MQ_URL and OTEL_EXPORTER_ENDPOINT.
package config
