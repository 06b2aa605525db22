// Package instrumentation provides OpenTelemetry (OTEL) instrumentation for the authorization server.
//
// This package enables observability across all layers through:
//   - Metrics: counters, histograms, and gauges for OAuth operations
//   - Traces: distributed tracing for request flows across components
//
// # Quick Start
//
//	import "github.com/helixauth/oauthcore/instrumentation"
//
//	inst, err := instrumentation.New(instrumentation.Config{
//		ServiceName:    "authserverd",
//		ServiceVersion: "1.0.0",
//		Enabled:        true,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer inst.Shutdown(context.Background())
//
// Pass the instance to the server via oauthcore.ServerConfig. When Enabled
// is false, all providers are no-ops with zero overhead. To export data,
// supply MeterProvider and TracerProvider backed by the exporter of your
// choice (Prometheus, OTLP, stdout).
//
// # Available Metrics
//
// HTTP layer:
//   - oauth.http.requests.total{method, endpoint, status}
//   - oauth.http.request.duration{endpoint}
//
// OAuth flows:
//   - oauth.code.issued{client_id}
//   - oauth.code.exchanged{client_id, pkce_method}
//   - oauth.token.refreshed{client_id}
//   - oauth.token.revoked{client_id, token_type}
//   - oauth.token.introspected{active}
//
// Security:
//   - oauth.rate_limit.exceeded{endpoint}
//   - oauth.pkce.validation_failed{method}
//   - oauth.code.reuse_detected
//   - oauth.token.reuse_detected
//   - oauth.token.families_revoked{reason}
//   - oauth.audit.events.total{event_type}
//
// Storage:
//   - storage.operation.total{operation, result}
//   - storage.operation.duration{operation}
//   - storage.clients.count, storage.codes.count,
//     storage.access_tokens.count, storage.refresh_tokens.count
//
// # Privacy
//
// Client IP addresses may be PII under GDPR and similar regulations. Set
// Config.LogClientIPs to false to omit them from traces and metrics, and
// gate AddSecurityAttributes calls on ShouldLogClientIPs.
package instrumentation
