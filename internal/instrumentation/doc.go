// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for mahakaal.
//
// # Metrics
//
// HTTP:
//   - http_requests_total / http_request_duration_seconds by method, path, status
//   - active_chat_streams: open NDJSON chat streams
//
// Language models:
//   - model_requests_total / model_request_duration_seconds by provider and status.
//     The model name is added only with telemetry.detailed_labels = true.
//
// Orchestration:
//   - agent_runs_total by outcome (answer, error, round_limit, canceled)
//   - agent_run_rounds: model rounds per run
//   - agent_repeated_tool_calls_total: calls refused by the repeat guard
//
// Tools and Google:
//   - tool_invocations_total / tool_duration_seconds by tool and status.
//     Tool names that are not registered are recorded as "unknown".
//   - google_api_operations_total / google_api_operation_duration_seconds
//   - oauth_auth_total by result
//
// # Tracing
//
// Spans are created for tool dispatch (tool.<name>), model calls
// (llm.<provider>.complete) and Google API calls (google.<service>.<operation>).
//
// # Configuration
//
// Config is filled from the [telemetry] section of mahakaal.toml by
// config.Config.Instrumentation; the package itself reads no environment.
//
//   - enabled (MAHAKAAL_TELEMETRY_ENABLED, default: true)
//   - environment (MAHAKAAL_ENVIRONMENT), exported as deployment.environment
//   - metrics_exporter (MAHAKAAL_METRICS_EXPORTER): prometheus, otlp, stdout
//   - tracing_exporter (MAHAKAAL_TRACING_EXPORTER): otlp, stdout, none
//   - otlp_endpoint (OTEL_EXPORTER_OTLP_ENDPOINT), otlp_insecure (MAHAKAAL_OTLP_INSECURE)
//   - sampling_rate (OTEL_TRACES_SAMPLER_ARG), detailed_labels (MAHAKAAL_DETAILED_LABELS)
//   - audit (MAHAKAAL_AUDIT), audit_arguments (MAHAKAAL_AUDIT_ARGUMENTS)
//
// Every exported resource carries mahakaal.model.provider,
// mahakaal.model.name and mahakaal.calendar.backend next to the service
// attributes.
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, cfg.Instrumentation(version))
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	metrics := provider.Metrics()
//	metrics.RecordToolInvocation(ctx, "list_events", instrumentation.StatusSuccess, time.Since(start))
package instrumentation
