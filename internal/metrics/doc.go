// Package metrics provides the observability hooks for pipeline runs.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	rec := metrics.Recorder(metrics.NoopRecorder{})
//	if cfg.Observability.MetricsTextfile != "" {
//	    reg := prom.NewRegistry()
//	    rec = metrics.NewPrometheusRecorder(reg)
//	    defer metrics.WriteTextfile(cfg.Observability.MetricsTextfile, reg)
//	}
//
// The command line tool is short lived, so Prometheus metrics are exported to a
// node_exporter compatible textfile at the end of a run instead of being served.
package metrics
