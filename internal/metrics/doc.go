// Package metrics records build and stage metrics.
//
// Components receive a Recorder; NoopRecorder is the default so callers never
// nil-check. PrometheusRecorder registers collectors on its own registry and can
// dump them in the textfile exposition format after a build:
//
//	rec := metrics.NewPrometheusRecorder(nil)
//	// ... run build with rec ...
//	_ = rec.WriteTextfile("/var/lib/node_exporter/bookbuilder.prom")
package metrics
