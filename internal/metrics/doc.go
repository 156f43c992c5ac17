// Package metrics records build and rebuild-loop metrics.
//
// Components receive a Recorder and default to NoopRecorder, so metrics stay
// optional and need no nil checks:
//
//	b := build.NewBuilder(build.WithRecorder(metrics.NewPrometheusRecorder(reg)))
//
// PrometheusRecorder also exposes its registry over HTTP through Handler; the
// serve command mounts it at /_blogbuilder/metrics.
package metrics
