// Package metrics registers the process's Prometheus collectors: pipeline
// throughput and failure counts, tracked-task gauges, server request
// counts, and cache hit/miss counts. Registration happens once per process;
// callers increment the package-level collectors directly rather than
// threading a registry handle through every component.
package metrics
