// Package health serves the dispatcher's admin surface.
//
// A Checker aggregates named readiness checks (route table sealed,
// transport running) and reports liveness with version and uptime. Server
// exposes it on a separate gin listener together with the registered route
// list and the Prometheus metrics endpoint:
//
//	GET /healthz   liveness, always 200 while the process runs
//	GET /readyz    200 when every check passes, 503 otherwise
//	GET /routes    registered route paths
//	GET /metrics   Prometheus exposition
package health
