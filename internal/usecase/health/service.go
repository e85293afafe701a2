// Package health aggregates component probes into one readiness report.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure. The service still answers
	// queries, possibly without some capability.
	Degraded Status = "degraded"
	// Unhealthy indicates both stores are down.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	lexical   LexicalPinger
	vector    VectorPinger
	embedding EmbeddingChecker
	rerank    RerankChecker
}

// New creates a Service. embedding and rerank can be nil.
func New(lexical LexicalPinger, vector VectorPinger, embedding EmbeddingChecker, rerank RerankChecker) *Service {
	return &Service{lexical: lexical, vector: vector, embedding: embedding, rerank: rerank}
}

// Check runs health checks against all components. Both stores down
// means the service cannot answer anything and reports error; any
// single failing component degrades.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["redis"] = probe(s.lexical.Ping(ctx))
	checks["qdrant"] = probe(s.vector.Ping(ctx))

	if s.embedding != nil {
		checks["embedding"] = probe(s.embedding.HealthCheck(ctx))
	}
	if s.rerank != nil {
		checks["rerank"] = probe(s.rerank.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks["redis"] == CheckError && checks["qdrant"] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func probe(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
