package probe

import "github.com/torosent/healthfire/internal/config"

// Endpoint is one probed URL path and the checks applied to its response.
type Endpoint struct {
	// Name labels metrics and log lines.
	Name string
	// Group is the human readable group title used in reports.
	Group  string
	Path   string
	Checks []Check
}

// DefaultEndpoints returns the readiness, liveness and general health groups
// in probe order. readinessCheck names the dependency check the readiness
// body must report as UP; empty means the default Keycloak check.
func DefaultEndpoints(readinessCheck string) []Endpoint {
	if readinessCheck == "" {
		readinessCheck = config.DefaultReadinessCheck
	}
	return []Endpoint{
		healthEndpoint("readiness", "Readiness Check", "/q/health/ready",
			ChecksArray(), NamedCheckUp(readinessCheck)),
		healthEndpoint("liveness", "Liveness Check", "/q/health/live"),
		healthEndpoint("health", "General Health Check", "/q/health"),
	}
}

func healthEndpoint(name, group, path string, extra ...Check) Endpoint {
	return Endpoint{
		Name:   name,
		Group:  group,
		Path:   path,
		Checks: append(StandardChecks(), extra...),
	}
}
