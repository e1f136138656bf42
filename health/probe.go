package health

import (
	"context"
	"net/http"

	"github.com/jonwraymond/adminops/client"
)

// DefaultProbePath is the admin API's own health endpoint.
const DefaultProbePath = "/services/server/health/splunkd"

// ProbeChecker issues one GET through a client's pipeline with no retries
// and no caching. A circuit that is already open is reported without I/O.
type ProbeChecker struct {
	client *client.Client
	path   string
}

// NewProbeChecker creates a probe for path, or DefaultProbePath when empty.
func NewProbeChecker(c *client.Client, path string) *ProbeChecker {
	if path == "" {
		path = DefaultProbePath
	}
	return &ProbeChecker{client: c, path: path}
}

// Check performs the probe.
func (p *ProbeChecker) Check(ctx context.Context) Result {
	resp, err := p.client.ExecuteWithRetries(ctx, client.RequestSpec{
		Method:    http.MethodGet,
		Path:      p.path,
		Operation: "health_probe",
		NoCache:   true,
	}, 0)

	details := map[string]any{"path": p.path}
	if err != nil {
		details["error_kind"] = client.KindOf(err).String()
		return Unhealthy("probe failed", err).WithDetails(details)
	}

	details["status_code"] = resp.StatusCode
	return Healthy("probe succeeded").WithDetails(details)
}
