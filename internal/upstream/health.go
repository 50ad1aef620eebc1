package upstream

import (
	"context"
	"net/http"
)

// Health describes upstream reachability as reported by Probe.
type Health string

// Probe outcomes.
const (
	HealthOK       Health = "OK"
	HealthDegraded Health = "DEGRADED"
	HealthError    Health = "ERROR"
)

// Probe checks upstream reachability with the health-check timeout. It is
// independent of the response cache and of the data-request timeout.
func (c *Client) Probe(ctx context.Context) Health {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return HealthError
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("health probe failed", "error", err)
		return HealthError
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return HealthOK
	}
	return HealthDegraded
}
