package upstream

import (
	"context"
	"fmt"

	"saasbridge-go/internal/constants"
	"saasbridge-go/internal/monitoring"
)

// HealthReport is the structured result of a health probe.
type HealthReport struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// HealthCheck issues one cheap request against the configured health path
// and folds every failure into the report. It never returns an error.
func (c *Client) HealthCheck(ctx context.Context) HealthReport {
	checkCtx, cancel := context.WithTimeout(ctx, constants.HealthCheckTimeout)
	defer cancel()

	report := HealthReport{Healthy: true}
	func() {
		defer func() {
			if r := recover(); r != nil {
				report = HealthReport{Healthy: false, Error: fmt.Sprintf("panic: %v", r)}
			}
		}()
		path := c.cfg.Client.HealthPath
		if path == "" {
			path = "/"
		}
		if _, err := c.Get(checkCtx, path, nil); err != nil {
			report = HealthReport{Healthy: false, Error: err.Error()}
		}
	}()

	monitoring.RecordHealthCheck(c.provider, report.Healthy)
	return report
}
