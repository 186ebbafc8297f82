package api

import (
	"context"
	"fmt"
)

type triggerRequest struct {
	Nightly string `json:"nightly"`
}

// TriggerBuild queues a sweep of nightly in every mode the server has
// enabled. Returns ErrUnavailable when the builder cannot take it.
func (c *Client) TriggerBuild(ctx context.Context, nightly string) error {
	if err := c.post(ctx, "/trigger-build", triggerRequest{Nightly: nightly}); err != nil {
		return fmt.Errorf("trigger build of %s: %w", nightly, err)
	}
	return nil
}
