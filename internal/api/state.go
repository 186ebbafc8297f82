package api

import (
	"context"
	"fmt"

	"github.com/Noratrieb/does-it-build/internal/model"
)

// TargetState fetches the full matrix payload.
func (c *Client) TargetState(ctx context.Context) ([]model.BuildAttempt, error) {
	var builds []model.BuildAttempt
	if err := c.get(ctx, "/target-state", nil, &builds); err != nil {
		return nil, fmt.Errorf("fetch target state: %w", err)
	}
	return builds, nil
}
