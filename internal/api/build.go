package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Noratrieb/does-it-build/internal/model"
)

// Build fetches one attempt with its full stderr.
func (c *Client) Build(ctx context.Context, nightly, target string, mode model.Mode) (model.BuildAttempt, error) {
	q := url.Values{}
	q.Set("nightly", nightly)
	q.Set("target", target)
	q.Set("mode", string(mode))

	var b model.BuildAttempt
	if err := c.get(ctx, "/api/build", q, &b); err != nil {
		return model.BuildAttempt{}, fmt.Errorf("fetch build %s %s %s: %w", nightly, target, mode, err)
	}
	return b, nil
}
