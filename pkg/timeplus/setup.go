package timeplus

import (
	"context"
)

// SetupStreams creates all required mutable streams in Timeplus. Each stream
// is keyed by id so inserts act as document upserts.
func (c *Client) SetupStreams(ctx context.Context) error {
	if err := c.CreateMutableStream(ctx, AlertsStream, GetAlertsSchema(), []string{"id"}); err != nil {
		return err
	}

	if err := c.CreateMutableStream(ctx, RespondersStream, GetRespondersSchema(), []string{"id"}); err != nil {
		return err
	}

	if err := c.CreateMutableStream(ctx, UsersStream, GetUsersSchema(), []string{"id"}); err != nil {
		return err
	}

	return nil
}
