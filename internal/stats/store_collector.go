package stats

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ejsmile/systech-aidd/internal/store"
)

// StoreCollector aggregates statistics from the shared store. It bypasses
// the conversation manager entirely: this is an independent read-only path.
type StoreCollector struct {
	store  store.DataStore
	logger zerolog.Logger
}

// NewStoreCollector creates a collector over the given store.
func NewStoreCollector(ds store.DataStore, logger zerolog.Logger) *StoreCollector {
	return &StoreCollector{
		store:  ds,
		logger: logger.With().Str("component", "stats").Logger(),
	}
}

// GetStatistics computes the dashboard statistics for the given period.
// With no bounds, the period defaults to the last 30 days.
func (c *StoreCollector) GetStatistics(ctx context.Context, since, until *time.Time) (*Statistics, error) {
	if since == nil && until == nil {
		s := time.Now().AddDate(0, 0, -defaultWindowDays)
		since = &s
	}

	totalUsers, err := c.store.CountUsers(ctx)
	if err != nil {
		return nil, c.fail(err, "count users")
	}

	activeUsers, err := c.store.CountActiveUsers(ctx, since, until)
	if err != nil {
		return nil, c.fail(err, "count active users")
	}

	totalMessages, err := c.store.CountMessages(ctx, since, until)
	if err != nil {
		return nil, c.fail(err, "count messages")
	}

	var avg float64
	if activeUsers > 0 {
		avg = round1(float64(totalMessages) / float64(activeUsers))
	}

	byDate, err := c.store.MessagesByDate(ctx, since, until)
	if err != nil {
		return nil, c.fail(err, "messages by date")
	}

	topUsers, err := c.store.TopUsers(ctx, since, until, topUsersLimit)
	if err != nil {
		return nil, c.fail(err, "top users")
	}

	return &Statistics{
		TotalUsers:         totalUsers,
		ActiveUsers:        activeUsers,
		TotalMessages:      totalMessages,
		AvgMessagesPerUser: avg,
		MessagesByDate:     byDate,
		TopUsers:           topUsers,
	}, nil
}

func (c *StoreCollector) fail(err error, op string) error {
	c.logger.Error().Err(err).Str("op", op).Msg("statistics query failed")
	return err
}
