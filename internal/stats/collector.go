package stats

import (
	"context"
	"time"

	"github.com/ejsmile/systech-aidd/internal/store"
)

// Statistics is the dashboard payload: aggregate counts plus per-day and
// per-user breakdowns, all over live (non-deleted) messages.
type Statistics struct {
	TotalUsers         int64             `json:"total_users"`
	ActiveUsers        int64             `json:"active_users"`
	TotalMessages      int64             `json:"total_messages"`
	AvgMessagesPerUser float64           `json:"avg_messages_per_user"`
	MessagesByDate     []store.DateCount `json:"messages_by_date"`
	TopUsers           []store.UserCount `json:"top_users"`
}

// Collector produces dialogue statistics for the dashboard. StoreCollector
// reads the shared store; MockCollector generates fake data for frontend
// development.
type Collector interface {
	GetStatistics(ctx context.Context, since, until *time.Time) (*Statistics, error)
}

// topUsersLimit caps the top-users breakdown.
const topUsersLimit = 10

// defaultWindowDays is the reporting period when no date range is given.
const defaultWindowDays = 30

// round1 rounds to one decimal place, matching the dashboard contract.
func round1(f float64) float64 {
	return float64(int64(f*10+0.5)) / 10
}
