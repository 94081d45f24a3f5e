package stats

import (
	"context"
	"testing"
	"time"
)

func TestMockCollector(t *testing.T) {
	c := NewMockCollector(20, 500, 30, 42)

	stats, err := c.GetStatistics(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalUsers != 20 {
		t.Errorf("expected 20 users, got %d", stats.TotalUsers)
	}
	if stats.TotalMessages != 500 {
		t.Errorf("expected 500 messages, got %d", stats.TotalMessages)
	}
	if stats.ActiveUsers == 0 || stats.ActiveUsers > 20 {
		t.Errorf("implausible active users: %d", stats.ActiveUsers)
	}
	if stats.AvgMessagesPerUser <= 0 {
		t.Errorf("expected positive average, got %f", stats.AvgMessagesPerUser)
	}
	if len(stats.TopUsers) == 0 || len(stats.TopUsers) > topUsersLimit {
		t.Errorf("unexpected top users length %d", len(stats.TopUsers))
	}
	for i := 1; i < len(stats.TopUsers); i++ {
		if stats.TopUsers[i].MessageCount > stats.TopUsers[i-1].MessageCount {
			t.Error("top users not sorted by message count")
			break
		}
	}
	for i := 1; i < len(stats.MessagesByDate); i++ {
		if stats.MessagesByDate[i].Date.Before(stats.MessagesByDate[i-1].Date) {
			t.Error("by-date buckets not sorted")
			break
		}
	}
}

func TestMockCollectorReproducible(t *testing.T) {
	a := NewMockCollector(10, 100, 7, 1)
	b := NewMockCollector(10, 100, 7, 1)

	sa, err := a.GetStatistics(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	sb, err := b.GetStatistics(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sa.ActiveUsers != sb.ActiveUsers || sa.AvgMessagesPerUser != sb.AvgMessagesPerUser {
		t.Errorf("same seed produced different data: %+v vs %+v", sa, sb)
	}
}

func TestMockCollectorDateFilter(t *testing.T) {
	c := NewMockCollector(10, 200, 30, 7)

	future := time.Now().Add(24 * time.Hour)
	stats, err := c.GetStatistics(context.Background(), &future, nil)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalMessages != 0 {
		t.Errorf("expected no messages after future bound, got %d", stats.TotalMessages)
	}
	// Total users is independent of the period.
	if stats.TotalUsers != 10 {
		t.Errorf("expected 10 users, got %d", stats.TotalUsers)
	}
}
