package stats

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/ejsmile/systech-aidd/internal/store"
)

// MockCollector generates realistic fake statistics so the dashboard
// frontend can be developed without a populated store. Activity follows a
// rough 80/20 split: a fifth of the users produce four fifths of the
// messages.
type MockCollector struct {
	users    []mockUser
	messages []mockMessage
}

type mockUser struct {
	userID   int64
	username *string
}

type mockMessage struct {
	userID    int64
	createdAt time.Time
}

var mockUsernames = []string{
	"john_doe", "jane_smith", "bob_wilson", "alice_brown", "charlie_davis",
	"diana_miller", "frank_moore", "grace_taylor", "henry_anderson", "ivy_thomas",
	"jack_jackson", "kate_white", "leo_harris", "mia_martin", "noah_garcia",
	"olivia_martinez", "peter_robinson", "quinn_clark", "ryan_rodriguez", "sara_lewis",
	"tom_lee", "uma_walker", "victor_hall", "wendy_allen", "xavier_young",
	"yara_king", "zack_wright", "anna_lopez", "ben_hill", "cara_scott",
}

// NewMockCollector generates numUsers fake users and numMessages fake
// messages spread over daysBack days. seed makes the data reproducible.
func NewMockCollector(numUsers, numMessages, daysBack int, seed int64) *MockCollector {
	rng := rand.New(rand.NewSource(seed))
	c := &MockCollector{}

	for i := 0; i < numUsers; i++ {
		u := mockUser{userID: int64(100000 + i)}
		// A fifth of users have no username set.
		if i < len(mockUsernames) && rng.Float64() > 0.2 {
			name := mockUsernames[i]
			u.username = &name
		}
		c.users = append(c.users, u)
	}

	now := time.Now()
	activeCount := numUsers / 5
	if activeCount < 1 {
		activeCount = 1
	}
	active := c.users[:activeCount]
	inactive := c.users[activeCount:]

	activeMessages := numMessages * 4 / 5
	for i := 0; i < numMessages; i++ {
		pool := active
		if i >= activeMessages && len(inactive) > 0 {
			pool = inactive
		}
		user := pool[rng.Intn(len(pool))]
		daysAgo := rng.Intn(daysBack)
		c.messages = append(c.messages, mockMessage{
			userID:    user.userID,
			createdAt: now.AddDate(0, 0, -daysAgo),
		})
	}

	return c
}

// GetStatistics computes statistics over the generated data, applying the
// same date filtering the store-backed collector would.
func (c *MockCollector) GetStatistics(_ context.Context, since, until *time.Time) (*Statistics, error) {
	var filtered []mockMessage
	for _, msg := range c.messages {
		if since != nil && msg.createdAt.Before(*since) {
			continue
		}
		if until != nil && msg.createdAt.After(*until) {
			continue
		}
		filtered = append(filtered, msg)
	}

	activeIDs := map[int64]int64{}
	byDay := map[string]int64{}
	for _, msg := range filtered {
		activeIDs[msg.userID]++
		byDay[msg.createdAt.Format("2006-01-02")]++
	}

	var avg float64
	if len(activeIDs) > 0 {
		avg = round1(float64(len(filtered)) / float64(len(activeIDs)))
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	byDate := make([]store.DateCount, 0, len(days))
	for _, day := range days {
		date, _ := time.Parse("2006-01-02", day)
		byDate = append(byDate, store.DateCount{Date: date, Count: byDay[day]})
	}

	type pair struct {
		userID int64
		count  int64
	}
	pairs := make([]pair, 0, len(activeIDs))
	for id, count := range activeIDs {
		pairs = append(pairs, pair{id, count})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count == pairs[j].count {
			return pairs[i].userID < pairs[j].userID
		}
		return pairs[i].count > pairs[j].count
	})
	if len(pairs) > topUsersLimit {
		pairs = pairs[:topUsersLimit]
	}

	topUsers := make([]store.UserCount, 0, len(pairs))
	for _, p := range pairs {
		uc := store.UserCount{UserID: p.userID, MessageCount: p.count}
		for _, u := range c.users {
			if u.userID == p.userID {
				uc.Username = u.username
				break
			}
		}
		topUsers = append(topUsers, uc)
	}

	return &Statistics{
		TotalUsers:         int64(len(c.users)),
		ActiveUsers:        int64(len(activeIDs)),
		TotalMessages:      int64(len(filtered)),
		AvgMessagesPerUser: avg,
		MessagesByDate:     byDate,
		TopUsers:           topUsers,
	}, nil
}
