package service

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/singleflight"

	"github.com/IlyaMakar/aidd_admin/internal/logger"
	"github.com/IlyaMakar/aidd_admin/internal/stats"
)

// StatsSource is satisfied by *api.Client.
type StatsSource interface {
	GetDashboardStats(ctx context.Context) (*stats.Snapshot, error)
}

type Card struct {
	Title       string      `json:"title"`
	Value       string      `json:"value"`
	Description string      `json:"description"`
	Change      float64     `json:"change"`
	ChangeText  string      `json:"change_text,omitempty"`
	Trend       stats.Trend `json:"trend"`
}

// ShowChange is false for cards without a comparison and for neutral trends.
func (c Card) ShowChange() bool {
	return c.ChangeText != "" && c.Trend != stats.TrendNeutral
}

type Dashboard struct {
	Cards       []Card                `json:"cards"`
	Details     []Card                `json:"details"`
	Languages   []stats.LanguageEntry `json:"languages"`
	Premium     [2]stats.PremiumEntry `json:"premium"`
	Period      stats.Period          `json:"period"`
	PeriodTitle string                `json:"period_title"`
	Activity    []stats.ActivityPoint `json:"activity"`
	FirstSeen   string                `json:"first_seen"`
	LastSeen    string                `json:"last_seen"`
	GeneratedAt time.Time             `json:"generated_at"`
	IsMock      bool                  `json:"is_mock"`
}

type DashboardService struct {
	src StatsSource
	ttl time.Duration
	now func() time.Time

	group singleflight.Group

	mu        sync.Mutex
	cached    *stats.Snapshot
	fetchedAt time.Time
	rnd       *rand.Rand
}

type Option func(*DashboardService)

func WithClock(now func() time.Time) Option {
	return func(s *DashboardService) { s.now = now }
}

// WithRand fixes the source behind the generated activity series.
func WithRand(rnd *rand.Rand) Option {
	return func(s *DashboardService) { s.rnd = rnd }
}

func NewDashboardService(src StatsSource, ttl time.Duration, opts ...Option) *DashboardService {
	s := &DashboardService{src: src, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the cached snapshot while it is younger than the TTL.
// Concurrent misses share one backend request.
func (s *DashboardService) Snapshot(ctx context.Context) (*stats.Snapshot, error) {
	s.mu.Lock()
	if s.cached != nil && s.now().Sub(s.fetchedAt) < s.ttl {
		snap := s.cached
		s.mu.Unlock()
		return snap, nil
	}
	s.mu.Unlock()

	// The fetch is shared, so one caller going away must not fail the rest.
	fetchCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do("dashboard", func() (interface{}, error) {
		snap, err := s.src.GetDashboardStats(fetchCtx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cached = snap
		s.fetchedAt = s.now()
		s.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch dashboard stats: %w", err)
	}
	if shared {
		logger.Debug("Shared stats fetch")
	}
	return v.(*stats.Snapshot), nil
}

func (s *DashboardService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// Activity returns a generated series for p ending today.
func (s *DashboardService) Activity(p stats.Period) []stats.ActivityPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return stats.GenerateActivity(p, s.now(), s.rnd)
}

func (s *DashboardService) Dashboard(ctx context.Context, p stats.Period) (*Dashboard, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	d := BuildDashboard(snap, p, s.Activity(p), s.now())
	return &d, nil
}

// BuildDashboard maps a snapshot to display values. It has no side effects.
func BuildDashboard(snap *stats.Snapshot, p stats.Period, activity []stats.ActivityPoint, now time.Time) Dashboard {
	ov := snap.Overview
	usersChange := stats.ActivityChange(float64(ov.ActiveUsers7d), float64(ov.ActiveUsers30d))
	messagesChange := stats.ActivityChange(float64(ov.Messages7d), float64(ov.Messages30d))

	return Dashboard{
		Cards: []Card{
			{Title: "Всего пользователей", Value: humanize.Comma(int64(ov.TotalUsers)), Description: "Зарегистрировано в боте", Trend: stats.TrendNeutral},
			changeCard("Активные (7д)", ov.ActiveUsers7d, usersChange),
			{Title: "Всего сообщений", Value: humanize.Comma(int64(ov.TotalMessages)), Description: "Обработано ботом", Trend: stats.TrendNeutral},
			changeCard("Сообщений (7д)", ov.Messages7d, messagesChange),
		},
		Details: []Card{
			{
				Title:       "Средняя длина",
				Value:       fmt.Sprintf("%.0f символов", snap.Messages.AvgLength),
				Description: "Длина сообщения пользователя",
				Trend:       stats.TrendNeutral,
			},
			{
				Title:       "Premium пользователи",
				Value:       fmt.Sprintf("%.1f%%", snap.Users.PremiumPercentage),
				Description: fmt.Sprintf("%s из %s", humanize.Comma(int64(snap.Users.PremiumCount)), humanize.Comma(int64(ov.TotalUsers))),
				Trend:       stats.TrendNeutral,
			},
			{
				Title:       "Соотношение",
				Value:       fmt.Sprintf("%.2f", snap.Messages.UserToAssistantRatio),
				Description: "Сообщений пользователь/бот",
				Trend:       stats.TrendNeutral,
			},
		},
		Languages:   stats.LanguageDistribution(snap.Users.ByLanguage),
		Premium:     stats.PremiumDistribution(snap.Users.PremiumCount, snap.Users.RegularCount, snap.Users.PremiumPercentage),
		Period:      p,
		PeriodTitle: p.Title(),
		Activity:    activity,
		FirstSeen:   relative(snap.Messages.FirstMessageDate.Time, now),
		LastSeen:    relative(snap.Messages.LastMessageDate.Time, now),
		GeneratedAt: snap.Metadata.GeneratedAt.Time,
		IsMock:      snap.Metadata.IsMock,
	}
}

func changeCard(title string, value int, change float64) Card {
	return Card{
		Title:       title,
		Value:       humanize.Comma(int64(value)),
		Description: "vs прошлый месяц",
		Change:      change,
		ChangeText:  fmt.Sprintf("%.1f%%", math.Abs(change)),
		Trend:       stats.TrendOf(change),
	}
}

func relative(t, now time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
