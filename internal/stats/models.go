package stats

import (
	"bytes"
	"fmt"
	"time"
)

// naiveLayout is a timestamp without a UTC offset, as the backend writes
// datetime.now(). Such values are read as UTC.
const naiveLayout = "2006-01-02T15:04:05.999999999"

// Timestamp accepts RFC 3339 and offset-less ISO 8601 timestamps.
type Timestamp struct{ time.Time }

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("timestamp %s: not a string", data)
	}
	s := string(data[1 : len(data)-1])
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if v, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = v
		return nil
	}
	v, err := time.ParseInLocation(naiveLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", s, err)
	}
	t.Time = v
	return nil
}

// Snapshot is the body of GET /api/stats/dashboard. It is never mutated
// after decoding.
type Snapshot struct {
	Overview OverviewStats `json:"overview"`
	Users    UserStats     `json:"users"`
	Messages MessageStats  `json:"messages"`
	Metadata MetadataStats `json:"metadata"`
}

type OverviewStats struct {
	TotalUsers     int `json:"total_users"`
	ActiveUsers7d  int `json:"active_users_7d"`
	ActiveUsers30d int `json:"active_users_30d"`
	TotalMessages  int `json:"total_messages"`
	Messages7d     int `json:"messages_7d"`
	Messages30d    int `json:"messages_30d"`
}

type UserStats struct {
	PremiumCount      int            `json:"premium_count"`
	PremiumPercentage float64        `json:"premium_percentage"`
	RegularCount      int            `json:"regular_count"`
	ByLanguage        map[string]int `json:"by_language"`
}

type MessageStats struct {
	AvgLength            float64   `json:"avg_length"`
	FirstMessageDate     Timestamp `json:"first_message_date"`
	LastMessageDate      Timestamp `json:"last_message_date"`
	UserToAssistantRatio float64   `json:"user_to_assistant_ratio"`
}

type MetadataStats struct {
	GeneratedAt Timestamp `json:"generated_at"`
	IsMock      bool      `json:"is_mock"`
}
