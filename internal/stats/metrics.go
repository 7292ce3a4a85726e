// Package stats holds the dashboard snapshot types and the pure functions
// that turn a snapshot into display values.
package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// trendThreshold is the smallest |change| in percent that counts as a trend.
const trendThreshold = 0.5

// PercentChange returns (current-previous)/previous*100, or 0 when previous
// is zero.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

// ActivityChange compares the 7-day value scaled to a 30-day run rate with
// the actual 30-day value.
func ActivityChange(value7d, value30d float64) float64 {
	extrapolated := value7d * 30 / 7
	return PercentChange(extrapolated, value30d)
}

func TrendOf(change float64) Trend {
	if math.Abs(change) < trendThreshold {
		return TrendNeutral
	}
	if change > 0 {
		return TrendUp
	}
	return TrendDown
}

// FormatChange renders a change as "+12.5%", "-3.0%" or "0.0%".
func FormatChange(change float64) string {
	sign := ""
	if change > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.1f%%", sign, change)
}

var languageLabels = map[string]string{
	"ru":    "Русский",
	"en":    "English",
	"de":    "Deutsch",
	"other": "Другие",
}

type LanguageEntry struct {
	Language string `json:"language"`
	Count    int    `json:"count"`
	Label    string `json:"label"`
}

// LanguageDistribution sorts the language counts descending. Equal counts
// are ordered by language code so the result is stable.
func LanguageDistribution(byLanguage map[string]int) []LanguageEntry {
	entries := make([]LanguageEntry, 0, len(byLanguage))
	for lang, count := range byLanguage {
		label, ok := languageLabels[lang]
		if !ok {
			label = strings.ToUpper(lang)
		}
		entries = append(entries, LanguageEntry{Language: lang, Count: count, Label: label})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Language < entries[j].Language
	})
	return entries
}

type PremiumEntry struct {
	Name       string  `json:"name"`
	Value      int     `json:"value"`
	Percentage float64 `json:"percentage"`
}

// PremiumDistribution returns the premium/regular split. The regular share
// is derived from the premium one so both always add up to 100.
func PremiumDistribution(premiumCount, regularCount int, premiumPercentage float64) [2]PremiumEntry {
	return [2]PremiumEntry{
		{Name: "Premium", Value: premiumCount, Percentage: premiumPercentage},
		{Name: "Regular", Value: regularCount, Percentage: 100 - premiumPercentage},
	}
}
