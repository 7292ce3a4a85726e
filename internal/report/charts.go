// Package report renders dashboard charts as PNG and the dashboard as PDF.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/IlyaMakar/aidd_admin/internal/stats"
)

// ErrNoData is returned when a chart would have nothing to draw.
var ErrNoData = errors.New("no data to chart")

var (
	usersColor    = drawing.ColorFromHex("5A9BD5")
	messagesColor = drawing.ColorFromHex("ED7D31")
	premiumColor  = drawing.ColorFromHex("F2C14E")
	regularColor  = drawing.ColorFromHex("8C8C8C")
)

// ActivityChart draws users and messages per day as two lines.
func ActivityChart(points []stats.ActivityPoint, title string) ([]byte, error) {
	if len(points) < 2 {
		return nil, ErrNoData
	}

	xs := make([]time.Time, len(points))
	users := make([]float64, len(points))
	messages := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Date
		users[i] = float64(p.Users)
		messages[i] = float64(p.Messages)
	}

	graph := chart.Chart{
		Title:  title,
		Width:  900,
		Height: 360,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat("02.01"),
			Style:          chart.Style{FontSize: 8},
		},
		YAxis: chart.YAxis{Style: chart.Style{FontSize: 8}},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Пользователи",
				XValues: xs,
				YValues: users,
				Style:   chart.Style{StrokeColor: usersColor, StrokeWidth: 2},
			},
			chart.TimeSeries{
				Name:    "Сообщения",
				XValues: xs,
				YValues: messages,
				Style:   chart.Style{StrokeColor: messagesColor, StrokeWidth: 2},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return render(graph.Render)
}

// LanguageChart draws one bar per language, largest first.
func LanguageChart(entries []stats.LanguageEntry) ([]byte, error) {
	bars := make([]chart.Value, 0, len(entries))
	total := 0
	for i, e := range entries {
		total += e.Count
		bars = append(bars, chart.Value{
			Label: e.Label,
			Value: float64(e.Count),
			Style: chart.Style{FillColor: chart.GetDefaultColor(i), StrokeColor: chart.GetDefaultColor(i)},
		})
	}
	if total == 0 {
		return nil, ErrNoData
	}

	graph := chart.BarChart{
		Title:    "Языки",
		Width:    600,
		Height:   320,
		BarWidth: 50,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Bars: bars,
	}
	return render(graph.Render)
}

// PremiumChart draws the premium/regular split as a pie.
func PremiumChart(split [2]stats.PremiumEntry) ([]byte, error) {
	if split[0].Value+split[1].Value == 0 {
		return nil, ErrNoData
	}

	colors := [2]drawing.Color{premiumColor, regularColor}
	values := make([]chart.Value, 0, 2)
	for i, e := range split {
		if e.Value == 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %.1f%%", e.Name, e.Percentage),
			Value: float64(e.Value),
			Style: chart.Style{FillColor: colors[i]},
		})
	}

	graph := chart.PieChart{
		Width:  400,
		Height: 400,
		Values: values,
	}
	return render(graph.Render)
}

func render(fn func(chart.RendererProvider, io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := fn(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}
