package bot

import (
	"fmt"
	"html"
	"strings"

	"github.com/IlyaMakar/aidd_admin/internal/api"
	"github.com/IlyaMakar/aidd_admin/internal/service"
	"github.com/IlyaMakar/aidd_admin/internal/stats"
	"github.com/IlyaMakar/aidd_admin/internal/transcript"
)

// Telegram rejects longer texts.
const maxMessageLen = 4096

// historyPreview is how many messages /history prints.
const historyPreview = 10

func escape(s string) string { return html.EscapeString(s) }

func modeTitle(m api.ChatMode) string {
	if m == api.ModeAdmin {
		return "Админ (SQL)"
	}
	return "Обычный"
}

// formatMessage renders a transcript entry. The SQL block depends only on the
// message, not on the mode selected now.
func formatMessage(m transcript.Message) string {
	var sb strings.Builder
	sb.WriteString(escape(m.Content))
	if m.SQLQuery != "" {
		sb.WriteString("\n\n<b>SQL:</b>\n<pre>")
		sb.WriteString(escape(m.SQLQuery))
		sb.WriteString("</pre>")
	}
	return sb.String()
}

func trendArrow(t stats.Trend) string {
	switch t {
	case stats.TrendUp:
		return "📈"
	case stats.TrendDown:
		return "📉"
	default:
		return ""
	}
}

func formatDashboard(d *service.Dashboard) string {
	var sb strings.Builder
	sb.WriteString("📊 <b>Статистика бота</b>\n\n")
	for _, c := range d.Cards {
		fmt.Fprintf(&sb, "• %s: <b>%s</b>", escape(c.Title), escape(c.Value))
		if c.ShowChange() {
			fmt.Fprintf(&sb, " %s %s %s", trendArrow(c.Trend), c.ChangeText, escape(c.Description))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	for _, c := range d.Details {
		fmt.Fprintf(&sb, "• %s: <b>%s</b> <i>(%s)</i>\n", escape(c.Title), escape(c.Value), escape(c.Description))
	}

	if len(d.Languages) > 0 {
		sb.WriteString("\n🌍 <b>Языки</b>\n")
		for _, l := range d.Languages {
			fmt.Fprintf(&sb, "• %s: %d\n", escape(l.Label), l.Count)
		}
	}
	fmt.Fprintf(&sb, "\n⭐ Premium %.1f%% / Regular %.1f%%\n", d.Premium[0].Percentage, d.Premium[1].Percentage)
	fmt.Fprintf(&sb, "🕐 Последнее сообщение: %s\n", escape(d.LastSeen))
	if d.IsMock {
		sb.WriteString("\n<i>Демонстрационные данные</i>")
	}
	return sb.String()
}

func formatHistory(s transcript.State, last int) string {
	msgs := s.Messages
	if len(msgs) > last {
		msgs = msgs[len(msgs)-last:]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📜 <b>История</b> (%d из %d)\n", len(msgs), len(s.Messages))
	for _, m := range msgs {
		icon := "🤖"
		if m.Role == api.RoleUser {
			icon = "👤"
		}
		fmt.Fprintf(&sb, "\n%s %s", icon, escape(m.Content))
		if m.SQLQuery != "" {
			fmt.Fprintf(&sb, "\n<code>%s</code>", escape(m.SQLQuery))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// splitMessage cuts HTML text into chunks of at most limit runes, preferring
// line breaks. A cut never lands inside a tag or an entity, and tags still
// open at a cut are closed there and reopened in the next chunk, so every
// chunk parses on its own.
func splitMessage(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var parts []string
	for len(runes) > limit {
		var cut int
		var open []string
		for room := limit; ; {
			cut = pickCut(runes, room)
			open = openTags(runes[:cut])
			closing := closersLen(open)
			if cut+closing <= limit || room <= 1 {
				break
			}
			room = min(room-1, limit-closing)
		}

		var sb strings.Builder
		sb.WriteString(string(runes[:cut]))
		var reopen []rune
		for i := len(open) - 1; i >= 0; i-- {
			sb.WriteString("</" + tagName(open[i]) + ">")
		}
		for _, tag := range open {
			reopen = append(reopen, []rune(tag)...)
		}
		parts = append(parts, sb.String())
		runes = append(reopen, runes[cut:]...)
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

// pickCut returns a cut position <= room: after the last newline in the
// second half if there is one, then moved back out of any tag or entity.
func pickCut(runes []rune, room int) int {
	if room < 1 {
		room = 1
	}
	cut := room
	for i := room - 1; i >= room/2; i-- {
		if runes[i] == '\n' {
			cut = i + 1
			break
		}
	}

	for i := cut - 1; i >= 0; i-- {
		if runes[i] == '>' {
			break
		}
		if runes[i] == '<' {
			if i > 0 {
				cut = i
			}
			break
		}
	}
	for i := cut - 1; i >= 0 && i >= cut-10; i-- {
		if runes[i] == ';' {
			break
		}
		if runes[i] == '&' {
			if i > 0 {
				cut = i
			}
			break
		}
	}
	return cut
}

// openTags returns the opening tags left unclosed in s, outermost first.
func openTags(s []rune) []string {
	var stack []string
	for i := 0; i < len(s); i++ {
		if s[i] != '<' {
			continue
		}
		end := i + 1
		for end < len(s) && s[end] != '>' {
			end++
		}
		if end == len(s) {
			break
		}
		tag := string(s[i : end+1])
		if strings.HasPrefix(tag, "</") {
			name := tagName(tag)
			for j := len(stack) - 1; j >= 0; j-- {
				if tagName(stack[j]) == name {
					stack = stack[:j]
					break
				}
			}
		} else {
			stack = append(stack, tag)
		}
		i = end
	}
	return stack
}

func tagName(tag string) string {
	name := strings.TrimLeft(tag, "</")
	if i := strings.IndexAny(name, " >"); i >= 0 {
		name = name[:i]
	}
	return name
}

func closersLen(open []string) int {
	n := 0
	for _, tag := range open {
		n += len(tagName(tag)) + 3
	}
	return n
}
