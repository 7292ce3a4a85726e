package admin

import (
	"html/template"

	"github.com/dustin/go-humanize"

	"github.com/IlyaMakar/aidd_admin/internal/stats"
)

var funcs = template.FuncMap{
	"periods": func() []stats.Period { return []stats.Period{stats.Period7d, stats.Period30d, stats.Period90d} },
	"arrow": func(t stats.Trend) string {
		switch t {
		case stats.TrendUp:
			return "↑"
		case stats.TrendDown:
			return "↓"
		}
		return ""
	},
	"comma":   func(n int) string { return humanize.Comma(int64(n)) },
	"percent": func(f float64) string { return humanize.FormatFloat("#.#", f) + "%" },
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="ru">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>AI Bot Admin</title>
    <style>
        :root {
            --primary: #6366f1;
            --primary-dark: #4f46e5;
            --secondary: #10b981;
            --danger: #ef4444;
            --dark: #1f2937;
            --gray: #6b7280;
            --gray-light: #e5e7eb;
            --border-radius: 12px;
            --shadow: 0 10px 25px -5px rgba(0, 0, 0, 0.1), 0 8px 10px -6px rgba(0, 0, 0, 0.1);
        }

        * { margin: 0; padding: 0; box-sizing: border-box; }

        body {
            font-family: 'Inter', 'Segoe UI', system-ui, sans-serif;
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            min-height: 100vh;
            color: var(--dark);
            line-height: 1.6;
        }

        .container { max-width: 1400px; margin: 0 auto; padding: 20px; }

        .panel {
            background: rgba(255, 255, 255, 0.95);
            border-radius: var(--border-radius);
            box-shadow: var(--shadow);
            padding: 25px;
        }

        .header {
            display: flex;
            justify-content: space-between;
            align-items: center;
            margin-bottom: 30px;
        }

        .header h1 { font-size: 2.2em; color: var(--primary-dark); }
        .header p { color: var(--gray); }

        .periods a {
            margin-left: 8px;
            padding: 8px 16px;
            border-radius: var(--border-radius);
            text-decoration: none;
            color: var(--primary);
            border: 1px solid var(--primary);
        }

        .periods a.active { background: var(--primary); color: white; }

        .mock {
            background: #fef3c7;
            color: #92400e;
            padding: 10px 20px;
            border-radius: var(--border-radius);
            margin-bottom: 20px;
        }

        .stats-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(260px, 1fr));
            gap: 25px;
            margin-bottom: 30px;
        }

        .stat-card h3 {
            color: var(--gray);
            font-size: 0.9em;
            text-transform: uppercase;
            letter-spacing: 1px;
        }

        .stat-number { font-size: 2.4em; font-weight: 800; }
        .stat-description { color: var(--gray); font-size: 0.85em; }

        .stat-trend {
            font-size: 0.85em;
            padding: 4px 10px;
            border-radius: 20px;
            font-weight: 600;
        }

        .trend-up { background: rgba(16, 185, 129, 0.1); color: var(--secondary); }
        .trend-down { background: rgba(239, 68, 68, 0.1); color: var(--danger); }

        .charts-container {
            display: grid;
            grid-template-columns: 1fr 1fr;
            gap: 25px;
            margin-bottom: 30px;
        }

        .charts-container img { width: 100%; }
        .wide { grid-column: 1 / -1; }

        table { width: 100%; border-collapse: collapse; }
        td { padding: 8px; border-bottom: 1px solid var(--gray-light); }

        #chatLog { height: 300px; overflow-y: auto; margin-bottom: 10px; }
        .msg-user { text-align: right; color: var(--primary-dark); margin: 6px 0; }
        .msg-assistant { margin: 6px 0; white-space: pre-wrap; }
        .msg-error { color: var(--danger); margin: 6px 0; }
        pre { background: #f3f4f6; padding: 8px; border-radius: 6px; overflow-x: auto; }

        .chat-form { display: flex; gap: 10px; }
        .chat-form input[type=text] { flex: 1; padding: 10px; border: 1px solid var(--gray-light); border-radius: 8px; }
        .chat-form button {
            background: var(--primary);
            color: white;
            border: none;
            padding: 10px 20px;
            border-radius: 8px;
            cursor: pointer;
        }

        @media (max-width: 900px) {
            .charts-container { grid-template-columns: 1fr; }
            .header { flex-direction: column; gap: 15px; }
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header panel">
            <div>
                <h1>AI Bot Admin</h1>
                <p>Обновлено {{.GeneratedAt.Format "02.01.2006 15:04"}} · <a href="/report.pdf">PDF отчёт</a></p>
            </div>
            <div class="periods">
                {{$current := .Period}}
                {{range periods}}<a href="/?period={{.}}"{{if eq . $current}} class="active"{{end}}>{{.}}</a>{{end}}
            </div>
        </div>

        {{if .IsMock}}<div class="mock">Демонстрационные данные</div>{{end}}

        <div class="stats-grid">
            {{range .Cards}}
            <div class="stat-card panel">
                <h3>{{.Title}}</h3>
                <div class="stat-number">{{.Value}}</div>
                {{if .ShowChange}}<span class="stat-trend trend-{{.Trend}}">{{arrow .Trend}} {{.ChangeText}}</span>{{end}}
                <div class="stat-description">{{.Description}}</div>
            </div>
            {{end}}
        </div>

        <div class="stats-grid">
            {{range .Details}}
            <div class="stat-card panel">
                <h3>{{.Title}}</h3>
                <div class="stat-number">{{.Value}}</div>
                <div class="stat-description">{{.Description}}</div>
            </div>
            {{end}}
        </div>

        <div class="charts-container">
            <div class="panel wide">
                <h3>{{.PeriodTitle}}</h3>
                <img src="/charts/activity.png?period={{.Period}}" alt="Активность">
            </div>
            <div class="panel">
                <h3>Языки</h3>
                <img src="/charts/languages.png" alt="Языки">
                <table>
                    {{range .Languages}}<tr><td>{{.Label}}</td><td>{{comma .Count}}</td></tr>{{end}}
                </table>
            </div>
            <div class="panel">
                <h3>Premium</h3>
                <img src="/charts/premium.png" alt="Premium">
                <table>
                    {{range .Premium}}<tr><td>{{.Name}}</td><td>{{comma .Value}}</td><td>{{percent .Percentage}}</td></tr>{{end}}
                </table>
                <p class="stat-description">Первое сообщение: {{.FirstSeen}} · последнее: {{.LastSeen}}</p>
            </div>
        </div>

        <div class="panel">
            <h3>Ассистент</h3>
            <div id="chatLog"></div>
            <form class="chat-form" id="chatForm">
                <input type="text" id="chatInput" placeholder="Спросите о статистике..." autocomplete="off">
                <label><input type="checkbox" id="adminMode"> SQL</label>
                <button type="submit" id="chatSend">Отправить</button>
                <button type="button" id="chatClear">Очистить</button>
            </form>
        </div>
    </div>

    <script>
        const sessionKey = 'chat-session-id';
        let sessionId = localStorage.getItem(sessionKey);
        if (!sessionId) {
            sessionId = crypto.randomUUID();
            localStorage.setItem(sessionKey, sessionId);
        }

        const log = document.getElementById('chatLog');

        function append(cls, text, sql) {
            const div = document.createElement('div');
            div.className = cls;
            div.textContent = text;
            if (sql) {
                const pre = document.createElement('pre');
                pre.textContent = sql;
                div.appendChild(pre);
            }
            log.appendChild(div);
            log.scrollTop = log.scrollHeight;
        }

        async function loadHistory() {
            const resp = await fetch('/api/chat/history/' + encodeURIComponent(sessionId));
            if (!resp.ok) return;
            const data = await resp.json();
            (data.messages || []).forEach(m => append('msg-' + m.role, m.content, m.sql_query));
        }

        document.getElementById('chatForm').addEventListener('submit', async (e) => {
            e.preventDefault();
            const input = document.getElementById('chatInput');
            const text = input.value.trim();
            if (!text) return;
            const admin = document.getElementById('adminMode').checked;
            const send = document.getElementById('chatSend');
            send.disabled = true;
            append('msg-user', text);
            input.value = '';
            try {
                const resp = await fetch('/api/chat/message', {
                    method: 'POST',
                    headers: {'Content-Type': 'application/json'},
                    body: JSON.stringify({message: text, session_id: sessionId, mode: admin ? 'admin' : 'normal'}),
                });
                if (!resp.ok) throw new Error(await resp.text());
                const data = await resp.json();
                append('msg-assistant', data.response, admin ? data.sql_query : null);
            } catch (err) {
                append('msg-error', 'Ошибка: ' + err.message);
            } finally {
                send.disabled = false;
            }
        });

        document.getElementById('chatClear').addEventListener('click', async () => {
            const resp = await fetch('/api/chat/history/' + encodeURIComponent(sessionId), {method: 'DELETE'});
            if (resp.ok) log.innerHTML = '';
        });

        loadHistory();
    </script>
</body>
</html>
`
