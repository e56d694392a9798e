// Package ui provides the control window served by the local API.
package ui

import (
	"html/template"
	"log"
	"net/http"
	"os/exec"
	"runtime"
)

// PageData is what the control window template renders
type PageData struct {
	Token           string
	RecordHotkey    string
	AutoHotkey      string
	ReplayHotkey    string
	StopHotkey      string
	DefaultInterval string
}

// Page serves the control window
type Page struct {
	data PageData
}

// NewPage creates the control window handler
func NewPage(data PageData) *Page {
	return &Page{data: data}
}

func (p *Page) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, p.data); err != nil {
		log.Printf("UI: Failed to render page: %v", err)
	}
}

// OpenBrowser opens url in the default browser
func OpenBrowser(url string) {
	var err error
	switch runtime.GOOS {
	case "darwin":
		err = exec.Command("open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		err = exec.Command("xdg-open", url).Start()
	}
	if err != nil {
		log.Printf("UI: Failed to open browser: %v", err)
	}
}

var tmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Mouse Replay</title>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: linear-gradient(135deg, #1a1a2e 0%, #16213e 100%);
            color: #e2e8f0;
            min-height: 100vh;
            padding: 2rem;
        }
        .container { max-width: 640px; margin: 0 auto; }
        h1 {
            font-size: 1.75rem;
            font-weight: 700;
            margin-bottom: 1.5rem;
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            -webkit-background-clip: text;
            -webkit-text-fill-color: transparent;
        }
        .card {
            background: rgba(255,255,255,0.05);
            border: 1px solid rgba(255,255,255,0.1);
            border-radius: 16px;
            padding: 1.25rem;
            margin-bottom: 1.25rem;
        }
        .card h2 { font-size: 1.1rem; margin-bottom: 0.75rem; color: #a5b4fc; }
        #status { font-size: 1.05rem; min-height: 1.5rem; }
        #mode { font-size: 0.8rem; text-transform: uppercase; color: #94a3b8; margin-top: 0.25rem; }
        .notice { color: #fbbf24; font-size: 0.85rem; margin-top: 0.5rem; }
        .row { display: flex; gap: 0.5rem; flex-wrap: wrap; }
        button {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white; border: none; border-radius: 8px;
            padding: 0.55rem 1rem; font-size: 0.9rem; cursor: pointer;
        }
        button.secondary { background: rgba(255,255,255,0.1); }
        input {
            flex: 1; background: rgba(0,0,0,0.3); color: #e2e8f0;
            border: 1px solid rgba(255,255,255,0.15); border-radius: 8px; padding: 0.5rem;
        }
        ul { list-style: none; margin-top: 0.75rem; }
        li { display: flex; justify-content: space-between; padding: 0.35rem 0; border-bottom: 1px solid rgba(255,255,255,0.06); }
        kbd { background: rgba(255,255,255,0.1); border-radius: 4px; padding: 0 0.35rem; }
        .hint { font-size: 0.8rem; color: #94a3b8; margin-top: 0.75rem; }
    </style>
</head>
<body>
<div class="container">
    <h1>Mouse Replay</h1>

    <div class="card">
        <div id="status">Connecting...</div>
        <div id="mode"></div>
        <div id="notice" class="notice"></div>
    </div>

    <div class="card">
        <h2>Control</h2>
        <div class="row">
            <button onclick="post('/api/record/toggle')">Start / Stop Recording</button>
            <button onclick="post('/api/replay')">Replay Now</button>
            <button onclick="post('/api/replay/auto')">Toggle Auto Replay</button>
            <button class="secondary" onclick="post('/api/replay/stop')">Stop Replay</button>
        </div>
        <div class="row" style="margin-top: 0.75rem">
            <input id="interval" value="{{.DefaultInterval}}" placeholder="Replay interval, e.g. 10s or 30">
            <button class="secondary" onclick="applyInterval()">Set Interval</button>
        </div>
        <div class="hint">
            {{if .RecordHotkey}}<kbd>{{.RecordHotkey}}</kbd> record {{end}}
            {{if .AutoHotkey}}<kbd>{{.AutoHotkey}}</kbd> auto replay every {{.DefaultInterval}} {{end}}
            {{if .ReplayHotkey}}<kbd>{{.ReplayHotkey}}</kbd> replay now {{end}}
            {{if .StopHotkey}}<kbd>{{.StopHotkey}}</kbd> stop{{end}}
        </div>
    </div>

    <div class="card">
        <h2>Schedules</h2>
        <div class="row">
            <input id="entry" placeholder="at 14:30:00 / every 10m / cron */5 * * * *">
            <button onclick="addSchedule()">Add</button>
        </div>
        <ul id="schedules"></ul>
    </div>
</div>

<script>
const token = {{.Token}};
const headers = token ? { 'Authorization': 'Bearer ' + token } : {};

async function post(path) {
    const resp = await fetch(path, { method: 'POST', headers });
    if (!resp.ok) {
        const body = await resp.json().catch(() => ({}));
        showNotice(body.error || resp.statusText);
    }
}

async function addSchedule() {
    const input = document.getElementById('entry');
    const resp = await fetch('/api/schedules', {
        method: 'POST',
        headers: Object.assign({ 'Content-Type': 'application/json' }, headers),
        body: JSON.stringify({ entry: input.value }),
    });
    if (resp.ok) {
        input.value = '';
    } else {
        const body = await resp.json().catch(() => ({}));
        showNotice(body.error || resp.statusText);
    }
}

async function applyInterval() {
    const input = document.getElementById('interval');
    const resp = await fetch('/api/replay/auto', {
        method: 'PUT',
        headers: Object.assign({ 'Content-Type': 'application/json' }, headers),
        body: JSON.stringify({ interval: input.value }),
    });
    if (!resp.ok) {
        const body = await resp.json().catch(() => ({}));
        showNotice(body.error || resp.statusText);
    }
}

async function removeSchedule(key) {
    await fetch('/api/schedules?key=' + encodeURIComponent(key), { method: 'DELETE', headers });
}

function showNotice(text) {
    document.getElementById('notice').textContent = text;
}

function render(snap) {
    if (!snap) return;
    document.getElementById('mode').textContent =
        snap.mode + (snap.auto_replay ? ' · auto replay every ' + snap.auto_interval : '');
    const interval = document.getElementById('interval');
    if (document.activeElement !== interval) {
        interval.value = snap.auto_interval;
    }
    const list = document.getElementById('schedules');
    list.innerHTML = '';
    (snap.schedules || []).forEach(key => {
        const li = document.createElement('li');
        li.textContent = key;
        const btn = document.createElement('button');
        btn.className = 'secondary';
        btn.textContent = 'Remove';
        btn.onclick = () => removeSchedule(key);
        li.appendChild(btn);
        list.appendChild(li);
    });
}

function connect() {
    const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
    const ws = new WebSocket(proto + '//' + location.host + '/ws' + (token ? '?token=' + encodeURIComponent(token) : ''));
    ws.onmessage = ev => {
        const msg = JSON.parse(ev.data);
        const p = msg.payload || {};
        if (msg.type === 'notice') {
            showNotice(p.message);
        } else if (msg.type === 'error') {
            showNotice(p.error);
        } else if (p.message !== undefined) {
            document.getElementById('status').textContent = p.message || 'Ready';
        }
        render(p.snapshot);
    };
    ws.onclose = () => {
        document.getElementById('status').textContent = 'Disconnected, retrying...';
        setTimeout(connect, 2000);
    };
}

connect();
</script>
</body>
</html>
`))
