package dashboard

import (
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"

	"learnstyle/internal/features"
	"learnstyle/internal/profile"
	"learnstyle/internal/render"
)

type pageField struct {
	Name  string
	Label string
	Unit  string
}

type pageData struct {
	Styles     []profile.Style
	Categories []pageCategory
	Summary    []render.Slot
	Tree       render.Slot
	Votes      render.Slot
}

type pageCategory struct {
	Name   features.Category
	Slot   render.Slot
	Fields []pageField
}

var page = template.Must(template.New("live").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Learning Style Predictor</title>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 20px; background-color: #f5f5f5; }
        .container { max-width: 1400px; margin: 0 auto; }
        .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 20px; border-radius: 10px; margin-bottom: 20px; }
        .header h1 { margin: 0; text-align: center; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(320px, 1fr)); gap: 20px; margin-bottom: 20px; }
        .card { background: white; border-radius: 10px; padding: 20px; box-shadow: 0 4px 6px rgba(0,0,0,0.1); }
        .card h3 { margin-top: 0; color: #333; border-bottom: 2px solid #eee; padding-bottom: 10px; }
        .field { display: flex; justify-content: space-between; padding: 4px 0; }
        .field input { width: 90px; }
        .controls button { margin: 4px 4px 4px 0; }
        .banner { display: none; background: #dc3545; color: white; padding: 10px; border-radius: 6px; margin-bottom: 20px; }
        .result { font-size: 1.6em; font-weight: bold; text-align: center; margin: 10px 0; }
        img.chart { max-width: 100%; }
        .hidden { display: none; }
    </style>
    <script src="https://cdn.jsdelivr.net/npm/mermaid/dist/mermaid.min.js"></script>
</head>
<body>
<div class="container">
    <div class="header"><h1>Learning Style Predictor</h1></div>
    <div id="banner" class="banner"></div>

    <div class="grid">
        {{range .Categories}}
        <div class="card">
            <h3>{{.Name}}</h3>
            {{range .Fields}}
            <div class="field">
                <label for="{{.Name}}">{{.Label}}{{if .Unit}} ({{.Unit}}){{end}}</label>
                <input id="{{.Name}}" data-key="{{.Name}}" class="feature">
            </div>
            {{end}}
            <div data-slot="{{.Slot}}"></div>
        </div>
        {{end}}
    </div>

    <div class="grid">
        <div class="card controls">
            <h3>Actions</h3>
            {{range .Styles}}<button data-action="/actions/sample/{{.}}">Load {{.}} sample</button>{{end}}
            <button data-action="/actions/random">Generate random</button>
            <button data-action="/actions/reset">Reset</button>
            <button data-action="/actions/predict">Analyze learning style</button>
        </div>
        <div class="card">
            <h3>Prediction</h3>
            <div id="result" class="result"></div>
            <p id="description"></p>
            <div id="confidence"></div>
            <ul id="recommendations" class="hidden"></ul>
            <div data-slot="{{.Votes}}"></div>
        </div>
    </div>

    <div class="grid">
        {{range .Summary}}<div class="card" data-slot="{{.}}"></div>{{end}}
    </div>

    <div class="card">
        <h3>Decision tree</h3>
        <select id="tree-select"></select>
        <div data-slot="{{.Tree}}"></div>
    </div>
</div>
<script>
    mermaid.initialize({ startOnLoad: false });
    const slots = {};
    document.querySelectorAll('[data-slot]').forEach(el => slots[el.dataset.slot] = el);

    async function post(path, body) {
        const res = await fetch(path, { method: body ? 'PUT' : 'POST', headers: { 'Content-Type': 'application/json' }, body: body ? JSON.stringify(body) : undefined });
        return res.json();
    }

    document.querySelectorAll('[data-action]').forEach(b => b.addEventListener('click', () => post(b.dataset.action)));
    document.querySelectorAll('input.feature').forEach(i => i.addEventListener('change', () => post('/fields/' + i.dataset.key, { value: i.value })));
    document.getElementById('tree-select').addEventListener('change', e => post('/actions/tree/' + e.target.value));

    async function draw(ev) {
        const el = slots[ev.slot];
        if (!el) return;
        if (ev.kind === 'mermaid') {
            const { svg } = await mermaid.render('g' + ev.version, ev.text);
            el.innerHTML = '<h4>' + ev.title + '</h4>' + svg;
        } else {
            el.innerHTML = '<img class="chart" alt="' + ev.title + '" src="/artifacts/' + ev.slot + '?v=' + ev.version + '">';
        }
    }

    function showPanel(p) {
        document.getElementById('result').textContent = p.result;
        document.getElementById('description').textContent = p.description || '';
        document.getElementById('confidence').textContent = p.confidence ? 'Confidence: ' + p.confidence + '%' : '';
        const recs = document.getElementById('recommendations');
        recs.innerHTML = '';
        (p.recommendations || []).forEach(r => { const li = document.createElement('li'); li.textContent = r; recs.appendChild(li); });
        recs.classList.toggle('hidden', !p.recommendations);
        const banner = document.getElementById('banner');
        banner.textContent = p.error || '';
        banner.style.display = p.error ? 'block' : 'none';
        document.querySelectorAll('button, input, select').forEach(c => c.disabled = !p.controls_enabled);
        for (const [k, v] of Object.entries(p.fields || {})) {
            const input = document.getElementById(k);
            if (input && document.activeElement !== input) input.value = v;
        }
    }

    fetch('/state').then(r => r.json()).then(s => {
        const sel = document.getElementById('tree-select');
        (s.trees || []).forEach(t => { const o = document.createElement('option'); o.value = t.index; o.textContent = t.text; sel.appendChild(o); });
        sel.value = s.panel.tree;
    });

    const ws = new WebSocket((location.protocol === 'https:' ? 'wss://' : 'ws://') + location.host + '/ws');
    ws.onmessage = msg => {
        const ev = JSON.parse(msg.data);
        if (ev.type === 'panel') showPanel(ev.panel);
        else if (ev.type === 'draw') draw(ev);
        else if (ev.type === 'erase' && slots[ev.slot]) slots[ev.slot].innerHTML = '';
    };
</script>
</body>
</html>
`))

func newPageData() pageData {
	data := pageData{
		Styles:  profile.Styles(),
		Summary: []render.Slot{render.SlotStyleDistribution, render.SlotFeatureImportance, render.SlotModelPerformance, render.SlotProfile},
		Tree:    render.SlotTree,
		Votes:   render.SlotVotes,
	}
	for _, c := range features.Categories() {
		pc := pageCategory{Name: c, Slot: render.CategorySlot(c)}
		for _, f := range features.Schema() {
			if f.Category == c {
				pc.Fields = append(pc.Fields, pageField{Name: f.Name, Label: f.Label, Unit: f.Unit})
			}
		}
		data.Categories = append(data.Categories, pc)
	}
	return data
}

func (d *Dashboard) handlePage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(w, newPageData()); err != nil {
		log.Error().Err(err).Msg("failed to render live view page")
	}
}
