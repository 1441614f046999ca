package main

import (
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/mhbvr/photorater/rater"
)

type WebHandler struct {
	session  *rater.Session
	apiBase  *url.URL
	tracez   http.Handler
	template *template.Template
}

// OpStat is one row of the round-trip counters shown on the page.
type OpStat struct {
	Op  string
	Ok  int
	Err int
}

func NewWebHandler(session *rater.Session, apiBase string, tracez http.Handler) *WebHandler {
	base, err := url.Parse(apiBase)
	if err != nil {
		// Validated by the session client already.
		base = &url.URL{}
	}

	return &WebHandler{
		session:  session,
		apiBase:  base,
		tracez:   tracez,
		template: template.Must(template.New("index").Parse(indexTemplate)),
	}
}

func (wh *WebHandler) HttpMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", wh.handleIndex)
	mux.HandleFunc("GET /state", wh.handleState)
	mux.HandleFunc("POST /vote", wh.handleVote)
	mux.HandleFunc("POST /undo", wh.handleUndo)
	mux.HandleFunc("POST /refresh", wh.handleRefresh)
	mux.Handle("GET /metrics", promhttp.Handler())
	if wh.tracez != nil {
		mux.Handle("GET /tracez", wh.tracez)
	}
	return mux
}

// resolveURL turns the service-relative photo URL into an absolute one the
// browser can load directly.
func (wh *WebHandler) resolveURL(ref rater.PhotoRef) string {
	target, err := url.Parse(ref.URL)
	if err != nil {
		return ref.URL
	}
	return wh.apiBase.ResolveReference(target).String()
}

func (wh *WebHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap, err := wh.session.Snapshot(r.Context())
	if err != nil {
		http.Error(w, "Failed to get session state: "+err.Error(), http.StatusInternalServerError)
		return
	}

	stats, err := gatherOpStats()
	if err != nil {
		http.Error(w, "Failed to gather stats: "+err.Error(), http.StatusInternalServerError)
		return
	}

	data := struct {
		Snapshot rater.Snapshot
		LeftURL  string
		RightURL string
		Stats    []OpStat
		APIBase  string
	}{
		Snapshot: snap,
		Stats:    stats,
		APIBase:  wh.apiBase.String(),
	}
	if snap.Pair != nil {
		data.LeftURL = wh.resolveURL(snap.Pair.ImageA)
		data.RightURL = wh.resolveURL(snap.Pair.ImageB)
	}

	w.Header().Set("Content-Type", "text/html")
	if err := wh.template.Execute(w, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (wh *WebHandler) handleState(w http.ResponseWriter, r *http.Request) {
	snap, err := wh.session.Snapshot(r.Context())
	if err != nil {
		http.Error(w, "Failed to get session state: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		log.Printf("Error writing state: %v", err)
	}
}

func (wh *WebHandler) handleVote(w http.ResponseWriter, r *http.Request) {
	var side rater.Side
	switch r.FormValue("side") {
	case "left":
		side = rater.Left
	case "right":
		side = rater.Right
	default:
		http.Error(w, "side must be 'left' or 'right'", http.StatusBadRequest)
		return
	}

	err := wh.session.Vote(r.Context(), side)
	if errors.Is(err, rater.ErrBusy) || errors.Is(err, rater.ErrNoPair) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		// Rolled back or degraded to the placeholder; the page shows a
		// consistent, retryable state either way.
		log.Printf("Vote failed: %v", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (wh *WebHandler) handleUndo(w http.ResponseWriter, r *http.Request) {
	err := wh.session.Undo(r.Context())
	if errors.Is(err, rater.ErrBusy) || errors.Is(err, rater.ErrNoHistory) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		log.Printf("Undo failed: %v", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (wh *WebHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	err := wh.session.Refresh(r.Context())
	if errors.Is(err, rater.ErrBusy) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		log.Printf("Refresh failed: %v", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// gatherOpStats reads the rater round-trip counters back from the default
// prometheus gatherer for display on the control page.
func gatherOpStats() ([]OpStat, error) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return nil, err
	}

	byOp := make(map[string]*OpStat)
	for _, family := range families {
		if family.GetName() == "rater_operations_total" {
			collectFamily(family, byOp)
		}
	}

	stats := make([]OpStat, 0, len(byOp))
	for _, stat := range byOp {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Op < stats[j].Op })
	return stats, nil
}

func collectFamily(family *dto.MetricFamily, byOp map[string]*OpStat) {
	for _, metric := range family.GetMetric() {
		var op, status string
		for _, label := range metric.GetLabel() {
			switch label.GetName() {
			case "op":
				op = label.GetValue()
			case "status":
				status = label.GetValue()
			}
		}
		if op == "" {
			continue
		}

		stat, ok := byOp[op]
		if !ok {
			stat = &OpStat{Op: op}
			byOp[op] = stat
		}

		value := int(metric.GetCounter().GetValue())
		if status == "success" {
			stat.Ok += value
		} else {
			stat.Err += value
		}
	}
}

const indexTemplate = `
<!DOCTYPE html>
<html>
<head>
    <title>Photo Rater</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .container { max-width: 1000px; margin: 0 auto; }
        .pair { display: flex; gap: 16px; justify-content: center; }
        .pair form { flex: 1; }
        .photo { width: 100%; border: none; background: none; padding: 0; cursor: pointer; }
        .photo img { width: 100%; display: block; border-radius: 4px; }
        .placeholder { flex: 1; padding: 60px 20px; text-align: center; background-color: #fdecea; border-radius: 4px; }
        .controls { margin: 20px 0; text-align: center; }
        .counter { font-size: 1.2em; margin: 10px 0; text-align: center; }
        button { background-color: #007cba; color: white; padding: 10px 20px; border: none; border-radius: 3px; cursor: pointer; }
        button:disabled { background-color: #aaa; cursor: default; }
        table { width: 100%; border-collapse: collapse; margin-top: 20px; }
        th, td { text-align: left; padding: 8px; border-bottom: 1px solid #ddd; }
        .hint { color: #666; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Which photo is better?</h1>
        <div class="counter">Votes recorded: {{.Snapshot.Votes}}</div>

        {{if .Snapshot.Pair}}
        <div class="pair">
            <form id="vote-left" method="post" action="/vote">
                <input type="hidden" name="side" value="left">
                <button type="submit" class="photo"><img src="{{.LeftURL}}" alt="{{.Snapshot.Pair.ImageA.Name}}"></button>
            </form>
            <form id="vote-right" method="post" action="/vote">
                <input type="hidden" name="side" value="right">
                <button type="submit" class="photo"><img src="{{.RightURL}}" alt="{{.Snapshot.Pair.ImageB.Name}}"></button>
            </form>
        </div>
        {{else if .Snapshot.LoadFailed}}
        <div class="pair">
            <div class="placeholder">Failed to load pair</div>
            <div class="placeholder">Failed to load pair</div>
        </div>
        <div class="controls">
            <form method="post" action="/refresh"><button type="submit">Retry</button></form>
        </div>
        {{else}}
        <p class="hint">Loading pair...</p>
        {{end}}

        <div class="controls">
            <form id="undo" method="post" action="/undo">
                <button type="submit" {{if not .Snapshot.UndoEnabled}}disabled{{end}}>Undo last vote</button>
            </form>
        </div>
        <p class="hint">Left/right arrow keys vote, backspace undoes. Service: {{.APIBase}}</p>

        <h2>Round-trips</h2>
        <table>
            <thead><tr><th>Operation</th><th>Succeeded</th><th>Failed</th></tr></thead>
            <tbody>
                {{range .Stats}}
                <tr><td>{{.Op}}</td><td>{{.Ok}}</td><td>{{.Err}}</td></tr>
                {{end}}
            </tbody>
        </table>
        <p><a href="/metrics">Prometheus Metrics</a> | <a href="/tracez">Traces</a></p>
    </div>
    <script>
        document.addEventListener('keydown', function (e) {
            if (e.key === 'ArrowLeft') {
                document.getElementById('vote-left') && document.getElementById('vote-left').submit();
            } else if (e.key === 'ArrowRight') {
                document.getElementById('vote-right') && document.getElementById('vote-right').submit();
            } else if (e.key === 'Backspace') {
                e.preventDefault();
                var undo = document.getElementById('undo');
                if (undo && !undo.querySelector('button').disabled) {
                    undo.submit();
                }
            }
        });
    </script>
</body>
</html>
`
