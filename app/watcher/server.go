package watcher

import (
	"bytes"
	"net/http"

	"github.com/canopy-network/gravityx/pkg/gravity"
	"github.com/canopy-network/gravityx/pkg/reconcile"
	"github.com/canopy-network/gravityx/pkg/utils"
	"github.com/go-jose/go-jose/v4/json"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupServer sets up the HTTP server.
func (a *App) SetupServer() {
	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	addr := utils.Env("ADDR", ":3002")

	a.Server = &http.Server{Addr: addr, Handler: a.Router()}
	a.Logger.Info("Starting server", zap.String("addr", addr))
}

// Router returns the watcher routes.
func (a *App) Router() *mux.Router {
	r := mux.NewRouter()

	r.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) })).Methods("GET")
	r.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if a.Ready() {
			w.WriteHeader(200)
		} else {
			w.WriteHeader(503)
		}
	})).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})).Methods("GET")
	r.HandleFunc("/views/{pollId}", a.handleView).Methods("GET")

	return r
}

// Ready reports whether every watched poll has a view.
func (a *App) Ready() bool {
	ready := true
	a.Engines.Range(func(_ string, e *reconcile.Engine) bool {
		_, ready = e.View()
		return ready
	})
	return ready
}

type viewResponse struct {
	State string          `json:"state"`
	Error string          `json:"error,omitempty"`
	View  *reconcile.View `json:"view,omitempty"`
}

func (a *App) handleView(w http.ResponseWriter, r *http.Request) {
	pollID, err := gravity.ParsePollID(mux.Vars(r)["pollId"])
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "poll id must be numeric"})
		return
	}

	e, ok := a.Engines.Get(viewerKey(pollID))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "poll not watched"})
		return
	}

	state, stateErr := e.State()
	resp := viewResponse{State: string(state)}
	if stateErr != nil {
		resp.Error = stateErr.Error()
	}
	if v, ok := e.View(); ok {
		resp.View = &v
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"response encoding failed"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}
