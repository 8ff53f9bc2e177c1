package gateway

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	OrderSvcURL    string
	RealtimeSvcURL string
	FrontendDir    string
}

type Gateway struct {
	config   Config
	client   HTTPClient
	realtime *httputil.ReverseProxy
}

func NewGateway(config Config, client HTTPClient) *Gateway {
	g := &Gateway{
		config: config,
		client: client,
	}
	if target, err := url.Parse(config.RealtimeSvcURL); err == nil && target.Host != "" {
		g.realtime = httputil.NewSingleHostReverseProxy(target)
		g.realtime.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			log.Printf("ERROR: Failed to proxy websocket to %s: %v", config.RealtimeSvcURL, err)
			http.Error(w, err.Error(), http.StatusBadGateway)
		}
	}
	return g
}

func (g *Gateway) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"status":    "healthy",
		"service":   "api-gateway",
		"timestamp": time.Now().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// hopHeaders are connection-scoped and never forwarded.
var hopHeaders = map[string]bool{
	"Connection":        true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
}

func (g *Gateway) ProxyRequest(w http.ResponseWriter, r *http.Request, targetURL string) {
	log.Printf("PROXY: %s %s -> %s%s", r.Method, r.URL.Path, targetURL, r.URL.Path)

	target := targetURL + r.URL.Path
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		log.Printf("ERROR: Failed to create request: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	for k, v := range r.Header {
		if !hopHeaders[k] {
			req.Header[k] = v
		}
	}

	resp, err := g.client.Do(req)
	if err != nil {
		log.Printf("ERROR: Failed to proxy to %s: %v", targetURL, err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	for k, v := range resp.Header {
		if !hopHeaders[k] {
			w.Header()[k] = v
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Printf("ERROR: Failed to copy response: %v", err)
	}
}

// ProxyWebSocket hands the upgrade to a reverse proxy, which keeps the
// hijacked connection open in both directions.
func (g *Gateway) ProxyWebSocket(w http.ResponseWriter, r *http.Request) {
	if g.realtime == nil {
		http.Error(w, "realtime service not configured", http.StatusServiceUnavailable)
		return
	}
	log.Printf("PROXY: websocket %s -> %s", r.URL.Path, g.config.RealtimeSvcURL)
	g.realtime.ServeHTTP(w, r)
}

func (g *Gateway) RouteHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	log.Printf("ROUTE: %s %s", r.Method, path)

	if path == "/ws" {
		g.ProxyWebSocket(w, r)
		return
	}

	if strings.HasPrefix(path, "/api/") {
		g.ProxyRequest(w, r, g.config.OrderSvcURL)
		return
	}

	g.serveFrontend(w, r)
}

// serveFrontend serves the single-page app; unknown paths fall back to
// index.html so client-side routes survive a reload.
func (g *Gateway) serveFrontend(w http.ResponseWriter, r *http.Request) {
	if g.config.FrontendDir == "" {
		http.NotFound(w, r)
		return
	}
	file := filepath.Join(g.config.FrontendDir, filepath.Clean("/"+r.URL.Path))
	if info, err := os.Stat(file); err == nil && !info.IsDir() {
		http.ServeFile(w, r, file)
		return
	}
	http.ServeFile(w, r, filepath.Join(g.config.FrontendDir, "index.html"))
}

func (g *Gateway) SetupRoutes() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", g.HealthCheck).Methods("GET")
	r.HandleFunc("/ws", g.ProxyWebSocket)
	r.PathPrefix("/api/").HandlerFunc(g.RouteHandler)
	r.PathPrefix("/").HandlerFunc(g.RouteHandler)
	return r
}
