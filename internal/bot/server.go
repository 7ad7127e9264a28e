package bot

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// MuxOptions configures the HTTP endpoints of the bot.
type MuxOptions struct {
	Logger *slog.Logger
	Mode   string
	// WebhookPath and Webhook are set in webhook mode only.
	WebhookPath string
	Webhook     http.Handler
	Health      func(ctx context.Context) error
	Metrics     http.Handler
}

type healthResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
	Error  string `json:"error,omitempty"`
}

// NewMux builds the HTTP handler serving the webhook, /healthz and /metrics.
func NewMux(opts MuxOptions) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	log := opts.Logger.With("component", "http")

	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Mode: opts.Mode}
		code := http.StatusOK
		if opts.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			if err := opts.Health(ctx); err != nil {
				log.WarnContext(ctx, "Health check failed", "error", err)
				resp.Status = "unavailable"
				resp.Error = err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	})

	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}

	if opts.Webhook != nil {
		path := opts.WebhookPath
		if path == "" {
			path = "/"
		}
		mux.Handle(path, opts.Webhook)
		log.Info("Webhook endpoint mounted", "path", path)
	}

	if opts.Webhook == nil || (opts.WebhookPath != "" && opts.WebhookPath != "/") {
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte("joinkeeper is running"))
		})
	}

	return mux
}
