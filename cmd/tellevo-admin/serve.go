package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tellevo/tellevo-sdk-go/tellevo"
	"github.com/tellevo/tellevo-sdk-go/tellevo/spa"
)

func newServeCommand(a *app) *cobra.Command {
	var (
		root      string
		addr      string
		streamURL string
		stream    bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin frontend with metrics and health endpoints",
		Long: `Serve a built frontend directory as a single-page app. Hashed files under
/assets/ are cached for a year, HTML is revalidated, and unknown routes
without an extension fall back to index.html.

/metrics exposes Prometheus metrics and /healthz reports liveness. With
--stream the server also keeps a ventas stream client connected so its
metrics and state are visible.`,
		Example: `  tellevo-admin serve --root dist
  PORT=8081 tellevo-admin serve --root dist --stream`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				// Bind to loopback; external traffic arrives through the reverse proxy.
				addr = net.JoinHostPort("127.0.0.1", a.cfg.Port)
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			var client *tellevo.Client
			if stream {
				target := streamURL
				if target == "" {
					resolved, err := a.cfg.StreamURL()
					if err != nil {
						return fmt.Errorf("resolve stream url: %w", err)
					}
					target = resolved
				}
				cfg := a.cfg.ClientConfig(target)
				cfg.Registerer = reg
				c, err := tellevo.NewClient(cfg)
				if err != nil {
					return err
				}
				c.SetLogger(tellevo.NewSlogLogger(a.logger))
				c.Connect()
				defer c.Disconnect()
				client = c
			}

			handler := newServeMux(spa.NewHandler(root, a.logger), reg, client, a.logger)
			return spa.Serve(cmd.Context(), addr, handler, a.logger)
		},
	}

	cmd.Flags().StringVar(&root, "root", "dist", "Directory containing the built frontend")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default 127.0.0.1:$PORT)")
	cmd.Flags().BoolVar(&stream, "stream", false, "Keep a ventas stream client connected")
	cmd.Flags().StringVar(&streamURL, "stream-url", "", "Websocket URL for --stream, overrides endpoint resolution")

	return cmd
}

type healthResponse struct {
	Status string                  `json:"status"`
	Stream *tellevo.ConnectionInfo `json:"stream,omitempty"`
}

// newServeMux routes /metrics and /healthz and hands everything else to the
// frontend. client may be nil.
func newServeMux(frontend http.Handler, gatherer prometheus.Gatherer, client *tellevo.Client, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		resp := healthResponse{Status: "UP"}
		if client != nil {
			info := client.ConnectionInfo()
			resp.Stream = &info
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.Error("write health response", "error", err)
		}
	})
	mux.Handle("/", frontend)
	return mux
}
