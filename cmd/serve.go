package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/metehankuzu1987-pixel/haunted-whispers-db/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin trigger server",
	Long:  "Exposes scan triggers and scan history over HTTP for the admin surface. Scans run synchronously; the response carries the full run report.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initScanEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newServeMux(env),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// scanRequest is the optional body for scan trigger endpoints.
type scanRequest struct {
	Country   string   `json:"country,omitempty"`
	Category  string   `json:"category,omitempty"`
	Limit     int      `json:"limit,omitempty"`
	Providers []string `json:"providers,omitempty"`
}

func newServeMux(env *scanEnv) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /scan/api", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeScanRequest(w, r)
		if !ok {
			return
		}
		report, err := env.runAPI(r.Context(), req.Country, req.Category, req.Limit)
		writeReport(w, "api", report, err)
	})

	mux.HandleFunc("POST /scan/multi", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeScanRequest(w, r)
		if !ok {
			return
		}
		report, err := env.runMulti(r.Context(), req.Country, req.Category, req.Limit, req.Providers)
		writeReport(w, "multi", report, err)
	})

	mux.HandleFunc("POST /scan/ai", func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeScanRequest(w, r)
		if !ok {
			return
		}
		report, err := env.runAI(r.Context(), req.Country)
		writeReport(w, "ai", report, err)
	})

	mux.HandleFunc("GET /scan/logs", func(w http.ResponseWriter, r *http.Request) {
		logs, err := env.st.ListScanLogs(r.Context(), 50)
		if err != nil {
			zap.L().Error("list scan logs failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list scans"})
			return
		}
		if logs == nil {
			logs = []model.ScanLog{}
		}
		writeJSON(w, http.StatusOK, logs)
	})

	return mux
}

// decodeScanRequest reads an optional JSON body; an empty body means config
// defaults.
func decodeScanRequest(w http.ResponseWriter, r *http.Request) (scanRequest, bool) {
	var req scanRequest
	if r.ContentLength == 0 {
		return req, true
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return req, false
	}
	return req, true
}

func writeReport(w http.ResponseWriter, kind string, report *model.ScanReport, err error) {
	if err != nil {
		zap.L().Error("scan trigger failed", zap.String("kind", kind), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
