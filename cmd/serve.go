package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pennant-analytics/consensus-cli/internal/config"
	"github.com/pennant-analytics/consensus-cli/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only consolidated records API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           buildRouter(st, cfg.Server),
			ReadHeaderTimeout: 10 * time.Second,
		}

		zap.L().Info("serving records API", zap.Int("port", cfg.Server.Port))
		return runServer(ctx, srv)
	},
}

func buildRouter(st store.Store, sc config.ServerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))
	r.Use(throttle(rate.NewLimiter(rate.Limit(sc.RatePerSecond), sc.RateBurst)))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	r.Get("/api/v1/records/{date}", func(w http.ResponseWriter, req *http.Request) {
		date := chi.URLParam(req, "date")
		if _, err := time.Parse("2006-01-02", date); err != nil {
			http.Error(w, `{"error":"date must be YYYY-MM-DD"}`, http.StatusBadRequest)
			return
		}
		records, err := st.ListDate(req.Context(), date)
		if err != nil {
			zap.L().Error("serve: list date", zap.String("date", date), zap.Error(err))
			http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"date": date, "records": records})
	})

	r.Get("/api/v1/snapshots", func(w http.ResponseWriter, req *http.Request) {
		infos, err := st.ListSnapshots(req.Context())
		if err != nil {
			zap.L().Error("serve: list snapshots", zap.Error(err))
			http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{"snapshots": infos})
	})

	r.Get("/api/v1/metadata", func(w http.ResponseWriter, req *http.Request) {
		meta, err := st.Metadata(req.Context())
		if err != nil {
			zap.L().Error("serve: metadata", zap.Error(err))
			http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, meta)
	})

	return r
}

// runServer serves until the context is canceled, then shuts down gracefully.
func runServer(ctx context.Context, srv *http.Server) error {
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// throttle rejects requests beyond the configured rate with 429.
func throttle(limiter *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !limiter.Allow() {
				http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("serve: encode response", zap.Error(err))
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
