package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gridsync/carbon-engine/internal/engine"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the prediction API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		eng, err := engine.Load(ctx, cfg)
		if err != nil {
			return err
		}

		mux := http.NewServeMux()

		mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"status": "ok",
				"model":  eng.ModelLoaded(),
				"layers": eng.Health(),
			})
		})

		mux.HandleFunc("POST /api/predict-site", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Lat      float64 `json:"lat"`
				Lon      float64 `json:"lon"`
				RadiusKm float64 `json:"radius_km"`
				Year     int     `json:"year"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}
			pred, err := eng.Predict(r.Context(), req.Lat, req.Lon, engine.PredictOptions{
				RadiusKm:   req.RadiusKm,
				TargetYear: req.Year,
			})
			if err != nil {
				http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusOK, pred)
		})

		mux.HandleFunc("POST /api/predict-footprint", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Lat      float64 `json:"lat"`
				Lon      float64 `json:"lon"`
				ITLoadMW float64 `json:"it_load_mw"`
				Provider string  `json:"provider"`
				RadiusKm float64 `json:"radius_km"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}
			if req.ITLoadMW == 0 {
				req.ITLoadMW = 10
			}
			fp, err := eng.PredictFootprint(r.Context(), req.Lat, req.Lon, req.ITLoadMW, req.Provider,
				engine.PredictOptions{RadiusKm: req.RadiusKm})
			if err != nil {
				http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusOK, fp)
		})

		mux.HandleFunc("POST /api/predict-grid", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Lats     []float64 `json:"lats"`
				Lons     []float64 `json:"lons"`
				ITLoadMW float64   `json:"it_load_mw"`
				Year     int       `json:"year"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}
			res, err := eng.PredictGridBatch(r.Context(), req.Lats, req.Lons, req.ITLoadMW, req.Year)
			if err != nil {
				http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusOK, res)
		})

		mux.HandleFunc("POST /api/compare-sites", func(w http.ResponseWriter, r *http.Request) {
			var sites []engine.SiteSpec
			if err := json.NewDecoder(r.Body).Decode(&sites); err != nil {
				http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
				return
			}
			cmp, err := eng.CompareSites(r.Context(), sites)
			if err != nil {
				http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusOK, cmp)
		})

		mux.HandleFunc("GET /predict", func(w http.ResponseWriter, r *http.Request) {
			lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
			lon, err2 := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
			if err1 != nil || err2 != nil {
				http.Error(w, `{"error":"lat and lon are required"}`, http.StatusBadRequest)
				return
			}
			year := 0
			if y := r.URL.Query().Get("year"); y != "" {
				year, _ = strconv.Atoi(y)
			}
			ci, err := eng.PredictCI(r.Context(), lat, lon, year)
			if err != nil {
				http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"lat":       lat,
				"lon":       lon,
				"year":      year,
				"intensity": ci,
			})
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown; the signal context is already canceled here,
		// so draining needs its own deadline.
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
