package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/peterostrander2/ai-betting-backend-sub004/internal/ledger"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/pick"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/tier"
	"github.com/peterostrander2/ai-betting-backend-sub004/internal/weights"
)

// Server is the read-only operator surface: health, metrics, current
// weights and the day's published picks. It is not the product API;
// request parsing and auth for that live elsewhere. The output boundary
// holds here too: internal-only tiers are filtered even though the
// ledger should never contain them.
type Server struct {
	addr    string
	ledger  ledger.Ledger
	store   *weights.Store
	tierCfg *tier.Config
	http    *http.Server
}

// New builds the server and its routes.
func New(addr string, lg ledger.Ledger, store *weights.Store, tierCfg *tier.Config) *Server {
	s := &Server{addr: addr, ledger: lg, store: store, tierCfg: tierCfg}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/weights", s.handleWeights).Methods(http.MethodGet)
	r.HandleFunc("/weights/history", s.handleWeightHistory).Methods(http.MethodGet)
	r.HandleFunc("/picks/today", s.handlePicksToday).Methods(http.MethodGet)
	r.HandleFunc("/picks/{date}", s.handlePicksByDate).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

// Run serves until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Msg("operator http listening")
		errCh <- s.http.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"timestamp":      time.Now().UTC(),
		"weight_version": s.store.Current().Version,
	})
}

func (s *Server) handleWeights(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Current())
}

func (s *Server) handleWeightHistory(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.History())
}

func (s *Server) handlePicksToday(w http.ResponseWriter, r *http.Request) {
	s.servePicks(w, r, time.Now().UTC().Format(pick.SlateDateFormat))
}

func (s *Server) handlePicksByDate(w http.ResponseWriter, r *http.Request) {
	s.servePicks(w, r, mux.Vars(r)["date"])
}

func (s *Server) servePicks(w http.ResponseWriter, r *http.Request, slateDate string) {
	if _, err := time.Parse(pick.SlateDateFormat, slateDate); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}
	picks, err := s.ledger.PicksByDate(r.Context(), slateDate)
	if err != nil {
		log.Error().Err(err).Str("slate_date", slateDate).Msg("read picks")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "ledger read failed"})
		return
	}
	out := make([]pick.Pick, 0, len(picks))
	for _, p := range picks {
		if s.tierCfg.Persistable(p.PublishedTier) {
			out = append(out, p)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"slate_date": slateDate,
		"count":      len(out),
		"picks":      out,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}
