package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-onboarding-bot/internal/domain/model"
	"telegram-onboarding-bot/internal/domain/ports/repository"
	"telegram-onboarding-bot/internal/usecase"
)

// Server exposes the operator surface over HTTP: health, metrics and the
// record listing and export behind JWT auth.
type Server struct {
	records repository.RecordRepository
	adminUC usecase.AdminUseCase
	auth    *AuthManager
	log     *zerolog.Logger
}

func NewServer(records repository.RecordRepository, adminUC usecase.AdminUseCase, auth *AuthManager, logger *zerolog.Logger) *Server {
	return &Server{records: records, adminUC: adminUC, auth: auth, log: logger}
}

// Router builds the chi mux with all routes registered.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	common := []Middleware{
		Recover(s.log),
		TraceID(s.log),
		RequestLog(s.log),
		Timeout(15 * time.Second),
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Method(http.MethodGet, "/records",
			Chain(http.HandlerFunc(s.handleListRecords), append(common, s.auth.RequireAuth())...))
		api.Method(http.MethodGet, "/records/export",
			Chain(http.HandlerFunc(s.handleExport), append(common, s.auth.RequireAuth())...))
	})

	return r
}

type recordDTO struct {
	TelegramID  int64    `json:"telegram_id"`
	Username    string   `json:"username,omitempty"`
	Country     string   `json:"country"`
	Interests   []string `json:"interests"`
	Platforms   []string `json:"platforms"`
	AppLink     string   `json:"app_link,omitempty"`
	FullName    string   `json:"full_name,omitempty"`
	CompletedAt string   `json:"completed_at,omitempty"`
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	recs, err := s.records.ListAll(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("list records")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]recordDTO, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDTO(rec))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"count":   len(out),
		"records": out,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.adminUC.ExportCSV(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("export records")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="onboarding-export.csv"`)
	_, _ = w.Write(data)
}

func toDTO(rec *model.UserRecord) recordDTO {
	dto := recordDTO{
		TelegramID: rec.TelegramID,
		Username:   rec.Username,
		Country:    rec.Country,
		Interests:  rec.Interests,
		Platforms:  rec.Platforms,
		AppLink:    rec.AppLink,
		FullName:   rec.FullName,
	}
	if !rec.CompletedAt.IsZero() {
		dto.CompletedAt = rec.CompletedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

// Serve runs the HTTP server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		return err
	}
}
