// Package admin serves the web dashboard: a server-rendered page, chart
// images, the PDF report and a thin proxy to the chat endpoints.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/IlyaMakar/aidd_admin/internal/api"
	"github.com/IlyaMakar/aidd_admin/internal/logger"
	"github.com/IlyaMakar/aidd_admin/internal/report"
	"github.com/IlyaMakar/aidd_admin/internal/service"
	"github.com/IlyaMakar/aidd_admin/internal/stats"
	"github.com/IlyaMakar/aidd_admin/internal/transcript"
)

// maxChatBody bounds the proxied chat request.
const maxChatBody = 64 << 10

type Server struct {
	dashboard *service.DashboardService
	reports   *report.Generator
	chat      transcript.Transport
	stats     service.StatsSource
	tmpl      *template.Template
}

// NewServer wires the handlers. src is used for the raw /api/stats proxy and
// is normally the same *api.Client as chat.
func NewServer(dashboard *service.DashboardService, reports *report.Generator, chat transcript.Transport, src service.StatsSource) *Server {
	return &Server{
		dashboard: dashboard,
		reports:   reports,
		chat:      chat,
		stats:     src,
		tmpl:      template.Must(template.New("dashboard").Funcs(funcs).Parse(dashboardHTML)),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.dashboardHandler)
	mux.HandleFunc("GET /api/stats", s.apiStatsHandler)
	mux.HandleFunc("GET /api/dashboard", s.apiDashboardHandler)
	mux.HandleFunc("GET /charts/{name}", s.chartHandler)
	mux.HandleFunc("GET /report.pdf", s.reportHandler)
	mux.HandleFunc("POST /api/chat/message", s.chatMessageHandler)
	mux.HandleFunc("GET /api/chat/history/{sid}", s.chatHistoryHandler)
	mux.HandleFunc("DELETE /api/chat/history/{sid}", s.chatClearHandler)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return logRequests(mux)
}

func (s *Server) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := period(w, r)
	if !ok {
		return
	}
	d, err := s.dashboard.Dashboard(r.Context(), p)
	if err != nil {
		s.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.Execute(w, d); err != nil {
		logger.Error("Failed to render dashboard", "error", err)
	}
}

func (s *Server) apiStatsHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.stats.GetDashboardStats(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) apiDashboardHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := period(w, r)
	if !ok {
		return
	}
	d, err := s.dashboard.Dashboard(r.Context(), p)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) chartHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := period(w, r)
	if !ok {
		return
	}

	var render func(*service.Dashboard) ([]byte, error)
	switch r.PathValue("name") {
	case "activity.png":
		render = func(d *service.Dashboard) ([]byte, error) { return report.ActivityChart(d.Activity, d.PeriodTitle) }
	case "languages.png":
		render = func(d *service.Dashboard) ([]byte, error) { return report.LanguageChart(d.Languages) }
	case "premium.png":
		render = func(d *service.Dashboard) ([]byte, error) { return report.PremiumChart(d.Premium) }
	default:
		http.NotFound(w, r)
		return
	}

	d, err := s.dashboard.Dashboard(r.Context(), p)
	if err != nil {
		s.fail(w, err)
		return
	}
	img, err := render(d)
	if errors.Is(err, report.ErrNoData) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(img)
}

func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	d, err := s.dashboard.Dashboard(r.Context(), stats.Period30d)
	if err != nil {
		s.fail(w, err)
		return
	}
	pdf, err := s.reports.DashboardPDF(d)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="dashboard.pdf"`)
	w.Write(pdf)
}

func (s *Server) chatMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req api.ChatMessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" || req.SessionID == "" {
		http.Error(w, "message and session_id are required", http.StatusBadRequest)
		return
	}
	mode, err := api.ParseChatMode(string(req.Mode))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := s.chat.SendMessage(r.Context(), req.Message, req.SessionID, mode)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) chatHistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit := api.DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	resp, err := s.chat.GetHistory(r.Context(), r.PathValue("sid"), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) chatClearHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.ClearHistory(r.Context(), r.PathValue("sid")); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fail maps backend errors: a backend status is passed through, anything
// else is a bad gateway.
func (s *Server) fail(w http.ResponseWriter, err error) {
	logger.Error("Request failed", "error", err)

	var se *api.StatusError
	switch {
	case errors.As(err, &se):
		http.Error(w, err.Error(), se.StatusCode)
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}

func period(w http.ResponseWriter, r *http.Request) (stats.Period, bool) {
	p, err := stats.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", false
	}
	return p, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("HTTP", "method", r.Method, "path", r.URL.Path, "status", rec.status,
			"took", time.Since(started).Round(time.Millisecond))
	})
}
