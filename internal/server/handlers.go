package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/KaramelBytes/mathmatrix/internal/analysis"
	"github.com/KaramelBytes/mathmatrix/internal/chat"
	"github.com/KaramelBytes/mathmatrix/internal/markup"
	"github.com/KaramelBytes/mathmatrix/internal/metrics"
)

const maxBodyBytes = 1 << 20

type textRequest struct {
	Text string `json:"text"`
}

type solveRequest struct {
	Problem string `json:"problem"`
}

type exampleRequest struct {
	Problem string `json:"problem"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	metricsTable, feedbackTable := s.loader.LoadPair(r.Context(), s.cfg.MetricsCSV, s.cfg.FeedbackCSV)
	metrics.DashboardRecords.WithLabelValues("metrics").Set(float64(metricsTable.Len()))
	metrics.DashboardRecords.WithLabelValues("feedback").Set(float64(feedbackTable.Len()))
	d := analysis.BuildDashboard(metricsTable, feedbackTable, analysis.BuildOptions{RecentFeedback: s.cfg.RecentFeedback})
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) solve(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	msg, err := s.session.Submit(r.Context(), req.Problem)
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, "problem is empty")
		return
	case errors.Is(err, chat.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		s.log.Error("Submit failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (s *Server) format(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeBody(w, r, &req) {
		return
	}
	out := map[string]any{}
	if r.URL.Query().Get("trace") != "" {
		trace := s.pipeline.Trace(req.Text)
		out["stages"] = trace
		if len(trace) > 0 {
			out["html"] = trace[len(trace)-1].Output
		} else {
			out["html"] = req.Text
		}
	} else {
		out["html"] = s.pipeline.Run(req.Text)
	}
	out["fallback"] = markup.FallbackRender(out["html"].(string))
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"html":  markup.Preview(req.Text),
		"latex": markup.LooksLikeLaTeX(req.Text),
	})
}

func (s *Server) putExample(w http.ResponseWriter, r *http.Request) {
	var req exampleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.examples.Put(r.Context(), req.Problem); err != nil {
		s.log.Error("Store example failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "example store unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) takeExample(w http.ResponseWriter, r *http.Request) {
	p, ok, err := s.examples.Take(r.Context())
	if err != nil {
		s.log.Error("Take example failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "example store unavailable")
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, exampleRequest{Problem: p})
}

func (s *Server) transcript(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"busy":     s.session.Busy(),
		"messages": s.session.Transcript(),
	})
}

func (s *Server) clearTranscript(w http.ResponseWriter, r *http.Request) {
	s.session.Clear()
	writeJSON(w, http.StatusOK, map[string]any{"messages": s.session.Transcript()})
}
