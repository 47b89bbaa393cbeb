package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rustyeddy/volatility/internal/pipeline"
	"github.com/rustyeddy/volatility/internal/prices"
	"github.com/rustyeddy/volatility/internal/report"
	"github.com/rustyeddy/volatility/internal/volatility"
	"github.com/rustyeddy/volatility/market"
)

var funcs = template.FuncMap{
	"pct":  report.Pct,
	"coef": report.Coef,
	"date": market.FormatDate,
}

// form is the echoed request shown above results.
type form struct {
	Ticker string
	Start  string
	End    string
	Window int
}

type chartView struct {
	Title string
	SVG   template.HTML
}

type pageData struct {
	Form    form
	Error   string
	Summary *report.Summary
	Charts  []chartView
}

type errorBody struct {
	Error     string `json:"error"`
	Stage     string `json:"stage,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// parseRequest reads ticker, start, end and window query parameters.
// Missing values take the pipeline defaults.
func parseRequest(r *http.Request) (pipeline.Request, error) {
	q := r.URL.Query()
	req := pipeline.Request{Ticker: strings.TrimSpace(q.Get("ticker"))}

	var err error
	if v := q.Get("start"); v != "" {
		if req.Start, err = market.ParseDate(v); err != nil {
			return req, fmt.Errorf("%w: start: %v", volatility.ErrInvalidParameter, err)
		}
	}
	if v := q.Get("end"); v != "" {
		if req.End, err = market.ParseDate(v); err != nil {
			return req, fmt.Errorf("%w: end: %v", volatility.ErrInvalidParameter, err)
		}
	}
	if v := q.Get("window"); v != "" {
		if req.Window, err = strconv.Atoi(v); err != nil || req.Window <= 0 {
			return req, fmt.Errorf("%w: window must be a positive integer", volatility.ErrInvalidParameter)
		}
	}
	return req, nil
}

// statusFor maps a pipeline failure onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, volatility.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, prices.ErrDataUnavailable):
		return http.StatusNotFound
	case errors.Is(err, prices.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, volatility.ErrInsufficientData), errors.Is(err, volatility.ErrModelFit):
		return http.StatusUnprocessableEntity
	}
	var se *pipeline.StageError
	if errors.As(err, &se) && se.Stage == pipeline.StageRetrieval {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) formFor(req pipeline.Request) form {
	if n, err := req.Normalize(s.now()); err == nil {
		req = n
	}
	f := form{Ticker: req.Ticker, Window: req.Window}
	if !req.Start.IsZero() {
		f.Start = market.FormatDate(req.Start)
	}
	if !req.End.IsZero() {
		f.End = market.FormatDate(req.End)
	}
	return f
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageData{Form: s.formFor(pipeline.DefaultRequest(s.now()))})
}

func (s *Server) handleVolatility(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		s.render(w, r, http.StatusBadRequest, pageData{
			Form:  s.formFor(pipeline.DefaultRequest(s.now())),
			Error: (&pipeline.StageError{Stage: pipeline.StageRequest, Err: err}).Error(),
		})
		return
	}

	res, err := s.pipeline.Compute(r.Context(), req)
	if err != nil {
		s.render(w, r, statusFor(err), pageData{Form: s.formFor(req), Error: err.Error()})
		return
	}

	charts, err := report.Charts(res)
	if err != nil {
		s.render(w, r, http.StatusInternalServerError, pageData{Form: s.formFor(req), Error: err.Error()})
		return
	}
	views := make([]chartView, 0, len(charts))
	for _, c := range charts {
		svg, err := c.SVG()
		if err != nil {
			s.render(w, r, http.StatusInternalServerError, pageData{Form: s.formFor(req), Error: err.Error()})
			return
		}
		// gonum emits a standalone document; inline only the <svg> element
		if i := bytes.Index(svg, []byte("<svg")); i > 0 {
			svg = svg[i:]
		}
		views = append(views, chartView{Title: c.Title, SVG: template.HTML(svg)})
	}

	summary := report.Summarize(res)
	s.render(w, r, http.StatusOK, pageData{Form: s.formFor(res.Request), Summary: &summary, Charts: views})
}

func (s *Server) handleAPIVolatility(w http.ResponseWriter, r *http.Request) {
	req, err := parseRequest(r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, &pipeline.StageError{Stage: pipeline.StageRequest, Err: err})
		return
	}

	res, err := s.pipeline.Compute(r.Context(), req)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(report.NewDocument(res)); err != nil {
		log.Error().Err(err).Str("request_id", RequestID(r.Context())).Msg("encode response")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"source": s.pipeline.Source.Name(),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(errorBody{Error: "not found: " + r.URL.Path})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	body := errorBody{Error: err.Error(), RequestID: RequestID(r.Context())}
	var se *pipeline.StageError
	if errors.As(err, &se) {
		body.Stage = se.Stage
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, "page.html", data); err != nil {
		log.Error().Err(err).Str("request_id", RequestID(r.Context())).Msg("render page")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
