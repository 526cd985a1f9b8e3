// Package server exposes the job manager over HTTP.
package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexhaus/jurico/glossary"
	"github.com/lexhaus/jurico/job"
)

// Server wires the HTTP routes around a job manager.
type Server struct {
	manager    *job.Manager
	glossaries *glossary.Set
	echo       *echo.Echo
}

// New builds the server and registers its routes.
func New(manager *job.Manager, glossaries *glossary.Set) *Server {
	s := &Server{
		manager:    manager,
		glossaries: glossaries,
		echo:       echo.New(),
	}
	s.echo.HideBanner = true
	s.echo.Use(middleware.Recover())

	api := s.echo.Group("/api")
	api.POST("/translate", s.submit)
	api.GET("/translate/:id/status", s.status)
	api.POST("/translate/:id/cancel", s.cancelJob)
	api.GET("/translate/:id/report", s.report)
	api.GET("/translate/:id/text", s.text)
	api.GET("/jobs", s.jobs)
	api.GET("/glossaries", s.listGlossaries)
	api.GET("/glossary/:name/content", s.glossaryContent)

	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return s
}

// Start listens on addr until the server is shut down.
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Handler exposes the routing tree. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

type submitRequest struct {
	SourceLang      string `json:"source_lang"`
	TargetLang      string `json:"target_lang"`
	Text            string `json:"text"`
	RefSource       string `json:"ref_source,omitempty"`
	RefTarget       string `json:"ref_target,omitempty"`
	Instructions    string `json:"instructions,omitempty"`
	DisableGlossary bool   `json:"disable_glossary,omitempty"`
	DisableMemory   bool   `json:"disable_memory,omitempty"`
}

type submitResponse struct {
	JobID     string    `json:"job_id"`
	State     job.State `json:"state"`
	Duplicate bool      `json:"duplicate"`
}

func (s *Server) submit(c echo.Context) error {
	req, err := parseSubmit(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	j, dup, err := s.manager.Submit(job.Request{
		SourceLang:      req.SourceLang,
		TargetLang:      req.TargetLang,
		Text:            req.Text,
		RefSource:       req.RefSource,
		RefTarget:       req.RefTarget,
		Instructions:    req.Instructions,
		DisableGlossary: req.DisableGlossary,
		DisableMemory:   req.DisableMemory,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	status := http.StatusAccepted
	if dup {
		status = http.StatusOK
	}
	return c.JSON(status, submitResponse{JobID: j.ID, State: j.State(), Duplicate: dup})
}

// parseSubmit accepts either a JSON body or a multipart form with the
// document in a "file" part and the options as form values.
func parseSubmit(c echo.Context) (submitRequest, error) {
	var req submitRequest
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		if err := c.Bind(&req); err != nil {
			return req, errors.New("invalid request body")
		}
		return req, nil
	}

	req.SourceLang = c.FormValue("source_lang")
	req.TargetLang = c.FormValue("target_lang")
	req.Instructions = c.FormValue("instructions")
	req.DisableGlossary = c.FormValue("disable_glossary") == "true"
	req.DisableMemory = c.FormValue("disable_memory") == "true"
	fh, err := c.FormFile("file")
	if err != nil {
		return req, errors.New("missing file part")
	}
	f, err := fh.Open()
	if err != nil {
		return req, fmt.Errorf("reading file part: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return req, fmt.Errorf("reading file part: %w", err)
	}
	req.Text = string(data)
	return req, nil
}

func (s *Server) status(c echo.Context) error {
	j, err := s.manager.Get(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, j.Status())
}

// cancelJob is idempotent: cancelling a job that already reached a
// terminal state reports that state instead of an error.
func (s *Server) cancelJob(c echo.Context) error {
	j, err := s.manager.Get(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	j.Cancel()
	return c.JSON(http.StatusOK, map[string]string{
		"job_id": j.ID,
		"state":  string(j.State()),
	})
}

func (s *Server) report(c echo.Context) error {
	report, err := s.manager.ReportFor(c.Param("id"))
	if err != nil {
		return artifactError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) text(c echo.Context) error {
	text, err := s.manager.Result(c.Param("id"))
	if err != nil {
		return artifactError(err)
	}
	return c.Blob(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}

func artifactError(err error) error {
	switch {
	case errors.Is(err, job.ErrJobNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, job.ErrNotCompleted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) jobs(c echo.Context) error {
	all := s.manager.Jobs()
	out := make([]job.Status, 0, len(all))
	for _, j := range all {
		out = append(out, j.Status())
	}
	return c.JSON(http.StatusOK, out)
}

type glossaryInfo struct {
	Name       string `json:"name"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	Entries    int    `json:"entries"`
}

func (s *Server) listGlossaries(c echo.Context) error {
	out := make([]glossaryInfo, 0)
	if s.glossaries != nil {
		for _, g := range s.glossaries.All() {
			out = append(out, glossaryInfo{
				Name:       g.Name,
				SourceLang: g.SourceLang,
				TargetLang: g.TargetLang,
				Entries:    g.Len(),
			})
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) glossaryContent(c echo.Context) error {
	if s.glossaries == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no glossaries loaded")
	}
	g := s.glossaries.Get(c.Param("name"))
	if g == nil {
		return echo.NewHTTPError(http.StatusNotFound, "unknown glossary: "+c.Param("name"))
	}
	return c.JSON(http.StatusOK, g.Entries())
}
