package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"sematube/internal/acquire"
	"sematube/internal/language"
	"sematube/internal/ledger"
	"sematube/internal/logging"
	"sematube/internal/pipeline"
	"sematube/internal/services"
)

type jobRequest struct {
	Link           string `json:"link"`
	UploadPath     string `json:"upload_path"`
	CaptionPath    string `json:"caption_path"`
	Name           string `json:"name"`
	Task           string `json:"task"`
	ModelSize      string `json:"model_size"`
	TargetLanguage string `json:"target_language"`
	SourceLanguage string `json:"source_language"`
	MaxLineWidth   int    `json:"max_line_width"`
	Mux            *bool  `json:"mux"`
}

type translateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
	SourceLanguage string `json:"source_language"`
}

type translateResponse struct {
	SourceLanguage string `json:"source_language"`
	TranslatedText string `json:"translated_text"`
}

type errorResponse struct {
	Error             string `json:"error"`
	Kind              string `json:"kind"`
	Stage             string `json:"stage,omitempty"`
	FallbackMediaPath string `json:"fallback_media_path,omitempty"`
}

type languageEntry struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleJob(c echo.Context) error {
	var body jobRequest
	if err := c.Bind(&body); err != nil {
		return s.writeError(c, services.Wrap(services.ErrInvalidArgument, "server", "decode job", "malformed JSON body", err))
	}
	mux := s.opts.DefaultMux
	if body.Mux != nil {
		mux = *body.Mux
	}
	req := pipeline.Request{
		Source: acquire.Source{
			Link:        strings.TrimSpace(body.Link),
			UploadPath:  strings.TrimSpace(body.UploadPath),
			CaptionPath: strings.TrimSpace(body.CaptionPath),
			Name:        strings.TrimSpace(body.Name),
		},
		Task:           pipeline.Task(body.Task),
		ModelSize:      body.ModelSize,
		TargetLanguage: body.TargetLanguage,
		SourceLanguage: body.SourceLanguage,
		MaxLineWidth:   body.MaxLineWidth,
		Mux:            mux,
	}
	result, err := s.opts.Pipeline.Run(c.Request().Context(), req)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) handleTranslate(c echo.Context) error {
	if s.opts.Translator == nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "translation is not configured", Kind: "Unavailable"})
	}
	var body translateRequest
	if err := c.Bind(&body); err != nil {
		return s.writeError(c, services.Wrap(services.ErrInvalidArgument, "server", "decode translation", "malformed JSON body", err))
	}
	res, err := s.opts.Translator.Translate(c.Request().Context(), body.Text, body.TargetLanguage, body.SourceLanguage)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, translateResponse{SourceLanguage: res.SourceLanguage, TranslatedText: res.Text})
}

func (s *Server) handleRuns(c echo.Context) error {
	if s.opts.Runs == nil {
		return c.JSON(http.StatusOK, []ledger.Summary{})
	}
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return s.writeError(c, services.Wrap(services.ErrInvalidArgument, "server", "list runs", "limit must be a non-negative integer", nil))
		}
		limit = n
	}
	runs, err := s.opts.Runs.Runs(c.Request().Context(), limit)
	if err != nil {
		return s.writeError(c, err)
	}
	if runs == nil {
		runs = []ledger.Summary{}
	}
	return c.JSON(http.StatusOK, runs)
}

func (s *Server) handleRun(c echo.Context) error {
	if s.opts.Runs == nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "run not found", Kind: "NotFound"})
	}
	detail, err := s.opts.Runs.Run(c.Request().Context(), c.Param("id"))
	if errors.Is(err, ledger.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error(), Kind: "NotFound"})
	}
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

func (s *Server) handleLanguages(c echo.Context) error {
	space := strings.ToLower(strings.TrimSpace(c.QueryParam("space")))
	var out []languageEntry
	switch space {
	case "", "translation":
		for _, lang := range language.TranslationLanguages() {
			out = append(out, languageEntry{Code: lang.Code, Name: lang.Name})
		}
	case "speech":
		for _, lang := range language.SpeechLanguages() {
			out = append(out, languageEntry{Code: lang.Code, Name: lang.DisplayName()})
		}
	default:
		return s.writeError(c, services.Wrap(services.ErrInvalidArgument, "server", "list languages", "space must be speech or translation", nil))
	}
	return c.JSON(http.StatusOK, out)
}

// writeError maps err onto a status code and the shared error body.
func (s *Server) writeError(c echo.Context, err error) error {
	body := errorResponse{Error: err.Error(), Kind: services.Kind(err)}
	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		body.Stage = string(stageErr.Stage)
		body.FallbackMediaPath = stageErr.FallbackMediaPath
	}
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed",
			logging.String(logging.FieldEventType, "api_request_failed"),
			logging.String("path", c.Path()),
			logging.String("error_kind", body.Kind),
			logging.Error(err),
		)
	}
	return c.JSON(status, body)
}

func statusFor(err error) int {
	switch {
	case services.IsClientError(err):
		return http.StatusBadRequest
	case services.IsCanceled(err):
		return http.StatusRequestTimeout
	case errors.Is(err, services.ErrAcquisitionFailed),
		errors.Is(err, services.ErrTranscriptionFailed),
		errors.Is(err, services.ErrTranslationFailed),
		errors.Is(err, services.ErrMuxFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			msg = m
		}
		_ = c.JSON(he.Code, errorResponse{Error: msg, Kind: http.StatusText(he.Code)})
		return
	}
	_ = s.writeError(c, err)
}
