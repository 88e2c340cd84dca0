package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"vostcard-gateway/internal/models"
)

// Every legacy deployment path stays mounted on the canonical handler so
// existing clients keep working.
var (
	scriptPaths     = []string{"/generate-script", "/api/generate-script", "/.netlify/functions/generate-script"}
	geocodePaths    = []string{"/api/geocode", "/.netlify/functions/geocode"}
	advertiserPaths = []string{"/api/notifications/advertiser", "/.netlify/functions/sendAdvertiserNotification"}
	bugReportPaths  = []string{"/api/notifications/bug-report", "/.netlify/functions/sendBugReport"}
)

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	for _, p := range scriptPaths {
		s.app.POST(p, s.handleGenerateScript)
	}
	s.app.POST("/api/scripts", s.handleScriptText)
	for _, p := range geocodePaths {
		s.app.POST(p, s.handleGeocode)
	}
	for _, p := range advertiserPaths {
		s.app.POST(p, s.handleAdvertiserNotification)
	}
	for _, p := range bugReportPaths {
		s.app.POST(p, s.handleBugReport)
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerateScript(c echo.Context) error {
	var req models.ScriptRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	raw, err := s.services.Load().Script.Generate(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, raw)
}

func (s *Server) handleScriptText(c echo.Context) error {
	var req models.ScriptRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	text, err := s.services.Load().Script.GenerateText(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, text)
}

func (s *Server) handleGeocode(c echo.Context) error {
	var req models.GeocodeRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	resp, err := s.services.Load().Geocode.Geocode(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleAdvertiserNotification(c echo.Context) error {
	var req models.AdvertiserApplication
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	conf, err := s.services.Load().Notify.NotifyAdvertiser(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conf)
}

func (s *Server) handleBugReport(c echo.Context) error {
	var req models.BugReport
	if err := decodeRequestBody(c, &req); err != nil {
		return err
	}

	conf, err := s.services.Load().Notify.ReportBug(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conf)
}
