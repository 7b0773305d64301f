package ui

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"gocalib/app"
	"gocalib/internal"
	"gocalib/internal/errors"
	"gocalib/internal/experiment"
	"gocalib/internal/report"
	"gocalib/ui/middleware"

	"github.com/gin-gonic/gin"
)

// Limits on calibration and experiment requests served over HTTP
const (
	MaxSampleSize      = 100_000
	MaxConvergenceSize = 2_000
	MaxTrialSizes      = 50
)

// Server serves the calibration JSON API
type Server struct {
	router       *gin.Engine
	calibrations *app.CalibrationService
	experiments  *app.ExperimentService
	limiter      *middleware.RateLimiter
	defaultSeed  int64
	logger       *internal.Logger
}

// Options tunes the API server
type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	DefaultSeed    int64
	Logger         *internal.Logger
}

// ExperimentRequest is the body of the experiment endpoints
type ExperimentRequest struct {
	Name            string   `json:"name"`
	TrueProbability float64  `json:"true_probability"`
	Prior           string   `json:"prior"`
	Alpha           *float64 `json:"alpha"`
	Beta            *float64 `json:"beta"`
	Confidence      *float64 `json:"confidence"`
	Seed            *int64   `json:"seed"`
	Sizes           []int    `json:"sizes"`
	MaxSize         int      `json:"max_size"`
}

// NewServer creates the API server and registers its routes
func NewServer(calibrations *app.CalibrationService, experiments *app.ExperimentService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = internal.DefaultLogger
	}

	s := &Server{
		router:       gin.New(),
		calibrations: calibrations,
		experiments:  experiments,
		defaultSeed:  opts.DefaultSeed,
		logger:       opts.Logger,
	}
	if opts.RateLimitRPS > 0 && opts.RateLimitBurst > 0 {
		s.limiter = middleware.NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestLogger())
	if s.limiter != nil {
		s.router.Use(middleware.RateLimit(s.limiter))
	}
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	api.GET("/priors", s.handlePriors)
	api.POST("/calibrate", s.handleCalibrate)
	api.POST("/calibrate/report", s.handleCalibrateReport)
	api.POST("/experiments/trials", s.handleTrials)
	api.POST("/experiments/convergence", s.handleConvergence)
	api.GET("/runs", s.handleListRuns)
	api.GET("/runs/:id", s.handleGetRun)
}

// Handler exposes the router for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Limiter returns the rate limiter, nil when limiting is off
func (s *Server) Limiter() *middleware.RateLimiter {
	return s.limiter
}

// HTTPServer wraps the router in an http.Server listening on addr
func (s *Server) HTTPServer(addr string, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func (s *Server) handlePriors(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"priors": s.calibrations.Priors()})
}

func (s *Server) handleCalibrate(c *gin.Context) {
	resp, ok := s.calibrate(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCalibrateReport(c *gin.Context) {
	resp, ok := s.calibrate(c)
	if !ok {
		return
	}
	md := report.RenderResult(resp.Prior.Label, resp.Result)
	c.Data(http.StatusOK, "text/html; charset=utf-8", report.ToHTML(md, "Calibration report"))
}

func (s *Server) calibrate(c *gin.Context) (*app.CalibrationResponse, bool) {
	var req app.CalibrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return nil, false
	}
	if len(req.Observations) > MaxSampleSize || (req.Trials != nil && *req.Trials > MaxSampleSize) {
		s.writeError(c, errors.InvalidInput(fmt.Sprintf("sample sizes are capped at %d", MaxSampleSize)))
		return nil, false
	}
	resp, err := s.calibrations.Calibrate(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}
	return resp, true
}

func (s *Server) handleTrials(c *gin.Context) {
	def, ok := s.bindExperiment(c)
	if !ok {
		return
	}
	if len(def.Sizes) > MaxTrialSizes {
		s.writeError(c, errors.InvalidInput(fmt.Sprintf("at most %d sizes per request", MaxTrialSizes)))
		return
	}
	for _, n := range def.Sizes {
		if n > MaxSampleSize {
			s.writeError(c, errors.InvalidInput(fmt.Sprintf("sample sizes are capped at %d", MaxSampleSize)))
			return
		}
	}

	rep, err := s.experiments.RunTrials(c.Request.Context(), def)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) handleConvergence(c *gin.Context) {
	def, ok := s.bindExperiment(c)
	if !ok {
		return
	}
	if def.MaxSize > MaxConvergenceSize {
		s.writeError(c, errors.InvalidInput(fmt.Sprintf("max_size is capped at %d", MaxConvergenceSize)))
		return
	}

	rep, err := s.experiments.RunConvergence(c.Request.Context(), def)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) bindExperiment(c *gin.Context) (*experiment.Definition, bool) {
	var req ExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, errors.InvalidInput("invalid request body: "+err.Error()))
		return nil, false
	}

	seed := s.defaultSeed
	if req.Seed != nil {
		seed = *req.Seed
	}
	def := &experiment.Definition{
		Name:            req.Name,
		TrueProbability: req.TrueProbability,
		Prior:           req.Prior,
		Alpha:           req.Alpha,
		Beta:            req.Beta,
		Seed:            seed,
		Sizes:           req.Sizes,
		MaxSize:         req.MaxSize,
	}
	if req.Confidence != nil {
		def.Confidence = *req.Confidence
		if def.Confidence == 0 {
			s.writeError(c, errors.InvalidInput("confidence must be > 0 for experiments"))
			return nil, false
		}
	}
	return def, true
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(c, errors.InvalidInput("limit must be an integer"))
			return
		}
		limit = v
	}

	runs, err := s.calibrations.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	run, err := s.calibrations.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// writeError renders {"error": {"code", "message"}} with the status implied by the code
func (s *Server) writeError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"code": errors.GetCode(err), "message": message},
	})
}
