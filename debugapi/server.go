// Package debugapi implements the read-only operator HTTP surface added
// in SPEC_FULL.md §6: session and key-session inspection endpoints built
// with gin, following ssungk/SOL's internal/api package idiom (a thin
// *gin.Engine wrapper with one handler method per route) rather than
// net/http.ServeMux.
package debugapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rialto-go/rialto/cdm"
	"github.com/rialto-go/rialto/playback"
)

// Server is the debug/admin HTTP API: GET /sessions, GET /sessions/:id,
// GET /sessions/:id/needdata, GET /keysessions. Strictly additive and
// read-only; nothing here can mutate playback or CDM state.
type Server struct {
	log    *slog.Logger
	router *gin.Engine
	pb     *playback.Service
	cdm    *cdm.Service
}

// New constructs a Server bound to svc and cdmSvc. cdmSvc may be nil if the
// process was started without DRM support, in which case GET /keysessions
// always returns an empty list.
func New(svc *playback.Service, cdmSvc *cdm.Service, log *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		log:    log.With("component", "debugapi"),
		router: router,
		pb:     svc,
		cdm:    cdmSvc,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/sessions", s.listSessions)
	s.router.GET("/sessions/:id", s.getSession)
	s.router.GET("/sessions/:id/needdata", s.getNeedData)
	s.router.GET("/keysessions", s.listKeySessions)
}

// Handler returns the underlying http.Handler, for wiring into an
// *http.Server in cmd/rialtosrv and for use by tests via httptest.
func (s *Server) Handler() http.Handler { return s.router }
