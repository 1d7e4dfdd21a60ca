// Package report implements the reporting API (component K): a thin
// Gin HTTP surface exposing live-driver status and admitted pairs, a
// trigger to run a backtest, and a WebSocket broadcast of live signals
// to connected clients. Grounded on the teacher's gin.Default() route
// setup in main.go and its gorilla/websocket usage, adapted from a
// client dialing an upstream feed to a server broadcasting to our own
// clients.
package report

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"statarb/internal/cache"
	"statarb/internal/live"
)

// Server is the Gin+WebSocket reporting surface. It implements
// live.Reporter so the live driver can hand it cycle reports directly.
type Server struct {
	Cache   *cache.Cache
	Backtest BacktestRunner

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}

	upgrader websocket.Upgrader
	startedAt time.Time
}

// BacktestRunner abstracts triggering a backtest run from the API so
// the server package doesn't need to import internal/backtest directly
// (keeps the reporting surface decoupled from the replay engine).
type BacktestRunner interface {
	RunBacktest() (any, error)
}

// NewServer builds a reporting server whose WebSocket upgrader leaves
// CheckOrigin unset, so gorilla/websocket's default origin check
// applies: an upgrade request whose Origin host differs from the
// request Host is rejected.
func NewServer(c *cache.Cache, bt BacktestRunner) *Server {
	return &Server{
		Cache:    c,
		Backtest: bt,
		clients:  make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		startedAt: time.Now(),
	}
}

// Routes registers the reporting endpoints on a Gin engine.
func (s *Server) Routes(r *gin.Engine) {
	r.GET("/status", s.handleStatus)
	r.GET("/pairs", s.handlePairs)
	r.GET("/signals", s.handleSignalsWS)
	r.POST("/backtest", s.handleBacktest)
}

func (s *Server) handleStatus(c *gin.Context) {
	snap := s.Cache.Load()
	c.JSON(http.StatusOK, gin.H{
		"uptime_seconds": time.Since(s.startedAt).Seconds(),
		"admitted_pairs": len(snap.Pairs),
		"last_recalc":    snap.LastRecalc,
	})
}

func (s *Server) handlePairs(c *gin.Context) {
	snap := s.Cache.Load()
	c.JSON(http.StatusOK, gin.H{"pairs": snap.Pairs, "last_recalc": snap.LastRecalc})
}

func (s *Server) handleBacktest(c *gin.Context) {
	if s.Backtest == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "backtest runner not configured"})
		return
	}
	result, err := s.Backtest.RunBacktest()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func (s *Server) handleSignalsWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "websocket upgrade failed"})
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	// Drain reads so the connection reports closure promptly; clients
	// never send anything meaningful over this channel.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Report implements live.Reporter by broadcasting the cycle's reports
// to every connected WebSocket client. Matches live.Reporter's
// signature; ctx is unused since broadcast writes are not cancellable
// mid-flight once started.
func (s *Server) Report(_ context.Context, reports []live.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteJSON(reports); err != nil {
			conn.Close()
			delete(s.clients, conn)
		}
	}
	return nil
}
