// Package dashboard serves the monitoring HTTP API and the WebSocket feed
// that pushes funding rates and PnL to connected browsers.
package dashboard

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"solarb/internal/config"
	"solarb/internal/engine"
	"solarb/internal/funding"
	"solarb/internal/pnl"
)

//go:embed dashboard.html
var staticFS embed.FS

const (
	writeWait      = 10 * time.Second
	shutdownWait   = 5 * time.Second
	defaultPushGap = 30 * time.Second
)

// Server exposes the dashboard API and the WebSocket update feed.
type Server struct {
	cfg       config.DashboardConfig
	engine    *engine.Engine
	provider  funding.Provider
	rpcURL    string
	startedAt time.Time
	logger    zerolog.Logger
	upgrader  websocket.Upgrader
	httpSrv   *http.Server
	done      chan struct{}
}

// New constructs the dashboard server. provider may be nil when funding data
// is disabled; the funding endpoints then report an empty result.
func New(cfg config.DashboardConfig, eng *engine.Engine, provider funding.Provider, rpcURL string, logger zerolog.Logger) *Server {
	if cfg.PushInterval <= 0 {
		cfg.PushInterval = defaultPushGap
	}
	if cfg.RatesLimit <= 0 {
		cfg.RatesLimit = 15
	}
	if cfg.TradesLimit <= 0 {
		cfg.TradesLimit = 20
	}
	return &Server{
		cfg:       cfg,
		engine:    eng,
		provider:  provider,
		rpcURL:    rpcURL,
		startedAt: time.Now(),
		logger:    logger.With().Str("component", "dashboard").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully. Closing
// done tears down the per-connection push goroutines along with the listener.
func (s *Server) Run(ctx context.Context) error {
	defer close(s.done)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/funding-rates", s.handleFundingRates)
	mux.HandleFunc("/api/markets", s.handleMarkets)
	mux.HandleFunc("/api/pnl", s.handlePnL)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/", s.handleIndex)

	s.httpSrv = &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("listen", s.cfg.Listen).Msg("dashboard listening")
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn().Err(err).Msg("dashboard shutdown incomplete")
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	page, err := staticFS.ReadFile("dashboard.html")
	if err != nil {
		http.Error(w, "dashboard page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

type apiEnvelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body apiEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug().Err(err).Msg("response write failed")
	}
}

func (s *Server) handleFundingRates(w http.ResponseWriter, r *http.Request) {
	if s.provider == nil {
		s.writeJSON(w, http.StatusOK, apiEnvelope{Success: true, Data: []funding.Rate{}})
		return
	}
	rates, err := s.provider.Rates(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusBadGateway, apiEnvelope{Success: false, Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, apiEnvelope{Success: true, Data: rates})
}

func (s *Server) handleMarkets(w http.ResponseWriter, r *http.Request) {
	if s.provider == nil {
		s.writeJSON(w, http.StatusOK, apiEnvelope{Success: true, Data: []funding.Market{}})
		return
	}
	markets, err := s.provider.Markets(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusBadGateway, apiEnvelope{Success: false, Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, apiEnvelope{Success: true, Data: markets})
}

type pnlPayload struct {
	Stats  pnl.Stats         `json:"stats"`
	Trades []pnl.TradeRecord `json:"trades"`
}

func (s *Server) handlePnL(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, apiEnvelope{Success: true, Data: pnlPayload{
		Stats:  s.engine.PnLStats(),
		Trades: s.engine.RecentTrades(s.cfg.TradesLimit),
	}})
}

type statusPayload struct {
	State     string    `json:"state"`
	UptimeSec int64     `json:"uptimeSec"`
	RPC       string    `json:"rpc"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, apiEnvelope{Success: true, Data: statusPayload{
		State:     s.engine.CurrentState().String(),
		UptimeSec: int64(time.Since(s.startedAt).Seconds()),
		RPC:       truncateRPC(s.rpcURL),
		Timestamp: time.Now().UTC(),
	}})
}

// truncateRPC keeps only a prefix of the endpoint so API keys embedded in the
// URL never reach the browser.
func truncateRPC(rpc string) string {
	const keep = 30
	if len(rpc) <= keep {
		return rpc
	}
	return rpc[:keep] + "..."
}

type wsUpdate struct {
	Type string       `json:"type"`
	Data wsUpdateData `json:"data"`
}

type wsUpdateData struct {
	Rates []funding.Rate `json:"rates"`
	Stats pnl.Stats      `json:"stats"`
}

// handleWS upgrades the connection and pushes a snapshot immediately, then on
// every push interval. Each connection is served by its own goroutine; a
// failed write tears down just that connection.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	s.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("websocket client connected")

	go func() {
		defer conn.Close()

		// Drain control frames so pings and close frames are processed.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		if err := s.pushUpdate(conn); err != nil {
			return
		}

		ticker := time.NewTicker(s.cfg.PushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				if err := s.pushUpdate(conn); err != nil {
					s.logger.Debug().Err(err).Msg("websocket client dropped")
					return
				}
			}
		}
	}()
}

func (s *Server) pushUpdate(conn *websocket.Conn) error {
	update := wsUpdate{Type: "update"}
	update.Data.Stats = s.engine.PnLStats()
	update.Data.Rates = []funding.Rate{}

	if s.provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		rates, err := s.provider.Rates(ctx)
		cancel()
		if err == nil {
			if len(rates) > s.cfg.RatesLimit {
				rates = rates[:s.cfg.RatesLimit]
			}
			update.Data.Rates = rates
		}
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(update)
}
