// Package gateway is the HTTP surface of the companion: REST endpoints, the
// WebSocket state stream, static frontend and audio serving, and Prometheus
// metrics.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/benlarsendk/a320-checklist-companion/bus"
	"github.com/benlarsendk/a320-checklist-companion/core"
	"github.com/benlarsendk/a320-checklist-companion/settings"
	"github.com/benlarsendk/a320-checklist-companion/simbrief"
	"github.com/benlarsendk/a320-checklist-companion/storage"
	"github.com/benlarsendk/a320-checklist-companion/voice"
)

// maxRequestBodySize limits POST body sizes.
const maxRequestBodySize = 1 << 20 // 1 MB

const shutdownTimeout = 5 * time.Second

// Bus is the event-bus surface the gateway needs.
type Bus interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler nats.MsgHandler) (*nats.Subscription, error)
}

// Options wires the server's collaborators.
type Options struct {
	Host        string
	Port        int
	FrontendDir string
	AudioDir    string

	Engine   *core.Engine
	SimBrief *simbrief.Client
	Settings *settings.Manager
	Voice    *voice.Session         // may be nil when voice is disabled
	Session  *storage.SessionLog    // may be nil
	Bus      Bus
	Logger   *slog.Logger
}

// Server is the companion HTTP server.
type Server struct {
	host string
	port int

	engine   *core.Engine
	simbrief *simbrief.Client
	settings *settings.Manager
	voice    *voice.Session
	session  *storage.SessionLog
	bus      Bus
	hub      *Hub
	logger   *slog.Logger

	httpServer *http.Server
	stateSub   *nats.Subscription

	// Announcement tracking. Seeded in Start before the subscription exists,
	// then touched only from the state subscription callback, which NATS
	// serializes per subscription.
	announcePhase    string
	announceComplete bool
}

// NewServer builds the server and its routing table.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		host:     opts.Host,
		port:     opts.Port,
		engine:   opts.Engine,
		simbrief: opts.SimBrief,
		settings: opts.Settings,
		voice:    opts.Voice,
		session:  opts.Session,
		bus:      opts.Bus,
		hub:      NewHub(logger),
		logger:   logger,
	}

	mux := http.NewServeMux()
	s.registerHandlers(mux, opts.FrontendDir, opts.AudioDir)
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Handler: mux,
	}
	return s
}

func (s *Server) registerHandlers(mux *http.ServeMux, frontendDir, audioDir string) {
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/checklist", s.handleChecklists)
	mux.HandleFunc("/api/checklist/current", s.handleCurrentChecklist)
	mux.HandleFunc("/api/checklist/check", s.handleItemOp("check"))
	mux.HandleFunc("/api/checklist/uncheck", s.handleItemOp("uncheck"))
	mux.HandleFunc("/api/checklist/toggle", s.handleItemOp("toggle"))
	mux.HandleFunc("/api/checklist/next", s.handleNextPhase)
	mux.HandleFunc("/api/checklist/prev", s.handlePrevPhase)
	mux.HandleFunc("/api/checklist/reset", s.handleReset)
	mux.HandleFunc("/api/checklist/phase", s.handleSetPhase)
	mux.HandleFunc("/api/mode/auto", s.handleSetMode("auto"))
	mux.HandleFunc("/api/mode/manual", s.handleSetMode("manual"))
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/api/flightplan", s.handleFlightPlan)
	mux.HandleFunc("/api/flightplan/fetch", s.handleFlightPlanFetch)
	mux.HandleFunc("/api/flightplan/clear", s.handleFlightPlanClear)
	mux.HandleFunc("/api/session/log", s.handleSessionLog)
	mux.HandleFunc("/api/voice/status", s.handleVoiceStatus)
	mux.HandleFunc("/api/voice/settings", s.handleVoiceSettings)
	mux.HandleFunc("/api/voice/challenge", s.handleVoiceChallenge)
	mux.HandleFunc("/api/network-info", s.handleNetworkInfo)
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/metrics", promhttp.Handler())

	if audioDir != "" {
		mux.Handle("/audio/", http.StripPrefix("/audio/", http.FileServer(http.Dir(audioDir))))
	}
	if frontendDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(frontendDir)))
	}
}

// Start begins serving and subscribes to bus snapshots.
func (s *Server) Start(ctx context.Context) error {
	if s.voice != nil {
		// Seed the announcement tracking so the checklist already active at
		// startup is not re-announced.
		snap := s.engine.Snapshot()
		s.announcePhase = string(snap.ChecklistState.Phase)
		cl := snap.ChecklistState.Checklist
		s.announceComplete = cl != nil && len(cl.Items) > 0 && cl.IsComplete()
	}

	sub, err := s.bus.Subscribe(bus.SubjectStateUpdate, func(msg *nats.Msg) {
		s.handleStateUpdate(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe to state updates: %w", err)
	}
	s.stateSub = sub

	if s.voice != nil {
		s.voice.SetEventHandler(func(ev voice.Event) {
			data, err := json.Marshal(ev)
			if err != nil {
				return
			}
			if err := s.bus.Publish(bus.SubjectVoiceEvent, data); err != nil {
				s.logger.Warn("Failed to publish voice event", "error", err)
			}
			s.hub.Broadcast(envelope("voice_event", ev))
		})
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server failed", "error", err)
		}
	}()

	s.logger.Info("Gateway listening", "addr", s.httpServer.Addr)
	return nil
}

// announceView is the slice of a snapshot the announcement logic reads.
type announceView struct {
	ChecklistState struct {
		Phase     string `json:"phase"`
		Checklist *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
			Items []struct {
				Checked bool `json:"checked"`
			} `json:"items"`
		} `json:"checklist"`
	} `json:"checklist_state"`
}

// handleStateUpdate fans a snapshot out to WebSocket clients and turns phase
// and completion transitions into voice read commands.
func (s *Server) handleStateUpdate(data []byte) {
	s.hub.Broadcast(envelope("state_update", json.RawMessage(data)))
	if s.voice == nil {
		return
	}

	var snap announceView
	if err := json.Unmarshal(data, &snap); err != nil {
		return
	}
	cs := snap.ChecklistState
	complete := cs.Checklist != nil && len(cs.Checklist.Items) > 0
	if cs.Checklist != nil {
		for _, it := range cs.Checklist.Items {
			if !it.Checked {
				complete = false
				break
			}
		}
	}

	if cs.Phase != s.announcePhase {
		s.announcePhase = cs.Phase
		s.announceComplete = complete
		if cs.Checklist != nil {
			cmd := s.voice.AnnounceChecklistAvailable(cs.Checklist.ID, cs.Checklist.Title)
			s.hub.Broadcast(envelope("voice_read", cmd))
		}
		return
	}

	if complete && !s.announceComplete && cs.Checklist != nil {
		cmd := s.voice.AnnounceChecklistComplete(cs.Checklist.ID)
		s.hub.Broadcast(envelope("voice_read", cmd))
	}
	s.announceComplete = complete
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	if s.stateSub != nil {
		if err := s.stateSub.Unsubscribe(); err != nil {
			s.logger.Warn("Unsubscribe failed", "error", err)
		}
	}
	s.hub.closeAll()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the routing table, used by tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Response is already partially written; nothing to do.
		_ = err
	}
}

// writeError writes a JSON error body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

// decodeBody decodes a size-limited JSON request body.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	return json.NewDecoder(r.Body).Decode(dst)
}

// localAddresses lists non-loopback IPv4 addresses of this host.
func localAddresses() []string {
	var out []string
	ifaces, err := net.Interfaces()
	if err != nil {
		return out
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip := ipNet.IP.To4()
			if ip == nil || ip.IsLoopback() {
				continue
			}
			out = append(out, ip.String())
		}
	}
	return out
}
