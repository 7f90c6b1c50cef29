//Package api is the HTTP control plane: read-only status endpoints backed
// by the hashrate monitor and OTP-guarded power control. It consumes
// published metrics only and never reaches into mining state directly.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerdqaxe/qaxeminer/types"

	"github.com/gorilla/mux"
	"github.com/gorilla/rpc"
	rpcjson "github.com/gorilla/rpc/json"
	"github.com/jinzhu/copier"
	"go.uber.org/zap"
)

// StatusProvider supplies the full read-only system snapshot.
type StatusProvider interface {
	Status() *types.SystemStatus
}

// PowerController executes the guarded power operations.
type PowerController interface {
	Shutdown()
	Restart()
}

// Server wires the routes. Listen blocks serving them.
type Server struct {
	listen   string
	provider StatusProvider
	power    PowerController
	guard    *OTPGuard
	logger   *zap.Logger
	router   *mux.Router
}

func NewServer(listen string, provider StatusProvider, power PowerController, guard *OTPGuard, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		listen:   listen,
		provider: provider,
		power:    power,
		guard:    guard,
		logger:   logger,
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	rpcServer := rpc.NewServer()
	rpcServer.RegisterCodec(rpcjson.NewCodec(), "application/json")
	rpcServer.RegisterCodec(rpcjson.NewCodec(), "application/json;charset=UTF-8")
	rpcServer.RegisterService(&StatusService{provider: s.provider}, "miner")
	s.router.Handle("/rpc", rpcServer)

	s.router.HandleFunc("/api/system/info", s.getSystemInfo).Methods(http.MethodGet)
	s.router.HandleFunc("/api/system/asic", s.getAsicInfo).Methods(http.MethodGet)
	s.router.HandleFunc("/api/auth/session", s.postSession).Methods(http.MethodPost)
	s.router.HandleFunc("/api/system/restart",
		s.guard.Require(s.postRestart)).Methods(http.MethodPost)
	s.router.HandleFunc("/api/system/shutdown",
		s.guard.Require(s.postShutdown)).Methods(http.MethodPost)
}

func (s *Server) Listen() error {
	s.logger.Info("control API listening", zap.String("addr", s.listen))
	return http.ListenAndServe(s.listen, s.router)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) getSystemInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.provider.Status())
}

func (s *Server) getAsicInfo(w http.ResponseWriter, r *http.Request) {
	status := s.provider.Status()
	writeJSON(w, status.Device)
}

type sessionRequest struct {
	TOTP string `json:"totp"`
}

type sessionResponse struct {
	Token string `json:"token"`
}

func (s *Server) postSession(w http.ResponseWriter, r *http.Request) {
	if !s.guard.Enabled() {
		http.Error(w, "OTP not configured", http.StatusNotFound)
		return
	}
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	token, ok := s.guard.IssueSession(req.TOTP)
	if !ok {
		http.Error(w, "OTP required", http.StatusUnauthorized)
		return
	}
	writeJSON(w, &sessionResponse{Token: token})
}

func (s *Server) postRestart(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("restarting system because of API request")
	w.Write([]byte("System will restart shortly."))
	go s.power.Restart()
}

func (s *Server) postShutdown(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("shutting down system because of API request")
	w.Write([]byte("System will shutdown shortly."))
	go s.power.Shutdown()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// StatusService is the JSON-RPC flavour of the status endpoint.
type StatusService struct {
	provider StatusProvider
}

type StatusArgs struct {
	Who string
}

type StatusReply struct {
	Status types.SystemStatus
}

func (svc *StatusService) GetStatus(r *http.Request, args *StatusArgs, reply *StatusReply) error {
	status := svc.provider.Status()
	return copier.Copy(&reply.Status, status)
}
