// Package server exposes the grant authority and role registry over a
// local unix-socket HTTP API, with a websocket feed for pushed snapshots.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/grantd/grantd/internal/authority"
	"github.com/grantd/grantd/internal/role"
	"github.com/grantd/grantd/internal/store"
)

type Server struct {
	store      *store.Store
	authority  *authority.Authority
	roles      *role.Registry
	socketPath string

	jwtSecret      []byte
	adminTokenHash string // bcrypt; empty disables session auth
}

func New(s *store.Store, a *authority.Authority, roles *role.Registry, socketPath string) *Server {
	return &Server{
		store:      s,
		authority:  a,
		roles:      roles,
		socketPath: socketPath,
	}
}

// EnableAuth turns on session auth: /session trades the admin token for a
// JWT, and every other route requires one.
func (s *Server) EnableAuth(secret []byte, adminTokenHash string) {
	s.jwtSecret = secret
	s.adminTokenHash = adminTokenHash
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	// Clean up stale socket.
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen unix %s: %w", s.socketPath, err)
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	srv := &http.Server{Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
		os.Remove(s.socketPath)
		return nil
	case err := <-errCh:
		os.Remove(s.socketPath)
		return err
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /session", s.handleSession)
	mux.HandleFunc("GET /roles/{name}/availability", s.auth(s.handleRoleAvailability))
	mux.HandleFunc("GET /grants/{app}/{group}", s.auth(s.handleGetGrant))
	mux.HandleFunc("POST /grants/{app}/{group}/change", s.auth(s.handleChange))
	mux.HandleFunc("POST /grants/{app}/{group}/enroll", s.auth(s.handleEnroll))
	mux.HandleFunc("POST /grants/{app}/{group}/remove", s.auth(s.handleRemove))
	mux.HandleFunc("GET /apps/{app}/grants", s.auth(s.handleListByApp))
	mux.HandleFunc("GET /groups/{group}/grants", s.auth(s.handleListByGroup))
	mux.HandleFunc("GET /grants/{app}/{group}/audit", s.auth(s.handleAudit))
	mux.HandleFunc("GET /watch", s.auth(s.handleWatch))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
