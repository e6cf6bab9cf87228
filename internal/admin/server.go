package admin

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/digkill/QuickAI/internal/models"
)

// Users is the identity-side record the admin API manages.
type Users interface {
	Get(ctx context.Context, uid string) (*models.User, error)
	SetPlan(ctx context.Context, uid string, plan models.Plan) error
	SetUsage(ctx context.Context, uid string, n int) error
}

type Server struct {
	addr     string
	username string
	password string
	log      *slog.Logger
	users    Users
	router   *chi.Mux
}

func NewServer(addr, username, password string, log *slog.Logger, users Users) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:     addr,
		username: username,
		password: password,
		log:      log,
		users:    users,
		router:   r,
	}
	r.Group(func(protected chi.Router) {
		protected.Use(s.basicAuthMiddleware())
		protected.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetUser)
			r.Put("/plan", s.handleSetPlan)
			r.Put("/usage", s.handleSetUsage)
		})
	})
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("admin shutdown error", "err", err)
		}
	}()

	s.log.Info("admin api listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin listen: %w", err)
	}
	return nil
}

type userResponse struct {
	ID        string    `json:"id"`
	Plan      string    `json:"plan"`
	FreeUsage int       `json:"free_usage"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type planRequest struct {
	Plan string `json:"plan"`
}

type usageRequest struct {
	FreeUsage *int `json:"free_usage"`
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.loadUser(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, toResponse(user))
}

func (s *Server) handleSetPlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, fmt.Errorf("invalid json"))
		return
	}
	plan := models.Plan(strings.ToLower(strings.TrimSpace(req.Plan)))
	if plan != models.PlanFree && plan != models.PlanPremium {
		s.badRequest(w, fmt.Errorf("plan must be free or premium"))
		return
	}
	user, ok := s.loadUser(w, r)
	if !ok {
		return
	}
	if err := s.users.SetPlan(r.Context(), user.ID, plan); err != nil {
		s.internalError(w, err)
		return
	}
	s.log.Info("plan changed", "user", user.ID, "from", user.Plan, "to", plan)
	user.Plan = plan
	s.writeJSON(w, http.StatusOK, toResponse(user))
}

func (s *Server) handleSetUsage(w http.ResponseWriter, r *http.Request) {
	var req usageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.badRequest(w, fmt.Errorf("invalid json"))
		return
	}
	if req.FreeUsage == nil || *req.FreeUsage < 0 {
		s.badRequest(w, fmt.Errorf("free_usage must be a non-negative integer"))
		return
	}
	user, ok := s.loadUser(w, r)
	if !ok {
		return
	}
	if err := s.users.SetUsage(r.Context(), user.ID, *req.FreeUsage); err != nil {
		s.internalError(w, err)
		return
	}
	user.FreeUsage = *req.FreeUsage
	s.writeJSON(w, http.StatusOK, toResponse(user))
}

func (s *Server) loadUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		s.badRequest(w, fmt.Errorf("user id required"))
		return nil, false
	}
	user, err := s.users.Get(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return nil, false
	}
	if user == nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return nil, false
	}
	return user, true
}

func (s *Server) basicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || !equal(user, s.username) || !equal(pass, s.password) {
				w.Header().Set("WWW-Authenticate", `Basic realm="quickai"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error("admin handler error", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func toResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Plan:      string(u.Plan),
		FreeUsage: u.FreeUsage,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
