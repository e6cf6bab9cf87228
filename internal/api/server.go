package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/digkill/QuickAI/internal/apperr"
	"github.com/digkill/QuickAI/internal/auth"
	"github.com/digkill/QuickAI/internal/models"
	"github.com/digkill/QuickAI/internal/service"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Options struct {
	Addr           string
	MaxUploadBytes int64
	UploadTmpDir   string
	RequestTimeout time.Duration
}

type Server struct {
	opts      Options
	log       *slog.Logger
	tasks     *service.TaskService
	creations *service.CreationService
	health    Pinger
	router    *chi.Mux
}

func NewServer(opts Options, log *slog.Logger, authn *auth.Authenticator, tasks *service.TaskService, creations *service.CreationService, health Pinger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)

	s := &Server{
		opts:      opts,
		log:       log,
		tasks:     tasks,
		creations: creations,
		health:    health,
		router:    r,
	}

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(api chi.Router) {
		api.Use(authn.Require)
		api.Route("/ai", func(r chi.Router) {
			r.Post("/generate-article", s.handleGenerateArticle)
			r.Post("/generate-blog-title", s.handleGenerateBlogTitle)
			r.Post("/generate-image", s.handleGenerateImage)
			r.Post("/remove-image-background", s.handleRemoveBackground)
			r.Post("/remove-image-object", s.handleRemoveObject)
			r.Post("/resume-review", s.handleResumeReview)
			r.Post("/job-discovery", s.handleJobDiscovery)
			r.Post("/job-search", s.handleJobSearch)
			r.Post("/learning-resources", s.handleLearningResources)
		})
		api.Route("/user", func(r chi.Router) {
			r.Get("/get-user-creations", s.handleUserCreations)
			r.Get("/get-published-creations", s.handlePublishedCreations)
			r.Post("/toggle-like-creation", s.handleToggleLike)
			r.Delete("/creations/{id}", s.handleDeleteCreation)
		})
	})
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      s.opts.RequestTimeout + 30*time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("http shutdown error", "err", err)
		}
	}()

	s.log.Info("http api listening", "addr", s.opts.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

type articleRequest struct {
	Prompt string `json:"prompt"`
	Length int    `json:"length"`
}

type promptRequest struct {
	Prompt  string `json:"prompt"`
	Publish bool   `json:"publish"`
}

type jobSearchRequest struct {
	JobTitle string `json:"jobTitle"`
	Location string `json:"location"`
}

type learningRequest struct {
	Topic string `json:"topic"`
	Level string `json:"level"`
}

type toggleLikeRequest struct {
	ID flexibleID `json:"id"`
}

func (s *Server) handleGenerateArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if !s.decode(w, r, &req) {
		return
	}
	content, err := s.tasks.GenerateArticle(r.Context(), mustCaller(r), service.ArticleRequest{Prompt: req.Prompt, Length: req.Length})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSuccess(w, map[string]any{"content": content})
}

func (s *Server) handleGenerateBlogTitle(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if !s.decode(w, r, &req) {
		return
	}
	content, err := s.tasks.GenerateBlogTitle(r.Context(), mustCaller(r), req.Prompt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSuccess(w, map[string]any{"content": content})
}

func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if !s.decode(w, r, &req) {
		return
	}
	url, err := s.tasks.GenerateImage(r.Context(), mustCaller(r), service.ImageRequest{Prompt: req.Prompt, Publish: req.Publish})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSuccess(w, map[string]any{"content": url})
}

func (s *Server) handleRemoveBackground(w http.ResponseWriter, r *http.Request) {
	form, err := s.readMultipart(w, r, "image")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	url, err := s.tasks.RemoveBackground(r.Context(), mustCaller(r), form.file())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSuccess(w, map[string]any{"content": url})
}

func (s *Server) handleRemoveObject(w http.ResponseWriter, r *http.Request) {
	form, err := s.readMultipart(w, r, "image")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	url, err := s.tasks.RemoveObject(r.Context(), mustCaller(r), service.ObjectRemovalRequest{
		FileRequest: form.file(),
		Object:      form.fields["object"],
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSuccess(w, map[string]any{"content": url})
}

func (s *Server) handleResumeReview(w http.ResponseWriter, r *http.Request) {
	form, err := s.readMultipart(w, r, "resume")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	review, err := s.tasks.ReviewResume(r.Context(), mustCaller(r), form.file())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSuccess(w, map[string]any{"content": review.Content, "atsScore": review.ATSScore})
}

func (s *Server) handleJobDiscovery(w http.ResponseWriter, r *http.Request) {
	form, err := s.readMultipart(w, r, "resume")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	jobs, err := s.tasks.DiscoverJobs(r.Context(), mustCaller(r), form.file())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSuccess(w, map[string]any{"jobs": jobs})
}

func (s *Server) handleJobSearch(w http.ResponseWriter, r *http.Request) {
	var req jobSearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	search, err := s.tasks.SearchJobs(r.Context(), mustCaller(r), service.JobSearchRequest{JobTitle: req.JobTitle, Location: req.Location})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSuccess(w, map[string]any{"search": search})
}

func (s *Server) handleLearningResources(w http.ResponseWriter, r *http.Request) {
	var req learningRequest
	if !s.decode(w, r, &req) {
		return
	}
	resources, err := s.tasks.FindLearningResources(r.Context(), mustCaller(r), service.LearningRequest{Topic: req.Topic, Level: req.Level})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSuccess(w, map[string]any{"resources": resources})
}

func (s *Server) handleUserCreations(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	items, err := s.creations.ListForUser(r.Context(), mustCaller(r).UserID, limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSuccess(w, map[string]any{"creations": items})
}

func (s *Server) handlePublishedCreations(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	items, err := s.creations.ListPublished(r.Context(), strings.TrimSpace(r.URL.Query().Get("type")), limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSuccess(w, map[string]any{"creations": items})
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	var req toggleLikeRequest
	if !s.decode(w, r, &req) {
		return
	}
	liked, err := s.creations.ToggleLike(r.Context(), mustCaller(r).UserID, int64(req.ID))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	message := "Creation Unliked"
	if liked {
		message = "Creation Liked"
	}
	s.writeSuccess(w, map[string]any{"message": message, "liked": liked})
}

func (s *Server) handleDeleteCreation(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, apperr.Validation("Creation id is required"))
		return
	}
	if err := s.creations.Delete(r.Context(), mustCaller(r).UserID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeSuccess(w, map[string]any{"message": "Creation deleted"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.PingContext(r.Context()); err != nil {
			s.log.Error("health check failed", "err", err)
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, apperr.Validation("Invalid JSON body"))
		return false
	}
	return true
}

func (s *Server) writeSuccess(w http.ResponseWriter, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["success"] = true
	s.writeJSON(w, http.StatusOK, body)
}

// writeError maps err onto the taxonomy. Internal details only reach the log.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		s.log.Error("request failed", "err", err, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()))
	}
	s.writeJSON(w, apperr.HTTPStatus(kind), map[string]any{
		"success": false,
		"message": apperr.PublicMessage(err),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// mustCaller is only used behind auth.Require.
func mustCaller(r *http.Request) models.Caller {
	caller, _ := auth.CallerFromContext(r.Context())
	return caller
}

func parseID(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}

func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return limit, offset
}

// flexibleID accepts both 42 and "42".
type flexibleID int64

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("parse id: %w", err)
	}
	*f = flexibleID(n)
	return nil
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
