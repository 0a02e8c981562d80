package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"uc_coin/internal/mission"
	"uc_coin/internal/monitoring"
	"uc_coin/internal/numfmt"
	"uc_coin/internal/session"
	"uc_coin/internal/types"
)

const maxLeaderboardLimit = 500

type Options struct {
	CORSOrigins    []string
	HTTPRatePerMin int
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy bool
}

// Server exposes the game engine over JSON HTTP
type Server struct {
	engine  *session.Engine
	metrics *monitoring.Metrics
	errors  *ErrorHandler
	opts    Options
	now     func() time.Time
}

func NewServer(engine *session.Engine, metrics *monitoring.Metrics, opts Options) *Server {
	return &Server{
		engine:  engine,
		metrics: metrics,
		errors:  NewErrorHandler(log.Default()),
		opts:    opts,
		now:     time.Now,
	}
}

// SetupRoutes builds the router with all middleware attached
func (s *Server) SetupRoutes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if s.opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.errors.RecoveryMiddleware)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.Health)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.errors.RateLimitMiddleware(s.opts.HTTPRatePerMin))

		r.Get("/leaderboard", s.GetLeaderboard)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/", s.GetUser)
			r.Post("/tap", s.Tap)
			r.Post("/welcome", s.ClaimWelcome)
			r.Patch("/settings", s.UpdateSettings)
			r.Put("/profile", s.UpdateProfile)
			r.Get("/ledger", s.GetLedger)
			r.Get("/missions", s.GetMissions)

			r.Route("/missions/{missionID}", func(r chi.Router) {
				r.Post("/start", s.StartMission)
				r.Post("/verify", s.VerifyMission)
				r.Post("/promo", s.SubmitPromo)
				r.Post("/claim", s.ClaimMission)
			})
		})
	})

	return r
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": s.now().UTC(),
		"engine":    s.engine.Stats(),
	})
}

// GetUser returns the user profile with level, rank and energy
func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	view, err := s.engine.Snapshot(userID, s.now())
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"profile": view,
	})
}

func (s *Server) Tap(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	res, err := s.engine.Tap(r.Context(), userID, s.now())
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":           true,
		"earned":            res.Earned,
		"type":              res.Type,
		"xp":                res.XP,
		"level":             res.Level,
		"rank":              res.Rank,
		"user":              res.User,
		"balance_formatted": numfmt.Format(res.User.Balance),
		"energy_percent":    res.User.EnergyPercent(),
	})
}

func (s *Server) ClaimWelcome(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	u, err := s.engine.ClaimWelcomeBonus(r.Context(), userID, s.now())
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    u,
	})
}

func (s *Server) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var patch session.SettingsPatch
	if !s.decode(w, r, &patch) {
		return
	}
	settings, err := s.engine.UpdateSettings(r.Context(), userID, patch, s.now())
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"settings": settings,
	})
}

func (s *Server) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var request struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if !s.decode(w, r, &request) {
		return
	}
	u, err := s.engine.UpdateProfile(r.Context(), userID, request.FirstName, request.LastName, s.now())
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    u,
	})
}

func (s *Server) GetLedger(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	entries, err := s.engine.Ledger(userID)
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"ledger":  entries,
	})
}

// GetMissions lists missions, optionally filtered by ?type=
func (s *Server) GetMissions(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	// types are open-ended; an unknown type yields an empty list
	filter := mission.Filter{Type: types.MissionType(strings.TrimSpace(r.URL.Query().Get("type")))}

	list, active, err := s.engine.Missions(userID, filter)
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"missions": list,
		"active":   active,
	})
}

func (s *Server) StartMission(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	view, err := s.engine.StartMission(r.Context(), userID, chi.URLParam(r, "missionID"), s.now())
	s.writeMission(w, r, view, err)
}

func (s *Server) VerifyMission(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	view, err := s.engine.VerifyMission(r.Context(), userID, chi.URLParam(r, "missionID"), s.now())
	s.writeMission(w, r, view, err)
}

func (s *Server) SubmitPromo(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	var request struct {
		Code string `json:"code"`
	}
	if !s.decode(w, r, &request) {
		return
	}
	if strings.TrimSpace(request.Code) == "" {
		s.errors.HandleError(w, r, NewInvalidRequestError("code is required"))
		return
	}
	view, err := s.engine.SubmitPromoCode(r.Context(), userID, chi.URLParam(r, "missionID"), request.Code, s.now())
	s.writeMission(w, r, view, err)
}

func (s *Server) ClaimMission(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	res, err := s.engine.ClaimMission(r.Context(), userID, chi.URLParam(r, "missionID"), s.now())
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":           true,
		"mission":           res.Mission,
		"reward":            res.Reward,
		"user":              res.User,
		"balance_formatted": numfmt.Format(res.User.Balance),
	})
}

func (s *Server) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.errors.HandleError(w, r, NewInvalidRequestError("limit must be a positive integer"))
			return
		}
		limit = n
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"leaderboard": s.engine.Leaderboard(limit),
	})
}

func (s *Server) writeMission(w http.ResponseWriter, r *http.Request, view session.MissionView, err error) {
	if errors.Is(err, mission.ErrNotYetEligible) {
		s.errors.HandleErrorWithDetails(w, r, err, map[string]interface{}{
			"current_count":  view.Progress.CurrentCount,
			"required_count": view.Mission.RequiredCount,
		})
		return
	}
	if err != nil {
		s.errors.HandleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"mission": view,
	})
}

func (s *Server) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		s.errors.HandleError(w, r, NewInvalidRequestError("bad user_id"))
		return 0, false
	}
	return id, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		s.errors.HandleError(w, r, NewInvalidRequestError("Invalid JSON"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
