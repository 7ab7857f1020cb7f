package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/config"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/credential"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/dispatcher"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/domain"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/repository"
	"github.com/sysu-ecnc-dev/publication-portal/backend/internal/session"
)

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	verifier   *credential.Verifier
	sessions   *session.Store
	repository *repository.Repository
	dispatcher *dispatcher.Dispatcher
	translator ut.Translator

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, verifier *credential.Verifier, sessions *session.Store, repo *repository.Repository, disp *dispatcher.Dispatcher) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		verifier:   verifier,
		sessions:   sessions,
		repository: repo,
		dispatcher: disp,
		translator: trans,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.With(h.auth).Get("/session", h.GetSession)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.GetMyNotifications)
			r.Patch("/{id}/read", h.MarkNotificationRead)
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/dispatch", h.DispatchSystemNotification)
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Get("/failures", h.GetFailedNotifications)
		})

		r.Route("/submissions", func(r chi.Router) {
			r.Post("/", h.CreateSubmission)
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Get("/review-queue", h.GetReviewQueue)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.submissionInfo)
				r.Get("/", h.GetSubmission)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/transition", h.TransitionSubmission)
			})
		})

		r.Get("/authors/{id}/submissions/pending", h.GetAuthorPendingSubmissions)

		// 收入汇总只读
		r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Get("/admin/revenue", h.GetRevenue)
	})
}
