package httpserver

import (
	"log/slog"
	"net/http"

	"bmiadvisor/internal/imageload"
	"bmiadvisor/internal/middleware"
	"bmiadvisor/internal/session"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	Logger  *slog.Logger
	Store   *session.Store
	Advisor session.Advisor
	Loader  session.ImageLoader
	// MaxImageBytes лимит файла; тело multipart-запроса ограничивается с запасом на заголовки.
	MaxImageBytes int64
	// ModelName показывается на кнопках страницы.
	ModelName string
}

// NewRouter собирает chi-роутер с общими middleware.
func NewRouter(deps RouterDeps) http.Handler {
	if deps.MaxImageBytes <= 0 {
		deps.MaxImageBytes = imageload.DefaultMaxBytes
	}
	h := &handler{
		logger:        deps.Logger,
		advisor:       deps.Advisor,
		loader:        deps.Loader,
		maxImageBytes: deps.MaxImageBytes,
		modelName:     deps.ModelName,
		page:          pageTemplate,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recover(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Group(func(r chi.Router) {
		r.Use(withSession(deps.Store))

		r.Get("/", h.index)
		r.Route("/api", func(r chi.Router) {
			r.Get("/state", h.state)
			r.Post("/measurement", h.measurement)
			r.Post("/bmi", h.calculate)
			r.Post("/image", h.image)
			r.Post("/advice/health", h.healthAdvice)
			r.Post("/advice/food", h.foodAdvice)
		})
	})

	return r
}
