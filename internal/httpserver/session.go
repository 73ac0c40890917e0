package httpserver

import (
	"context"
	"net/http"

	"bmiadvisor/internal/middleware"
	"bmiadvisor/internal/session"
)

type sessionKey struct{}

// withSession находит сессию по cookie или заводит новую и выставляет cookie.
func withSession(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(middleware.SessionCookie); err == nil {
				id = c.Value
			}

			sess, created := store.GetOrCreate(id)
			if created {
				http.SetCookie(w, &http.Cookie{
					Name:     middleware.SessionCookie,
					Value:    sess.Snapshot().ID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
		})
	}
}

func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey{}).(*session.Session)
	return sess
}
