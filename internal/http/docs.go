package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// mountDocs serves a short human-readable description of the SMS
// command surface for people poking at the service.
func (s *Server) mountDocs(r chi.Router) {
	r.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(`SabbathText SMS commands

  Hello              greeting
  Help               list of commands
  Subscribe          sign up for the weekly Sabbath reminder
  Unsubscribe        stop receiving reminders
  Zip <5-digit>      set your location (e.g. "Zip 98052")

Reminders arrive shortly before your local Friday sunset.
`))
	})
}
