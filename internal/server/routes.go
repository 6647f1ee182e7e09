package server

import "github.com/go-chi/chi/v5"

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/session", func(r chi.Router) {
		r.Get("/", s.handleGetSession)
		r.Post("/start", s.handleStartConcept)
		r.Post("/next-module", s.handleNextModule)
		r.Get("/advice", s.handleGetAdvice)

		r.Route("/field/{fieldID}", func(r chi.Router) {
			r.Patch("/", s.handleUpdateField)
			r.Post("/submit", s.handleSubmitField)
		})

		r.Get("/code", s.handleExportCode)
		r.Post("/code", s.handleImportCode)

		r.Post("/checkpoint", s.handleCheckpoint)
		r.Post("/checkpoint/restore", s.handleRestoreCheckpoint)
	})
}
