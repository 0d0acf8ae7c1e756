package http

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
	"github.com/shiftline/timeclock-backend-go/internal/handler/http/middleware"
	"github.com/shiftline/timeclock-backend-go/internal/pkg/jwt"
)

func NewRouter(
	jwtService jwt.Service,
	sessionHandler SessionHandler,
	amendmentHandler AmendmentHandler,
	payrollHandler PayrollHandler,
	auditHandler AuditHandler,
) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "timeclock-backend"),
		slog.String("version", "v1.0.0"),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000"},
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(jwtService.JWTAuth()))
			r.Use(middleware.AuthRequired(jwtService.JWTAuth()))

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/clock-in", sessionHandler.ClockIn)
				r.Post("/{sessionID}/clock-out", sessionHandler.ClockOut)
				r.Get("/my", sessionHandler.GetMySessions)
				r.Get("/{sessionID}/history", amendmentHandler.GetSessionHistory)

				// Manager only
				r.Group(func(r chi.Router) {
					r.Use(middleware.ManagerOnly)
					r.Get("/", sessionHandler.ListSessions)
				})
			})

			r.Route("/amendments", func(r chi.Router) {
				r.Post("/", amendmentHandler.RequestAmendment)
				r.Get("/my", amendmentHandler.GetMyAmendments)

				// Manager only
				r.Group(func(r chi.Router) {
					r.Use(middleware.ManagerOnly)
					r.Get("/pending", amendmentHandler.ListPendingAmendments)
					r.Post("/{amendmentID}/approve", amendmentHandler.ApproveAmendment)
					r.Post("/{amendmentID}/reject", amendmentHandler.RejectAmendment)
				})
			})

			// Manager only
			r.Group(func(r chi.Router) {
				r.Use(middleware.ManagerOnly)

				r.Route("/payroll", func(r chi.Router) {
					r.Route("/line-items", func(r chi.Router) {
						r.Post("/generate", payrollHandler.GenerateLineItems)
						r.Get("/", payrollHandler.ListLineItems)
						r.Put("/{lineItemID}", payrollHandler.UpdateLineItem)
						r.Delete("/{lineItemID}", payrollHandler.DeleteLineItem)
					})
					r.Post("/export", payrollHandler.Export)

					r.Route("/expense-types", func(r chi.Router) {
						r.Post("/", payrollHandler.CreateExpenseType)
						r.Get("/", payrollHandler.ListExpenseTypes)
					})
					r.Route("/expenses", func(r chi.Router) {
						r.Post("/", payrollHandler.CreateExpenseRecord)
						r.Get("/", payrollHandler.ListExpenseRecords)
					})
				})

				r.Route("/autoclose", func(r chi.Router) {
					r.Get("/audits", auditHandler.ListAuditRecords)
				})
			})
		})
	})
	return r
}
