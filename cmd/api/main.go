package main

import (
	"fmt"
	"net/http"

	"github.com/shiftline/timeclock-backend-go/internal/config"
	appHTTP "github.com/shiftline/timeclock-backend-go/internal/handler/http"
	"github.com/shiftline/timeclock-backend-go/internal/pkg/cron"
	"github.com/shiftline/timeclock-backend-go/internal/pkg/database"
	"github.com/shiftline/timeclock-backend-go/internal/pkg/jwt"
	"github.com/shiftline/timeclock-backend-go/internal/repository/postgresql"
	amendmentService "github.com/shiftline/timeclock-backend-go/internal/service/amendment"
	autocloseService "github.com/shiftline/timeclock-backend-go/internal/service/autoclose"
	notificationService "github.com/shiftline/timeclock-backend-go/internal/service/notification"
	payrollService "github.com/shiftline/timeclock-backend-go/internal/service/payroll"
	sessionService "github.com/shiftline/timeclock-backend-go/internal/service/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	dsn := cfg.DatabaseURL()
	db, err := database.NewPostgreSQLDB(dsn)
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}

	sessionRepo := postgresql.NewSessionRepository(db)
	workerRepo := postgresql.NewWorkerRepository(db)
	counterRepo := postgresql.NewCounterRepository(db)
	auditRepo := postgresql.NewAuditRepository(db)
	amendmentRepo := postgresql.NewAmendmentRepository(db)
	historyRepo := postgresql.NewHistoryRepository(db)
	payrollRepo := postgresql.NewPayrollRepository(db)
	shiftRepo := postgresql.NewShiftRepository(db)
	notificationRepo := postgresql.NewNotificationRepository(db)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	notifier := notificationService.NewNotificationService(notificationRepo, notificationService.Config{})
	defer notifier.Stop()

	sessionSvc := sessionService.NewSessionService(db, sessionRepo, workerRepo)
	amendmentSvc := amendmentService.NewAmendmentService(db, amendmentRepo, historyRepo, sessionRepo, notifier, cfg.Amendment)
	payrollSvc := payrollService.NewPayrollService(db, payrollRepo, notifier, cfg.Payroll)
	engine := autocloseService.NewEngine(db, sessionRepo, counterRepo, auditRepo, shiftRepo, notifier, cfg.AutoClose)

	scheduler := cron.NewScheduler()
	scheduler.AddJob("auto-clock-out-sweep", cfg.AutoClose.SweepInterval, engine.Sweep)
	scheduler.Start()
	defer scheduler.Stop()

	sessionHandler := appHTTP.NewSessionHandler(sessionSvc)
	amendmentHandler := appHTTP.NewAmendmentHandler(amendmentSvc)
	payrollHandler := appHTTP.NewPayrollHandler(payrollSvc)
	auditHandler := appHTTP.NewAuditHandler(engine)

	router := appHTTP.NewRouter(
		JWTService,
		sessionHandler,
		amendmentHandler,
		payrollHandler,
		auditHandler,
	)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	fmt.Printf("Server running at http://localhost%s\n", port)
	if err := http.ListenAndServe(port, router); err != nil {
		fmt.Println("Server error:", err)
	}
}
