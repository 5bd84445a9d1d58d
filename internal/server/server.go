package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/greyfiles/loyalty/internal/handler"
	"github.com/greyfiles/loyalty/internal/middleware"
	"github.com/greyfiles/loyalty/internal/store"
	ws "github.com/greyfiles/loyalty/internal/websocket"
)

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	authH        *handler.AuthHandler
	programH     *handler.ProgramHandler
	ledgerH      *handler.LedgerHandler
	reportH      *handler.ReportHandler
	sessionStore *store.SessionStore
	storeTimeout time.Duration
	logger       *slog.Logger
}

func New(db *sql.DB, storeTimeout time.Duration, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	brandStore := store.NewBrandStore(db)
	customerStore := store.NewCustomerStore(db)
	programStore := store.NewProgramStore(db)
	ledgerStore := store.NewLedgerStore(db)
	reportStore := store.NewReportStore(db)
	sessionStore := store.NewSessionStore(db)

	return &Server{
		db:           db,
		hub:          hub,
		authH:        handler.NewAuthHandler(brandStore, customerStore, sessionStore, logger.With("component", "auth")),
		programH:     handler.NewProgramHandler(programStore, logger.With("component", "program")),
		ledgerH:      handler.NewLedgerHandler(ledgerStore, hub, logger.With("component", "ledger")),
		reportH:      handler.NewReportHandler(reportStore, logger.With("component", "report")),
		sessionStore: sessionStore,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

// withTimeout bounds every store interaction on the request with the
// configured deadline.
func (s *Server) withTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.storeTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	outerMux.HandleFunc("POST /signup/brand", s.authH.SignupBrand)
	outerMux.HandleFunc("POST /signup/customer", s.authH.SignupCustomer)
	outerMux.HandleFunc("POST /login", s.authH.Login)
	outerMux.HandleFunc("POST /logout", s.authH.Logout)

	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.HandleFunc("GET /ws", ws.Handler(s.hub, s.logger.With("component", "websocket")))

	mux := http.NewServeMux()

	// Program management (brand sessions only)
	brandOnly := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireBrand(h)
	}
	mux.Handle("POST /api/program", brandOnly(s.programH.Create))
	mux.Handle("GET /api/program", brandOnly(s.programH.Get))
	mux.Handle("POST /api/program/rewards", brandOnly(s.programH.CreateReward))
	mux.Handle("GET /api/program/rewards", brandOnly(s.programH.ListRewards))
	mux.Handle("POST /api/program/earning-rules", brandOnly(s.programH.CreateEarningRule))
	mux.Handle("POST /api/program/redeeming-rules", brandOnly(s.programH.CreateRedeemingRule))
	mux.Handle("POST /api/categories", brandOnly(s.programH.CreateCategory))
	mux.HandleFunc("GET /api/categories", s.programH.ListCategories)

	// Ledger
	mux.HandleFunc("POST /api/wallets", s.ledgerH.Enroll)
	mux.HandleFunc("POST /api/activities", s.ledgerH.RecordActivity)
	mux.HandleFunc("POST /api/redemptions", s.ledgerH.RecordRedemption)
	mux.HandleFunc("GET /api/wallets/{wallet}/programs/{program}", s.ledgerH.GetParticipation)

	// Reports
	mux.HandleFunc("GET /api/reports/customers-not-in-program", s.reportH.CustomersNotInProgram)
	mux.HandleFunc("GET /api/reports/enrolled-inactive", s.reportH.EnrolledInactiveCustomers)
	mux.HandleFunc("GET /api/reports/brand-rewards", s.reportH.RewardsOfBrandProgram)
	mux.HandleFunc("GET /api/reports/programs-with-activity", s.reportH.ProgramsWithActivity)
	mux.HandleFunc("GET /api/reports/activity-counts", s.reportH.ActivityCountsByCategory)
	mux.HandleFunc("GET /api/reports/repeat-redeemers", s.reportH.RepeatRedeemers)
	mux.HandleFunc("GET /api/reports/low-redemption-brands", s.reportH.LowRedemptionBrands)
	mux.HandleFunc("GET /api/reports/activity-count-in-window", s.reportH.ActivityCountInWindow)

	requireAuth := middleware.RequireAuth(s.sessionStore)
	outerMux.Handle("/api/", requireAuth(mux))

	logged := middleware.RequestLogger(s.logger.With("component", "http"))
	return logged(s.withTimeout(outerMux))
}
