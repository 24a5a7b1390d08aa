package app

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orcaust/orcaust/internal/config"
	"github.com/orcaust/orcaust/internal/database"
	"github.com/orcaust/orcaust/internal/event_bus"
	"github.com/orcaust/orcaust/internal/metrics"
	"github.com/orcaust/orcaust/internal/utils"
	"github.com/orcaust/orcaust/pkg/audit"
	"github.com/orcaust/orcaust/pkg/budget"
	"github.com/orcaust/orcaust/pkg/catalog"
	"github.com/orcaust/orcaust/pkg/contract"
	"github.com/orcaust/orcaust/pkg/project"
	"github.com/orcaust/orcaust/pkg/user"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	TokenValidator *user.TokenValidator
	UserRepo       user.Repo

	Transactor database.Transactor
	EventBus   *event_bus.EventBus
	Metrics    *metrics.Metrics
	Clock      utils.Clock

	CatalogService catalog.Service
	CatalogHandler *catalog.Handler

	ContractRepo contract.Repository
	ProjectRepo  project.Repository

	AuditService audit.Service
	AuditHandler *audit.Handler

	BudgetService *budget.ServiceImpl
	BudgetHandler *budget.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.TokenValidator = user.NewTokenValidator(cfg.Auth.JwtSecret)
	deps.UserRepo = user.NewUserRepo(db)

	deps.Transactor = database.NewTransactor(db)
	deps.EventBus = event_bus.NewEventBus()
	deps.Metrics = metrics.New()
	deps.Metrics.Subscribe(deps.EventBus)
	deps.Clock = utils.SystemClock{}

	catalogRepo := catalog.NewRepository(db)
	deps.CatalogService = catalog.NewService(catalogRepo, deps.Transactor)
	deps.CatalogHandler = catalog.NewHandler(deps.CatalogService)

	deps.ContractRepo = contract.NewRepository(db)
	deps.ProjectRepo = project.NewRepository(db)

	deps.AuditService = audit.NewService(audit.NewRepository(db), deps.Clock)
	deps.AuditHandler = audit.NewHandler(deps.AuditService)

	deps.BudgetService = budget.NewService(
		budget.NewRepository(db),
		deps.ContractRepo,
		deps.ProjectRepo,
		catalogRepo,
		deps.AuditService,
		deps.Transactor,
		deps.EventBus,
		deps.Clock,
		cfg.Budget.RefreshOnRead,
	)
	deps.BudgetHandler = budget.NewHandler(deps.BudgetService, budget.NewCsvRenderer())

	return deps
}
