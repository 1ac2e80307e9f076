package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"foodyar/backend/internal/advisor"
	"foodyar/backend/internal/analytics"
	"foodyar/backend/internal/cache"
	"foodyar/backend/internal/costing"
	"foodyar/backend/internal/domain"
	"foodyar/backend/internal/realtime"
	"foodyar/backend/internal/store"
	"foodyar/backend/internal/xid"
)

var ErrForbidden = errors.New("role not permitted")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Options carries the collaborators of a Service. Nil fields fall back to
// no-op implementations.
type Options struct {
	Oracle         advisor.Oracle
	Cache          cache.Store
	Events         realtime.Publisher
	TaxRatePercent float64
	Currency       string
	AdviceTTL      time.Duration
}

type Service struct {
	repo      store.Repository
	analytics *analytics.Engine
	oracle    advisor.Oracle
	cache     cache.Store
	events    realtime.Publisher
	taxRate   float64
	currency  string
	adviceTTL time.Duration
	now       func() time.Time
}

func New(repo store.Repository, engine *analytics.Engine, opts Options) *Service {
	if engine == nil {
		engine = analytics.NewEngine(opts.Cache, 0)
	}
	if opts.Oracle == nil {
		opts.Oracle = advisor.Unavailable{}
	}
	if opts.Cache == nil {
		opts.Cache = cache.Noop{}
	}
	if opts.Events == nil {
		opts.Events = realtime.Noop{}
	}
	if opts.TaxRatePercent <= 0 {
		opts.TaxRatePercent = costing.DefaultTaxRatePercent
	}
	if opts.Currency == "" {
		opts.Currency = "toman"
	}
	if opts.AdviceTTL <= 0 {
		opts.AdviceTTL = 10 * time.Minute
	}

	return &Service{
		repo:      repo,
		analytics: engine,
		oracle:    opts.Oracle,
		cache:     opts.Cache,
		events:    opts.Events,
		taxRate:   opts.TaxRatePercent,
		currency:  opts.Currency,
		adviceTTL: opts.AdviceTTL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func requireRole(ctx context.Context, roles ...string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ErrForbidden
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	return ErrForbidden
}

// catalog snapshots everything a recipe line can point at.
func (s *Service) catalog(ctx context.Context) (costing.Catalog, []domain.Ingredient, []domain.PrepTask, error) {
	ingredients, err := s.repo.ListIngredients(ctx)
	if err != nil {
		return costing.Catalog{}, nil, nil, err
	}
	prepTasks, err := s.repo.ListPrepTasks(ctx)
	if err != nil {
		return costing.Catalog{}, nil, nil, err
	}
	return costing.NewCatalog(ingredients, prepTasks), ingredients, prepTasks, nil
}

func (s *Service) publish(eventType realtime.EventType, payload any) {
	s.events.Publish(realtime.Event{Type: eventType, At: s.now(), Payload: payload})
}

// announceLowStock publishes a stock.low event for every touched ingredient
// that is now at or under its threshold.
func (s *Service) announceLowStock(ctx context.Context, touched map[string]float64) {
	if len(touched) == 0 {
		return
	}
	ingredients, err := s.repo.ListIngredients(ctx)
	if err != nil {
		log.Printf("[service] WARN: low stock check failed: %v", err)
		return
	}
	var low []domain.Ingredient
	for _, ing := range ingredients {
		if _, ok := touched[ing.ID]; ok && ing.LowStock() {
			low = append(low, ing)
		}
	}
	if len(low) > 0 {
		s.publish(realtime.EventStockLow, map[string]any{"ingredients": low})
	}
}

func (s *Service) logAudit(ctx context.Context, action domain.AuditAction, entity domain.AuditEntity, entityID string, details string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:        xid.New("audit"),
		Timestamp: s.now(),
		Username:  actor.Username,
		Role:      actor.Role,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entity, entityID, err)
	}
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if err := requireRole(ctx, domain.RoleManager); err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func validateRecipe(lines []domain.RecipeIngredient, allowPrep bool) error {
	for i, line := range lines {
		if line.IngredientID == "" {
			return invalidf("recipe line %d has no ingredient", i)
		}
		if line.Amount <= 0 {
			return invalidf("recipe line %d amount must be positive", i)
		}
		if !costing.IsKnownUnit(line.Unit) {
			return invalidf("recipe line %d has unknown unit %q", i, line.Unit)
		}
		switch line.Source {
		case "", domain.SourceInventory:
		case domain.SourcePrep:
			if !allowPrep {
				return invalidf("recipe line %d cannot use a prep item", i)
			}
		default:
			return invalidf("recipe line %d has unknown source %q", i, line.Source)
		}
	}
	return nil
}

func normalizeRecipe(lines []domain.RecipeIngredient) []domain.RecipeIngredient {
	out := make([]domain.RecipeIngredient, len(lines))
	for i, line := range lines {
		if line.Source == "" {
			line.Source = domain.SourceInventory
		}
		out[i] = line
	}
	return out
}
