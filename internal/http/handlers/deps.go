package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"wastenot/internal/config"
	"wastenot/internal/events"
	"wastenot/internal/repos"
	"wastenot/internal/services"
)

type Deps struct {
	ProductHandler   *ProductHandler
	InventoryHandler *InventoryHandler
	CrateHandler     *CrateHandler
	OfferHandler     *OfferHandler
	BusinessHandler  *BusinessHandler
	HealthHandler    *HealthHandler
}

func NewDeps(db *sqlx.DB, cfg config.Config, catalog services.Catalog, sink events.Sink) *Deps {
	invRepo := repos.NewInventoryRepo(db)
	crateRepo := repos.NewCrateRepo(db)
	offerRepo := repos.NewOfferRepo(db)
	bizRepo := repos.NewBusinessRepo(db)

	ledger := services.NewInventoryService(db, invRepo, catalog, sink)
	if cfg.DepleteMaxRetries > 0 {
		ledger.MaxRetries = cfg.DepleteMaxRetries
	}
	crateSvc := services.NewCrateService(db, crateRepo, sink)
	settlement := services.NewSettlement(db, crateRepo, offerRepo, ledger, sink)
	offerSvc := services.NewOfferService(db, crateRepo, offerRepo, settlement, sink)
	bizSvc := services.NewBusinessService(db, bizRepo)

	return &Deps{
		ProductHandler:   &ProductHandler{Catalog: catalog},
		InventoryHandler: &InventoryHandler{Inv: ledger, DefaultStoreID: cfg.DefaultStoreID},
		CrateHandler:     &CrateHandler{Crates: crateSvc, DefaultStoreID: cfg.DefaultStoreID},
		OfferHandler:     &OfferHandler{Offers: offerSvc},
		BusinessHandler:  &BusinessHandler{Businesses: bizSvc},
		HealthHandler:    &HealthHandler{DB: db},
	}
}

// Routes mounts the JSON API.
func Routes(app fiber.Router, d *Deps) {
	app.Get("/", d.HealthHandler.Root)
	app.Get("/healthz", d.HealthHandler.Healthz)

	api := app.Group("/api")
	api.Get("/products", d.ProductHandler.List)

	api.Post("/inventory_items", d.InventoryHandler.Create)
	api.Get("/inventory_items/store/:storeId/at-risk", d.InventoryHandler.AtRisk)

	api.Post("/surplus_crates", d.CrateHandler.Create)
	// static segment must be registered before :crateId routes
	api.Get("/surplus_crates/available", d.CrateHandler.Available)
	api.Get("/surplus_crates/store/:storeId", d.CrateHandler.ByStore)

	api.Post("/surplus_crates/:crateId/offers", d.OfferHandler.Submit)
	api.Get("/surplus_crates/:crateId/offers", d.OfferHandler.List)
	api.Put("/surplus_crates/:crateId/offers/:offerId/respond", d.OfferHandler.Respond)

	api.Post("/local_businesses", d.BusinessHandler.Create)
	api.Get("/local_businesses", d.BusinessHandler.List)
}
