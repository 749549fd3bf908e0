package api

import (
	"net/http"

	"github.com/JaimeStill/taxon/internal/config"
	"github.com/JaimeStill/taxon/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	archive := newStorageHandler(
		runtime.Storage,
		runtime.Logger,
		cfg.Storage.MaxListSize,
	)

	routes.Register(
		mux,
		domain.Catalog.Handler().Routes(),
		domain.Decisions.Handler().Routes(),
		archive.routes(),
	)
}
