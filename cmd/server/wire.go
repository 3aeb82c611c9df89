// File: cmd/server/wire.go
//go:build wireinject
// +build wireinject

package main

import (
	"taipei_market_backend/internal/app"
	"taipei_market_backend/internal/auth"
	"taipei_market_backend/internal/config"
	"taipei_market_backend/internal/jobs"
	"taipei_market_backend/internal/platform/database"
	"taipei_market_backend/internal/platform/elasticsearch"
	"taipei_market_backend/internal/platform/logger"
	"taipei_market_backend/internal/product"
	"taipei_market_backend/internal/shared"
	"taipei_market_backend/internal/user"

	"github.com/google/wire"
)

// initializeServer is the main Wire injector.
func initializeServer(cfg *config.Config) (*app.Server, func(), error) {
	wire.Build(
		// Platform Layer
		logger.New,
		database.NewGORM,
		elasticsearch.NewClient,
		provideCleanup,

		// Tokens and OAuth
		auth.NewJWTService,
		wire.Bind(new(shared.TokenService), new(*auth.JWTService)),
		provideStateGuard,
		auth.NewRegistry,
		auth.NewOAuthService,
		auth.NewHandler,

		// Core User Services
		user.NewGORMRepository,
		user.NewService,
		wire.Bind(new(shared.Service), new(*user.ServiceImplementation)),
		wire.Bind(new(shared.OAuthUserProvider), new(*user.ServiceImplementation)),
		user.NewHandler,

		// Products
		product.NewGORMRepository,
		product.NewService,
		wire.Bind(new(product.Service), new(*product.ServiceImplementation)),
		product.NewHandler,

		// Jobs
		jobs.NewAccountPurgeJob,

		// Application Layer
		app.NewServer,
	)
	return nil, nil, nil
}
