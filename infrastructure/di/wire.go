//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"nodes-backend/application/services"
	"nodes-backend/infrastructure/config"
	"nodes-backend/interfaces/http/rest/handlers"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideSQLiteDB,
	ProvideMetrics,
	ProvideTracer,
	ProvideEventPublisher,
	ProvideNodeCollection,
	services.NewNodesService,
	wire.Bind(new(handlers.NodeService), new(*services.NodesService)),
	ProvideErrorHandler,
	handlers.NewNodeHandler,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, func(), error) {
	wire.Build(SuperSet)
	return nil, nil, nil
}
