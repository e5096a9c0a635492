package di

import (
	"nodes-backend/application/services"
	"nodes-backend/domain/core/entities"
	"nodes-backend/infrastructure/config"
	"nodes-backend/infrastructure/persistence/abstractions"
	"nodes-backend/interfaces/http/rest"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Nodes   abstractions.Collection[*entities.Node]
	Service *services.NodesService
	Router  *rest.Router
}
