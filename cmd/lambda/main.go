package main

import (
	"context"
	"log"
	"time"

	"nodes-backend/infrastructure/config"
	"nodes-backend/infrastructure/di"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"go.uber.org/zap"
)

var (
	chiLambda *chiadapter.ChiLambdaV2
	logger    *zap.Logger

	coldStart = true
)

// bootstrap wires the application once per execution environment
func bootstrap(ctx context.Context) error {
	started := time.Now()

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	cfg.IsLambda = true

	// The cleanup func is dropped: the execution environment owns the
	// process lifetime and SQLite is not used on Lambda.
	container, _, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		return err
	}

	chiLambda = chiadapter.NewV2(container.Router.Mux())
	logger = container.Logger

	logger.Info("Lambda cold start completed",
		zap.Duration("duration", time.Since(started)),
		zap.String("storage", cfg.StorageDriver),
	)
	return nil
}

// Handler is the Lambda function handler
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := chiLambda.ProxyWithContextV2(ctx, req)
	if err != nil {
		logger.Error("Lambda proxy failed",
			zap.Error(err),
			zap.String("path", req.RequestContext.HTTP.Path),
			zap.String("request_id", req.RequestContext.RequestID),
		)
		return resp, err
	}

	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	if coldStart {
		resp.Headers["X-Cold-Start"] = "true"
		coldStart = false
	} else {
		resp.Headers["X-Cold-Start"] = "false"
	}
	if req.RequestContext.RequestID != "" {
		resp.Headers["X-Lambda-Request-ID"] = req.RequestContext.RequestID
	}

	logger.Debug("Lambda response",
		zap.String("method", req.RequestContext.HTTP.Method),
		zap.String("path", req.RequestContext.HTTP.Path),
		zap.Int("status_code", resp.StatusCode),
	)
	return resp, nil
}

func main() {
	if err := bootstrap(context.Background()); err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	lambda.Start(Handler)
}
