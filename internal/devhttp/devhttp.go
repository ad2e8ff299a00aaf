// Package devhttp serves the Lambda handler over plain HTTP for local development.
//
// Each request is converted to an API Gateway proxy request. The caller identity that
// API Gateway IAM auth would resolve is taken from the X-Account-Id header.
package devhttp

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// HeaderAccountID carries the caller identity.
const HeaderAccountID = "X-Account-Id"

// Router dispatches proxy requests; *api.Handler implements it.
type Router interface {
	Route(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
}

// NewApp returns a fiber app forwarding every request to router. apiAccountID plays
// the role of the account owning the API.
func NewApp(router Router, apiAccountID string, logger *zap.Logger) *fiber.App {
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		AppName:               "ledger-devserver",
	})

	app.All("/*", func(c *fiber.Ctx) error {
		req := toProxyRequest(c, apiAccountID)

		resp, err := router.Route(c.UserContext(), req)
		if err != nil {
			logger.Error("handler failed", zap.String("path", req.Path), zap.Error(err))
			return fiber.NewError(fiber.StatusBadGateway, "handler failed")
		}

		logger.Debug("request served",
			zap.String("method", req.HTTPMethod),
			zap.String("path", req.Path),
			zap.Int("status", resp.StatusCode),
		)
		for k, v := range resp.Headers {
			c.Set(k, v)
		}
		return c.Status(resp.StatusCode).SendString(resp.Body)
	})

	return app
}

func toProxyRequest(c *fiber.Ctx, apiAccountID string) events.APIGatewayProxyRequest {
	headers := make(map[string]string)
	c.Request().Header.VisitAll(func(k, v []byte) {
		headers[string(k)] = string(v)
	})

	query := make(map[string]string)
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		query[string(k)] = string(v)
	})

	return events.APIGatewayProxyRequest{
		HTTPMethod:            c.Method(),
		Path:                  string(c.Request().URI().Path()),
		Headers:               headers,
		QueryStringParameters: query,
		Body:                  string(c.Body()),
		RequestContext: events.APIGatewayProxyRequestContext{
			AccountID: apiAccountID,
			Identity: events.APIGatewayRequestIdentity{
				AccountID: c.Get(HeaderAccountID),
			},
		},
	}
}
