package routers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/inviterd-io/inviterd/internal/handlers"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const name = "github.com/inviterd-io/inviterd/internal/routers"

type APIRouterOptions struct {
	Logger *zap.SugaredLogger
	Api    *handlers.API
}

func NewAPIRouter(ctx context.Context, o APIRouterOptions) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	loggerMiddleware := ginzap.GinzapWithConfig(o.Logger.Desugar(), &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		Context: func(c *gin.Context) []zapcore.Field {
			return []zapcore.Field{
				zap.String("traceID", trace.SpanFromContext(c.Request.Context()).SpanContext().TraceID().String()),
			}
		},
	})

	r.Use(otelgin.Middleware(name, otelgin.WithPropagators(
		propagation.TraceContext{},
	)))
	r.Use(ginzap.RecoveryWithZap(o.Logger.Desugar(), true))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	r.Use(cors.New(corsConfig))

	newPrometheus().Use(r)

	api := r.Group("/api", loggerMiddleware)
	{
		// Feature Flags
		api.GET("/fflags", o.Api.ListFeatureFlags)
		api.GET("/fflags/:name", o.Api.GetFeatureFlag)

		// Invitations
		api.POST("/invitations", o.Api.CreateInvitation)
		api.GET("/invitations/:code", o.Api.GetInvitation)
		api.POST("/invitations/:code/redeem", o.Api.RedeemInvitation)

		// Accounts
		api.GET("/users/:id/invitation-stats", o.Api.GetInviterStats)
		api.GET("/users/:id/balance", o.Api.GetAccountBalance)
	}

	// Don't log the health/readiness checks.
	r.GET("/ready", o.Api.Ready)
	r.GET("/live", o.Api.Live)

	return r, nil
}

func newPrometheus() *ginprometheus.Prometheus {
	p := ginprometheus.NewPrometheus("apiserver")
	p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		url := c.Request.URL.Path
		for _, p := range c.Params {
			if p.Key == "id" {
				url = strings.Replace(url, p.Value, ":id", 1)
				break
			}
			// Codes are single use, the label cardinality would explode.
			if p.Key == "code" {
				url = strings.Replace(url, p.Value, ":code", 1)
				break
			}
		}
		return url
	}
	return p
}
