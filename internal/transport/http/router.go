package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coldsats/lnwallet/internal/config"
	"github.com/coldsats/lnwallet/internal/ratelimit"
	"github.com/coldsats/lnwallet/internal/service"
)

func NewRouter(svc *service.WalletService, limiter *ratelimit.Limiter, rl config.RateLimitConfig, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(LoggingMiddleware(log))
	r.Use(IPRateLimitMiddleware(rl.RPS, rl.Burst))
	RegisterHandlers(r, svc, limiter, log)
	return r
}
