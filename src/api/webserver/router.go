package webserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/openballot/election-api/src/api/config"
	"github.com/openballot/election-api/src/api/election"
)

func attachRoutes(r *gin.Engine, cfg config.Config, rdb *redis.Client, svc *election.Service, log *zap.Logger) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	limiter := NewRedisLimiter(rdb, cfg.RateLimitCount, time.Duration(cfg.RateLimitWindow)*time.Second)
	electionsH := NewElections(svc, log)

	v1 := r.Group("/v1")
	{
		secured := v1.Use(JWTMiddleware([]byte(cfg.JWTSecret)))
		secured.GET("/elections", electionsH.List)
		secured.GET("/elections/:id", electionsH.Get)
		secured.POST("/elections", RateLimitMiddleware(limiter), electionsH.Create)
		secured.PUT("/elections/:id", electionsH.Update)
		secured.DELETE("/elections/:id", electionsH.Delete)
	}
}
