package webserver

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/openballot/election-api/src/api/config"
	"github.com/openballot/election-api/src/api/election"
)

func New(cfg config.Config, rdb *redis.Client, svc *election.Service, log *zap.Logger) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, cfg, rdb, svc, log)
	return g
}
