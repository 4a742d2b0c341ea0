package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health pings Postgres and Redis. Redis only backs the price cache and the
// label queue, so a Redis outage reports "degraded" with 200; a database
// outage is 503.
func Health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
			}
		}

		status, estado := http.StatusOK, "ok"
		switch {
		case dbStatus != "connected":
			status, estado = http.StatusServiceUnavailable, "error"
		case redisStatus == "error":
			estado = "degraded"
		}

		c.JSON(status, gin.H{
			"status": estado,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	}
}
