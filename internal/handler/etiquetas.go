package handler

import (
	"net/http"

	"github.com/garcia-cyber/popcornRDC/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// EtiquetasFallidas lists the label e-mails that ended in the dead letter queue.
func EtiquetasFallidas(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil {
			c.JSON(http.StatusOK, gin.H{"total": 0, "data": []worker.DLQEntry{}})
			return
		}
		total, err := worker.DLQLength(c.Request.Context(), rdb, worker.QueueEtiquetas)
		if err != nil {
			_ = c.Error(err)
			return
		}
		entries, err := worker.DLQEntries(c.Request.Context(), rdb, worker.QueueEtiquetas, 50)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"total": total, "data": entries})
	}
}
