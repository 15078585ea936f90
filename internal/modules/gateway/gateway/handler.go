package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the socket.io transport and the connection stats
// endpoint.
func RegisterRoutes(rg *gin.RouterGroup, hub *Hub) {
	sio := gin.WrapH(hub.Handler())
	rg.Any("/socket.io", sio)
	rg.Any("/socket.io/*any", sio)

	rg.GET("/gateway/stats", connectionStats(hub))
}

func connectionStats(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"public": hub.ClientCount(RoomPublic),
			"admin":  hub.ClientCount(RoomAdmin),
			"total":  hub.ClientCount(""),
		})
	}
}
