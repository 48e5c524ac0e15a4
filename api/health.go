package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"service": "landing-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
