package api

import (
	"net/http"

	"stefwrites/landing-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WaitlistExport dumps submissions as a CSV attachment for the admin
// screen.
func (a *API) WaitlistExport(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	rows, err := a.Store.Export(c.Request.Context(), service.ExportLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to export submissions", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.Header("Content-Disposition", "attachment; filename=waitlist.csv")
	c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(service.BuildCSV(rows)))
}
