package api

import (
	"net/http"
	"strconv"

	"stefwrites/landing-api/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (a *API) WaitlistList(c *gin.Context) {
	requestID := c.MustGet("requestID").(string)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "50"))

	opts := store.ListOptions{
		Status:   c.Query("status"),
		Page:     page,
		PageSize: pageSize,
		OrderKey: c.DefaultQuery("orderKey", "created_at"),
		OrderDir: c.DefaultQuery("orderDir", "desc"),
	}
	opts.Normalize()

	rows, total, err := a.Store.List(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to list submissions", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	items := make([]map[string]any, 0, len(rows))
	for i := range rows {
		item := rows[i].Public()
		item["source"] = rows[i].Source
		item["utm_source"] = rows[i].UTMSource
		item["utm_medium"] = rows[i].UTMMedium
		item["utm_campaign"] = rows[i].UTMCampaign
		item["utm_term"] = rows[i].UTMTerm
		item["utm_content"] = rows[i].UTMContent
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"items":    items,
		"page":     opts.Page,
		"pageSize": opts.PageSize,
		"total":    total,
	})
}
