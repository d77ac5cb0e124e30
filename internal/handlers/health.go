package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Ready checks if the service is ready to accept requests
// @Summary      Checks if the service is ready to accept requests
// @Description  Checks if the service is ready to accept requests
// @Id           Ready
// @Tags         Private
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      500  {object}  models.BaseError "Internal Server Error"
// @Router       /private/ready [post]
func (api *API) Ready(c *gin.Context) {
	if api.db != nil {
		sqlDB, err := api.db.DB()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN"})
			return
		}
		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN"})
			return
		}
	}
	api.Live(c)
}

// Live checks if the service is live
// @Summary      Checks if the service is live
// @Description  Checks if the service is live
// @Id           Live
// @Tags         Private
// @Accept       json
// @Produce      json
// @Success      200
// @Failure      500  {object}  models.BaseError "Internal Server Error"
// @Router       /private/live [post]
func (api *API) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
	})
}
