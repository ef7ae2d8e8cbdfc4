package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"kbchat/models"
)

// ConfigController serves the one-shot client bootstrap document.
type ConfigController struct {
	apiURL string
}

func NewConfigController(apiURL string) *ConfigController {
	return &ConfigController{apiURL: apiURL}
}

// HandleConfig returns the endpoint the client should talk to.
func (cc *ConfigController) HandleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, models.ClientConfig{APIURL: cc.apiURL})
}

// HandleHealth is a liveness probe.
func HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
