package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GET /about
func (s *Server) getAbout(c *gin.Context) {
	c.JSON(http.StatusOK, s.lm.ActionServer().About(c.Request.Context()))
}

// GET /state
func (s *Server) getState(c *gin.Context) {
	c.JSON(http.StatusOK, s.lm.GetCurrentStatus(c.Request.Context()))
}
