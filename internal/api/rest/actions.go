package rest

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/KevinKickass/OpenPlateReader/internal/action"
	"github.com/KevinKickass/OpenPlateReader/internal/instrument"
	"github.com/KevinKickass/OpenPlateReader/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// POST /action/:name
func (s *Server) executeAction(c *gin.Context) {
	name := c.Param("name")

	var args map[string]any
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&args); err != nil {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeActionBadRequest, "Invalid request body", err.Error()))
			return
		}
	}

	result, err := s.lm.ActionServer().Execute(c.Request.Context(), name, args)
	if err == nil {
		c.JSON(http.StatusOK, result)
		return
	}

	status, code := actionErrorStatus(err)
	s.logger.Debug("Action request failed",
		zap.String("action", name),
		zap.Int("http_status", status),
		zap.Error(err))
	c.JSON(status, types.NewErrorResponse(code, err.Error(), result))
}

func actionErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, action.ErrUnknownAction):
		return http.StatusNotFound, types.CodeActionNotFound
	case instrument.IsValidation(err):
		return http.StatusUnprocessableEntity, types.CodeActionInvalid
	case instrument.IsDevice(err):
		return http.StatusBadGateway, types.CodeActionDevice
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, types.CodeActionBusy
	default:
		return http.StatusInternalServerError, types.CodeActionInternal
	}
}

// GET /artifacts/:file
func (s *Server) getArtifact(c *gin.Context) {
	name := filepath.Base(c.Param("file"))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeArtifactBadRequest, "Invalid file name", c.Param("file")))
		return
	}

	path := filepath.Join(s.lm.ActionServer().Settings().OutputDir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.CodeArtifactNotFound, "Artifact not found", name))
		return
	}

	c.FileAttachment(path, name)
}
