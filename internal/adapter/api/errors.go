package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/couchcryptid/storm-data-grid/internal/domain"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error        string `json:"error"`
	Stage        string `json:"stage,omitempty"`
	ForecastHour *int   `json:"forecast_hour,omitempty"`
}

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownModel):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownVariable):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRunNotFound):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrVariableNotIndexed):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrTransport):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrRenderInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func newErrorResponse(err error) errorResponse {
	resp := errorResponse{Error: err.Error()}
	var stageErr *domain.StageError
	if errors.As(err, &stageErr) {
		resp.Stage = stageErr.Stage
		if stageErr.Stage != domain.StageRun {
			fh := stageErr.ForecastHour
			resp.ForecastHour = &fh
		}
	}
	return resp
}

func writeError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), newErrorResponse(err))
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg})
}
