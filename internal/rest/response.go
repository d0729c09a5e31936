package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ldi/backlog/internal/service"
)

type errorBody struct {
	Error string `json:"error"`
}

// handleError maps domain errors onto HTTP status codes.
func handleError(c *gin.Context, err error) {
	var verr *service.ValidationError
	var nferr *service.NotFoundError
	var cerr *service.ConflictError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, errorBody{Error: verr.Error()})
	case errors.As(err, &nferr):
		c.JSON(http.StatusNotFound, errorBody{Error: nferr.Error()})
	case errors.As(err, &cerr):
		c.JSON(http.StatusConflict, errorBody{Error: cerr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
