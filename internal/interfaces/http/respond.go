package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/VitorRandrade/omnibot-hub-api/internal/repository"
	"github.com/VitorRandrade/omnibot-hub-api/internal/usecases"
)

// Every response uses the same envelope: {"success": true, "data": ...} or
// {"success": false, "error": {"message", "code"}}.

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func respondError(c *gin.Context, status int, message, code string) {
	c.JSON(status, gin.H{"success": false, "error": errorBody{Message: message, Code: code}})
}

func abortError(c *gin.Context, status int, message, code string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": errorBody{Message: message, Code: code}})
}

// respondUsecaseError maps the usecase error taxonomy onto HTTP statuses.
func respondUsecaseError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecases.ErrValidation):
		respondError(c, http.StatusBadRequest, err.Error(), "VALIDATION")
	case errors.Is(err, usecases.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, err.Error(), "UNAUTHORIZED")
	case errors.Is(err, usecases.ErrForbidden):
		respondError(c, http.StatusForbidden, err.Error(), "FORBIDDEN")
	case errors.Is(err, usecases.ErrNotFound):
		respondError(c, http.StatusNotFound, "resource not found", "NOT_FOUND")
	default:
		respondError(c, http.StatusInternalServerError, "internal error", "INTERNAL")
	}
}

func setPaginationHeaders(c *gin.Context, total, page, perPage int) {
	c.Header("X-Total-Count", strconv.Itoa(total))
	c.Header("X-Page", strconv.Itoa(page))
	c.Header("X-Per-Page", strconv.Itoa(perPage))
}

const (
	defaultPerPage = 50
	maxPerPage     = 100
)

func parsePage(c *gin.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	// perPage is the canonical query name; per_page stays as a fallback for
	// older clients.
	raw := c.Query("perPage")
	if raw == "" {
		raw = c.DefaultQuery("per_page", strconv.Itoa(defaultPerPage))
	}
	perPage, _ = strconv.Atoi(raw)
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}

// parseListParams adds the optional before/after time cursors to the page
// window. Timestamps are RFC3339.
func parseListParams(c *gin.Context) (repository.ListParams, error) {
	page, perPage := parsePage(c)
	p := repository.ListParams{Page: page, PerPage: perPage}

	if v := c.Query("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return p, err
		}
		p.Before = &t
	}
	if v := c.Query("after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return p, err
		}
		p.After = &t
	}
	return p, nil
}
