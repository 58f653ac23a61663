package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}

func respondOK(c *gin.Context, status int, data gin.H) {
	payload := gin.H{"success": true}
	for key, value := range data {
		payload[key] = value
	}
	c.JSON(status, payload)
}

// respondInternal 记录未预期的错误并返回通用的 500 响应。
func (a *API) respondInternal(c *gin.Context, err error, message string) {
	a.logger.Error().
		Err(err).
		Str("method", c.Request.Method).
		Str("path", c.FullPath()).
		Msg(message)
	_ = c.Error(err)
	respondError(c, http.StatusInternalServerError, message)
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func parsePositiveInt(value string, fallback int) int {
	num, err := strconv.Atoi(value)
	if err != nil || num <= 0 {
		return fallback
	}
	return num
}

// clampPerPage 限制分页大小，防止一次拉取过多数据。
func clampPerPage(value string, fallback, max int) int {
	perPage := parsePositiveInt(value, fallback)
	if perPage > max {
		return max
	}
	return perPage
}
