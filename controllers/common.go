package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/fieldops/inventory-sync/repository"
	"github.com/fieldops/inventory-sync/service"
	"github.com/fieldops/inventory-sync/utils"
)

// handleServiceError 把服务层错误映射为标准错误响应
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrScheduleNotFound):
		utils.HandleError(c, utils.CreateNotFoundError("同步计划"))
	case errors.Is(err, repository.ErrSourceUnavailable):
		utils.HandleError(c, utils.CreateSourceUnavailableError(err))
	default:
		utils.HandleError(c, err)
	}
}
