package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldops/inventory-sync/models"
	"github.com/fieldops/inventory-sync/realtime"
	"github.com/fieldops/inventory-sync/service"
	"github.com/fieldops/inventory-sync/utils"
)

// SyncController 同步计划与状态接口控制器
type SyncController struct {
	scheduler   *service.Scheduler
	syncService *service.SyncService
	hub         *realtime.Hub
}

// NewSyncController 创建同步控制器
func NewSyncController(scheduler *service.Scheduler, syncService *service.SyncService, hub *realtime.Hub) *SyncController {
	return &SyncController{
		scheduler:   scheduler,
		syncService: syncService,
		hub:         hub,
	}
}

// GetSchedules 获取全部同步计划
func (ctrl *SyncController) GetSchedules(c *gin.Context) {
	utils.SuccessResponse(c, ctrl.scheduler.List(), "")
}

// CreateSchedule 创建同步计划
func (ctrl *SyncController) CreateSchedule(c *gin.Context) {
	var req models.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.HandleError(c, utils.CreateBadRequestError("请求参数不完整: "+err.Error()))
		return
	}

	schedule, err := ctrl.scheduler.Create(req)
	if err != nil {
		utils.HandleError(c, utils.CreateBadRequestError(err.Error()))
		return
	}

	utils.SuccessResponse(c, schedule, "同步计划创建成功", http.StatusCreated)
}

// UpdateSchedule 更新同步计划
func (ctrl *SyncController) UpdateSchedule(c *gin.Context) {
	var req models.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.HandleError(c, utils.CreateBadRequestError("请求参数错误: "+err.Error()))
		return
	}

	schedule, err := ctrl.scheduler.Update(c.Param("id"), req)
	if err != nil {
		if errors.Is(err, service.ErrScheduleNotFound) {
			handleServiceError(c, err)
			return
		}
		utils.HandleError(c, utils.CreateBadRequestError(err.Error()))
		return
	}

	utils.SuccessResponse(c, schedule, "同步计划更新成功")
}

// DeleteSchedule 删除同步计划
func (ctrl *SyncController) DeleteSchedule(c *gin.Context) {
	if err := ctrl.scheduler.Delete(c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, nil, "同步计划已删除")
}

// ManualSync 手动触发同步
// 与计划同步共用同一条同步链路和单飞保护，不更新计划的运行时间
func (ctrl *SyncController) ManualSync(c *gin.Context) {
	var req models.SyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.HandleError(c, utils.CreateBadRequestError("请求参数错误: "+err.Error()))
		return
	}

	result, err := ctrl.syncService.RunSync(c.Request.Context(), req.Warehouse, service.SyncOptions{})
	if err != nil {
		if errors.Is(err, service.ErrSyncInProgress) {
			utils.HandleError(c, utils.CreateSyncInProgressError(req.Warehouse))
			return
		}
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, result, "同步完成")
}

// GetStatus 获取同步状态汇总
func (ctrl *SyncController) GetStatus(c *gin.Context) {
	status := models.SyncStatus{
		InFlightScopes: ctrl.syncService.InFlightScopes(),
		LastResults:    ctrl.syncService.LastResults(),
		Schedules:      ctrl.scheduler.List(),
		Clients:        ctrl.hub.ClientCount(),
	}
	utils.SuccessResponse(c, status, "")
}
