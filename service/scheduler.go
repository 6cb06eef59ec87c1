package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/inventory-sync/models"
	"github.com/fieldops/inventory-sync/utils"
)

// ErrScheduleNotFound 同步计划不存在
var ErrScheduleNotFound = errors.New("同步计划不存在")

// Scheduler 同步计划调度器
// 计划值整体替换，定时器句柄（停止通道）只归调度器持有；
// 停用只取消后续触发，已在途的同步会跑完
type Scheduler struct {
	syncService *SyncService

	mu        sync.Mutex
	schedules map[string]models.SyncSchedule
	stops     map[string]chan struct{}
}

// NewScheduler 创建调度器
func NewScheduler(syncService *SyncService) *Scheduler {
	return &Scheduler{
		syncService: syncService,
		schedules:   make(map[string]models.SyncSchedule),
		stops:       make(map[string]chan struct{}),
	}
}

// Bootstrap 进程启动时注册默认计划，仓库范围来自配置，空值表示全量
func (s *Scheduler) Bootstrap(defaultWarehouse string) {
	schedule, err := s.Create(models.CreateScheduleRequest{
		Name:             "每日全量同步",
		Warehouse:        defaultWarehouse,
		Frequency:        models.SyncFrequencyDaily,
		NotifyOnLowStock: true,
	})
	if err != nil {
		utils.LogError(err, nil, "注册默认同步计划失败")
		return
	}
	utils.LogInfo(map[string]interface{}{
		"id":        schedule.ID,
		"warehouse": schedule.Scope(),
	}, "默认同步计划就绪")
}

// List 返回全部计划，按名称排序
func (s *Scheduler) List() []models.SyncSchedule {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedules := make([]models.SyncSchedule, 0, len(s.schedules))
	for _, schedule := range s.schedules {
		schedules = append(schedules, schedule)
	}
	sort.Slice(schedules, func(a, b int) bool {
		return schedules[a].Name < schedules[b].Name
	})
	return schedules
}

// Get 查询单个计划
func (s *Scheduler) Get(id string) (models.SyncSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule, ok := s.schedules[id]
	if !ok {
		return models.SyncSchedule{}, ErrScheduleNotFound
	}
	return schedule, nil
}

// Create 创建计划，enabled 且非 manual 时立即布防定时器
func (s *Scheduler) Create(req models.CreateScheduleRequest) (models.SyncSchedule, error) {
	if !req.Frequency.IsValid() {
		return models.SyncSchedule{}, errors.New("无效的同步频率: " + string(req.Frequency))
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	schedule := models.SyncSchedule{
		ID:                uuid.NewString(),
		Name:              req.Name,
		Warehouse:         req.Warehouse,
		Frequency:         req.Frequency,
		Enabled:           enabled,
		NotifyOnLowStock:  req.NotifyOnLowStock,
		LowStockThreshold: req.LowStockThreshold,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.armLocked(&schedule)
	s.schedules[schedule.ID] = schedule

	utils.Logger.Info().
		Str("id", schedule.ID).
		Str("name", schedule.Name).
		Str("frequency", string(schedule.Frequency)).
		Bool("enabled", schedule.Enabled).
		Msg("创建同步计划")
	return schedule, nil
}

// Update 更新计划
// 先取消旧定时器，再用新值整体替换并按需重新布防
func (s *Scheduler) Update(id string, req models.UpdateScheduleRequest) (models.SyncSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule, ok := s.schedules[id]
	if !ok {
		return models.SyncSchedule{}, ErrScheduleNotFound
	}

	if req.Name != nil {
		schedule.Name = *req.Name
	}
	if req.Warehouse != nil {
		schedule.Warehouse = *req.Warehouse
	}
	if req.Frequency != nil {
		if !req.Frequency.IsValid() {
			return models.SyncSchedule{}, errors.New("无效的同步频率: " + string(*req.Frequency))
		}
		schedule.Frequency = *req.Frequency
	}
	if req.Enabled != nil {
		schedule.Enabled = *req.Enabled
	}
	if req.NotifyOnLowStock != nil {
		schedule.NotifyOnLowStock = *req.NotifyOnLowStock
	}
	if req.LowStockThreshold != nil {
		schedule.LowStockThreshold = *req.LowStockThreshold
	}

	s.disarmLocked(id)
	schedule.NextRun = nil
	s.armLocked(&schedule)
	s.schedules[id] = schedule

	utils.Logger.Info().Str("id", id).Msg("更新同步计划")
	return schedule, nil
}

// Delete 删除计划并取消定时器
func (s *Scheduler) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[id]; !ok {
		return ErrScheduleNotFound
	}
	s.disarmLocked(id)
	delete(s.schedules, id)

	utils.Logger.Info().Str("id", id).Msg("删除同步计划")
	return nil
}

// Stop 停止全部定时器
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.stops {
		s.disarmLocked(id)
	}
}

// armLocked 布防定时器，调用方必须已持锁
func (s *Scheduler) armLocked(schedule *models.SyncSchedule) {
	interval := schedule.Frequency.Interval()
	if !schedule.Enabled || interval == 0 {
		return
	}

	next := time.Now().Add(interval)
	schedule.NextRun = &next

	stop := make(chan struct{})
	s.stops[schedule.ID] = stop

	go s.runTimer(schedule.ID, interval, stop)
}

// disarmLocked 取消定时器，调用方必须已持锁
func (s *Scheduler) disarmLocked(id string) {
	if stop, ok := s.stops[id]; ok {
		close(stop)
		delete(s.stops, id)
	}
}

// runTimer 固定周期触发同步，直到停止通道关闭
func (s *Scheduler) runTimer(id string, interval time.Duration, stop chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.fire(id)
		case <-stop:
			return
		}
	}
}

// fire 执行一次计划同步
// 失败已由同步服务发布 sync_error 事件，这里只记日志不向上抛；
// 单飞冲突视为本次触发跳过
func (s *Scheduler) fire(id string) {
	s.mu.Lock()
	schedule, ok := s.schedules[id]
	s.mu.Unlock()
	if !ok || !schedule.Enabled {
		return
	}

	_, err := s.syncService.RunSync(context.Background(), schedule.Scope(), SyncOptions{
		NotifyOnLowStock:  schedule.NotifyOnLowStock,
		LowStockThreshold: schedule.LowStockThreshold,
	})
	if err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			utils.Logger.Warn().Str("id", id).Str("scope", schedule.Scope()).Msg("计划同步跳过: 范围同步在途")
		} else {
			utils.LogError(err, map[string]interface{}{"id": id}, "计划同步失败")
		}
	}

	// 记录最近/下次运行时间，值整体替换；nextRun 仅供展示，真正的节奏由ticker决定
	now := time.Now()
	next := now.Add(schedule.Frequency.Interval())

	s.mu.Lock()
	if latest, ok := s.schedules[id]; ok && latest.Enabled {
		latest.LastRun = &now
		latest.NextRun = &next
		s.schedules[id] = latest
	}
	s.mu.Unlock()
}
