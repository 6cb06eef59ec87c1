package models

import (
	"time"
)

// SyncFrequency 同步频率
type SyncFrequency string

const (
	SyncFrequencyManual SyncFrequency = "manual"
	SyncFrequencyHourly SyncFrequency = "hourly"
	SyncFrequencyDaily  SyncFrequency = "daily"
	SyncFrequencyWeekly SyncFrequency = "weekly"
)

// IsValid 校验同步频率是否合法
func (f SyncFrequency) IsValid() bool {
	switch f {
	case SyncFrequencyManual, SyncFrequencyHourly, SyncFrequencyDaily, SyncFrequencyWeekly:
		return true
	}
	return false
}

// Interval 返回频率对应的周期，manual 返回 0
func (f SyncFrequency) Interval() time.Duration {
	switch f {
	case SyncFrequencyHourly:
		return time.Hour
	case SyncFrequencyDaily:
		return 24 * time.Hour
	case SyncFrequencyWeekly:
		return 7 * 24 * time.Hour
	}
	return 0
}

// SyncSchedule 同步计划
// 更新时整体替换，定时器句柄由调度器单独持有
type SyncSchedule struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Warehouse         string        `json:"warehouse,omitempty"`
	Frequency         SyncFrequency `json:"frequency"`
	Enabled           bool          `json:"enabled"`
	NotifyOnLowStock  bool          `json:"notifyOnLowStock"`
	LowStockThreshold float64       `json:"lowStockThreshold"`
	LastRun           *time.Time    `json:"lastRun,omitempty"`
	NextRun           *time.Time    `json:"nextRun,omitempty"`
}

// Scope 返回计划的仓库范围，未指定时为 all
func (s *SyncSchedule) Scope() string {
	if s.Warehouse == "" {
		return ScopeAll
	}
	return s.Warehouse
}

// EventType 同步事件类型
type EventType string

const (
	EventInventoryUpdated EventType = "inventory_updated"
	EventStockMovement    EventType = "stock_movement"
	EventLowStockAlert    EventType = "low_stock_alert"
	EventSyncComplete     EventType = "sync_complete"
	EventSyncError        EventType = "sync_error"
)

// SyncEvent 同步事件，仅在进程内发布消费，不落盘
type SyncEvent struct {
	Type      EventType   `json:"type"`
	Warehouse string      `json:"warehouse,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// ChangeType 变更分类
type ChangeType string

const (
	ChangeAdded   ChangeType = "added"
	ChangeUpdated ChangeType = "updated"
	ChangeRemoved ChangeType = "removed"
)

// FieldChange 单个字段的变更明细
type FieldChange struct {
	Field    string      `json:"field"`
	OldValue interface{} `json:"oldValue"`
	NewValue interface{} `json:"newValue"`
}

// ChangeRecord 变更检测结果
type ChangeRecord struct {
	Type    ChangeType    `json:"type"`
	Item    InventoryItem `json:"item"`
	Changes []FieldChange `json:"changes,omitempty"`
}

// SyncResult 一次同步的结果摘要
type SyncResult struct {
	Scope      string    `json:"scope"`
	ItemCount  int       `json:"itemCount"`
	Added      int       `json:"added"`
	Updated    int       `json:"updated"`
	Removed    int       `json:"removed"`
	LowStock   int       `json:"lowStock"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Error      string    `json:"error,omitempty"`
}

// CreateScheduleRequest 创建同步计划请求
type CreateScheduleRequest struct {
	Name              string        `json:"name" binding:"required"`
	Warehouse         string        `json:"warehouse"`
	Frequency         SyncFrequency `json:"frequency" binding:"required"`
	Enabled           *bool         `json:"enabled"`
	NotifyOnLowStock  bool          `json:"notifyOnLowStock"`
	LowStockThreshold float64       `json:"lowStockThreshold"`
}

// UpdateScheduleRequest 更新同步计划请求，nil 字段保持原值
type UpdateScheduleRequest struct {
	Name              *string        `json:"name"`
	Warehouse         *string        `json:"warehouse"`
	Frequency         *SyncFrequency `json:"frequency"`
	Enabled           *bool          `json:"enabled"`
	NotifyOnLowStock  *bool          `json:"notifyOnLowStock"`
	LowStockThreshold *float64       `json:"lowStockThreshold"`
}

// SyncRequest 手动触发同步请求
type SyncRequest struct {
	Warehouse string `json:"warehouse"`
	Force     bool   `json:"force"`
}

// SyncStatus 同步状态汇总
type SyncStatus struct {
	InFlightScopes []string              `json:"inFlightScopes"`
	LastResults    map[string]SyncResult `json:"lastResults"`
	Schedules      []SyncSchedule        `json:"schedules"`
	Clients        int                   `json:"clients"`
}
