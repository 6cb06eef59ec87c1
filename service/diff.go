package service

import (
	"github.com/fieldops/inventory-sync/models"
)

// 参与变更比对的字段集合，其余字段变化不触发事件
var watchedFields = []struct {
	name  string
	value func(*models.InventoryItem) interface{}
}{
	{"quantity", func(i *models.InventoryItem) interface{} { return i.Quantity }},
	{"unitPrice", func(i *models.InventoryItem) interface{} { return i.UnitPrice }},
	{"status", func(i *models.InventoryItem) interface{} { return i.Status }},
	{"location", func(i *models.InventoryItem) interface{} { return i.Location }},
	{"minimumStock", func(i *models.InventoryItem) interface{} { return i.MinimumStock }},
	{"maximumStock", func(i *models.InventoryItem) interface{} { return i.MaximumStock }},
	{"reorderLevel", func(i *models.InventoryItem) interface{} { return i.ReorderLevel }},
}

// DiffSnapshots 对比上一次快照与当前快照，产出变更记录
// 分类规则:
//   - 当前有、上次没有 -> added
//   - 两边都有且关注字段有差异 -> updated，附带逐字段变更明细
//   - 上次有、当前没有 -> removed
//
// 上次快照为空时所有当前项都归为 added，这是首次同步的预期行为。
// 输出顺序为当前快照迭代顺序在前、removed 在后。
func DiffSnapshots(previous, current []models.InventoryItem) []models.ChangeRecord {
	prevByKey := make(map[string]*models.InventoryItem, len(previous))
	for i := range previous {
		prevByKey[previous[i].Key()] = &previous[i]
	}
	currKeys := make(map[string]bool, len(current))

	changes := make([]models.ChangeRecord, 0)

	for i := range current {
		item := &current[i]
		currKeys[item.Key()] = true

		prev, ok := prevByKey[item.Key()]
		if !ok {
			changes = append(changes, models.ChangeRecord{
				Type: models.ChangeAdded,
				Item: *item,
			})
			continue
		}

		fieldChanges := compareWatchedFields(prev, item)
		if len(fieldChanges) > 0 {
			changes = append(changes, models.ChangeRecord{
				Type:    models.ChangeUpdated,
				Item:    *item,
				Changes: fieldChanges,
			})
		}
	}

	for i := range previous {
		if !currKeys[previous[i].Key()] {
			changes = append(changes, models.ChangeRecord{
				Type: models.ChangeRemoved,
				Item: previous[i],
			})
		}
	}

	return changes
}

// compareWatchedFields 逐字段比对关注字段
func compareWatchedFields(prev, curr *models.InventoryItem) []models.FieldChange {
	var fieldChanges []models.FieldChange
	for _, f := range watchedFields {
		oldValue := f.value(prev)
		newValue := f.value(curr)
		if oldValue != newValue {
			fieldChanges = append(fieldChanges, models.FieldChange{
				Field:    f.name,
				OldValue: oldValue,
				NewValue: newValue,
			})
		}
	}
	return fieldChanges
}
