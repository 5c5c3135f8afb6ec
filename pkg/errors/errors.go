package errors

import "errors"

// ErrOptimisticLock 状态 CAS 冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrShiftConflict 班次冲突：该班次已被其他进行中的换班申请占用，
// 或在行锁检查时归属已发生变化
var ErrShiftConflict = errors.New("班次已被进行中的换班申请占用")
