package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
// 班次容量更新的 WHERE 条件未命中任何行时由 Repository 返回
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
