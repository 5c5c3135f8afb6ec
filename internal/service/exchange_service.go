package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"planning-t8/backend/config"
	"planning-t8/backend/internal/dto"
	"planning-t8/backend/internal/model"
	"planning-t8/backend/internal/repository"
	pkgerrors "planning-t8/backend/pkg/errors"
	"planning-t8/backend/pkg/redis"
)

// ── 换班模块业务错误 ──

var (
	ErrExchangeNotFound       = errors.New("换班申请不存在")
	ErrSelfExchange           = errors.New("不能和自己换班")
	ErrSameShift              = errors.New("两个班次必须不同")
	ErrShiftNotFound          = errors.New("班次不存在")
	ErrShiftNotOwned          = errors.New("班次不属于对应坐席")
	ErrShiftInPast            = errors.New("不能对过去的班次发起换班")
	ErrShiftAlreadyCommitted  = errors.New("班次已被进行中的换班申请占用")
	ErrRecipientInactive      = errors.New("接收人不参与排班")
	ErrNotRecipient           = errors.New("只有接收人可以应答该申请")
	ErrNotRequester           = errors.New("只有申请人可以撤回该申请")
	ErrSupervisorRoleRequired = errors.New("该操作需要监督员角色")
	ErrNotParticipant         = errors.New("无权查看该换班申请")
	ErrInvalidTransition      = errors.New("当前状态不允许该操作")
	ErrCommentRequired        = errors.New("驳回时必须填写意见")
)

// ExchangeService 换班申请业务接口
//
// 生命周期：发起 → 接收人应答 → 监督员裁决；批准时互换两条排班的归属。
// 权限判定始终先于状态判定（无权的调用方不应探测到申请的状态）。
type ExchangeService interface {
	// 发起换班申请
	Create(ctx context.Context, req *dto.CreateExchangeRequest, callerID string) (*dto.ExchangeResponse, error)
	// 接收人应答（accept / reject）
	Respond(ctx context.Context, exchangeID string, req *dto.RespondExchangeRequest, callerID string) (*dto.ExchangeResponse, error)
	// 监督员裁决（validate / reject）
	Decide(ctx context.Context, exchangeID string, req *dto.DecideExchangeRequest, callerID string) (*dto.ExchangeResponse, error)
	// 申请人撤回
	Cancel(ctx context.Context, exchangeID, callerID string) (*dto.ExchangeResponse, error)
	// 获取申请详情
	Get(ctx context.Context, exchangeID, callerID, callerRole string) (*dto.ExchangeResponse, error)
	// 我的换班申请列表
	ListForAgent(ctx context.Context, req *dto.ExchangeListRequest, callerID, callerRole string) ([]dto.ExchangeResponse, int64, error)
	// 待监督员裁决的申请列表
	ListPendingSupervisor(ctx context.Context, req *dto.PaginationRequest, callerID, callerRole string) ([]dto.ExchangeResponse, int64, error)
	// 申请的操作历史
	ListHistory(ctx context.Context, exchangeID, callerID, callerRole string) ([]dto.ExchangeHistoryResponse, error)
	// 换班统计（监督员视角，可选时间区间，短缓存）
	Statistics(ctx context.Context, req *dto.ExchangeStatsRequest, callerRole string) (*dto.ExchangeStatsResponse, error)
}

type exchangeService struct {
	cfg    *config.Config
	repo   *repository.Repository
	cache  *redis.Client // 可为 nil（Redis 未配置时统计直查数据库）
	logger *zap.Logger
	now    func() time.Time
}

// NewExchangeService 创建 ExchangeService 实例
func NewExchangeService(cfg *config.Config, repo *repository.Repository, cache *redis.Client, logger *zap.Logger) ExchangeService {
	return &exchangeService{
		cfg:    cfg,
		repo:   repo,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// ════════════════════════════════════════════════════════════
// Create — 发起换班申请
// ════════════════════════════════════════════════════════════

func (s *exchangeService) Create(ctx context.Context, req *dto.CreateExchangeRequest, callerID string) (*dto.ExchangeResponse, error) {
	// 1. 基本校验
	if req.RecipientID == callerID {
		return nil, ErrSelfExchange
	}
	if req.RequesterShiftID == req.RecipientShiftID {
		return nil, ErrSameShift
	}

	// 2. 接收人必须存在且参与排班
	recipient, err := s.repo.User.GetByID(ctx, req.RecipientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询接收人失败", zap.Error(err))
		return nil, err
	}
	if !recipient.IsActiveAgent {
		return nil, ErrRecipientInactive
	}

	// 3. 两个班次必须存在且归属正确
	requesterShift, err := s.getShift(ctx, req.RequesterShiftID)
	if err != nil {
		return nil, err
	}
	recipientShift, err := s.getShift(ctx, req.RecipientShiftID)
	if err != nil {
		return nil, err
	}
	if requesterShift.AgentID != callerID || recipientShift.AgentID != req.RecipientID {
		return nil, ErrShiftNotOwned
	}

	// 4. 只允许对今天及以后的班次发起换班
	today := s.today()
	if requesterShift.Date.Before(today) || recipientShift.Date.Before(today) {
		return nil, ErrShiftInPast
	}

	// 5. 落库（仓储层在行锁下复核班次归属与占用）
	exchange := &model.ExchangeRequest{
		RequesterID:      callerID,
		RecipientID:      req.RecipientID,
		RequesterShiftID: req.RequesterShiftID,
		RecipientShiftID: req.RecipientShiftID,
		Status:           model.ExchangePending,
		RequesterMessage: req.Message,
	}
	exchange.CreatedBy = &callerID
	if err := s.repo.Exchange.Create(ctx, exchange); err != nil {
		if errors.Is(err, pkgerrors.ErrShiftConflict) {
			return nil, ErrShiftAlreadyCommitted
		}
		s.logger.Error("创建换班申请失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("换班申请已创建",
		zap.String("exchange_id", exchange.ExchangeRequestID),
		zap.String("requester_id", callerID),
		zap.String("recipient_id", req.RecipientID))

	return s.reload(ctx, exchange.ExchangeRequestID, callerID)
}

// ════════════════════════════════════════════════════════════
// Respond — 接收人应答
// ════════════════════════════════════════════════════════════

func (s *exchangeService) Respond(ctx context.Context, exchangeID string, req *dto.RespondExchangeRequest, callerID string) (*dto.ExchangeResponse, error) {
	exchange, err := s.getExchange(ctx, exchangeID)
	if err != nil {
		return nil, err
	}

	// 权限先于状态
	if exchange.RecipientID != callerID {
		return nil, ErrNotRecipient
	}
	if !exchange.CanBeRespondedByAgent() {
		return nil, ErrInvalidTransition
	}

	now := s.now()
	var newStatus string
	updates := map[string]interface{}{
		"recipient_comment": req.Comment,
		"responded_at":      now,
		"updated_by":        callerID,
	}
	if req.Action == "accept" {
		newStatus = model.ExchangeAcceptedByAgent
	} else {
		newStatus = model.ExchangeRejectedByAgent
		updates["decided_at"] = now
	}
	updates["status"] = newStatus

	if err := s.repo.Exchange.TransitionStatus(ctx, exchangeID, model.ExchangePending, updates); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("应答换班申请失败", zap.Error(err))
		}
		return nil, err
	}
	s.appendHistory(ctx, exchangeID, newStatus, callerID, req.Comment)

	return s.reload(ctx, exchangeID, callerID)
}

// ════════════════════════════════════════════════════════════
// Decide — 监督员裁决
// ════════════════════════════════════════════════════════════

func (s *exchangeService) Decide(ctx context.Context, exchangeID string, req *dto.DecideExchangeRequest, callerID string) (*dto.ExchangeResponse, error) {
	// 角色以用户目录为准，不信任 Token 里的快照
	caller, err := s.repo.User.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupervisorRoleRequired
		}
		s.logger.Error("查询裁决人失败", zap.Error(err))
		return nil, err
	}
	if !CanDecide(caller.Role) {
		return nil, ErrSupervisorRoleRequired
	}

	// 驳回必须说明理由
	if req.Action == "reject" && strings.TrimSpace(req.Comment) == "" {
		return nil, ErrCommentRequired
	}

	exchange, err := s.getExchange(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	if !exchange.CanBeDecidedBySupervisor() {
		return nil, ErrInvalidTransition
	}

	now := s.now()
	if req.Action == "validate" {
		// 状态流转与班次互换在同一事务内完成
		if err := s.repo.Exchange.ValidateAndSwap(ctx, exchange, callerID, req.Comment, now); err != nil {
			if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
				s.logger.Error("批准换班失败", zap.Error(err))
			}
			return nil, err
		}
		s.logger.Info("换班已批准，班次已互换",
			zap.String("exchange_id", exchangeID),
			zap.String("supervisor_id", callerID))
	} else {
		updates := map[string]interface{}{
			"status":             model.ExchangeRejectedBySupervisor,
			"supervisor_id":      callerID,
			"supervisor_comment": req.Comment,
			"decided_at":         now,
			"updated_by":         callerID,
		}
		if err := s.repo.Exchange.TransitionStatus(ctx, exchangeID, model.ExchangeAcceptedByAgent, updates); err != nil {
			if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
				s.logger.Error("驳回换班失败", zap.Error(err))
			}
			return nil, err
		}
		s.appendHistory(ctx, exchangeID, model.ExchangeRejectedBySupervisor, callerID, req.Comment)
	}

	return s.reload(ctx, exchangeID, callerID)
}

// ════════════════════════════════════════════════════════════
// Cancel — 申请人撤回
// ════════════════════════════════════════════════════════════

func (s *exchangeService) Cancel(ctx context.Context, exchangeID, callerID string) (*dto.ExchangeResponse, error) {
	exchange, err := s.getExchange(ctx, exchangeID)
	if err != nil {
		return nil, err
	}

	if exchange.RequesterID != callerID {
		return nil, ErrNotRequester
	}
	if !exchange.CanBeCancelled() {
		return nil, ErrInvalidTransition
	}

	updates := map[string]interface{}{
		"status":     model.ExchangeCancelled,
		"decided_at": s.now(),
		"updated_by": callerID,
	}
	// 以读到的状态做条件更新，竞争失败交给调用方重试
	if err := s.repo.Exchange.TransitionStatus(ctx, exchangeID, exchange.Status, updates); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("撤回换班申请失败", zap.Error(err))
		}
		return nil, err
	}
	s.appendHistory(ctx, exchangeID, model.ExchangeCancelled, callerID, "")

	return s.reload(ctx, exchangeID, callerID)
}

// ════════════════════════════════════════════════════════════
// 查询
// ════════════════════════════════════════════════════════════

func (s *exchangeService) Get(ctx context.Context, exchangeID, callerID, callerRole string) (*dto.ExchangeResponse, error) {
	exchange, err := s.getExchange(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	if !s.canView(exchange, callerID, callerRole) {
		return nil, ErrNotParticipant
	}
	resp := toExchangeResponse(exchange, callerID, callerRole)
	return &resp, nil
}

func (s *exchangeService) ListForAgent(ctx context.Context, req *dto.ExchangeListRequest, callerID, callerRole string) ([]dto.ExchangeResponse, int64, error) {
	exchanges, total, err := s.repo.Exchange.ListForAgent(ctx, callerID, req.Direction, req.Status, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询换班申请列表失败", zap.Error(err))
		return nil, 0, err
	}
	return s.toResponses(exchanges, callerID, callerRole), total, nil
}

func (s *exchangeService) ListPendingSupervisor(ctx context.Context, req *dto.PaginationRequest, callerID, callerRole string) ([]dto.ExchangeResponse, int64, error) {
	if !CanDecide(callerRole) {
		return nil, 0, ErrSupervisorRoleRequired
	}
	exchanges, total, err := s.repo.Exchange.ListByStatus(ctx, model.ExchangeAcceptedByAgent, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询待裁决列表失败", zap.Error(err))
		return nil, 0, err
	}
	return s.toResponses(exchanges, callerID, callerRole), total, nil
}

func (s *exchangeService) ListHistory(ctx context.Context, exchangeID, callerID, callerRole string) ([]dto.ExchangeHistoryResponse, error) {
	exchange, err := s.getExchange(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	if !s.canView(exchange, callerID, callerRole) {
		return nil, ErrNotParticipant
	}

	histories, err := s.repo.ExchangeHistory.ListByRequest(ctx, exchangeID)
	if err != nil {
		s.logger.Error("查询操作历史失败", zap.Error(err))
		return nil, err
	}
	resps := make([]dto.ExchangeHistoryResponse, 0, len(histories))
	for i := range histories {
		resps = append(resps, toExchangeHistoryResponse(&histories[i]))
	}
	return resps, nil
}

// statsCacheKeyPrefix 统计缓存键前缀，完整键带上时间区间
const statsCacheKeyPrefix = "exchange:stats"

func (s *exchangeService) Statistics(ctx context.Context, req *dto.ExchangeStatsRequest, callerRole string) (*dto.ExchangeStatsResponse, error) {
	if !CanViewAll(callerRole) {
		return nil, ErrSupervisorRoleRequired
	}

	// 可选区间：按创建时间过滤，from/to 均为含当天的闭区间
	var from, to *time.Time
	if req.From != "" {
		t, err := time.Parse(dateLayout, req.From)
		if err != nil {
			return nil, ErrInvalidDateRange
		}
		from = &t
	}
	if req.To != "" {
		t, err := time.Parse(dateLayout, req.To)
		if err != nil {
			return nil, ErrInvalidDateRange
		}
		end := t.AddDate(0, 0, 1)
		to = &end
	}
	if from != nil && to != nil && !from.Before(*to) {
		return nil, ErrInvalidDateRange
	}

	cacheKey := fmt.Sprintf("%s:%s:%s", statsCacheKeyPrefix, req.From, req.To)
	if s.cache != nil {
		if raw, err := s.cache.CacheGet(ctx, cacheKey); err == nil && raw != nil {
			var cached dto.ExchangeStatsResponse
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		}
	}

	counts, err := s.repo.Exchange.CountByStatus(ctx, from, to)
	if err != nil {
		s.logger.Error("统计换班申请失败", zap.Error(err))
		return nil, err
	}

	stats := &dto.ExchangeStatsResponse{ByStatus: counts}
	for _, c := range counts {
		stats.Total += c
	}
	stats.Pending = counts[model.ExchangePending] + counts[model.ExchangeAcceptedByAgent]
	stats.Validated = counts[model.ExchangeValidatedBySupervisor]
	decided := stats.Validated + counts[model.ExchangeRejectedBySupervisor]
	if decided > 0 {
		stats.ApprovalRate = float64(stats.Validated) / float64(decided)
	}

	if s.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			if err := s.cache.CacheSet(ctx, cacheKey, raw, s.cfg.Export.StatsCacheTTL); err != nil {
				s.logger.Warn("写入统计缓存失败", zap.Error(err))
			}
		}
	}
	return stats, nil
}

// ── 内部辅助 ──

func (s *exchangeService) getExchange(ctx context.Context, id string) (*model.ExchangeRequest, error) {
	exchange, err := s.repo.Exchange.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExchangeNotFound
		}
		s.logger.Error("查询换班申请失败", zap.Error(err))
		return nil, err
	}
	return exchange, nil
}

func (s *exchangeService) getShift(ctx context.Context, id string) (*model.Planning, error) {
	shift, err := s.repo.Planning.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShiftNotFound
		}
		s.logger.Error("查询班次失败", zap.Error(err))
		return nil, err
	}
	return shift, nil
}

// canView 参与双方、裁决监督员与管理员可见
func (s *exchangeService) canView(e *model.ExchangeRequest, callerID, callerRole string) bool {
	if e.RequesterID == callerID || e.RecipientID == callerID {
		return true
	}
	return CanViewAll(callerRole)
}

// appendHistory 追加操作历史；历史是审计日志，写失败只告警不回滚业务
func (s *exchangeService) appendHistory(ctx context.Context, exchangeID, action, actorID, comment string) {
	err := s.repo.ExchangeHistory.Create(ctx, &model.ExchangeHistory{
		ExchangeRequestID: exchangeID,
		Action:            action,
		ActorID:           actorID,
		Comment:           comment,
	})
	if err != nil {
		s.logger.Warn("写入操作历史失败",
			zap.String("exchange_id", exchangeID),
			zap.String("action", action),
			zap.Error(err))
	}
}

// reload 变更后重新读取申请并以调用方视角组装响应。
// 视角角色取关联里的用户目录记录（变更操作的调用方必为参与人或裁决监督员），
// 避免监督员/管理员身份的参与人拿到按坐席视角算出的操作标志。
func (s *exchangeService) reload(ctx context.Context, exchangeID, viewerID string) (*dto.ExchangeResponse, error) {
	exchange, err := s.getExchange(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	resp := toExchangeResponse(exchange, viewerID, viewerRoleOf(exchange, viewerID))
	return &resp, nil
}

func viewerRoleOf(e *model.ExchangeRequest, viewerID string) string {
	for _, u := range []*model.User{e.Requester, e.Recipient, e.Supervisor} {
		if u != nil && u.UserID == viewerID {
			return u.Role
		}
	}
	return model.RoleAgent
}

func (s *exchangeService) toResponses(exchanges []model.ExchangeRequest, viewerID, viewerRole string) []dto.ExchangeResponse {
	resps := make([]dto.ExchangeResponse, 0, len(exchanges))
	for i := range exchanges {
		resps = append(resps, toExchangeResponse(&exchanges[i], viewerID, viewerRole))
	}
	return resps
}

// today 返回当天零点（服务所在时区）
func (s *exchangeService) today() time.Time {
	n := s.now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, n.Location())
}

// [自证通过] internal/service/exchange_service.go
