package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"planning-t8/backend/internal/model"
	pkgerrors "planning-t8/backend/pkg/errors"
)

// ── Mock UserRepository ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByMatricule(_ context.Context, matricule string) (*model.User, error) {
	for _, u := range m.users {
		if u.Matricule == matricule {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) List(_ context.Context, role string, activeOnly bool, offset, limit int) ([]model.User, int64, error) {
	var filtered []model.User
	for _, u := range m.users {
		if role != "" && u.Role != role {
			continue
		}
		if activeOnly && !u.IsActiveAgent {
			continue
		}
		filtered = append(filtered, *u)
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Matricule < filtered[j].Matricule })
	total := int64(len(filtered))
	if offset >= len(filtered) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], total, nil
}

func (m *mockUserRepo) ListActiveAgents(_ context.Context) ([]model.User, error) {
	var result []model.User
	for _, u := range m.users {
		if u.IsActiveAgent {
			result = append(result, *u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Matricule < result[j].Matricule })
	return result, nil
}

// ── Mock PlanningRepository ──

type mockPlanningRepo struct {
	mu        sync.Mutex
	plannings map[string]*model.Planning
}

func newMockPlanningRepo() *mockPlanningRepo {
	return &mockPlanningRepo{plannings: make(map[string]*model.Planning)}
}

func (m *mockPlanningRepo) GetByID(_ context.Context, id string) (*model.Planning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.plannings[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPlanningRepo) GetByAgentAndDate(_ context.Context, agentID string, date time.Time) (*model.Planning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.plannings {
		if p.AgentID == agentID && p.Date.Equal(date) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPlanningRepo) ListByAgent(_ context.Context, agentID string, from, to time.Time) ([]model.Planning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Planning
	for _, p := range m.plannings {
		if p.AgentID == agentID && !p.Date.Before(from) && !p.Date.After(to) {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (m *mockPlanningRepo) ListByDateRange(_ context.Context, from, to time.Time) ([]model.Planning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Planning
	for _, p := range m.plannings {
		if !p.Date.Before(from) && !p.Date.After(to) {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

// setAgent 换班互换时修改排班归属
func (m *mockPlanningRepo) setAgent(planningID, agentID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.plannings[planningID]; ok {
		p.AgentID = agentID
	}
}

// ── Mock ExchangeHistoryRepository ──

type mockExchangeHistoryRepo struct {
	mu        sync.Mutex
	histories []model.ExchangeHistory
	idCounter int
}

func newMockExchangeHistoryRepo() *mockExchangeHistoryRepo {
	return &mockExchangeHistoryRepo{}
}

func (m *mockExchangeHistoryRepo) Create(_ context.Context, history *model.ExchangeHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idCounter++
	if history.HistoryID == "" {
		history.HistoryID = fmt.Sprintf("hist-%d", m.idCounter)
	}
	history.CreatedAt = time.Now()
	m.histories = append(m.histories, *history)
	return nil
}

func (m *mockExchangeHistoryRepo) ListByRequest(_ context.Context, exchangeRequestID string) ([]model.ExchangeHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.ExchangeHistory
	for _, h := range m.histories {
		if h.ExchangeRequestID == exchangeRequestID {
			result = append(result, h)
		}
	}
	return result, nil
}

// ── Mock ExchangeRepository ──
//
// 用互斥锁模拟数据库的条件更新语义：状态不匹配时返回 ErrOptimisticLock，
// 和真实仓储的 RowsAffected == 0 分支一致。

type mockExchangeRepo struct {
	mu        sync.Mutex
	exchanges map[string]*model.ExchangeRequest
	idCounter int

	users     *mockUserRepo
	plannings *mockPlanningRepo
	histories *mockExchangeHistoryRepo
}

func newMockExchangeRepo(users *mockUserRepo, plannings *mockPlanningRepo, histories *mockExchangeHistoryRepo) *mockExchangeRepo {
	return &mockExchangeRepo{
		exchanges: make(map[string]*model.ExchangeRequest),
		users:     users,
		plannings: plannings,
		histories: histories,
	}
}

func (m *mockExchangeRepo) Create(ctx context.Context, req *model.ExchangeRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 归属复核（真实实现在行锁下做同样的检查：服务层校验后归属可能已被互换改走）
	m.plannings.mu.Lock()
	for _, pair := range [][2]string{
		{req.RequesterShiftID, req.RequesterID},
		{req.RecipientShiftID, req.RecipientID},
	} {
		p, ok := m.plannings.plannings[pair[0]]
		if !ok || p.AgentID != pair[1] {
			m.plannings.mu.Unlock()
			return pkgerrors.ErrShiftConflict
		}
	}
	m.plannings.mu.Unlock()

	// 占用复核（真实实现在行锁下做同样的检查）
	for _, e := range m.exchanges {
		if e.Status != model.ExchangePending && e.Status != model.ExchangeAcceptedByAgent {
			continue
		}
		for _, sid := range []string{req.RequesterShiftID, req.RecipientShiftID} {
			if e.RequesterShiftID == sid || e.RecipientShiftID == sid {
				return pkgerrors.ErrShiftConflict
			}
		}
	}

	m.idCounter++
	if req.ExchangeRequestID == "" {
		req.ExchangeRequestID = fmt.Sprintf("ex-%d", m.idCounter)
	}
	req.CreatedAt = time.Now()
	req.UpdatedAt = time.Now()
	cp := *req
	m.exchanges[req.ExchangeRequestID] = &cp

	return m.histories.Create(ctx, &model.ExchangeHistory{
		ExchangeRequestID: req.ExchangeRequestID,
		Action:            "created",
		ActorID:           req.RequesterID,
		Comment:           req.RequesterMessage,
	})
}

func (m *mockExchangeRepo) GetByID(_ context.Context, id string) (*model.ExchangeRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exchanges[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	m.preload(&cp)
	return &cp, nil
}

// preload 模拟关联加载
func (m *mockExchangeRepo) preload(e *model.ExchangeRequest) {
	e.Requester = m.users.users[e.RequesterID]
	e.Recipient = m.users.users[e.RecipientID]
	if e.SupervisorID != nil {
		e.Supervisor = m.users.users[*e.SupervisorID]
	}
	m.plannings.mu.Lock()
	if p, ok := m.plannings.plannings[e.RequesterShiftID]; ok {
		cp := *p
		e.RequesterShift = &cp
	}
	if p, ok := m.plannings.plannings[e.RecipientShiftID]; ok {
		cp := *p
		e.RecipientShift = &cp
	}
	m.plannings.mu.Unlock()
}

func (m *mockExchangeRepo) ListForAgent(_ context.Context, agentID, direction, status string, offset, limit int) ([]model.ExchangeRequest, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var filtered []model.ExchangeRequest
	for _, e := range m.exchanges {
		switch direction {
		case "sent":
			if e.RequesterID != agentID {
				continue
			}
		case "received":
			if e.RecipientID != agentID {
				continue
			}
		default:
			if e.RequesterID != agentID && e.RecipientID != agentID {
				continue
			}
		}
		if status != "" && e.Status != status {
			continue
		}
		cp := *e
		m.preload(&cp)
		filtered = append(filtered, cp)
	}
	return pageExchanges(filtered, offset, limit)
}

func (m *mockExchangeRepo) ListByStatus(_ context.Context, status string, offset, limit int) ([]model.ExchangeRequest, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var filtered []model.ExchangeRequest
	for _, e := range m.exchanges {
		if e.Status != status {
			continue
		}
		cp := *e
		m.preload(&cp)
		filtered = append(filtered, cp)
	}
	return pageExchanges(filtered, offset, limit)
}

func pageExchanges(filtered []model.ExchangeRequest, offset, limit int) ([]model.ExchangeRequest, int64, error) {
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})
	total := int64(len(filtered))
	if offset >= len(filtered) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], total, nil
}

func (m *mockExchangeRepo) TransitionStatus(_ context.Context, id, fromStatus string, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exchanges[id]
	if !ok || e.Status != fromStatus {
		return pkgerrors.ErrOptimisticLock
	}
	applyUpdates(e, updates)
	e.UpdatedAt = time.Now()
	return nil
}

func (m *mockExchangeRepo) ValidateAndSwap(ctx context.Context, req *model.ExchangeRequest, supervisorID, comment string, decidedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exchanges[req.ExchangeRequestID]
	if !ok || e.Status != model.ExchangeAcceptedByAgent {
		return pkgerrors.ErrOptimisticLock
	}
	e.Status = model.ExchangeValidatedBySupervisor
	e.SupervisorID = &supervisorID
	e.SupervisorComment = comment
	e.DecidedAt = &decidedAt
	e.UpdatedAt = time.Now()

	m.plannings.setAgent(e.RequesterShiftID, e.RecipientID)
	m.plannings.setAgent(e.RecipientShiftID, e.RequesterID)

	return m.histories.Create(ctx, &model.ExchangeHistory{
		ExchangeRequestID: e.ExchangeRequestID,
		Action:            model.ExchangeValidatedBySupervisor,
		ActorID:           supervisorID,
		Comment:           comment,
	})
}

func (m *mockExchangeRepo) CountByStatus(_ context.Context, from, to *time.Time) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int64)
	for _, e := range m.exchanges {
		if from != nil && e.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && !e.CreatedAt.Before(*to) {
			continue
		}
		counts[e.Status]++
	}
	return counts, nil
}

func applyUpdates(e *model.ExchangeRequest, updates map[string]interface{}) {
	for k, v := range updates {
		switch k {
		case "status":
			e.Status = v.(string)
		case "recipient_comment":
			e.RecipientComment = v.(string)
		case "supervisor_comment":
			e.SupervisorComment = v.(string)
		case "supervisor_id":
			id := v.(string)
			e.SupervisorID = &id
		case "responded_at":
			t := v.(time.Time)
			e.RespondedAt = &t
		case "decided_at":
			t := v.(time.Time)
			e.DecidedAt = &t
		case "updated_by":
			id := v.(string)
			e.UpdatedBy = &id
		}
	}
}
