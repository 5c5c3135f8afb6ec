package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"planning-t8/backend/config"
	"planning-t8/backend/internal/dto"
	"planning-t8/backend/internal/model"
	"planning-t8/backend/internal/repository"
	pkgerrors "planning-t8/backend/pkg/errors"
)

// ── 测试夹具 ──

type exchangeFixture struct {
	svc       ExchangeService
	users     *mockUserRepo
	plannings *mockPlanningRepo
	exchanges *mockExchangeRepo
	histories *mockExchangeHistoryRepo
}

func day(offset int) time.Time {
	n := time.Now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func strPtr(s string) *string { return &s }

func newExchangeFixture() *exchangeFixture {
	users := newMockUserRepo()
	plannings := newMockPlanningRepo()
	histories := newMockExchangeHistoryRepo()
	exchanges := newMockExchangeRepo(users, plannings, histories)

	users.users["u-alice"] = &model.User{UserID: "u-alice", Matricule: "M1001", FirstName: "Alice", LastName: "Martin", Role: model.RoleAgent, IsActiveAgent: true}
	users.users["u-bob"] = &model.User{UserID: "u-bob", Matricule: "M1002", FirstName: "Bob", LastName: "Durand", Role: model.RoleAgent, IsActiveAgent: true}
	users.users["u-eve"] = &model.User{UserID: "u-eve", Matricule: "M1003", FirstName: "Eve", LastName: "Petit", Role: model.RoleAgent, IsActiveAgent: true}
	users.users["u-idle"] = &model.User{UserID: "u-idle", Matricule: "M1004", FirstName: "Ida", LastName: "Leroy", Role: model.RoleAgent, IsActiveAgent: false}
	users.users["u-sup"] = &model.User{UserID: "u-sup", Matricule: "M2001", FirstName: "Sam", LastName: "Moreau", Role: model.RoleSuperviseur, IsActiveAgent: false}
	users.users["u-sup2"] = &model.User{UserID: "u-sup2", Matricule: "M2002", FirstName: "Sue", LastName: "Roux", Role: model.RoleSuperviseur, IsActiveAgent: false}

	plannings.plannings["p-alice"] = &model.Planning{PlanningID: "p-alice", AgentID: "u-alice", Date: day(1), ServiceType: model.ServiceMatin, StartTime: strPtr("05:00"), EndTime: strPtr("13:00"), Line: "T8", Agent: users.users["u-alice"]}
	plannings.plannings["p-bob"] = &model.Planning{PlanningID: "p-bob", AgentID: "u-bob", Date: day(1), ServiceType: model.ServiceApresMidi, StartTime: strPtr("13:00"), EndTime: strPtr("21:00"), Line: "T8", Agent: users.users["u-bob"]}
	plannings.plannings["p-alice2"] = &model.Planning{PlanningID: "p-alice2", AgentID: "u-alice", Date: day(2), ServiceType: model.ServiceJournee, StartTime: strPtr("08:45"), EndTime: strPtr("16:30"), Line: "T8", Agent: users.users["u-alice"]}
	plannings.plannings["p-bob2"] = &model.Planning{PlanningID: "p-bob2", AgentID: "u-bob", Date: day(2), ServiceType: model.ServiceNuit, StartTime: strPtr("21:00"), EndTime: strPtr("05:00"), Line: "T8", Agent: users.users["u-bob"]}
	plannings.plannings["p-eve"] = &model.Planning{PlanningID: "p-eve", AgentID: "u-eve", Date: day(1), ServiceType: model.ServiceJournee, StartTime: strPtr("08:45"), EndTime: strPtr("16:30"), Line: "T8", Agent: users.users["u-eve"]}
	plannings.plannings["p-past"] = &model.Planning{PlanningID: "p-past", AgentID: "u-alice", Date: day(-1), ServiceType: model.ServiceMatin, StartTime: strPtr("05:00"), EndTime: strPtr("13:00"), Line: "T8", Agent: users.users["u-alice"]}

	repo := &repository.Repository{
		User:            users,
		Planning:        plannings,
		Exchange:        exchanges,
		ExchangeHistory: histories,
	}

	cfg := &config.Config{}
	cfg.Export.StatsCacheTTL = time.Minute
	svc := NewExchangeService(cfg, repo, nil, zap.NewNop())

	return &exchangeFixture{
		svc:       svc,
		users:     users,
		plannings: plannings,
		exchanges: exchanges,
		histories: histories,
	}
}

// mustCreate 创建一条 alice → bob 的换班申请
func mustCreate(t *testing.T, f *exchangeFixture) *dto.ExchangeResponse {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), &dto.CreateExchangeRequest{
		RecipientID:      "u-bob",
		RequesterShiftID: "p-alice",
		RecipientShiftID: "p-bob",
		Message:          "rdv médical",
	}, "u-alice")
	if err != nil {
		t.Fatalf("创建换班申请失败: %v", err)
	}
	return resp
}

// ── Create ──

func TestCreateExchange(t *testing.T) {
	f := newExchangeFixture()
	resp := mustCreate(t, f)

	if resp.Status != model.ExchangePending {
		t.Errorf("新申请状态应为 pending, got %s", resp.Status)
	}
	if resp.Requester == nil || resp.Requester.ID != "u-alice" {
		t.Errorf("申请人不正确: %+v", resp.Requester)
	}
	if !resp.CanCancel {
		t.Error("申请人视角应可撤回")
	}

	histories, _ := f.histories.ListByRequest(context.Background(), resp.ID)
	if len(histories) != 1 || histories[0].Action != "created" {
		t.Errorf("创建后应有一条 created 历史, got %+v", histories)
	}
}

func TestCreateExchange_Validation(t *testing.T) {
	f := newExchangeFixture()
	ctx := context.Background()

	cases := []struct {
		name    string
		req     dto.CreateExchangeRequest
		caller  string
		wantErr error
	}{
		{"和自己换班", dto.CreateExchangeRequest{RecipientID: "u-alice", RequesterShiftID: "p-alice", RecipientShiftID: "p-alice2"}, "u-alice", ErrSelfExchange},
		{"同一个班次", dto.CreateExchangeRequest{RecipientID: "u-bob", RequesterShiftID: "p-alice", RecipientShiftID: "p-alice"}, "u-alice", ErrSameShift},
		{"接收人不存在", dto.CreateExchangeRequest{RecipientID: "u-ghost", RequesterShiftID: "p-alice", RecipientShiftID: "p-bob"}, "u-alice", ErrUserNotFound},
		{"接收人不在岗", dto.CreateExchangeRequest{RecipientID: "u-idle", RequesterShiftID: "p-alice", RecipientShiftID: "p-bob"}, "u-alice", ErrRecipientInactive},
		{"班次不存在", dto.CreateExchangeRequest{RecipientID: "u-bob", RequesterShiftID: "p-ghost", RecipientShiftID: "p-bob"}, "u-alice", ErrShiftNotFound},
		{"申请人班次归属错误", dto.CreateExchangeRequest{RecipientID: "u-bob", RequesterShiftID: "p-eve", RecipientShiftID: "p-bob"}, "u-alice", ErrShiftNotOwned},
		{"接收人班次归属错误", dto.CreateExchangeRequest{RecipientID: "u-bob", RequesterShiftID: "p-alice", RecipientShiftID: "p-eve"}, "u-alice", ErrShiftNotOwned},
		{"过去的班次", dto.CreateExchangeRequest{RecipientID: "u-bob", RequesterShiftID: "p-past", RecipientShiftID: "p-bob"}, "u-alice", ErrShiftInPast},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, &tc.req, tc.caller)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateExchange_ShiftOccupied(t *testing.T) {
	f := newExchangeFixture()
	mustCreate(t, f)

	// p-bob 已被进行中的申请占用
	_, err := f.svc.Create(context.Background(), &dto.CreateExchangeRequest{
		RecipientID:      "u-bob",
		RequesterShiftID: "p-eve",
		RecipientShiftID: "p-bob",
	}, "u-eve")
	if !errors.Is(err, ErrShiftAlreadyCommitted) {
		t.Errorf("want ErrShiftAlreadyCommitted, got %v", err)
	}
}

// staleOwnershipExchangeRepo 在落库前把申请人班次的归属改走，
// 模拟服务层归属校验之后、插入之前被并发批准的互换抢先
type staleOwnershipExchangeRepo struct {
	*mockExchangeRepo
	plannings *mockPlanningRepo
}

func (r *staleOwnershipExchangeRepo) Create(ctx context.Context, req *model.ExchangeRequest) error {
	r.plannings.setAgent(req.RequesterShiftID, "u-eve")
	return r.mockExchangeRepo.Create(ctx, req)
}

func TestCreateExchange_OwnershipRecheckedAtCommit(t *testing.T) {
	f := newExchangeFixture()
	repo := &repository.Repository{
		User:            f.users,
		Planning:        f.plannings,
		Exchange:        &staleOwnershipExchangeRepo{mockExchangeRepo: f.exchanges, plannings: f.plannings},
		ExchangeHistory: f.histories,
	}
	cfg := &config.Config{}
	cfg.Export.StatsCacheTTL = time.Minute
	svc := NewExchangeService(cfg, repo, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), &dto.CreateExchangeRequest{
		RecipientID:      "u-bob",
		RequesterShiftID: "p-alice",
		RecipientShiftID: "p-bob",
	}, "u-alice")
	if !errors.Is(err, ErrShiftAlreadyCommitted) {
		t.Fatalf("锁下归属复核应拦下落库, got %v", err)
	}
	if n := len(f.exchanges.exchanges); n != 0 {
		t.Errorf("冲突申请不应落库, got %d", n)
	}
}

// ── Respond ──

func TestRespond_Accept(t *testing.T) {
	f := newExchangeFixture()
	created := mustCreate(t, f)

	resp, err := f.svc.Respond(context.Background(), created.ID,
		&dto.RespondExchangeRequest{Action: "accept", Comment: "ok pour moi"}, "u-bob")
	if err != nil {
		t.Fatalf("应答失败: %v", err)
	}
	if resp.Status != model.ExchangeAcceptedByAgent {
		t.Errorf("want accepted_by_agent, got %s", resp.Status)
	}
	if resp.RespondedAt == nil {
		t.Error("responded_at 应已写入")
	}
	if resp.DecidedAt != nil {
		t.Error("同意后还未进入终态，decided_at 应为空")
	}
	if resp.RecipientComment != "ok pour moi" {
		t.Errorf("接收人意见丢失: %q", resp.RecipientComment)
	}
}

func TestRespond_Reject(t *testing.T) {
	f := newExchangeFixture()
	created := mustCreate(t, f)

	resp, err := f.svc.Respond(context.Background(), created.ID,
		&dto.RespondExchangeRequest{Action: "reject"}, "u-bob")
	if err != nil {
		t.Fatalf("应答失败: %v", err)
	}
	if resp.Status != model.ExchangeRejectedByAgent {
		t.Errorf("want rejected_by_agent, got %s", resp.Status)
	}
	if resp.DecidedAt == nil {
		t.Error("拒绝是终态，decided_at 应已写入")
	}

	// 终态后班次不再被占用，可以重新发起
	if _, err := f.svc.Create(context.Background(), &dto.CreateExchangeRequest{
		RecipientID:      "u-bob",
		RequesterShiftID: "p-alice",
		RecipientShiftID: "p-bob",
	}, "u-alice"); err != nil {
		t.Errorf("终态后重新发起应成功: %v", err)
	}
}

func TestRespond_NotRecipient(t *testing.T) {
	f := newExchangeFixture()
	created := mustCreate(t, f)

	// 申请人自己不能应答
	if _, err := f.svc.Respond(context.Background(), created.ID,
		&dto.RespondExchangeRequest{Action: "accept"}, "u-alice"); !errors.Is(err, ErrNotRecipient) {
		t.Errorf("want ErrNotRecipient, got %v", err)
	}
}

func TestRespond_IdentityCheckedBeforeState(t *testing.T) {
	f := newExchangeFixture()
	created := mustCreate(t, f)
	if _, err := f.svc.Respond(context.Background(), created.ID,
		&dto.RespondExchangeRequest{Action: "accept"}, "u-bob"); err != nil {
		t.Fatalf("应答失败: %v", err)
	}

	// 无关用户对已流转的申请应答：应报无权，而不是暴露状态
	if _, err := f.svc.Respond(context.Background(), created.ID,
		&dto.RespondExchangeRequest{Action: "accept"}, "u-eve"); !errors.Is(err, ErrNotRecipient) {
		t.Errorf("want ErrNotRecipient, got %v", err)
	}

	// 接收人重复应答：此时才报状态错误
	if _, err := f.svc.Respond(context.Background(), created.ID,
		&dto.RespondExchangeRequest{Action: "reject"}, "u-bob"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("want ErrInvalidTransition, got %v", err)
	}
}

func TestRespond_SupervisorRecipientSeesDecideFlag(t *testing.T) {
	f := newExchangeFixture()
	ctx := context.Background()

	// 接收人同时持有监督员角色且参与排班
	f.users.users["u-supagent"] = &model.User{UserID: "u-supagent", Matricule: "M2003", FirstName: "Léa", LastName: "Bernard", Role: model.RoleSuperviseur, IsActiveAgent: true}
	f.plannings.plannings["p-supagent"] = &model.Planning{PlanningID: "p-supagent", AgentID: "u-supagent", Date: day(1), ServiceType: model.ServiceMatin, StartTime: strPtr("05:00"), EndTime: strPtr("13:00"), Line: "T8", Agent: f.users.users["u-supagent"]}

	created, err := f.svc.Create(ctx, &dto.CreateExchangeRequest{
		RecipientID:      "u-supagent",
		RequesterShiftID: "p-alice",
		RecipientShiftID: "p-supagent",
	}, "u-alice")
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	// 视角角色取用户目录记录，不能按坐席一刀切
	resp, err := f.svc.Respond(ctx, created.ID, &dto.RespondExchangeRequest{Action: "accept"}, "u-supagent")
	if err != nil {
		t.Fatalf("应答失败: %v", err)
	}
	if !resp.CanDecide {
		t.Error("监督员身份的接收人应答后应看到可裁决标志")
	}
}

// ── Decide ──

func TestDecide_Validate_SwapsShifts(t *testing.T) {
	f := newExchangeFixture()
	created := mustCreate(t, f)
	ctx := context.Background()
	if _, err := f.svc.Respond(ctx, created.ID, &dto.RespondExchangeRequest{Action: "accept"}, "u-bob"); err != nil {
		t.Fatalf("应答失败: %v", err)
	}

	resp, err := f.svc.Decide(ctx, created.ID,
		&dto.DecideExchangeRequest{Action: "validate", Comment: "bon pour accord"}, "u-sup")
	if err != nil {
		t.Fatalf("裁决失败: %v", err)
	}
	if resp.Status != model.ExchangeValidatedBySupervisor {
		t.Errorf("want validated_by_supervisor, got %s", resp.Status)
	}
	if resp.Supervisor == nil || resp.Supervisor.ID != "u-sup" {
		t.Errorf("裁决人未记录: %+v", resp.Supervisor)
	}
	if resp.DecidedAt == nil {
		t.Error("decided_at 应已写入")
	}
	if !resp.SwapApplied {
		t.Error("swap_applied 应为 true")
	}

	// 两条排班归属已互换
	pa, _ := f.plannings.GetByID(ctx, "p-alice")
	pb, _ := f.plannings.GetByID(ctx, "p-bob")
	if pa.AgentID != "u-bob" || pb.AgentID != "u-alice" {
		t.Errorf("班次未互换: p-alice→%s, p-bob→%s", pa.AgentID, pb.AgentID)
	}
}

func TestDecide_Reject_KeepsShifts(t *testing.T) {
	f := newExchangeFixture()
	created := mustCreate(t, f)
	ctx := context.Background()
	if _, err := f.svc.Respond(ctx, created.ID, &dto.RespondExchangeRequest{Action: "accept"}, "u-bob"); err != nil {
		t.Fatalf("应答失败: %v", err)
	}

	resp, err := f.svc.Decide(ctx, created.ID,
		&dto.DecideExchangeRequest{Action: "reject", Comment: "effectif insuffisant"}, "u-sup")
	if err != nil {
		t.Fatalf("裁决失败: %v", err)
	}
	if resp.Status != model.ExchangeRejectedBySupervisor {
		t.Errorf("want rejected_by_supervisor, got %s", resp.Status)
	}
	if resp.SwapApplied {
		t.Error("驳回时 swap_applied 应为 false")
	}

	pa, _ := f.plannings.GetByID(ctx, "p-alice")
	if pa.AgentID != "u-alice" {
		t.Errorf("驳回后班次归属不应变化, got %s", pa.AgentID)
	}
}

func TestDecide_RoleRequired(t *testing.T) {
	f := newExchangeFixture()
	created := mustCreate(t, f)
	ctx := context.Background()
	if _, err := f.svc.Respond(ctx, created.ID, &dto.RespondExchangeRequest{Action: "accept"}, "u-bob"); err != nil {
		t.Fatalf("应答失败: %v", err)
	}

	// 普通坐席（包括参与双方）不能裁决
	for _, caller := range []string{"u-alice", "u-bob", "u-eve"} {
		if _, err := f.svc.Decide(ctx, created.ID,
			&dto.DecideExchangeRequest{Action: "validate"}, caller); !errors.Is(err, ErrSupervisorRoleRequired) {
			t.Errorf("caller=%s: want ErrSupervisorRoleRequired, got %v", caller, err)
		}
	}
}

func TestDecide_RejectWithoutComment(t *testing.T) {
	f := newExchangeFixture()
	created := mustCreate(t, f)
	ctx := context.Background()
	if _, err := f.svc.Respond(ctx, created.ID, &dto.RespondExchangeRequest{Action: "accept"}, "u-bob"); err != nil {
		t.Fatalf("应答失败: %v", err)
	}

	// 驳回必须填写意见，纯空白也不行
	for _, comment := range []string{"", "   "} {
		if _, err := f.svc.Decide(ctx, created.ID,
			&dto.DecideExchangeRequest{Action: "reject", Comment: comment}, "u-sup"); !errors.Is(err, ErrCommentRequired) {
			t.Errorf("comment=%q: want ErrCommentRequired, got %v", comment, err)
		}
	}

	// 申请未被消费，补上意见后仍可驳回
	resp, err := f.svc.Decide(ctx, created.ID,
		&dto.DecideExchangeRequest{Action: "reject", Comment: "effectif insuffisant"}, "u-sup")
	if err != nil {
		t.Fatalf("裁决失败: %v", err)
	}
	if resp.Status != model.ExchangeRejectedBySupervisor {
		t.Errorf("unexpected status: %s", resp.Status)
	}
}

func TestDecide_WrongState(t *testing.T) {
	f := newExchangeFixture()
	created := mustCreate(t, f)

	// 接收人还没同意，不能裁决
	if _, err := f.svc.Decide(context.Background(), created.ID,
		&dto.DecideExchangeRequest{Action: "validate"}, "u-sup"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("want ErrInvalidTransition, got %v", err)
	}
}

func TestDecide_Concurrent(t *testing.T) {
	f := newExchangeFixture()
	created := mustCreate(t, f)
	ctx := context.Background()
	if _, err := f.svc.Respond(ctx, created.ID, &dto.RespondExchangeRequest{Action: "accept"}, "u-bob"); err != nil {
		t.Fatalf("应答失败: %v", err)
	}

	// 两个监督员同时裁决：恰好一个成功，另一个拿到并发冲突
	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = f.svc.Decide(ctx, created.ID, &dto.DecideExchangeRequest{Action: "validate"}, "u-sup")
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = f.svc.Decide(ctx, created.ID, &dto.DecideExchangeRequest{Action: "reject", Comment: "non"}, "u-sup2")
	}()
	wg.Wait()

	// 输家可能在 CAS 落败（ErrOptimisticLock），也可能在裁决前的
	// 状态读取就看到赢家已提交的终态（ErrInvalidTransition）——
	// 两者对外都是同一类状态冲突
	var okCount, conflictCount int
	for _, err := range errs {
		switch {
		case err == nil:
			okCount++
		case errors.Is(err, pkgerrors.ErrOptimisticLock), errors.Is(err, ErrInvalidTransition):
			conflictCount++
		default:
			t.Errorf("意外错误: %v", err)
		}
	}
	if okCount != 1 || conflictCount != 1 {
		t.Fatalf("应恰好一个成功一个冲突, ok=%d conflict=%d", okCount, conflictCount)
	}

	// 终态与班次归属一致：批准赢则已互换，驳回赢则未互换
	final, err := f.svc.Get(ctx, created.ID, "u-sup", model.RoleSuperviseur)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	pa, _ := f.plannings.GetByID(ctx, "p-alice")
	switch final.Status {
	case model.ExchangeValidatedBySupervisor:
		if pa.AgentID != "u-bob" {
			t.Error("批准后班次应已互换")
		}
	case model.ExchangeRejectedBySupervisor:
		if pa.AgentID != "u-alice" {
			t.Error("驳回后班次归属不应变化")
		}
	default:
		t.Errorf("终态异常: %s", final.Status)
	}
}

// ── Cancel ──

func TestCancel(t *testing.T) {
	f := newExchangeFixture()
	created := mustCreate(t, f)
	ctx := context.Background()

	resp, err := f.svc.Cancel(ctx, created.ID, "u-alice")
	if err != nil {
		t.Fatalf("撤回失败: %v", err)
	}
	if resp.Status != model.ExchangeCancelled {
		t.Errorf("want cancelled, got %s", resp.Status)
	}
	if resp.DecidedAt == nil {
		t.Error("撤回是终态，decided_at 应已写入")
	}
}

func TestCancel_AfterAccept(t *testing.T) {
	f := newExchangeFixture()
	created := mustCreate(t, f)
	ctx := context.Background()
	if _, err := f.svc.Respond(ctx, created.ID, &dto.RespondExchangeRequest{Action: "accept"}, "u-bob"); err != nil {
		t.Fatalf("应答失败: %v", err)
	}

	// 监督员裁决前申请人仍可撤回
	resp, err := f.svc.Cancel(ctx, created.ID, "u-alice")
	if err != nil {
		t.Fatalf("撤回失败: %v", err)
	}
	if resp.Status != model.ExchangeCancelled {
		t.Errorf("want cancelled, got %s", resp.Status)
	}
}

func TestCancel_Forbidden(t *testing.T) {
	f := newExchangeFixture()
	created := mustCreate(t, f)
	ctx := context.Background()

	for _, caller := range []string{"u-bob", "u-eve", "u-sup"} {
		if _, err := f.svc.Cancel(ctx, created.ID, caller); !errors.Is(err, ErrNotRequester) {
			t.Errorf("caller=%s: want ErrNotRequester, got %v", caller, err)
		}
	}
}

func TestCancel_Terminal(t *testing.T) {
	f := newExchangeFixture()
	created := mustCreate(t, f)
	ctx := context.Background()
	if _, err := f.svc.Respond(ctx, created.ID, &dto.RespondExchangeRequest{Action: "reject"}, "u-bob"); err != nil {
		t.Fatalf("应答失败: %v", err)
	}

	if _, err := f.svc.Cancel(ctx, created.ID, "u-alice"); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("want ErrInvalidTransition, got %v", err)
	}
}

// ── 查询与可见性 ──

func TestGet_Visibility(t *testing.T) {
	f := newExchangeFixture()
	created := mustCreate(t, f)
	ctx := context.Background()

	// 参与双方与监督员可见
	for _, c := range []struct{ id, role string }{
		{"u-alice", model.RoleAgent},
		{"u-bob", model.RoleAgent},
		{"u-sup", model.RoleSuperviseur},
	} {
		if _, err := f.svc.Get(ctx, created.ID, c.id, c.role); err != nil {
			t.Errorf("caller=%s: 应可见, got %v", c.id, err)
		}
	}

	// 无关坐席不可见
	if _, err := f.svc.Get(ctx, created.ID, "u-eve", model.RoleAgent); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("want ErrNotParticipant, got %v", err)
	}

	if _, err := f.svc.Get(ctx, "ex-ghost", "u-alice", model.RoleAgent); !errors.Is(err, ErrExchangeNotFound) {
		t.Errorf("want ErrExchangeNotFound, got %v", err)
	}
}

func TestListForAgent_Directions(t *testing.T) {
	f := newExchangeFixture()
	ctx := context.Background()
	mustCreate(t, f) // alice → bob

	// bob → alice 再来一条（换第二天的班）
	if _, err := f.svc.Create(ctx, &dto.CreateExchangeRequest{
		RecipientID:      "u-alice",
		RequesterShiftID: "p-bob2",
		RecipientShiftID: "p-alice2",
	}, "u-bob"); err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	sent, total, err := f.svc.ListForAgent(ctx, &dto.ExchangeListRequest{Direction: "sent"}, "u-alice", model.RoleAgent)
	if err != nil || total != 1 || len(sent) != 1 {
		t.Errorf("sent: want 1, got total=%d err=%v", total, err)
	}
	_, total, err = f.svc.ListForAgent(ctx, &dto.ExchangeListRequest{Direction: "received"}, "u-alice", model.RoleAgent)
	if err != nil || total != 1 {
		t.Errorf("received: want 1, got total=%d err=%v", total, err)
	}
	_, total, err = f.svc.ListForAgent(ctx, &dto.ExchangeListRequest{}, "u-alice", model.RoleAgent)
	if err != nil || total != 2 {
		t.Errorf("all: want 2, got total=%d err=%v", total, err)
	}
	_, total, err = f.svc.ListForAgent(ctx, &dto.ExchangeListRequest{}, "u-eve", model.RoleAgent)
	if err != nil || total != 0 {
		t.Errorf("无关坐席: want 0, got total=%d err=%v", total, err)
	}
}

func TestListPendingSupervisor(t *testing.T) {
	f := newExchangeFixture()
	created := mustCreate(t, f)
	ctx := context.Background()

	if _, _, err := f.svc.ListPendingSupervisor(ctx, &dto.PaginationRequest{}, "u-alice", model.RoleAgent); !errors.Is(err, ErrSupervisorRoleRequired) {
		t.Errorf("坐席不应能看待裁决列表, got %v", err)
	}

	// 接收人同意前列表为空
	_, total, err := f.svc.ListPendingSupervisor(ctx, &dto.PaginationRequest{}, "u-sup", model.RoleSuperviseur)
	if err != nil || total != 0 {
		t.Errorf("want 0, got total=%d err=%v", total, err)
	}

	if _, err := f.svc.Respond(ctx, created.ID, &dto.RespondExchangeRequest{Action: "accept"}, "u-bob"); err != nil {
		t.Fatalf("应答失败: %v", err)
	}
	list, total, err := f.svc.ListPendingSupervisor(ctx, &dto.PaginationRequest{}, "u-sup", model.RoleSuperviseur)
	if err != nil || total != 1 || len(list) != 1 {
		t.Fatalf("want 1, got total=%d err=%v", total, err)
	}
	if !list[0].CanDecide {
		t.Error("监督员视角应可裁决")
	}
}

func TestListHistory_FullLifecycle(t *testing.T) {
	f := newExchangeFixture()
	created := mustCreate(t, f)
	ctx := context.Background()

	if _, err := f.svc.Respond(ctx, created.ID, &dto.RespondExchangeRequest{Action: "accept", Comment: "ok"}, "u-bob"); err != nil {
		t.Fatalf("应答失败: %v", err)
	}
	if _, err := f.svc.Decide(ctx, created.ID, &dto.DecideExchangeRequest{Action: "validate"}, "u-sup"); err != nil {
		t.Fatalf("裁决失败: %v", err)
	}

	histories, err := f.svc.ListHistory(ctx, created.ID, "u-alice", model.RoleAgent)
	if err != nil {
		t.Fatalf("查询历史失败: %v", err)
	}
	wantActions := []string{"created", model.ExchangeAcceptedByAgent, model.ExchangeValidatedBySupervisor}
	if len(histories) != len(wantActions) {
		t.Fatalf("want %d 条历史, got %d", len(wantActions), len(histories))
	}
	for i, want := range wantActions {
		if histories[i].Action != want {
			t.Errorf("第 %d 条历史 want %s, got %s", i, want, histories[i].Action)
		}
	}

	// 历史的可见性与申请一致
	if _, err := f.svc.ListHistory(ctx, created.ID, "u-eve", model.RoleAgent); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("want ErrNotParticipant, got %v", err)
	}
}

// ── 统计 ──

func TestStatistics(t *testing.T) {
	f := newExchangeFixture()
	ctx := context.Background()

	if _, err := f.svc.Statistics(ctx, &dto.ExchangeStatsRequest{}, model.RoleAgent); !errors.Is(err, ErrSupervisorRoleRequired) {
		t.Errorf("坐席不应能看统计, got %v", err)
	}

	// 一条批准，一条驳回，一条待处理
	e1 := mustCreate(t, f)
	if _, err := f.svc.Respond(ctx, e1.ID, &dto.RespondExchangeRequest{Action: "accept"}, "u-bob"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Decide(ctx, e1.ID, &dto.DecideExchangeRequest{Action: "validate"}, "u-sup"); err != nil {
		t.Fatal(err)
	}

	e2, err := f.svc.Create(ctx, &dto.CreateExchangeRequest{
		RecipientID:      "u-eve",
		RequesterShiftID: "p-bob2",
		RecipientShiftID: "p-eve",
	}, "u-bob")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Respond(ctx, e2.ID, &dto.RespondExchangeRequest{Action: "accept"}, "u-eve"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Decide(ctx, e2.ID, &dto.DecideExchangeRequest{Action: "reject", Comment: "non"}, "u-sup"); err != nil {
		t.Fatal(err)
	}

	// 互换后 p-alice 归 bob，bob 拿它再发起一条，保持 pending
	if _, err := f.svc.Create(ctx, &dto.CreateExchangeRequest{
		RecipientID:      "u-alice",
		RequesterShiftID: "p-alice",
		RecipientShiftID: "p-bob",
	}, "u-bob"); err != nil {
		t.Fatal(err)
	}

	stats, err := f.svc.Statistics(ctx, &dto.ExchangeStatsRequest{}, model.RoleSuperviseur)
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("total want 3, got %d", stats.Total)
	}
	if stats.Pending != 1 {
		t.Errorf("pending want 1, got %d", stats.Pending)
	}
	if stats.Validated != 1 {
		t.Errorf("validated want 1, got %d", stats.Validated)
	}
	if stats.ApprovalRate != 0.5 {
		t.Errorf("approval_rate want 0.5, got %f", stats.ApprovalRate)
	}
}

func TestStatistics_DateRange(t *testing.T) {
	f := newExchangeFixture()
	ctx := context.Background()

	// 一条当期申请，一条上个月的
	mustCreate(t, f)
	old, err := f.svc.Create(ctx, &dto.CreateExchangeRequest{
		RecipientID:      "u-eve",
		RequesterShiftID: "p-alice2",
		RecipientShiftID: "p-eve",
	}, "u-alice")
	if err != nil {
		t.Fatal(err)
	}
	f.exchanges.exchanges[old.ID].CreatedAt = time.Now().AddDate(0, -1, 0)

	stats, err := f.svc.Statistics(ctx, &dto.ExchangeStatsRequest{
		From: day(-7).Format(dateLayout),
		To:   day(1).Format(dateLayout),
	}, model.RoleSuperviseur)
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	if stats.Total != 1 {
		t.Errorf("区间内 total want 1, got %d", stats.Total)
	}

	all, err := f.svc.Statistics(ctx, &dto.ExchangeStatsRequest{}, model.RoleSuperviseur)
	if err != nil {
		t.Fatalf("统计失败: %v", err)
	}
	if all.Total != 2 {
		t.Errorf("无区间 total want 2, got %d", all.Total)
	}

	// from 晚于 to
	if _, err := f.svc.Statistics(ctx, &dto.ExchangeStatsRequest{
		From: day(0).Format(dateLayout),
		To:   day(-7).Format(dateLayout),
	}, model.RoleSuperviseur); !errors.Is(err, ErrInvalidDateRange) {
		t.Errorf("want ErrInvalidDateRange, got %v", err)
	}
}
