package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"shiftdrop/backend/internal/dto"
	"shiftdrop/backend/internal/model"
	"shiftdrop/backend/internal/repository"
	"shiftdrop/backend/pkg/clock"
)

// ── 测试辅助 ──

// 2026-03-02 是周一
var testBase = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type claimTestEnv struct {
	svc   ClaimService
	repo  *repository.Repository
	mocks *mockRepos
	clock *clock.Fake
}

func setupTestClaimService() *claimTestEnv {
	repo, mocks := newMockRepos()
	clk := clock.NewFake(testBase)
	svc := NewClaimService(testConfig(), repo, clk, zap.NewNop())
	return &claimTestEnv{svc: svc, repo: repo, mocks: mocks, clock: clk}
}

func (e *claimTestEnv) seedPool(ownerID string) *model.Pool {
	pool := &model.Pool{PoolID: "pool-1", Name: "测试用工池", OwnerID: ownerID}
	e.mocks.pools.pools[pool.PoolID] = pool
	return pool
}

func (e *claimTestEnv) seedActiveCasual(id, name, phone string) *model.Casual {
	c := &model.Casual{
		CasualID:     id,
		PoolID:       "pool-1",
		Name:         name,
		PhoneNumber:  phone,
		InviteStatus: model.CasualInviteAccepted,
		InvitedAt:    testBase.Add(-48 * time.Hour),
		Availability: fullAvailability(id),
	}
	e.mocks.casuals.casuals[id] = c
	return c
}

// seedShift 当天 09:00-17:00 的班次
func (e *claimTestEnv) seedShift(id string, spotsNeeded, spotsRemaining int, status string) *model.Shift {
	s := &model.Shift{
		ShiftID:        id,
		PoolID:         "pool-1",
		StartsAt:       time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		EndsAt:         time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC),
		SpotsNeeded:    spotsNeeded,
		SpotsRemaining: spotsRemaining,
		Status:         status,
	}
	_ = e.mocks.shifts.Create(context.Background(), s)
	return s
}

func (e *claimTestEnv) seedToken(token, shiftID, casualID, status string, createdAt time.Time) *model.ShiftNotification {
	n := &model.ShiftNotification{
		ShiftID:     shiftID,
		CasualID:    casualID,
		ClaimToken:  token,
		TokenStatus: status,
		CreatedAt:   createdAt,
	}
	_ = e.mocks.notifications.Create(context.Background(), n)
	return n
}

func (e *claimTestEnv) storedShift(t *testing.T, id string) *model.Shift {
	t.Helper()
	s, err := e.mocks.shifts.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("读取班次失败: %v", err)
	}
	return s
}

// ── applyClaim 前置条件顺序 ──

func TestApplyClaim_PreconditionOrder(t *testing.T) {
	activeCasual := &model.Casual{CasualID: "cas-1", InviteStatus: model.CasualInviteAccepted}
	optedOut := testBase
	inactiveCasual := &model.Casual{CasualID: "cas-1", InviteStatus: model.CasualInviteAccepted, OptedOutAt: &optedOut}

	tests := []struct {
		name    string
		shift   *model.Shift
		casual  *model.Casual
		wantErr error
	}{
		{
			// 取消优先于满员：两者同时成立时报取消
			name:    "已取消且无名额报取消",
			shift:   &model.Shift{Status: model.ShiftCancelled, SpotsRemaining: 0},
			casual:  activeCasual,
			wantErr: ErrShiftCancelled,
		},
		{
			name:    "满员报满员",
			shift:   &model.Shift{Status: model.ShiftFilled, SpotsRemaining: 0},
			casual:  activeCasual,
			wantErr: ErrShiftFilled,
		},
		{
			// status 未同步但名额为零同样报满员
			name:    "open 状态名额为零报满员",
			shift:   &model.Shift{Status: model.ShiftOpen, SpotsRemaining: 0},
			casual:  activeCasual,
			wantErr: ErrShiftFilled,
		},
		{
			// 重复认领优先于零工失活
			name: "已认领且失活报重复认领",
			shift: &model.Shift{
				Status:         model.ShiftOpen,
				SpotsRemaining: 1,
				Claims:         []model.ShiftClaim{{CasualID: "cas-1", Status: model.ClaimClaimed}},
			},
			casual:  inactiveCasual,
			wantErr: ErrAlreadyClaimed,
		},
		{
			name:    "失活报失活",
			shift:   &model.Shift{Status: model.ShiftOpen, SpotsRemaining: 1},
			casual:  inactiveCasual,
			wantErr: ErrCasualNotActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := applyClaim(tt.shift, tt.casual, testBase)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际: %v", tt.wantErr, err)
			}
		})
	}
}

func TestApplyClaim_DecrementsAndFills(t *testing.T) {
	shift := &model.Shift{Status: model.ShiftOpen, SpotsNeeded: 2, SpotsRemaining: 1}
	casual := &model.Casual{CasualID: "cas-1", InviteStatus: model.CasualInviteAccepted}

	claim, err := applyClaim(shift, casual, testBase)
	if err != nil {
		t.Fatalf("applyClaim 应成功: %v", err)
	}
	if shift.SpotsRemaining != 0 {
		t.Errorf("期望剩余名额=0，实际=%d", shift.SpotsRemaining)
	}
	if shift.Status != model.ShiftFilled {
		t.Errorf("最后一个名额认领后应为 filled，实际=%s", shift.Status)
	}
	if claim.Status != model.ClaimClaimed {
		t.Errorf("期望认领状态=claimed，实际=%s", claim.Status)
	}
	if !claim.ClaimedAt.Equal(testBase) {
		t.Errorf("ClaimedAt 应取注入时钟时间，实际=%v", claim.ClaimedAt)
	}
}

// ── ClaimByToken ──

func TestClaimService_ClaimByToken_Success(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	env.seedActiveCasual("cas-1", "张三", "+61400000001")
	env.seedShift("shift-1", 3, 3, model.ShiftOpen)
	env.seedToken("tok-1", "shift-1", "cas-1", model.TokenPending, testBase)

	result, err := env.svc.ClaimByToken(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("ClaimByToken 应成功: %v", err)
	}
	if result.Claim.Status != model.ClaimClaimed {
		t.Errorf("期望认领状态=claimed，实际=%s", result.Claim.Status)
	}
	if result.Shift.SpotsRemaining != 2 {
		t.Errorf("期望剩余名额=2，实际=%d", result.Shift.SpotsRemaining)
	}
	if result.Shift.Status != model.ShiftOpen {
		t.Errorf("仍有名额时应保持 open，实际=%s", result.Shift.Status)
	}

	// 令牌应被核销
	n, err := env.mocks.notifications.GetByToken(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("读取通知失败: %v", err)
	}
	if n.TokenStatus != model.TokenUsed {
		t.Errorf("认领后令牌应为 used，实际=%s", n.TokenStatus)
	}
	if n.UsedAt == nil || !n.UsedAt.Equal(testBase) {
		t.Errorf("UsedAt 应取注入时钟时间，实际=%v", n.UsedAt)
	}
}

func TestClaimService_ClaimByToken_SingleUse(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	env.seedActiveCasual("cas-1", "张三", "+61400000001")
	env.seedShift("shift-1", 3, 3, model.ShiftOpen)
	env.seedToken("tok-1", "shift-1", "cas-1", model.TokenPending, testBase)

	if _, err := env.svc.ClaimByToken(context.Background(), "tok-1"); err != nil {
		t.Fatalf("首次认领应成功: %v", err)
	}

	_, err := env.svc.ClaimByToken(context.Background(), "tok-1")
	if !errors.Is(err, ErrTokenUsed) {
		t.Errorf("期望 ErrTokenUsed，实际: %v", err)
	}

	// 重放不应产生第二条认领或再扣名额
	shift := env.storedShift(t, "shift-1")
	if shift.SpotsRemaining != 2 {
		t.Errorf("重放后剩余名额应仍为 2，实际=%d", shift.SpotsRemaining)
	}
	if len(shift.Claims) != 1 {
		t.Errorf("重放后应仍只有 1 条认领，实际=%d", len(shift.Claims))
	}
}

func TestClaimService_ClaimByToken_TokenErrors(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	env.seedActiveCasual("cas-1", "张三", "+61400000001")
	env.seedShift("shift-1", 3, 3, model.ShiftOpen)
	env.seedToken("tok-used", "shift-1", "cas-1", model.TokenUsed, testBase)
	env.seedToken("tok-revoked", "shift-1", "cas-1", model.TokenRevoked, testBase)
	env.seedToken("tok-old", "shift-1", "cas-1", model.TokenPending, testBase.Add(-model.ClaimTokenValidity))

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"未知令牌", "tok-nonexistent", ErrTokenInvalid},
		{"已使用令牌", "tok-used", ErrTokenUsed},
		{"已吊销令牌", "tok-revoked", ErrTokenRevoked},
		{"过期令牌", "tok-old", ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.ClaimByToken(context.Background(), tt.token)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际: %v", tt.wantErr, err)
			}
		})
	}
}

func TestClaimService_ClaimByToken_ExpiresAfterValidityWindow(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	env.seedActiveCasual("cas-1", "张三", "+61400000001")
	env.seedShift("shift-1", 3, 3, model.ShiftOpen)
	env.seedToken("tok-1", "shift-1", "cas-1", model.TokenPending, testBase)

	// 有效窗口最后一刻仍可认领
	env.clock.Set(testBase.Add(model.ClaimTokenValidity - time.Minute))
	if _, err := env.svc.PreviewToken(context.Background(), "tok-1"); err != nil {
		t.Fatalf("窗口内预览应成功: %v", err)
	}

	// 拨过 7 天窗口后拒绝
	env.clock.Set(testBase.Add(model.ClaimTokenValidity))
	_, err := env.svc.ClaimByToken(context.Background(), "tok-1")
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("期望 ErrTokenExpired，实际: %v", err)
	}
}

func TestClaimService_ClaimByToken_ShiftFilled(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	env.seedActiveCasual("cas-1", "张三", "+61400000001")
	env.seedShift("shift-1", 2, 0, model.ShiftFilled)
	env.seedToken("tok-1", "shift-1", "cas-1", model.TokenPending, testBase)

	_, err := env.svc.ClaimByToken(context.Background(), "tok-1")
	if !errors.Is(err, ErrShiftFilled) {
		t.Errorf("期望 ErrShiftFilled，实际: %v", err)
	}

	// 失败的认领不应核销令牌：名额释放后仍可用
	n, _ := env.mocks.notifications.GetByToken(context.Background(), "tok-1")
	if n.TokenStatus != model.TokenPending {
		t.Errorf("认领失败后令牌应保持 pending，实际=%s", n.TokenStatus)
	}
}

// ── 并发仲裁 ──

// 最后一个名额被并发抢认：恰有一个赢家，其余收到冲突或满员错误
func TestClaimService_ClaimByToken_ConcurrentLastSpot(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	env.seedShift("shift-1", 1, 1, model.ShiftOpen)

	const n = 16
	tokens := make([]string, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("cas-%02d", i)
		env.seedActiveCasual(id, "零工", fmt.Sprintf("+614000000%02d", i))
		env.seedToken("tok-"+id, "shift-1", id, model.TokenPending, testBase)
		tokens[i] = "tok-" + id
	}

	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = env.svc.ClaimByToken(context.Background(), tokens[i])
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrClaimConflict) || errors.Is(err, ErrShiftFilled):
			conflicts++
		default:
			t.Errorf("并发失败应为冲突或满员，实际: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("期望恰好 1 个赢家，实际=%d", wins)
	}
	if conflicts != n-1 {
		t.Errorf("期望 %d 个冲突，实际=%d", n-1, conflicts)
	}

	shift := env.storedShift(t, "shift-1")
	if shift.SpotsRemaining != 0 {
		t.Errorf("期望剩余名额=0，实际=%d", shift.SpotsRemaining)
	}
	if shift.Status != model.ShiftFilled {
		t.Errorf("期望状态=filled，实际=%s", shift.Status)
	}
	active := 0
	for _, c := range shift.Claims {
		if c.Status == model.ClaimClaimed {
			active++
		}
	}
	if active != 1 {
		t.Errorf("有效认领数不得超过名额：期望 1，实际=%d", active)
	}
}

// ── Web 端认领 ──

func TestClaimService_Claim_Success(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	env.seedActiveCasual("cas-1", "张三", "+61400000001")
	env.seedShift("shift-1", 2, 2, model.ShiftOpen)

	result, err := env.svc.Claim(context.Background(), "pool-1", "shift-1",
		&dto.WebClaimRequest{CasualID: "cas-1"}, "mgr-1")
	if err != nil {
		t.Fatalf("Claim 应成功: %v", err)
	}
	if result.Shift.SpotsRemaining != 1 {
		t.Errorf("期望剩余名额=1，实际=%d", result.Shift.SpotsRemaining)
	}
}

func TestClaimService_Claim_AlreadyClaimed(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	env.seedActiveCasual("cas-1", "张三", "+61400000001")
	env.seedShift("shift-1", 3, 3, model.ShiftOpen)

	if _, err := env.svc.Claim(context.Background(), "pool-1", "shift-1",
		&dto.WebClaimRequest{CasualID: "cas-1"}, "mgr-1"); err != nil {
		t.Fatalf("首次认领应成功: %v", err)
	}

	_, err := env.svc.Claim(context.Background(), "pool-1", "shift-1",
		&dto.WebClaimRequest{CasualID: "cas-1"}, "mgr-1")
	if !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("期望 ErrAlreadyClaimed，实际: %v", err)
	}
}

func TestClaimService_Claim_InactiveCasual(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	c := env.seedActiveCasual("cas-1", "张三", "+61400000001")
	optedOut := testBase
	c.OptedOutAt = &optedOut
	env.seedShift("shift-1", 3, 3, model.ShiftOpen)

	_, err := env.svc.Claim(context.Background(), "pool-1", "shift-1",
		&dto.WebClaimRequest{CasualID: "cas-1"}, "mgr-1")
	if !errors.Is(err, ErrCasualNotActive) {
		t.Errorf("期望 ErrCasualNotActive，实际: %v", err)
	}
}

func TestClaimService_Claim_UnauthorizedManagerSeesNotFound(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	env.seedActiveCasual("cas-1", "张三", "+61400000001")
	env.seedShift("shift-1", 3, 3, model.ShiftOpen)

	_, err := env.svc.Claim(context.Background(), "pool-1", "shift-1",
		&dto.WebClaimRequest{CasualID: "cas-1"}, "mgr-other")
	if !errors.Is(err, ErrPoolNotFound) {
		t.Errorf("越权经理应与不存在不可区分，期望 ErrPoolNotFound，实际: %v", err)
	}
}

func TestClaimService_Claim_CrossPoolCasual(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	env.seedShift("shift-1", 3, 3, model.ShiftOpen)
	// 其他池的零工
	other := env.seedActiveCasual("cas-other", "李四", "+61400000099")
	other.PoolID = "pool-2"

	_, err := env.svc.Claim(context.Background(), "pool-1", "shift-1",
		&dto.WebClaimRequest{CasualID: "cas-other"}, "mgr-1")
	if !errors.Is(err, ErrCasualNotFound) {
		t.Errorf("跨池零工应视为不存在，期望 ErrCasualNotFound，实际: %v", err)
	}
}

// ── 班次填满场景 ──

// 两个名额、三个候选：前两人成功，第三人报满员
func TestClaimService_FillScenario(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	env.seedShift("shift-1", 2, 2, model.ShiftOpen)
	for _, id := range []string{"cas-a", "cas-b", "cas-c"} {
		env.seedActiveCasual(id, "零工"+id, "+614000"+id)
		env.seedToken("tok-"+id, "shift-1", id, model.TokenPending, testBase)
	}

	if _, err := env.svc.ClaimByToken(context.Background(), "tok-cas-a"); err != nil {
		t.Fatalf("A 认领应成功: %v", err)
	}

	resultB, err := env.svc.ClaimByToken(context.Background(), "tok-cas-b")
	if err != nil {
		t.Fatalf("B 认领应成功: %v", err)
	}
	if resultB.Shift.Status != model.ShiftFilled {
		t.Errorf("第二个名额认领后应为 filled，实际=%s", resultB.Shift.Status)
	}

	_, err = env.svc.ClaimByToken(context.Background(), "tok-cas-c")
	if !errors.Is(err, ErrShiftFilled) {
		t.Errorf("期望 ErrShiftFilled，实际: %v", err)
	}
}

// ── Bail ──

func TestClaimService_Bail_ReopensAndRenotifies(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	env.seedShift("shift-1", 1, 1, model.ShiftOpen)
	env.seedActiveCasual("cas-1", "张三", "+61400000001")
	env.seedActiveCasual("cas-2", "李四", "+61400000002")
	env.seedToken("tok-1", "shift-1", "cas-1", model.TokenPending, testBase)

	if _, err := env.svc.ClaimByToken(context.Background(), "tok-1"); err != nil {
		t.Fatalf("认领应成功: %v", err)
	}
	if env.storedShift(t, "shift-1").Status != model.ShiftFilled {
		t.Fatal("认领后应为 filled")
	}

	result, err := env.svc.Bail(context.Background(), "tok-1",
		&dto.BailRequest{PhoneNumber: "+61400000001"})
	if err != nil {
		t.Fatalf("Bail 应成功: %v", err)
	}
	if result.Claim.Status != model.ClaimBailed {
		t.Errorf("期望认领状态=bailed，实际=%s", result.Claim.Status)
	}

	shift := env.storedShift(t, "shift-1")
	if shift.SpotsRemaining != 1 {
		t.Errorf("释放后剩余名额应为 1，实际=%d", shift.SpotsRemaining)
	}
	if shift.Status != model.ShiftOpen {
		t.Errorf("释放后应回到 open，实际=%s", shift.Status)
	}

	// 重新通知其余零工，排除刚退出者
	if result.Notified != 1 {
		t.Errorf("期望重新通知 1 人，实际=%d", result.Notified)
	}
	for _, msg := range env.mocks.outbox.messages {
		if msg.RecipientContact == "+61400000001" {
			t.Error("退出者不应再收到该班次通知")
		}
	}
}

func TestClaimService_Bail_PhoneMismatch(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	env.seedShift("shift-1", 1, 1, model.ShiftOpen)
	env.seedActiveCasual("cas-1", "张三", "+61400000001")
	env.seedToken("tok-1", "shift-1", "cas-1", model.TokenPending, testBase)

	if _, err := env.svc.ClaimByToken(context.Background(), "tok-1"); err != nil {
		t.Fatalf("认领应成功: %v", err)
	}

	_, err := env.svc.Bail(context.Background(), "tok-1",
		&dto.BailRequest{PhoneNumber: "+61400000099"})
	if !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("手机号不匹配应与无效链接不可区分，期望 ErrTokenInvalid，实际: %v", err)
	}
}

func TestClaimService_Bail_NoActiveClaim(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	env.seedShift("shift-1", 1, 1, model.ShiftOpen)
	env.seedActiveCasual("cas-1", "张三", "+61400000001")
	env.seedToken("tok-1", "shift-1", "cas-1", model.TokenPending, testBase)

	_, err := env.svc.Bail(context.Background(), "tok-1",
		&dto.BailRequest{PhoneNumber: "+61400000001"})
	if !errors.Is(err, ErrNoActiveClaim) {
		t.Errorf("未认领时 Bail 应报 ErrNoActiveClaim，实际: %v", err)
	}
}

// ── ManagerRelease ──

func TestClaimService_ManagerRelease_Success(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	env.seedShift("shift-1", 1, 1, model.ShiftOpen)
	env.seedActiveCasual("cas-1", "张三", "+61400000001")
	env.seedActiveCasual("cas-2", "李四", "+61400000002")
	env.seedToken("tok-1", "shift-1", "cas-1", model.TokenPending, testBase)

	if _, err := env.svc.ClaimByToken(context.Background(), "tok-1"); err != nil {
		t.Fatalf("认领应成功: %v", err)
	}

	result, err := env.svc.ManagerRelease(context.Background(), "pool-1", "shift-1",
		&dto.ManagerReleaseRequest{CasualID: "cas-1"}, "mgr-1")
	if err != nil {
		t.Fatalf("ManagerRelease 应成功: %v", err)
	}
	if result.Claim.Status != model.ClaimReleasedByManager {
		t.Errorf("期望认领状态=released_by_manager，实际=%s", result.Claim.Status)
	}

	shift := env.storedShift(t, "shift-1")
	if shift.SpotsRemaining != 1 || shift.Status != model.ShiftOpen {
		t.Errorf("释放后应回到 open/1，实际=%s/%d", shift.Status, shift.SpotsRemaining)
	}
}

// 重复释放幂等性：第二次释放报无有效认领，状态不再变化
func TestClaimService_ManagerRelease_Idempotent(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	env.seedShift("shift-1", 2, 2, model.ShiftOpen)
	env.seedActiveCasual("cas-1", "张三", "+61400000001")
	env.seedToken("tok-1", "shift-1", "cas-1", model.TokenPending, testBase)

	if _, err := env.svc.ClaimByToken(context.Background(), "tok-1"); err != nil {
		t.Fatalf("认领应成功: %v", err)
	}
	if _, err := env.svc.ManagerRelease(context.Background(), "pool-1", "shift-1",
		&dto.ManagerReleaseRequest{CasualID: "cas-1"}, "mgr-1"); err != nil {
		t.Fatalf("首次释放应成功: %v", err)
	}

	_, err := env.svc.ManagerRelease(context.Background(), "pool-1", "shift-1",
		&dto.ManagerReleaseRequest{CasualID: "cas-1"}, "mgr-1")
	if !errors.Is(err, ErrNoActiveClaim) {
		t.Errorf("期望 ErrNoActiveClaim，实际: %v", err)
	}

	// 名额不得重复归还
	shift := env.storedShift(t, "shift-1")
	if shift.SpotsRemaining != 2 {
		t.Errorf("期望剩余名额=2，实际=%d", shift.SpotsRemaining)
	}
}

func TestClaimService_ManagerRelease_Unauthorized(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	env.seedShift("shift-1", 1, 1, model.ShiftOpen)

	_, err := env.svc.ManagerRelease(context.Background(), "pool-1", "shift-1",
		&dto.ManagerReleaseRequest{CasualID: "cas-1"}, "mgr-other")
	if !errors.Is(err, ErrPoolNotFound) {
		t.Errorf("期望 ErrPoolNotFound，实际: %v", err)
	}
}

// ── PreviewToken ──

func TestClaimService_PreviewToken(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	env.seedActiveCasual("cas-1", "张三", "+61400000001")
	env.seedShift("shift-1", 2, 2, model.ShiftOpen)
	env.seedToken("tok-1", "shift-1", "cas-1", model.TokenPending, testBase)

	preview, err := env.svc.PreviewToken(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("PreviewToken 应成功: %v", err)
	}
	if !preview.Claimable {
		t.Errorf("期望可认领，实际原因=%s", preview.Reason)
	}
	if preview.CasualName != "张三" {
		t.Errorf("期望 CasualName=张三，实际=%s", preview.CasualName)
	}
}

func TestClaimService_PreviewToken_NotClaimable(t *testing.T) {
	env := setupTestClaimService()
	env.seedPool("mgr-1")
	env.seedActiveCasual("cas-1", "张三", "+61400000001")
	env.seedShift("shift-filled", 1, 0, model.ShiftFilled)
	env.seedToken("tok-filled", "shift-filled", "cas-1", model.TokenPending, testBase)
	env.seedShift("shift-ok", 1, 1, model.ShiftOpen)
	env.seedToken("tok-revoked", "shift-ok", "cas-1", model.TokenRevoked, testBase)

	preview, err := env.svc.PreviewToken(context.Background(), "tok-filled")
	if err != nil {
		t.Fatalf("PreviewToken 应成功: %v", err)
	}
	if preview.Claimable {
		t.Error("满员班次不应可认领")
	}
	if preview.Reason != ErrShiftFilled.Error() {
		t.Errorf("期望原因=%s，实际=%s", ErrShiftFilled.Error(), preview.Reason)
	}

	preview, err = env.svc.PreviewToken(context.Background(), "tok-revoked")
	if err != nil {
		t.Fatalf("PreviewToken 应成功: %v", err)
	}
	if preview.Claimable || preview.Reason != ErrTokenRevoked.Error() {
		t.Errorf("吊销令牌预览应给出吊销原因，实际=%s", preview.Reason)
	}
}
