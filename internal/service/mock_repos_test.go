package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"shiftdrop/backend/config"
	"shiftdrop/backend/internal/model"
	"shiftdrop/backend/internal/repository"
	pkgerrors "shiftdrop/backend/pkg/errors"
)

// ── Mock ManagerRepository ──

type mockManagerRepo struct {
	managers map[string]*model.Manager
}

func newMockManagerRepo() *mockManagerRepo {
	return &mockManagerRepo{managers: make(map[string]*model.Manager)}
}

func (m *mockManagerRepo) Create(_ context.Context, manager *model.Manager) error {
	if manager.ManagerID == "" {
		manager.ManagerID = "mgr-" + manager.Email
	}
	m.managers[manager.ManagerID] = manager
	return nil
}

func (m *mockManagerRepo) GetByID(_ context.Context, id string) (*model.Manager, error) {
	if mgr, ok := m.managers[id]; ok {
		return mgr, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockManagerRepo) GetByEmail(_ context.Context, email string) (*model.Manager, error) {
	for _, mgr := range m.managers {
		if mgr.Email == email {
			return mgr, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockManagerRepo) Update(_ context.Context, manager *model.Manager) error {
	m.managers[manager.ManagerID] = manager
	return nil
}

// ── Mock PoolRepository ──

// mockPoolRepo 依赖 admin mock 实现 GetAuthorized 的协管员分支
type mockPoolRepo struct {
	pools  map[string]*model.Pool
	admins *mockPoolAdminRepo
}

func newMockPoolRepo(admins *mockPoolAdminRepo) *mockPoolRepo {
	return &mockPoolRepo{pools: make(map[string]*model.Pool), admins: admins}
}

func (m *mockPoolRepo) Create(_ context.Context, pool *model.Pool) error {
	if pool.PoolID == "" {
		pool.PoolID = "pool-" + pool.Name
	}
	if pool.Version == 0 {
		pool.Version = 1
	}
	m.pools[pool.PoolID] = pool
	return nil
}

func (m *mockPoolRepo) GetByID(_ context.Context, id string) (*model.Pool, error) {
	if p, ok := m.pools[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPoolRepo) GetAuthorized(_ context.Context, poolID, managerID string) (*model.Pool, error) {
	p, ok := m.pools[poolID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if p.OwnerID == managerID {
		return p, nil
	}
	for _, a := range m.admins.admins {
		if a.PoolID == poolID && a.ManagerID == managerID && a.Status == model.PoolAdminAccepted {
			return p, nil
		}
	}
	// 越权与不存在不可区分
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPoolRepo) ListByManager(_ context.Context, managerID string) ([]model.Pool, error) {
	var result []model.Pool
	for _, p := range m.pools {
		if p.OwnerID == managerID {
			result = append(result, *p)
			continue
		}
		for _, a := range m.admins.admins {
			if a.PoolID == p.PoolID && a.ManagerID == managerID && a.Status == model.PoolAdminAccepted {
				result = append(result, *p)
				break
			}
		}
	}
	return result, nil
}

func (m *mockPoolRepo) Update(_ context.Context, pool *model.Pool) error {
	m.pools[pool.PoolID] = pool
	return nil
}

func (m *mockPoolRepo) Delete(_ context.Context, id string) error {
	delete(m.pools, id)
	return nil
}

// ── Mock PoolAdminRepository ──

type mockPoolAdminRepo struct {
	admins    map[string]*model.PoolAdmin
	idCounter int
}

func newMockPoolAdminRepo() *mockPoolAdminRepo {
	return &mockPoolAdminRepo{admins: make(map[string]*model.PoolAdmin)}
}

func (m *mockPoolAdminRepo) Create(_ context.Context, admin *model.PoolAdmin) error {
	if admin.PoolAdminID == "" {
		m.idCounter++
		admin.PoolAdminID = fmt.Sprintf("pa-%d", m.idCounter)
	}
	m.admins[admin.PoolAdminID] = admin
	return nil
}

func (m *mockPoolAdminRepo) GetByToken(_ context.Context, token string) (*model.PoolAdmin, error) {
	for _, a := range m.admins {
		if a.InviteToken == token {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPoolAdminRepo) GetByPoolAndManager(_ context.Context, poolID, managerID string) (*model.PoolAdmin, error) {
	for _, a := range m.admins {
		if a.PoolID == poolID && a.ManagerID == managerID {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPoolAdminRepo) ListByPool(_ context.Context, poolID string) ([]model.PoolAdmin, error) {
	var result []model.PoolAdmin
	for _, a := range m.admins {
		if a.PoolID == poolID {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *mockPoolAdminRepo) Update(_ context.Context, admin *model.PoolAdmin) error {
	m.admins[admin.PoolAdminID] = admin
	return nil
}

// ── Mock CasualRepository ──

type mockCasualRepo struct {
	casuals   map[string]*model.Casual
	idCounter int
}

func newMockCasualRepo() *mockCasualRepo {
	return &mockCasualRepo{casuals: make(map[string]*model.Casual)}
}

func (m *mockCasualRepo) Create(_ context.Context, casual *model.Casual) error {
	if casual.CasualID == "" {
		m.idCounter++
		casual.CasualID = fmt.Sprintf("cas-%d", m.idCounter)
	}
	if casual.Version == 0 {
		casual.Version = 1
	}
	m.casuals[casual.CasualID] = casual
	return nil
}

func (m *mockCasualRepo) GetByID(_ context.Context, id string) (*model.Casual, error) {
	if c, ok := m.casuals[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCasualRepo) GetByInviteToken(_ context.Context, token string) (*model.Casual, error) {
	for _, c := range m.casuals {
		if c.InviteToken == token && c.RemovedAt == nil {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCasualRepo) GetByPhone(_ context.Context, poolID, phone string) (*model.Casual, error) {
	for _, c := range m.casuals {
		if c.PoolID == poolID && c.PhoneNumber == phone && c.RemovedAt == nil {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCasualRepo) ListByPool(_ context.Context, poolID string, offset, limit int) ([]model.Casual, int64, error) {
	var all []model.Casual
	for _, c := range m.casuals {
		if c.PoolID == poolID && c.RemovedAt == nil {
			all = append(all, *c)
		}
	}
	total := int64(len(all))
	if limit <= 0 {
		return all, total, nil
	}
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockCasualRepo) ListActiveByPool(_ context.Context, poolID string) ([]model.Casual, error) {
	var result []model.Casual
	for _, c := range m.casuals {
		if c.PoolID == poolID && c.IsActive() {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockCasualRepo) Update(_ context.Context, casual *model.Casual) error {
	if _, ok := m.casuals[casual.CasualID]; !ok {
		return gorm.ErrRecordNotFound
	}
	casual.Version++
	m.casuals[casual.CasualID] = casual
	return nil
}

func (m *mockCasualRepo) ReplaceAvailability(_ context.Context, casualID string, slots []model.AvailabilitySlot) error {
	c, ok := m.casuals[casualID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.Availability = slots
	return nil
}

// ── Mock ShiftRepository ──

// mockShiftRepo 以互斥的 compare-and-swap 模拟条件写：
// Update 只在内存版本与提交版本一致时生效，否则返回 ErrOptimisticLock。
// GetByID 返回副本，与数据库语义一致（并发调用方各持快照）
type mockShiftRepo struct {
	mu        sync.Mutex
	shifts    map[string]*model.Shift
	claims    *mockClaimRepo
	idCounter int

	// beforeUpdate 在 Update 加锁前执行，用于在读写之间插入并发写
	beforeUpdate func()
}

func newMockShiftRepo(claims *mockClaimRepo) *mockShiftRepo {
	return &mockShiftRepo{shifts: make(map[string]*model.Shift), claims: claims}
}

func (m *mockShiftRepo) Create(_ context.Context, shift *model.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if shift.ShiftID == "" {
		m.idCounter++
		shift.ShiftID = fmt.Sprintf("shift-%d", m.idCounter)
	}
	if shift.Version == 0 {
		shift.Version = 1
	}
	cp := *shift
	m.shifts[cp.ShiftID] = &cp
	return nil
}

func (m *mockShiftRepo) GetByID(_ context.Context, id string) (*model.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shifts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	cp.Claims = m.claims.listByShiftLocked(id)
	return &cp, nil
}

func (m *mockShiftRepo) ListByPool(_ context.Context, poolID string, from, to *time.Time) ([]model.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Shift
	for _, s := range m.shifts {
		if s.PoolID != poolID {
			continue
		}
		if from != nil && s.StartsAt.Before(*from) {
			continue
		}
		if to != nil && !s.StartsAt.Before(*to) {
			continue
		}
		cp := *s
		cp.Claims = m.claims.listByShiftLocked(s.ShiftID)
		result = append(result, cp)
	}
	return result, nil
}

func (m *mockShiftRepo) Update(_ context.Context, shift *model.Shift) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.shifts[shift.ShiftID]
	if !ok || stored.Version != shift.Version {
		return pkgerrors.ErrOptimisticLock
	}
	cp := *shift
	cp.Claims = nil
	cp.Version = stored.Version + 1
	m.shifts[shift.ShiftID] = &cp
	shift.Version = cp.Version
	return nil
}

// ── Mock ShiftClaimRepository ──

type mockClaimRepo struct {
	mu        sync.Mutex
	claims    []model.ShiftClaim
	casuals   *mockCasualRepo
	idCounter int
}

func newMockClaimRepo(casuals *mockCasualRepo) *mockClaimRepo {
	return &mockClaimRepo{casuals: casuals}
}

func (m *mockClaimRepo) Create(_ context.Context, claim *model.ShiftClaim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if claim.ShiftClaimID == "" {
		m.idCounter++
		claim.ShiftClaimID = fmt.Sprintf("claim-%d", m.idCounter)
	}
	if claim.Version == 0 {
		claim.Version = 1
	}
	m.claims = append(m.claims, *claim)
	return nil
}

func (m *mockClaimRepo) GetActive(_ context.Context, shiftID, casualID string) (*model.ShiftClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.claims {
		c := m.claims[i]
		if c.ShiftID == shiftID && c.CasualID == casualID && c.Status == model.ClaimClaimed {
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClaimRepo) ListByShift(_ context.Context, shiftID string) ([]model.ShiftClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listByShiftLocked(shiftID), nil
}

// listByShiftLocked 调用方必须持有 m.mu 或保证无并发写
func (m *mockClaimRepo) listByShiftLocked(shiftID string) []model.ShiftClaim {
	var result []model.ShiftClaim
	for _, c := range m.claims {
		if c.ShiftID == shiftID {
			result = append(result, c)
		}
	}
	return result
}

func (m *mockClaimRepo) ListActiveByShift(_ context.Context, shiftID string) ([]model.ShiftClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.ShiftClaim
	for _, c := range m.claims {
		if c.ShiftID == shiftID && c.Status == model.ClaimClaimed {
			if cas, ok := m.casuals.casuals[c.CasualID]; ok {
				c.Casual = cas
			}
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *mockClaimRepo) ListByCasual(_ context.Context, casualID string) ([]model.ShiftClaim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.ShiftClaim
	for _, c := range m.claims {
		if c.CasualID == casualID {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *mockClaimRepo) Update(_ context.Context, claim *model.ShiftClaim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.claims {
		if m.claims[i].ShiftClaimID == claim.ShiftClaimID {
			if m.claims[i].Version != claim.Version {
				return pkgerrors.ErrOptimisticLock
			}
			claim.Version++
			m.claims[i] = *claim
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── Mock ShiftNotificationRepository ──

type mockNotificationRepo struct {
	mu            sync.Mutex
	notifications map[string]*model.ShiftNotification
	shifts        *mockShiftRepo
	casuals       *mockCasualRepo
	idCounter     int
}

func newMockNotificationRepo(shifts *mockShiftRepo, casuals *mockCasualRepo) *mockNotificationRepo {
	return &mockNotificationRepo{
		notifications: make(map[string]*model.ShiftNotification),
		shifts:        shifts,
		casuals:       casuals,
	}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.ShiftNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ShiftNotificationID == "" {
		m.idCounter++
		n.ShiftNotificationID = fmt.Sprintf("notif-%d", m.idCounter)
	}
	if n.Version == 0 {
		n.Version = 1
	}
	cp := *n
	m.notifications[cp.ShiftNotificationID] = &cp
	return nil
}

func (m *mockNotificationRepo) GetByToken(ctx context.Context, token string) (*model.ShiftNotification, error) {
	m.mu.Lock()
	var found *model.ShiftNotification
	for _, n := range m.notifications {
		if n.ClaimToken == token {
			cp := *n
			found = &cp
			break
		}
	}
	m.mu.Unlock()
	if found == nil {
		return nil, gorm.ErrRecordNotFound
	}
	// 预加载关联，与真实仓储的 Preload 行为一致
	shift, err := m.shifts.GetByID(ctx, found.ShiftID)
	if err != nil {
		return nil, err
	}
	found.Shift = shift
	if cas, ok := m.casuals.casuals[found.CasualID]; ok {
		found.Casual = cas
	}
	return found, nil
}

func (m *mockNotificationRepo) GetPendingByShiftAndCasual(_ context.Context, shiftID, casualID string) (*model.ShiftNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ShiftID == shiftID && n.CasualID == casualID && n.TokenStatus == model.TokenPending {
			cp := *n
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockNotificationRepo) ListByShift(_ context.Context, shiftID string) ([]model.ShiftNotification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.ShiftNotification
	for _, n := range m.notifications {
		if n.ShiftID == shiftID {
			result = append(result, *n)
		}
	}
	return result, nil
}

func (m *mockNotificationRepo) Update(_ context.Context, n *model.ShiftNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.notifications[n.ShiftNotificationID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if stored.Version != n.Version {
		return pkgerrors.ErrOptimisticLock
	}
	cp := *n
	cp.Shift = nil
	cp.Casual = nil
	cp.Version = stored.Version + 1
	m.notifications[n.ShiftNotificationID] = &cp
	n.Version = cp.Version
	return nil
}

func (m *mockNotificationRepo) RevokeAllPending(_ context.Context, shiftID string, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.notifications {
		if n.ShiftID == shiftID && n.TokenStatus == model.TokenPending {
			n.TokenStatus = model.TokenRevoked
			n.UpdatedAt = now
			n.Version++
			count++
		}
	}
	return count, nil
}

// ── Mock OutboxRepository ──

type mockOutboxRepo struct {
	mu        sync.Mutex
	messages  []model.OutboxMessage
	idCounter int
}

func newMockOutboxRepo() *mockOutboxRepo {
	return &mockOutboxRepo{}
}

func (m *mockOutboxRepo) Enqueue(_ context.Context, message *model.OutboxMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idCounter++
	if message.OutboxMessageID == "" {
		message.OutboxMessageID = fmt.Sprintf("out-%d", m.idCounter)
	}
	if message.Status == "" {
		message.Status = model.OutboxPending
	}
	m.messages = append(m.messages, *message)
	return nil
}

func (m *mockOutboxRepo) BatchEnqueue(_ context.Context, messages []model.OutboxMessage) error {
	for i := range messages {
		if err := m.Enqueue(context.Background(), &messages[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockOutboxRepo) ListPending(_ context.Context, limit int) ([]model.OutboxMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.OutboxMessage
	for _, msg := range m.messages {
		if msg.Status == model.OutboxPending {
			result = append(result, msg)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func (m *mockOutboxRepo) MarkSent(_ context.Context, id string, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		if m.messages[i].OutboxMessageID == id {
			m.messages[i].Status = model.OutboxSent
			m.messages[i].SentAt = &sentAt
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockOutboxRepo) MarkFailed(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.messages {
		if m.messages[i].OutboxMessageID == id {
			m.messages[i].Status = model.OutboxFailed
			m.messages[i].Attempts++
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── 共享测试夹具 ──

// mockRepos 聚合全部 mock 仓储，测试按需直接读写内部状态
type mockRepos struct {
	managers      *mockManagerRepo
	pools         *mockPoolRepo
	poolAdmins    *mockPoolAdminRepo
	casuals       *mockCasualRepo
	shifts        *mockShiftRepo
	claims        *mockClaimRepo
	notifications *mockNotificationRepo
	outbox        *mockOutboxRepo
}

func newMockRepos() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		managers:   newMockManagerRepo(),
		poolAdmins: newMockPoolAdminRepo(),
		casuals:    newMockCasualRepo(),
		outbox:     newMockOutboxRepo(),
	}
	m.pools = newMockPoolRepo(m.poolAdmins)
	m.claims = newMockClaimRepo(m.casuals)
	m.shifts = newMockShiftRepo(m.claims)
	m.notifications = newMockNotificationRepo(m.shifts, m.casuals)

	repo := &repository.Repository{
		Manager:      m.managers,
		Pool:         m.pools,
		PoolAdmin:    m.poolAdmins,
		Casual:       m.casuals,
		Shift:        m.shifts,
		Claim:        m.claims,
		Notification: m.notifications,
		Outbox:       m.outbox,
	}
	return repo, m
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{BaseURL: "http://test.local"},
	}
}

// fullAvailability 整周全天可用
func fullAvailability(casualID string) []model.AvailabilitySlot {
	slots := make([]model.AvailabilitySlot, 0, 7)
	for d := 0; d < 7; d++ {
		slots = append(slots, model.AvailabilitySlot{
			CasualID:  casualID,
			DayOfWeek: d,
			FromTime:  "00:00",
			ToTime:    "23:59",
		})
	}
	return slots
}
