package service

import (
	"context"
	"time"

	"racepool/chain"
	"racepool/events"
	"racepool/models"

	"github.com/stretchr/testify/mock"
)

// MockEntitlementRepository is a mock implementation of EntitlementRepository
type MockEntitlementRepository struct {
	mock.Mock
}

func (m *MockEntitlementRepository) Create(ctx context.Context, entitlement *models.Entitlement) error {
	args := m.Called(ctx, entitlement)
	return args.Error(0)
}

func (m *MockEntitlementRepository) GetByPaymentReference(ctx context.Context, reference string) (*models.Entitlement, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entitlement), args.Error(1)
}

func (m *MockEntitlementRepository) GetActiveByWallet(ctx context.Context, wallet string, at time.Time) (*models.Entitlement, error) {
	args := m.Called(ctx, wallet, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entitlement), args.Error(1)
}

func (m *MockEntitlementRepository) CountAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockWalletAggregateRepository is a mock implementation of WalletAggregateRepository
type MockWalletAggregateRepository struct {
	mock.Mock
}

func (m *MockWalletAggregateRepository) GetByWallet(ctx context.Context, wallet string) (*models.WalletAggregate, error) {
	args := m.Called(ctx, wallet)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WalletAggregate), args.Error(1)
}

func (m *MockWalletAggregateRepository) ApplyCredit(ctx context.Context, wallet string, amount int64, seenAt time.Time) (*models.WalletAggregate, error) {
	args := m.Called(ctx, wallet, amount, seenAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WalletAggregate), args.Error(1)
}

func (m *MockWalletAggregateRepository) GetTicketHolders(ctx context.Context) ([]*models.WalletAggregate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WalletAggregate), args.Error(1)
}

func (m *MockWalletAggregateRepository) GetTop(ctx context.Context, limit int) ([]*models.WalletAggregate, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WalletAggregate), args.Error(1)
}

func (m *MockWalletAggregateRepository) TotalTickets(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockWalletAggregateRepository) Rebuild(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockPoolRepository is a mock implementation of PoolRepository
type MockPoolRepository struct {
	mock.Mock
}

func (m *MockPoolRepository) GetTotal(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPoolRepository) Increment(ctx context.Context, amount int64) error {
	args := m.Called(ctx, amount)
	return args.Error(0)
}

func (m *MockPoolRepository) Rebuild(ctx context.Context, perPayment int64) (int64, error) {
	args := m.Called(ctx, perPayment)
	return args.Get(0).(int64), args.Error(1)
}

// MockDrawRecordRepository is a mock implementation of DrawRecordRepository
type MockDrawRecordRepository struct {
	mock.Mock
}

func (m *MockDrawRecordRepository) GetByPeriod(ctx context.Context, periodID string) (*models.DrawRecord, error) {
	args := m.Called(ctx, periodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DrawRecord), args.Error(1)
}

func (m *MockDrawRecordRepository) Claim(ctx context.Context, rec *models.DrawRecord) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

func (m *MockDrawRecordRepository) ReclaimFailed(ctx context.Context, periodID string) (*models.DrawRecord, bool, error) {
	args := m.Called(ctx, periodID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.DrawRecord), args.Bool(1), args.Error(2)
}

func (m *MockDrawRecordRepository) Finalize(ctx context.Context, periodID string, status models.DrawStatus, payoutReference *string) error {
	args := m.Called(ctx, periodID, status, payoutReference)
	return args.Error(0)
}

func (m *MockDrawRecordRepository) GetMostRecent(ctx context.Context) (*models.DrawRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DrawRecord), args.Error(1)
}

// MockPeriodSnapshotRepository is a mock implementation of PeriodSnapshotRepository
type MockPeriodSnapshotRepository struct {
	mock.Mock
}

func (m *MockPeriodSnapshotRepository) Upsert(ctx context.Context, periodID string, participants []*models.ParticipantEarnings) (int64, error) {
	args := m.Called(ctx, periodID, participants)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPeriodSnapshotRepository) GetLatestPeriodBefore(ctx context.Context, periodID string) (string, error) {
	args := m.Called(ctx, periodID)
	return args.String(0), args.Error(1)
}

func (m *MockPeriodSnapshotRepository) GetBaselines(ctx context.Context, periodID string) (map[string]int64, error) {
	args := m.Called(ctx, periodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int64), args.Error(1)
}

// MockGiveawayRepository is a mock implementation of GiveawayRepository
type MockGiveawayRepository struct {
	mock.Mock
}

func (m *MockGiveawayRepository) CreateEntry(ctx context.Context, entry *models.GiveawayEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockGiveawayRepository) GetEntryByParticipant(ctx context.Context, periodID, participantID string) (*models.GiveawayEntry, error) {
	args := m.Called(ctx, periodID, participantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GiveawayEntry), args.Error(1)
}

func (m *MockGiveawayRepository) GetEntriesByPeriod(ctx context.Context, periodID string) ([]*models.GiveawayEntry, error) {
	args := m.Called(ctx, periodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GiveawayEntry), args.Error(1)
}

func (m *MockGiveawayRepository) CreateDraw(ctx context.Context, draw *models.GiveawayDraw) error {
	args := m.Called(ctx, draw)
	return args.Error(0)
}

func (m *MockGiveawayRepository) GetDrawByPeriod(ctx context.Context, periodID string) (*models.GiveawayDraw, error) {
	args := m.Called(ctx, periodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GiveawayDraw), args.Error(1)
}

func (m *MockGiveawayRepository) GetRecentDraws(ctx context.Context, limit int) ([]*models.GiveawayDraw, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GiveawayDraw), args.Error(1)
}

// MockChainGateway is a mock implementation of ChainGateway
type MockChainGateway struct {
	mock.Mock
}

func (m *MockChainGateway) GetTransaction(ctx context.Context, reference string) (*chain.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chain.Transaction), args.Error(1)
}

func (m *MockChainGateway) GetBalance(ctx context.Context, account string) (int64, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChainGateway) SubmitTransfer(ctx context.Context, from, to string, amount int64) (string, error) {
	args := m.Called(ctx, from, to, amount)
	return args.String(0), args.Error(1)
}

func (m *MockChainGateway) ConfirmTransfer(ctx context.Context, reference string) (bool, error) {
	args := m.Called(ctx, reference)
	return args.Bool(0), args.Error(1)
}

// MockEarningsFeed is a mock implementation of EarningsFeed
type MockEarningsFeed struct {
	mock.Mock
}

func (m *MockEarningsFeed) GetParticipantEarnings(ctx context.Context) ([]*models.ParticipantEarnings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ParticipantEarnings), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// plain fields so tests only wire the ones the code under test touches.
type MockUnitOfWork struct {
	mock.Mock

	entitlementRepo EntitlementRepository
	walletAggRepo   WalletAggregateRepository
	poolRepo        PoolRepository
	drawRecordRepo  DrawRecordRepository
	snapshotRepo    PeriodSnapshotRepository
	giveawayRepo    GiveawayRepository
	eventBus        EventPublisher
}

// SetRepositories wires the repositories this unit of work hands out
func (m *MockUnitOfWork) SetRepositories(
	entitlementRepo EntitlementRepository,
	walletAggRepo WalletAggregateRepository,
	poolRepo PoolRepository,
	drawRecordRepo DrawRecordRepository,
	snapshotRepo PeriodSnapshotRepository,
	giveawayRepo GiveawayRepository,
) {
	m.entitlementRepo = entitlementRepo
	m.walletAggRepo = walletAggRepo
	m.poolRepo = poolRepo
	m.drawRecordRepo = drawRecordRepo
	m.snapshotRepo = snapshotRepo
	m.giveawayRepo = giveawayRepo
}

// SetEventBus wires the event publisher this unit of work hands out
func (m *MockUnitOfWork) SetEventBus(bus EventPublisher) {
	m.eventBus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) EntitlementRepository() EntitlementRepository {
	return m.entitlementRepo
}

func (m *MockUnitOfWork) WalletAggregateRepository() WalletAggregateRepository {
	return m.walletAggRepo
}

func (m *MockUnitOfWork) PoolRepository() PoolRepository {
	return m.poolRepo
}

func (m *MockUnitOfWork) DrawRecordRepository() DrawRecordRepository {
	return m.drawRecordRepo
}

func (m *MockUnitOfWork) PeriodSnapshotRepository() PeriodSnapshotRepository {
	return m.snapshotRepo
}

func (m *MockUnitOfWork) GiveawayRepository() GiveawayRepository {
	return m.giveawayRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.eventBus == nil {
		return nopPublisher{}
	}
	return m.eventBus
}

type nopPublisher struct{}

func (nopPublisher) Publish(events.Event) {}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
