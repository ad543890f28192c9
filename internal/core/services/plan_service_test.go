package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/trestleworks/planledger/internal/apperrors"
	"github.com/trestleworks/planledger/internal/core/domain"
	portsevents "github.com/trestleworks/planledger/internal/core/ports/events"
	portsrepo "github.com/trestleworks/planledger/internal/core/ports/repositories"
	portssvc "github.com/trestleworks/planledger/internal/core/ports/services"
	"github.com/trestleworks/planledger/internal/core/services"
)

// --- Mock PlanRepository ---
type MockPlanRepository struct {
	mock.Mock
}

// Ensure MockPlanRepository implements portsrepo.PlanRepositoryFacade
var _ portsrepo.PlanRepositoryFacade = (*MockPlanRepository)(nil)

func (m *MockPlanRepository) FindPlanByID(ctx context.Context, planID string) (*domain.Plan, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Plan), args.Error(1)
}

func (m *MockPlanRepository) FindPostingsByAccountID(ctx context.Context, accountID string) ([]domain.AccountPosting, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AccountPosting), args.Error(1)
}

func (m *MockPlanRepository) AppendBatch(ctx context.Context, planID string, batch domain.Batch, newAccounts []domain.Account, clock domain.Clock) error {
	args := m.Called(ctx, planID, batch, newAccounts, clock)
	return args.Error(0)
}

func (m *MockPlanRepository) TransitionPlan(ctx context.Context, planID string, status domain.PlanStatus, clock domain.Clock) error {
	args := m.Called(ctx, planID, status, clock)
	return args.Error(0)
}

// --- Mock AccountRepository ---
type MockAccountRepository struct {
	mock.Mock
}

// Ensure MockAccountRepository implements portsrepo.AccountRepositoryFacade
var _ portsrepo.AccountRepositoryFacade = (*MockAccountRepository)(nil)

func (m *MockAccountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	args := m.Called(ctx, accountIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

// --- Mock ClockRepository ---
type MockClockRepository struct {
	mock.Mock
}

// Ensure MockClockRepository implements portsrepo.ClockReader
var _ portsrepo.ClockReader = (*MockClockRepository)(nil)

func (m *MockClockRepository) LoadReplicaCounters(ctx context.Context) (map[string]uint64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]uint64), args.Error(1)
}

// --- Mock Publisher ---
type MockPublisher struct {
	mock.Mock
}

// Ensure MockPublisher implements portsevents.Publisher
var _ portsevents.Publisher = (*MockPublisher)(nil)

func (m *MockPublisher) PublishPlanTransition(ctx context.Context, event domain.PlanEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Test Suite Setup ---
type PlanServiceTestSuite struct {
	suite.Suite
	mockPlanRepo    *MockPlanRepository
	mockAccountRepo *MockAccountRepository
	mockClockRepo   *MockClockRepository
	mockPublisher   *MockPublisher
	clocks          portssvc.ClockManagerSvc
	service         portssvc.PlanSvcFacade
	replicaID       string
	usd             domain.Account
	batch           domain.Batch
}

func (suite *PlanServiceTestSuite) SetupTest() {
	suite.mockPlanRepo = new(MockPlanRepository)
	suite.mockAccountRepo = new(MockAccountRepository)
	suite.mockClockRepo = new(MockClockRepository)
	suite.mockPublisher = new(MockPublisher)
	suite.replicaID = "replica-1"

	// The manager primes itself from the store once at construction.
	suite.mockClockRepo.On("LoadReplicaCounters", mock.Anything).Return(map[string]uint64{}, nil)

	clocks, err := services.NewClockManager(context.Background(), suite.replicaID, suite.mockClockRepo)
	suite.Require().NoError(err)
	suite.clocks = clocks

	suite.service = services.NewPlanService(suite.mockPlanRepo, suite.mockAccountRepo, suite.clocks, suite.mockPublisher)

	suite.usd = domain.Account{AccountID: "acct-a", CurrencyCode: "USD", CreatedAt: time.Now().UTC()}
	suite.batch = domain.Batch{
		BatchID: 1,
		Postings: []domain.Posting{
			{FromAccountID: "acct-a", ToAccountID: "acct-b", Amount: decimal.NewFromInt(100), CurrencyCode: "USD", Description: "transfer"},
		},
	}
}

func (suite *PlanServiceTestSuite) openPlan(batches ...domain.Batch) *domain.Plan {
	return &domain.Plan{
		PlanID:  "plan-1",
		Status:  domain.PlanOpen,
		Batches: batches,
		Clock:   domain.NewClock(map[string]uint64{suite.replicaID: 1}),
	}
}

// --- Hold ---

func (suite *PlanServiceTestSuite) TestHold_NewPlan_Success() {
	ctx := context.Background()

	suite.mockPlanRepo.On("FindPlanByID", ctx, "plan-1").Return(nil, apperrors.ErrPlanNotFound).Once()
	suite.mockAccountRepo.On("FindAccountsByIDs", ctx, []string{"acct-a", "acct-b"}).
		Return(map[string]domain.Account{"acct-a": suite.usd}, nil).Once()
	suite.mockPlanRepo.On("AppendBatch", ctx, "plan-1", suite.batch,
		mock.MatchedBy(func(accounts []domain.Account) bool {
			// Only the unknown account is created, adopting the posting currency.
			return len(accounts) == 1 && accounts[0].AccountID == "acct-b" && accounts[0].CurrencyCode == "USD"
		}),
		mock.AnythingOfType("domain.Clock"),
	).Return(nil).Once()
	suite.mockPublisher.On("PublishPlanTransition", ctx, mock.MatchedBy(func(e domain.PlanEvent) bool {
		return e.Kind == domain.EventPlanHeld && e.PlanID == "plan-1" && e.BatchID != nil && *e.BatchID == 1
	})).Return(nil).Once()

	clock, err := suite.service.Hold(ctx, "plan-1", suite.batch)

	suite.Require().NoError(err)
	suite.Equal(uint64(1), clock.Counter(suite.replicaID))
	// The durable clock is merged into the replica's view.
	suite.Equal(uint64(1), suite.clocks.Current().Counter(suite.replicaID))
	suite.mockPlanRepo.AssertExpectations(suite.T())
	suite.mockAccountRepo.AssertExpectations(suite.T())
	suite.mockPublisher.AssertExpectations(suite.T())
}

func (suite *PlanServiceTestSuite) TestHold_MalformedBatch() {
	ctx := context.Background()
	bad := domain.Batch{
		BatchID: 2,
		Postings: []domain.Posting{
			{FromAccountID: "acct-a", ToAccountID: "", Amount: decimal.NewFromInt(-5), CurrencyCode: "USD"},
		},
	}

	_, err := suite.service.Hold(ctx, "plan-1", bad)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidPostingParams)
	var ipp *apperrors.InvalidPostingParamsError
	suite.Require().ErrorAs(err, &ipp)
	suite.Len(ipp.Issues, 2) // missing toAccountID and negative amount
	suite.mockPlanRepo.AssertNotCalled(suite.T(), "FindPlanByID", mock.Anything, mock.Anything)
	suite.mockPlanRepo.AssertNotCalled(suite.T(), "AppendBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *PlanServiceTestSuite) TestHold_EmptyBatch() {
	ctx := context.Background()

	_, err := suite.service.Hold(ctx, "plan-1", domain.Batch{BatchID: 3})

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidPostingParams)
}

func (suite *PlanServiceTestSuite) TestHold_DuplicateBatch_SamePostingsDifferentOrder_NoOp() {
	ctx := context.Background()
	recorded := domain.Batch{
		BatchID: 1,
		Postings: []domain.Posting{
			{FromAccountID: "acct-a", ToAccountID: "acct-b", Amount: decimal.NewFromInt(100), CurrencyCode: "USD"},
			{FromAccountID: "acct-b", ToAccountID: "acct-c", Amount: decimal.NewFromInt(40), CurrencyCode: "USD"},
		},
	}
	plan := suite.openPlan(recorded)
	suite.mockPlanRepo.On("FindPlanByID", ctx, "plan-1").Return(plan, nil).Once()

	resubmitted := domain.Batch{
		BatchID: 1,
		Postings: []domain.Posting{
			{FromAccountID: "acct-b", ToAccountID: "acct-c", Amount: decimal.NewFromInt(40), CurrencyCode: "USD"},
			{FromAccountID: "acct-a", ToAccountID: "acct-b", Amount: decimal.NewFromInt(100), CurrencyCode: "USD"},
		},
	}
	clock, err := suite.service.Hold(ctx, "plan-1", resubmitted)

	suite.Require().NoError(err)
	suite.True(clock.Compare(plan.Clock) == domain.ClockEqual)
	suite.mockPlanRepo.AssertNotCalled(suite.T(), "AppendBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.mockPublisher.AssertNotCalled(suite.T(), "PublishPlanTransition", mock.Anything, mock.Anything)
}

func (suite *PlanServiceTestSuite) TestHold_DuplicateBatch_DifferentPostings() {
	ctx := context.Background()
	plan := suite.openPlan(suite.batch)
	suite.mockPlanRepo.On("FindPlanByID", ctx, "plan-1").Return(plan, nil).Once()

	changed := domain.Batch{
		BatchID: 1,
		Postings: []domain.Posting{
			{FromAccountID: "acct-a", ToAccountID: "acct-b", Amount: decimal.NewFromInt(250), CurrencyCode: "USD", Description: "transfer"},
		},
	}
	_, err := suite.service.Hold(ctx, "plan-1", changed)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidPostingParams)
	suite.mockPlanRepo.AssertNotCalled(suite.T(), "AppendBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *PlanServiceTestSuite) TestHold_TerminalPlan_Ignored() {
	ctx := context.Background()
	plan := suite.openPlan(suite.batch)
	plan.Status = domain.PlanCommitted
	suite.mockPlanRepo.On("FindPlanByID", ctx, "plan-1").Return(plan, nil).Once()

	newBatch := domain.Batch{
		BatchID: 9,
		Postings: []domain.Posting{
			{FromAccountID: "acct-x", ToAccountID: "acct-y", Amount: decimal.NewFromInt(7), CurrencyCode: "EUR"},
		},
	}
	clock, err := suite.service.Hold(ctx, "plan-1", newBatch)

	suite.Require().NoError(err)
	suite.True(clock.Compare(plan.Clock) == domain.ClockEqual)
	suite.mockPlanRepo.AssertNotCalled(suite.T(), "AppendBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.mockPublisher.AssertNotCalled(suite.T(), "PublishPlanTransition", mock.Anything, mock.Anything)
}

func (suite *PlanServiceTestSuite) TestHold_CurrencyMismatch() {
	ctx := context.Background()
	suite.mockPlanRepo.On("FindPlanByID", ctx, "plan-1").Return(nil, apperrors.ErrPlanNotFound).Once()
	eur := domain.Account{AccountID: "acct-a", CurrencyCode: "EUR"}
	suite.mockAccountRepo.On("FindAccountsByIDs", ctx, []string{"acct-a", "acct-b"}).
		Return(map[string]domain.Account{"acct-a": eur}, nil).Once()

	_, err := suite.service.Hold(ctx, "plan-1", suite.batch)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidPostingParams)
	suite.mockPlanRepo.AssertNotCalled(suite.T(), "AppendBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *PlanServiceTestSuite) TestHold_ConcurrentDuplicate_Reconciles() {
	ctx := context.Background()

	// The plan is unknown at validation time, but another replica records the
	// same batch id before our append lands.
	suite.mockPlanRepo.On("FindPlanByID", ctx, "plan-1").Return(nil, apperrors.ErrPlanNotFound).Once()
	suite.mockAccountRepo.On("FindAccountsByIDs", ctx, mock.Anything).
		Return(map[string]domain.Account{"acct-a": suite.usd}, nil).Once()
	suite.mockPlanRepo.On("AppendBatch", ctx, "plan-1", suite.batch, mock.Anything, mock.Anything).
		Return(apperrors.ErrDuplicate).Once()

	stored := suite.openPlan(suite.batch)
	suite.mockPlanRepo.On("FindPlanByID", ctx, "plan-1").Return(stored, nil).Once()

	clock, err := suite.service.Hold(ctx, "plan-1", suite.batch)

	suite.Require().NoError(err)
	suite.True(clock.Compare(stored.Clock) == domain.ClockEqual)
	suite.mockPlanRepo.AssertExpectations(suite.T())
}

func (suite *PlanServiceTestSuite) TestHold_ConcurrentTermination_ReturnsStoredClock() {
	ctx := context.Background()

	suite.mockPlanRepo.On("FindPlanByID", ctx, "plan-1").Return(nil, apperrors.ErrPlanNotFound).Once()
	suite.mockAccountRepo.On("FindAccountsByIDs", ctx, mock.Anything).
		Return(map[string]domain.Account{"acct-a": suite.usd}, nil).Once()
	suite.mockPlanRepo.On("AppendBatch", ctx, "plan-1", suite.batch, mock.Anything, mock.Anything).
		Return(apperrors.ErrConflict).Once()

	terminated := suite.openPlan(suite.batch)
	terminated.Status = domain.PlanRolledBack
	suite.mockPlanRepo.On("FindPlanByID", ctx, "plan-1").Return(terminated, nil).Once()

	clock, err := suite.service.Hold(ctx, "plan-1", suite.batch)

	suite.Require().NoError(err)
	suite.True(clock.Compare(terminated.Clock) == domain.ClockEqual)
}

func (suite *PlanServiceTestSuite) TestHold_EmptyPlanID() {
	_, err := suite.service.Hold(context.Background(), "", suite.batch)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

// --- CommitPlan / RollbackPlan ---

func (suite *PlanServiceTestSuite) TestCommitPlan_Success() {
	ctx := context.Background()
	recorded := suite.openPlan(suite.batch)
	suite.mockPlanRepo.On("FindPlanByID", ctx, "plan-1").Return(recorded, nil).Once()
	suite.mockPlanRepo.On("TransitionPlan", ctx, "plan-1", domain.PlanCommitted, mock.AnythingOfType("domain.Clock")).
		Return(nil).Once()
	suite.mockPublisher.On("PublishPlanTransition", ctx, mock.MatchedBy(func(e domain.PlanEvent) bool {
		return e.Kind == domain.EventPlanCommitted && e.PlanID == "plan-1"
	})).Return(nil).Once()

	submitted := domain.Plan{PlanID: "plan-1", Batches: []domain.Batch{suite.batch}}
	clock, err := suite.service.CommitPlan(ctx, submitted, domain.LatestClock())

	suite.Require().NoError(err)
	suite.Equal(uint64(1), clock.Counter(suite.replicaID))
	suite.mockPlanRepo.AssertExpectations(suite.T())
	suite.mockPublisher.AssertExpectations(suite.T())
}

func (suite *PlanServiceTestSuite) TestRollbackPlan_Success() {
	ctx := context.Background()
	recorded := suite.openPlan(suite.batch)
	suite.mockPlanRepo.On("FindPlanByID", ctx, "plan-1").Return(recorded, nil).Once()
	suite.mockPlanRepo.On("TransitionPlan", ctx, "plan-1", domain.PlanRolledBack, mock.AnythingOfType("domain.Clock")).
		Return(nil).Once()
	suite.mockPublisher.On("PublishPlanTransition", ctx, mock.MatchedBy(func(e domain.PlanEvent) bool {
		return e.Kind == domain.EventPlanRolledBack
	})).Return(nil).Once()

	submitted := domain.Plan{PlanID: "plan-1", Batches: []domain.Batch{suite.batch}}
	_, err := suite.service.RollbackPlan(ctx, submitted, domain.LatestClock())

	suite.Require().NoError(err)
	suite.mockPlanRepo.AssertExpectations(suite.T())
}

func (suite *PlanServiceTestSuite) TestCommitPlan_BatchSetMismatch() {
	ctx := context.Background()
	extra := domain.Batch{
		BatchID: 2,
		Postings: []domain.Posting{
			{FromAccountID: "acct-b", ToAccountID: "acct-c", Amount: decimal.NewFromInt(1), CurrencyCode: "USD"},
		},
	}
	recorded := suite.openPlan(suite.batch, extra)
	suite.mockPlanRepo.On("FindPlanByID", ctx, "plan-1").Return(recorded, nil).Once()

	// The submission is missing batch 2.
	submitted := domain.Plan{PlanID: "plan-1", Batches: []domain.Batch{suite.batch}}
	_, err := suite.service.CommitPlan(ctx, submitted, domain.LatestClock())

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidPostingParams)
	suite.mockPlanRepo.AssertNotCalled(suite.T(), "TransitionPlan", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *PlanServiceTestSuite) TestFinalize_AlreadyTerminal_NoOp() {
	ctx := context.Background()
	recorded := suite.openPlan(suite.batch)
	recorded.Status = domain.PlanCommitted
	suite.mockPlanRepo.On("FindPlanByID", ctx, "plan-1").Return(recorded, nil).Twice()

	submitted := domain.Plan{PlanID: "plan-1", Batches: []domain.Batch{suite.batch}}

	// A repeated commit and a rollback after commit both return the stored
	// clock without another transition.
	commitClock, err := suite.service.CommitPlan(ctx, submitted, domain.LatestClock())
	suite.Require().NoError(err)
	suite.True(commitClock.Compare(recorded.Clock) == domain.ClockEqual)

	rollbackClock, err := suite.service.RollbackPlan(ctx, submitted, domain.LatestClock())
	suite.Require().NoError(err)
	suite.True(rollbackClock.Compare(recorded.Clock) == domain.ClockEqual)

	suite.mockPlanRepo.AssertNotCalled(suite.T(), "TransitionPlan", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.mockPublisher.AssertNotCalled(suite.T(), "PublishPlanTransition", mock.Anything, mock.Anything)
}

func (suite *PlanServiceTestSuite) TestCommitPlan_UnknownPlan() {
	ctx := context.Background()
	suite.mockPlanRepo.On("FindPlanByID", ctx, "plan-9").Return(nil, apperrors.ErrPlanNotFound).Once()

	submitted := domain.Plan{PlanID: "plan-9", Batches: []domain.Batch{suite.batch}}
	_, err := suite.service.CommitPlan(ctx, submitted, domain.LatestClock())

	// The five contract operations never surface ErrPlanNotFound.
	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidPostingParams)
	suite.NotErrorIs(err, apperrors.ErrPlanNotFound)
}

func (suite *PlanServiceTestSuite) TestCommitPlan_NotReady() {
	ctx := context.Background()

	// The requested clock is ahead of anything the store knows.
	ahead := domain.NewClock(map[string]uint64{"replica-2": 5})
	_, err := suite.service.CommitPlan(ctx, domain.Plan{PlanID: "plan-1"}, ahead)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotReady)
	suite.mockPlanRepo.AssertNotCalled(suite.T(), "FindPlanByID", mock.Anything, mock.Anything)
}

func (suite *PlanServiceTestSuite) TestCommitPlan_LostTransitionRace() {
	ctx := context.Background()
	recorded := suite.openPlan(suite.batch)
	suite.mockPlanRepo.On("FindPlanByID", ctx, "plan-1").Return(recorded, nil).Once()
	suite.mockPlanRepo.On("TransitionPlan", ctx, "plan-1", domain.PlanCommitted, mock.Anything).
		Return(apperrors.ErrConflict).Once()

	settled := suite.openPlan(suite.batch)
	settled.Status = domain.PlanRolledBack
	settled.Clock = domain.NewClock(map[string]uint64{"replica-2": 4})
	suite.mockPlanRepo.On("FindPlanByID", ctx, "plan-1").Return(settled, nil).Once()

	clock, err := suite.service.CommitPlan(ctx, domain.Plan{PlanID: "plan-1", Batches: []domain.Batch{suite.batch}}, domain.LatestClock())

	suite.Require().NoError(err)
	suite.True(clock.Compare(settled.Clock) == domain.ClockEqual)
	suite.mockPublisher.AssertNotCalled(suite.T(), "PublishPlanTransition", mock.Anything, mock.Anything)
}

// --- GetPlanByID ---

func (suite *PlanServiceTestSuite) TestGetPlanByID_NotFound() {
	ctx := context.Background()
	suite.mockPlanRepo.On("FindPlanByID", ctx, "missing").Return(nil, apperrors.ErrPlanNotFound).Once()

	_, err := suite.service.GetPlanByID(ctx, "missing")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrPlanNotFound)
}

// --- Run Test Suite ---
func TestPlanService(t *testing.T) {
	suite.Run(t, new(PlanServiceTestSuite))
}
