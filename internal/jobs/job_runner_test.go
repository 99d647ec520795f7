package jobs

import (
	"context"
	"errors"
	"testing"

	"rental-marketplace/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockTrialSweeps struct {
	mock.Mock
}

func (m *MockTrialSweeps) ActivateDueTrials(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockTrialSweeps) ExpireDueTrials(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockTrialSweeps) SendExpiryWarnings(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockContractSweeps struct {
	mock.Mock
}

func (m *MockContractSweeps) ActivateDueContracts(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockContractSweeps) EndExpiredContracts(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestRunAll(t *testing.T) {
	trials := new(MockTrialSweeps)
	contracts := new(MockContractSweeps)

	trials.On("ActivateDueTrials", mock.Anything).Return(2, nil).Once()
	contracts.On("ActivateDueContracts", mock.Anything).Return(1, nil).Once()
	contracts.On("EndExpiredContracts", mock.Anything).Return(0, errors.New("db down")).Once()
	trials.On("SendExpiryWarnings", mock.Anything).Return(0, nil).Once()
	trials.On("ExpireDueTrials", mock.Anything).Return(1, nil).Once()

	NewJobRunner(trials, contracts, zap.NewNop()).RunAll()

	trials.AssertExpectations(t)
	contracts.AssertExpectations(t)
}

func TestRunWithRecoverySurvivesPanic(t *testing.T) {
	trials := new(MockTrialSweeps)
	trials.On("ExpireDueTrials", mock.Anything).Run(func(mock.Arguments) {
		panic("boom")
	}).Return(0, nil)

	runner := NewJobRunner(trials, new(MockContractSweeps), zap.NewNop())
	assert.NotPanics(t, runner.ExpireTrials)
	trials.AssertNumberOfCalls(t, "ExpireDueTrials", 1)
}

func TestJobsRunWithDeadline(t *testing.T) {
	trials := new(MockTrialSweeps)
	trials.On("SendExpiryWarnings", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	})).Return(0, nil).Once()

	NewJobRunner(trials, new(MockContractSweeps), zap.NewNop()).SendTrialWarnings()
	trials.AssertExpectations(t)
}

func TestNewScheduler(t *testing.T) {
	runner := NewJobRunner(new(MockTrialSweeps), new(MockContractSweeps), zap.NewNop())

	t.Run("Registers every configured job", func(t *testing.T) {
		s, err := NewScheduler(runner, utils.SchedulerConfig{
			ActivateTrials:    "0 */5 * * * *",
			ExpireTrials:      "0 0 * * * *",
			SendTrialWarnings: "0 0 8 * * *",
			ActivateContracts: "0 */5 * * * *",
			EndContracts:      "0 30 0 * * *",
		}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, 5, s.Entries())
	})

	t.Run("Empty expression disables a job", func(t *testing.T) {
		s, err := NewScheduler(runner, utils.SchedulerConfig{
			ExpireTrials: "0 0 * * * *",
		}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, 1, s.Entries())
	})

	t.Run("Invalid expression is rejected", func(t *testing.T) {
		_, err := NewScheduler(runner, utils.SchedulerConfig{
			ExpireTrials: "every hour",
		}, zap.NewNop())
		assert.Error(t, err)
	})
}
