package main

import (
	"errors"
	"testing"
	"time"

	"github.com/ocelot-cloud/shared/assert"
	"github.com/stretchr/testify/mock"

	"selfupdate/mocks"
)

const testSchemaVersion = 3

func newHealthCheckerWithMock() (*HealthCheckerImpl, *mocks.StoreHandleMock) {
	storeMock := &mocks.StoreHandleMock{}
	checker := NewHealthChecker(storeMock, testSchemaVersion)
	return checker, storeMock
}

func TestRunHealthChecks_AllProbesPass(t *testing.T) {
	checker, storeMock := newHealthCheckerWithMock()
	storeMock.On("Open", mock.Anything).Return(nil)
	storeMock.On("CheckIntegrity", mock.Anything).Return(nil)
	storeMock.On("MigrationVersion", mock.Anything).Return(testSchemaVersion, nil)
	storeMock.On("ListSettings", mock.Anything).Return([]string{"theme", "language"}, nil)
	storeMock.On("Close").Return(nil)

	report := checker.RunHealthChecks()

	assert.True(t, report.Passed)
	assert.Equal(t, 4, report.ChecksRun)
	assert.Equal(t, 0, len(report.Failures))
	storeMock.AssertExpectations(t)
}

func TestRunHealthChecks_ConnectivityFailureShortCircuits(t *testing.T) {
	checker, storeMock := newHealthCheckerWithMock()
	storeMock.On("Open", mock.Anything).Return(errors.New("database locked"))
	storeMock.On("Close").Return(nil)

	report := checker.RunHealthChecks()

	assert.False(t, report.Passed)
	assert.Equal(t, 1, report.ChecksRun)
	assert.Equal(t, 4, len(report.Failures))
	assert.Equal(t, checkConnectivity, report.Failures[0].CheckName)
	assert.True(t, report.Failures[0].Critical)
	// the unrun probes are diagnostic only
	assert.False(t, report.Failures[1].Critical)
	storeMock.AssertNotCalled(t, "CheckIntegrity", mock.Anything)
}

func TestRunHealthChecks_IntegrityFailureShortCircuits(t *testing.T) {
	checker, storeMock := newHealthCheckerWithMock()
	storeMock.On("Open", mock.Anything).Return(nil)
	storeMock.On("CheckIntegrity", mock.Anything).Return(errors.New("page 14 is corrupt"))
	storeMock.On("Close").Return(nil)

	report := checker.RunHealthChecks()

	assert.False(t, report.Passed)
	assert.Equal(t, 2, report.ChecksRun)
	assert.Equal(t, checkIntegrity, report.Failures[0].CheckName)
	storeMock.AssertNotCalled(t, "MigrationVersion", mock.Anything)
}

func TestRunHealthChecks_SchemaMismatchIsCritical(t *testing.T) {
	checker, storeMock := newHealthCheckerWithMock()
	storeMock.On("Open", mock.Anything).Return(nil)
	storeMock.On("CheckIntegrity", mock.Anything).Return(nil)
	storeMock.On("MigrationVersion", mock.Anything).Return(testSchemaVersion+1, nil)
	storeMock.On("Close").Return(nil)

	report := checker.RunHealthChecks()

	assert.False(t, report.Passed)
	assert.Equal(t, checkSchema, report.Failures[0].CheckName)
	assert.True(t, report.Failures[0].Critical)
	storeMock.AssertNotCalled(t, "ListSettings", mock.Anything)
}

func TestRunHealthChecks_SettingsFailureIsNonCritical(t *testing.T) {
	checker, storeMock := newHealthCheckerWithMock()
	storeMock.On("Open", mock.Anything).Return(nil)
	storeMock.On("CheckIntegrity", mock.Anything).Return(nil)
	storeMock.On("MigrationVersion", mock.Anything).Return(testSchemaVersion, nil)
	storeMock.On("ListSettings", mock.Anything).Return(nil, errors.New("settings table missing"))
	storeMock.On("Close").Return(nil)

	report := checker.RunHealthChecks()

	assert.True(t, report.Passed)
	assert.Equal(t, 4, report.ChecksRun)
	assert.Equal(t, 1, len(report.Failures))
	assert.Equal(t, checkSettings, report.Failures[0].CheckName)
	assert.False(t, report.Failures[0].Critical)
}

func TestRunHealthChecks_HangingProbeTimesOut(t *testing.T) {
	checker, storeMock := newHealthCheckerWithMock()
	storeMock.On("Open", mock.Anything).WaitUntil(time.After(2 * time.Second)).Return(nil)
	storeMock.On("Close").Return(nil)

	report := checker.RunHealthChecks()

	assert.False(t, report.Passed)
	assert.Equal(t, checkConnectivity, report.Failures[0].CheckName)
	assert.True(t, report.Failures[0].Critical)
}

func TestRunHealthChecks_ExhaustedBudgetSkipsProbes(t *testing.T) {
	checker, storeMock := newHealthCheckerWithMock()
	// a budget that is spent before the first probe starts
	checker.globalBudget = 0
	storeMock.On("Close").Return(nil)

	report := checker.RunHealthChecks()

	assert.True(t, report.Passed)
	assert.Equal(t, 0, report.ChecksRun)
	assert.Equal(t, 4, len(report.Failures))
	for _, failure := range report.Failures {
		assert.Equal(t, "not run: health check budget exhausted", failure.ErrorMessage)
		assert.False(t, failure.Critical)
	}
	storeMock.AssertNotCalled(t, "Open", mock.Anything)
	storeMock.AssertExpectations(t)
}

func TestRunHealthChecks_Idempotent(t *testing.T) {
	checker, storeMock := newHealthCheckerWithMock()
	storeMock.On("Open", mock.Anything).Return(nil)
	storeMock.On("CheckIntegrity", mock.Anything).Return(errors.New("page 14 is corrupt"))
	storeMock.On("Close").Return(nil)

	first := checker.RunHealthChecks()
	second := checker.RunHealthChecks()

	assert.Equal(t, first.Passed, second.Passed)
	assert.Equal(t, len(first.Failures), len(second.Failures))
	assert.Equal(t, first.Failures[0].CheckName, second.Failures[0].CheckName)
}
