package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanPortfolioJob_NoTriggeringEvents(t *testing.T) {
	job := planPortfolioJob([]DomainEvent{AssetEnrichmentRequested{AssetIDs: []string{"AAPL"}}})
	assert.Nil(t, job)
}

func TestPlanPortfolioJob_ActivitySavedNeedsSyncAndScopesAccount(t *testing.T) {
	job := planPortfolioJob([]DomainEvent{ActivitySaved{AccountID: "acc1"}})
	require.NotNil(t, job)
	assert.True(t, job.NeedsMarketSync)
	assert.Equal(t, []string{"acc1"}, job.AccountIDs)
}

func TestPlanPortfolioJob_DedupsAccountIDsAcrossEvents(t *testing.T) {
	job := planPortfolioJob([]DomainEvent{
		ActivitySaved{AccountID: "acc1"},
		ActivitiesImported{AccountIDs: []string{"acc1", "acc2"}},
	})
	require.NotNil(t, job)
	assert.Equal(t, []string{"acc1", "acc2"}, job.AccountIDs)
}

func TestPlanPortfolioJob_FxRatesUpdatedIsBroadAndNoSync(t *testing.T) {
	job := planPortfolioJob([]DomainEvent{FxRatesUpdated{}})
	require.NotNil(t, job)
	assert.False(t, job.NeedsMarketSync)
	assert.Nil(t, job.AccountIDs) // broad: every non-archived account
}

func TestPlanPortfolioJob_RecalcRequestedWithNoAccountsIsBroad(t *testing.T) {
	job := planPortfolioJob([]DomainEvent{PortfolioRecalcRequested{}})
	require.NotNil(t, job)
	assert.True(t, job.NeedsMarketSync)
	assert.Nil(t, job.AccountIDs)
}

func TestPlanAssetEnrichment_DedupsAcrossEvents(t *testing.T) {
	ids := planAssetEnrichment([]DomainEvent{
		AssetEnrichmentRequested{AssetIDs: []string{"AAPL", "MSFT"}},
		AssetEnrichmentRequested{AssetIDs: []string{"MSFT", "GOOG"}},
		ActivitySaved{AccountID: "acc1"},
	})
	assert.Equal(t, []string{"AAPL", "MSFT", "GOOG"}, ids)
}

func TestPlanBrokerSync_IgnoresUnchangedMode(t *testing.T) {
	ids := planBrokerSync([]DomainEvent{
		AccountTrackingModeChanged{AccountID: "acc1", Old: "MANUAL", New: "MANUAL"},
	})
	assert.Empty(t, ids)
}

func TestPlanBrokerSync_CollectsChangedAccounts(t *testing.T) {
	ids := planBrokerSync([]DomainEvent{
		AccountTrackingModeChanged{AccountID: "acc1", Old: "MANUAL", New: "BROKER"},
		AccountTrackingModeChanged{AccountID: "acc1", Old: "MANUAL", New: "BROKER"},
		AccountTrackingModeChanged{AccountID: "acc2", Old: "MANUAL", New: "BROKER"},
	})
	assert.Equal(t, []string{"acc1", "acc2"}, ids)
}
