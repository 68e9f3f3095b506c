package services

import (
	"context"
	"testing"

	"corredorflow/models"
	"corredorflow/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectPersistsOnlyAfterSuccessfulTest(t *testing.T) {
	db := setupTestDB(t)
	broker := createBroker(t, db, "PA", false)
	provider := createProvider(t, db, "internacional", "auto,health")

	registry := fakeRegistry(map[string]*fakeAdapter{
		"internacional": {slug: "internacional", name: "Internacional", testOK: false, testMsg: "invalid api key"},
	})
	svc := NewInsurerService(db, registry)

	_, err := svc.Connect(context.Background(), broker, provider.ID, map[string]string{"api_key": "bad"})
	require.Error(t, err)
	assert.Equal(t, utils.KindValidation, utils.ErrorKindOf(err))
	assert.Contains(t, err.Error(), "invalid api key")

	var count int64
	db.Model(&models.InsurerConnection{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestConnectUpsertsExistingConnection(t *testing.T) {
	db := setupTestDB(t)
	broker := createBroker(t, db, "PA", false)
	provider := createProvider(t, db, "acerta", "auto")

	registry := fakeRegistry(map[string]*fakeAdapter{
		"acerta": {slug: "acerta", name: "Acerta", testOK: true},
	})
	svc := NewInsurerService(db, registry)

	first, err := svc.Connect(context.Background(), broker, provider.ID, map[string]string{"api_key": "one"})
	require.NoError(t, err)
	assert.True(t, first.Active)
	require.NotNil(t, first.LastTestedAt)

	// reconnecting replaces the credentials in place instead of duplicating
	second, err := svc.Connect(context.Background(), broker, provider.ID, map[string]string{"api_key": "two"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "two", second.CredentialMap()["api_key"])

	var count int64
	db.Model(&models.InsurerConnection{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestConnectFailedRetestKeepsStoredConnection(t *testing.T) {
	db := setupTestDB(t)
	broker := createBroker(t, db, "PA", false)
	provider := createProvider(t, db, "internacional", "auto")

	adapter := &fakeAdapter{slug: "internacional", name: "Internacional", testOK: true}
	svc := NewInsurerService(db, fakeRegistry(map[string]*fakeAdapter{"internacional": adapter}))

	first, err := svc.Connect(context.Background(), broker, provider.ID, map[string]string{"login": "a", "password": "old"})
	require.NoError(t, err)
	require.NoError(t, svc.Disconnect(broker.ID, first.ID))

	// the provider now rejects the new credentials; the stored (inactive)
	// connection must come through untouched - not reactivated, not
	// overwritten
	adapter.testOK = false
	adapter.testMsg = "invalid password"
	_, err = svc.Connect(context.Background(), broker, provider.ID, map[string]string{"login": "a", "password": "typo"})
	require.Error(t, err)
	assert.Equal(t, utils.KindValidation, utils.ErrorKindOf(err))

	var stored models.InsurerConnection
	require.NoError(t, db.First(&stored, first.ID).Error)
	assert.Equal(t, "old", stored.CredentialMap()["password"])
	assert.False(t, stored.Active)
	assert.Equal(t, first.LastTestedAt.Unix(), stored.LastTestedAt.Unix())
}

func TestConnectRejectsUnavailableCountry(t *testing.T) {
	db := setupTestDB(t)
	broker := createBroker(t, db, "CR", false)
	provider := createProvider(t, db, "fedpa", "auto") // PA only

	svc := NewInsurerService(db, fakeRegistry(map[string]*fakeAdapter{
		"fedpa": {slug: "fedpa", name: "FEDPA", testOK: true},
	}))

	_, err := svc.Connect(context.Background(), broker, provider.ID, map[string]string{})
	require.Error(t, err)
	assert.Equal(t, utils.KindForbidden, utils.ErrorKindOf(err))
}

func TestDisconnectKeepsCredentials(t *testing.T) {
	db := setupTestDB(t)
	broker := createBroker(t, db, "PA", false)
	provider := createProvider(t, db, "assa", "auto")
	conn := createConnection(t, db, broker.ID, provider.ID, true)

	svc := NewInsurerService(db, fakeRegistry(nil))
	require.NoError(t, svc.Disconnect(broker.ID, conn.ID))

	var updated models.InsurerConnection
	require.NoError(t, db.First(&updated, conn.ID).Error)
	assert.False(t, updated.Active)
	assert.Equal(t, "k", updated.CredentialMap()["api_key"])

	// someone else's connection is invisible
	err := svc.Disconnect(broker.ID+1, conn.ID)
	assert.Equal(t, utils.KindNotFound, utils.ErrorKindOf(err))
}

func TestTestProviderUnknownProvider(t *testing.T) {
	db := setupTestDB(t)
	broker := createBroker(t, db, "PA", false)

	svc := NewInsurerService(db, fakeRegistry(nil))
	_, err := svc.TestProvider(context.Background(), broker.ID, 404, map[string]string{})
	require.Error(t, err)
	assert.Equal(t, utils.KindNotFound, utils.ErrorKindOf(err))
}
