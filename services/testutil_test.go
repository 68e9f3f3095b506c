package services

import (
	"context"
	"testing"

	"corredorflow/config"
	"corredorflow/insurers"
	"corredorflow/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Broker{},
		&models.Provider{},
		&models.InsurerConnection{},
		&models.Conversation{},
		&models.Quote{},
		&models.QuoteResult{},
		&models.Payment{},
	))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		YappyMarketCode: "PA",
		CallbackBaseURL: "https://api.test.local",
		FrontendBaseURL: "https://app.test.local",
	}
}

func createBroker(t *testing.T, db *gorm.DB, country string, yappyCreds bool) *models.Broker {
	t.Helper()
	broker := &models.Broker{
		Email:    "broker-" + country + "@test.local",
		Password: "x",
		Name:     "Test Broker",
		Country:  country,
		Active:   true,
	}
	if yappyCreds {
		broker.YappyMerchantID = "merchant-1"
		broker.YappySecretKey = "supersecret"
	}
	require.NoError(t, db.Create(broker).Error)
	return broker
}

func createProvider(t *testing.T, db *gorm.DB, slug, categories string) *models.Provider {
	t.Helper()
	p := &models.Provider{Slug: slug, Name: slug + " Seguros", Categories: categories, Countries: "PA"}
	require.NoError(t, db.Create(p).Error)
	return p
}

func createConnection(t *testing.T, db *gorm.DB, brokerID, providerID uint, active bool) *models.InsurerConnection {
	t.Helper()
	conn := &models.InsurerConnection{BrokerID: brokerID, ProviderID: providerID, Active: active}
	require.NoError(t, conn.SetCredentials(map[string]string{"api_key": "k"}))
	require.NoError(t, db.Create(conn).Error)
	return conn
}

// fakeAdapter is a scripted insurers.Adapter for fan-out tests. A blocking
// adapter hangs until its call context expires, like a provider that never
// answers.
type fakeAdapter struct {
	slug    string
	name    string
	price   float64
	err     error
	block   bool
	testOK  bool
	testMsg string
}

func (f *fakeAdapter) TestConnection(ctx context.Context, creds insurers.Credentials) (bool, string, error) {
	return f.testOK, f.testMsg, nil
}

func (f *fakeAdapter) GetQuote(ctx context.Context, creds insurers.Credentials, req insurers.QuoteRequest) (*insurers.QuoteResult, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &insurers.QuoteResult{
		ProviderSlug: f.slug,
		ProviderName: f.name,
		Price:        f.price,
		Currency:     "USD",
		Coverage:     map[string]interface{}{"tier": req.CoverageTier},
		IsRealtime:   true,
	}, nil
}

func fakeRegistry(adapters map[string]*fakeAdapter) *insurers.Registry {
	ctors := make(map[string]insurers.Constructor, len(adapters))
	for slug, fa := range adapters {
		fa := fa
		ctors[slug] = func(slug, name string) insurers.Adapter { return fa }
	}
	return insurers.NewRegistry(ctors)
}
