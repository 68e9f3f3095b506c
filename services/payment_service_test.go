package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"corredorflow/models"
	"corredorflow/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// fakeCheckout is a scripted CheckoutProvider.
type fakeCheckout struct {
	name    string
	err     error
	lastReq PaymentRequest
	calls   int
}

func (f *fakeCheckout) Name() string { return f.name }

func (f *fakeCheckout) CreateCheckout(ctx context.Context, broker *models.Broker, req PaymentRequest) (*CheckoutSession, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &CheckoutSession{Reference: "ref-" + f.name, CheckoutURL: "https://pay." + f.name + ".test/" + req.OrderID}, nil
}

func seedQuoteResult(t *testing.T, db *gorm.DB, brokerID uint, convID *uint) *models.QuoteResult {
	t.Helper()
	quote := &models.Quote{BrokerID: brokerID, ConversationID: convID, Category: "auto", CoverageTier: "basic", InputData: datatypes.JSON("{}")}
	require.NoError(t, db.Create(quote).Error)
	result := &models.QuoteResult{
		QuoteID: quote.ID, BrokerID: brokerID,
		ProviderSlug: "internacional", ProviderName: "Internacional de Seguros",
		Price: 512.30, Currency: "USD", Coverage: datatypes.JSON("{}"), IsRealtime: true,
	}
	require.NoError(t, db.Create(result).Error)
	return result
}

func TestSelectProviderRouting(t *testing.T) {
	db := setupTestDB(t)
	yappy := &fakeCheckout{name: "yappy"}
	mp := &fakeCheckout{name: "mercadopago"}
	svc := NewPaymentService(db, testConfig(), yappy, mp)

	paBroker := createBroker(t, db, "PA", true)
	assert.Equal(t, "yappy", svc.SelectProvider(paBroker).Name())

	paNoCreds := &models.Broker{Email: "pa2@test.local", Password: "x", Name: "B", Country: "PA", Active: true}
	require.NoError(t, db.Create(paNoCreds).Error)
	assert.Equal(t, "mercadopago", svc.SelectProvider(paNoCreds).Name())

	crBroker := createBroker(t, db, "CR", true)
	assert.Equal(t, "mercadopago", svc.SelectProvider(crBroker).Name())
}

func TestCreatePaymentViaYappy(t *testing.T) {
	db := setupTestDB(t)
	broker := createBroker(t, db, "PA", true)

	conv := &models.Conversation{UUID: "conv-pay", BrokerID: broker.ID, CustomerPhone: "+50761112222", Status: models.ConversationActive}
	require.NoError(t, db.Create(conv).Error)
	result := seedQuoteResult(t, db, broker.ID, &conv.ID)

	yappy := &fakeCheckout{name: "yappy"}
	mp := &fakeCheckout{name: "mercadopago"}
	svc := NewPaymentService(db, testConfig(), yappy, mp)

	out, err := svc.CreatePayment(context.Background(), broker.ID, models.CreatePaymentRequest{QuoteResultID: result.ID})
	require.NoError(t, err)

	assert.Equal(t, "yappy", out.Provider)
	assert.True(t, strings.HasPrefix(out.OrderID, "CF-"))
	assert.Contains(t, out.PaymentURL, "pay.yappy.test")
	assert.Equal(t, 1, yappy.calls)
	assert.Equal(t, 0, mp.calls)

	// phone falls through from the conversation
	assert.Equal(t, "+50761112222", yappy.lastReq.CustomerPhone)
	assert.Equal(t, 512.30, yappy.lastReq.Amount)

	var payment models.Payment
	require.NoError(t, db.Where("order_id = ?", out.OrderID).First(&payment).Error)
	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.Equal(t, "ref-yappy", payment.ProviderRef)
	assert.Equal(t, result.ID, payment.QuoteResultID)

	var updatedConv models.Conversation
	require.NoError(t, db.First(&updatedConv, conv.ID).Error)
	assert.Equal(t, models.ConversationWaitingPayment, updatedConv.Status)

	var updatedResult models.QuoteResult
	require.NoError(t, db.First(&updatedResult, result.ID).Error)
	assert.True(t, updatedResult.Selected)
}

func TestCreatePaymentDefaultsCurrencyFromBrokerCountry(t *testing.T) {
	db := setupTestDB(t)
	broker := createBroker(t, db, "CR", false)

	quote := &models.Quote{BrokerID: broker.ID, Category: "auto", CoverageTier: "basic", InputData: datatypes.JSON("{}")}
	require.NoError(t, db.Create(quote).Error)
	result := &models.QuoteResult{
		QuoteID: quote.ID, BrokerID: broker.ID,
		ProviderSlug: "sura", ProviderName: "Seguros SURA",
		Price: 88.00, Coverage: datatypes.JSON("{}"),
	}
	require.NoError(t, db.Create(result).Error)

	mp := &fakeCheckout{name: "mercadopago"}
	svc := NewPaymentService(db, testConfig(), &fakeCheckout{name: "yappy"}, mp)

	out, err := svc.CreatePayment(context.Background(), broker.ID, models.CreatePaymentRequest{QuoteResultID: result.ID})
	require.NoError(t, err)

	assert.Equal(t, "CRC", mp.lastReq.Currency)

	var payment models.Payment
	require.NoError(t, db.Where("order_id = ?", out.OrderID).First(&payment).Error)
	assert.Equal(t, "CRC", payment.Currency)
}

func TestCreatePaymentProviderFailureLeavesNoRow(t *testing.T) {
	db := setupTestDB(t)
	broker := createBroker(t, db, "PA", true)
	result := seedQuoteResult(t, db, broker.ID, nil)

	yappy := &fakeCheckout{name: "yappy", err: errors.New("gateway down")}
	svc := NewPaymentService(db, testConfig(), yappy, &fakeCheckout{name: "mercadopago"})

	_, err := svc.CreatePayment(context.Background(), broker.ID, models.CreatePaymentRequest{QuoteResultID: result.ID})
	require.Error(t, err)
	assert.Equal(t, utils.KindUpstream, utils.ErrorKindOf(err))

	var count int64
	db.Model(&models.Payment{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestCreatePaymentRejectsPaidResult(t *testing.T) {
	db := setupTestDB(t)
	broker := createBroker(t, db, "PA", true)
	result := seedQuoteResult(t, db, broker.ID, nil)
	require.NoError(t, db.Model(result).Update("paid", true).Error)

	svc := NewPaymentService(db, testConfig(), &fakeCheckout{name: "yappy"}, &fakeCheckout{name: "mercadopago"})

	_, err := svc.CreatePayment(context.Background(), broker.ID, models.CreatePaymentRequest{QuoteResultID: result.ID})
	require.Error(t, err)
	assert.Equal(t, utils.KindPrecondition, utils.ErrorKindOf(err))
}

func TestCreatePaymentScopesResultToBroker(t *testing.T) {
	db := setupTestDB(t)
	owner := createBroker(t, db, "PA", true)
	intruder := createBroker(t, db, "CR", false)
	result := seedQuoteResult(t, db, owner.ID, nil)

	svc := NewPaymentService(db, testConfig(), &fakeCheckout{name: "yappy"}, &fakeCheckout{name: "mercadopago"})

	_, err := svc.CreatePayment(context.Background(), intruder.ID, models.CreatePaymentRequest{QuoteResultID: result.ID})
	require.Error(t, err)
	assert.Equal(t, utils.KindNotFound, utils.ErrorKindOf(err))
}

func TestListPaymentsFilters(t *testing.T) {
	db := setupTestDB(t)
	broker := createBroker(t, db, "PA", true)

	for i, status := range []string{models.PaymentStatusPending, models.PaymentStatusCompleted, models.PaymentStatusFailed} {
		p := models.Payment{
			OrderID: utils.NewOrderID() + string(rune('a'+i)), BrokerID: broker.ID,
			QuoteResultID: 1, Provider: "yappy", Amount: 100, Currency: "USD", Status: status,
		}
		require.NoError(t, db.Create(&p).Error)
	}

	svc := NewPaymentService(db, testConfig(), &fakeCheckout{name: "yappy"}, &fakeCheckout{name: "mercadopago"})

	all, total, err := svc.ListPayments(broker.ID, "", "", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	completed, total, err := svc.ListPayments(broker.ID, models.PaymentStatusCompleted, "", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, completed, 1)
	assert.Equal(t, models.PaymentStatusCompleted, completed[0].Status)
}
