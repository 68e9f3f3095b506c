package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"corredorflow/models"
	"corredorflow/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentMessage struct {
	to       string
	text     string
	template string
}

type fakeNotifier struct {
	sent []sentMessage
}

func (f *fakeNotifier) SendText(ctx context.Context, to, text string) error {
	f.sent = append(f.sent, sentMessage{to: to, text: text})
	return nil
}

func (f *fakeNotifier) SendTemplate(ctx context.Context, to, template string, params []string) error {
	f.sent = append(f.sent, sentMessage{to: to, template: template})
	return nil
}

type fakeMPGateway struct {
	verifyOK  bool
	orderID   string
	rawStatus string
}

func (f *fakeMPGateway) VerifySignature(xSignature, xRequestID, dataID string) bool { return f.verifyOK }

func (f *fakeMPGateway) FetchPayment(ctx context.Context, paymentID string) (string, string, error) {
	return f.orderID, f.rawStatus, nil
}

func (f *fakeMPGateway) ClassifyStatus(raw string) (string, bool) {
	return NewMercadoPagoClient("", "").ClassifyStatus(raw)
}

func signYappy(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func seedPendingPayment(t *testing.T, db *gorm.DB, withConversation bool) (*models.Broker, *models.Payment) {
	t.Helper()
	broker := createBroker(t, db, "PA", true)

	var convID *uint
	if withConversation {
		conv := &models.Conversation{UUID: "conv-hook", BrokerID: broker.ID, CustomerPhone: "+50768889999", Status: models.ConversationWaitingPayment}
		require.NoError(t, db.Create(conv).Error)
		convID = &conv.ID
	}

	result := seedQuoteResult(t, db, broker.ID, convID)
	payment := &models.Payment{
		OrderID: "CF-1756700000-ABC123", BrokerID: broker.ID, QuoteResultID: result.ID,
		ConversationID: convID, Provider: "yappy", Amount: 512.30, Currency: "USD",
		Status: models.PaymentStatusPending, CustomerPhone: "+50768889999",
	}
	require.NoError(t, db.Create(payment).Error)
	return broker, payment
}

func newWebhookService(db *gorm.DB, notifier *fakeNotifier, mp MPGateway) *WebhookService {
	return NewWebhookService(db, testConfig(), notifier, NewYappyClient(""), mp)
}

func TestHandleYappyCompletedCascades(t *testing.T) {
	db := setupTestDB(t)
	broker, payment := seedPendingPayment(t, db, true)
	notifier := &fakeNotifier{}
	svc := newWebhookService(db, notifier, nil)

	body, _ := json.Marshal(YappyWebhook{OrderID: payment.OrderID, TransactionID: "tx-1", Status: "E", Amount: 51230, Currency: "USD"})
	err := svc.HandleYappy(context.Background(), body, signYappy(body, broker.YappySecretKey))
	require.NoError(t, err)

	var updated models.Payment
	require.NoError(t, db.Where("order_id = ?", payment.OrderID).First(&updated).Error)
	assert.Equal(t, models.PaymentStatusCompleted, updated.Status)

	var result models.QuoteResult
	require.NoError(t, db.First(&result, payment.QuoteResultID).Error)
	assert.True(t, result.Paid)

	var conv models.Conversation
	require.NoError(t, db.First(&conv, *payment.ConversationID).Error)
	assert.Equal(t, models.ConversationClosed, conv.Status)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "+50768889999", notifier.sent[0].to)
	assert.Contains(t, notifier.sent[0].text, "Internacional de Seguros")
}

func TestHandleYappyReplayNotifiesOnce(t *testing.T) {
	db := setupTestDB(t)
	broker, payment := seedPendingPayment(t, db, false)
	notifier := &fakeNotifier{}
	svc := newWebhookService(db, notifier, nil)

	body, _ := json.Marshal(YappyWebhook{OrderID: payment.OrderID, Status: "E"})
	sig := signYappy(body, broker.YappySecretKey)

	require.NoError(t, svc.HandleYappy(context.Background(), body, sig))
	require.NoError(t, svc.HandleYappy(context.Background(), body, sig))
	require.NoError(t, svc.HandleYappy(context.Background(), body, sig))

	assert.Len(t, notifier.sent, 1)

	var updated models.Payment
	require.NoError(t, db.Where("order_id = ?", payment.OrderID).First(&updated).Error)
	assert.Equal(t, models.PaymentStatusCompleted, updated.Status)
}

func TestHandleYappyConflictingTerminalIsIgnored(t *testing.T) {
	db := setupTestDB(t)
	broker, payment := seedPendingPayment(t, db, false)
	notifier := &fakeNotifier{}
	svc := newWebhookService(db, notifier, nil)

	completed, _ := json.Marshal(YappyWebhook{OrderID: payment.OrderID, Status: "E"})
	require.NoError(t, svc.HandleYappy(context.Background(), completed, signYappy(completed, broker.YappySecretKey)))

	// a late rejection for the same order must not flip the stored state
	rejected, _ := json.Marshal(YappyWebhook{OrderID: payment.OrderID, Status: "R"})
	require.NoError(t, svc.HandleYappy(context.Background(), rejected, signYappy(rejected, broker.YappySecretKey)))

	var updated models.Payment
	require.NoError(t, db.Where("order_id = ?", payment.OrderID).First(&updated).Error)
	assert.Equal(t, models.PaymentStatusCompleted, updated.Status)
	assert.Len(t, notifier.sent, 1)
}

func TestHandleYappyFailureSendsRetryTemplate(t *testing.T) {
	db := setupTestDB(t)
	broker, payment := seedPendingPayment(t, db, true)
	notifier := &fakeNotifier{}
	svc := newWebhookService(db, notifier, nil)

	body, _ := json.Marshal(YappyWebhook{OrderID: payment.OrderID, Status: "R"})
	require.NoError(t, svc.HandleYappy(context.Background(), body, signYappy(body, broker.YappySecretKey)))

	var updated models.Payment
	require.NoError(t, db.Where("order_id = ?", payment.OrderID).First(&updated).Error)
	assert.Equal(t, models.PaymentStatusFailed, updated.Status)

	// the conversation keeps waiting so the customer can retry
	var conv models.Conversation
	require.NoError(t, db.First(&conv, *payment.ConversationID).Error)
	assert.Equal(t, models.ConversationWaitingPayment, conv.Status)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "payment_retry", notifier.sent[0].template)
}

func TestHandleYappyRejectsBadSignature(t *testing.T) {
	db := setupTestDB(t)
	_, payment := seedPendingPayment(t, db, false)
	notifier := &fakeNotifier{}
	svc := newWebhookService(db, notifier, nil)

	body, _ := json.Marshal(YappyWebhook{OrderID: payment.OrderID, Status: "E"})
	err := svc.HandleYappy(context.Background(), body, signYappy(body, "wrong-secret"))
	require.Error(t, err)
	assert.Equal(t, utils.KindAuth, utils.ErrorKindOf(err))

	var updated models.Payment
	require.NoError(t, db.Where("order_id = ?", payment.OrderID).First(&updated).Error)
	assert.Equal(t, models.PaymentStatusPending, updated.Status)
	assert.Empty(t, notifier.sent)
}

func TestHandleYappyUnknownOrder(t *testing.T) {
	db := setupTestDB(t)
	svc := newWebhookService(db, &fakeNotifier{}, nil)

	body, _ := json.Marshal(YappyWebhook{OrderID: "CF-0-NOPE", Status: "E"})
	err := svc.HandleYappy(context.Background(), body, "deadbeef")
	require.Error(t, err)
	assert.Equal(t, utils.KindNotFound, utils.ErrorKindOf(err))
}

func TestHandleYappyMalformedBody(t *testing.T) {
	db := setupTestDB(t)
	svc := newWebhookService(db, &fakeNotifier{}, nil)

	err := svc.HandleYappy(context.Background(), []byte("not json"), "sig")
	require.Error(t, err)
	assert.Equal(t, utils.KindValidation, utils.ErrorKindOf(err))
}

func TestHandleMercadoPagoApproved(t *testing.T) {
	db := setupTestDB(t)
	_, payment := seedPendingPayment(t, db, false)
	notifier := &fakeNotifier{}
	mp := &fakeMPGateway{verifyOK: true, orderID: payment.OrderID, rawStatus: "approved"}
	svc := newWebhookService(db, notifier, mp)

	require.NoError(t, svc.HandleMercadoPago(context.Background(), "sig", "req-1", "12345"))

	var updated models.Payment
	require.NoError(t, db.Where("order_id = ?", payment.OrderID).First(&updated).Error)
	assert.Equal(t, models.PaymentStatusCompleted, updated.Status)
	assert.Len(t, notifier.sent, 1)
}

func TestHandleMercadoPagoNonTerminalIsAcked(t *testing.T) {
	db := setupTestDB(t)
	_, payment := seedPendingPayment(t, db, false)
	notifier := &fakeNotifier{}
	mp := &fakeMPGateway{verifyOK: true, orderID: payment.OrderID, rawStatus: "in_process"}
	svc := newWebhookService(db, notifier, mp)

	require.NoError(t, svc.HandleMercadoPago(context.Background(), "sig", "req-1", "12345"))

	var updated models.Payment
	require.NoError(t, db.Where("order_id = ?", payment.OrderID).First(&updated).Error)
	assert.Equal(t, models.PaymentStatusPending, updated.Status)
	assert.Empty(t, notifier.sent)
}

func TestHandleMercadoPagoRejectsBadSignature(t *testing.T) {
	db := setupTestDB(t)
	svc := newWebhookService(db, &fakeNotifier{}, &fakeMPGateway{verifyOK: false})

	err := svc.HandleMercadoPago(context.Background(), "sig", "req-1", "12345")
	require.Error(t, err)
	assert.Equal(t, utils.KindAuth, utils.ErrorKindOf(err))
}
