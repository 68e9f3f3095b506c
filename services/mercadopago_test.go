package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"corredorflow/models"

	"github.com/stretchr/testify/assert"
)

func mpSignature(secret, dataID, requestID, ts string) string {
	manifest := fmt.Sprintf("id:%s;request-id:%s;ts:%s;", dataID, requestID, ts)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return fmt.Sprintf("ts=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestMercadoPagoVerifySignature(t *testing.T) {
	m := NewMercadoPagoClient("token", "webhook-secret")

	sig := mpSignature("webhook-secret", "12345", "req-abc", "1756700000")
	assert.True(t, m.VerifySignature(sig, "req-abc", "12345"))

	assert.False(t, m.VerifySignature(sig, "req-other", "12345"))
	assert.False(t, m.VerifySignature(sig, "req-abc", "99999"))
	assert.False(t, m.VerifySignature(mpSignature("wrong", "12345", "req-abc", "1756700000"), "req-abc", "12345"))
	assert.False(t, m.VerifySignature("", "req-abc", "12345"))
	assert.False(t, m.VerifySignature("garbage", "req-abc", "12345"))

	unconfigured := NewMercadoPagoClient("token", "")
	assert.False(t, unconfigured.VerifySignature(sig, "req-abc", "12345"))
}

func TestMercadoPagoClassifyStatus(t *testing.T) {
	m := NewMercadoPagoClient("", "")

	got, ok := m.ClassifyStatus("approved")
	assert.True(t, ok)
	assert.Equal(t, models.PaymentStatusCompleted, got)

	got, ok = m.ClassifyStatus("rejected")
	assert.True(t, ok)
	assert.Equal(t, models.PaymentStatusFailed, got)

	got, ok = m.ClassifyStatus("cancelled")
	assert.True(t, ok)
	assert.Equal(t, models.PaymentStatusCancelled, got)

	for _, raw := range []string{"pending", "in_process", "authorized", ""} {
		_, ok := m.ClassifyStatus(raw)
		assert.False(t, ok, raw)
	}
}
