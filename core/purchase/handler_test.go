package purchase

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/learnhub/learnhub/api/weberr"
	"github.com/learnhub/learnhub/config"
	"github.com/learnhub/learnhub/core/claims"
	"github.com/learnhub/learnhub/validate"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

const webhookSecret = "whsec_test_secret"

func courseColumns() []string {
	return []string{
		"course_id", "title", "subtitle", "description", "category", "level", "price",
		"thumbnail_url", "thumbnail_key", "creator_id", "published", "created_at", "updated_at", "version",
	}
}

func signedEvent(t *testing.T, session map[string]any) (body []byte, header string) {
	t.Helper()

	raw, err := json.Marshal(session)
	require.NoError(t, err)

	evt := stripe.Event{
		APIVersion: "2022-11-15",
		Type:       "checkout.session.completed",
		Data: &stripe.EventData{
			Raw: json.RawMessage(raw),
		},
	}

	b, err := json.Marshal(evt)
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   b,
		Secret:    webhookSecret,
		Timestamp: time.Now(),
	})

	return b, signed.Header
}

func TestWebhookFulfillsPendingPurchase(t *testing.T) {
	db, mock := newMockDB(t)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM purchases WHERE provider_id")).
		WithArgs("cs_123").
		WillReturnRows(sqlmock.NewRows(purchaseColumns()).
			AddRow("p1", "u1", "c1", 500, "Pending", "card", "cs_123", "Intro to X", now, now))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE purchases")).
		WithArgs(500, sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO enrollments")).
		WithArgs("u1", "c1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	body, sig := signedEvent(t, map[string]any{
		"id":           "cs_123",
		"mode":         "payment",
		"amount_total": 500,
	})

	h := HandleWebhook(db, logrus.New(), config.Stripe{WebhookSecret: webhookSecret})

	r := httptest.NewRequest(http.MethodPost, "/purchase/webhook", bytes.NewReader(body))
	r.Header.Set("Stripe-Signature", sig)
	w := httptest.NewRecorder()

	require.NoError(t, h(context.Background(), w, r))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookDuplicateDeliveryIsNoOp(t *testing.T) {
	db, mock := newMockDB(t)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM purchases WHERE provider_id")).
		WithArgs("cs_123").
		WillReturnRows(sqlmock.NewRows(purchaseColumns()).
			AddRow("p1", "u1", "c1", 500, "Completed", "card", "cs_123", "Intro to X", now, now))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE purchases")).
		WithArgs(500, sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	body, sig := signedEvent(t, map[string]any{
		"id":           "cs_123",
		"mode":         "payment",
		"amount_total": 500,
	})

	h := HandleWebhook(db, logrus.New(), config.Stripe{WebhookSecret: webhookSecret})

	r := httptest.NewRequest(http.MethodPost, "/purchase/webhook", bytes.NewReader(body))
	r.Header.Set("Stripe-Signature", sig)
	w := httptest.NewRecorder()

	require.NoError(t, h(context.Background(), w, r))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	db, mock := newMockDB(t)

	body, sig := signedEvent(t, map[string]any{
		"id":           "cs_123",
		"mode":         "payment",
		"amount_total": 500,
	})

	// Tamper with the payload after signing.
	body = append(body, ' ')

	h := HandleWebhook(db, logrus.New(), config.Stripe{WebhookSecret: webhookSecret})

	r := httptest.NewRequest(http.MethodPost, "/purchase/webhook", bytes.NewReader(body))
	r.Header.Set("Stripe-Signature", sig)
	w := httptest.NewRecorder()

	err := h(context.Background(), w, r)
	require.Error(t, err)

	_, code, ok := weberr.Response(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, code)

	// No state change of any kind.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWebhookUnknownTransactionID(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM purchases WHERE provider_id")).
		WithArgs("cs_unknown").
		WillReturnRows(sqlmock.NewRows(purchaseColumns()))

	body, sig := signedEvent(t, map[string]any{
		"id":           "cs_unknown",
		"mode":         "payment",
		"amount_total": 500,
	})

	h := HandleWebhook(db, logrus.New(), config.Stripe{WebhookSecret: webhookSecret})

	r := httptest.NewRequest(http.MethodPost, "/purchase/webhook", bytes.NewReader(body))
	r.Header.Set("Stripe-Signature", sig)
	w := httptest.NewRecorder()

	err := h(context.Background(), w, r)
	require.Error(t, err)

	_, code, ok := weberr.Response(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutCreatesPendingPurchase(t *testing.T) {
	db, mock := newMockDB(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "500", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.NotEmpty(t, r.PostForm.Get("metadata[purchaseId]"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":  "cs_123",
			"url": "https://checkout.stripe.test/pay/cs_123",
		})
	}))
	defer srv.Close()

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL: stripe.String(srv.URL),
	})
	strp := &stripecl.API{}
	strp.Init("sk_test_key", &stripe.Backends{API: backend})

	courseID := validate.GenerateID()
	userID := validate.GenerateID()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM courses WHERE course_id")).
		WithArgs(courseID).
		WillReturnRows(sqlmock.NewRows(courseColumns()).
			AddRow(courseID, "Intro to X", "", "", "Data Science", "Beginner", 500,
				"", "", validate.GenerateID(), true, now, now, 1))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO purchases")).
		WithArgs(sqlmock.AnyArg(), userID, courseID, 500, "Pending", "card", "", "Intro to X", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE purchases")).
		WithArgs("cs_123", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	h := HandleCheckout(db, strp, config.Stripe{RequestTimeout: 5 * time.Second}, config.Client{URL: "http://localhost:3000"})

	body, err := json.Marshal(CheckoutNew{
		CourseID:   courseID,
		CourseName: "Intro to X",
		Amount:     500,
	})
	require.NoError(t, err)

	ctx := claims.Set(context.Background(), claims.Claims{UserID: userID, Role: claims.RoleUser})

	r := httptest.NewRequest(http.MethodPost, "/purchase/checkout/create-checkout-session", bytes.NewReader(body))
	w := httptest.NewRecorder()

	require.NoError(t, h(ctx, w, r))
	assert.Equal(t, http.StatusOK, w.Code)

	var out CheckoutSession
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	assert.Equal(t, "https://checkout.stripe.test/pay/cs_123", out.URL)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRejectsUnpublishedCourse(t *testing.T) {
	db, mock := newMockDB(t)

	courseID := validate.GenerateID()
	userID := validate.GenerateID()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM courses WHERE course_id")).
		WithArgs(courseID).
		WillReturnRows(sqlmock.NewRows(courseColumns()).
			AddRow(courseID, "Unreleased Course", "", "", "Data Science", "Beginner", 500,
				"", "", validate.GenerateID(), false, now, now, 1))

	h := HandleCheckout(db, &stripecl.API{}, config.Stripe{RequestTimeout: time.Second}, config.Client{})

	body, err := json.Marshal(CheckoutNew{
		CourseID:   courseID,
		CourseName: "Unreleased Course",
		Amount:     500,
	})
	require.NoError(t, err)

	ctx := claims.Set(context.Background(), claims.Claims{UserID: userID, Role: claims.RoleUser})

	r := httptest.NewRequest(http.MethodPost, "/purchase/checkout/create-checkout-session", bytes.NewReader(body))
	w := httptest.NewRecorder()

	err = h(ctx, w, r)
	require.Error(t, err)

	_, code, ok := weberr.Response(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	// Rejected before any purchase row exists.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaypalCaptureRejectsForeignPurchase(t *testing.T) {
	db, mock := newMockDB(t)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM purchases WHERE provider_id")).
		WithArgs("paypal-1").
		WillReturnRows(sqlmock.NewRows(purchaseColumns()).
			AddRow("p1", "u1", "c1", 500, "Pending", "paypal", "paypal-1", "Intro to X", now, now))

	h := HandlePaypalCapture(db, &paypal.Client{})

	ctx := claims.Set(context.Background(), claims.Claims{UserID: "u2", Role: claims.RoleUser})

	r := httptest.NewRequest(http.MethodPost, "/purchase/paypal/paypal-1/capture", nil)
	r = mux.SetURLVars(r, map[string]string{"id": "paypal-1"})
	w := httptest.NewRecorder()

	err := h(ctx, w, r)
	require.Error(t, err)

	_, code, ok := weberr.Response(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, code)

	// The gateway was never called and nothing was fulfilled.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckoutRejectsInvalidAmount(t *testing.T) {
	db, mock := newMockDB(t)

	h := HandleCheckout(db, &stripecl.API{}, config.Stripe{RequestTimeout: time.Second}, config.Client{})

	body, err := json.Marshal(CheckoutNew{
		CourseID:   validate.GenerateID(),
		CourseName: "Intro to X",
		Amount:     -5,
	})
	require.NoError(t, err)

	ctx := claims.Set(context.Background(), claims.Claims{UserID: validate.GenerateID(), Role: claims.RoleUser})

	r := httptest.NewRequest(http.MethodPost, "/purchase/checkout/create-checkout-session", bytes.NewReader(body))
	w := httptest.NewRecorder()

	err = h(ctx, w, r)
	require.Error(t, err)

	_, code, ok := weberr.Response(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	// Rejected before any side effect.
	assert.NoError(t, mock.ExpectationsWereMet())
}
