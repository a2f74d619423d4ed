package test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"path"
	"testing"
	"time"

	"github.com/learnhub/learnhub/core/course"
	"github.com/learnhub/learnhub/core/purchase"
	"github.com/learnhub/learnhub/core/user"
	"github.com/learnhub/learnhub/validate"
	"github.com/plutov/paypal/v4"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"
)

type purchaseTest struct {
	*TestEnv
}

func TestStripePurchase(t *testing.T) {
	env, err := NewTestEnv(t, "stripe_purchase_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	pt := &purchaseTest{env}
	ct := &courseTest{env}

	if err := env.Login(env.CreatorEmail, env.CreatorPass); err != nil {
		t.Fatal(err)
	}
	c := ct.createCourseOK(t, "Learn Postgres", 500)
	ct.publishCourseOK(t, c.ID)
	if err := env.Logout(); err != nil {
		t.Fatal(err)
	}

	if err := env.Login(env.StudentEmail, env.StudentPass); err != nil {
		t.Fatal(err)
	}

	env.Stripe.ExpectedAmount = c.Price
	sessID := pt.checkoutOK(t, c)

	purs := pt.listPurchasesOK(t)
	if len(purs) != 1 {
		t.Fatalf("expected 1 purchase after checkout, got %d", len(purs))
	}
	if purs[0].Status != purchase.Pending {
		t.Fatalf("expected a Pending purchase before the webhook, got %s", purs[0].Status)
	}

	pt.assertPurchased(t, c.ID, false)

	// The gateway confirms the payment.
	body, sig := pt.signEvent(t, sessID, c.Price)
	pt.sendWebhook(t, body, sig, http.StatusNoContent)

	purs = pt.listPurchasesOK(t)
	if len(purs) != 1 {
		t.Fatalf("expected 1 purchase after fulfillment, got %d", len(purs))
	}
	if purs[0].Status != purchase.Completed {
		t.Fatalf("expected a Completed purchase after the webhook, got %s", purs[0].Status)
	}

	pt.assertPurchased(t, c.ID, true)

	// A retried delivery of the same event changes nothing.
	body, sig = pt.signEvent(t, sessID, c.Price)
	pt.sendWebhook(t, body, sig, http.StatusNoContent)

	purs = pt.listPurchasesOK(t)
	if len(purs) != 1 || purs[0].Status != purchase.Completed {
		t.Fatalf("duplicate webhook altered the purchases: %+v", purs)
	}

	// Events carrying an unknown session are rejected so the gateway
	// keeps retrying them.
	body, sig = pt.signEvent(t, "cs_test_unknown", c.Price)
	pt.sendWebhook(t, body, sig, http.StatusNotFound)

	// A tampered payload never reaches fulfillment.
	body, sig = pt.signEvent(t, sessID, c.Price)
	body = append(body, ' ')
	pt.sendWebhook(t, body, sig, http.StatusBadRequest)

	// A session id can only ever be bound to one purchase.
	ctx := context.Background()
	student, err := user.FetchByEmail(ctx, env.DB, env.StudentEmail)
	if err != nil {
		t.Fatalf("fetching student: %v", err)
	}

	now := time.Now().UTC()
	dup := purchase.Purchase{
		ID:         validate.GenerateID(),
		UserID:     student.ID,
		CourseID:   c.ID,
		Amount:     c.Price,
		Status:     purchase.Pending,
		Method:     purchase.MethodCard,
		CourseName: c.Title,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := purchase.Create(ctx, env.DB, dup); err != nil {
		t.Fatalf("creating second purchase: %v", err)
	}

	if err := purchase.SetProviderID(ctx, env.DB, dup.ID, sessID); err == nil {
		t.Fatal("expected binding a second purchase to the same session to fail")
	}
}

func TestPaypalPurchase(t *testing.T) {
	env, err := NewTestEnv(t, "paypal_purchase_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	pt := &purchaseTest{env}
	ct := &courseTest{env}

	if err := env.Login(env.CreatorEmail, env.CreatorPass); err != nil {
		t.Fatal(err)
	}
	c := ct.createCourseOK(t, "Learn Kubernetes", 1250)
	ct.publishCourseOK(t, c.ID)
	if err := env.Logout(); err != nil {
		t.Fatal(err)
	}

	if err := env.Login(env.StudentEmail, env.StudentPass); err != nil {
		t.Fatal(err)
	}

	env.Paypal.ExpectedValue = "12.50"

	cn := purchase.CheckoutNew{CourseID: c.ID, CourseName: c.Title, Amount: c.Price}
	w, err := env.postJSON("/purchase/paypal", cn)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't create paypal order: status code %s", w.Status)
	}

	var ord paypal.Order
	if err := json.NewDecoder(w.Body).Decode(&ord); err != nil {
		t.Fatalf("cannot unmarshal paypal order: %v", err)
	}

	w, err = env.postJSON("/purchase/paypal/"+ord.ID+"/capture", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusNoContent {
		t.Fatalf("can't capture paypal order: status code %s", w.Status)
	}

	pt.assertPurchased(t, c.ID, true)
}

func (pt *purchaseTest) checkoutOK(t *testing.T, c course.Course) string {
	t.Helper()

	cn := purchase.CheckoutNew{CourseID: c.ID, CourseName: c.Title, Amount: c.Price}

	w, err := pt.postJSON("/purchase/checkout/create-checkout-session", cn)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't create checkout session: status code %s", w.Status)
	}

	var cs purchase.CheckoutSession
	if err := json.NewDecoder(w.Body).Decode(&cs); err != nil {
		t.Fatalf("cannot unmarshal checkout session: %v", err)
	}

	return path.Base(cs.URL)
}

func (pt *purchaseTest) listPurchasesOK(t *testing.T) []purchase.Purchase {
	t.Helper()

	var purs []purchase.Purchase
	if err := pt.getJSON("/purchase", http.StatusOK, &purs); err != nil {
		t.Fatal(err)
	}

	return purs
}

func (pt *purchaseTest) assertPurchased(t *testing.T, courseID string, want bool) {
	t.Helper()

	var out struct {
		Purchased bool `json:"purchased"`
	}
	if err := pt.getJSON("/purchase/course/"+courseID+"/detail-with-status", http.StatusOK, &out); err != nil {
		t.Fatal(err)
	}

	if out.Purchased != want {
		t.Fatalf("expected purchased=%v, got %v", want, out.Purchased)
	}
}

func (pt *purchaseTest) signEvent(t *testing.T, sessionID string, amount int) ([]byte, string) {
	t.Helper()

	obj := map[string]any{
		"id":           sessionID,
		"mode":         stripe.CheckoutSessionModePayment,
		"amount_total": amount,
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		t.Fatal(err)
	}

	evt := stripe.Event{
		APIVersion: "2022-11-15",
		Type:       "checkout.session.completed",
		Data: &stripe.EventData{
			Raw: json.RawMessage(raw),
		},
	}

	b, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   b,
		Secret:    pt.WebhookSecret,
		Timestamp: time.Now(),
	})

	return b, signed.Header
}

func (pt *purchaseTest) sendWebhook(t *testing.T, body []byte, sig string, want int) {
	t.Helper()

	r, err := http.NewRequest(http.MethodPost, pt.URL+"/purchase/webhook", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	r.Header.Set("Stripe-Signature", sig)

	w, err := pt.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != want {
		t.Fatalf("webhook delivery: expected status %d, got %s", want, w.Status)
	}
}
