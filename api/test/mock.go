package test

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/learnhub/learnhub/api/web"
	"github.com/plutov/paypal/v4"
)

// mockStripe stands in for the Stripe API. It validates the checkout
// session against the expected course price and hands back session ids
// the tests feed into signed webhook events.
type mockStripe struct {
	mu sync.Mutex

	// ExpectedAmount is the price the next session must carry, in
	// minor currency units.
	ExpectedAmount int

	sessions []string
}

func (m *mockStripe) handler() http.Handler {
	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		if err := r.ParseForm(); err != nil {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if r.PostForm.Get("line_items[0][quantity]") != "1" {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		amount, err := strconv.Atoi(r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		if err != nil || amount != m.ExpectedAmount {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if r.PostForm.Get("metadata[purchaseId]") == "" {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		id := fmt.Sprintf("cs_test_%d", rand.Intn(100000))
		m.sessions = append(m.sessions, id)

		out := map[string]any{
			"id":   id,
			"mode": "payment",
			"url":  "https://checkout.stripe.test/pay/" + id,
		}
		web.Respond(context.Background(), w, out, 200)
	})

	r := mux.NewRouter()
	r.Handle("/v1/checkout/sessions", checkout).Methods("POST")
	return r
}

// mockPaypal stands in for the PayPal API, serving the oauth token the
// client fetches on startup plus order creation and capture.
type mockPaypal struct {
	mu sync.Mutex

	// ExpectedValue is the order total the next creation must carry,
	// rendered as a decimal string the way PayPal wants it.
	ExpectedValue string
}

func (m *mockPaypal) handler() http.Handler {
	token := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		web.Respond(context.Background(), w, out, 200)
	})

	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		var pu struct {
			Units []paypal.PurchaseUnitRequest `json:"purchase_units"`
		}
		if err := json.NewDecoder(r.Body).Decode(&pu); err != nil {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if len(pu.Units) != 1 || pu.Units[0].Amount.Value != m.ExpectedValue {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		ord := paypal.Order{
			ID:     fmt.Sprintf("paypal-%d", rand.Intn(100000)),
			Status: "CREATED",
		}
		web.Respond(context.Background(), w, ord, 201)
	})

	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ord := paypal.Order{
			ID:     mux.Vars(r)["id"],
			Status: "COMPLETED",
		}
		web.Respond(context.Background(), w, ord, 200)
	})

	r := mux.NewRouter()
	r.Handle("/v1/oauth2/token", token).Methods("POST")
	r.Handle("/v2/checkout/orders", checkout).Methods("POST")
	r.Handle("/v2/checkout/orders/{id}/capture", capture).Methods("POST")
	return r
}
