package purchase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/learnhub/learnhub/api/web"
	"github.com/learnhub/learnhub/api/weberr"
	"github.com/learnhub/learnhub/config"
	"github.com/learnhub/learnhub/core/claims"
	"github.com/learnhub/learnhub/core/course"
	"github.com/learnhub/learnhub/core/enrollment"
	"github.com/learnhub/learnhub/database"
	"github.com/learnhub/learnhub/validate"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	stripecl "github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"
)

// checkout validates the request against the course catalog. The
// course must exist and be browsable; the stored price is the amount
// that will be charged, whatever the client claimed.
func checkout(ctx context.Context, db *sqlx.DB, cn CheckoutNew) (course.Course, error) {
	c, err := course.Fetch(ctx, db, cn.CourseID)
	if err != nil {
		if database.IsNoRows(err) {
			return course.Course{}, weberr.NotFound(err)
		}
		return course.Course{}, fmt.Errorf("fetching course[%s]: %w", cn.CourseID, err)
	}

	if !c.Published {
		err := errors.New("course is not available for purchase")
		return course.Course{}, weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
	}

	return c, nil
}

// prepare records the Pending purchase before the gateway is called.
// If the gateway call then fails, the row stays behind as a Pending
// orphan: accepted, it can never complete without a provider id.
func prepare(ctx context.Context, db *sqlx.DB, userID string, method string, cn CheckoutNew, c course.Course) (Purchase, error) {
	now := time.Now().UTC()
	pur := Purchase{
		ID:         validate.GenerateID(),
		UserID:     userID,
		CourseID:   c.ID,
		Amount:     c.Price,
		Status:     Pending,
		Method:     method,
		CourseName: cn.CourseName,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := Create(ctx, db, pur); err != nil {
		return Purchase{}, fmt.Errorf("creating purchase for user[%s]: %w", userID, err)
	}

	return pur, nil
}

// fulfill is the webhook side of the orchestration: transition the
// purchase bound to the verified provider id and record the
// entitlement, atomically. Re-delivery finds the status guard closed
// and changes nothing.
func fulfill(ctx context.Context, db *sqlx.DB, providerID string, amount int) error {
	pur, err := FetchByProviderID(ctx, db, providerID)
	if err != nil {
		if database.IsNoRows(err) {
			return weberr.NotFound(err)
		}
		return err
	}

	err = database.Transaction(db, func(tx sqlx.ExtContext) error {
		done, err := Complete(ctx, tx, pur.ID, amount)
		if err != nil {
			return err
		}

		if !done {
			return nil
		}

		enr := enrollment.Enrollment{
			UserID:    pur.UserID,
			CourseID:  pur.CourseID,
			CreatedAt: time.Now().UTC(),
		}
		return enrollment.Create(ctx, tx, enr)
	})

	if err != nil {
		return fmt.Errorf("fulfilling purchase[%s] bound to payment[%s]: %w", pur.ID, providerID, err)
	}
	return nil
}

// paypalAmount renders a price held in minor units the way PayPal
// wants it: a decimal string in major units.
func paypalAmount(minor int) string {
	return strconv.Itoa(minor/100) + "." + fmt.Sprintf("%02d", minor%100)
}

// HandleCheckout creates the Pending purchase, obtains a hosted Stripe
// checkout session and binds its id to the purchase. The session
// metadata carries {userId, courseId, purchaseId} for correlation.
func HandleCheckout(db *sqlx.DB, strp *stripecl.API, cfg config.Stripe, client config.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var cn CheckoutNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		c, err := checkout(ctx, db, cn)
		if err != nil {
			return err
		}

		pur, err := prepare(ctx, db, clm.UserID, MethodCard, cn, c)
		if err != nil {
			return err
		}

		// The gateway call sits on the synchronous path, so it gets
		// its own deadline.
		gwctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()

		params := &stripe.CheckoutSessionParams{
			Params: stripe.Params{
				Context: gwctx,
				Metadata: map[string]string{
					"userId":     clm.UserID,
					"courseId":   c.ID,
					"purchaseId": pur.ID,
				},
			},
			SuccessURL: stripe.String(client.URL + "/course-progress/" + c.ID),
			CancelURL:  stripe.String(client.URL + "/course-detail/" + c.ID),
			Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
			LineItems: []*stripe.CheckoutSessionLineItemParams{{
				Quantity: stripe.Int64(1),

				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("usd"),
					UnitAmount: stripe.Int64(int64(c.Price)),

					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(cn.CourseName),
					},
				},
			}},
		}

		s, err := strp.CheckoutSessions.New(params)
		if err != nil {
			return fmt.Errorf("creating stripe session for purchase[%s]: %w", pur.ID, err)
		}

		if err := SetProviderID(ctx, db, pur.ID, s.ID); err != nil {
			return err
		}

		return web.Respond(ctx, w, CheckoutSession{URL: s.URL}, http.StatusOK)
	}
}

// HandleWebhook receives the signed gateway notification. Once the
// signature checks out the purchase keyed by the verified session id
// is fulfilled; the amount is taken from the notification, never from
// what the client submitted at checkout.
func HandleWebhook(db *sqlx.DB, log logrus.FieldLogger, cfg config.Stripe) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot read the request body: %w", err))
		}

		sig := r.Header.Get("Stripe-Signature")
		if sig == "" {
			return weberr.BadRequest(errors.New("received stripe event is not signed"))
		}

		event, err := webhook.ConstructEvent(b, sig, cfg.WebhookSecret)
		if err != nil {
			return weberr.BadRequest(fmt.Errorf("cannot construct stripe event: %w", err))
		}

		if event.Type != "checkout.session.completed" {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return weberr.BadRequest(fmt.Errorf("unable to decode stripe event: %w", err))
		}

		if session.Mode != stripe.CheckoutSessionModePayment {
			return web.Respond(ctx, w, nil, http.StatusNoContent)
		}

		if err := fulfill(ctx, db, session.ID, int(session.AmountTotal)); err != nil {
			var req *weberr.RequestError
			if errors.As(err, &req) {
				return err
			}

			// The notification is authentic, so never push the
			// provider into retrying a permanently failing payload.
			// Operators chase this from the log instead.
			log.WithFields(logrus.Fields{
				"provider_id": session.ID,
				"message":     err,
			}).Error("webhook fulfillment failed")
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandlePaypalCheckout is the PayPal flavor of checkout: an order is
// created at the gateway and captured by the client afterwards.
func HandlePaypalCheckout(db *sqlx.DB, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		var cn CheckoutNew
		if err := web.Decode(w, r, &cn); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(cn); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		c, err := checkout(ctx, db, cn)
		if err != nil {
			return err
		}

		pur, err := prepare(ctx, db, clm.UserID, MethodPaypal, cn, c)
		if err != nil {
			return err
		}

		units := []paypal.PurchaseUnitRequest{{
			Items: []paypal.Item{{
				Quantity: "1",
				Name:     cn.CourseName,

				UnitAmount: &paypal.Money{
					Currency: "USD",
					Value:    paypalAmount(c.Price),
				},
			}},

			Amount: &paypal.PurchaseUnitAmount{
				Currency: "USD",
				Value:    paypalAmount(c.Price),

				Breakdown: &paypal.PurchaseUnitAmountBreakdown{ItemTotal: &paypal.Money{
					Currency: "USD",
					Value:    paypalAmount(c.Price),
				}},
			},
		}}

		ord, err := pp.CreateOrder(ctx, "CAPTURE", units, nil, &paypal.ApplicationContext{})
		if err != nil {
			return fmt.Errorf("creating paypal order for purchase[%s]: %w", pur.ID, err)
		}

		if err := SetProviderID(ctx, db, pur.ID, ord.ID); err != nil {
			return err
		}

		return web.Respond(ctx, w, ord, http.StatusOK)
	}
}

func HandlePaypalCapture(db *sqlx.DB, pp *paypal.Client) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		providerID := web.Param(r, "id")

		pur, err := FetchByProviderID(ctx, db, providerID)
		if err != nil {
			if database.IsNoRows(err) {
				return weberr.NotFound(err)
			}
			return err
		}

		// Only the buyer captures their own order.
		if pur.UserID != clm.UserID && !claims.IsAdmin(ctx) {
			return weberr.NotAuthorized(errors.New("order belongs to another user"))
		}

		resp, err := pp.CaptureOrder(ctx, providerID, paypal.CaptureOrderRequest{})
		if err != nil {
			return fmt.Errorf("capturing paypal order[%s]: %w", providerID, err)
		}

		if resp.Status != "COMPLETED" {
			return fmt.Errorf("captured order[%s] with status[%s] different from 'COMPLETED'", providerID, resp.Status)
		}

		if err := fulfill(ctx, db, providerID, pur.Amount); err != nil {
			return fmt.Errorf("the order was payed but its fulfillment failed: %w", err)
		}

		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}
}

// HandleShowWithStatus returns the course detail plus whether the
// caller holds a completed purchase of it. Pure read.
func HandleShowWithStatus(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		courseID := web.Param(r, "course_id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		det, err := course.FetchDetail(ctx, db, courseID)
		if err != nil {
			if database.IsNoRows(err) {
				return weberr.NotFound(err)
			}
			return err
		}

		purchased, err := ExistsCompleted(ctx, db, clm.UserID, courseID)
		if err != nil {
			return err
		}

		out := struct {
			course.Detail
			Purchased bool `json:"purchased"`
		}{Detail: det, Purchased: purchased}

		return web.Respond(ctx, w, out, http.StatusOK)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		ps, err := FetchByUser(ctx, db, clm.UserID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, ps, http.StatusOK)
	}
}
