package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/learnhub/learnhub/api/background"
	"github.com/learnhub/learnhub/api/middleware"
	"github.com/learnhub/learnhub/api/web"
	"github.com/learnhub/learnhub/config"
	"github.com/learnhub/learnhub/core/auth"
	"github.com/learnhub/learnhub/core/course"
	"github.com/learnhub/learnhub/core/lecture"
	"github.com/learnhub/learnhub/core/module"
	"github.com/learnhub/learnhub/core/progress"
	"github.com/learnhub/learnhub/core/purchase"
	"github.com/learnhub/learnhub/core/user"
	"github.com/learnhub/learnhub/media"
	"github.com/learnhub/learnhub/rate"
	"github.com/plutov/paypal/v4"
	"github.com/sirupsen/logrus"
	stripecl "github.com/stripe/stripe-go/v74/client"
)

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	DB               *sqlx.DB
	Session          *scs.SessionManager
	Background       *background.Background
	Paypal           *paypal.Client
	Stripe           *stripecl.API
	StripeCfg        config.Stripe
	Client           config.Client
	Media            *media.Client
	Providers        map[string]auth.Provider
	LoginRedirectURL string
	Limiter          *rate.Limiter
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	limited := middleware.RateLimit(cfg.Limiter)

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session))
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Providers, cfg.LoginRedirectURL))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodPut, "/users/current", user.HandleUpdateCurrent(cfg.DB, cfg.Media, cfg.Background), authen)

	a.Handle(http.MethodGet, "/courses/owned", course.HandleListOwned(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/{course_id}/modules", module.HandleListByCourse(cfg.DB))
	a.Handle(http.MethodPost, "/courses/{course_id}/ratings", course.HandleCreateRating(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/{id}/students", course.HandleListStudents(cfg.DB), authen)
	a.Handle(http.MethodPut, "/courses/{id}/thumbnail", course.HandleUpdateThumbnail(cfg.DB, cfg.Media, cfg.Background), authen)
	a.Handle(http.MethodGet, "/courses/{id}", course.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/courses", course.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/courses", course.HandleCreate(cfg.DB), authen)
	a.Handle(http.MethodPut, "/courses/{id}", course.HandleUpdate(cfg.DB), authen)

	a.Handle(http.MethodPost, "/modules", module.HandleCreate(cfg.DB), authen)
	a.Handle(http.MethodPut, "/modules/{id}", module.HandleUpdate(cfg.DB), authen)

	a.Handle(http.MethodPost, "/lectures", lecture.HandleCreate(cfg.DB, cfg.Media), authen)
	a.Handle(http.MethodPut, "/lectures/{id}", lecture.HandleUpdate(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/lectures/{id}", lecture.HandleDelete(cfg.DB, cfg.Media, cfg.Background), authen)
	a.Handle(http.MethodGet, "/lectures/{id}/content", lecture.HandleShowContent(cfg.DB), authen)

	a.Handle(http.MethodPost, "/purchase/checkout/create-checkout-session", purchase.HandleCheckout(cfg.DB, cfg.Stripe, cfg.StripeCfg, cfg.Client), authen)
	a.Handle(http.MethodPost, "/purchase/webhook", purchase.HandleWebhook(cfg.DB, cfg.Log, cfg.StripeCfg))
	a.Handle(http.MethodPost, "/purchase/paypal", purchase.HandlePaypalCheckout(cfg.DB, cfg.Paypal), authen)
	a.Handle(http.MethodPost, "/purchase/paypal/{id}/capture", purchase.HandlePaypalCapture(cfg.DB, cfg.Paypal), authen)
	a.Handle(http.MethodGet, "/purchase/course/{course_id}/detail-with-status", purchase.HandleShowWithStatus(cfg.DB), authen)
	a.Handle(http.MethodGet, "/purchase", purchase.HandleList(cfg.DB), authen)

	a.Handle(http.MethodGet, "/progress/{course_id}", progress.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodPost, "/progress/{course_id}/lecture/{lecture_id}/view", progress.HandleRecordView(cfg.DB), authen)
	a.Handle(http.MethodPost, "/progress/{course_id}/complete", progress.HandleMarkCompletion(cfg.DB, true), authen)
	a.Handle(http.MethodPost, "/progress/{course_id}/incomplete", progress.HandleMarkCompletion(cfg.DB, false), authen)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
