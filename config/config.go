package config

import "time"

type Config struct {
	Web     Web
	DB      DB
	Cors    Cors
	Auth    Auth
	Oauth   Oauth
	Stripe  Stripe
	Paypal  Paypal
	Media   Media
	Client  Client
	Limiter Limiter
}

type Web struct {
	Address         string        `conf:"default:0.0.0.0:8000"`
	ReadTimeout     time.Duration `conf:"default:5s"`
	WriteTimeout    time.Duration `conf:"default:10s"`
	IdleTimeout     time.Duration `conf:"default:120s"`
	ShutdownTimeout time.Duration `conf:"default:20s"`
}

type DB struct {
	User       string `conf:"default:postgres"`
	Password   string `conf:"default:postgres,mask"`
	Host       string `conf:"default:localhost"`
	Name       string `conf:"default:learnhub"`
	DisableTLS bool   `conf:"default:true"`
}

type Cors struct {
	Origin string `conf:"default:"`
}

type Auth struct {
	SessionLifetime time.Duration `conf:"default:24h"`
}

type Oauth struct {
	DiscoveryTimeout time.Duration `conf:"default:30s"`
	LoginRedirectURL string        `conf:"default:http://localhost:3000"`
	Google           OauthProvider
}

type OauthProvider struct {
	Client      string `conf:"default:none"`
	Secret      string `conf:"default:none,mask"`
	URL         string `conf:"default:https://accounts.google.com"`
	RedirectURL string `conf:"default:http://localhost:8000/auth/oauth-callback/google"`
}

type Stripe struct {
	APISecret      string        `conf:"default:none,mask"`
	WebhookSecret  string        `conf:"default:none,mask"`
	RequestTimeout time.Duration `conf:"default:10s"`
}

type Paypal struct {
	ClientID string `conf:"default:none"`
	Secret   string `conf:"default:none,mask"`
	URL      string `conf:"default:https://api.sandbox.paypal.com"`
}

type Media struct {
	Bucket    string `conf:"default:learnhub-media"`
	CDNDomain string `conf:"default:"`
}

// Client carries the addresses of the SPA pages the payment gateway
// redirects the buyer to after checkout.
type Client struct {
	URL string `conf:"default:http://localhost:3000"`
}

type Limiter struct {
	Burst     int     `conf:"default:10"`
	ExpiryMin int     `conf:"default:30"`
	RPS       float64 `conf:"default:5"`
}
