package fyers_authen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fyersbot/go_src/configuration"
	"fyersbot/go_src/rest_client"
	"fyersbot/go_src/retry_helper"

	"github.com/sirupsen/logrus"
)

const (
	DefaultLoginBaseURL = "https://api-t2.fyers.in/vagator/v2"
	DefaultAPIBaseURL   = "https://api-t1.fyers.in/api/v3"
)

// Notifier receives progress messages for the operator.
type Notifier interface {
	Notify(text string)
}

// FyersAuth drives the five-step headless login.
type FyersAuth struct {
	creds        Credentials
	executor     rest_client.Executor
	notifier     Notifier
	policy       *retry_helper.Policy
	loginBaseURL string
	apiBaseURL   string
	now          func() time.Time

	mu sync.Mutex
}

// Option customises a FyersAuth.
type Option func(*FyersAuth)

// WithBaseURLs points the login and api steps at other hosts.
func WithBaseURLs(loginBase, apiBase string) Option {
	return func(a *FyersAuth) {
		if loginBase != "" {
			a.loginBaseURL = strings.TrimSuffix(loginBase, "/")
		}
		if apiBase != "" {
			a.apiBaseURL = strings.TrimSuffix(apiBase, "/")
		}
	}
}

// WithPolicy replaces the default login retry policy.
func WithPolicy(p *retry_helper.Policy) Option {
	return func(a *FyersAuth) {
		if p != nil {
			a.policy = p
		}
	}
}

// WithConfig applies the base URLs and login retry settings from the configuration.
func WithConfig(cfg *configuration.Config) Option {
	return func(a *FyersAuth) {
		WithBaseURLs(cfg.Fyers.LoginBaseURL, cfg.Fyers.APIBaseURL)(a)
		r := cfg.Retry.Login
		if p, err := retry_helper.NewPolicy(r.MaxAttempts, r.InitialDelay(), r.BackoffFactor); err == nil {
			a.policy = p
		} else {
			logrus.Warnf("Ignoring retry.login settings: %v", err)
		}
	}
}

// NewFyersAuth validates the credentials. A nil notifier discards messages.
func NewFyersAuth(creds Credentials, executor rest_client.Executor, notifier Notifier, opts ...Option) (*FyersAuth, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if executor == nil {
		return nil, errors.New("executor cannot be nil")
	}
	a := &FyersAuth{
		creds:        creds,
		executor:     executor,
		notifier:     notifier,
		policy:       retry_helper.LoginPolicy(),
		loginBaseURL: DefaultLoginBaseURL,
		apiBaseURL:   DefaultAPIBaseURL,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// ClientID returns the id data calls must present with the access token.
func (a *FyersAuth) ClientID() string { return a.creds.ClientID() }

func (a *FyersAuth) notify(text string) {
	if a.notifier != nil {
		a.notifier.Notify(text)
	}
}

// Login runs the whole sequence. A retryable failure at any step restarts from
// the first step with a fresh session. Logins on one FyersAuth are serialised.
func (a *FyersAuth) Login(ctx context.Context) (*AuthSession, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.login(ctx)
}

// login expects a.mu to be held.
func (a *FyersAuth) login(ctx context.Context) (*AuthSession, error) {
	var failedStep string
	session, err := retry_helper.DoValue(ctx, a.policy, "fyers login", func(ctx context.Context) (*AuthSession, error) {
		s := newAuthSession(a.creds.ClientID())
		for _, step := range loginSteps {
			msg, err := a.runStep(ctx, step, s)
			if err != nil {
				s.State = StateFailed
				failedStep = step.name
				logrus.WithFields(logrus.Fields{"step": step.name, "client_id": s.ClientID}).Warnf("Login step failed: %v", err)
				return nil, err
			}
			if msg != "" {
				a.notify(fmt.Sprintf("%s successful: %s", step.name, msg))
			}
		}
		s.IssuedAt = a.now()
		return s, nil
	})
	if err != nil {
		a.notify(fmt.Sprintf("Login failed at %s: %v", failedStep, err))
		return nil, err
	}
	a.notify("Login successful!")
	logrus.Infof("Fyers login completed for %s", session.ClientID)
	return session, nil
}

// EstablishSession reuses today's cached token when present and logs in otherwise.
// A nil cache always logs in. The cache is read under the login lock, so callers
// that miss it together wait for one login and then share its token.
func (a *FyersAuth) EstablishSession(ctx context.Context, cache *SessionCache) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if cache != nil {
		if token, ok := cache.Load(a.creds.ClientID()); ok {
			logrus.Debug("Using cached Fyers session")
			return token, nil
		}
	}
	session, err := a.login(ctx)
	if err != nil {
		return "", err
	}
	if cache != nil {
		if err := cache.Save(session); err != nil {
			logrus.Warnf("Failed to cache Fyers session: %v", err)
		}
	}
	return session.AccessToken, nil
}
