// Package userclient resolves user identities through the external user
// service. Lookups never fail: when the service cannot answer, a placeholder
// identity is returned instead and the result is marked as a fallback.
package userclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"order-management-service/internal/models"
	"order-management-service/internal/util"

	"go.uber.org/zap"
)

const (
	unknownName  = "unknown"
	unknownEmail = "unknown@gmail.com"

	// FallbackUserID is the id given to identities that could not be resolved by email
	FallbackUserID int64 = -1
)

// ErrBreakerOpen is the cause recorded when the breaker short-circuits a call
var ErrBreakerOpen = errors.New("user service circuit open")

// Source tells where a resolved identity came from
type Source int

const (
	SourceUserService Source = iota
	SourceFallback
)

func (s Source) String() string {
	if s == SourceFallback {
		return "fallback"
	}
	return "user_service"
}

// Resolution is the outcome of an identity lookup
type Resolution struct {
	Identity models.Identity
	Source   Source
	// Cause is why the fallback was used; nil for real identities.
	Cause error
}

// Fallback reports whether the identity is a placeholder
func (r Resolution) Fallback() bool {
	return r.Source == SourceFallback
}

// Config locates the user service
type Config struct {
	BaseURL     string
	ByIDPath    string
	ByEmailPath string
	Timeout     time.Duration
}

// Client calls the user service through a circuit breaker
type Client struct {
	cfg        Config
	httpClient *http.Client
	breaker    *Breaker
	logger     *zap.Logger
}

// NewClient creates a user service client sharing the given breaker
func NewClient(cfg Config, breaker *Breaker) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		logger:     util.GetLogger(),
	}
}

// ResolveByEmail looks a user up by email, forwarding the caller's credential
func (c *Client) ResolveByEmail(ctx context.Context, credential, email string) Resolution {
	ctx, span := util.StartSpan(ctx, "UserClient.ResolveByEmail")
	defer span.End()

	q := url.Values{}
	q.Set("email", email)
	target := c.cfg.BaseURL + c.cfg.ByEmailPath + "?" + q.Encode()

	res := c.resolve(ctx, "email", target, credential, func() models.Identity {
		return models.Identity{
			ID:      FallbackUserID,
			Email:   email,
			Name:    unknownName,
			Surname: unknownName,
		}
	})
	if res.Fallback() {
		util.WithTrace(ctx, c.logger).Warn("Fallback triggered for ResolveByEmail",
			zap.String("email", email),
			zap.Error(res.Cause))
	}
	return res
}

// ResolveByID looks a user up by id, forwarding the caller's credential
func (c *Client) ResolveByID(ctx context.Context, credential string, id int64) Resolution {
	ctx, span := util.StartSpan(ctx, "UserClient.ResolveByID")
	defer span.End()

	path := strings.ReplaceAll(c.cfg.ByIDPath, "{id}", strconv.FormatInt(id, 10))
	target := c.cfg.BaseURL + path

	res := c.resolve(ctx, "id", target, credential, func() models.Identity {
		return models.Identity{
			ID:      id,
			Email:   unknownEmail,
			Name:    unknownName,
			Surname: unknownName,
		}
	})
	if res.Fallback() {
		util.WithTrace(ctx, c.logger).Warn("Fallback triggered for ResolveByID",
			zap.Int64("user_id", id),
			zap.Error(res.Cause))
	}
	return res
}

func (c *Client) resolve(ctx context.Context, kind, target, credential string, fallback func() models.Identity) Resolution {
	start := time.Now()
	defer func() {
		util.IdentityLookupLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, target, credential)
	})
	if err != nil {
		outcome := "fallback"
		if errors.Is(err, ErrBreakerOpen) {
			outcome = "rejected"
		}
		util.IdentityLookupsTotal.WithLabelValues(kind, outcome).Inc()
		return Resolution{Identity: fallback(), Source: SourceFallback, Cause: err}
	}

	util.IdentityLookupsTotal.WithLabelValues(kind, "resolved").Inc()
	return Resolution{Identity: out.(models.Identity), Source: SourceUserService}
}

func (c *Client) fetch(ctx context.Context, target, credential string) (models.Identity, error) {
	var identity models.Identity

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return identity, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return identity, fmt.Errorf("user service call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return identity, fmt.Errorf("user service returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return identity, fmt.Errorf("failed to decode user: %w", err)
	}

	return identity, nil
}
