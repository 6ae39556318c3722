// Package auth implements Google sign-in for agents as an alternative to the
// shared access code.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "photoreq-backend/internal/shared/auth"
	"photoreq-backend/internal/shared/server/respond"
	"photoreq-backend/internal/shared/telemetry"
)

const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var ErrDomainNotAllowed = errors.New("email domain not allowed")

// GoogleConfig configures the sign-in flow. AllowedDomain restricts which
// Google accounts may act as agents; empty allows any verified account.
type GoogleConfig struct {
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	UIRedirect    string
	AllowedDomain string
}

// GoogleService handles Google OAuth flows.
type GoogleService struct {
	oauthConfig   *oauth2.Config
	signer        *sharedauth.Signer
	uiRedirect    string
	allowedDomain string
	userInfoURL   string
	stateTTL      time.Duration
	stateStore    *stateStore
}

// NewGoogleService builds a GoogleService.
func NewGoogleService(cfg GoogleConfig, signer *sharedauth.Signer) *GoogleService {
	return &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		signer:        signer,
		uiRedirect:    cfg.UIRedirect,
		allowedDomain: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(cfg.AllowedDomain), "@")),
		userInfoURL:   defaultUserInfoURL,
		stateTTL:      5 * time.Minute,
		stateStore:    newStateStore(),
	}
}

// Configured reports whether the OAuth client is fully set up.
func (s *GoogleService) Configured() bool {
	c := s.oauthConfig
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != "" && s.uiRedirect != "" && s.signer.Configured()
}

// RegisterRoutes attaches Google auth routes.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/agent/google/start", s.start)
	rg.GET("/agent/google/callback", s.callback)
}

func (s *GoogleService) start(c *gin.Context) {
	if !s.Configured() {
		respond.Error(c, http.StatusServiceUnavailable, "auth_not_configured", "Google sign-in is not configured", nil)
		return
	}

	state := uuid.NewString()
	s.stateStore.put(state, time.Now().Add(s.stateTTL))

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	if s.allowedDomain != "" {
		opts = append(opts, oauth2.SetAuthURLParam("hd", s.allowedDomain))
	}
	c.Redirect(http.StatusFound, s.oauthConfig.AuthCodeURL(state, opts...))
}

func (s *GoogleService) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}

	if !s.stateStore.consume(state) {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}

	userInfo, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}

	if err := s.checkAgent(userInfo); err != nil {
		telemetry.Warn("agent.google.denied", map[string]any{"email": userInfo.Email, "err": err})
		respond.Error(c, http.StatusForbidden, "forbidden", "this Google account cannot sign in as an agent", nil)
		return
	}

	signed, err := s.signer.Sign(sharedauth.Claims{
		Email:            userInfo.Email,
		Name:             userInfo.Name,
		Picture:          userInfo.Picture,
		Method:           "google",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "google:" + userInfo.Sub},
	})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		return
	}

	redirectURL, err := appendToken(s.uiRedirect, signed)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}

	telemetry.Info("agent.google.signed_in", map[string]any{"email": userInfo.Email})
	c.Redirect(http.StatusFound, redirectURL)
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// checkAgent requires a verified email inside the allowed domain.
func (s *GoogleService) checkAgent(info googleUserInfo) error {
	if info.Sub == "" || info.Email == "" {
		return errors.New("incomplete user profile")
	}
	if !info.VerifiedEmail {
		return errors.New("email not verified")
	}
	if s.allowedDomain == "" {
		return nil
	}
	_, domain, ok := strings.Cut(strings.ToLower(info.Email), "@")
	if !ok || domain != s.allowedDomain {
		return ErrDomainNotAllowed
	}
	return nil
}

func (s *GoogleService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (googleUserInfo, error) {
	client := s.oauthConfig.Client(ctx, token)
	resp, err := client.Get(s.userInfoURL)
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}

	// The v2 endpoint reports "id" rather than "sub".
	if info.Sub == "" {
		info.Sub = info.ID
	}
	return info, nil
}

type stateStore struct {
	items map[string]time.Time
	mu    sync.Mutex
}

func newStateStore() *stateStore {
	return &stateStore{items: make(map[string]time.Time)}
}

func (s *stateStore) put(state string, exp time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, e := range s.items {
		if now.After(e) {
			delete(s.items, k)
		}
	}
	s.items[state] = exp
}

func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	exp, ok := s.items[state]
	delete(s.items, state)
	s.mu.Unlock()
	return ok && !time.Now().After(exp)
}

func appendToken(rawURL, token string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
