package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	config "github.com/oakcrestrealty/socialcast/configs"
	"github.com/oakcrestrealty/socialcast/internal/models"
	"github.com/oakcrestrealty/socialcast/internal/transfer"
	"github.com/oakcrestrealty/socialcast/pkg/errutil"
	"golang.org/x/oauth2"
)

const (
	xAPIBase    = "https://api.x.com"
	xAuthURL    = "https://x.com/i/oauth2/authorize"
	tweetMaxLen = 280
)

var xScopes = []string{"tweet.read", "tweet.write", "users.read", "offline.access"}

type xPlatform struct {
	cfg     config.Config
	client  *http.Client
	apiBase string
	authURL string
}

func NewX(cfg config.Config) *xPlatform {
	return &xPlatform{
		cfg:     cfg,
		client:  http.DefaultClient,
		apiBase: xAPIBase,
		authURL: xAuthURL,
	}
}

func (p *xPlatform) Name() string { return models.PlatformX }

// oauthConfig builds the PKCE config. X expects the client id/secret as
// HTTP Basic auth on the token endpoint.
func (p *xPlatform) oauthConfig(redirectURI string) *oauth2.Config {
	if redirectURI == "" {
		redirectURI = p.cfg.RedirectURI()
	}
	return &oauth2.Config{
		ClientID:     p.cfg.XClientID,
		ClientSecret: p.cfg.XClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       xScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.authURL,
			TokenURL:  p.apiBase + "/2/oauth2/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

func (p *xPlatform) AuthURL(state, verifier string) string {
	return p.oauthConfig("").AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

func (p *xPlatform) Exchange(ctx context.Context, code, verifier, redirectURI string) (*Token, error) {
	if p.cfg.XClientID == "" || p.cfg.XClientSecret == "" {
		return nil, errutil.Configuration("X client credentials are not configured")
	}
	if verifier == "" {
		return nil, errutil.Exchange("missing code_verifier for the X PKCE exchange")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	tok, err := p.oauthConfig(redirectURI).Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return nil, errutil.Newf(errutil.KindExchange, "X token endpoint rejected the code: %s",
				strings.TrimSpace(string(rerr.Body)))
		}
		return nil, errutil.Wrap(errutil.KindExchange, "X code exchange failed", err)
	}
	if tok.AccessToken == "" {
		return nil, errutil.Exchange("X token endpoint returned no access_token")
	}

	user, err := p.me(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}

	token := &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Scopes:       grantedScopes(tok, xScopes),
		UserID:       user.Data.ID,
		Username:     user.Data.Username,
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		token.ExpiresAt = &expiry
	}
	return token, nil
}

func (p *xPlatform) Refresh(ctx context.Context, accessToken, refreshToken string) (*Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	src := p.oauthConfig("").TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	tok, err := src.Token()
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			return nil, errutil.Newf(errutil.KindRefresh, "X refresh endpoint rejected the token: %s",
				strings.TrimSpace(string(rerr.Body)))
		}
		return nil, errutil.Wrap(errutil.KindRefresh, "X token refresh failed", err)
	}

	token := &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		token.ExpiresAt = &expiry
	}
	return token, nil
}

// me fetches the authenticated user so the stored account carries the
// platform identity alongside the token.
func (p *xPlatform) me(ctx context.Context, accessToken string) (*transfer.XUserResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+"/2/users/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errutil.Wrap(errutil.KindUpstream, "X user lookup failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError("X", resp.StatusCode, body)
	}

	var user transfer.XUserResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, errutil.Wrap(errutil.KindUpstream, "failed to decode X user response", err)
	}
	return &user, nil
}

func (p *xPlatform) Publish(ctx context.Context, accessToken string, _ *models.SocialAccount, post *models.Post) (*PublishResult, error) {
	postURL := post.PublicURL(p.cfg.SiteURL)
	text := ComposeTweetText(post.Title, post.Excerpt, postURL)

	payload, err := json.Marshal(transfer.XTweetRequest{Text: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+"/2/tweets", bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errutil.Wrap(errutil.KindUpstream, "X tweet request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, upstreamError("X", resp.StatusCode, body)
	}

	var result transfer.XTweetResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errutil.Wrap(errutil.KindUpstream, "failed to decode X tweet response", err)
	}
	if result.Data.ID == "" {
		return nil, errutil.Upstream("X returned no tweet id")
	}

	return &PublishResult{
		PostID:  result.Data.ID,
		PostURL: "https://x.com/i/web/status/" + result.Data.ID,
	}, nil
}

// ComposeTweetText joins title and excerpt and truncates so that the text,
// a separating space and the post URL fit in one tweet.
func ComposeTweetText(title, excerpt, postURL string) string {
	text := title
	if excerpt != "" {
		text = title + " — " + excerpt
	}

	urlLen := len([]rune(postURL))
	limit := tweetMaxLen - urlLen - 1
	runes := []rune(text)
	if len(runes) > limit {
		runes = runes[:tweetMaxLen-urlLen-2]
		text = string(runes) + "…"
	}

	return text + " " + postURL
}

// grantedScopes prefers the scope string echoed back by the token endpoint
// and falls back to the requested set.
func grantedScopes(tok *oauth2.Token, requested []string) []string {
	if scope, ok := tok.Extra("scope").(string); ok && scope != "" {
		return strings.Fields(scope)
	}
	return requested
}

var _ Platform = (*xPlatform)(nil)
