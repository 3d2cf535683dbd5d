package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	config "github.com/oakcrestrealty/socialcast/configs"
	"github.com/oakcrestrealty/socialcast/internal/models"
	"github.com/oakcrestrealty/socialcast/internal/transfer"
	"github.com/oakcrestrealty/socialcast/pkg/errutil"
)

const (
	fbGraphBase = "https://graph.facebook.com/v21.0"
	fbAuthURL   = "https://www.facebook.com/v21.0/dialog/oauth"
)

var facebookScopes = []string{"pages_show_list", "pages_read_engagement", "pages_manage_posts"}

type facebookPlatform struct {
	cfg       config.Config
	client    *http.Client
	graphBase string
	authURL   string
}

func NewFacebook(cfg config.Config) *facebookPlatform {
	return &facebookPlatform{
		cfg:       cfg,
		client:    http.DefaultClient,
		graphBase: fbGraphBase,
		authURL:   fbAuthURL,
	}
}

func (p *facebookPlatform) Name() string { return models.PlatformFacebook }

func (p *facebookPlatform) AuthURL(state, _ string) string {
	params := url.Values{}
	params.Add("client_id", p.cfg.FacebookAppID)
	params.Add("redirect_uri", p.cfg.RedirectURI())
	params.Add("scope", strings.Join(facebookScopes, ","))
	params.Add("response_type", "code")
	params.Add("state", state)
	return fmt.Sprintf("%s?%s", p.authURL, params.Encode())
}

// Exchange runs the Meta dance: code for short-lived token, short-lived for
// long-lived token, then the first Page of the account becomes the identity.
// Multi-page accounts are not supported; the first page wins.
func (p *facebookPlatform) Exchange(ctx context.Context, code, _, redirectURI string) (*Token, error) {
	if p.cfg.FacebookAppID == "" || p.cfg.FacebookAppSecret == "" {
		return nil, errutil.Configuration("Facebook app credentials are not configured")
	}
	if redirectURI == "" {
		redirectURI = p.cfg.RedirectURI()
	}

	shortLived, err := metaExchangeCode(ctx, p.client, p.graphBase, p.cfg.FacebookAppID, p.cfg.FacebookAppSecret, redirectURI, code)
	if err != nil {
		return nil, err
	}

	longLived, err := metaExtendToken(ctx, p.client, p.graphBase, p.cfg.FacebookAppID, p.cfg.FacebookAppSecret, shortLived.AccessToken, errutil.KindExchange)
	if err != nil {
		return nil, err
	}

	page, err := metaFirstPage(ctx, p.client, p.graphBase, longLived.AccessToken)
	if err != nil {
		return nil, err
	}

	return &Token{
		AccessToken: longLived.AccessToken,
		// The long-lived token doubles as the re-exchange key for refresh.
		RefreshToken: longLived.AccessToken,
		ExpiresAt:    expiresAt(longLived.ExpiresIn),
		Scopes:       facebookScopes,
		UserID:       page.ID,
		Username:     page.Name,
	}, nil
}

// Refresh re-exchanges the existing long-lived token instead of using a
// conventional refresh_token grant.
func (p *facebookPlatform) Refresh(ctx context.Context, accessToken, _ string) (*Token, error) {
	longLived, err := metaExtendToken(ctx, p.client, p.graphBase, p.cfg.FacebookAppID, p.cfg.FacebookAppSecret, accessToken, errutil.KindRefresh)
	if err != nil {
		return nil, err
	}

	return &Token{
		AccessToken:  longLived.AccessToken,
		RefreshToken: longLived.AccessToken,
		ExpiresAt:    expiresAt(longLived.ExpiresIn),
	}, nil
}

func (p *facebookPlatform) Publish(ctx context.Context, accessToken string, acc *models.SocialAccount, post *models.Post) (*PublishResult, error) {
	if acc.AccountID == "" {
		return nil, errutil.Validation("no Facebook Page configured for this account")
	}

	message := post.Title
	if post.Excerpt != "" {
		message = post.Title + "\n\n" + post.Excerpt
	}

	form := url.Values{}
	form.Set("message", message)
	form.Set("link", post.PublicURL(p.cfg.SiteURL))
	form.Set("access_token", accessToken)

	endpoint := fmt.Sprintf("%s/%s/feed", p.graphBase, acc.AccountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errutil.Wrap(errutil.KindUpstream, "Facebook feed request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError("Facebook", resp.StatusCode, body)
	}

	var result transfer.FacebookPostResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errutil.Wrap(errutil.KindUpstream, "failed to decode Facebook feed response", err)
	}
	if result.ID == "" {
		return nil, errutil.Upstream("Facebook returned no post id")
	}

	return &PublishResult{
		PostID:  result.ID,
		PostURL: "https://www.facebook.com/" + result.ID,
	}, nil
}

// metaExchangeCode performs the GET-based Facebook code exchange.
func metaExchangeCode(ctx context.Context, client *http.Client, graphBase, appID, appSecret, redirectURI, code string) (*transfer.FacebookTokenResponse, error) {
	params := url.Values{}
	params.Set("client_id", appID)
	params.Set("client_secret", appSecret)
	params.Set("redirect_uri", redirectURI)
	params.Set("code", code)

	token, err := metaGetToken(ctx, client, fmt.Sprintf("%s/oauth/access_token?%s", graphBase, params.Encode()), errutil.KindExchange)
	if err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, errutil.Exchange("Facebook token endpoint returned no access_token")
	}
	return token, nil
}

// metaExtendToken swaps a token for a long-lived one. It serves both the
// exchange step and the refresh re-exchange, hence the caller-chosen kind.
func metaExtendToken(ctx context.Context, client *http.Client, graphBase, appID, appSecret, token string, kind errutil.Kind) (*transfer.FacebookTokenResponse, error) {
	params := url.Values{}
	params.Set("grant_type", "fb_exchange_token")
	params.Set("client_id", appID)
	params.Set("client_secret", appSecret)
	params.Set("fb_exchange_token", token)

	longLived, err := metaGetToken(ctx, client, fmt.Sprintf("%s/oauth/access_token?%s", graphBase, params.Encode()), kind)
	if err != nil {
		return nil, err
	}
	if longLived.AccessToken == "" {
		return nil, errutil.New(kind, "Facebook long-lived token exchange returned no access_token")
	}
	return longLived, nil
}

func metaGetToken(ctx context.Context, client *http.Client, endpoint string, kind errutil.Kind) (*transfer.FacebookTokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errutil.Wrap(kind, "Facebook token request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errutil.Newf(kind, "Facebook token endpoint returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var token transfer.FacebookTokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, errutil.Wrap(kind, "failed to decode Facebook token response", err)
	}
	return &token, nil
}

// metaFirstPage returns the first Page the user manages.
func metaFirstPage(ctx context.Context, client *http.Client, graphBase, accessToken string) (*transfer.FacebookPage, error) {
	endpoint := fmt.Sprintf("%s/me/accounts?access_token=%s", graphBase, url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, errutil.Wrap(errutil.KindUpstream, "Facebook pages request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError("Facebook", resp.StatusCode, body)
	}

	var pages transfer.FacebookPagesResponse
	if err := json.Unmarshal(body, &pages); err != nil {
		return nil, errutil.Wrap(errutil.KindUpstream, "failed to decode Facebook pages response", err)
	}
	if len(pages.Data) == 0 {
		return nil, errutil.Exchange("no Facebook Page linked to this account")
	}

	return &pages.Data[0], nil
}

var _ Platform = (*facebookPlatform)(nil)
