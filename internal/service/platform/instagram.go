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

var instagramScopes = []string{"instagram_basic", "instagram_content_publish", "pages_show_list"}

// instagramPlatform rides the Facebook app credentials: the Instagram
// Business Account is reached through the linked Facebook Page.
type instagramPlatform struct {
	cfg       config.Config
	client    *http.Client
	graphBase string
	authURL   string
}

func NewInstagram(cfg config.Config) *instagramPlatform {
	return &instagramPlatform{
		cfg:       cfg,
		client:    http.DefaultClient,
		graphBase: fbGraphBase,
		authURL:   fbAuthURL,
	}
}

func (p *instagramPlatform) Name() string { return models.PlatformInstagram }

func (p *instagramPlatform) AuthURL(state, _ string) string {
	params := url.Values{}
	params.Add("client_id", p.cfg.FacebookAppID)
	params.Add("redirect_uri", p.cfg.RedirectURI())
	params.Add("scope", strings.Join(instagramScopes, ","))
	params.Add("response_type", "code")
	params.Add("state", state)
	return fmt.Sprintf("%s?%s", p.authURL, params.Encode())
}

// Exchange follows the Facebook flow through the long-lived token, then
// resolves the Page's linked Instagram Business Account. The IG account id
// becomes the identity; Instagram exposes no username on this path.
func (p *instagramPlatform) Exchange(ctx context.Context, code, _, redirectURI string) (*Token, error) {
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

	igAccountID, err := p.instagramBusinessAccount(ctx, page.ID, longLived.AccessToken)
	if err != nil {
		return nil, err
	}

	return &Token{
		AccessToken:  longLived.AccessToken,
		RefreshToken: longLived.AccessToken,
		ExpiresAt:    expiresAt(longLived.ExpiresIn),
		Scopes:       instagramScopes,
		UserID:       igAccountID,
	}, nil
}

func (p *instagramPlatform) Refresh(ctx context.Context, accessToken, _ string) (*Token, error) {
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

func (p *instagramPlatform) instagramBusinessAccount(ctx context.Context, pageID, accessToken string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=instagram_business_account&access_token=%s",
		p.graphBase, pageID, url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", errutil.Wrap(errutil.KindUpstream, "Instagram account lookup failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", upstreamError("Instagram", resp.StatusCode, body)
	}

	var result transfer.InstagramBusinessAccountResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", errutil.Wrap(errutil.KindUpstream, "failed to decode Instagram account response", err)
	}
	if result.InstagramBusinessAccount.ID == "" {
		return "", errutil.Exchange("no Instagram Business Account linked to the Facebook Page")
	}

	return result.InstagramBusinessAccount.ID, nil
}

// Publish runs Instagram's two-step protocol: create a media container for
// the featured image, then publish the container by its creation id.
func (p *instagramPlatform) Publish(ctx context.Context, accessToken string, acc *models.SocialAccount, post *models.Post) (*PublishResult, error) {
	if post.FeaturedImage == "" {
		return nil, errutil.Validation("instagram publish requires a featured image")
	}
	if acc.AccountID == "" {
		return nil, errutil.Validation("no Instagram Business Account configured for this account")
	}

	caption := post.Title
	if post.Excerpt != "" {
		caption = post.Title + "\n\n" + post.Excerpt
	}

	containerForm := url.Values{}
	containerForm.Set("image_url", post.FeaturedImage)
	containerForm.Set("caption", caption)
	containerForm.Set("access_token", accessToken)

	containerID, err := p.mediaCall(ctx, fmt.Sprintf("%s/%s/media", p.graphBase, acc.AccountID), containerForm)
	if err != nil {
		return nil, err
	}

	publishForm := url.Values{}
	publishForm.Set("creation_id", containerID)
	publishForm.Set("access_token", accessToken)

	mediaID, err := p.mediaCall(ctx, fmt.Sprintf("%s/%s/media_publish", p.graphBase, acc.AccountID), publishForm)
	if err != nil {
		return nil, err
	}

	// The Graph API returns no canonical permalink on this path.
	return &PublishResult{PostID: mediaID}, nil
}

func (p *instagramPlatform) mediaCall(ctx context.Context, endpoint string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", errutil.Wrap(errutil.KindUpstream, "Instagram media request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", upstreamError("Instagram", resp.StatusCode, body)
	}

	var result transfer.InstagramMediaResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", errutil.Wrap(errutil.KindUpstream, "failed to decode Instagram media response", err)
	}
	if result.ID == "" {
		return "", errutil.Upstream("Instagram returned no media id")
	}

	return result.ID, nil
}

var _ Platform = (*instagramPlatform)(nil)
