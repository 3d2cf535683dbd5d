package platform

import (
	"bytes"
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
	tiktokAPIBase = "https://open.tiktokapis.com"
	tiktokAuthURL = "https://www.tiktok.com/v2/auth/authorize"
	tiktokScope   = "user.info.basic,video.publish"
)

type tiktokPlatform struct {
	cfg     config.Config
	client  *http.Client
	apiBase string
	authURL string
}

func NewTiktok(cfg config.Config) *tiktokPlatform {
	return &tiktokPlatform{
		cfg:     cfg,
		client:  http.DefaultClient,
		apiBase: tiktokAPIBase,
		authURL: tiktokAuthURL,
	}
}

func (p *tiktokPlatform) Name() string { return models.PlatformTiktok }

func (p *tiktokPlatform) AuthURL(state, _ string) string {
	params := url.Values{}
	params.Add("client_key", p.cfg.TiktokClientKey)
	params.Add("scope", tiktokScope)
	params.Add("response_type", "code")
	params.Add("redirect_uri", p.cfg.RedirectURI())
	params.Add("state", state)
	return fmt.Sprintf("%s?%s", p.authURL, params.Encode())
}

func (p *tiktokPlatform) Exchange(ctx context.Context, code, _, redirectURI string) (*Token, error) {
	if p.cfg.TiktokClientKey == "" || p.cfg.TiktokClientSecret == "" {
		return nil, errutil.Configuration("TikTok client credentials are not configured")
	}
	if redirectURI == "" {
		redirectURI = p.cfg.RedirectURI()
	}

	data := url.Values{}
	data.Set("client_key", p.cfg.TiktokClientKey)
	data.Set("client_secret", p.cfg.TiktokClientSecret)
	data.Set("code", code)
	data.Set("grant_type", "authorization_code")
	data.Set("redirect_uri", redirectURI)

	tokenResponse, err := p.tokenCall(ctx, data, errutil.KindExchange)
	if err != nil {
		return nil, err
	}

	var scopes []string
	if tokenResponse.Scope != "" {
		scopes = strings.Split(tokenResponse.Scope, ",")
	}

	// TikTok's identity is the open_id carried on the token response; there
	// is no username on this endpoint.
	return &Token{
		AccessToken:  tokenResponse.AccessToken,
		RefreshToken: tokenResponse.RefreshToken,
		ExpiresAt:    expiresAt(tokenResponse.ExpiresIn),
		Scopes:       scopes,
		UserID:       tokenResponse.OpenID,
	}, nil
}

func (p *tiktokPlatform) Refresh(ctx context.Context, _, refreshToken string) (*Token, error) {
	data := url.Values{}
	data.Set("client_key", p.cfg.TiktokClientKey)
	data.Set("client_secret", p.cfg.TiktokClientSecret)
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	tokenResponse, err := p.tokenCall(ctx, data, errutil.KindRefresh)
	if err != nil {
		return nil, err
	}

	return &Token{
		AccessToken:  tokenResponse.AccessToken,
		RefreshToken: tokenResponse.RefreshToken,
		ExpiresAt:    expiresAt(tokenResponse.ExpiresIn),
	}, nil
}

func (p *tiktokPlatform) tokenCall(ctx context.Context, data url.Values, kind errutil.Kind) (*transfer.TiktokTokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+"/v2/oauth/token/", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errutil.Wrap(kind, "TikTok token request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errutil.Newf(kind, "TikTok token endpoint returned %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tokenResponse transfer.TiktokTokenResponse
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return nil, errutil.Wrap(kind, "failed to decode TikTok token response", err)
	}
	if tokenResponse.AccessToken == "" {
		if tokenResponse.ErrorDescription != "" {
			return nil, errutil.Newf(kind, "TikTok token endpoint returned no access_token: %s", tokenResponse.ErrorDescription)
		}
		return nil, errutil.New(kind, "TikTok token endpoint returned no access_token")
	}

	return &tokenResponse, nil
}

// Publish initiates a pull-from-URL video publish job. Success means TikTok
// accepted the job, not that the video finished processing; the job is not
// polled afterwards.
func (p *tiktokPlatform) Publish(ctx context.Context, accessToken string, _ *models.SocialAccount, post *models.Post) (*PublishResult, error) {
	if post.PostType != models.PostTypeVlog {
		return nil, errutil.Validation("tiktok publish requires a vlog post")
	}
	if post.VideoURL == "" {
		return nil, errutil.Validation("tiktok publish requires a video URL")
	}

	uploadRequest := transfer.TiktokVideoUploadRequest{
		PostInfo: transfer.TiktokVideoPostInfo{
			Title:                 post.Title,
			PrivacyLevel:          "PUBLIC_TO_EVERYONE",
			VideoCoverTimestampMs: 1000,
		},
		SourceInfo: transfer.TiktokVideoSourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: post.VideoURL,
		},
	}

	payload, err := json.Marshal(uploadRequest)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+"/v2/post/publish/video/init/", bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errutil.Wrap(errutil.KindUpstream, "TikTok publish request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, upstreamError("TikTok", resp.StatusCode, body)
	}

	var result transfer.TiktokUploadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, errutil.Wrap(errutil.KindUpstream, "failed to decode TikTok publish response", err)
	}
	if result.Data.PublishID == "" {
		return nil, errutil.Newf(errutil.KindUpstream, "TikTok returned no publish id: %s", result.Error.Message)
	}

	// TikTok exposes no public URL for a pull-from-URL job.
	return &PublishResult{PostID: result.Data.PublishID}, nil
}

var _ Platform = (*tiktokPlatform)(nil)
