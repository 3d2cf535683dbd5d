package platform

import (
	"context"
	"sort"
	"strings"
	"time"

	config "github.com/oakcrestrealty/socialcast/configs"
	"github.com/oakcrestrealty/socialcast/internal/models"
	"github.com/oakcrestrealty/socialcast/pkg/errutil"
)

// Token is the normalized result of a code exchange or refresh.
// A nil ExpiresAt means the token is treated as non-expiring.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	Scopes       []string
	UserID       string
	Username     string
}

// PublishResult is the normalized outcome of a platform publish call.
// PostURL is empty when the platform exposes no canonical URL.
type PublishResult struct {
	PostID  string
	PostURL string
}

// Platform is implemented once per social network. Exchange converts an
// authorization code into a Token, Refresh renews expiring credentials, and
// Publish performs the platform-specific side effect for one post.
type Platform interface {
	Name() string
	AuthURL(state, verifier string) string
	Exchange(ctx context.Context, code, verifier, redirectURI string) (*Token, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*Token, error)
	Publish(ctx context.Context, accessToken string, acc *models.SocialAccount, post *models.Post) (*PublishResult, error)
}

// Registry maps platform names to their adapters.
type Registry struct {
	platforms map[string]Platform
}

func NewRegistry(cfg config.Config) *Registry {
	r := &Registry{platforms: make(map[string]Platform)}
	r.Register(NewX(cfg))
	r.Register(NewFacebook(cfg))
	r.Register(NewInstagram(cfg))
	r.Register(NewTiktok(cfg))
	return r
}

func (r *Registry) Register(p Platform) {
	r.platforms[p.Name()] = p
}

func (r *Registry) Get(name string) (Platform, error) {
	p, ok := r.platforms[name]
	if !ok {
		return nil, errutil.Newf(errutil.KindValidation, "unsupported platform: %s", name)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.platforms))
	for name := range r.platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func upstreamError(platformName string, statusCode int, body []byte) error {
	return errutil.Newf(errutil.KindUpstream, "%s API returned %d: %s",
		platformName, statusCode, strings.TrimSpace(string(body)))
}

func expiresAt(expiresIn int) *time.Time {
	if expiresIn <= 0 {
		return nil
	}
	t := time.Now().Add(time.Duration(expiresIn) * time.Second)
	return &t
}
