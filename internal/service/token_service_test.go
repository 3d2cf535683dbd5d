package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	config "github.com/oakcrestrealty/socialcast/configs"
	"github.com/oakcrestrealty/socialcast/internal/models"
	"github.com/oakcrestrealty/socialcast/internal/service/platform"
	"github.com/oakcrestrealty/socialcast/pkg/errutil"
	"github.com/oakcrestrealty/socialcast/pkg/utils"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

func testServiceConfig() config.Config {
	return config.Config{
		SiteURL:   "https://www.oakcrestrealty.com",
		SecretKey: testSecretKey,
	}
}

func mustEncrypt(t *testing.T, plaintext string) string {
	t.Helper()
	encrypted, err := utils.Encrypt([]byte(plaintext), []byte(testSecretKey))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	return encrypted
}

// fakeAccountRepo keeps accounts in memory, keyed by platform.
type fakeAccountRepo struct {
	accounts      map[string]*models.SocialAccount
	setTokenCalls int
	setTokenErr   error
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*models.SocialAccount)}
}

func (f *fakeAccountRepo) Upsert(_ context.Context, sa *models.SocialAccount) (int64, error) {
	sa.ID = int64(len(f.accounts) + 1)
	f.accounts[sa.Platform] = sa
	return sa.ID, nil
}

func (f *fakeAccountRepo) GetByPlatform(_ context.Context, platformName string) (*models.SocialAccount, error) {
	acc, ok := f.accounts[platformName]
	if !ok || !acc.IsActive {
		return nil, nil
	}
	return acc, nil
}

func (f *fakeAccountRepo) List(_ context.Context) ([]*models.SocialAccount, error) {
	var out []*models.SocialAccount
	for _, acc := range f.accounts {
		if acc.IsActive {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) ListExpiring(_ context.Context, _, finalTime time.Time) ([]*models.SocialAccount, error) {
	var out []*models.SocialAccount
	for _, acc := range f.accounts {
		if acc.IsActive && acc.TokenExpiresAt.Valid && acc.TokenExpiresAt.Time.Before(finalTime) {
			out = append(out, acc)
		}
	}
	return out, nil
}

func (f *fakeAccountRepo) SetToken(_ context.Context, platformName, oldAccessToken string, sa *models.SocialAccount) error {
	f.setTokenCalls++
	if f.setTokenErr != nil {
		return f.setTokenErr
	}
	acc, ok := f.accounts[platformName]
	if !ok || acc.AccessToken != oldAccessToken {
		return errutil.New(errutil.KindUpstream, "no rows affected; token was replaced concurrently")
	}
	if sa.AccessToken != "" {
		acc.AccessToken = sa.AccessToken
	}
	if sa.RefreshToken != "" {
		acc.RefreshToken = sa.RefreshToken
	}
	if sa.TokenExpiresAt.Valid {
		acc.TokenExpiresAt = sa.TokenExpiresAt
	}
	return nil
}

func (f *fakeAccountRepo) Deactivate(_ context.Context, platformName string) error {
	if acc, ok := f.accounts[platformName]; ok {
		acc.IsActive = false
	}
	return nil
}

// fakePlatform records calls and plays back canned results.
type fakePlatform struct {
	name          string
	exchangeToken *platform.Token
	refreshToken  *platform.Token
	refreshErr    error
	refreshCalls  int
	publishResult *platform.PublishResult
	publishErr    error
	publishCalls  int
}

func (f *fakePlatform) Name() string { return f.name }

func (f *fakePlatform) AuthURL(state, _ string) string {
	return "https://auth.example.com/" + f.name + "?state=" + state
}

func (f *fakePlatform) Exchange(_ context.Context, _, _, _ string) (*platform.Token, error) {
	if f.exchangeToken == nil {
		return nil, errutil.Exchange("no token configured")
	}
	return f.exchangeToken, nil
}

func (f *fakePlatform) Refresh(_ context.Context, _, _ string) (*platform.Token, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshToken, nil
}

func (f *fakePlatform) Publish(_ context.Context, _ string, _ *models.SocialAccount, _ *models.Post) (*platform.PublishResult, error) {
	f.publishCalls++
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	return f.publishResult, nil
}

func testRegistry(fakes ...*fakePlatform) *platform.Registry {
	registry := platform.NewRegistry(config.Config{SiteURL: "https://www.oakcrestrealty.com"})
	for _, f := range fakes {
		registry.Register(f)
	}
	return registry
}

func xAccount(t *testing.T, expiresAt sql.NullTime, withRefreshToken bool) *models.SocialAccount {
	t.Helper()
	acc := &models.SocialAccount{
		ID:             1,
		Platform:       models.PlatformX,
		AccountID:      "42",
		AccessToken:    mustEncrypt(t, "plain-access"),
		TokenExpiresAt: expiresAt,
		IsActive:       true,
	}
	if withRefreshToken {
		acc.RefreshToken = mustEncrypt(t, "plain-refresh")
	}
	return acc
}

func TestEnsureValidNonExpiringToken(t *testing.T) {
	fake := &fakePlatform{name: models.PlatformX}
	repo := newFakeAccountRepo()
	ts := NewTokenService(testServiceConfig(), testRegistry(fake), repo)

	acc := xAccount(t, sql.NullTime{}, true)
	repo.accounts[acc.Platform] = acc

	got, err := ts.EnsureValid(context.Background(), acc)
	if err != nil {
		t.Fatalf("EnsureValid: %v", err)
	}
	if got != "plain-access" {
		t.Errorf("token = %q, want the decrypted stored token", got)
	}
	if fake.refreshCalls != 0 {
		t.Errorf("refresh was called %d times, want 0", fake.refreshCalls)
	}
}

func TestEnsureValidSkipsDistantExpiry(t *testing.T) {
	fake := &fakePlatform{name: models.PlatformX}
	repo := newFakeAccountRepo()
	ts := NewTokenService(testServiceConfig(), testRegistry(fake), repo)

	expiry := sql.NullTime{Time: time.Now().Add(time.Hour), Valid: true}
	acc := xAccount(t, expiry, true)
	repo.accounts[acc.Platform] = acc

	got, err := ts.EnsureValid(context.Background(), acc)
	if err != nil {
		t.Fatalf("EnsureValid: %v", err)
	}
	if got != "plain-access" {
		t.Errorf("token = %q, want the decrypted stored token", got)
	}
	if fake.refreshCalls != 0 {
		t.Errorf("refresh was called %d times, want 0", fake.refreshCalls)
	}
}

func TestEnsureValidRefreshesNearExpiry(t *testing.T) {
	newExpiry := time.Now().Add(2 * time.Hour)
	fake := &fakePlatform{
		name: models.PlatformX,
		refreshToken: &platform.Token{
			AccessToken:  "new-access",
			RefreshToken: "new-refresh",
			ExpiresAt:    &newExpiry,
		},
	}
	repo := newFakeAccountRepo()
	ts := NewTokenService(testServiceConfig(), testRegistry(fake), repo)

	expiry := sql.NullTime{Time: time.Now().Add(30 * time.Second), Valid: true}
	acc := xAccount(t, expiry, true)
	repo.accounts[acc.Platform] = acc

	got, err := ts.EnsureValid(context.Background(), acc)
	if err != nil {
		t.Fatalf("EnsureValid: %v", err)
	}
	if got != "new-access" {
		t.Errorf("token = %q, want the refreshed token", got)
	}
	if fake.refreshCalls != 1 {
		t.Errorf("refresh was called %d times, want 1", fake.refreshCalls)
	}
	if repo.setTokenCalls != 1 {
		t.Errorf("SetToken was called %d times, want 1", repo.setTokenCalls)
	}

	stored, err := utils.Decrypt(repo.accounts[models.PlatformX].AccessToken, []byte(testSecretKey))
	if err != nil {
		t.Fatalf("decrypt stored token: %v", err)
	}
	if stored != "new-access" {
		t.Errorf("stored token decrypts to %q, want new-access", stored)
	}
}

func TestEnsureValidRefreshesPastExpiry(t *testing.T) {
	fake := &fakePlatform{
		name:         models.PlatformX,
		refreshToken: &platform.Token{AccessToken: "new-access"},
	}
	repo := newFakeAccountRepo()
	ts := NewTokenService(testServiceConfig(), testRegistry(fake), repo)

	expiry := sql.NullTime{Time: time.Now().Add(-time.Hour), Valid: true}
	acc := xAccount(t, expiry, true)
	repo.accounts[acc.Platform] = acc

	if _, err := ts.EnsureValid(context.Background(), acc); err != nil {
		t.Fatalf("EnsureValid: %v", err)
	}
	if fake.refreshCalls != 1 {
		t.Errorf("refresh was called %d times, want 1", fake.refreshCalls)
	}
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	fake := &fakePlatform{name: models.PlatformX}
	repo := newFakeAccountRepo()
	ts := NewTokenService(testServiceConfig(), testRegistry(fake), repo)

	expiry := sql.NullTime{Time: time.Now().Add(-time.Minute), Valid: true}
	acc := xAccount(t, expiry, false)
	repo.accounts[acc.Platform] = acc

	_, err := ts.EnsureValid(context.Background(), acc)
	if !errutil.IsKind(err, errutil.KindRefresh) {
		t.Fatalf("err = %v, want a refresh error", err)
	}
	if fake.refreshCalls != 0 {
		t.Errorf("refresh endpoint was reached %d times, want 0", fake.refreshCalls)
	}
}

func TestRefreshPersistFailure(t *testing.T) {
	fake := &fakePlatform{
		name:         models.PlatformX,
		refreshToken: &platform.Token{AccessToken: "new-access"},
	}
	repo := newFakeAccountRepo()
	repo.setTokenErr = errutil.New(errutil.KindUpstream, "no rows affected; token was replaced concurrently")
	ts := NewTokenService(testServiceConfig(), testRegistry(fake), repo)

	expiry := sql.NullTime{Time: time.Now().Add(-time.Minute), Valid: true}
	acc := xAccount(t, expiry, true)
	repo.accounts[acc.Platform] = acc

	_, err := ts.EnsureValid(context.Background(), acc)
	if !errutil.IsKind(err, errutil.KindRefresh) {
		t.Fatalf("err = %v, want a refresh error", err)
	}
}
