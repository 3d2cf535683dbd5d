package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/oakcrestrealty/socialcast/internal/models"
	"github.com/oakcrestrealty/socialcast/internal/service/platform"
	"github.com/oakcrestrealty/socialcast/pkg/errutil"
)

type fakePostRepo struct {
	posts map[int64]*models.Post
}

func newFakePostRepo(posts ...*models.Post) *fakePostRepo {
	f := &fakePostRepo{posts: make(map[int64]*models.Post)}
	for _, p := range posts {
		f.posts[p.ID] = p
	}
	return f
}

func (f *fakePostRepo) GetByID(_ context.Context, id int64) (*models.Post, error) {
	return f.posts[id], nil
}

func (f *fakePostRepo) GetBySlug(_ context.Context, slug string) (*models.Post, error) {
	for _, p := range f.posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakePostRepo) List(_ context.Context) ([]*models.Post, error) {
	var out []*models.Post
	for _, p := range f.posts {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakePostRepo) Create(_ context.Context, post *models.Post) (int64, error) {
	post.ID = int64(len(f.posts) + 1)
	f.posts[post.ID] = post
	return post.ID, nil
}

func (f *fakePostRepo) UpdateStatus(_ context.Context, status string, postID int64) error {
	if p, ok := f.posts[postID]; ok {
		p.Status = status
	}
	return nil
}

func (f *fakePostRepo) Remove(_ context.Context, id int64) error {
	delete(f.posts, id)
	return nil
}

// fakeDistributionRepo mimics the (post_id, platform) upsert semantics of the
// real ledger table.
type fakeDistributionRepo struct {
	rows    map[string]*models.PostDistribution
	upserts int
}

func newFakeDistributionRepo() *fakeDistributionRepo {
	return &fakeDistributionRepo{rows: make(map[string]*models.PostDistribution)}
}

func distKey(postID int64, platformName string) string {
	return fmt.Sprintf("%d/%s", postID, platformName)
}

func (f *fakeDistributionRepo) UpsertPublishing(_ context.Context, postID int64, platformName string) (*models.PostDistribution, error) {
	f.upserts++
	row := &models.PostDistribution{
		ID:       int64(len(f.rows) + 1),
		PostID:   postID,
		Platform: platformName,
		Status:   models.DistributionStatusPublishing,
	}
	if prev, ok := f.rows[distKey(postID, platformName)]; ok {
		row.ID = prev.ID
	}
	f.rows[distKey(postID, platformName)] = row
	return row, nil
}

func (f *fakeDistributionRepo) MarkPublished(_ context.Context, postID int64, platformName, platformPostID, platformPostURL string) error {
	row := f.rows[distKey(postID, platformName)]
	row.Status = models.DistributionStatusPublished
	row.PlatformPostID = platformPostID
	row.PlatformPostURL = platformPostURL
	row.PublishedAt = sql.NullTime{Time: time.Now(), Valid: true}
	return nil
}

func (f *fakeDistributionRepo) MarkFailed(_ context.Context, postID int64, platformName, errorMessage string) error {
	row := f.rows[distKey(postID, platformName)]
	row.Status = models.DistributionStatusFailed
	row.ErrorMessage = errorMessage
	return nil
}

func (f *fakeDistributionRepo) GetByPostAndPlatform(_ context.Context, postID int64, platformName string) (*models.PostDistribution, error) {
	return f.rows[distKey(postID, platformName)], nil
}

func (f *fakeDistributionRepo) ListByPostID(_ context.Context, postID int64) ([]*models.PostDistribution, error) {
	var out []*models.PostDistribution
	for _, row := range f.rows {
		if row.PostID == postID {
			out = append(out, row)
		}
	}
	return out, nil
}

func blogPost() *models.Post {
	return &models.Post{
		ID:       1,
		Title:    "Hello",
		Excerpt:  "World",
		Slug:     "hello",
		PostType: models.PostTypeBlog,
		Status:   models.PostStatusPublished,
	}
}

func TestPublishNotConnected(t *testing.T) {
	registry := testRegistry()
	accounts := newFakeAccountRepo()
	distributions := newFakeDistributionRepo()
	posts := newFakePostRepo(blogPost())
	tokens := NewTokenService(testServiceConfig(), registry, accounts)
	ds := NewDistributionService(registry, posts, accounts, distributions, tokens)

	_, err := ds.Publish(context.Background(), 1, models.PlatformTiktok)
	if !errutil.IsKind(err, errutil.KindNotConnected) {
		t.Fatalf("err = %v, want a not-connected error", err)
	}
	if want := "No active tiktok account connected"; err.Error() != want {
		t.Fatalf("error message = %q, want %q", err.Error(), want)
	}
	if distributions.upserts != 0 {
		t.Fatalf("ledger was written %d times, want 0", distributions.upserts)
	}
}

func TestPublishPostNotFound(t *testing.T) {
	registry := testRegistry()
	accounts := newFakeAccountRepo()
	distributions := newFakeDistributionRepo()
	posts := newFakePostRepo()
	tokens := NewTokenService(testServiceConfig(), registry, accounts)
	ds := NewDistributionService(registry, posts, accounts, distributions, tokens)

	_, err := ds.Publish(context.Background(), 99, models.PlatformX)
	if !errutil.IsKind(err, errutil.KindNotFound) {
		t.Fatalf("err = %v, want a not-found error", err)
	}
	if distributions.upserts != 0 {
		t.Fatalf("ledger was written %d times, want 0", distributions.upserts)
	}
}

func TestPublishUnsupportedPlatform(t *testing.T) {
	registry := testRegistry()
	accounts := newFakeAccountRepo()
	distributions := newFakeDistributionRepo()
	posts := newFakePostRepo(blogPost())
	tokens := NewTokenService(testServiceConfig(), registry, accounts)
	ds := NewDistributionService(registry, posts, accounts, distributions, tokens)

	_, err := ds.Publish(context.Background(), 1, "myspace")
	if !errutil.IsKind(err, errutil.KindValidation) {
		t.Fatalf("err = %v, want a validation error", err)
	}
}

func TestPublishSuccess(t *testing.T) {
	fake := &fakePlatform{
		name: models.PlatformX,
		publishResult: &platform.PublishResult{
			PostID:  "99",
			PostURL: "https://x.com/i/web/status/99",
		},
	}
	registry := testRegistry(fake)
	accounts := newFakeAccountRepo()
	distributions := newFakeDistributionRepo()
	posts := newFakePostRepo(blogPost())
	tokens := NewTokenService(testServiceConfig(), registry, accounts)
	ds := NewDistributionService(registry, posts, accounts, distributions, tokens)

	acc := xAccount(t, sql.NullTime{}, false)
	accounts.accounts[acc.Platform] = acc

	dist, err := ds.Publish(context.Background(), 1, models.PlatformX)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if dist.Status != models.DistributionStatusPublished {
		t.Errorf("status = %q, want published", dist.Status)
	}
	if !strings.HasPrefix(dist.PlatformPostURL, "https://x.com/i/web/status/") {
		t.Errorf("PlatformPostURL = %q, want an x.com status URL", dist.PlatformPostURL)
	}
	if !dist.PublishedAt.Valid {
		t.Error("PublishedAt is not set")
	}
}

func TestPublishLedgerOverwrites(t *testing.T) {
	fake := &fakePlatform{
		name:          models.PlatformX,
		publishResult: &platform.PublishResult{PostID: "99"},
	}
	registry := testRegistry(fake)
	accounts := newFakeAccountRepo()
	distributions := newFakeDistributionRepo()
	posts := newFakePostRepo(blogPost())
	tokens := NewTokenService(testServiceConfig(), registry, accounts)
	ds := NewDistributionService(registry, posts, accounts, distributions, tokens)

	acc := xAccount(t, sql.NullTime{}, false)
	accounts.accounts[acc.Platform] = acc

	if _, err := ds.Publish(context.Background(), 1, models.PlatformX); err != nil {
		t.Fatalf("first Publish: %v", err)
	}
	if _, err := ds.Publish(context.Background(), 1, models.PlatformX); err != nil {
		t.Fatalf("second Publish: %v", err)
	}

	if len(distributions.rows) != 1 {
		t.Fatalf("ledger has %d rows for the pair, want 1", len(distributions.rows))
	}
	if distributions.upserts != 2 {
		t.Fatalf("ledger was upserted %d times, want 2", distributions.upserts)
	}
}

func TestPublishFailureMarksLedger(t *testing.T) {
	fake := &fakePlatform{
		name:       models.PlatformX,
		publishErr: errutil.Upstream("X API returned 500: {}"),
	}
	registry := testRegistry(fake)
	accounts := newFakeAccountRepo()
	distributions := newFakeDistributionRepo()
	posts := newFakePostRepo(blogPost())
	tokens := NewTokenService(testServiceConfig(), registry, accounts)
	ds := NewDistributionService(registry, posts, accounts, distributions, tokens)

	acc := xAccount(t, sql.NullTime{}, false)
	accounts.accounts[acc.Platform] = acc

	_, err := ds.Publish(context.Background(), 1, models.PlatformX)
	if !errutil.IsKind(err, errutil.KindUpstream) {
		t.Fatalf("err = %v, want an upstream error", err)
	}

	row := distributions.rows[distKey(1, models.PlatformX)]
	if row == nil || row.Status != models.DistributionStatusFailed {
		t.Fatalf("ledger row = %+v, want a failed row", row)
	}
	if !strings.Contains(row.ErrorMessage, "X API returned 500") {
		t.Errorf("error message %q does not carry the upstream error", row.ErrorMessage)
	}
}

// The Instagram adapter's featured-image precondition rides through the
// orchestrator: the ledger row ends up failed with the reason recorded.
func TestPublishInstagramWithoutImageFailsLedger(t *testing.T) {
	registry := testRegistry()
	accounts := newFakeAccountRepo()
	distributions := newFakeDistributionRepo()
	posts := newFakePostRepo(blogPost())
	tokens := NewTokenService(testServiceConfig(), registry, accounts)
	ds := NewDistributionService(registry, posts, accounts, distributions, tokens)

	accounts.accounts[models.PlatformInstagram] = &models.SocialAccount{
		ID:          2,
		Platform:    models.PlatformInstagram,
		AccountID:   "ig-9",
		AccessToken: mustEncrypt(t, "ig-access"),
		IsActive:    true,
	}

	_, err := ds.Publish(context.Background(), 1, models.PlatformInstagram)
	if !errutil.IsKind(err, errutil.KindValidation) {
		t.Fatalf("err = %v, want a validation error", err)
	}

	row := distributions.rows[distKey(1, models.PlatformInstagram)]
	if row == nil || row.Status != models.DistributionStatusFailed {
		t.Fatalf("ledger row = %+v, want a failed row", row)
	}
	if !strings.Contains(row.ErrorMessage, "featured image") {
		t.Errorf("error message %q does not mention the featured image", row.ErrorMessage)
	}
}

func TestStatusListsLedgerRows(t *testing.T) {
	fake := &fakePlatform{
		name:          models.PlatformX,
		publishResult: &platform.PublishResult{PostID: "99"},
	}
	registry := testRegistry(fake)
	accounts := newFakeAccountRepo()
	distributions := newFakeDistributionRepo()
	posts := newFakePostRepo(blogPost())
	tokens := NewTokenService(testServiceConfig(), registry, accounts)
	ds := NewDistributionService(registry, posts, accounts, distributions, tokens)

	acc := xAccount(t, sql.NullTime{}, false)
	accounts.accounts[acc.Platform] = acc

	if _, err := ds.Publish(context.Background(), 1, models.PlatformX); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	rows, err := ds.Status(context.Background(), 1)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d ledger rows, want 1", len(rows))
	}

	if _, err := ds.Status(context.Background(), 404); !errutil.IsKind(err, errutil.KindNotFound) {
		t.Fatalf("err = %v, want a not-found error for a missing post", err)
	}
}
