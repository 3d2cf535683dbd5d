package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/oakcrestrealty/socialcast/internal/models"
	"github.com/oakcrestrealty/socialcast/internal/repository"
	"github.com/oakcrestrealty/socialcast/internal/transfer"
	"github.com/oakcrestrealty/socialcast/pkg/errutil"
)

type PostService interface {
	// Create stores the post and uploads any attached media. An image becomes
	// the featured image, a video becomes the vlog source.
	Create(ctx context.Context, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, error)
	Info(ctx context.Context, postID int64) (*models.Post, error)
	List(ctx context.Context) ([]*models.Post, error)
	UpdateStatus(ctx context.Context, postID int64, status string) error
	Remove(ctx context.Context, postID int64) error
}

type postService struct {
	posts repository.PostRepository
	r2    *R2Service
}

func NewPostService(posts repository.PostRepository, r2 *R2Service) PostService {
	return &postService{
		posts: posts,
		r2:    r2,
	}
}

func (s *postService) Create(ctx context.Context, pc *transfer.PostCreation, files []*multipart.FileHeader) (int64, error) {
	if pc.Title == "" {
		return 0, errutil.Validation("title is required")
	}
	if pc.Slug == "" {
		return 0, errutil.Validation("slug is required")
	}

	postType := pc.PostType
	if postType == "" {
		postType = models.PostTypeBlog
	}
	if postType != models.PostTypeBlog && postType != models.PostTypeVlog {
		return 0, errutil.Validation("post_type must be blog or vlog")
	}

	status := pc.Status
	if status == "" {
		status = models.PostStatusDraft
	}

	existing, err := s.posts.GetBySlug(ctx, pc.Slug)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, errutil.Validation("a post with this slug already exists")
	}

	post := &models.Post{
		Title:    pc.Title,
		Excerpt:  pc.Excerpt,
		Slug:     pc.Slug,
		PostType: postType,
		Status:   status,
	}

	for _, fileHeader := range files {
		mediaURL, kind, err := s.uploadMedia(ctx, fileHeader)
		if err != nil {
			slog.Info(err.Error())
			return 0, err
		}

		switch kind {
		case "image":
			post.FeaturedImage = mediaURL
		case "video":
			post.VideoURL = mediaURL
		}
	}

	if postType == models.PostTypeVlog && post.VideoURL == "" {
		return 0, errutil.Validation("a vlog post requires a video upload")
	}

	return s.posts.Create(ctx, post)
}

// uploadMedia sniffs the file's real type, uploads it under a random key and
// returns its public URL together with "image" or "video".
func (s *postService) uploadMedia(ctx context.Context, fileHeader *multipart.FileHeader) (string, string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", "", err
	}
	defer file.Close()

	buf, err := io.ReadAll(file)
	if err != nil {
		return "", "", err
	}

	var kind string
	switch {
	case filetype.IsImage(buf):
		kind = "image"
	case filetype.IsVideo(buf):
		kind = "video"
	default:
		return "", "", errutil.Validation("unsupported media type; only images and videos are accepted")
	}

	fileType, err := filetype.Match(buf)
	if err != nil {
		return "", "", err
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return "", "", errors.New("failed to generate media key")
	}
	key := id + "." + fileType.Extension

	if err := s.r2.UploadToR2(ctx, key, buf, fileType.MIME.Value); err != nil {
		return "", "", err
	}

	return s.r2.PublicURL(key), kind, nil
}

func (s *postService) Info(ctx context.Context, postID int64) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, errutil.NotFound("Post not found")
	}
	return post, nil
}

func (s *postService) List(ctx context.Context) ([]*models.Post, error) {
	return s.posts.List(ctx)
}

func (s *postService) UpdateStatus(ctx context.Context, postID int64, status string) error {
	if status != models.PostStatusDraft && status != models.PostStatusPublished {
		return errutil.Validation("status must be draft or published")
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return errutil.NotFound("Post not found")
	}

	return s.posts.UpdateStatus(ctx, status, postID)
}

func (s *postService) Remove(ctx context.Context, postID int64) error {
	return s.posts.Remove(ctx, postID)
}
