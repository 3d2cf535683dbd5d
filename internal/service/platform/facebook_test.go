package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/oakcrestrealty/socialcast/internal/models"
	"github.com/oakcrestrealty/socialcast/pkg/errutil"
)

func TestFacebookExchangeFirstPageWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/access_token":
			w.Header().Set("Content-Type", "application/json")
			if r.URL.Query().Get("grant_type") == "fb_exchange_token" {
				w.Write([]byte(`{"access_token":"long-lived","token_type":"bearer","expires_in":5183944}`))
				return
			}
			w.Write([]byte(`{"access_token":"short-lived","token_type":"bearer","expires_in":3600}`))
		case "/me/accounts":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":[
				{"id":"page-1","name":"Oak Crest Listings","access_token":"pt-1"},
				{"id":"page-2","name":"Second Page","access_token":"pt-2"}
			]}`))
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewFacebook(testConfig())
	p.graphBase = srv.URL
	p.client = srv.Client()

	tok, err := p.Exchange(context.Background(), "auth-code", "", "")
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if tok.AccessToken != "long-lived" {
		t.Errorf("AccessToken = %q, want the long-lived token", tok.AccessToken)
	}
	if tok.RefreshToken != "long-lived" {
		t.Errorf("RefreshToken = %q, want the long-lived token for re-exchange", tok.RefreshToken)
	}
	if tok.UserID != "page-1" || tok.Username != "Oak Crest Listings" {
		t.Errorf("identity = (%q, %q), want the first page", tok.UserID, tok.Username)
	}
	if tok.ExpiresAt == nil {
		t.Error("ExpiresAt is nil, want a value from expires_in")
	}
}

func TestFacebookExchangeNoPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/me/accounts" {
			w.Write([]byte(`{"data":[]}`))
			return
		}
		w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	p := NewFacebook(testConfig())
	p.graphBase = srv.URL
	p.client = srv.Client()

	_, err := p.Exchange(context.Background(), "auth-code", "", "")
	if !errutil.IsKind(err, errutil.KindExchange) {
		t.Fatalf("err = %v, want an exchange error", err)
	}
	if !strings.Contains(err.Error(), "no Facebook Page") {
		t.Fatalf("unexpected error message: %v", err)
	}
}

func TestFacebookPublish(t *testing.T) {
	var message, link string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/page-1/feed" {
			t.Errorf("unexpected request to %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		message = r.FormValue("message")
		link = r.FormValue("link")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"page-1_777"}`))
	}))
	defer srv.Close()

	cfg := testConfig()
	p := NewFacebook(cfg)
	p.graphBase = srv.URL
	p.client = srv.Client()

	acc := &models.SocialAccount{Platform: models.PlatformFacebook, AccountID: "page-1"}
	post := &models.Post{
		Title:    "New Listing",
		Excerpt:  "Three beds, two baths.",
		Slug:     "new-listing",
		PostType: models.PostTypeBlog,
	}

	result, err := p.Publish(context.Background(), "access-1", acc, post)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if want := "https://www.facebook.com/page-1_777"; result.PostURL != want {
		t.Errorf("PostURL = %q, want %q", result.PostURL, want)
	}
	if !strings.Contains(message, "New Listing") || !strings.Contains(message, "Three beds") {
		t.Errorf("message %q is missing the title or excerpt", message)
	}
	if want := post.PublicURL(cfg.SiteURL); link != want {
		t.Errorf("link = %q, want %q", link, want)
	}
}

func TestFacebookPublishWithoutPage(t *testing.T) {
	p := NewFacebook(testConfig())

	_, err := p.Publish(context.Background(), "access-1", &models.SocialAccount{}, &models.Post{Title: "t"})
	if !errutil.IsKind(err, errutil.KindValidation) {
		t.Fatalf("err = %v, want a validation error", err)
	}
}
