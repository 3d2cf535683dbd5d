package transfer

// CallbackRequest is the body of POST /social-callback.
type CallbackRequest struct {
	Platform     string `json:"platform"`
	Code         string `json:"code"`
	State        string `json:"state"`
	CodeVerifier string `json:"code_verifier"`
	RedirectURI  string `json:"redirect_uri"`
}

// PublishRequest is the body of POST /social-publish. The post id arrives as
// a string on the wire.
type PublishRequest struct {
	PostID   string `json:"post_id"`
	Platform string `json:"platform"`
}

// DistributeRequest fans one post out to several platforms at once.
type DistributeRequest struct {
	PostID    int64    `json:"post_id"`
	Platforms []string `json:"platforms"`
}

// ConnectResponse hands the caller everything it needs to start an OAuth
// flow: the URL to redirect the admin to and, for PKCE platforms, the
// verifier to replay on the callback.
type ConnectResponse struct {
	Platform     string `json:"platform"`
	AuthURL      string `json:"auth_url"`
	State        string `json:"state"`
	CodeVerifier string `json:"code_verifier,omitempty"`
}

type DisconnectRequest struct {
	Platform string `json:"platform"`
}


type PostCreation struct {
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
	Slug     string `json:"slug"`
	PostType string `json:"post_type"`
	Status   string `json:"status"`
}
