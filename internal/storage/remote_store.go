package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kazesawa-dev/certtrack/internal/apperrors"
	"github.com/kazesawa-dev/certtrack/pkg/logger"
)

// RemoteStore persists collections through a content-addressed contents API
// (GitHub style): GET returns base64 content plus a sha identifying the exact
// stored state, and a conditional PUT carrying that sha only succeeds while
// the sha still matches. Every accepted write becomes an immutable revision
// with a human-readable change message, which doubles as an audit trail.
type RemoteStore struct {
	client  *http.Client
	limiter *rate.Limiter

	baseURL string
	repo    string // "owner/name"
	branch  string
	token   string
}

type RemoteStoreOptions struct {
	BaseURL string
	Repo    string
	Branch  string
	Token   string
	// Client is optional; a 30s-timeout client is used when nil.
	Client *http.Client
}

func NewRemoteStore(opts RemoteStoreOptions) *RemoteStore {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	branch := opts.Branch
	if branch == "" {
		branch = "main"
	}
	return &RemoteStore{
		client: client,
		// Contents APIs are rate limited; stay well under the ceiling.
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		repo:    opts.Repo,
		branch:  branch,
		token:   opts.Token,
	}
}

func (s *RemoteStore) contentURL(file string) string {
	return fmt.Sprintf("%s/repos/%s/contents/data/%s", s.baseURL, s.repo, file)
}

type contentResponse struct {
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// Load fetches a collection. A 404 means the collection has never been
// written and maps to the empty scaffold with an empty revision.
func (s *RemoteStore) Load(ctx context.Context, collection string) (*Document, error) {
	file, err := FileFor(collection)
	if err != nil {
		return nil, err
	}

	body, status, err := s.do(ctx, http.MethodGet, s.contentURL(file)+"?ref="+s.branch, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return &Document{Collection: collection, Content: Scaffold(collection)}, nil
	}
	if status != http.StatusOK {
		return nil, apperrors.StorageIOf("load collection %s: remote returned %d", collection, status)
	}

	var resp contentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.StorageIOf("decode remote response for %s: %v", collection, err)
	}

	// The API wraps base64 at 60 columns.
	content, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(resp.Content, "\n", ""))
	if err != nil {
		return nil, apperrors.StorageIOf("decode content for %s: %v", collection, err)
	}

	return &Document{Collection: collection, Content: content, Revision: resp.SHA}, nil
}

// Save writes a collection conditionally on the revision the caller loaded.
// An empty revision creates the file; a stale revision is rejected by the
// remote and surfaces as a conflict the caller must resolve. The store never
// retries.
func (s *RemoteStore) Save(ctx context.Context, collection string, content []byte, revision string) (string, error) {
	file, err := FileFor(collection)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(putRequest{
		Message: fmt.Sprintf("Update %s collection", collection),
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  s.branch,
		SHA:     revision,
	})
	if err != nil {
		return "", apperrors.StorageIOf("encode save request for %s: %v", collection, err)
	}

	body, status, err := s.do(ctx, http.MethodPut, s.contentURL(file), payload)
	if err != nil {
		return "", err
	}

	switch status {
	case http.StatusOK, http.StatusCreated:
		// fall through below
	case http.StatusConflict, http.StatusUnprocessableEntity:
		logger.Log.WithFields(map[string]interface{}{
			"collection": collection,
			"revision":   revision,
		}).Warn("Conditional write rejected by remote store")
		return "", apperrors.Conflictf("collection %s was modified concurrently", collection)
	default:
		return "", apperrors.StorageIOf("save collection %s: remote returned %d", collection, status)
	}

	var resp putResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", apperrors.StorageIOf("decode save response for %s: %v", collection, err)
	}
	return resp.Content.SHA, nil
}

func (s *RemoteStore) do(ctx context.Context, method, url string, payload []byte) ([]byte, int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, 0, apperrors.StorageIOf("rate limiter: %v", err)
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, 0, apperrors.StorageIOf("build request: %v", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Authorization", "token "+s.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, apperrors.StorageIOf("remote request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, apperrors.StorageIOf("read remote response: %v", err)
	}
	return body, resp.StatusCode, nil
}
