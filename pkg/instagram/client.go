package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"igsaved/pkg/config"
	"igsaved/pkg/errors"
	"igsaved/pkg/logger"
	"igsaved/pkg/models"
)

// Client is an authenticated Instagram web API client. All requests share
// one rate limiter so pagination and asset downloads pace together.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	limiter    *rate.Limiter
	logger     logger.Logger
}

// SavedPage is one page of the saved feed.
type SavedPage struct {
	Posts      []*models.Post
	NextCursor string
	More       bool
}

// NewClient creates a client from the session credential in cfg. It fails
// without a network round trip when the token is empty; remote rejection
// surfaces on the first call.
func NewClient(cfg *config.Config, log logger.Logger) (*Client, error) {
	sessionID := strings.TrimSpace(cfg.Instagram.SessionID)
	if sessionID == "" {
		return nil, errors.New(errors.KindAuth, "session ID is empty")
	}

	if log == nil {
		log = logger.GetLogger()
	}

	perRequest := time.Minute / time.Duration(cfg.RateLimit.RequestsPerMinute)
	limiter := rate.NewLimiter(rate.Every(perRequest), cfg.RateLimit.Burst)

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Download.DownloadTimeout,
		},
		headers: map[string]string{
			"User-Agent":      cfg.Instagram.UserAgent,
			"Accept":          "*/*",
			"Accept-Language": "en-US,en;q=0.9",
			"X-IG-App-ID":     "936619743392459",
			"Cookie":          fmt.Sprintf("sessionid=%s", sessionID),
		},
		baseURL: BaseURL,
		limiter: limiter,
		logger:  log,
	}, nil
}

// SetHeader sets a custom header for the client.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// VerifySession checks the session token against the remote service and
// returns the account username it belongs to.
func (c *Client) VerifySession(ctx context.Context) (string, error) {
	var result currentUserResponse
	if err := c.getJSON(ctx, c.currentUserURL(), &result); err != nil {
		if errors.Is(err, errors.KindAuth) {
			return "", err
		}
		return "", errors.Wrap(errors.KindAuth, err, "session validation failed")
	}

	if result.User.Username == "" {
		return "", errors.New(errors.KindAuth, "session rejected by remote service")
	}

	c.logger.InfoWithFields("session verified", map[string]interface{}{
		"username": result.User.Username,
	})

	return result.User.Username, nil
}

// ListCollections returns the saved-post collections visible to the
// account. An account without collections yields an empty slice.
func (c *Client) ListCollections(ctx context.Context) ([]models.Collection, error) {
	var result collectionsResponse
	if err := c.getJSON(ctx, c.collectionsURL(), &result); err != nil {
		return nil, err
	}

	collections := make([]models.Collection, 0, len(result.Items))
	for _, item := range result.Items {
		collections = append(collections, models.Collection{
			ID:         item.CollectionID,
			Name:       item.CollectionName,
			MediaCount: item.CollectionMediaCount,
		})
	}

	c.logger.DebugWithFields("collections listed", map[string]interface{}{
		"count": len(collections),
	})

	return collections, nil
}

// FetchSavedPage fetches one page of saved posts. An empty collectionID
// addresses the full saved feed; cursor comes from the previous page.
func (c *Client) FetchSavedPage(ctx context.Context, collectionID, cursor string) (*SavedPage, error) {
	url := c.savedFeedURL(collectionID, cursor)

	var result savedFeedResponse
	if err := c.getJSON(ctx, url, &result); err != nil {
		return nil, err
	}

	page := &SavedPage{
		NextCursor: result.NextMaxID,
		More:       result.MoreAvailable,
	}
	for _, item := range result.Items {
		if item.Media == nil {
			continue
		}
		page.Posts = append(page.Posts, item.Media.toPost())
	}

	c.logger.DebugWithFields("saved page fetched", map[string]interface{}{
		"collection_id": collectionID,
		"cursor":        cursor,
		"post_count":    len(page.Posts),
		"more":          page.More,
	})

	return page, nil
}

// DownloadAsset retrieves one media binary and reports its content type.
func (c *Client) DownloadAsset(ctx context.Context, assetURL string) ([]byte, string, error) {
	resp, err := c.get(ctx, assetURL)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return nil, "", err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", errors.Wrap(errors.KindNetwork, err, "failed to read asset body")
	}

	contentType := resp.Header.Get("Content-Type")

	c.logger.DebugWithFields("asset downloaded", map[string]interface{}{
		"url":          assetURL,
		"size":         len(data),
		"content_type": contentType,
	})

	return data, contentType, nil
}

// get performs a rate-limited GET with the configured headers.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.KindUnknown, err, "failed to create request")
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      url,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errors.Wrap(errors.KindNetwork, err, "network error")
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      url,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// getJSON performs a GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := c.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.KindNetwork, err, "failed to read response body").WithCode(resp.StatusCode)
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errors.Wrap(errors.KindParsing, err, "failed to parse JSON").WithCode(resp.StatusCode)
	}

	return nil
}

// checkResponseStatus maps HTTP statuses onto the error taxonomy.
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}

	kind := errors.FromStatusCode(resp.StatusCode)
	switch kind {
	case errors.KindAuth:
		c.logger.WarnWithFields("authentication rejected", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errors.New(errors.KindAuth, "authentication required").WithCode(resp.StatusCode)
	case errors.KindPrivate:
		return errors.New(errors.KindPrivate, "access to this content is denied").WithCode(resp.StatusCode)
	case errors.KindNotFound:
		return errors.New(errors.KindNotFound, "resource not found").WithCode(resp.StatusCode)
	case errors.KindRateLimit:
		c.logger.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return errors.New(errors.KindRateLimit, "rate limit exceeded").WithCode(resp.StatusCode)
	case errors.KindNetwork:
		return errors.New(errors.KindNetwork, "server error").WithCode(resp.StatusCode)
	default:
		if resp.StatusCode >= 400 {
			return errors.Newf(errors.KindUnknown, "unexpected status code: %d", resp.StatusCode).WithCode(resp.StatusCode)
		}
		return nil
	}
}
