package instagram

import (
	"fmt"
	"net/url"
)

const (
	// BaseURL is the base URL for the Instagram web API
	BaseURL = "https://www.instagram.com/api/v1"

	// CurrentUserEndpoint reports the account behind a session token
	CurrentUserEndpoint = "/accounts/current_user/"

	// CollectionsEndpoint lists the saved-post collections
	CollectionsEndpoint = "/collections/list/"

	// SavedFeedEndpoint is the paginated feed of all saved posts
	SavedFeedEndpoint = "/feed/saved/posts/"

	// CollectionFeedEndpoint is the paginated feed of one collection
	CollectionFeedEndpoint = "/feed/collection/%s/"
)

// SetBaseURL repoints the client at a different API host. Used by tests.
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// currentUserURL constructs the URL for validating a session.
func (c *Client) currentUserURL() string {
	return c.baseURL + CurrentUserEndpoint
}

// collectionsURL constructs the URL for listing collections.
func (c *Client) collectionsURL() string {
	return c.baseURL + CollectionsEndpoint
}

// savedFeedURL constructs the URL for one page of the saved feed.
// An empty collectionID addresses all saved posts; cursor is the
// next_max_id from the previous page, empty for the first page.
func (c *Client) savedFeedURL(collectionID, cursor string) string {
	endpoint := c.baseURL + SavedFeedEndpoint
	if collectionID != "" {
		endpoint = c.baseURL + fmt.Sprintf(CollectionFeedEndpoint, url.PathEscape(collectionID))
	}

	params := url.Values{}
	params.Set("include_igtv_preview", "false")
	if cursor != "" {
		params.Set("max_id", cursor)
	}

	return endpoint + "?" + params.Encode()
}
