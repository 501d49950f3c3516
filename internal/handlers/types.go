package handlers

// LinkBody is the wire representation of a short link.
type LinkBody struct {
	Group     string `doc:"Group the link belongs to"                example:"team-a"                  json:"group"`
	Code      string `doc:"The short code"                           example:"abc123"                  json:"code"`
	URL       string `doc:"The destination URL"                      example:"https://example.com/doc" json:"url"`
	ShortURL  string `doc:"Resolvable short URL, default group only" example:"http://localhost:8888/abc123" json:"shortUrl,omitempty"`
	Creator   string `doc:"User who created the link"                json:"creator"`
	Owner     string `doc:"User who owns the link"                   json:"owner"`
	CreatedAt int64  `doc:"Creation time, epoch milliseconds"        json:"createdAt"`
	ExpiresAt *int64 `doc:"Expiry time, epoch milliseconds"          json:"expiresAt,omitempty"`
}

// CreateLinkRequest is the request for creating a short link.
type CreateLinkRequest struct {
	Body struct {
		URL       string `doc:"The URL to shorten"                           example:"https://example.com/very/long/path" json:"url"`
		Code      string `doc:"Custom short code; generated when omitted"    example:"my-code" json:"code,omitempty"`
		Group     string `doc:"Group for the link; default group when omitted" json:"group,omitempty"`
		Creator   string `doc:"Creating user; anonymous when omitted"        json:"creator,omitempty"`
		ExpiresAt *int64 `doc:"Expiry time, epoch milliseconds; never expires when omitted" json:"expiresAt,omitempty"`
	}
}

// CreateLinkResponse is the response for a successfully created link.
type CreateLinkResponse struct {
	Headers struct {
		Location string `doc:"The short URL location" header:"Location"`
	}
	Body LinkBody
}

// GetLinkRequest is the request for fetching a single link record.
type GetLinkRequest struct {
	Group          string `doc:"Group the link belongs to" path:"group"`
	Code           string `doc:"The short code"            path:"code"`
	IncludeExpired bool   `doc:"Return the record even when expired" query:"includeExpired"`
}

// GetLinkResponse is the response for a fetched link record.
type GetLinkResponse struct {
	Body LinkBody
}

// UpdateLinkURLRequest is the request for changing a link's destination.
type UpdateLinkURLRequest struct {
	Group string `doc:"Group the link belongs to" path:"group"`
	Code  string `doc:"The short code"            path:"code"`
	Body  struct {
		URL     string `doc:"The new destination URL" json:"url"`
		Updater string `doc:"User performing the update; anonymous when omitted" json:"updater,omitempty"`
	}
}

// UpdateLinkExpiryRequest is the request for changing or clearing a link's
// expiry.
type UpdateLinkExpiryRequest struct {
	Group string `doc:"Group the link belongs to" path:"group"`
	Code  string `doc:"The short code"            path:"code"`
	Body  struct {
		ExpiresAt *int64 `doc:"New expiry, epoch milliseconds; null clears the expiry" json:"expiresAt"`
		Updater   string `doc:"User performing the update; anonymous when omitted" json:"updater,omitempty"`
	}
}

// DeleteLinkRequest is the request for deleting a link.
type DeleteLinkRequest struct {
	Group string `doc:"Group the link belongs to" path:"group"`
	Code  string `doc:"The short code"            path:"code"`
	Body  struct {
		Deleter string `doc:"User performing the deletion; anonymous when omitted" json:"deleter,omitempty"`
	}
}

// UpdateLinkResponse is the empty response for a successful mutation.
type UpdateLinkResponse struct{}

// ListLinksRequest is the request for listing a user's links in a group.
type ListLinksRequest struct {
	Group     string `doc:"Group to list"                 path:"group"`
	Owner     string `doc:"Owner to filter by; anonymous when omitted" query:"owner"`
	PageToken string `doc:"Continuation token from a previous page"    query:"pageToken"`
	Limit     int    `doc:"Maximum entries per page"      maximum:"1000" minimum:"0" query:"limit"`
}

// ListLinksResponse is one page of listed links.
type ListLinksResponse struct {
	Body struct {
		Entries       []LinkBody `doc:"Links in this page" json:"entries"`
		NextPageToken string     `doc:"Token for the next page; absent on the final page" json:"nextPageToken,omitempty"`
	}
}

// RedirectRequest is the request for redirecting a short code in the default
// group.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"abc123" path:"code"`
}

// RedirectResponse redirects the caller to the destination URL.
type RedirectResponse struct {
	Status  int
	Headers struct {
		Location string `doc:"The destination URL" header:"Location"`
	}
}
