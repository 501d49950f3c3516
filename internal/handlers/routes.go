package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers the link management and redirect routes.
func RegisterRoutes(api huma.API, links *LinkHandler, health *HealthHandler) {
	huma.Register(api, huma.Operation{
		Method:      http.MethodPost,
		Path:        "/links",
		Summary:     "Create short link",
		Description: "Creates a short link. The code is generated unless a custom one is supplied.",
		Tags:        []string{"Links"},
	}, links.CreateLink)

	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/links/{group}/{code}",
		Summary:     "Get short link",
		Description: "Fetches a link record. Expired records are hidden unless includeExpired is set.",
		Tags:        []string{"Links"},
	}, links.GetLink)

	huma.Register(api, huma.Operation{
		Method:      http.MethodPatch,
		Path:        "/links/{group}/{code}/url",
		Summary:     "Update destination URL",
		Description: "Changes where the link points. Permitted for the owner, or for anyone when the link is anonymous.",
		Tags:        []string{"Links"},
	}, links.UpdateLinkURL)

	huma.Register(api, huma.Operation{
		Method:      http.MethodPatch,
		Path:        "/links/{group}/{code}/expiry",
		Summary:     "Update expiry",
		Description: "Sets or clears the link's expiry. Permitted for the owner, or for anyone when the link is anonymous.",
		Tags:        []string{"Links"},
	}, links.UpdateLinkExpiry)

	huma.Register(api, huma.Operation{
		Method:      http.MethodDelete,
		Path:        "/links/{group}/{code}",
		Summary:     "Delete short link",
		Description: "Deletes the link. Permitted for the owner, or for anyone when the link is anonymous.",
		Tags:        []string{"Links"},
	}, links.DeleteLink)

	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/links/{group}",
		Summary:     "List short links",
		Description: "Lists a user's links within a group, one page at a time.",
		Tags:        []string{"Links"},
	}, links.ListLinks)

	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/{code}",
		Summary:     "Redirect to destination URL",
		Description: "Redirects to the destination of a code in the default group.",
		Tags:        []string{"Links"},
	}, links.RedirectToURL)

	huma.Get(api, "/health", health.Check)
}
