// Package handlers exposes the link operations over HTTP. It translates
// between wire types and manager calls and maps the error taxonomy onto
// status codes; no store logic lives here.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlink/internal/clock"
	"github.com/serroba/shortlink/internal/events"
	"github.com/serroba/shortlink/internal/link"
	"github.com/serroba/shortlink/internal/manager"
	"github.com/serroba/shortlink/internal/store"
	"go.uber.org/zap"
)

// LinkHandler handles short-link CRUD and redirect operations.
type LinkHandler struct {
	manager        *manager.Manager
	baseURL        string
	publishCreated events.Publish[events.LinkCreatedEvent]
	publishUpdated events.Publish[events.LinkUpdatedEvent]
	publishDeleted events.Publish[events.LinkDeletedEvent]
	clk            clock.Clock
	logger         *zap.Logger
}

// NewLinkHandler creates a new link handler.
func NewLinkHandler(
	m *manager.Manager,
	baseURL string,
	publishers *events.PublisherGroup,
	clk clock.Clock,
	logger *zap.Logger,
) *LinkHandler {
	return &LinkHandler{
		manager:        m,
		baseURL:        baseURL,
		publishCreated: publishers.PublishCreated(),
		publishUpdated: publishers.PublishUpdated(),
		publishDeleted: publishers.PublishDeleted(),
		clk:            clk,
		logger:         logger,
	}
}

// mapError translates the store error taxonomy to HTTP status codes. Not
// found and not permitted share a 404 so callers cannot probe for records
// they do not own.
func mapError(err error) error {
	switch {
	case errors.Is(err, store.ErrDuplicateCode):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, store.ErrVersionConflict):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrNotFoundOrNotPermitted):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, store.ErrValidation), errors.Is(err, store.ErrInvalidPageToken):
		return huma.Error400BadRequest(err.Error())
	default:
		return huma.Error500InternalServerError("internal error")
	}
}

func (h *LinkHandler) toBody(lnk link.ShortLink) LinkBody {
	body := LinkBody{
		Group:     string(lnk.Group),
		Code:      string(lnk.Code),
		URL:       lnk.URL,
		Creator:   string(lnk.Creator),
		Owner:     string(lnk.Owner),
		CreatedAt: lnk.CreatedAt,
		ExpiresAt: lnk.ExpiresAt,
	}

	// Only default-group codes are resolvable through the redirect route.
	if lnk.Group == link.DefaultGroup {
		body.ShortURL = fmt.Sprintf("%s/%s", h.baseURL, lnk.Code)
	}

	return body
}

func (h *LinkHandler) CreateLink(ctx context.Context, req *CreateLinkRequest) (*CreateLinkResponse, error) {
	created, err := h.manager.Create(ctx, manager.CreateRequest{
		URL:       req.Body.URL,
		Group:     link.Group(req.Body.Group),
		Creator:   link.User(req.Body.Creator),
		Code:      link.Code(req.Body.Code),
		ExpiresAt: req.Body.ExpiresAt,
	})
	if err != nil {
		return nil, mapError(err)
	}

	if err := h.publishCreated(events.NewLinkCreatedEvent(created)); err != nil {
		h.logger.Error("failed to publish link created event",
			zap.String("code", string(created.Code)),
			zap.Error(err),
		)
	}

	resp := &CreateLinkResponse{Body: h.toBody(created)}
	resp.Headers.Location = resp.Body.ShortURL

	return resp, nil
}

func (h *LinkHandler) GetLink(ctx context.Context, req *GetLinkRequest) (*GetLinkResponse, error) {
	lnk, err := h.manager.Get(ctx, link.Group(req.Group), link.Code(req.Code), !req.IncludeExpired)
	if err != nil {
		return nil, mapError(err)
	}

	return &GetLinkResponse{Body: h.toBody(*lnk)}, nil
}

func (h *LinkHandler) UpdateLinkURL(ctx context.Context, req *UpdateLinkURLRequest) (*UpdateLinkResponse, error) {
	updater := callerOrAnonymous(req.Body.Updater)

	err := h.manager.UpdateURL(ctx, link.Group(req.Group), link.Code(req.Code), req.Body.URL, updater)
	if err != nil {
		return nil, mapError(err)
	}

	h.publishUpdate(req.Group, req.Code, "url", updater)

	return &UpdateLinkResponse{}, nil
}

func (h *LinkHandler) UpdateLinkExpiry(ctx context.Context, req *UpdateLinkExpiryRequest) (*UpdateLinkResponse, error) {
	updater := callerOrAnonymous(req.Body.Updater)

	err := h.manager.UpdateExpiry(ctx, link.Group(req.Group), link.Code(req.Code), req.Body.ExpiresAt, updater)
	if err != nil {
		return nil, mapError(err)
	}

	h.publishUpdate(req.Group, req.Code, "expiry", updater)

	return &UpdateLinkResponse{}, nil
}

func (h *LinkHandler) publishUpdate(group, code, field string, updater link.User) {
	err := h.publishUpdated(&events.LinkUpdatedEvent{
		Group:     group,
		Code:      code,
		Field:     field,
		UpdatedBy: string(updater),
		UpdatedAt: h.clk.Now().UnixMilli(),
	})
	if err != nil {
		h.logger.Error("failed to publish link updated event",
			zap.String("code", code),
			zap.Error(err),
		)
	}
}

func (h *LinkHandler) DeleteLink(ctx context.Context, req *DeleteLinkRequest) (*UpdateLinkResponse, error) {
	deleter := callerOrAnonymous(req.Body.Deleter)

	err := h.manager.Delete(ctx, link.Group(req.Group), link.Code(req.Code), deleter)
	if err != nil {
		return nil, mapError(err)
	}

	err = h.publishDeleted(&events.LinkDeletedEvent{
		Group:     req.Group,
		Code:      req.Code,
		DeletedBy: string(deleter),
		DeletedAt: h.clk.Now().UnixMilli(),
	})
	if err != nil {
		h.logger.Error("failed to publish link deleted event",
			zap.String("code", req.Code),
			zap.Error(err),
		)
	}

	return &UpdateLinkResponse{}, nil
}

func (h *LinkHandler) ListLinks(ctx context.Context, req *ListLinksRequest) (*ListLinksResponse, error) {
	owner := callerOrAnonymous(req.Owner)

	page, err := h.manager.List(ctx, link.Group(req.Group), owner, req.PageToken, req.Limit)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &ListLinksResponse{}
	resp.Body.Entries = make([]LinkBody, 0, len(page.Entries))
	resp.Body.NextPageToken = page.NextPageToken

	for _, lnk := range page.Entries {
		resp.Body.Entries = append(resp.Body.Entries, h.toBody(lnk))
	}

	return resp, nil
}

// RedirectToURL resolves a code in the default group and redirects. Expired
// links do not resolve.
func (h *LinkHandler) RedirectToURL(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	lnk, err := h.manager.Get(ctx, link.DefaultGroup, link.Code(req.Code), true)
	if err != nil {
		return nil, mapError(err)
	}

	resp := &RedirectResponse{Status: http.StatusMovedPermanently}
	resp.Headers.Location = lnk.URL

	return resp, nil
}

func callerOrAnonymous(user string) link.User {
	if user == "" {
		return link.AnonymousUser
	}

	return link.User(user)
}
