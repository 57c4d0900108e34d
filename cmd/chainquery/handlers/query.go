package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/chainquery/cmd/chainquery/container"
	"github.com/lyzr/chainquery/cmd/chainquery/service"
)

// QueryHandler serves the four chain queries
type QueryHandler struct {
	svc *service.QueryService
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(c *container.Container) *QueryHandler {
	return &QueryHandler{svc: c.QueryService}
}

// GetChainsList returns a page of chains with investment totals
// GET /getChainsList?page=1&limit=10
func (h *QueryHandler) GetChainsList(c echo.Context) error {
	page := h.svc.Validator().ParsePage(c.QueryParam("page"), c.QueryParam("limit"))
	return respond(c, h.svc.ListChains(c.Request().Context(), page))
}

// GetMediaList returns the media record
// GET /getMediaList
func (h *QueryHandler) GetMediaList(c echo.Context) error {
	return respond(c, h.svc.GetMedia(c.Request().Context()))
}

// GetTopNodes returns the largest nodes across all chains
// GET /getTopNodes
func (h *QueryHandler) GetTopNodes(c echo.Context) error {
	return respond(c, h.svc.TopNodes(c.Request().Context()))
}

// SearchNodes searches every chain by user name or node id.
// Parameters come from the query string even though the method is POST.
// POST /searchNodes?searchField=alice&page=1&limit=10
func (h *QueryHandler) SearchNodes(c echo.Context) error {
	page := h.svc.Validator().ParsePage(c.QueryParam("page"), c.QueryParam("limit"))
	return respond(c, h.svc.SearchNodes(c.Request().Context(), c.QueryParam("searchField"), page))
}

// HTTPStatus maps an executor status to its HTTP code
func HTTPStatus(s service.Status) int {
	switch s {
	case service.StatusOK:
		return http.StatusOK
	case service.StatusNotFound:
		return http.StatusNotFound
	case service.StatusBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respond(c echo.Context, res *service.Result) error {
	return c.JSON(HTTPStatus(res.Status), res.Body())
}
