package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/riskops/backend/api/transport"
	"github.com/riskops/backend/domain"
	"github.com/riskops/backend/pkg/httpcontext"
	usecase "github.com/riskops/backend/usecase/risk"
)

// RiskHandler exposes the risk command and query operations over HTTP.
type RiskHandler struct {
	baseHandler
	service *usecase.Service
}

func NewRiskHandler(service *usecase.Service, adapter *httpcontext.Adapter, logger *zap.Logger) *RiskHandler {
	return &RiskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		service:     service,
	}
}

// @Summary Create risk
// @Tags risks
// @Router /api/v1/risks [post]
func (h *RiskHandler) Create(ctx *fasthttp.RequestCtx) {
	var req transport.RiskCreateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.NewValidationError("invalid request body",
			domain.FieldError{Field: "body", Message: "malformed JSON"}))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	resp, err := h.service.Create(stdCtx, req.ToCommand())
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, resp)
}

// @Summary Get risk by id
// @Tags risks
// @Router /api/v1/risks/{id} [get]
func (h *RiskHandler) Get(ctx *fasthttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	resp, err := h.service.Get(stdCtx, usecase.GetQuery{ID: id})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, resp)
}

// @Summary Update risk
// @Tags risks
// @Router /api/v1/risks/{id} [put]
func (h *RiskHandler) Update(ctx *fasthttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	var req transport.RiskUpdateRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.NewValidationError("invalid request body",
			domain.FieldError{Field: "body", Message: "malformed JSON"}))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	resp, err := h.service.Update(stdCtx, req.ToCommand(id))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, resp)
}

// @Summary Delete risk
// @Tags risks
// @Router /api/v1/risks/{id} [delete]
func (h *RiskHandler) Delete(ctx *fasthttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	resp, err := h.service.Delete(stdCtx, usecase.DeleteCommand{ID: id})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, resp)
}

// @Summary Change risk status
// @Tags risks
// @Router /api/v1/risks/{id}/status [patch]
func (h *RiskHandler) ChangeStatus(ctx *fasthttp.RequestCtx) {
	id, err := pathID(ctx)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	var req transport.StatusChangeRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.NewValidationError("invalid request body",
			domain.FieldError{Field: "body", Message: "malformed JSON"}))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	resp, err := h.service.ChangeStatus(stdCtx, req.ToCommand(id))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, resp)
}

// @Summary Bulk status change
// @Tags risks
// @Router /api/v1/risks/bulk/status [post]
func (h *RiskHandler) BulkChangeStatus(ctx *fasthttp.RequestCtx) {
	var req transport.BulkStatusRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondError(ctx, domain.NewValidationError("invalid request body",
			domain.FieldError{Field: "body", Message: "malformed JSON"}))
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	resp, err := h.service.BulkChangeStatus(stdCtx, req.ToCommand())
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, resp)
}

// @Summary List risks
// @Tags risks
// @Router /api/v1/risks [get]
func (h *RiskHandler) List(ctx *fasthttp.RequestCtx) {
	query := listQueryFromArgs(ctx.QueryArgs())

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	resp, err := h.service.List(stdCtx, query)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, resp)
}

// @Summary Search risks
// @Tags risks
// @Router /api/v1/risks/search [get]
func (h *RiskHandler) Search(ctx *fasthttp.RequestCtx) {
	args := ctx.QueryArgs()
	query := usecase.SearchQuery{
		Text:           string(args.Peek("q")),
		OrganizationID: optionalInt64(args, "organization_id"),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	items, err := h.service.Search(stdCtx, query)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, items)
}

// @Summary Risk statistics
// @Tags risks
// @Router /api/v1/risks/statistics [get]
func (h *RiskHandler) Statistics(ctx *fasthttp.RequestCtx) {
	query := usecase.StatisticsQuery{
		OrganizationID: optionalInt64(ctx.QueryArgs(), "organization_id"),
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	resp, err := h.service.GetStatistics(stdCtx, query)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, resp)
}

func pathID(ctx *fasthttp.RequestCtx) (int64, error) {
	raw, _ := ctx.UserValue("id").(string)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("invalid path parameter",
			domain.FieldError{Field: "id", Message: "must be a positive integer", Value: raw})
	}
	return id, nil
}

func listQueryFromArgs(args *fasthttp.Args) usecase.ListQuery {
	return usecase.ListQuery{
		OrganizationID: optionalInt64(args, "organization_id"),
		OwnerID:        optionalInt64(args, "owner_id"),
		Statuses:       splitCSV(string(args.Peek("status"))),
		Categories:     splitCSV(string(args.Peek("category"))),
		RiskLevels:     splitCSV(string(args.Peek("risk_level"))),
		Tags:           splitCSV(string(args.Peek("tag"))),
		RiskType:       string(args.Peek("risk_type")),
		SearchText:     string(args.Peek("search")),
		SortBy:         string(args.Peek("sort_by")),
		SortDescending: strings.EqualFold(string(args.Peek("sort_order")), "desc"),
		Page:           args.GetUintOrZero("page"),
		Limit:          args.GetUintOrZero("limit"),
	}
}

func optionalInt64(args *fasthttp.Args, key string) *int64 {
	raw := string(args.Peek(key))
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &value
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
