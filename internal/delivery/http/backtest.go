package http

import (
	"fmt"
	"golang-backtest/internal/dto"
	"golang-backtest/internal/model"
	"golang-backtest/internal/service"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupBacktest(base *echo.Group) {
	v1 := base.Group("/v1/backtests")
	{
		v1.POST("", h.runBacktest)
		v1.GET("", h.listBacktests)
		v1.GET("/:id", h.getBacktest)
		v1.GET("/:id/trades", h.getBacktestTrades)
		v1.GET("/:id/equity", h.getBacktestEquity)
		v1.GET("/:id/metrics", h.getBacktestMetrics)
	}
}

func (h *HttpAPIHandler) runBacktest(c echo.Context) error {
	ctx := c.Request().Context()

	req := new(dto.BacktestRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}

	if err := h.validator.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	engineReq, err := req.ToEngineRequest()
	if err != nil {
		return h.errorResponse(c, err, nil)
	}

	outcome, err := h.service.BacktestService.Run(ctx, engineReq)
	if err != nil {
		var data interface{}
		if outcome != nil {
			data = toRunResponse(outcome)
		}
		return h.errorResponse(c, err, data)
	}

	return c.JSON(http.StatusOK, dto.NewSuccessResponse("backtest completed", toRunResponse(outcome)))
}

func (h *HttpAPIHandler) listBacktests(c echo.Context) error {
	var param dto.ListBacktestRunsParam
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &param); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid query parameters"))
	}
	if err := h.validator.Struct(param); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}

	filter := model.GetBacktestRunParam{Limit: param.Limit}
	if param.UserID > 0 {
		filter.UserID = &param.UserID
	}
	if param.Status != "" {
		filter.Status = &param.Status
	}
	runs, err := h.service.BacktestService.ListRuns(c.Request().Context(), filter)
	if err != nil {
		return h.errorResponse(c, err, nil)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", runs))
}

func (h *HttpAPIHandler) getBacktest(c echo.Context) error {
	runID, err := parseRunID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}
	run, err := h.service.BacktestService.GetRun(c.Request().Context(), runID)
	if err != nil {
		return h.errorResponse(c, err, nil)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", run))
}

func (h *HttpAPIHandler) getBacktestTrades(c echo.Context) error {
	runID, err := parseRunID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}
	trades, err := h.service.BacktestService.GetTrades(c.Request().Context(), runID)
	if err != nil {
		return h.errorResponse(c, err, nil)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", trades))
}

func (h *HttpAPIHandler) getBacktestEquity(c echo.Context) error {
	runID, err := parseRunID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}
	points, err := h.service.BacktestService.GetEquity(c.Request().Context(), runID)
	if err != nil {
		return h.errorResponse(c, err, nil)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", points))
}

func (h *HttpAPIHandler) getBacktestMetrics(c echo.Context) error {
	runID, err := parseRunID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse(err.Error()))
	}
	metrics, err := h.service.BacktestService.GetMetrics(c.Request().Context(), runID)
	if err != nil {
		return h.errorResponse(c, err, nil)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", metrics))
}

func parseRunID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid run id %q", c.Param("id"))
	}
	return uint(id), nil
}

func toRunResponse(outcome *service.RunOutcome) dto.BacktestRunResponse {
	resp := dto.BacktestRunResponse{
		RunID:  outcome.RunID,
		Hash:   outcome.Hash,
		Status: outcome.Status,
		Reused: outcome.Reused,
	}
	if outcome.Result != nil {
		resp.Summary = &outcome.Result.Summary
		resp.Metrics = &outcome.Result.Metrics
		resp.OpenPositions = outcome.Result.OpenPositions
		resp.Trades = outcome.Result.Trades
	}
	return resp
}
