package api

import (
	"context"
	"fmt"
	"time"

	"stratsim/internal/app"
	"stratsim/internal/domain"
	"stratsim/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BacktestRequest struct {
	Strategy    domain.StrategyConfig `json:"strategy"`
	Start       string                `json:"start"`
	End         string                `json:"end"`
	InitialCash float64               `json:"initialCash"`
	Commission  float64               `json:"commission"`
	Slippage    float64               `json:"slippage"`
}

func (m ApiHandler) backtest(c *gin.Context) {
	var requestBody BacktestRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}

	start, err := time.Parse(time.DateOnly, requestBody.Start)
	if err != nil {
		returnErrorJsonCode(fmt.Errorf("could not parse start date: %w", err), c, 400)
		return
	}
	end, err := time.Parse(time.DateOnly, requestBody.End)
	if err != nil {
		returnErrorJsonCode(fmt.Errorf("could not parse end date: %w", err), c, 400)
		return
	}
	if end.Before(start) {
		returnErrorJsonCode(fmt.Errorf("end date cannot be before start date"), c, 400)
		return
	}

	ctx := context.WithValue(c.Request.Context(), logger.ContextKey, logger.FromContext(c))

	result, err := m.BacktestHandler.Run(ctx, app.BacktestInput{
		BacktestID:  uuid.New(),
		Strategy:    requestBody.Strategy,
		Start:       start,
		End:         end,
		InitialCash: decimal.NewFromFloat(requestBody.InitialCash),
		Commission:  decimal.NewFromFloat(requestBody.Commission),
		Slippage:    decimal.NewFromFloat(requestBody.Slippage),
	})
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	c.JSON(200, result)
}
