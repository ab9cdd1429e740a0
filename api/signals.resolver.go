package api

import (
	"context"
	"fmt"
	"time"

	"stratsim/internal/domain"
	"stratsim/internal/logger"
	"stratsim/internal/service"

	"github.com/gin-gonic/gin"
)

type SignalsRequest struct {
	Strategy domain.StrategyConfig `json:"strategy"`
	// Symbols defaults to the strategy universe
	Symbols []string `json:"symbols,omitempty"`
	// LookbackDays bounds how much history each evaluation sees
	LookbackDays int `json:"lookbackDays,omitempty"`
}

type TestStrategyRequest struct {
	Strategy     domain.StrategyConfig `json:"strategy"`
	Symbol       string                `json:"symbol"`
	LookbackDays int                   `json:"lookbackDays,omitempty"`
}

const defaultLookbackDays = 365

// contextProvider builds per-symbol evaluation contexts from the price
// provider, using the latest bar as the current price.
func (m ApiHandler) contextProvider(lookbackDays int) service.ContextProvider {
	if lookbackDays <= 0 {
		lookbackDays = defaultLookbackDays
	}
	return func(ctx context.Context, symbol string) (domain.EvaluationContext, error) {
		latest, err := m.PriceProvider.GetLatestPrice(ctx, symbol)
		if err != nil {
			return domain.EvaluationContext{}, err
		}
		if latest == nil {
			return domain.EvaluationContext{}, fmt.Errorf("no price data for %s", symbol)
		}

		history, err := m.PriceProvider.GetPriceHistory(ctx, symbol, latest.Date.AddDate(0, 0, -lookbackDays), latest.Date)
		if err != nil {
			return domain.EvaluationContext{}, err
		}

		return domain.EvaluationContext{
			Symbol:       symbol,
			Date:         latest.Date,
			CurrentPrice: latest.Close,
			History:      history,
		}, nil
	}
}

func (m ApiHandler) signals(c *gin.Context) {
	var requestBody SignalsRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}

	handler, err := service.NewStrategyHandler(requestBody.Strategy)
	if err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}

	symbols := requestBody.Symbols
	if len(symbols) == 0 {
		symbols = requestBody.Strategy.Universe
	}

	ctx := context.WithValue(c.Request.Context(), logger.ContextKey, logger.FromContext(c))
	signals := handler.GenerateSignals(ctx, symbols, m.contextProvider(requestBody.LookbackDays))

	c.JSON(200, gin.H{
		"signals":     signals,
		"generatedAt": time.Now().UTC(),
	})
}

func (m ApiHandler) testStrategy(c *gin.Context) {
	var requestBody TestStrategyRequest
	if err := c.ShouldBindJSON(&requestBody); err != nil {
		returnErrorJsonCode(err, c, 400)
		return
	}
	if requestBody.Symbol == "" {
		returnErrorJsonCode(fmt.Errorf("symbol is required"), c, 400)
		return
	}

	ctx := context.WithValue(c.Request.Context(), logger.ContextKey, logger.FromContext(c))
	signal, err := service.TestStrategy(ctx, requestBody.Strategy, requestBody.Symbol, m.contextProvider(requestBody.LookbackDays))
	if err != nil {
		returnErrorJson(err, c)
		return
	}

	c.JSON(200, signal)
}
