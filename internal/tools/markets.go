package tools

import (
	"context"
	"net/url"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// registerMarkets adds the stock, news and crypto market-data tools.
func (t *Toolset) registerMarkets(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("get_current_stock_price",
		mcp.WithDescription("Get the current / latest price of a company."),
		mcp.WithString("ticker", mcp.Required(),
			mcp.Description("Ticker symbol of the company (e.g. AAPL, GOOGL)")),
	), t.handleCurrentStockPrice)

	s.AddTool(mcp.NewTool("get_historical_stock_prices",
		mcp.WithDescription("Gets historical stock prices for a company."),
		mcp.WithString("ticker", mcp.Required(),
			mcp.Description("Ticker symbol of the company (e.g. AAPL, GOOGL)")),
		mcp.WithString("start_date", mcp.Required(),
			mcp.Description("Start date of the price data (e.g. 2020-01-01)")),
		mcp.WithString("end_date", mcp.Required(),
			mcp.Description("End date of the price data (e.g. 2020-12-31)")),
		mcp.WithString("interval", mcp.DefaultString("day"),
			mcp.Description("Interval of the price data (e.g. minute, hour, day, week, month)")),
		mcp.WithNumber("interval_multiplier", mcp.DefaultNumber(1),
			mcp.Description("Multiplier of the interval (e.g. 1, 2, 3)")),
	), t.handlePrices("get_historical_stock_prices", "/prices/"))

	s.AddTool(mcp.NewTool("get_company_news",
		mcp.WithDescription("Get news for a company."),
		mcp.WithString("ticker", mcp.Required(),
			mcp.Description("Ticker symbol of the company (e.g. AAPL, GOOGL)")),
	), t.handleCompanyNews)

	s.AddTool(mcp.NewTool("get_available_crypto_tickers",
		mcp.WithDescription("Gets all available crypto tickers."),
	), t.handleAvailableCryptoTickers)

	s.AddTool(mcp.NewTool("get_crypto_prices",
		mcp.WithDescription("Gets historical prices for a crypto currency."),
		mcp.WithString("ticker", mcp.Required(),
			mcp.Description("Ticker symbol of the crypto currency (e.g. BTC-USD)")),
		mcp.WithString("start_date", mcp.Required(),
			mcp.Description("Start date of the price data (e.g. 2020-01-01)")),
		mcp.WithString("end_date", mcp.Required(),
			mcp.Description("End date of the price data (e.g. 2020-12-31)")),
		mcp.WithString("interval", mcp.DefaultString("day"),
			mcp.Description("Interval of the price data (e.g. minute, hour, day, week, month)")),
		mcp.WithNumber("interval_multiplier", mcp.DefaultNumber(1),
			mcp.Description("Multiplier of the interval (e.g. 1, 2, 3)")),
	), t.handlePrices("get_crypto_prices", "/crypto/prices/"))

	s.AddTool(mcp.NewTool("get_historical_crypto_prices",
		mcp.WithDescription("Gets historical prices for a crypto currency. The list of available "+
			"crypto tickers can be retrieved via the get_available_crypto_tickers tool."),
		mcp.WithString("ticker", mcp.Required(),
			mcp.Description("Ticker symbol of the crypto currency (e.g. BTC-USD)")),
		mcp.WithString("start_date", mcp.Required(),
			mcp.Description("Start date of the price data (e.g. 2020-01-01)")),
		mcp.WithString("end_date", mcp.Required(),
			mcp.Description("End date of the price data (e.g. 2020-12-31)")),
		mcp.WithString("interval", mcp.DefaultString("day"),
			mcp.Description("Interval of the price data (e.g. minute, hour, day, week, month)")),
		mcp.WithNumber("interval_multiplier", mcp.DefaultNumber(1),
			mcp.Description("Multiplier of the interval (e.g. 1, 2, 3)")),
	), t.handlePrices("get_historical_crypto_prices", "/crypto/prices/"))

	s.AddTool(mcp.NewTool("get_current_crypto_price",
		mcp.WithDescription("Get the current / latest price of a crypto currency. The list of "+
			"available crypto tickers can be retrieved via the get_available_crypto_tickers tool."),
		mcp.WithString("ticker", mcp.Required(),
			mcp.Description("Ticker symbol of the crypto currency (e.g. BTC-USD)")),
	), t.handleCurrentCryptoPrice)
}

// Snapshot prices are real-time data and bypass the cache.

func (t *Toolset) handleCurrentStockPrice(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticker, err := req.RequireString("ticker")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{"ticker": {ticker}}
	return t.directCall(ctx, "get_current_stock_price", "/prices/snapshot/", query, "snapshot", "current price")
}

func (t *Toolset) handleCurrentCryptoPrice(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticker, err := req.RequireString("ticker")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{"ticker": {ticker}}
	return t.directCall(ctx, "get_current_crypto_price", "/crypto/prices/snapshot/", query, "snapshot", "current price")
}

// handlePrices builds a handler for the historical price tools, which share
// one parameter shape.
func (t *Toolset) handlePrices(tool, path string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := req.RequireString("ticker")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		startDate, err := req.RequireString("start_date")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		endDate, err := req.RequireString("end_date")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		query := url.Values{
			"ticker":              {ticker},
			"start_date":          {startDate},
			"end_date":            {endDate},
			"interval":            {req.GetString("interval", "day")},
			"interval_multiplier": {strconv.Itoa(req.GetInt("interval_multiplier", 1))},
		}

		return t.cachedCall(ctx, tool, path, query, "prices", "prices")
	}
}

func (t *Toolset) handleCompanyNews(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticker, err := req.RequireString("ticker")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{"ticker": {ticker}}
	return t.cachedCall(ctx, "get_company_news", "/news/", query, "news", "news")
}

func (t *Toolset) handleAvailableCryptoTickers(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return t.cachedCall(ctx, "get_available_crypto_tickers", "/crypto/prices/tickers", nil, "tickers", "available crypto tickers")
}
