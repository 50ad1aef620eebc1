package tools

import (
	"context"
	"net/url"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// registerFinancials adds the financial-statement and SEC-filing tools.
func (t *Toolset) registerFinancials(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("get_income_statements",
		mcp.WithDescription("Get income statements for a company."),
		mcp.WithString("ticker", mcp.Required(),
			mcp.Description("Ticker symbol of the company (e.g. AAPL, GOOGL)")),
		mcp.WithString("period", mcp.DefaultString("annual"),
			mcp.Description("Period of the income statement (e.g. annual, quarterly, ttm)")),
		mcp.WithNumber("limit", mcp.DefaultNumber(4),
			mcp.Description("Number of income statements to return")),
	), t.handleStatements("get_income_statements", "/financials/income-statements/", "income_statements", "income statements"))

	s.AddTool(mcp.NewTool("get_balance_sheets",
		mcp.WithDescription("Get balance sheets for a company."),
		mcp.WithString("ticker", mcp.Required(),
			mcp.Description("Ticker symbol of the company (e.g. AAPL, GOOGL)")),
		mcp.WithString("period", mcp.DefaultString("annual"),
			mcp.Description("Period of the balance sheet (e.g. annual, quarterly, ttm)")),
		mcp.WithNumber("limit", mcp.DefaultNumber(4),
			mcp.Description("Number of balance sheets to return")),
	), t.handleStatements("get_balance_sheets", "/financials/balance-sheets/", "balance_sheets", "balance sheets"))

	s.AddTool(mcp.NewTool("get_cash_flow_statements",
		mcp.WithDescription("Get cash flow statements for a company."),
		mcp.WithString("ticker", mcp.Required(),
			mcp.Description("Ticker symbol of the company (e.g. AAPL, GOOGL)")),
		mcp.WithString("period", mcp.DefaultString("annual"),
			mcp.Description("Period of the cash flow statement (e.g. annual, quarterly, ttm)")),
		mcp.WithNumber("limit", mcp.DefaultNumber(4),
			mcp.Description("Number of cash flow statements to return")),
	), t.handleStatements("get_cash_flow_statements", "/financials/cash-flow-statements/", "cash_flow_statements", "cash flow statements"))

	s.AddTool(mcp.NewTool("get_sec_filings",
		mcp.WithDescription("Get all SEC filings for a company."),
		mcp.WithString("ticker", mcp.Required(),
			mcp.Description("Ticker symbol of the company (e.g. AAPL, GOOGL)")),
		mcp.WithNumber("limit", mcp.DefaultNumber(10),
			mcp.Description("Number of SEC filings to return")),
		mcp.WithString("filing_type",
			mcp.Description("Type of SEC filing (e.g. 10-K, 10-Q, 8-K)")),
	), t.handleSECFilings)
}

// handleStatements builds a handler for the three statement tools, which
// differ only in endpoint and response field.
func (t *Toolset) handleStatements(tool, path, field, noun string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := req.RequireString("ticker")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		query := url.Values{
			"ticker": {ticker},
			"period": {req.GetString("period", "annual")},
			"limit":  {strconv.Itoa(req.GetInt("limit", 4))},
		}

		return t.cachedCall(ctx, tool, path, query, field, noun)
	}
}

func (t *Toolset) handleSECFilings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticker, err := req.RequireString("ticker")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	query := url.Values{
		"ticker": {ticker},
		"limit":  {strconv.Itoa(req.GetInt("limit", 10))},
	}
	if filingType := req.GetString("filing_type", ""); filingType != "" {
		query.Set("filing_type", filingType)
	}

	return t.cachedCall(ctx, "get_sec_filings", "/filings/", query, "filings", "SEC filings")
}
