package connectors

var builtinDefinitions = []Definition{
	{
		Slug: "google-ads", Name: "Google Ads", Category: "Advertising", Live: true,
		Payload: `{
			"customer": {"id": "482-119-3307", "currency": "USD"},
			"metrics": {"clicks": 3124, "impressions": 96210, "cost": 458.19, "conversions": 47, "conversions_value": 3840.50},
			"derived": {"roas": 8.38, "ctr": 3.25, "cpc": 0.15, "cpa": 9.75}
		}`,
		KPIs: []KPIField{
			{Label: "ROAS", Path: "derived.roas", Format: FormatRatio},
			{Label: "Spend", Path: "metrics.cost", Format: FormatMoney},
			{Label: "Clicks", Path: "metrics.clicks", Format: FormatInt},
			{Label: "Impressions", Path: "metrics.impressions", Format: FormatInt},
			{Label: "Conversions", Path: "metrics.conversions", Format: FormatInt},
			{Label: "CTR", Path: "derived.ctr", Format: FormatPercent},
			{Label: "CPC", Path: "derived.cpc", Format: FormatMoney},
		},
	},
	{
		Slug: "meta-ads", Name: "Meta Ads", Category: "Advertising", Live: true,
		Payload: `{
			"data": [{"spend": "1210.40", "impressions": "211430", "clicks": "3954", "purchase_roas": [{"value": "4.12"}], "ctr": "1.87"}]
		}`,
		KPIs: []KPIField{
			{Label: "ROAS", Path: "data.0.purchase_roas.0.value", Format: FormatRatio},
			{Label: "Spend", Path: "data.0.spend", Format: FormatMoney},
			{Label: "Impressions", Path: "data.0.impressions", Format: FormatInt},
			{Label: "CTR", Path: "data.0.ctr", Format: FormatPercent},
		},
	},
	{
		Slug: "ga4", Name: "Google Analytics 4", Category: "Analytics", Live: true,
		Payload: `{
			"rows": [{"sessions": 1842, "totalUsers": 1376, "bounceRate": 41.3, "conversions": 58, "averageSessionDuration": 142.6}]
		}`,
		KPIs: []KPIField{
			{Label: "Sessions", Path: "rows.0.sessions", Format: FormatInt},
			{Label: "Users", Path: "rows.0.totalUsers", Format: FormatInt},
			{Label: "Bounce Rate", Path: "rows.0.bounceRate", Format: FormatPercent},
			{Label: "Conversions", Path: "rows.0.conversions", Format: FormatInt},
		},
	},
	{
		Slug: "search-console", Name: "Google Search Console", Category: "SEO", Live: true,
		Payload: `{
			"rows": [{"clicks": 5230, "impressions": 184900, "ctr": 2.83, "position": 14.2}]
		}`,
		KPIs: []KPIField{
			{Label: "Organic Clicks", Path: "rows.0.clicks", Format: FormatInt},
			{Label: "Impressions", Path: "rows.0.impressions", Format: FormatInt},
			{Label: "CTR", Path: "rows.0.ctr", Format: FormatPercent},
			{Label: "Avg Position", Path: "rows.0.position", Format: FormatNumber},
		},
	},
	{
		Slug: "github", Name: "GitHub", Category: "Engineering", Live: true,
		Payload: `{
			"repository": {"full_name": "acme/platform", "stargazers_count": 1480, "open_issues_count": 27},
			"pulls": {"open": 12, "merged_7d": 34},
			"actions": {"success_rate": 96.4, "runs_7d": 212}
		}`,
		KPIs: []KPIField{
			{Label: "Merged PRs (7d)", Path: "pulls.merged_7d", Format: FormatInt},
			{Label: "Open PRs", Path: "pulls.open", Format: FormatInt},
			{Label: "Open Issues", Path: "repository.open_issues_count", Format: FormatInt},
			{Label: "CI Success Rate", Path: "actions.success_rate", Format: FormatPercent},
			{Label: "Stars", Path: "repository.stargazers_count", Format: FormatInt},
		},
	},
	{
		Slug: "aws", Name: "AWS", Category: "Engineering", Live: true,
		Payload: `{
			"cost_explorer": {"month_to_date": 2841.77, "forecast": 3920.00},
			"ec2": {"running": 14},
			"cloudwatch": {"availability": 99.97, "alarms_in_alarm": 1}
		}`,
		KPIs: []KPIField{
			{Label: "Monthly Cost", Path: "cost_explorer.month_to_date", Format: FormatMoney},
			{Label: "Uptime", Path: "cloudwatch.availability", Format: FormatPercent},
			{Label: "EC2 Instances", Path: "ec2.running", Format: FormatInt},
			{Label: "Active Alarms", Path: "cloudwatch.alarms_in_alarm", Format: FormatInt},
		},
	},
	{
		Slug: "vercel", Name: "Vercel", Category: "Engineering", Live: true,
		Payload: `{
			"deployments": {"count_7d": 42, "ready": 41, "error": 1, "success_rate": 97.6},
			"builds": {"avg_seconds": 48}
		}`,
		KPIs: []KPIField{
			{Label: "Deployments (7d)", Path: "deployments.count_7d", Format: FormatInt},
			{Label: "Success Rate", Path: "deployments.success_rate", Format: FormatPercent},
			{Label: "Avg Build Time (s)", Path: "builds.avg_seconds", Format: FormatNumber},
		},
	},
	{
		Slug: "stripe", Name: "Stripe", Category: "Finance", Live: true,
		Payload: `{
			"mrr": 48250.00,
			"revenue_30d": 51320.40,
			"subscriptions": {"active": 612, "churn_rate": 2.1},
			"charges": {"succeeded_30d": 1893, "failed_30d": 24}
		}`,
		KPIs: []KPIField{
			{Label: "MRR", Path: "mrr", Format: FormatMoney},
			{Label: "Revenue (30d)", Path: "revenue_30d", Format: FormatMoney},
			{Label: "Active Subscriptions", Path: "subscriptions.active", Format: FormatInt},
			{Label: "Churn", Path: "subscriptions.churn_rate", Format: FormatPercent},
		},
	},
	{
		Slug: "paypal", Name: "PayPal", Category: "Finance", Live: true,
		Payload: `{
			"balance": {"available": 9204.18},
			"transactions": {"volume_30d": 12840.55, "count_30d": 389, "refunds_30d": 6}
		}`,
		KPIs: []KPIField{
			{Label: "Volume (30d)", Path: "transactions.volume_30d", Format: FormatMoney},
			{Label: "Transactions", Path: "transactions.count_30d", Format: FormatInt},
			{Label: "Refunds", Path: "transactions.refunds_30d", Format: FormatInt},
			{Label: "Available Balance", Path: "balance.available", Format: FormatMoney},
		},
	},
	{
		Slug: "shopify", Name: "Shopify", Category: "E-commerce", Live: true,
		Payload: `{
			"orders": {"count_30d": 1284, "revenue_30d": 96420.10, "average_order_value": 75.09},
			"storefront": {"conversion_rate": 2.8, "sessions_30d": 45871}
		}`,
		KPIs: []KPIField{
			{Label: "Revenue (30d)", Path: "orders.revenue_30d", Format: FormatMoney},
			{Label: "Orders", Path: "orders.count_30d", Format: FormatInt},
			{Label: "AOV", Path: "orders.average_order_value", Format: FormatMoney},
			{Label: "Conversion Rate", Path: "storefront.conversion_rate", Format: FormatPercent},
		},
	},
	{
		Slug: "quickbooks", Name: "QuickBooks", Category: "Finance", Live: true,
		Payload: `{
			"ProfitAndLoss": {"TotalIncome": 184220.00, "TotalExpenses": 121905.42, "NetIncome": 62314.58},
			"BalanceSheet": {"Cash": 88410.00}
		}`,
		KPIs: []KPIField{
			{Label: "Net Profit", Path: "ProfitAndLoss.NetIncome", Format: FormatMoney},
			{Label: "Revenue", Path: "ProfitAndLoss.TotalIncome", Format: FormatMoney},
			{Label: "Expenses", Path: "ProfitAndLoss.TotalExpenses", Format: FormatMoney},
			{Label: "Cash", Path: "BalanceSheet.Cash", Format: FormatMoney},
		},
	},
	{
		Slug: "hubspot", Name: "HubSpot", Category: "Sales", Live: true,
		Payload: `{
			"contacts": {"total": 8421},
			"deals": {"open": 57, "pipeline_value": 412300.00, "win_rate": 23.5}
		}`,
		KPIs: []KPIField{
			{Label: "Pipeline Value", Path: "deals.pipeline_value", Format: FormatMoney},
			{Label: "Open Deals", Path: "deals.open", Format: FormatInt},
			{Label: "Win Rate", Path: "deals.win_rate", Format: FormatPercent},
			{Label: "Contacts", Path: "contacts.total", Format: FormatInt},
		},
	},
	{Slug: "linkedin-ads", Name: "LinkedIn Ads", Category: "Advertising"},
	{Slug: "tiktok-ads", Name: "TikTok Ads", Category: "Advertising"},
	{Slug: "mailchimp", Name: "Mailchimp", Category: "Marketing"},
	{Slug: "semrush", Name: "Semrush", Category: "SEO"},
	{Slug: "instagram", Name: "Instagram", Category: "Social"},
	{Slug: "salesforce", Name: "Salesforce", Category: "Sales"},
	{Slug: "notion", Name: "Notion", Category: "Operations"},
	{Slug: "slack", Name: "Slack", Category: "Operations"},
}
