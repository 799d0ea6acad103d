package dashboard

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta http-equiv="refresh" content="300">
<title>Tourism Arrivals Dashboard</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; color: #222; }
h1 { margin-bottom: 0.2rem; }
.muted { color: #777; font-size: 0.9rem; }
.cards { display: flex; gap: 1rem; margin: 1.5rem 0; flex-wrap: wrap; }
.card { border: 1px solid #ddd; border-radius: 6px; padding: 1rem 1.4rem; min-width: 12rem; }
.card .value { font-size: 1.6rem; font-weight: 600; }
table { border-collapse: collapse; margin: 1rem 0 2rem; }
th, td { border-bottom: 1px solid #eee; padding: 0.35rem 0.9rem; text-align: right; }
th:first-child, td:first-child { text-align: left; }
.notice { background: #fff7e0; border: 1px solid #f0d890; padding: 0.6rem 1rem; margin: 0.5rem 0; }
.grid { display: flex; gap: 3rem; flex-wrap: wrap; }
</style>
</head>
<body>
<h1>Tourism Arrivals</h1>
<div class="muted">Generated {{.GeneratedAt.Format "2006-01-02 15:04 MST"}}</div>

{{range .Notices}}<div class="notice">{{.}}</div>{{end}}

{{with .Overview}}
<div class="cards">
  <div class="card"><div class="muted">Total arrivals</div><div class="value">{{num .TotalArrivals}}</div></div>
  <div class="card"><div class="muted">Average per month</div><div class="value">{{num .AvgMonthlyArrivals}}</div></div>
  <div class="card"><div class="muted">Last 6 months</div><div class="value">{{num .Recent6Months}}</div></div>
  <div class="card"><div class="muted">Period</div><div class="value">{{.DateRange.Start}} to {{.DateRange.End}}</div></div>
</div>
{{end}}

<div class="grid">
{{if .Years}}
<div>
<h2>By year</h2>
<table>
<tr><th>Year</th><th>Total</th><th>Monthly average</th><th>YoY</th></tr>
{{range .Years}}<tr><td>{{.Year}}</td><td>{{num .TotalArrivals}}</td><td>{{num .AvgMonthly}}</td><td>{{with index $.Growth .Year}}{{pct .}}{{end}}</td></tr>
{{end}}</table>
</div>
{{end}}

{{if .Top}}
<div>
<h2>Top countries</h2>
<table>
<tr><th>Country</th><th>Arrivals</th></tr>
{{range .Top}}<tr><td>{{.Country}}</td><td>{{num .Arrivals}}</td></tr>
{{end}}</table>
</div>
{{end}}

{{if .Seasonal}}
<div>
<h2>Seasonality</h2>
<table>
<tr><th>Month</th><th>Season</th><th>Mean arrivals</th></tr>
{{range .Seasonal}}<tr><td>{{.MonthName}}</td><td>{{.Season}}</td><td>{{num .Arrivals}}</td></tr>
{{end}}</table>
</div>
{{end}}
</div>

{{with .Forecast}}
<h2>Forecast</h2>
<div class="muted">Model {{.Kind}}, {{.Horizon}} months, {{pct (mulHundred .ConfidenceLevel)}} interval</div>
<table>
<tr><th>Month</th><th>Predicted</th><th>Lower</th><th>Upper</th></tr>
{{range .Points}}<tr><td>{{.Period}}</td><td>{{num .Predicted}}</td><td>{{num .Lower}}</td><td>{{num .Upper}}</td></tr>
{{end}}</table>
{{end}}

{{with .Model}}
<h2>Model</h2>
<table>
<tr><th>Candidate</th><th>MAE</th><th>RMSE</th><th>MAPE</th></tr>
{{range .Candidates}}<tr><td>{{.Kind}}{{if eq .Kind $.Model.Kind}} (selected){{end}}</td>{{with .Metrics}}<td>{{num .MAE}}</td><td>{{num .RMSE}}</td><td>{{pct .MAPE}}</td>{{else}}<td colspan="3">failed</td>{{end}}</tr>
{{end}}</table>
<div class="muted">Trained {{.CreatedAt.Format "2006-01-02 15:04"}} on data through {{.LastPeriod}}</div>
{{end}}
</body>
</html>
`
