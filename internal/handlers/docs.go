package handlers

import (
	"net/http"
	"strconv"
)

type queryParam struct {
	name, kind, description string
}

type apiPath struct {
	path, summary, description string
	params                     []queryParam
	errors                     []int
}

var apiPaths = []apiPath{
	{path: "/health", summary: "Health check", description: "Server status, loaded records, model availability and, with the database mirror, the mirrored record count and latest training run"},
	{path: "/api/overview", summary: "Overview", description: "Total arrivals, monthly average, last six months and top ten countries", errors: []int{404}},
	{path: "/api/monthly-trends", summary: "Monthly trends", description: "Arrivals summed per month",
		params: []queryParam{{"year", "integer", "Restrict to one year"}}, errors: []int{400, 404}},
	{path: "/api/country-analysis", summary: "Country analysis", description: "Monthly series of one country, or totals of every country when no country is given",
		params: []queryParam{{"country", "string", "Country name, case-insensitive"}}, errors: []int{404}},
	{path: "/api/seasonal-analysis", summary: "Seasonal analysis", description: "Mean arrivals per calendar month with its season", errors: []int{404}},
	{path: "/api/top-countries", summary: "Top countries", description: "Countries with the most arrivals",
		params: []queryParam{{"limit", "integer", "Number of countries, 1 to 100 (default 10)"}, {"year", "integer", "Restrict to one year"}}, errors: []int{400, 404}},
	{path: "/api/year-comparison", summary: "Year comparison", description: "Total and mean monthly arrivals per year", errors: []int{404}},
	{path: "/api/regional-analysis", summary: "Regional analysis", description: "Arrivals per source region", errors: []int{404}},
	{path: "/api/growth-rates", summary: "Growth rates", description: "Year-over-year growth of yearly totals", errors: []int{404}},
	{path: "/api/available-years", summary: "Available years", description: "Years present in the processed dataset", errors: []int{404}},
	{path: "/api/available-countries", summary: "Available countries", description: "Countries present in the processed dataset", errors: []int{404}},
	{path: "/api/forecast", summary: "Forecast", description: "Monthly point forecasts with confidence bounds from the current model",
		params: []queryParam{{"horizon", "integer", "Months to forecast (default from configuration)"}}, errors: []int{400, 404, 422}},
	{path: "/api/model", summary: "Current model", description: "Selected model, holdout metrics and candidate results", errors: []int{404}},
	{path: "/api/training-runs", summary: "Training runs", description: "Training runs recorded in the database mirror, newest first",
		params: []queryParam{{"limit", "integer", "Page size, 1 to 1000 (default 20)"}, {"offset", "integer", "Rows to skip"}}, errors: []int{400}},
}

// OpenAPIDocument builds the OpenAPI 3.0 description of the API
func OpenAPIDocument() map[string]interface{} {
	paths := map[string]interface{}{}
	for _, p := range apiPaths {
		params := make([]map[string]interface{}, 0, len(p.params))
		for _, q := range p.params {
			params = append(params, map[string]interface{}{
				"name":        q.name,
				"in":          "query",
				"description": q.description,
				"required":    false,
				"schema":      map[string]string{"type": q.kind},
			})
		}
		responses := map[string]interface{}{
			"200": map[string]interface{}{
				"description": "Successful response",
				"content": map[string]interface{}{
					"application/json": map[string]interface{}{"schema": map[string]string{"type": "object"}},
				},
			},
		}
		for _, code := range p.errors {
			responses[strconv.Itoa(code)] = map[string]interface{}{
				"description": http.StatusText(code),
				"content": map[string]interface{}{
					"application/json": map[string]interface{}{
						"schema": map[string]string{"$ref": "#/components/schemas/ErrorResponse"},
					},
				},
			}
		}
		paths[p.path] = map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     p.summary,
				"description": p.description,
				"parameters":  params,
				"responses":   responses,
			},
		}
	}

	return map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Tourism Forecast API",
			"description": "Read-only analytics over monthly tourist arrivals and forecasts from the trained model",
			"version":     "1.0.0",
		},
		"paths": paths,
		"components": map[string]interface{}{
			"schemas": map[string]interface{}{
				"ErrorResponse": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"error":   map[string]string{"type": "string"},
						"message": map[string]string{"type": "string"},
						"code":    map[string]string{"type": "integer"},
					},
				},
			},
		},
	}
}

// OpenAPISpec serves the OpenAPI document
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, OpenAPIDocument(), http.StatusOK)
}
