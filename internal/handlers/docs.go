package handlers

import (
	"encoding/json"
	"net/http"
)

var userHeaderParam = map[string]interface{}{
	"name":        HeaderUserID,
	"in":          "header",
	"description": "UUID of the user whose devices and series are addressed",
	"required":    true,
	"schema":      map[string]string{"type": "string", "format": "uuid"},
}

var timeRangeParam = map[string]interface{}{
	"name":        "timeRange",
	"in":          "query",
	"description": "Window ending now: 24h, 7d, 3m (90 days) or 1y (default: 24h)",
	"required":    false,
	"schema": map[string]interface{}{
		"type":    "string",
		"enum":    []string{"24h", "7d", "3m", "1y"},
		"default": "24h",
	},
}

func jsonResponse(description string, properties map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]interface{}{
					"type":       "object",
					"properties": properties,
				},
			},
		},
	}
}

var errorResponse = jsonResponse("Error", map[string]interface{}{
	"error":   map[string]string{"type": "string"},
	"message": map[string]string{"type": "string"},
	"code":    map[string]string{"type": "integer"},
})

func seriesItems(valueField string) map[string]interface{} {
	return map[string]interface{}{
		"success": map[string]string{"type": "boolean"},
		"data": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"timestamp": map[string]string{"type": "string", "format": "date-time"},
					valueField:  map[string]string{"type": "number"},
					"hour":      map[string]string{"type": "string"},
				},
			},
		},
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Energy Platform API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Energy Platform API",
			"description": "Synthetic solar generation, house load and grid intensity backed by PostgreSQL",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Energy Platform Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"components": map[string]interface{}{
			"securitySchemes": map[string]interface{}{
				"userId": map[string]string{
					"type": "apiKey",
					"in":   "header",
					"name": HeaderUserID,
				},
			},
		},
		"security": []map[string][]string{
			{"userId": {}},
		},
		"paths": map[string]interface{}{
			"/api/populate-database": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Populate, clear or inspect generated data",
					"description": "Backfills hourly series from the last stored hour up to now; force regenerates the full year",
					"parameters": []map[string]interface{}{
						userHeaderParam,
						{
							"name":        "action",
							"in":          "query",
							"description": "populate, clear, count or status (default: status)",
							"required":    false,
							"schema": map[string]interface{}{
								"type": "string",
								"enum": []string{"populate", "clear", "count", "status"},
							},
						},
						{
							"name":        "force",
							"in":          "query",
							"description": "Regenerate the full year instead of only new hours",
							"required":    false,
							"schema":      map[string]interface{}{"type": "boolean", "default": false},
						},
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Action result", map[string]interface{}{
							"success": map[string]string{"type": "boolean"},
							"message": map[string]string{"type": "string"},
						}),
						"401": errorResponse,
						"409": errorResponse,
					},
				},
			},
			"/api/solar-generation-data": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get solar generation",
					"description": "Hourly generation summed across all arrays, rounded to two decimals",
					"parameters":  []map[string]interface{}{userHeaderParam, timeRangeParam},
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", seriesItems("total_generation_kwh")),
						"401": errorResponse,
						"404": errorResponse,
					},
				},
			},
			"/api/house-load-data": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get house load",
					"description": "Hourly whole-house consumption",
					"parameters":  []map[string]interface{}{userHeaderParam, timeRangeParam},
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", seriesItems("energy_kwh")),
						"401": errorResponse,
						"404": errorResponse,
					},
				},
			},
			"/api/house-load-forecast": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Forecast house load",
					"description": "Generated house load for the next hours with the typical consumption for each hour (max 168)",
					"parameters": []map[string]interface{}{
						userHeaderParam,
						{
							"name":     "hours",
							"in":       "query",
							"required": false,
							"schema":   map[string]interface{}{"type": "integer", "default": 24, "maximum": 168},
						},
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", map[string]interface{}{
							"success": map[string]string{"type": "boolean"},
							"data":    map[string]string{"type": "array"},
						}),
						"400": errorResponse,
						"401": errorResponse,
					},
				},
			},
			"/api/live": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Current hour snapshot",
					"description": "Generated solar and house load for the current hour with import/export metrics",
					"parameters":  []map[string]interface{}{userHeaderParam},
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", map[string]interface{}{
							"success": map[string]string{"type": "boolean"},
							"data":    map[string]string{"type": "object"},
						}),
						"401": errorResponse,
					},
				},
			},
			"/api/preview": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Preview generated data",
					"description": "Generates series for a window without storing them (max 31 days)",
					"parameters": []map[string]interface{}{
						userHeaderParam,
						{
							"name":     "start",
							"in":       "query",
							"required": true,
							"schema":   map[string]string{"type": "string", "format": "date-time"},
						},
						{
							"name":     "end",
							"in":       "query",
							"required": true,
							"schema":   map[string]string{"type": "string", "format": "date-time"},
						},
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", map[string]interface{}{
							"success": map[string]string{"type": "boolean"},
							"data":    map[string]string{"type": "object"},
						}),
						"400": errorResponse,
						"401": errorResponse,
					},
				},
			},
			"/api/charts": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "Chart page",
					"parameters": []map[string]interface{}{userHeaderParam, timeRangeParam},
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "HTML page with solar and house load charts",
							"content": map[string]interface{}{
								"text/html": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
						"404": errorResponse,
					},
				},
			},
			"/api/grid-data": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Grid carbon intensity",
					"description": "Stored hourly intensity in gCO2eq/kWh for a zone",
					"parameters": []map[string]interface{}{
						userHeaderParam,
						timeRangeParam,
						{
							"name":        "zone",
							"in":          "query",
							"description": "Grid zone key (default: US-CAL-CISO)",
							"required":    false,
							"schema":      map[string]string{"type": "string"},
						},
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Successful response", map[string]interface{}{
							"success": map[string]string{"type": "boolean"},
							"data": map[string]interface{}{
								"type": "array",
								"items": map[string]interface{}{
									"type": "object",
									"properties": map[string]interface{}{
										"id":                    map[string]string{"type": "string"},
										"zone":                  map[string]string{"type": "string"},
										"timestamp":             map[string]string{"type": "string", "format": "date-time"},
										"grid_carbon_intensity": map[string]string{"type": "integer"},
									},
								},
							},
						}),
						"401": errorResponse,
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API and its database are reachable",
					"responses": map[string]interface{}{
						"200": jsonResponse("API is healthy", map[string]interface{}{
							"status":   map[string]string{"type": "string"},
							"database": map[string]string{"type": "string"},
						}),
						"503": jsonResponse("Database unreachable", map[string]interface{}{
							"status": map[string]string{"type": "string"},
						}),
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
