package handlers

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"energy-platform/internal/models"
	"energy-platform/internal/services"
)

// SeriesToCharts renders solar generation and house load as an HTML page
// of line charts. Either series may be empty.
func SeriesToCharts(tr services.TimeRange, solar, houseLoad []models.SeriesPoint) ([]byte, error) {
	solarChart := charts.NewLine()
	solarChart.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Solar Generation",
			Subtitle: string(tr),
		}))
	var xAxis []string
	var yAxis []opts.LineData
	for _, p := range solar {
		xAxis = append(xAxis, p.Hour)
		yAxis = append(yAxis, opts.LineData{
			Value:  p.EnergyKWh,
			Symbol: "kWh",
		})
	}
	solarChart.SetXAxis(xAxis).
		AddSeries("kWh", yAxis)

	loadChart := charts.NewLine()
	loadChart.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "House Load",
			Subtitle: string(tr),
		}))
	xAxis = []string{}
	yAxis = []opts.LineData{}
	for _, p := range houseLoad {
		xAxis = append(xAxis, p.Hour)
		yAxis = append(yAxis, opts.LineData{
			Value:  p.EnergyKWh,
			Symbol: "kWh",
		})
	}
	loadChart.SetXAxis(xAxis).
		AddSeries("kWh", yAxis)

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)

	page.AddCharts(solarChart)
	page.AddCharts(loadChart)

	bodyBuf := bytes.NewBuffer([]byte{})

	err := page.Render(bodyBuf)
	if err != nil {
		return nil, err
	}

	return bodyBuf.Bytes(), nil
}

// GetCharts handles GET /api/charts
func (h *EnergyHandler) GetCharts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := userID(ctx)
	tr := services.ParseTimeRange(r.URL.Query().Get("timeRange"))
	now := h.now()

	var nf *models.NotFoundError

	solar, err := h.energy.SolarSeries(ctx, user, tr, now)
	if err != nil && !errors.As(err, &nf) {
		h.handleServiceError(w, r, "[API_CHARTS_ERROR] Failed to fetch solar generation data", err)
		return
	}
	houseLoad, err := h.energy.HouseLoadSeries(ctx, user, tr, now)
	if err != nil && !errors.As(err, &nf) {
		h.handleServiceError(w, r, "[API_CHARTS_ERROR] Failed to fetch house load data", err)
		return
	}
	if len(solar) == 0 && len(houseLoad) == 0 {
		h.sendError(w, "No energy data found. Please populate the database first.", http.StatusNotFound)
		return
	}

	body, err := SeriesToCharts(tr, solar, houseLoad)
	if err != nil {
		h.handleServiceError(w, r, "[API_CHARTS_ERROR] Failed to render charts", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
