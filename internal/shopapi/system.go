package shopapi

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/montanaflynn/stats"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/shopdemo/shopapi/internal/domain"
	"github.com/shopdemo/shopapi/internal/webserver"
	"github.com/shopdemo/shopapi/pkg/metrics"
)

var startTime = time.Now()

func registerSystemRoutes() {
	webserver.PubGET("/health", health)
	webserver.AdminGET("/system/status", systemStatus)
	webserver.AdminGET("/system/metrics", systemMetrics)
	webserver.AdminGET("/system/settings", listSettings)
	webserver.AdminPUT("/system/settings", updateSetting)
}

func health(c echo.Context) error {
	return ok(c, echo.Map{"status": "ok"})
}

func systemStatus(c echo.Context) error {
	status := echo.Map{
		"uptime":     time.Since(startTime).Round(time.Second).String(),
		"goroutines": runtime.NumGoroutine(),
		"go_version": runtime.Version(),
		"database":   GetDB(c).Name(),
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		status["cpu_percent"] = percents[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		status["mem_percent"] = vm.UsedPercent
		status["mem_total"] = vm.Total
	}
	return ok(c, status)
}

// systemMetrics aggregates the stored time series over a trailing
// window (default 24h).
func systemMetrics(c echo.Context) error {
	hours := 24
	if h, err := strconv.Atoi(c.QueryParam("hours")); err == nil && h > 0 && h <= 24*30 {
		hours = h
	}
	end := time.Now().Unix()
	start := end - int64(hours)*3600

	requests := metrics.RangeValues(metrics.MetricAPIRequest, start, end)
	created := metrics.RangeValues(metrics.MetricOrderCreated, start, end)
	paid := metrics.RangeValues(metrics.MetricOrderPaid, start, end)
	durations := metrics.RangeValues(metrics.MetricCheckoutDuration, start, end)
	cpuSamples := metrics.RangeValues(metrics.MetricSystemCPU, start, end)

	result := echo.Map{
		"hours":          hours,
		"api_requests":   len(requests),
		"orders_created": len(created),
		"orders_paid":    len(paid),
	}
	if sum, err := stats.Sum(created); err == nil {
		result["created_amount"] = sum
	}
	if sum, err := stats.Sum(paid); err == nil {
		result["paid_amount"] = sum
	}
	if p95, err := stats.Percentile(durations, 95); err == nil {
		result["checkout_p95_ms"] = p95
	}
	if avg, err := stats.Mean(cpuSamples); err == nil {
		result["cpu_percent_avg"] = avg
	}
	return ok(c, result)
}

func listSettings(c echo.Context) error {
	var rows []domain.SysConfig
	if err := GetDB(c).Order("type, name").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "settings query failed", nil)
	}
	return ok(c, rows)
}

type settingForm struct {
	Type  string `json:"type" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Value string `json:"value"`
}

func updateSetting(c echo.Context) error {
	var form settingForm
	if err := c.Bind(&form); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
	}
	if err := c.Validate(&form); err != nil {
		return fail(c, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	}
	if err := application.ConfigMgr().SetValue(form.Type, form.Name, form.Value); err != nil {
		return fail(c, http.StatusInternalServerError, "SERVER_ERROR", "setting update failed", nil)
	}
	return ok(c, echo.Map{"message": "setting updated"})
}
