package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"

	"github.com/shopdemo/shopapi/pkg/metrics"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	if loc == nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithParser(cronParser), cron.WithLocation(loc))

	if _, err := a.sched.AddFunc("@every 5m", a.runPaymentSyncJob); err != nil {
		zap.L().Error("failed to schedule payment sync job", zap.Error(err))
	}
	if _, err := a.sched.AddFunc("@every 1m", a.runSystemMetricsJob); err != nil {
		zap.L().Error("failed to schedule system metrics job", zap.Error(err))
	}
}

// runPaymentSyncJob re-queries the gateway for stale unpaid orders.
func (a *Application) runPaymentSyncJob() {
	minutes := a.ConfigMgr().GetInt64("payment", "sync_minutes")
	if minutes <= 0 {
		minutes = 10
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	a.paymentService.SyncPendingOrders(ctx, time.Duration(minutes)*time.Minute, 100)
}

// runSystemMetricsJob records a host utilization snapshot.
func (a *Application) runSystemMetricsJob() {
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		metrics.RecordValue(metrics.MetricSystemCPU, percents[0])
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		metrics.RecordValue(metrics.MetricSystemMem, vm.UsedPercent)
	}
}
