package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Godfather59/score-app/internal/models"
	"github.com/Godfather59/score-app/internal/services"
)

const alertCooldown = 15 * time.Minute

// StatSampler periodically samples host CPU, memory and uptime for the
// admin dashboard and raises an event when CPU stays above a threshold.
type StatSampler struct {
	eventSvc    services.EventServiceProvider
	interval    time.Duration
	cpuAlertPct float64
	sample      func(ctx context.Context) (models.HostStats, error)
	done        chan struct{}
	stopOnce    sync.Once

	mu        sync.RWMutex
	latest    models.HostStats
	sampled   bool
	lastAlert time.Time
}

// NewStatSampler creates a new StatSampler.
func NewStatSampler(eventSvc services.EventServiceProvider, interval time.Duration, cpuAlertPct float64) *StatSampler {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &StatSampler{
		eventSvc:    eventSvc,
		interval:    interval,
		cpuAlertPct: cpuAlertPct,
		sample:      sampleHost,
		done:        make(chan struct{}),
	}
}

// Run takes a sample immediately and then on every interval until Stop.
func (ss *StatSampler) Run() {
	log.Info().Dur("interval", ss.interval).Msg("Starting host stat sampler...")
	ticker := time.NewTicker(ss.interval)
	defer ticker.Stop()

	ss.update()
	for {
		select {
		case <-ss.done:
			log.Info().Msg("Stopping host stat sampler.")
			return
		case <-ticker.C:
			ss.update()
		}
	}
}

// Stop halts the periodic sampling.
func (ss *StatSampler) Stop() {
	ss.stopOnce.Do(func() { close(ss.done) })
}

// Latest returns the most recent sample.
func (ss *StatSampler) Latest() (models.HostStats, bool) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.latest, ss.sampled
}

func (ss *StatSampler) update() {
	ctx, cancel := context.WithTimeout(context.Background(), ss.interval)
	defer cancel()

	stats, err := ss.sample(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("StatSampler: Failed to sample host stats")
		return
	}

	ss.mu.Lock()
	ss.latest = stats
	ss.sampled = true
	alert := ss.cpuAlertPct > 0 && stats.CPUPercent >= ss.cpuAlertPct && time.Since(ss.lastAlert) >= alertCooldown
	if alert {
		ss.lastAlert = stats.SampledAt
	}
	ss.mu.Unlock()

	if alert && ss.eventSvc != nil {
		msg := fmt.Sprintf("Host CPU usage is high: %.1f%%", stats.CPUPercent)
		if err := ss.eventSvc.CreateEvent(ctx, "system.alert.cpu", services.LevelWarn, msg, nil); err != nil {
			log.Error().Err(err).Msg("StatSampler: Failed to record CPU alert")
		}
	}
}

func sampleHost(ctx context.Context) (models.HostStats, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return models.HostStats{}, fmt.Errorf("cpu percent: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return models.HostStats{}, fmt.Errorf("virtual memory: %w", err)
	}
	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		return models.HostStats{}, fmt.Errorf("uptime: %w", err)
	}

	stats := models.HostStats{
		MemoryPercent: vm.UsedPercent,
		MemoryUsedMB:  vm.Used / 1024 / 1024,
		MemoryTotalMB: vm.Total / 1024 / 1024,
		UptimeSeconds: uptime,
		SampledAt:     time.Now().UTC(),
	}
	if len(percents) > 0 {
		stats.CPUPercent = percents[0]
	}
	return stats, nil
}
