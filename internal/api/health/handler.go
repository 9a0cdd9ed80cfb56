package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"huddle/internal/adapters/telegram"
	"huddle/internal/repository/file"
	"huddle/internal/workers"
	"huddle/pkg/logger"
)

// Handler provides health check endpoints
type Handler struct {
	log         *logger.Logger
	store       *file.Store
	scheduler   *workers.Scheduler
	bot         *telegram.Bot
	startTime   time.Time
	serviceName string
	version     string
}

// New creates a new health check handler. scheduler may be nil when
// background refresh is disabled.
func New(
	log *logger.Logger,
	store *file.Store,
	scheduler *workers.Scheduler,
	bot *telegram.Bot,
	serviceName string,
	version string,
) *Handler {
	return &Handler{
		log:         log,
		store:       store,
		scheduler:   scheduler,
		bot:         bot,
		startTime:   time.Now(),
		serviceName: serviceName,
		version:     version,
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string                     `json:"status"` // "healthy", "degraded", "unhealthy"
	Service   string                     `json:"service"`
	Version   string                     `json:"version"`
	Uptime    string                     `json:"uptime"`
	Timestamp string                     `json:"timestamp"`
	Checks    map[string]ComponentHealth `json:"checks"`
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time,omitempty"`
	Error        string `json:"error,omitempty"`
}

// HandleLiveness returns 200 OK if service is running
// Used by Kubernetes liveness probe
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "alive",
	})
}

// HandleReadiness checks if service is ready to accept traffic: the
// registry store must be reachable and the bot polling for updates.
// Background refresh state does not gate readiness.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]ComponentHealth)
	allHealthy := true

	storeHealth := h.checkStore(ctx)
	checks["registry_store"] = storeHealth
	if storeHealth.Status != "healthy" {
		allHealthy = false
	}

	botHealth := h.checkTelegram()
	checks["telegram"] = botHealth
	if botHealth.Status != "healthy" {
		allHealthy = false
	}

	status := HealthStatus{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}

	statusCode := http.StatusOK
	if !allHealthy {
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
		h.log.Warnw("Readiness check failed", "checks", checks)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(status)
}

// HandleHealth returns detailed health status including the refresh
// scheduler and each registered worker
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	checks := make(map[string]ComponentHealth)
	healthyCount := 0
	totalCount := 0
	degraded := false

	totalCount++
	storeHealth := h.checkStore(ctx)
	checks["registry_store"] = storeHealth
	if storeHealth.Status == "healthy" {
		healthyCount++
	}

	totalCount++
	botHealth := h.checkTelegram()
	checks["telegram"] = botHealth
	if botHealth.Status == "healthy" {
		healthyCount++
	}

	if h.scheduler != nil {
		schedHealth := h.checkScheduler()
		checks["refresh_scheduler"] = schedHealth
		if schedHealth.Status != "healthy" {
			degraded = true
		}

		for _, worker := range h.scheduler.Workers() {
			hw, ok := worker.(workers.WorkerWithHealth)
			if !ok {
				continue
			}
			wh := h.checkWorker(hw)
			checks["worker:"+worker.Name()] = wh
			if wh.Status == "unhealthy" {
				degraded = true
			}
		}
	}

	status := HealthStatus{
		Status:    "healthy",
		Service:   h.serviceName,
		Version:   h.version,
		Uptime:    time.Since(h.startTime).String(),
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    checks,
	}

	statusCode := http.StatusOK

	if healthyCount == 0 {
		status.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	} else if healthyCount < totalCount || degraded {
		status.Status = "degraded"
		statusCode = http.StatusOK // Still return 200 for degraded
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(status)
}

// checkStore verifies the registry file location is reachable
func (h *Handler) checkStore(ctx context.Context) ComponentHealth {
	start := time.Now()
	err := h.store.Ping(ctx)
	elapsed := time.Since(start)

	if err != nil {
		h.log.Errorw("Registry store health check failed", "error", err, "elapsed", elapsed)
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: elapsed.String(),
			Error:        err.Error(),
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: elapsed.String(),
	}
}

// checkTelegram verifies the bot's polling loop is active
func (h *Handler) checkTelegram() ComponentHealth {
	if !h.bot.IsRunning() {
		return ComponentHealth{
			Status: "unhealthy",
			Error:  "update polling loop not running",
		}
	}

	return ComponentHealth{Status: "healthy"}
}

// checkScheduler verifies the background refresh scheduler is running
func (h *Handler) checkScheduler() ComponentHealth {
	if !h.scheduler.IsRunning() {
		return ComponentHealth{
			Status: "unhealthy",
			Error:  "scheduler not running",
		}
	}

	return ComponentHealth{Status: "healthy"}
}

// checkWorker reports one worker's last-run outcome
func (h *Handler) checkWorker(worker workers.WorkerWithHealth) ComponentHealth {
	wh := worker.Health()

	if !wh.Enabled {
		return ComponentHealth{Status: "disabled"}
	}

	if wh.LastError != nil {
		return ComponentHealth{
			Status:       "unhealthy",
			ResponseTime: wh.AvgDuration.String(),
			Error:        wh.LastError.Error(),
		}
	}

	return ComponentHealth{
		Status:       "healthy",
		ResponseTime: wh.AvgDuration.String(),
	}
}
