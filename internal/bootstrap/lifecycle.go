package bootstrap

import (
	"context"
	"sync"
	"time"

	"huddle/internal/adapters/telegram"
	"huddle/internal/api"
	"huddle/internal/live"
	"huddle/internal/workers"
	"huddle/pkg/errors"
	"huddle/pkg/logger"
)

// Lifecycle manages graceful startup and shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 30 * time.Second,
	}
}

// Shutdown performs coordinated cleanup of all components in the correct order:
// 1. No new HTTP requests accepted
// 2. Bot stops pulling updates (no new commands arrive)
// 3. Live sessions stop their polling loops
// 4. The refresh scheduler finishes its in-flight pass
// 5. Remaining goroutines drain
// 6. Errors and logs flushed last
func (l *Lifecycle) Shutdown(
	wg *sync.WaitGroup,
	httpServer *api.Server,
	bot *telegram.Bot,
	sessions *live.Manager,
	scheduler *workers.Scheduler,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	// ========================================
	// Step 1: Stop HTTP Server (5s timeout)
	// ========================================
	log.Info("[1/7] Stopping HTTP server...")
	httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 5*time.Second)
	defer httpCancel()

	if err := httpServer.Shutdown(httpCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	} else {
		log.Info("✓ HTTP server stopped")
	}

	// ========================================
	// Step 2: Stop Telegram Update Polling
	// ========================================
	log.Info("[2/7] Stopping Telegram bot...")
	bot.Stop()
	log.Info("✓ Telegram bot stopped")

	// ========================================
	// Step 3: Stop Live Sessions
	// ========================================
	log.Info("[3/7] Stopping live sessions...")
	if sessions != nil {
		stopped := sessions.Len()
		sessions.StopAll()
		log.Infow("✓ Live sessions stopped", "count", stopped)
	}

	// ========================================
	// Step 4: Stop Background Workers
	// ========================================
	log.Info("[4/7] Stopping background workers...")
	if scheduler != nil && scheduler.IsRunning() {
		if err := scheduler.Stop(); err != nil {
			log.Error("Workers shutdown failed", "error", err)
		} else {
			log.Info("✓ Workers stopped")
		}
	}

	// ========================================
	// Step 5: Wait for Remaining Goroutines
	// ========================================
	log.Info("[5/7] Waiting for goroutines...")
	l.waitForGoroutines(wg, 5*time.Second, log)

	// ========================================
	// Step 6: Flush Error Tracker
	// ========================================
	log.Info("[6/7] Flushing error tracker...")
	l.flushErrorTracker(errorTracker, shutdownCtx, log)

	// ========================================
	// Step 7: Sync Logs
	// ========================================
	log.Info("[7/7] Syncing logs...")
	if err := logger.Sync(); err != nil {
		log.Warn("Log sync completed with warnings")
	} else {
		log.Info("✓ Logs synced")
	}

	log.Info("✅ Graceful shutdown complete")
}

// waitForGoroutines waits for all goroutines with a timeout
func (l *Lifecycle) waitForGoroutines(wg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("✓ All goroutines finished")
	case <-time.After(timeout):
		log.Warn("⚠ Some goroutines did not finish within timeout", "timeout", timeout)
	}
}

// flushErrorTracker flushes the error tracker (Sentry, etc.)
func (l *Lifecycle) flushErrorTracker(tracker errors.Tracker, ctx context.Context, log *logger.Logger) {
	if tracker == nil {
		return
	}

	flushCtx, flushCancel := context.WithTimeout(ctx, 3*time.Second)
	defer flushCancel()

	if err := tracker.Flush(flushCtx); err != nil {
		log.Error("Error tracker flush failed", "error", err)
	} else {
		log.Info("✓ Error tracker flushed")
	}
}
