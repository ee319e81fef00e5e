// Package playback bridges the game to the remote playback device.
package playback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"songquiz/internal/core"
)

// Device error kinds reported by the browser player.
const (
	ErrorInitialization = "initialization_error"
	ErrorAuthentication = "authentication_error"
	ErrorAccount        = "account_error"
	ErrorPlayback       = "playback_error"
)

// Bridge resolves a readiness future once a device id is known and controls
// playback on that device. Play waits for readiness with bounded polling.
type Bridge struct {
	api          core.PlaybackAPI
	logger       *zap.Logger
	deviceName   string
	timeout      time.Duration
	pollInterval time.Duration

	once     sync.Once
	ready    chan struct{}
	mu       sync.RWMutex
	deviceID string
}

// NewBridge creates a bridge. With a deviceName it also polls for a Connect
// device of that name while waiting for the browser player.
func NewBridge(api core.PlaybackAPI, config *core.GameConfig, deviceName string, logger *zap.Logger) *Bridge {
	timeout := config.DeviceReadyTimeout
	if timeout <= 0 {
		timeout = core.DefaultDeviceReadyTimeout
	}
	pollInterval := config.DevicePollInterval
	if pollInterval <= 0 {
		pollInterval = core.DefaultDevicePollInterval
	}

	return &Bridge{
		api:          api,
		logger:       logger,
		deviceName:   deviceName,
		timeout:      timeout,
		pollInterval: pollInterval,
		ready:        make(chan struct{}),
	}
}

// Announce records the device id. The first announcement resolves the
// readiness future; later ones only replace the id.
func (b *Bridge) Announce(deviceID string) {
	if deviceID == "" {
		return
	}

	b.mu.Lock()
	previous := b.deviceID
	b.deviceID = deviceID
	b.mu.Unlock()

	b.once.Do(func() {
		close(b.ready)
	})

	if previous != deviceID {
		b.logger.Info("Playback device ready", zap.String("deviceID", deviceID))
	}
}

// Ready returns a channel that is closed once a device has been announced.
func (b *Bridge) Ready() <-chan struct{} {
	return b.ready
}

// IsReady reports whether a device id has been announced.
func (b *Bridge) IsReady() bool {
	select {
	case <-b.ready:
		return true
	default:
		return false
	}
}

func (b *Bridge) DeviceID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.deviceID
}

// AwaitDeviceReady polls until a device is ready or the timeout elapses.
func (b *Bridge) AwaitDeviceReady(ctx context.Context) error {
	if b.IsReady() {
		return nil
	}

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()
	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ready:
			return nil
		case <-ticker.C:
			if b.deviceName != "" {
				b.lookupDevice(ctx)
			}
			if b.IsReady() {
				return nil
			}
		case <-timer.C:
			b.logger.Warn("Playback device did not become ready", zap.Duration("timeout", b.timeout))
			return core.ErrDeviceNotReady
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Play starts uri on the ready device. It never panics; every failure is
// returned so the caller can decide how to surface it.
func (b *Bridge) Play(ctx context.Context, uri string) error {
	if err := b.AwaitDeviceReady(ctx); err != nil {
		return err
	}

	if err := b.api.Play(ctx, b.DeviceID(), uri); err != nil {
		b.logger.Warn("Playback request failed", zap.String("uri", uri), zap.Error(err))
		if core.IsSessionError(err) {
			return err
		}
		return fmt.Errorf("%w: %w", core.ErrPlaybackFailed, err)
	}

	return nil
}

// Stop pauses the device. Failures are logged and otherwise ignored.
func (b *Bridge) Stop(ctx context.Context) {
	if !b.IsReady() {
		return
	}
	if err := b.api.Pause(ctx, b.DeviceID()); err != nil {
		b.logger.Warn("Failed to pause playback", zap.Error(err))
	}
}

// ReportError handles an error event from the browser player. An
// authentication error means the token the player holds is no longer valid.
func (b *Bridge) ReportError(kind, message string) error {
	b.logger.Warn("Playback device error", zap.String("kind", kind), zap.String("message", message))

	switch kind {
	case ErrorAuthentication:
		return fmt.Errorf("player %s: %w", strings.ReplaceAll(kind, "_", " "), core.ErrSessionExpired)
	case ErrorInitialization, ErrorAccount, ErrorPlayback:
		return fmt.Errorf("player %s: %s: %w", strings.ReplaceAll(kind, "_", " "), message, core.ErrPlaybackFailed)
	default:
		return fmt.Errorf("unknown player error kind %q: %w", kind, core.ErrPlaybackFailed)
	}
}

func (b *Bridge) lookupDevice(ctx context.Context) {
	devices, err := b.api.Devices(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			b.logger.Debug("Device lookup failed", zap.Error(err))
		}
		return
	}

	for _, device := range devices {
		if strings.EqualFold(device.Name, b.deviceName) && device.ID != "" {
			b.Announce(device.ID)
			return
		}
	}
}
