// Package camera reads frames from a capture device, video file or stream
// through OpenCV.
package camera

import (
	"context"
	"image"
	"strconv"
	"strings"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/logger"
)

var (
	// ErrEndOfStream is returned by Read once a video file has no more frames.
	ErrEndOfStream = errors.NewStd("end of stream")

	// ErrCaptureLost is returned by Read once the capture is closed or every
	// reconnect attempt has failed. The capture cannot deliver frames again.
	ErrCaptureLost = errors.NewStd("capture lost")
)

const (
	reconnectAttempts = 5
	reconnectBase     = time.Second
	reconnectMax      = 30 * time.Second
)

// Capture is an open OpenCV video source. It is not safe for concurrent
// reads.
type Capture struct {
	settings conf.CameraSettings
	mu       sync.Mutex
	vc       *gocv.VideoCapture
	mat      gocv.Mat
	closed   bool
	log      logger.Logger
}

// Open opens the device named in settings. Device is a numeric index, a
// video file path or a stream URL.
func Open(settings *conf.CameraSettings) (*Capture, error) {
	vc, err := openDevice(settings)
	if err != nil {
		return nil, err
	}
	return &Capture{
		settings: *settings,
		vc:       vc,
		mat:      gocv.NewMat(),
		log:      GetLogger(),
	}, nil
}

func openDevice(settings *conf.CameraSettings) (*gocv.VideoCapture, error) {
	vc, err := gocv.OpenVideoCapture(settings.Device)
	if err != nil {
		return nil, errors.New(err).
			Component("camera").
			Category(errors.CategoryCamera).
			Context("device", settings.Device).
			Build()
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, errors.Newf("video capture %q is not opened", settings.Device).
			Component("camera").
			Category(errors.CategoryCamera).
			Context("device", settings.Device).
			Build()
	}

	if settings.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(settings.Width))
	}
	if settings.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(settings.Height))
	}
	return vc, nil
}

// Read returns the next frame. Files report ErrEndOfStream when exhausted.
// Read failures on devices and streams trigger a reconnect with exponential
// backoff; when that fails too, Read returns ErrCaptureLost from then on.
func (c *Capture) Read(ctx context.Context) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.vc == nil {
		return nil, ErrCaptureLost
	}

	if c.vc.Read(&c.mat) && !c.mat.Empty() {
		return c.toImage()
	}

	if isFile(c.settings.Device) {
		return nil, ErrEndOfStream
	}

	c.log.Warn("frame read failed, reconnecting", logger.String("device", c.settings.Device))
	if err := c.reconnect(ctx); err != nil {
		return nil, err
	}
	if !c.vc.Read(&c.mat) || c.mat.Empty() {
		return nil, errors.Newf("empty frame after reconnect").
			Component("camera").
			Category(errors.CategoryCamera).
			Context("device", c.settings.Device).
			Build()
	}
	return c.toImage()
}

func (c *Capture) toImage() (image.Image, error) {
	img, err := c.mat.ToImage()
	if err != nil {
		return nil, errors.New(err).
			Component("camera").
			Category(errors.CategoryImage).
			Context("device", c.settings.Device).
			Build()
	}
	return img, nil
}

func (c *Capture) reconnect(ctx context.Context) error {
	_ = c.vc.Close()
	c.vc = nil

	var lastErr error
	for attempt := 1; attempt <= reconnectAttempts; attempt++ {
		vc, err := openDevice(&c.settings)
		if err == nil {
			c.vc = vc
			c.log.Info("capture reconnected", logger.Int("attempt", attempt))
			return nil
		}
		lastErr = err

		delay := backoff(attempt)
		c.log.Warn("capture reconnect failed",
			logger.Int("attempt", attempt),
			logger.Duration("retry_in", delay),
			logger.Error(err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return errors.New(errors.Join(ErrCaptureLost, lastErr)).
		Component("camera").
		Category(errors.CategoryCamera).
		Context("device", c.settings.Device).
		Context("attempts", reconnectAttempts).
		Build()
}

// Close releases the capture and its frame buffer. It is safe to call more
// than once.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.vc != nil {
		if err := c.vc.Close(); err != nil {
			errs = append(errs, err)
		}
		c.vc = nil
	}
	if err := c.mat.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// backoff returns the delay before reconnect attempt n, doubling from
// reconnectBase up to reconnectMax.
func backoff(attempt int) time.Duration {
	d := reconnectBase << (attempt - 1)
	if d <= 0 || d > reconnectMax {
		return reconnectMax
	}
	return d
}

// isFile reports whether device names a local video file rather than a
// device index or a network stream.
func isFile(device string) bool {
	if _, err := strconv.Atoi(device); err == nil {
		return false
	}
	return !strings.Contains(device, "://")
}
