// Package notify sends push notifications for recognized plates through
// shoutrrr service URLs (Telegram, ntfy, Discord, SMTP and others).
package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tphakala/platewatch/internal/conf"
	"github.com/tphakala/platewatch/internal/errors"
	"github.com/tphakala/platewatch/internal/logger"
	"github.com/tphakala/platewatch/internal/mqtt"
)

// sender is the part of the shoutrrr router the notifier uses.
type sender interface {
	Send(message string, params *stypes.Params) []error
}

// Notifier turns plate events into push notifications.
type Notifier struct {
	sender           sender
	unregisteredOnly bool
	log              logger.Logger
}

var (
	serviceLogger logger.Logger
	loggerOnce    sync.Once
)

// GetLogger returns the notify package logger.
func GetLogger() logger.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logger.Global().Module("notify")
	})
	return serviceLogger
}

// New builds a notifier for the configured service URLs. The URLs are
// validated by shoutrrr here, so a bad URL fails at startup.
func New(settings *conf.NotifySettings) (*Notifier, error) {
	if len(settings.URLs) == 0 {
		return nil, errors.Newf("no notification URLs configured").
			Component("notify").
			Category(errors.CategoryConfiguration).
			Build()
	}

	router, err := shoutrrr.CreateSender(settings.URLs...)
	if err != nil {
		// The raw error can echo tokens embedded in the URL.
		return nil, errors.Newf("invalid notification URL: %s", scrubURLs(err.Error(), settings.URLs)).
			Component("notify").
			Category(errors.CategoryConfiguration).
			Context("url_count", len(settings.URLs)).
			Build()
	}
	if settings.Timeout > 0 {
		router.Timeout = settings.Timeout
	}
	router.SetLogger(log.New(io.Discard, "", 0))

	return newNotifier(router, settings.UnregisteredOnly), nil
}

func newNotifier(s sender, unregisteredOnly bool) *Notifier {
	return &Notifier{sender: s, unregisteredOnly: unregisteredOnly, log: GetLogger()}
}

// PublishPlate sends a notification for ev. Registered plates are skipped
// when the notifier only reports unregistered ones. It returns when the
// send completes or ctx is done, whichever comes first.
func (n *Notifier) PublishPlate(ctx context.Context, ev mqtt.PlateEvent) error {
	if n.unregisteredOnly && ev.Registered {
		return nil
	}

	title, body := format(ev)
	params := stypes.Params{}
	params.SetTitle(title)

	done := make(chan []error, 1)
	go func() {
		done <- n.sender.Send(body, &params)
	}()

	select {
	case errs := <-done:
		if err := firstError(errs); err != nil {
			return errors.New(err).
				Component("notify").
				Category(errors.CategoryNetwork).
				Context("plate", ev.Plate).
				Build()
		}
		n.log.Debug("notification sent", logger.String("plate", ev.Plate))
		return nil
	case <-ctx.Done():
		return errors.New(ctx.Err()).
			Component("notify").
			Category(errors.CategoryCancellation).
			Context("plate", ev.Plate).
			Build()
	}
}

// format returns the title and body for ev.
func format(ev mqtt.PlateEvent) (title, body string) {
	ts := ev.Timestamp.Format("2006-01-02 15:04:05")

	var b strings.Builder
	if !ev.Registered || ev.Vehicle == nil {
		title = "Placa no registrada: " + ev.Plate
		fmt.Fprintf(&b, "La placa %s no se encontró en la base de datos.\n", ev.Plate)
	} else {
		v := ev.Vehicle
		title = "Placa registrada: " + ev.Plate
		fmt.Fprintf(&b, "Propietario: %s\n", v.OwnerName)
		fmt.Fprintf(&b, "Vehículo: %s %s (%d)\n", v.Brand, v.Model, v.Year)
		if v.OwnerPhone != "" {
			fmt.Fprintf(&b, "Teléfono: %s\n", v.OwnerPhone)
		}
	}
	fmt.Fprintf(&b, "Confianza OCR: %.0f%%\n", ev.OCRConfidence*100)
	if ev.Source != "" {
		fmt.Fprintf(&b, "Cámara: %s\n", ev.Source)
	}
	fmt.Fprintf(&b, "Hora: %s", ts)
	return title, b.String()
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// scrubURLs replaces any configured URL found in msg.
func scrubURLs(msg string, urls []string) string {
	for _, u := range urls {
		if u != "" {
			msg = strings.ReplaceAll(msg, u, "[redacted-url]")
		}
	}
	return msg
}
