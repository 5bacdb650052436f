package bot

import (
	"encoding/json"

	"github.com/AWS-JaeminJung/sauna-app/internal/booking"
	"github.com/AWS-JaeminJung/sauna-app/internal/events"
	"github.com/AWS-JaeminJung/sauna-app/internal/metrics"
)

// subscribe wires wizard events to metrics and logs.
func (b *Bot) subscribe() {
	b.bus.Subscribe(events.SlotsLoaded, func(events.Event) error {
		metrics.IncSlotFetch("ok")
		return nil
	})
	b.bus.Subscribe(events.SlotsFailed, func(events.Event) error {
		metrics.IncSlotFetch("error")
		return nil
	})
	b.bus.Subscribe(events.SlotsStaleDiscarded, func(events.Event) error {
		metrics.IncSlotFetch("stale")
		return nil
	})

	b.bus.Subscribe(events.BookingSubmitted, func(e events.Event) error {
		metrics.IncBookingSubmitted("ok")
		var ev booking.SubmittedEvent
		if err := e.Decode(&ev); err != nil {
			return err
		}
		b.logger.Info().
			Str("booking_id", ev.BookingID).
			Str("sauna_id", ev.SaunaID).
			Str("date", ev.Date).
			Str("start", ev.Start).
			Str("end", ev.End).
			Float64("total", ev.Total).
			Msg("booking created")
		return nil
	})
	b.bus.Subscribe(events.BookingFailed, func(e events.Event) error {
		metrics.IncBookingSubmitted("error")
		var ev booking.FailedEvent
		if err := e.Decode(&ev); err != nil {
			return err
		}
		b.logger.Warn().Str("sauna_id", ev.SaunaID).Str("date", ev.Date).Str("reason", ev.Message).Msg("booking rejected")
		return nil
	})
	b.bus.Subscribe(events.BookingCancelled, func(e events.Event) error {
		metrics.IncBookingCancelled()
		return nil
	})
}

func jsonString(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
