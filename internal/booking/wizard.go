package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/AWS-JaeminJung/sauna-app/internal/calendar"
	"github.com/AWS-JaeminJung/sauna-app/internal/events"
	"github.com/AWS-JaeminJung/sauna-app/internal/models"
	"github.com/AWS-JaeminJung/sauna-app/internal/pricing"
	"github.com/AWS-JaeminJung/sauna-app/internal/saunaapi"
	"github.com/AWS-JaeminJung/sauna-app/internal/slots"
)

var (
	ErrNoSauna          = errors.New("no sauna selected")
	ErrNoDate           = errors.New("no date selected")
	ErrIncompleteRange  = errors.New("time range is incomplete")
	ErrMissingCustomer  = errors.New("customer details are missing")
	ErrWrongStep        = errors.New("action not allowed at this step")
	ErrSubmitInProgress = errors.New("submission already in progress")
	ErrUnknownSlot      = errors.New("unknown time slot")
	ErrSlotUnavailable  = errors.New("time slot is not available")
	ErrRangeGap         = errors.New("range would cross an unavailable slot")
	ErrSlotsOutdated    = errors.New("slots do not match the selected date")
)

// API is the part of the sauna service the wizard talks to.
type API interface {
	GetAvailability(ctx context.Context, saunaID, date string) ([]models.TimeSlot, error)
	CreateBooking(ctx context.Context, req models.BookingCreate, idempotencyKey string) (*models.Booking, error)
}

// Publisher receives wizard events.
type Publisher interface {
	PublishJSON(eventType string, payload any) error
}

// SubmittedEvent is published after a booking is created.
type SubmittedEvent struct {
	BookingID string  `json:"booking_id"`
	SaunaID   string  `json:"sauna_id"`
	Date      string  `json:"date"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
	Total     float64 `json:"total"`
}

// FailedEvent is published after a rejected submission.
type FailedEvent struct {
	SaunaID string `json:"sauna_id"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

// SlotsEvent is published when a slot fetch settles.
type SlotsEvent struct {
	SaunaID    string `json:"sauna_id"`
	Date       string `json:"date"`
	Generation uint64 `json:"generation"`
	Count      int    `json:"count"`
	Error      string `json:"error,omitempty"`
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithPreselectedSauna starts the wizard at the date/time step.
func WithPreselectedSauna(s *models.Sauna) Option {
	return func(w *Wizard) {
		if s != nil {
			w.draft.Sauna = s
			w.step = StepSelectDateTime
		}
	}
}

// WithClock overrides the clock used for past-date checks.
func WithClock(now func() time.Time) Option {
	return func(w *Wizard) { w.now = now }
}

// WithPublisher sets the event sink.
func WithPublisher(p Publisher) Option {
	return func(w *Wizard) { w.pub = p }
}

// WithLogger sets the wizard logger.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Wizard) { w.log = l.With().Str("component", "wizard").Logger() }
}

// WithIdempotencyKeys overrides the idempotency key generator.
func WithIdempotencyKeys(gen func() string) Option {
	return func(w *Wizard) { w.newKey = gen }
}

// View is a read-only snapshot of the wizard.
type View struct {
	Step         Step
	Draft        Draft
	Slots        []models.TimeSlot
	SlotsError   string
	Loading      bool
	Submitting   bool
	LastError    string
	Booking      *models.Booking
	Hours        float64
	Total        float64
	Year         int
	Month        time.Month
	CanPrevMonth bool
	Grid         [][]calendar.Cell
}

type slotKey struct {
	saunaID string
	date    string
}

// Wizard drives one booking from sauna choice to submission.
type Wizard struct {
	mu     sync.Mutex
	api    API
	fsm    *FSM
	cal    *calendar.Calendar
	pub    Publisher
	log    zerolog.Logger
	now    func() time.Time
	newKey func() string

	step  Step
	draft Draft

	slots    []models.TimeSlot
	slotsFor slotKey
	slotsErr string
	gen      uint64
	loading  bool

	submitting bool
	lastErr    string
	booking    *models.Booking
	idemKey    string
}

// New creates a wizard. Without a preselected sauna it starts at StepSelectSauna.
func New(api API, opts ...Option) *Wizard {
	w := &Wizard{
		api:    api,
		fsm:    NewFSM(),
		log:    zerolog.Nop(),
		now:    time.Now,
		newKey: uuid.NewString,
		step:   StepSelectSauna,
		draft:  Draft{GuestCount: 1},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.cal = calendar.New(w.now)
	return w
}

// Step returns the current step.
func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Draft returns a copy of the draft.
func (w *Wizard) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft.Clone()
}

// LastError returns the message of the last failed submission.
func (w *Wizard) LastError() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Booking returns the last created booking.
func (w *Wizard) Booking() *models.Booking {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.booking
}

// Snapshot returns a read-only view of the wizard state.
func (w *Wizard) Snapshot() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	year, month := w.cal.DisplayedMonth()
	hours, total := w.quote()
	return View{
		Step:         w.step,
		Draft:        w.draft.Clone(),
		Slots:        append([]models.TimeSlot(nil), w.slots...),
		SlotsError:   w.slotsErr,
		Loading:      w.loading,
		Submitting:   w.submitting,
		LastError:    w.lastErr,
		Booking:      w.booking,
		Hours:        hours,
		Total:        total,
		Year:         year,
		Month:        month,
		CanPrevMonth: w.cal.CanGoPrev(),
		Grid:         w.cal.Grid(),
	}
}

// Duration returns the selected length in hours.
func (w *Wizard) Duration() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return pricing.Duration(w.draft.Range)
}

// Total returns the price of the selected range.
func (w *Wizard) Total() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, total := w.quote()
	return total
}

func (w *Wizard) quote() (float64, float64) {
	rate := 0.0
	if w.draft.Sauna != nil {
		rate = w.draft.Sauna.HourlyRate
	}
	return pricing.Quote(w.draft.Range, rate)
}

// ChooseSauna selects a sauna and moves to the date/time step. Date, range
// and slots are cleared; guest count resets to 1.
func (w *Wizard) ChooseSauna(s *models.Sauna) error {
	if s == nil {
		return ErrNoSauna
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return ErrSubmitInProgress
	}
	if w.step != StepSelectSauna && !w.fsm.CanTransition(w.step, StepSelectSauna) {
		return fmt.Errorf("%w: %s", ErrWrongStep, w.step)
	}

	w.draft.Sauna = s
	w.draft.Date = time.Time{}
	w.draft.Range = slots.Range{}
	w.draft.GuestCount = 1
	w.cal.ClearSelection()
	w.clearSlots()
	w.booking = nil
	w.lastErr = ""
	w.step = StepSelectDateTime
	return nil
}

// Change returns to sauna selection without clearing the draft.
func (w *Wizard) Change() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return ErrSubmitInProgress
	}
	if w.step == StepSelectSauna {
		return nil
	}
	if !w.fsm.CanTransition(w.step, StepSelectSauna) {
		return fmt.Errorf("%w: %s", ErrWrongStep, w.step)
	}
	w.step = StepSelectSauna
	return nil
}

// NextMonth advances the displayed calendar month.
func (w *Wizard) NextMonth() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cal.NextMonth()
}

// PrevMonth moves the displayed calendar month back unless it is the current one.
func (w *Wizard) PrevMonth() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cal.CanGoPrev() {
		w.cal.PrevMonth()
	}
}

// SelectDate picks a day, clears the range and loads its slots once.
func (w *Wizard) SelectDate(ctx context.Context, date time.Time) error {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return ErrSubmitInProgress
	}
	if w.step != StepSelectDateTime {
		w.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWrongStep, w.step)
	}
	if w.draft.Sauna == nil {
		w.mu.Unlock()
		return ErrNoSauna
	}
	if err := w.cal.SelectDate(date); err != nil {
		w.mu.Unlock()
		return err
	}

	w.draft.Date = w.cal.Selected()
	w.draft.Range = slots.Range{}
	key := slotKey{saunaID: w.draft.Sauna.ID, date: w.draft.DateKey()}
	w.mu.Unlock()

	return w.fetch(ctx, key)
}

// RefreshSlots reloads the slots of the selected day.
func (w *Wizard) RefreshSlots(ctx context.Context) error {
	w.mu.Lock()
	if w.draft.Sauna == nil {
		w.mu.Unlock()
		return ErrNoSauna
	}
	if w.draft.Date.IsZero() {
		w.mu.Unlock()
		return ErrNoDate
	}
	key := slotKey{saunaID: w.draft.Sauna.ID, date: w.draft.DateKey()}
	w.mu.Unlock()

	return w.fetch(ctx, key)
}

func (w *Wizard) fetch(ctx context.Context, key slotKey) error {
	w.mu.Lock()
	w.gen++
	gen := w.gen
	w.loading = true
	w.mu.Unlock()

	list, err := w.api.GetAvailability(ctx, key.saunaID, key.date)

	w.mu.Lock()
	if gen != w.gen {
		w.mu.Unlock()
		w.log.Debug().Uint64("generation", gen).Str("sauna_id", key.saunaID).Str("date", key.date).Msg("discarding stale slots")
		w.publish(events.SlotsStaleDiscarded, SlotsEvent{SaunaID: key.saunaID, Date: key.date, Generation: gen, Count: len(list)})
		return nil
	}
	w.loading = false

	if err != nil {
		msg := saunaapi.Message(err)
		w.slotsErr = msg
		w.mu.Unlock()
		w.log.Warn().Err(err).Str("sauna_id", key.saunaID).Str("date", key.date).Msg("failed to load slots")
		w.publish(events.SlotsFailed, SlotsEvent{SaunaID: key.saunaID, Date: key.date, Generation: gen, Error: msg})
		return fmt.Errorf("load slots: %w", err)
	}

	w.slots = list
	w.slotsFor = key
	w.slotsErr = ""
	w.mu.Unlock()

	w.publish(events.SlotsLoaded, SlotsEvent{SaunaID: key.saunaID, Date: key.date, Generation: gen, Count: len(list)})
	return nil
}

// clearSlots drops slot data and invalidates fetches in flight.
func (w *Wizard) clearSlots() {
	w.gen++
	w.slots = nil
	w.slotsFor = slotKey{}
	w.slotsErr = ""
	w.loading = false
}

// ClickSlot applies a click on a slot to the selected range.
func (w *Wizard) ClickSlot(t string) (slots.Range, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return w.draft.Range, ErrSubmitInProgress
	}
	if w.step != StepSelectDateTime {
		return w.draft.Range, fmt.Errorf("%w: %s", ErrWrongStep, w.step)
	}
	if w.draft.Date.IsZero() {
		return w.draft.Range, ErrNoDate
	}
	if w.slotsFor != (slotKey{saunaID: w.draft.SaunaID(), date: w.draft.DateKey()}) {
		return w.draft.Range, ErrSlotsOutdated
	}

	idx := slots.IndexOf(w.slots, t)
	if idx < 0 {
		return w.draft.Range, fmt.Errorf("%w: %s", ErrUnknownSlot, t)
	}
	if !w.slots[idx].Available {
		return w.draft.Range, fmt.Errorf("%w: %s", ErrSlotUnavailable, t)
	}
	if !slots.CanExtendTo(w.slots, w.draft.Range, t) {
		return w.draft.Range, ErrRangeGap
	}

	w.draft.Range = slots.Select(w.slots, w.draft.Range, t)
	return w.draft.Range, nil
}

// SetGuestCount sets the party size clamped to [1, capacity].
func (w *Wizard) SetGuestCount(n int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return w.draft.GuestCount, ErrSubmitInProgress
	}
	if n < 1 {
		n = 1
	}
	if w.draft.Sauna != nil && w.draft.Sauna.Capacity > 0 && n > w.draft.Sauna.Capacity {
		n = w.draft.Sauna.Capacity
	}
	w.draft.GuestCount = n
	return n, nil
}

// IncGuests adds one guest.
func (w *Wizard) IncGuests() (int, error) {
	return w.SetGuestCount(w.Draft().GuestCount + 1)
}

// DecGuests removes one guest.
func (w *Wizard) DecGuests() (int, error) {
	return w.SetGuestCount(w.Draft().GuestCount - 1)
}

// SetCustomer stores the contact details.
func (w *Wizard) SetCustomer(name, phone, email string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return ErrSubmitInProgress
	}
	w.draft.Customer = Customer{
		Name:  strings.TrimSpace(name),
		Phone: strings.TrimSpace(phone),
		Email: strings.TrimSpace(email),
	}
	return nil
}

// SetNotes stores the optional request notes.
func (w *Wizard) SetNotes(notes string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return ErrSubmitInProgress
	}
	w.draft.Notes = strings.TrimSpace(notes)
	return nil
}

// Next moves forward one step if the current step is satisfied.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return ErrSubmitInProgress
	}

	var to Step
	switch w.step {
	case StepSelectSauna:
		if w.draft.Sauna == nil {
			return ErrNoSauna
		}
		w.draft.Date = time.Time{}
		w.draft.Range = slots.Range{}
		w.cal.ClearSelection()
		w.clearSlots()
		to = StepSelectDateTime
	case StepSelectDateTime:
		if w.draft.Sauna == nil {
			return ErrNoSauna
		}
		if !w.draft.Range.Complete() {
			return ErrIncompleteRange
		}
		if !slots.Spans(w.slots, w.draft.Range) {
			return ErrRangeGap
		}
		to = StepEnterInfo
	case StepEnterInfo:
		if missing := w.draft.Customer.Missing(); len(missing) > 0 {
			return fmt.Errorf("%w: %s", ErrMissingCustomer, strings.Join(missing, ", "))
		}
		to = StepConfirm
	default:
		return fmt.Errorf("%w: %s", ErrWrongStep, w.step)
	}

	if !w.fsm.CanTransition(w.step, to) {
		return fmt.Errorf("%w: %s -> %s", ErrWrongStep, w.step, to)
	}
	if to == StepConfirm {
		w.idemKey = w.newKey()
	}
	w.step = to
	return nil
}

// Back returns to the immediately preceding step. Nothing is cleared.
func (w *Wizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return ErrSubmitInProgress
	}
	prev, ok := Previous(w.step)
	if !ok || !w.fsm.CanTransition(w.step, prev) {
		return fmt.Errorf("%w: %s", ErrWrongStep, w.step)
	}
	w.step = prev
	return nil
}

// Submit sends the draft to the booking service. Only one submission may be
// in flight; a failure keeps the draft unchanged for a retry.
func (w *Wizard) Submit(ctx context.Context) (*models.Booking, error) {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	if w.step != StepConfirm && w.step != StepFailed {
		step := w.step
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrWrongStep, step)
	}
	if w.idemKey == "" {
		w.idemKey = w.newKey()
	}
	w.submitting = true
	req := w.draft.CreateRequest()
	key := w.idemKey
	_, total := w.quote()
	w.mu.Unlock()

	booking, err := w.api.CreateBooking(ctx, req, key)

	w.mu.Lock()
	w.submitting = false
	if err != nil {
		w.step = StepFailed
		w.lastErr = saunaapi.Message(err)
		msg := w.lastErr
		w.mu.Unlock()

		w.log.Warn().Err(err).Str("sauna_id", req.SaunaID).Str("date", req.BookingDate).Msg("booking submission failed")
		w.publish(events.BookingFailed, FailedEvent{SaunaID: req.SaunaID, Date: req.BookingDate, Message: msg})
		return nil, fmt.Errorf("submit booking: %w", err)
	}

	w.step = StepSubmitted
	w.booking = booking
	w.lastErr = ""
	w.idemKey = ""
	w.draft = Draft{GuestCount: 1}
	w.cal.ClearSelection()
	w.clearSlots()
	w.mu.Unlock()

	if booking != nil && booking.TotalPrice > 0 {
		total = booking.TotalPrice
	}
	id := ""
	if booking != nil {
		id = booking.ID
	}
	w.log.Info().Str("booking_id", id).Str("sauna_id", req.SaunaID).Msg("booking submitted")
	w.publish(events.BookingSubmitted, SubmittedEvent{
		BookingID: id,
		SaunaID:   req.SaunaID,
		Date:      req.BookingDate,
		Start:     req.StartTime,
		End:       req.EndTime,
		Total:     total,
	})
	return booking, nil
}

// Reset abandons the wizard and starts over at sauna selection.
func (w *Wizard) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submitting {
		return ErrSubmitInProgress
	}
	w.step = StepSelectSauna
	w.draft = Draft{GuestCount: 1}
	w.cal.ClearSelection()
	w.clearSlots()
	w.lastErr = ""
	w.booking = nil
	w.idemKey = ""
	return nil
}

func (w *Wizard) publish(eventType string, payload any) {
	if w.pub == nil {
		return
	}
	if err := w.pub.PublishJSON(eventType, payload); err != nil {
		w.log.Warn().Err(err).Str("event", eventType).Msg("event handler failed")
	}
}
