// Package composer holds the in-progress order of one operator session:
// medicine and service lines bounded by the last known stock, a running
// total, and the single submission to the order sink.
package composer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/clinic-orders/internal/catalog"
)

const DefaultSubmitTimeout = 20 * time.Second

type Kind string

const (
	KindMedicine Kind = "medicine"
	KindService  Kind = "service"
)

// LineKey identifies a line: one per medicine id, one per service id.
type LineKey struct {
	Kind   Kind
	ItemID string
}

type Line struct {
	Kind      Kind
	ItemID    string
	Name      string
	Variant   string
	UnitPrice int64
	Quantity  int
	// StockBound is the medicine stock captured when the line was selected.
	StockBound int
}

func (l Line) Key() LineKey { return LineKey{Kind: l.Kind, ItemID: l.ItemID} }

func (l Line) Subtotal() int64 { return l.UnitPrice * int64(l.Quantity) }

func (l Line) validQuantity() bool {
	if l.Kind == KindService {
		return l.Quantity == 1
	}
	return l.Quantity >= 1 && l.Quantity <= l.StockBound
}

type SubmissionLine struct {
	ItemID    string
	Kind      Kind
	Variant   string
	Quantity  int
	UnitPrice int64
}

// Submission is the payload handed to the Sink.
// ID stays stable until the composition changes, so a retry of an unchanged
// composition can be deduplicated by the sink.
type Submission struct {
	ID          string
	PatientName string
	Lines       []SubmissionLine
}

type Commit struct {
	OrderID string
	Total   int64
}

// Sink commits a finished order atomically. Rejections must be returned as
// *SubmissionConflict; any other error is treated as a transport failure.
type Sink interface {
	Commit(ctx context.Context, s Submission) (Commit, error)
}

type Receipt struct {
	OrderID     string
	PatientName string
	Lines       []Line
	Total       int64
}

type Option func(*Composer)

func WithSubmitTimeout(d time.Duration) Option {
	return func(c *Composer) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Composer) { c.log = l }
}

func WithIDGenerator(fn func() string) Option {
	return func(c *Composer) {
		if fn != nil {
			c.newID = fn
		}
	}
}

type Composer struct {
	mu sync.Mutex

	source catalog.Source
	sink   Sink
	snap   *catalog.Snapshot

	patient      string
	lines        []Line
	submissionID string
	inFlight     bool

	timeout time.Duration
	log     zerolog.Logger
	newID   func() string
}

// New fetches the initial catalog snapshot and returns an empty composition.
func New(ctx context.Context, source catalog.Source, sink Sink, opts ...Option) (*Composer, error) {
	c := &Composer{
		source:  source,
		sink:    sink,
		timeout: DefaultSubmitTimeout,
		log:     zerolog.Nop(),
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(c)
	}
	snap, err := catalog.Fetch(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	c.snap = snap
	c.submissionID = c.newID()
	return c, nil
}

// --- queries ---

func (c *Composer) Snapshot() *catalog.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

func (c *Composer) PatientName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.patient
}

// Lines returns the current lines in insertion order.
func (c *Composer) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Line(nil), c.lines...)
}

func (c *Composer) Line(key LineKey) (Line, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(key); i >= 0 {
		return c.lines[i], true
	}
	return Line{}, false
}

// Total is recomputed from the current lines on every call.
func (c *Composer) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return totalOf(c.lines)
}

func (c *Composer) SubmissionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submissionID
}

func (c *Composer) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// --- mutations ---

func (c *Composer) SetPatientName(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrSubmitInFlight
	}
	n := NormalizePatientName(name)
	if n != c.patient {
		c.patient = n
		c.touch()
	}
	return nil
}

// ToggleMedicine selects a medicine with quantity 1, or deselects it when it
// is already selected. Selecting an out-of-stock medicine is rejected.
func (c *Composer) ToggleMedicine(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrSubmitInFlight
	}
	m, ok := c.snap.Medicine(id)
	if !ok {
		return fmt.Errorf("medicine %s: %w", id, ErrUnknownItem)
	}
	key := LineKey{Kind: KindMedicine, ItemID: id}
	if i := c.indexOf(key); i >= 0 {
		c.removeAt(i)
		c.touch()
		return nil
	}
	if m.Stock <= 0 {
		return &SelectionRejected{ItemID: id, Reason: ReasonOutOfStock}
	}
	c.lines = append(c.lines, Line{
		Kind:       KindMedicine,
		ItemID:     id,
		Name:       m.Name,
		UnitPrice:  m.UnitPrice,
		Quantity:   1,
		StockBound: m.Stock,
	})
	c.touch()
	return nil
}

// SetMedicineQuantity sets the requested quantity of a selected medicine.
// Quantities above the stock bound are clamped. Quantities below 1 are kept
// as an invalid line and reported by Submit.
func (c *Composer) SetMedicineQuantity(id string, requested int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setQuantity(id, requested)
}

// SetMedicineQuantityText is SetMedicineQuantity for raw operator input.
// Non-numeric input counts as an invalid quantity.
func (c *Composer) SetMedicineQuantityText(id, raw string) error {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		n = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setQuantity(id, n)
}

func (c *Composer) setQuantity(id string, requested int) error {
	if c.inFlight {
		return ErrSubmitInFlight
	}
	i := c.indexOf(LineKey{Kind: KindMedicine, ItemID: id})
	if i < 0 {
		return nil
	}
	l := &c.lines[i]
	var rejected error
	switch {
	case requested < 1:
		requested = 0
	case requested > l.StockBound:
		requested = l.StockBound
		rejected = &SelectionRejected{ItemID: id, Reason: ReasonStockBound, Bound: l.StockBound}
	}
	if l.Quantity != requested {
		l.Quantity = requested
		c.touch()
	}
	return rejected
}

// IncrementMedicineQuantity adds step (at least 1) and clamps at the stock bound.
func (c *Composer) IncrementMedicineQuantity(id string, step int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrSubmitInFlight
	}
	i := c.indexOf(LineKey{Kind: KindMedicine, ItemID: id})
	if i < 0 {
		return nil
	}
	if step < 1 {
		step = 1
	}
	l := &c.lines[i]
	var (
		q        int
		rejected error
	)
	if step > l.StockBound-l.Quantity {
		q = l.StockBound
		rejected = &SelectionRejected{ItemID: id, Reason: ReasonStockBound, Bound: l.StockBound}
	} else {
		q = l.Quantity + step
	}
	if q != l.Quantity {
		l.Quantity = q
		c.touch()
	}
	return rejected
}

// DecrementMedicineQuantity removes one unit; the line is dropped below 1.
func (c *Composer) DecrementMedicineQuantity(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrSubmitInFlight
	}
	i := c.indexOf(LineKey{Kind: KindMedicine, ItemID: id})
	if i < 0 {
		return nil
	}
	if c.lines[i].Quantity-1 < 1 {
		c.removeAt(i)
	} else {
		c.lines[i].Quantity--
	}
	c.touch()
	return nil
}

// SelectServiceVariant puts the chosen variant in place of any line already
// held for the service. Selecting the held variant again changes nothing.
func (c *Composer) SelectServiceVariant(serviceID, label string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrSubmitInFlight
	}
	svc, ok := c.snap.Service(serviceID)
	if !ok {
		return fmt.Errorf("service %s: %w", serviceID, ErrUnknownItem)
	}
	v, ok := svc.Variant(label)
	if !ok {
		return fmt.Errorf("service %s variant %q: %w", serviceID, label, ErrUnknownItem)
	}
	line := Line{
		Kind:      KindService,
		ItemID:    serviceID,
		Name:      fmt.Sprintf("%s (%s)", svc.Name, v.Label),
		Variant:   v.Label,
		UnitPrice: v.Price,
		Quantity:  1,
	}
	if i := c.indexOf(line.Key()); i >= 0 {
		if c.lines[i].Variant == label {
			return nil
		}
		c.lines[i] = line
	} else {
		c.lines = append(c.lines, line)
	}
	c.touch()
	return nil
}

// RemoveLine drops a line of either kind. Missing keys are ignored.
func (c *Composer) RemoveLine(key LineKey) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrSubmitInFlight
	}
	if i := c.indexOf(key); i >= 0 {
		c.removeAt(i)
		c.touch()
	}
	return nil
}

// Clear empties the composition without submitting it.
func (c *Composer) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return ErrSubmitInFlight
	}
	c.lines = nil
	c.patient = ""
	c.touch()
	return nil
}

// --- submission ---

// Submit validates the composition and commits it through the sink.
// On success the composition is cleared and the catalog refreshed; on any
// failure the composition is left as it was.
func (c *Composer) Submit(ctx context.Context) (Receipt, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return Receipt{}, ErrSubmitInFlight
	}
	if err := c.validate(); err != nil {
		c.mu.Unlock()
		return Receipt{}, err
	}
	sub := c.submission()
	receipt := Receipt{
		PatientName: c.patient,
		Lines:       append([]Line(nil), c.lines...),
		Total:       totalOf(c.lines),
	}
	c.inFlight = true
	c.mu.Unlock()

	c.log.Debug().
		Str("submission_id", sub.ID).
		Int("lines", len(sub.Lines)).
		Int64("total", receipt.Total).
		Msg("submitting order")

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	res, err := c.sink.Commit(cctx, sub)
	cancel()
	if err == nil && res.OrderID == "" {
		err = errors.New("sink returned an empty order id")
	}

	c.mu.Lock()
	c.inFlight = false
	if err != nil {
		c.mu.Unlock()
		failure := classify(err)
		c.log.Warn().Err(failure).Str("submission_id", sub.ID).Msg("submission failed")
		return Receipt{}, failure
	}
	c.lines = nil
	c.patient = ""
	c.touch()
	c.mu.Unlock()

	receipt.OrderID = res.OrderID
	if res.Total > 0 {
		receipt.Total = res.Total
	}
	if _, err := c.Refresh(ctx); err != nil {
		c.log.Warn().Err(err).Msg("catalog refresh after commit failed")
	}
	return receipt, nil
}

func classify(err error) error {
	var conflict *SubmissionConflict
	if errors.As(err, &conflict) {
		return conflict
	}
	return &TransportFailure{
		Err:     err,
		Timeout: errors.Is(err, context.DeadlineExceeded),
	}
}

// Refresh replaces the catalog snapshot and prunes lines that no longer
// refer to an existing medicine, service or variant. Stock bounds of kept
// lines stay as captured at selection.
// It is refused while a submission is in flight.
func (c *Composer) Refresh(ctx context.Context) ([]LineKey, error) {
	if c.InFlight() {
		return nil, ErrSubmitInFlight
	}
	snap, err := catalog.Fetch(ctx, c.source)
	if err != nil {
		return nil, fmt.Errorf("refresh catalog: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight {
		return nil, ErrSubmitInFlight
	}
	c.snap = snap
	var pruned []LineKey
	kept := c.lines[:0]
	for _, l := range c.lines {
		if c.stillListed(l) {
			kept = append(kept, l)
			continue
		}
		pruned = append(pruned, l.Key())
	}
	c.lines = kept
	if len(pruned) > 0 {
		c.touch()
		c.log.Info().Int("pruned", len(pruned)).Msg("dropped lines missing from catalog")
	}
	return pruned, nil
}

func (c *Composer) stillListed(l Line) bool {
	switch l.Kind {
	case KindMedicine:
		_, ok := c.snap.Medicine(l.ItemID)
		return ok
	case KindService:
		svc, ok := c.snap.Service(l.ItemID)
		if !ok {
			return false
		}
		_, ok = svc.Variant(l.Variant)
		return ok
	}
	return false
}

func (c *Composer) validate() error {
	var problems []string
	if strings.TrimSpace(c.patient) == "" {
		problems = append(problems, "patient name is required")
	}
	if len(c.lines) == 0 {
		problems = append(problems, "no items selected")
	}
	for _, l := range c.lines {
		if !l.validQuantity() {
			problems = append(problems, fmt.Sprintf("%s: quantity must be between 1 and %d", l.Name, l.StockBound))
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func (c *Composer) submission() Submission {
	lines := make([]SubmissionLine, 0, len(c.lines))
	for _, l := range c.lines {
		lines = append(lines, SubmissionLine{
			ItemID:    l.ItemID,
			Kind:      l.Kind,
			Variant:   l.Variant,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return Submission{ID: c.submissionID, PatientName: c.patient, Lines: lines}
}

func (c *Composer) indexOf(key LineKey) int {
	for i, l := range c.lines {
		if l.Kind == key.Kind && l.ItemID == key.ItemID {
			return i
		}
	}
	return -1
}

func (c *Composer) removeAt(i int) {
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

// touch is called after every change; a changed composition is a new submission.
func (c *Composer) touch() {
	c.submissionID = c.newID()
}

func totalOf(lines []Line) int64 {
	var t int64
	for _, l := range lines {
		t += l.Subtotal()
	}
	return t
}

// NormalizePatientName collapses whitespace and capitalises each word,
// e.g. "  aliyeva   NODIRA " -> "Aliyeva Nodira".
func NormalizePatientName(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
