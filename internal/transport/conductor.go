package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/roach88/sanitizr/internal/record"
	"github.com/roach88/sanitizr/internal/visibility"
)

// Conductor is the one path records take to clients: every payload is
// sanitized for its audience before it is broadcast or written.
type Conductor struct {
	broadcaster Broadcaster
	metrics     *Metrics
	logger      *slog.Logger
	maxDepth    int
}

// ConductorOption configures a Conductor.
type ConductorOption func(*Conductor)

// WithMetrics records sanitize and emit counts.
func WithMetrics(m *Metrics) ConductorOption {
	return func(c *Conductor) {
		c.metrics = m
	}
}

// WithMaxDepth bounds complex-reference recursion while sanitizing.
// Zero keeps visibility.DefaultMaxDepth.
func WithMaxDepth(n int) ConductorOption {
	return func(c *Conductor) {
		c.maxDepth = n
	}
}

// WithLogger sets the conductor logger.
func WithLogger(logger *slog.Logger) ConductorOption {
	return func(c *Conductor) {
		c.logger = logger
	}
}

// NewConductor creates a conductor. A nil broadcaster is allowed; send
// operations then fail with ErrNoTransport while Respond* still work.
func NewConductor(b Broadcaster, opts ...ConductorOption) *Conductor {
	c := &Conductor{
		broadcaster: b,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PreProcess removes null fields from v in place, then returns a copy with
// hidden fields removed and concealed fields replaced for class.
func (c *Conductor) PreProcess(v record.Value, t *visibility.Type, class visibility.UserClass) (record.Value, error) {
	if class == "" {
		class = t.Info.DefaultUserClass()
	}
	payload, err := c.preProcess(v, t, class)
	result := resultOK
	if err != nil {
		result = resultError
	}
	c.metrics.RecordSanitize(t.Name, string(class), result)
	return payload, err
}

// preProcess handles record arrays one record at a time, so a record hidden
// for class becomes a null element.
func (c *Conductor) preProcess(v record.Value, t *visibility.Type, class visibility.UserClass) (record.Value, error) {
	list, ok := v.(record.List)
	if !ok || record.ShapeOf(list) != record.ShapeRecordArray {
		return c.preProcessRecord(v, t, class)
	}
	out := make(record.List, len(list))
	for i, elem := range list {
		payload, err := c.preProcessRecord(elem, t, class)
		if err != nil {
			return nil, err
		}
		out[i] = payload
	}
	return out, nil
}

func (c *Conductor) preProcessRecord(v record.Value, t *visibility.Type, class visibility.UserClass) (record.Value, error) {
	opts := visibility.Options{UserClass: class, MaxDepth: c.maxDepth}

	v, err := t.Helper.OmitNull(v, opts)
	if err != nil {
		return nil, err
	}
	cloning := opts
	cloning.Clone = true
	payload, err := t.Helper.OmitHidden(v, cloning)
	if err != nil {
		return nil, err
	}
	if record.IsNull(payload) {
		return payload, nil
	}
	return t.Helper.Conceal(payload, opts)
}

// EnvelopeKey returns the key a payload is wrapped under: the collection name
// for record arrays, the type name otherwise.
func EnvelopeKey(v record.Value, t *visibility.Type) string {
	if record.ShapeOf(v) == record.ShapeRecordArray {
		return t.CollectionName()
	}
	return t.Name
}

// Envelope sanitizes v for class and wraps it under its envelope key.
// Returns the key and the canonical JSON body.
func (c *Conductor) Envelope(v record.Value, t *visibility.Type, class visibility.UserClass) (string, []byte, error) {
	key := EnvelopeKey(v, t)
	payload, err := c.PreProcess(v, t, class)
	if err != nil {
		return key, nil, err
	}
	data, err := record.MarshalCanonical(record.Record{key: payload})
	if err != nil {
		return key, nil, fmt.Errorf("encode %s envelope: %w", key, err)
	}
	return key, data, nil
}

// SendTo broadcasts v, sanitized for class, on the channel named after its
// envelope key.
func (c *Conductor) SendTo(ctx context.Context, v record.Value, t *visibility.Type, class visibility.UserClass) error {
	if c.broadcaster == nil {
		return ErrNoTransport
	}
	key, data, err := c.Envelope(v, t, class)
	if err != nil {
		return err
	}
	return c.emit(ctx, key, data)
}

// SendToUsers broadcasts v sanitized for the user class.
func (c *Conductor) SendToUsers(ctx context.Context, v record.Value, t *visibility.Type) error {
	return c.SendTo(ctx, v, t, visibility.UserClassUser)
}

// SendToAdmins always fails: a shared channel cannot tell which subscribers
// are admins.
func (c *Conductor) SendToAdmins(ctx context.Context, v record.Value, t *visibility.Type) error {
	return fmt.Errorf("send %s to admins: %w", t.Name, ErrNotSupported)
}

// SendDeletion broadcasts {typeName: {id}} for a deleted record.
func (c *Conductor) SendDeletion(ctx context.Context, r record.Record, t *visibility.Type) error {
	if c.broadcaster == nil {
		return ErrNoTransport
	}
	id, ok := r.ID()
	if !ok {
		id = record.Null{}
	}
	data, err := record.MarshalCanonical(record.Record{
		t.Name: record.Record{record.IDField: id},
	})
	if err != nil {
		return fmt.Errorf("encode %s deletion: %w", t.Name, err)
	}
	return c.emit(ctx, t.Name, data)
}

func (c *Conductor) emit(ctx context.Context, channel string, data []byte) error {
	err := c.broadcaster.Emit(ctx, channel, data)
	switch {
	case err == nil:
		c.metrics.RecordEmit(channel, resultOK)
	case errors.Is(err, ErrNoSubscribers):
		c.metrics.RecordEmit(channel, resultNoSubscribers)
		c.logger.Debug("no subscribers", "channel", channel)
	default:
		c.metrics.RecordEmit(channel, resultError)
		c.logger.Warn("emit failed", "channel", channel, "error", err)
	}
	return err
}

// RespondTo writes v, sanitized for class, as a JSON response under its
// envelope key. Errors come from sanitizing only, and nothing has been written
// when one is returned.
func (c *Conductor) RespondTo(w http.ResponseWriter, v record.Value, t *visibility.Type, class visibility.UserClass) error {
	return c.RespondWithStatus(w, http.StatusOK, v, t, class)
}

// RespondWithStatus is RespondTo with an explicit status code.
func (c *Conductor) RespondWithStatus(w http.ResponseWriter, status int, v record.Value, t *visibility.Type, class visibility.UserClass) error {
	_, data, err := c.Envelope(v, t, class)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		c.logger.Debug("write response failed", "type", t.Name, "error", err)
	}
	return nil
}

// RespondToUser responds with v sanitized for the user class.
func (c *Conductor) RespondToUser(w http.ResponseWriter, v record.Value, t *visibility.Type) error {
	return c.RespondTo(w, v, t, visibility.UserClassUser)
}

// RespondToAdmin responds with v sanitized for the admin class.
func (c *Conductor) RespondToAdmin(w http.ResponseWriter, v record.Value, t *visibility.Type) error {
	return c.RespondTo(w, v, t, visibility.UserClassAdmin)
}
