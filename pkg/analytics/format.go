package analytics

import (
	"runtime"
	"time"

	"github.com/google/uuid"
)

// Library identification sent in every message context.
const (
	LibraryName = "rudderanalytics-go"
	Version     = "1.0.0"

	channel = "server"
)

// envelope is the wire shape of a single message.
type envelope struct {
	Type              MessageType `json:"type"`
	MessageID         string      `json:"messageId"`
	Channel           string      `json:"channel"`
	UserID            string      `json:"userId,omitempty"`
	AnonymousID       string      `json:"anonymousId,omitempty"`
	Event             string      `json:"event,omitempty"`
	Name              string      `json:"name,omitempty"`
	GroupID           string      `json:"groupId,omitempty"`
	PreviousID        string      `json:"previousId,omitempty"`
	Traits            Properties  `json:"traits,omitempty"`
	Properties        Properties  `json:"properties,omitempty"`
	Context           Properties  `json:"context"`
	Integrations      Properties  `json:"integrations,omitempty"`
	OriginalTimestamp time.Time   `json:"originalTimestamp"`
	SentAt            *time.Time  `json:"sentAt,omitempty"`
}

// batchEnvelope is the wire shape of a Batch.
type batchEnvelope struct {
	Batch             []envelope `json:"batch"`
	Context           Properties `json:"context"`
	Integrations      Properties `json:"integrations,omitempty"`
	OriginalTimestamp time.Time  `json:"originalTimestamp"`
	SentAt            time.Time  `json:"sentAt"`
}

// formatter turns validated messages into wire envelopes.
type formatter struct {
	now func() time.Time
}

// format returns the JSON-encodable envelope for msg. The message and its
// maps are copied, never modified.
func (f formatter) format(msg Message) any {
	msg = normalize(msg)
	sentAt := f.now().UTC()
	if b, ok := msg.(Batch); ok {
		return f.batch(b, sentAt)
	}
	env := f.single(msg.(BatchMessage), sentAt)
	env.SentAt = &sentAt
	return env
}

// single formats one non-batch message. SentAt is left for the caller.
func (f formatter) single(msg BatchMessage, sentAt time.Time) envelope {
	msg = normalize(msg).(BatchMessage)
	h := msg.header()
	env := envelope{
		Type:              msg.Type(),
		MessageID:         uuid.NewString(),
		Channel:           channel,
		UserID:            h.userID,
		AnonymousID:       h.anonymousID,
		Integrations:      copyProperties(h.integrations),
		OriginalTimestamp: timestampOr(h.originalTimestamp, sentAt),
	}

	ctx := defaultContext()
	switch m := msg.(type) {
	case Identify:
		env.Traits = copyProperties(m.Traits)
		if m.Traits != nil {
			ctx["traits"] = env.Traits
		}
	case Track:
		env.Event = m.Event
		env.Properties = copyProperties(m.Properties)
	case Page:
		env.Name = m.Name
		env.Properties = namedProperties(m.Properties, m.Name)
	case Screen:
		env.Name = m.Name
		env.Properties = namedProperties(m.Properties, m.Name)
	case Group:
		env.GroupID = m.GroupID
		env.Traits = copyProperties(m.Traits)
		if m.Traits != nil {
			ctx["traits"] = env.Traits
		}
	case Alias:
		env.PreviousID = m.PreviousID
		env.Traits = copyProperties(m.Traits)
	}
	env.Context = mergeInto(ctx, h.context)

	return env
}

// batch formats every member and wraps them with the send timestamp.
func (f formatter) batch(b Batch, sentAt time.Time) batchEnvelope {
	members := make([]envelope, 0, len(b.Messages))
	for _, m := range b.Messages {
		if normalize(m) == nil {
			continue
		}
		members = append(members, f.single(m, sentAt))
	}
	return batchEnvelope{
		Batch:             members,
		Context:           mergeInto(defaultContext(), b.Context),
		Integrations:      copyProperties(b.Integrations),
		OriginalTimestamp: timestampOr(b.OriginalTimestamp, sentAt),
		SentAt:            sentAt,
	}
}

// defaultContext returns the fields the client adds to every context.
// Its top-level keys are exactly the reserved keys.
func defaultContext() Properties {
	return Properties{
		"library": map[string]any{
			"name":    LibraryName,
			"version": Version,
		},
		"os": map[string]any{
			"name": runtime.GOOS,
		},
	}
}

// mergeInto copies the top-level entries of src into dst and returns dst.
func mergeInto(dst, src Properties) Properties {
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// copyProperties returns a shallow copy of p, or nil for nil.
func copyProperties(p Properties) Properties {
	if p == nil {
		return nil
	}
	return mergeInto(make(Properties, len(p)), p)
}

// namedProperties copies p and sets "name" when the caller did not.
func namedProperties(p Properties, name string) Properties {
	out := copyProperties(p)
	if name == "" {
		return out
	}
	if out == nil {
		out = Properties{}
	}
	if _, ok := out["name"]; !ok {
		out["name"] = name
	}
	return out
}

func timestampOr(ts, fallback time.Time) time.Time {
	if ts.IsZero() {
		return fallback
	}
	return ts.UTC()
}
