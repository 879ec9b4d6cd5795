package analytics

import "time"

// MessageType tags the variant of a Message.
type MessageType string

// Message types accepted by the data plane.
const (
	TypeIdentify MessageType = "identify"
	TypeTrack    MessageType = "track"
	TypePage     MessageType = "page"
	TypeScreen   MessageType = "screen"
	TypeGroup    MessageType = "group"
	TypeAlias    MessageType = "alias"
	TypeBatch    MessageType = "batch"
)

// Path returns the API path the message type is posted to,
// or "" for an unknown type.
func (t MessageType) Path() string {
	switch t {
	case TypeIdentify:
		return "/v1/identify"
	case TypeTrack:
		return "/v1/track"
	case TypePage:
		return "/v1/page"
	case TypeScreen:
		return "/v1/screen"
	case TypeGroup:
		return "/v1/group"
	case TypeAlias:
		return "/v1/alias"
	case TypeBatch:
		return "/v1/batch"
	default:
		return ""
	}
}

// requiresIdentity reports whether messages of this type must carry a
// user ID or an anonymous ID.
func (t MessageType) requiresIdentity() bool {
	switch t {
	case TypeAlias, TypeBatch:
		return false
	default:
		return true
	}
}

// Properties is a free-form JSON object. Values may be strings, numbers,
// booleans, nil, slices, or nested maps.
type Properties map[string]any

// Message is one of Identify, Track, Page, Screen, Group, Alias or Batch.
// The set is closed; other packages cannot add variants.
type Message interface {
	// Type returns the variant tag.
	Type() MessageType

	header() header
}

// BatchMessage is a Message that may appear inside a Batch.
// Every variant except Batch implements it.
type BatchMessage interface {
	Message
	batchMember()
}

// header holds the fields shared by every variant.
type header struct {
	userID            string
	anonymousID       string
	context           Properties
	integrations      Properties
	originalTimestamp time.Time
}

// Identify ties a user to their traits.
type Identify struct {
	UserID            string
	AnonymousID       string
	Traits            Properties
	Context           Properties
	Integrations      Properties
	OriginalTimestamp time.Time
}

// Type implements Message.
func (m Identify) Type() MessageType { return TypeIdentify }

func (m Identify) header() header {
	return header{m.UserID, m.AnonymousID, m.Context, m.Integrations, m.OriginalTimestamp}
}

func (Identify) batchMember() {}

// Track records an action a user performed.
type Track struct {
	UserID            string
	AnonymousID       string
	Event             string
	Properties        Properties
	Context           Properties
	Integrations      Properties
	OriginalTimestamp time.Time
}

// Type implements Message.
func (m Track) Type() MessageType { return TypeTrack }

func (m Track) header() header {
	return header{m.UserID, m.AnonymousID, m.Context, m.Integrations, m.OriginalTimestamp}
}

func (Track) batchMember() {}

// Page records a web page view.
type Page struct {
	UserID            string
	AnonymousID       string
	Name              string
	Properties        Properties
	Context           Properties
	Integrations      Properties
	OriginalTimestamp time.Time
}

// Type implements Message.
func (m Page) Type() MessageType { return TypePage }

func (m Page) header() header {
	return header{m.UserID, m.AnonymousID, m.Context, m.Integrations, m.OriginalTimestamp}
}

func (Page) batchMember() {}

// Screen records a mobile screen view.
type Screen struct {
	UserID            string
	AnonymousID       string
	Name              string
	Properties        Properties
	Context           Properties
	Integrations      Properties
	OriginalTimestamp time.Time
}

// Type implements Message.
func (m Screen) Type() MessageType { return TypeScreen }

func (m Screen) header() header {
	return header{m.UserID, m.AnonymousID, m.Context, m.Integrations, m.OriginalTimestamp}
}

func (Screen) batchMember() {}

// Group associates a user with a group and the group's traits.
type Group struct {
	UserID            string
	AnonymousID       string
	GroupID           string
	Traits            Properties
	Context           Properties
	Integrations      Properties
	OriginalTimestamp time.Time
}

// Type implements Message.
func (m Group) Type() MessageType { return TypeGroup }

func (m Group) header() header {
	return header{m.UserID, m.AnonymousID, m.Context, m.Integrations, m.OriginalTimestamp}
}

func (Group) batchMember() {}

// Alias merges a previous identity into UserID.
type Alias struct {
	UserID            string
	AnonymousID       string
	PreviousID        string
	Traits            Properties
	Context           Properties
	Integrations      Properties
	OriginalTimestamp time.Time
}

// Type implements Message.
func (m Alias) Type() MessageType { return TypeAlias }

func (m Alias) header() header {
	return header{m.UserID, m.AnonymousID, m.Context, m.Integrations, m.OriginalTimestamp}
}

func (Alias) batchMember() {}

// Batch delivers several messages in one request.
type Batch struct {
	Messages          []BatchMessage
	Context           Properties
	Integrations      Properties
	OriginalTimestamp time.Time
}

// Type implements Message.
func (m Batch) Type() MessageType { return TypeBatch }

func (m Batch) header() header {
	return header{context: m.Context, integrations: m.Integrations, originalTimestamp: m.OriginalTimestamp}
}

// normalize returns msg with pointer variants dereferenced, so callers may
// pass either Track{} or &Track{}. A typed nil pointer becomes nil.
func normalize(msg Message) Message {
	switch m := msg.(type) {
	case *Identify:
		if m == nil {
			return nil
		}
		return *m
	case *Track:
		if m == nil {
			return nil
		}
		return *m
	case *Page:
		if m == nil {
			return nil
		}
		return *m
	case *Screen:
		if m == nil {
			return nil
		}
		return *m
	case *Group:
		if m == nil {
			return nil
		}
		return *m
	case *Alias:
		if m == nil {
			return nil
		}
		return *m
	case *Batch:
		if m == nil {
			return nil
		}
		return *m
	}
	return msg
}
