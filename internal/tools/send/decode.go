package send

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/randalmurphal/rudderanalytics/pkg/analytics"
)

// input is the JSON form of one message read by rudder-send. Field names
// follow the data plane envelope.
type input struct {
	Type              string               `json:"type"`
	UserID            string               `json:"userId"`
	AnonymousID       string               `json:"anonymousId"`
	Event             string               `json:"event"`
	Name              string               `json:"name"`
	GroupID           string               `json:"groupId"`
	PreviousID        string               `json:"previousId"`
	Traits            analytics.Properties `json:"traits"`
	Properties        analytics.Properties `json:"properties"`
	Context           analytics.Properties `json:"context"`
	Integrations      analytics.Properties `json:"integrations"`
	OriginalTimestamp time.Time            `json:"originalTimestamp"`
	Batch             []input              `json:"batch"`
}

// Decode parses data into a Message. typ overrides the "type" field of
// the document; batch members always use their own "type".
func Decode(typ string, data []byte) (analytics.Message, error) {
	var in input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if typ != "" {
		in.Type = typ
	}
	if in.Type == "" {
		return nil, fmt.Errorf("message type is required")
	}

	if analytics.MessageType(in.Type) == analytics.TypeBatch {
		members := make([]analytics.BatchMessage, 0, len(in.Batch))
		for i, m := range in.Batch {
			member, err := toMember(m)
			if err != nil {
				return nil, fmt.Errorf("batch[%d]: %w", i, err)
			}
			members = append(members, member)
		}
		return analytics.Batch{
			Messages:          members,
			Context:           in.Context,
			Integrations:      in.Integrations,
			OriginalTimestamp: in.OriginalTimestamp,
		}, nil
	}

	msg, err := toMember(in)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// toMember converts m to a non-batch message.
func toMember(m input) (analytics.BatchMessage, error) {
	switch analytics.MessageType(m.Type) {
	case analytics.TypeIdentify:
		return analytics.Identify{
			UserID: m.UserID, AnonymousID: m.AnonymousID, Traits: m.Traits,
			Context: m.Context, Integrations: m.Integrations, OriginalTimestamp: m.OriginalTimestamp,
		}, nil
	case analytics.TypeTrack:
		return analytics.Track{
			UserID: m.UserID, AnonymousID: m.AnonymousID, Event: m.Event, Properties: m.Properties,
			Context: m.Context, Integrations: m.Integrations, OriginalTimestamp: m.OriginalTimestamp,
		}, nil
	case analytics.TypePage:
		return analytics.Page{
			UserID: m.UserID, AnonymousID: m.AnonymousID, Name: m.Name, Properties: m.Properties,
			Context: m.Context, Integrations: m.Integrations, OriginalTimestamp: m.OriginalTimestamp,
		}, nil
	case analytics.TypeScreen:
		return analytics.Screen{
			UserID: m.UserID, AnonymousID: m.AnonymousID, Name: m.Name, Properties: m.Properties,
			Context: m.Context, Integrations: m.Integrations, OriginalTimestamp: m.OriginalTimestamp,
		}, nil
	case analytics.TypeGroup:
		return analytics.Group{
			UserID: m.UserID, AnonymousID: m.AnonymousID, GroupID: m.GroupID, Traits: m.Traits,
			Context: m.Context, Integrations: m.Integrations, OriginalTimestamp: m.OriginalTimestamp,
		}, nil
	case analytics.TypeAlias:
		return analytics.Alias{
			UserID: m.UserID, AnonymousID: m.AnonymousID, PreviousID: m.PreviousID, Traits: m.Traits,
			Context: m.Context, Integrations: m.Integrations, OriginalTimestamp: m.OriginalTimestamp,
		}, nil
	case analytics.TypeBatch:
		return nil, fmt.Errorf("batch cannot be nested")
	default:
		return nil, fmt.Errorf("unknown message type %q", m.Type)
	}
}
