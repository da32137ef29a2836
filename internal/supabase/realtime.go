package supabase

import (
	"fmt"
	"strings"

	"github.com/supabase-community/supabase-go"
)

const eventsTable = "mint_events"

// RealtimeClient publishes mint lifecycle events by inserting rows into
// mint_events. Realtime subscribers on that table receive them.
type RealtimeClient struct {
	client *supabase.Client
}

type eventRow struct {
	Channel string                 `json:"channel"`
	Event   string                 `json:"event"`
	Payload map[string]interface{} `json:"payload"`
}

func NewRealtimeClient(client *supabase.Client) *RealtimeClient {
	return &RealtimeClient{
		client: client,
	}
}

func (r *RealtimeClient) PublishEvent(channel string, event string, payload map[string]interface{}) error {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	_, _, err := r.client.From(eventsTable).
		Insert(eventRow{Channel: channel, Event: event, Payload: payload}, false, "", "minimal", "").
		Execute()
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event, err)
	}
	return nil
}

// OwnerChannel is owner:{address} with the address lowercased.
func OwnerChannel(owner string) string {
	return "owner:" + strings.ToLower(owner)
}

func (r *RealtimeClient) PublishOwnerEvent(owner, event string, payload map[string]interface{}) error {
	return r.PublishEvent(OwnerChannel(owner), event, payload)
}
