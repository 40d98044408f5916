package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
	"github.com/soc-lab/kestrel/pkg/domain/model"
	"github.com/soc-lab/kestrel/pkg/domain/types"
)

// SlackNotifier posts incident lifecycle events to a Slack channel.
// Notifications are best effort and never block incident handling.
type SlackNotifier struct {
	client    *slack.Client
	channelID string
}

// NewSlack creates a notifier bound to a channel
func NewSlack(token, channelID string) *SlackNotifier {
	return &SlackNotifier{
		client:    slack.New(token),
		channelID: channelID,
	}
}

// NotifyIncidentCreated posts a new incident summary
func (n *SlackNotifier) NotifyIncidentCreated(ctx context.Context, incident *model.Incident) error {
	attachment := slack.Attachment{
		Color: severityColor(incident.Severity),
		Title: fmt.Sprintf("New incident: %s", incident.EventID),
		Fields: []slack.AttachmentField{
			{Title: "Severity", Value: incident.Severity, Short: true},
			{Title: "Attack Type", Value: incident.AttackType, Short: true},
			{Title: "Source IP", Value: incident.SourceIP, Short: true},
			{Title: "Destination IP", Value: incident.DestinationIP, Short: true},
			{Title: "Action Taken", Value: incident.ActionTaken, Short: false},
		},
		Ts: json.Number(fmt.Sprintf("%d", incident.Timestamp.Unix())),
	}

	_, _, err := n.client.PostMessageContext(ctx, n.channelID, slack.MsgOptionAttachments(attachment))
	if err != nil {
		return goerr.Wrap(err, "failed to post incident notification",
			goerr.V("channel_id", n.channelID),
			goerr.V("event_id", incident.EventID),
		)
	}
	return nil
}

// NotifyStatusChanged posts a status transition for an existing incident
func (n *SlackNotifier) NotifyStatusChanged(ctx context.Context, incident *model.Incident, previous types.IncidentStatus) error {
	text := fmt.Sprintf("Incident %s: *%s* -> *%s*", incident.EventID, previous, incident.Status)
	_, _, err := n.client.PostMessageContext(ctx, n.channelID,
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to post status notification",
			goerr.V("channel_id", n.channelID),
			goerr.V("event_id", incident.EventID),
			goerr.V("status", incident.Status),
		)
	}
	return nil
}

func severityColor(severity string) string {
	switch strings.ToLower(severity) {
	case "critical":
		return "#E01E5A"
	case "high":
		return "#ECB22E"
	case "medium":
		return "#36C5F0"
	default:
		return "#2EB67D"
	}
}
