// Package webhookadapters builds outbound webhook bodies for
// destinations with a recognized shape, so the webhook step handler
// doesn't have to hand-assemble vendor-specific payloads inline.
// Grounded on `slack-go/slack`'s block-message JSON shape (section,
// mrkdwn text, divider) without importing the client itself: a webhook
// step only ever needs to POST a message body, never the RTM/Web API
// session, channel listing, or OAuth flow the full client brings in.
package webhookadapters

import (
	"encoding/json"
	"fmt"
	"strings"
)

// IsSlackTarget reports whether url or an explicit webhook_type names
// Slack, the two ways a step can opt into the Slack block-message shape.
func IsSlackTarget(webhookType, url string) bool {
	if strings.EqualFold(webhookType, "slack") {
		return true
	}
	return strings.Contains(url, "hooks.slack.com")
}

// SlackMessage is the minimal incoming-webhook body Slack accepts: a
// fallback text plus an ordered list of section/divider blocks.
type SlackMessage struct {
	Text   string
	Blocks []SlackBlock
}

// SlackBlock mirrors the subset of Slack's Block Kit this engine emits:
// a markdown section or a divider.
type SlackBlock struct {
	Type string // "section" | "divider"
	Text string // mrkdwn text, section blocks only
}

// BuildSlackPayload renders a Slack incoming-webhook JSON body summarizing
// a completed step: a header line, the step's text output (Slack truncates
// around 3000 characters per block so this also chunks oversized output),
// and an optional list of image URLs as a trailing section.
func BuildSlackPayload(headerText, stepOutput string, imageURLs []string) ([]byte, error) {
	msg := SlackMessage{Text: headerText}
	msg.Blocks = append(msg.Blocks, SlackBlock{Type: "section", Text: fmt.Sprintf("*%s*", headerText)})

	for _, chunk := range chunkText(stepOutput, slackBlockTextLimit) {
		msg.Blocks = append(msg.Blocks, SlackBlock{Type: "section", Text: chunk})
	}

	if len(imageURLs) > 0 {
		msg.Blocks = append(msg.Blocks, SlackBlock{Type: "divider"})
		var links []string
		for _, u := range imageURLs {
			links = append(links, fmt.Sprintf("<%s|image>", u))
		}
		msg.Blocks = append(msg.Blocks, SlackBlock{Type: "section", Text: strings.Join(links, "  ")})
	}

	return json.Marshal(toWire(msg))
}

const slackBlockTextLimit = 2900

func chunkText(text string, limit int) []string {
	if text == "" {
		return nil
	}
	var chunks []string
	for len(text) > limit {
		chunks = append(chunks, text[:limit])
		text = text[limit:]
	}
	chunks = append(chunks, text)
	return chunks
}

func toWire(msg SlackMessage) map[string]any {
	blocks := make([]map[string]any, 0, len(msg.Blocks))
	for _, b := range msg.Blocks {
		switch b.Type {
		case "divider":
			blocks = append(blocks, map[string]any{"type": "divider"})
		default:
			blocks = append(blocks, map[string]any{
				"type": "section",
				"text": map[string]any{"type": "mrkdwn", "text": b.Text},
			})
		}
	}
	return map[string]any{"text": msg.Text, "blocks": blocks}
}
