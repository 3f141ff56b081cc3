package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// discordEmbed mirrors the subset of Discord's embed object this listener
// needs, the same shape as the teacher's notifier/discord package.
type discordEmbed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

type discordMessagePayload struct {
	Embeds []discordEmbed `json:"embeds,omitempty"`
}

const (
	colorGreen  = 0x2ecc71
	colorYellow = 0xf1c40f
	colorRed    = 0xe74c3c
)

// DiscordListener posts one embed per lifecycle event to a Discord webhook.
// It implements every handler, but only new/changed records, inaccessible
// content and fatal errors send a notification; the "not changed" and
// records-published handlers are no-ops.
type DiscordListener struct {
	webhookURL string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewDiscordListener builds a DiscordListener posting to webhookURL. An
// empty webhookURL makes every send a silent no-op, matching the teacher's
// "skip notification if not configured" behaviour.
func NewDiscordListener(webhookURL string, httpClient *http.Client, logger zerolog.Logger) *DiscordListener {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &DiscordListener{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "DiscordListener").Logger(),
	}
}

func (d *DiscordListener) send(embed discordEmbed) {
	if d.webhookURL == "" {
		return
	}
	embed.Timestamp = time.Now().UTC().Format(time.RFC3339)
	body, err := json.Marshal(discordMessagePayload{Embeds: []discordEmbed{embed}})
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to marshal discord payload")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to build discord request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to send discord notification")
		return
	}
	defer resp.Body.Close()
}

func (d *DiscordListener) OnFirstSnapshotRecorded(serviceID, documentType, snapshotID string) {
	d.send(discordEmbed{Title: "New document tracked", Description: fmt.Sprintf("%s / %s\nsnapshot `%s`", serviceID, documentType, snapshotID), Color: colorGreen})
}

func (d *DiscordListener) OnSnapshotRecorded(serviceID, documentType, snapshotID string) {
	d.send(discordEmbed{Title: "Snapshot updated", Description: fmt.Sprintf("%s / %s\nsnapshot `%s`", serviceID, documentType, snapshotID), Color: colorYellow})
}

func (d *DiscordListener) OnSnapshotNotChanged(string, string) {}

func (d *DiscordListener) OnFirstVersionRecorded(serviceID, documentType, versionID string) {
	d.send(discordEmbed{Title: "New version recorded", Description: fmt.Sprintf("%s / %s\nversion `%s`", serviceID, documentType, versionID), Color: colorGreen})
}

func (d *DiscordListener) OnVersionRecorded(serviceID, documentType, versionID string) {
	d.send(discordEmbed{Title: "Version updated", Description: fmt.Sprintf("%s / %s\nversion `%s`", serviceID, documentType, versionID), Color: colorYellow})
}

func (d *DiscordListener) OnVersionNotChanged(string, string) {}

func (d *DiscordListener) OnRecordsPublished() {}

func (d *DiscordListener) OnInaccessibleContent(err error, serviceID, documentType string) {
	d.send(discordEmbed{Title: "Document inaccessible", Description: fmt.Sprintf("%s / %s\n%v", serviceID, documentType, err), Color: colorRed})
}

func (d *DiscordListener) OnError(err error, serviceID, documentType string) {
	d.send(discordEmbed{Title: "Tracking error", Description: fmt.Sprintf("%s / %s\n%v", serviceID, documentType, err), Color: colorRed})
}

var _ Listener = (*DiscordListener)(nil)
