// Package discord posts and edits the per-run notification embeds in the target
// channel. All destination writes go through a bounded retry envelope so a
// rate-limited Discord API never wedges a sync cycle indefinitely.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/onnwee/src-herald/srcapi"
	"github.com/onnwee/src-herald/store"
	"github.com/onnwee/src-herald/telemetry"
)

const maxAttempts = 5

// Messenger is the slice of *discordgo.Session the notifier needs (for tests/mocks).
type Messenger interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditEmbed(channelID, messageID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier renders and maintains one embed per tracked run.
type Notifier struct {
	ms        Messenger
	channelID string

	// Fixed cooldowns are a floor; a larger server-supplied retry-after wins.
	sendCooldown time.Duration
	editCooldown time.Duration
	sleep        func(context.Context, time.Duration) error
	now          func() time.Time
}

// NewNotifier returns a Notifier posting into channelID via ms.
func NewNotifier(ms Messenger, channelID string) *Notifier {
	return &Notifier{
		ms:           ms,
		channelID:    channelID,
		sendCooldown: 5 * time.Second,
		editCooldown: 10 * time.Second,
		sleep:        sleepCtx,
		now:          time.Now,
	}
}

// PostNew sends the "Status: New" embed for a freshly discovered run and returns
// the message id Discord assigned, which addresses all later edits.
func (n *Notifier) PostNew(ctx context.Context, run srcapi.Run) (string, error) {
	embed := n.buildEmbed(run)
	var msg *discordgo.Message
	err := n.withRetry(ctx, n.sendCooldown, func() error {
		m, err := n.ms.ChannelMessageSendEmbed(n.channelID, embed)
		if err == nil {
			msg = m
		}
		return err
	})
	if err != nil {
		return "", fmt.Errorf("send notification: %w", err)
	}
	return msg.ID, nil
}

// UpdateStatus re-renders the embed behind messageID with a new title, footer
// timestamp, and accent color, preserving every original field. A message that
// was removed out-of-band is logged and skipped, never surfaced as an error.
func (n *Notifier) UpdateStatus(ctx context.Context, messageID string, status store.Status) error {
	msg, err := n.ms.ChannelMessage(n.channelID, messageID)
	if err != nil {
		if isNotFound(err) {
			slog.Warn("notification removed out-of-band; skipping edit", slog.String("message_id", messageID))
			return nil
		}
		return fmt.Errorf("fetch notification %s: %w", messageID, err)
	}
	if len(msg.Embeds) == 0 {
		slog.Warn("notification has no embed to edit", slog.String("message_id", messageID))
		return nil
	}
	old := msg.Embeds[0]
	embed := &discordgo.MessageEmbed{
		Title:       embedTitle(status),
		URL:         old.URL,
		Description: old.Description,
		Color:       statusColor(status),
		Fields:      old.Fields,
		Footer:      &discordgo.MessageEmbedFooter{Text: n.footer()},
	}
	err = n.withRetry(ctx, n.editCooldown, func() error {
		_, err := n.ms.ChannelMessageEditEmbed(n.channelID, messageID, embed)
		return err
	})
	if err != nil {
		if isNotFound(err) {
			slog.Warn("notification removed mid-edit; skipping", slog.String("message_id", messageID))
			return nil
		}
		return fmt.Errorf("edit notification %s: %w", messageID, err)
	}
	return nil
}

// withRetry runs op up to maxAttempts times. Rate limits sleep the cooldown
// (or the server's retry-after if longer) and retry; any other error aborts
// immediately. Exhausting the attempts is a terminal per-run failure.
func (n *Notifier) withRetry(ctx context.Context, cooldown time.Duration, op func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		retryAfter, limited := rateLimited(err)
		if !limited {
			return err
		}
		lastErr = err
		telemetry.IncNotifyRetry()
		wait := cooldown
		if retryAfter > wait {
			wait = retryAfter
		}
		slog.Warn("discord rate limited; cooling down",
			slog.Duration("wait", wait), slog.Int("attempt", attempt+1))
		if serr := n.sleep(ctx, wait); serr != nil {
			return serr
		}
	}
	return fmt.Errorf("rate limited after %d attempts: %w", maxAttempts, lastErr)
}

func (n *Notifier) buildEmbed(run srcapi.Run) *discordgo.MessageEmbed {
	platform := run.Platform
	if run.Emulated {
		platform += " (emu)"
	}
	return &discordgo.MessageEmbed{
		Title: embedTitle(store.StatusNew),
		Color: statusColor(store.StatusNew),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Player Name", Value: run.Player, Inline: true},
			{Name: "Category", Value: run.Category, Inline: true},
			{Name: "Time", Value: formatRunTime(run.TimeSec), Inline: true},
			{Name: "Platform", Value: platform, Inline: true},
			{Name: "Submitted On", Value: run.Date, Inline: true},
			{Name: "Link", Value: fmt.Sprintf("[View Run](%s)", run.Weblink), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: n.footer()},
	}
}

func (n *Notifier) footer() string {
	return "Last Changed: " + n.now().Format("2006-01-02 15:04:05")
}

func rateLimited(err error) (time.Duration, bool) {
	var rl *discordgo.RateLimitError
	if errors.As(err, &rl) {
		return rl.RetryAfter, true
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusTooManyRequests {
		return 0, true
	}
	return 0, false
}

func isNotFound(err error) bool {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return false
	}
	if rest.Message != nil && rest.Message.Code == discordgo.ErrCodeUnknownMessage {
		return true
	}
	return rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
