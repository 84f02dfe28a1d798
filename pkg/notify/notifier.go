// Package notify turns raised failures into rate-limited, channel-routed
// Slack notifications. Error-level alerts are deduplicated over a short
// sliding window and leave a local "most recent failure" record on disk.
package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/b-infra/opskit/pkg/errors"
	"github.com/b-infra/opskit/pkg/logging"
	"github.com/b-infra/opskit/pkg/metrics"
	"github.com/b-infra/opskit/pkg/slack"
)

const (
	// IconTechnologist is the default icon when nothing is configured
	IconTechnologist = ":technologist:"
	// IconRobotFace is the fallback icon when IconFromEnv resolves to nothing
	IconRobotFace = ":robot_face:"
	// IconFromEnv is a symbolic marker: resolve the icon from the
	// SLACK_LOGGER_EMOJI environment variable at construction time
	IconFromEnv = "SLACK_LOGGER_EMOJI"

	iconEnvVar = "SLACK_LOGGER_EMOJI"

	// maxBodyLength is the maximum error-body length delivered to the
	// transport; longer texts are truncated to their tail
	maxBodyLength = 8000
)

// Transport delivers a formatted payload to a named channel. Implemented
// by slack.Client; failures propagate to the notifier's caller unmodified.
type Transport interface {
	PostMessage(ctx context.Context, channelID string, attachments []slack.Attachment, username, iconEmoji string) error
}

// Config identifies a notification identity
type Config struct {
	// ProjectName derives the sender display name and the failure-record file name
	ProjectName string
	// Transport is the shared delivery handle; its lifetime is the caller's responsibility
	Transport Transport
	// Subprocess, when set, is prefixed into every message as "[subprocess]: "
	Subprocess string
	// Channel identifiers; at least one must be present
	DefaultChannel string
	InfoChannel    string
	ErrorChannel   string
	// IconEmoji is a literal emoji, the IconFromEnv marker, or empty
	IconEmoji string
	// LogDir is the directory for the failure record, "logs" when empty
	LogDir string
}

// Overrides carries the fields a Clone call replaces; zero values inherit
// from the parent
type Overrides struct {
	Subprocess     string
	DefaultChannel string
	InfoChannel    string
	ErrorChannel   string
	IconEmoji      string
}

// Notifier formats, deduplicates, routes and delivers notifications
type Notifier struct {
	config   Config
	icon     string
	username string
	dedup    *deduplicator
	logger   *logging.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New creates a notifier from the given configuration. At least one of
// the three channel identifiers must be set.
func New(config Config) (*Notifier, error) {
	if config.Transport == nil {
		return nil, errors.NewConfigurationError("a transport is required")
	}

	if config.DefaultChannel == "" && config.InfoChannel == "" && config.ErrorChannel == "" {
		return nil, errors.NewConfigurationError("at least one channel ID must be provided")
	}

	if config.DefaultChannel == "" {
		if config.InfoChannel != "" {
			config.DefaultChannel = config.InfoChannel
		} else {
			config.DefaultChannel = config.ErrorChannel
		}
	}

	if config.LogDir == "" {
		config.LogDir = "logs"
	}

	logger := logging.GetLogger()

	return &Notifier{
		config:   config,
		icon:     resolveIcon(config.IconEmoji, logger),
		username: strings.ToLower(config.ProjectName) + "-logger",
		dedup:    newDeduplicator(time.Now),
		logger:   logger,
		metrics:  metrics.GetMetrics(),
	}, nil
}

// resolveIcon determines the bot icon once, at construction time.
func resolveIcon(configured string, logger *logging.Logger) string {
	envEmoji := os.Getenv(iconEnvVar)

	if configured == IconFromEnv {
		if envEmoji != "" {
			return envEmoji
		}
		logger.Warn("SLACK_LOGGER_EMOJI environment variable is not set, falling back to default icon",
			"icon", IconRobotFace)
		return IconRobotFace
	}

	if configured != "" {
		return configured
	}

	if envEmoji != "" {
		return envEmoji
	}
	return IconTechnologist
}

// Clone produces a notifier that inherits every unset override from the
// parent. The clone shares the transport handle but starts with an
// independent, empty dedup history.
func (n *Notifier) Clone(o Overrides) (*Notifier, error) {
	config := n.config
	config.IconEmoji = n.icon

	if o.Subprocess != "" {
		config.Subprocess = o.Subprocess
	}
	if o.DefaultChannel != "" {
		config.DefaultChannel = o.DefaultChannel
	}
	if o.InfoChannel != "" {
		config.InfoChannel = o.InfoChannel
	}
	if o.ErrorChannel != "" {
		config.ErrorChannel = o.ErrorChannel
	}
	if o.IconEmoji != "" {
		config.IconEmoji = o.IconEmoji
	}

	return New(config)
}

// event carries the per-call overrides
type event struct {
	channel    string
	subprocess string
	color      string
	data       interface{}
}

// Option configures a single notification call
type Option func(*event)

// WithChannel overrides the destination channel for this call
func WithChannel(channelID string) Option {
	return func(e *event) {
		e.channel = channelID
	}
}

// WithSubprocess overrides the subprocess tag for this call
func WithSubprocess(name string) Option {
	return func(e *event) {
		e.subprocess = name
	}
}

// WithColor overrides the attachment color for this call
func WithColor(color string) Option {
	return func(e *event) {
		e.color = color
	}
}

// WithData attaches additional diagnostic data to an error notification
func WithData(data interface{}) Option {
	return func(e *event) {
		e.data = data
	}
}

func buildEvent(opts []Option) event {
	var e event
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Error formats the error with its stack trace, deduplicates it, writes
// the local failure record and delivers the alert to the error channel.
// A suppressed duplicate is a silent no-op indistinguishable from success.
func (n *Notifier) Error(ctx context.Context, err error, headerMessage string, opts ...Option) error {
	e := buildEvent(opts)

	errorText := formatErrorText(err, e.data)

	if n.dedup.checkAndRecord(fingerprintText(errorText)) {
		n.metrics.RecordSuppressed(n.config.ProjectName)
		return nil
	}

	n.writeFailureRecord(headerMessage, errorText)

	message := n.formatMessage(LevelError, headerMessage, e.subprocess)
	attachment := slack.Attachment{
		Text:     truncateTail(errorText, maxBodyLength),
		Pretext:  message,
		Fallback: message,
		Title:    "Error traceback",
		Color:    pickColor(e.color, LevelError),
	}

	return n.post(ctx, LevelError, e.channel, attachment)
}

// Info posts an info message with green color
func (n *Notifier) Info(ctx context.Context, message string, opts ...Option) error {
	return n.notify(ctx, LevelInfo, message, opts)
}

// Warning posts a warning message with yellow color
func (n *Notifier) Warning(ctx context.Context, message string, opts ...Option) error {
	return n.notify(ctx, LevelWarning, message, opts)
}

// Debug posts a debug message with gray color
func (n *Notifier) Debug(ctx context.Context, message string, opts ...Option) error {
	return n.notify(ctx, LevelDebug, message, opts)
}

func (n *Notifier) notify(ctx context.Context, level Level, message string, opts []Option) error {
	e := buildEvent(opts)

	formatted := n.formatMessage(level, message, e.subprocess)
	attachment := slack.Attachment{
		Text:     formatted,
		Fallback: formatted,
		Color:    pickColor(e.color, level),
	}

	return n.post(ctx, level, e.channel, attachment)
}

func (n *Notifier) post(ctx context.Context, level Level, channelOverride string, attachment slack.Attachment) error {
	channel := n.resolveChannel(channelOverride, level)

	err := n.config.Transport.PostMessage(ctx, channel, []slack.Attachment{attachment}, n.username, n.icon)
	if err != nil {
		n.metrics.RecordTransportFailure(n.config.ProjectName)
		return err
	}

	n.metrics.RecordAlert(n.config.ProjectName, level.String())
	return nil
}

// resolveChannel picks the destination: explicit per-call override, then
// the level channel, then the configuration-wide default. Warning and
// debug share the info channel.
func (n *Notifier) resolveChannel(explicit string, level Level) string {
	if explicit != "" {
		return explicit
	}
	if level == LevelError {
		if n.config.ErrorChannel != "" {
			return n.config.ErrorChannel
		}
	} else if n.config.InfoChannel != "" {
		return n.config.InfoChannel
	}
	return n.config.DefaultChannel
}

func (n *Notifier) formatMessage(level Level, message, subprocessOverride string) string {
	message = level.Prefix() + message

	subprocess := subprocessOverride
	if subprocess == "" {
		subprocess = n.config.Subprocess
	}
	if subprocess != "" {
		message = fmt.Sprintf("[%s]: %s", subprocess, message)
	}
	return message
}

func pickColor(override string, level Level) string {
	if override != "" {
		return override
	}
	return level.Color()
}

// formatErrorText renders the full error chain and any additional
// diagnostic data into a single body. The goroutine stack is deliberately
// excluded: it embeds goroutine IDs and pointer values, which would make
// fingerprints of identical errors unstable. The stack goes into the
// local failure record instead.
func formatErrorText(err error, data interface{}) string {
	text := fmt.Sprintf("%v", err)
	if data != nil {
		text += fmt.Sprintf("\n\nAdditional data:\n%v", data)
	}
	return text
}

// writeFailureRecord overwrites the per-project failure snapshot. This is
// a debugging breadcrumb, not an audit log: last writer wins, and write
// failures never block delivery.
func (n *Notifier) writeFailureRecord(headerMessage, errorText string) {
	if err := os.MkdirAll(n.config.LogDir, 0o755); err != nil {
		n.logger.Warn("Failed to create failure record directory",
			"dir", n.config.LogDir, "error", err.Error())
		return
	}

	clock := n.now
	if clock == nil {
		clock = time.Now
	}

	path := filepath.Join(n.config.LogDir, n.config.ProjectName+".log")
	content := fmt.Sprintf("\n\nDATE: %s: ERROR in %s\n\n%s\n\n%s\n",
		clock().Format("2006-01-02 15:04:05"), headerMessage, errorText, logging.StackTrace())

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		n.logger.Warn("Failed to write failure record",
			"path", path, "error", err.Error())
	}
}

// truncateTail keeps the last max bytes of s
func truncateTail(s string, max int) string {
	if len(s) > max {
		return s[len(s)-max:]
	}
	return s
}
