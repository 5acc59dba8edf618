// Package notify composes task notifications and delivers them over a
// pluggable email Channel. SMTP and SendGrid channels are provided; the
// Notifier re-reads task state at send time so that retried and recovered jobs
// always describe the current task.
package notify
