package domain

import (
	"errors"
	"strings"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// SendTask is one outbound email for one recipient. It is immutable after
// creation and owned by its tenant's queue until the dispatch worker
// resolves it.
type SendTask struct {
	ID        string
	Recipient string
	Subject   string
	Body      string
	IsHTML    bool
	ReplyTo   string
	Tenant    string
}

// LogEntry is one row of the activity ring. JSON keys match what the
// operator UI polls.
type LogEntry struct {
	Time     string   `json:"time"`
	Message  string   `json:"msg"`
	Severity Severity `json:"type"`
	Tenant   string   `json:"brand"`
}

type SendEmailRequest struct {
	Recipients string `json:"recipients"`
	Subject    string `json:"subject"`
	Body       string `json:"email_body"`
	IsHTML     bool   `json:"is_html"`
	ReplyTo    string `json:"reply_to,omitempty"`
	Brand      string `json:"brand,omitempty"`
}

var (
	ErrMissingRecipients = errors.New("recipients is required")
	ErrMissingSubject    = errors.New("subject is required")
	ErrNoValidRecipients = errors.New("no valid recipients")
)

func (r SendEmailRequest) Validate() error {
	if strings.TrimSpace(r.Recipients) == "" {
		return ErrMissingRecipients
	}
	if strings.TrimSpace(r.Subject) == "" {
		return ErrMissingSubject
	}
	if len(SplitRecipients(r.Recipients)) == 0 {
		return ErrNoValidRecipients
	}
	return nil
}

// SplitRecipients splits a comma-separated recipient list, trimming
// whitespace and dropping empty entries.
func SplitRecipients(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type QueuedResponse struct {
	Status string `json:"status"`
	Msg    string `json:"msg"`
}

type TenantStats struct {
	Tenant       string `json:"brand"`
	QueueDepth   int    `json:"queue_depth"`
	SentInWindow int    `json:"sent_in_window"`
	Limit        int    `json:"limit"`
}

type StatsResponse struct {
	Status  string        `json:"status"`
	Tenants []TenantStats `json:"tenants"`
}
