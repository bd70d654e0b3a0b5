// internal/digest/digest.go

// Package digest builds read-only summaries of unread notifications for a
// human recipient. Unlike escalation, building a digest never mutates state.
package digest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"hrms-escalation/internal/common/logger"
	"hrms-escalation/internal/models"
	"hrms-escalation/internal/repository"
)

// Digest summarizes the currently-unread notifications.
type Digest struct {
	Recipient   string         `json:"recipient"`
	GeneratedAt string         `json:"generatedAt"`
	TotalUnread int            `json:"totalUnread"`
	Overdue     int            `json:"overdue"`
	ByType      map[string]int `json:"byType"`
	ByPriority  map[string]int `json:"byPriority"`
	Report      string         `json:"report"`
}

type Builder struct {
	logger logger.Logger
	nowFn  func() time.Time
}

func NewBuilder(log logger.Logger) *Builder {
	return &Builder{
		logger: log.WithFields(map[string]interface{}{"component": "digest"}),
		nowFn:  time.Now,
	}
}

// WithClock overrides the builder's time source. Tests only.
func (b *Builder) WithClock(nowFn func() time.Time) *Builder {
	b.nowFn = nowFn
	return b
}

// Build assembles the unread digest addressed to recipient.
func (b *Builder) Build(ctx context.Context, repo repository.Repository, recipient string) (*Digest, error) {
	now := b.nowFn().UTC()

	notifications, err := repo.GetNotifications(ctx)
	if err != nil {
		return nil, err
	}

	d := &Digest{
		Recipient:   recipient,
		GeneratedAt: now.Format(time.RFC3339),
		ByType:      make(map[string]int),
		ByPriority:  make(map[string]int),
	}

	var unread []models.Notification
	for _, n := range notifications {
		if n.Status != models.StatusUnread {
			continue
		}
		unread = append(unread, n)
		d.TotalUnread++
		d.ByType[n.Type]++
		priority := n.Priority
		if priority == "" {
			priority = models.PriorityMedium
		}
		d.ByPriority[priority]++

		if n.SLADueAt != nil {
			if due, err := time.Parse(time.RFC3339, *n.SLADueAt); err == nil && !due.After(now) {
				d.Overdue++
			}
		}
	}

	d.Report = renderReport(d, unread)
	return d, nil
}

func renderReport(d *Digest, unread []models.Notification) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Unread notification digest for %s\n", d.Recipient)
	fmt.Fprintf(&sb, "Generated at %s\n\n", d.GeneratedAt)
	fmt.Fprintf(&sb, "Unread: %d (%d overdue)\n", d.TotalUnread, d.Overdue)

	if d.TotalUnread == 0 {
		sb.WriteString("\nNothing pending.\n")
		return sb.String()
	}

	sb.WriteString("\nBy type:\n")
	for _, t := range sortedKeys(d.ByType) {
		fmt.Fprintf(&sb, "  %s: %d\n", t, d.ByType[t])
	}

	sb.WriteString("\nBy priority:\n")
	for _, p := range sortedKeys(d.ByPriority) {
		fmt.Fprintf(&sb, "  %s: %d\n", p, d.ByPriority[p])
	}

	sb.WriteString("\nItems:\n")
	for _, n := range unread {
		line := fmt.Sprintf("  - [%s] %s", n.Type, n.Title)
		if n.Employee != nil && n.Employee.FullName() != "" {
			line += " (" + n.Employee.FullName() + ")"
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
