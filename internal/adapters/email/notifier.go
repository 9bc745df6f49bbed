package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"marathon/internal/domain/cheer"
	"marathon/internal/domain/plan"
)

var cheerTemplate = template.Must(template.New("cheer").Parse(`<p>New cheer for <strong>week {{.Week}}, {{.Day}}</strong> ({{.Workout}}):</p>
<blockquote>{{.Message}}</blockquote>
<p><a href="{{.Link}}">Open the calendar</a></p>`))

// CheerNotifier emails each configured recipient when a cheer is posted.
type CheerNotifier struct {
	sender  Sender
	to      []string
	baseURL string
}

// NewCheerNotifier creates a notifier. With no recipients NotifyCheer does nothing.
func NewCheerNotifier(sender Sender, to []string, baseURL string) *CheerNotifier {
	return &CheerNotifier{sender: sender, to: to, baseURL: baseURL}
}

// NotifyCheer sends one message per recipient.
// PRE: c has been stored
// POST: returns the provider error, if any; the caller treats delivery as best effort
func (n *CheerNotifier) NotifyCheer(ctx context.Context, c cheer.Cheer) error {
	if len(n.to) == 0 {
		return nil
	}
	var body bytes.Buffer
	err := cheerTemplate.Execute(&body, map[string]any{
		"Week":    c.WeekNum,
		"Day":     c.Day,
		"Workout": plan.WorkoutFor(c.WeekNum, c.Day),
		"Message": c.Message,
		"Link":    n.baseURL + "/calendar",
	})
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("New cheer for week %d %s", c.WeekNum, c.Day)
	reqs := make([]SendRequest, 0, len(n.to))
	for _, addr := range n.to {
		reqs = append(reqs, SendRequest{
			To:      []string{addr},
			Subject: subject,
			HTML:    body.String(),
			Text:    c.Message,
			Tags:    map[string]string{"kind": "cheer", "key": c.Key().String()},
		})
	}
	if len(reqs) == 1 {
		_, err = n.sender.Send(ctx, reqs[0])
		return err
	}
	_, err = n.sender.SendBatch(ctx, reqs)
	return err
}
