// Package notify delivers the client link for a newly created conference.
// Delivery is an external capability; the engine only calls the Notifier
// interface and never depends on a concrete channel.
package notify

import (
	"context"
	"fmt"

	"conference-engine/internal/links"
)

// Notifier sends a client link to whoever must complete the conference.
type Notifier interface {
	SendLink(ctx context.Context, recipient string, link *links.Link) error
}

// LinkMessage renders the plain-text body shared by the adapters.
func LinkMessage(link *links.Link) (subject, body string) {
	subject = "Your validation conference is ready"
	body = fmt.Sprintf(
		"A validation conference has been prepared for you.\n\n"+
			"Open the link below to supply your reference values and review each item:\n\n%s\n\n"+
			"The link expires at %s.",
		link.URL, link.ExpiresAt.Format("2006-01-02 15:04 MST"),
	)
	return subject, body
}

// Multi fans one link out to several channels, collecting the first error.
type Multi []Notifier

func (m Multi) SendLink(ctx context.Context, recipient string, link *links.Link) error {
	for _, n := range m {
		if err := n.SendLink(ctx, recipient, link); err != nil {
			return err
		}
	}
	return nil
}
