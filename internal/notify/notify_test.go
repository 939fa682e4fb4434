// internal/notify/notify_test.go
package notify

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conference-engine/internal/links"
)

type fakeNotifier struct {
	sent []string
	err  error
}

func (f *fakeNotifier) SendLink(_ context.Context, recipient string, _ *links.Link) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, recipient)
	return nil
}

func testLink() *links.Link {
	return &links.Link{
		Token:        "tok-1",
		URL:          "https://conferencia.example.com/c/tok-1",
		ConferenceID: "conf-1",
		ExpiresAt:    time.Date(2026, 9, 3, 18, 0, 0, 0, time.UTC),
	}
}

func TestLinkMessage(t *testing.T) {
	subject, body := LinkMessage(testLink())

	assert.NotEmpty(t, subject)
	assert.Contains(t, body, "https://conferencia.example.com/c/tok-1")
	assert.Contains(t, body, "2026-09-03")
}

func TestMulti_FansOut(t *testing.T) {
	first := &fakeNotifier{}
	second := &fakeNotifier{}
	multi := Multi{first, second}

	require.NoError(t, multi.SendLink(context.Background(), "cliente@example.com", testLink()))

	assert.Equal(t, []string{"cliente@example.com"}, first.sent)
	assert.Equal(t, []string{"cliente@example.com"}, second.sent)
}

func TestMulti_StopsOnFirstError(t *testing.T) {
	failing := &fakeNotifier{err: fmt.Errorf("ses throttled")}
	after := &fakeNotifier{}
	multi := Multi{failing, after}

	err := multi.SendLink(context.Background(), "cliente@example.com", testLink())

	assert.Error(t, err)
	assert.Empty(t, after.sent)
}

func TestMulti_EmptyIsNoOp(t *testing.T) {
	assert.NoError(t, Multi{}.SendLink(context.Background(), "x", testLink()))
}
