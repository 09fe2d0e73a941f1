package mail

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/sendgrid/rest"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogSender_LogsCode(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	s := NewLogSender(zap.New(core))

	require.NoError(t, s.Send(context.Background(), "a@x.com", "123456"))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "a@x.com", fields["email"])
	assert.Equal(t, "123456", fields["code"])
}

func TestLogSender_CancelledContext(t *testing.T) {
	s := NewLogSender(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, s.Send(ctx, "a@x.com", "123456"), context.Canceled)
}

type fakeSendGrid struct {
	resp *rest.Response
	err  error
	got  *sgmail.SGMailV3
}

func (f *fakeSendGrid) SendWithContext(_ context.Context, email *sgmail.SGMailV3) (*rest.Response, error) {
	f.got = email
	return f.resp, f.err
}

func newTestSendGrid(client sendgridClient) *SendGridSender {
	return &SendGridSender{client: client, fromName: "Advisory", fromAddr: "noreply@example.com", logger: zap.NewNop()}
}

func TestSendGridSender_Accepted(t *testing.T) {
	fake := &fakeSendGrid{resp: &rest.Response{StatusCode: http.StatusAccepted}}
	s := newTestSendGrid(fake)

	require.NoError(t, s.Send(context.Background(), "a@x.com", "654321"))
	require.NotNil(t, fake.got)
	assert.Equal(t, otpSubject, fake.got.Subject)
	assert.Equal(t, "noreply@example.com", fake.got.From.Address)
	require.Len(t, fake.got.Personalizations, 1)
	assert.Equal(t, "a@x.com", fake.got.Personalizations[0].To[0].Address)
	assert.Contains(t, fake.got.Content[0].Value, "654321")
}

func TestSendGridSender_Rejected(t *testing.T) {
	s := newTestSendGrid(&fakeSendGrid{resp: &rest.Response{StatusCode: http.StatusUnauthorized}})
	require.Error(t, s.Send(context.Background(), "a@x.com", "654321"))
}

func TestSendGridSender_TransportError(t *testing.T) {
	boom := errors.New("dial tcp: timeout")
	s := newTestSendGrid(&fakeSendGrid{err: boom})
	require.ErrorIs(t, s.Send(context.Background(), "a@x.com", "654321"), boom)
}
