package whatsapp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mamadbah2/cafeledger/internal/domain/models"
	client "github.com/mamadbah2/cafeledger/pkg/clients/whatsapp"
)

type fakeClient struct {
	sent []client.SendTextMessageRequest
	err  error
}

func (f *fakeClient) SendTextMessage(ctx context.Context, req client.SendTextMessageRequest) (*client.SendTextMessageResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, req)
	return &client.SendTextMessageResponse{}, nil
}

func TestSendOutbound(t *testing.T) {
	fake := &fakeClient{}
	svc := NewMetaWhatsAppService(fake, nil)

	if err := svc.SendOutbound(context.Background(), models.OutboundMessage{To: "51999999999", Body: "*DAILY REPORT*"}); err != nil {
		t.Fatalf("SendOutbound: %v", err)
	}
	if len(fake.sent) != 1 || fake.sent[0].Body != "*DAILY REPORT*" {
		t.Fatalf("sent: %+v", fake.sent)
	}
}

func TestSendOutboundValidation(t *testing.T) {
	svc := NewMetaWhatsAppService(&fakeClient{}, nil)
	err := svc.SendOutbound(context.Background(), models.OutboundMessage{Body: "hi"})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("got %v, want validation error", err)
	}
}

func TestSendOutboundPropagatesClientError(t *testing.T) {
	svc := NewMetaWhatsAppService(&fakeClient{err: errors.New("timeout")}, nil)
	err := svc.SendOutbound(context.Background(), models.OutboundMessage{To: "1", Body: "hi"})
	if err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Fatalf("got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	long := strings.Repeat("ñ", 5000)
	got := Truncate(long, client.MaxBodyLength)
	if n := utf8.RuneCountInString(got); n != client.MaxBodyLength {
		t.Fatalf("rune count: got %d, want %d", n, client.MaxBodyLength)
	}
	if !strings.HasSuffix(got, truncationNotice) {
		t.Fatal("missing truncation notice")
	}
}
