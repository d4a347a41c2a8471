package whatsapp

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/cafeledger/internal/domain/models"
	client "github.com/mamadbah2/cafeledger/pkg/clients/whatsapp"
)

const truncationNotice = "\n\n(message truncated)"

// MessagingService pushes report messages to WhatsApp recipients.
type MessagingService interface {
	SendOutbound(ctx context.Context, msg models.OutboundMessage) error
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	client client.Client
	logger *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(client client.Client, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		client: client,
		logger: logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

// SendOutbound sends msg as a text message. Bodies above the API limit are cut
// and marked as truncated.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, msg models.OutboundMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	resp, err := s.client.SendTextMessage(ctx, client.SendTextMessageRequest{
		To:   msg.To,
		Body: Truncate(msg.Body, client.MaxBodyLength),
	})
	if err != nil {
		return fmt.Errorf("send outbound message: %w", err)
	}

	s.logger.Info("outbound message sent", zap.String("to", msg.To), zap.String("message_id", resp.MessageID()))
	return nil
}

// Truncate shortens text to at most limit runes.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	keep := limit - len([]rune(truncationNotice))
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + truncationNotice
}
