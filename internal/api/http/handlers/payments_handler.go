package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/civicfix/civicfix-server/internal/api/dto"
	"github.com/civicfix/civicfix-server/internal/auth"
	"github.com/civicfix/civicfix-server/internal/service"
	apperrors "github.com/civicfix/civicfix-server/pkg/util"
)

// PaymentsHandler receives processor webhooks and lists a caller's payments.
type PaymentsHandler struct {
	payments *service.PaymentService
	secret   []byte
	logger   *zap.Logger
}

// NewPaymentsHandler constructs handler. An empty secret rejects every webhook.
func NewPaymentsHandler(payments *service.PaymentService, webhookSecret string, logger *zap.Logger) *PaymentsHandler {
	return &PaymentsHandler{payments: payments, secret: []byte(webhookSecret), logger: logger}
}

// Webhook POST /api/payments/webhook. The signature covers the raw body.
func (h *PaymentsHandler) Webhook(c *fiber.Ctx) error {
	body := c.Body()
	if err := auth.VerifyPayload(h.secret, body, c.Get(auth.PaymentSignatureHeader)); err != nil {
		h.logger.Warn("payment webhook rejected", zap.Error(err), zap.String("ip", c.IP()))
		return apperrors.NewUnauthorized("invalid payment signature")
	}

	var req dto.PaymentWebhookRequest
	if err := c.App().Config().JSONDecoder(body, &req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.payments.ConfirmPayment(c.UserContext(), service.PaymentConfirmation{
		SessionID: req.SessionID,
		Type:      req.Type,
		IssueID:   req.IssueID,
		Email:     req.Email,
		Amount:    req.Amount,
		Currency:  req.Currency,
	})
	if err != nil {
		return err
	}

	resp := dto.PaymentWebhookResponse{
		Payment:   dto.NewPaymentResponse(result.Payment),
		Duplicate: result.Duplicate,
	}
	if result.Issue != nil {
		issue := dto.NewIssueResponse(result.Issue)
		resp.Issue = &issue
	}
	return c.JSON(fiber.Map{"data": resp})
}

// MyPayments GET /api/payments/me.
func (h *PaymentsHandler) MyPayments(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	payments, err := h.payments.ListPaymentsForUser(c.UserContext(), p.Email())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewPaymentResponses(payments)})
}
