package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nvkv/botfleet/internal/credstore"
	"github.com/nvkv/botfleet/pkg/telegram"
)

const expiredMessage = "⛔ *Your bot's subscription has expired.*\n\n" +
	"The bot has been *stopped* because the subscription was not paid.\n\n" +
	"You can renew it by choosing one of the options below:"

type CredentialReader interface {
	Read(tenantID string) (credstore.Credentials, error)
}

// LinkSource hands out renewal payment URLs per plan. Implemented by the
// billing service; falls back to static links when billing is offline.
type LinkSource interface {
	RenewalLink(ctx context.Context, tenantID string, adminID int64, months int) (string, error)
}

type MessageSender interface {
	SendMessage(ctx context.Context, token string, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) error
}

type renewalOption struct {
	months int
	label  string
}

var renewalOptions = []renewalOption{
	{months: 1, label: "Renew for 1 month"},
	{months: 3, label: "For 3 months"},
	{months: 12, label: "For 12 months"},
}

// Notifier tells a tenant's admin that their instance was reclaimed,
// through the tenant's own bot credential. Every failure is the
// caller's to log; nothing here touches subscription state.
type Notifier struct {
	creds  CredentialReader
	links  LinkSource
	sender MessageSender
	logger *zap.Logger
}

func NewNotifier(creds CredentialReader, links LinkSource, sender MessageSender, logger *zap.Logger) *Notifier {
	return &Notifier{
		creds:  creds,
		links:  links,
		sender: sender,
		logger: logger,
	}
}

func (n *Notifier) Notify(ctx context.Context, tenantID string) error {
	cred, err := n.creds.Read(tenantID)
	if err != nil {
		return fmt.Errorf("no credential for tenant %s: %w", tenantID, err)
	}

	var rows [][]telegram.InlineKeyboardButton
	for _, opt := range renewalOptions {
		url, err := n.links.RenewalLink(ctx, tenantID, cred.AdminID, opt.months)
		if err != nil {
			n.logger.Warn("Failed to create renewal link",
				zap.String("tenant_id", tenantID),
				zap.Int("months", opt.months),
				zap.Error(err),
			)
			continue
		}
		rows = append(rows, []telegram.InlineKeyboardButton{{Text: opt.label, URL: url}})
	}
	if len(rows) == 0 {
		return fmt.Errorf("no renewal links available for tenant %s", tenantID)
	}

	markup := &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
	if err := n.sender.SendMessage(ctx, cred.BotToken, cred.AdminID, expiredMessage, markup); err != nil {
		return err
	}

	n.logger.Info("Renewal notice sent",
		zap.String("tenant_id", tenantID),
		zap.Int64("admin_id", cred.AdminID),
	)
	return nil
}
