package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/hitoshi/toolpunk/internal/model"
)

// Notifier はプレミアム付与の通知インターフェース。
type Notifier interface {
	NotifyPremium(ctx context.Context, user *model.User, gateway model.Gateway) error
}

// NopNotifier は何もしないNotifier。メール送信が未設定の場合に使用する。
type NopNotifier struct{}

// NotifyPremium は何もせずnilを返す。
func (NopNotifier) NotifyPremium(context.Context, *model.User, model.Gateway) error {
	return nil
}

// mailSender はSendGrid送信クライアントのインターフェース。テスト時に差し替え可能。
type mailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridNotifier はSendGridでプレミアム付与の確認メールを送信する。
type SendGridNotifier struct {
	sender   mailSender
	from     *mail.Email
	frontend string
	logger   *slog.Logger
}

// NewSendGridNotifier はSendGridNotifierを生成する。
func NewSendGridNotifier(apiKey, from, frontendURL string, logger *slog.Logger) *SendGridNotifier {
	return &SendGridNotifier{
		sender:   sendgrid.NewSendClient(apiKey),
		from:     mail.NewEmail("Toolpunk", from),
		frontend: frontendURL,
		logger:   logger,
	}
}

// NotifyPremium は確認メールを送信する。メールアドレスがないユーザーには送信しない。
func (n *SendGridNotifier) NotifyPremium(ctx context.Context, user *model.User, gateway model.Gateway) error {
	if user == nil || user.Email == "" {
		return nil
	}

	name := user.Name
	if name == "" {
		name = user.Email
	}
	subject := "Welcome to Toolpunk Premium"
	body := fmt.Sprintf(`Hi %s,

Your payment via %s was successful and your account is now Premium.
You can generate unlimited project ideas and export them at any time:
%s/projectgenerator

Thanks for supporting Toolpunk!`, name, gateway, n.frontend)

	message := mail.NewV3Mail()
	message.SetFrom(n.from)
	message.Subject = subject
	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(name, user.Email))
	message.AddPersonalizations(p)
	message.AddContent(mail.NewContent("text/plain", body))

	resp, err := n.sender.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("確認メールの送信に失敗しました: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("SendGridがステータス %d を返しました", resp.StatusCode)
	}

	n.logger.Info("プレミアム確認メールを送信しました",
		slog.String("user_id", user.ID),
		slog.String("gateway", string(gateway)),
	)
	return nil
}
