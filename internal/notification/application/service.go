package application

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/wyfcoding/bookstore/internal/notification/domain"
	orderdomain "github.com/wyfcoding/bookstore/internal/order/domain"
	userdomain "github.com/wyfcoding/bookstore/internal/user/domain"
	"github.com/wyfcoding/pkg/logging"
)

const orderConfirmationTemplate = `<html>
<body>
<p>Dear {{.User.FirstName}} {{.User.LastName}},</p>
<p>Thank you for your order <strong>{{.Order.OrderNumber}}</strong>, placed on {{.Order.OrderDate.Format "Jan 2, 2006"}}.</p>
<table>
{{range .Order.Items}}<tr><td>{{.BookTitle}}</td><td>x{{.Qty}}</td><td>{{.Subtotal}}</td></tr>
{{end}}</table>
<p>Subtotal: {{.Order.Subtotal}}<br>
Shipping: {{.Order.ShippingCost}}<br>
Total: {{.Order.Total}}</p>
<p>Estimated delivery: {{.Order.EstimatedDeliveryDate.Format "Jan 2, 2006"}}</p>
</body>
</html>`

// MailService 交易类邮件应用服务
// 每次发送写一条通知留痕；发送失败由调用方决定如何处理，留痕失败只记日志
type MailService struct {
	sender        domain.Sender
	notifications domain.NotificationRepository
	baseURL       string
	orderTmpl     *template.Template
}

func NewMailService(sender domain.Sender, notifications domain.NotificationRepository, baseURL string) *MailService {
	return &MailService{
		sender:        sender,
		notifications: notifications,
		baseURL:       baseURL,
		orderTmpl:     template.Must(template.New("orderConfirmation").Parse(orderConfirmationTemplate)),
	}
}

// SendOrderConfirmation 订单确认邮件（HTML）
func (s *MailService) SendOrderConfirmation(ctx context.Context, user *userdomain.User, order *orderdomain.Order) error {
	var body bytes.Buffer
	data := struct {
		User  *userdomain.User
		Order *orderdomain.Order
	}{User: user, Order: order}
	if err := s.orderTmpl.Execute(&body, data); err != nil {
		return err
	}

	subject := "Order Confirmation - " + order.OrderNumber
	err := s.sender.Send(ctx, user.Email, subject, body.String(), true)
	s.record(ctx, user.ID, subject, user.Email, err)
	return err
}

// SendAccountEmail 注册确认与找回密码邮件（纯文本）
// 正文包含一次性令牌链接；tempPassword 非空时附带临时密码
func (s *MailService) SendAccountEmail(ctx context.Context, user *userdomain.User, token, tempPassword string) error {
	url := s.baseURL + "/newUser?token=" + token
	var body string
	if tempPassword != "" {
		body = fmt.Sprintf(
			"%s\nPlease click on this link to verify your email and edit your personal information. Your temporary password is:\n%s",
			url, tempPassword)
	} else {
		body = url + "\nPlease click on this link to reset your password."
	}

	subject := "Bookstore - Account Verification"
	err := s.sender.Send(ctx, user.Email, subject, body, false)
	s.record(ctx, user.ID, subject, user.Email, err)
	return err
}

func (s *MailService) record(ctx context.Context, userID uint, subject, target string, sendErr error) {
	notification := &domain.Notification{
		UserID:  userID,
		Type:    domain.NotificationTypeEmail,
		Subject: subject,
		Target:  target,
	}
	if sendErr != nil {
		notification.Status = domain.NotificationStatusFailed
		notification.ErrorMessage = sendErr.Error()
	} else {
		now := time.Now()
		notification.Status = domain.NotificationStatusSent
		notification.SentAt = &now
	}
	if err := s.notifications.Save(ctx, notification); err != nil {
		logging.Error(ctx, "failed to record notification", "user_id", userID, "error", err)
	}
}
