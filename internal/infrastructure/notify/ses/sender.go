package ses

import (
	"context"
	"fmt"
	"html"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/kirillkom/court-docket-router/internal/core/domain"
	"github.com/kirillkom/court-docket-router/internal/infrastructure/resilience"
)

type sendAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Notifier emails the docketing team when a trial or case management order is filed.
type Notifier struct {
	client      sendAPI
	fromAddress string
	fromName    string
	recipients  []string
	executor    *resilience.Executor
}

func New(ctx context.Context, region, fromAddress, fromName string, recipients []string, executor *resilience.Executor) (*Notifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return newNotifier(sesv2.NewFromConfig(cfg), fromAddress, fromName, recipients, executor), nil
}

func newNotifier(client sendAPI, fromAddress, fromName string, recipients []string, executor *resilience.Executor) *Notifier {
	return &Notifier{
		client:      client,
		fromAddress: fromAddress,
		fromName:    fromName,
		recipients:  recipients,
		executor:    executor,
	}
}

func (n *Notifier) NotifyTrialOrder(ctx context.Context, notice domain.TrialOrderNotice) error {
	if len(n.recipients) == 0 {
		return nil
	}

	subject := noticeSubject(notice)
	textBody := buildNoticeText(notice)
	htmlBody := buildNoticeHTML(notice)
	from := n.fromAddress
	if n.fromName != "" {
		from = fmt.Sprintf("%s <%s>", n.fromName, n.fromAddress)
	}

	_, err := resilience.Do(ctx, n.executor, "ses.send", func(ctx context.Context) (*sesv2.SendEmailOutput, error) {
		return n.client.SendEmail(ctx, &sesv2.SendEmailInput{
			FromEmailAddress: &from,
			Destination: &types.Destination{
				ToAddresses: n.recipients,
			},
			Content: &types.EmailContent{
				Simple: &types.Message{
					Subject: &types.Content{Data: &subject},
					Body: &types.Body{
						Html: &types.Content{Data: &htmlBody},
						Text: &types.Content{Data: &textBody},
					},
				},
			},
		})
	}, resilience.ClassifyTransient)
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

func noticeSubject(notice domain.TrialOrderNotice) string {
	label := "Trial order"
	if notice.Dates.DocumentType == domain.DocTypeCMO {
		label = "Case management order"
	}
	caseRef := notice.Identity.CaseNumber
	if caseRef == "" {
		caseRef = notice.Title
	}
	return fmt.Sprintf("%s filed: %s", label, caseRef)
}

func noticeFields(notice domain.TrialOrderNotice) [][2]string {
	fields := [][2]string{
		{"Document", notice.Title},
		{"Client", notice.Identity.Client},
		{"Matter", notice.Identity.Matter},
		{"Style", notice.Identity.Style},
		{"Case No.", notice.Identity.CaseNumber},
		{"Calendar Call", notice.Dates.CalendarCall},
		{"Trial Start", notice.Dates.TrialStart},
		{"Trial End", notice.Dates.TrialEnd},
		{"Filed To", notice.StoredPath},
	}
	out := fields[:0]
	for _, f := range fields {
		if strings.TrimSpace(f[1]) != "" {
			out = append(out, f)
		}
	}
	return out
}

func buildNoticeText(notice domain.TrialOrderNotice) string {
	var b strings.Builder
	b.WriteString(noticeSubject(notice))
	b.WriteString("\n\n")
	for _, f := range noticeFields(notice) {
		fmt.Fprintf(&b, "%s: %s\n", f[0], f[1])
	}
	return b.String()
}

func buildNoticeHTML(notice domain.TrialOrderNotice) string {
	var rows strings.Builder
	for _, f := range noticeFields(notice) {
		fmt.Fprintf(&rows, `    <tr><td style="color: #666; padding-right: 12px;">%s</td><td>%s</td></tr>
`, html.EscapeString(f[0]), html.EscapeString(f[1]))
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">%s</h2>
  <table>
%s  </table>
</body>
</html>`, html.EscapeString(noticeSubject(notice)), rows.String())
}
