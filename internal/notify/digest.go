package notify

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"text/template"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	commonaws "study-abroad-engine/internal/common/aws"
	"study-abroad-engine/internal/engine"
)

const digestSubject = "Your university recommendations"

// Digest is the content of one recommendation e-mail.
type Digest struct {
	To              string
	StudentName     string
	Recommendations []engine.Recommendation
}

type digestLine struct {
	Rank        int
	Name        string
	Country     string
	Score       string
	Admission   string
	AnnualCost  string
	Explanation []string
}

func (d Digest) lines() []digestLine {
	out := make([]digestLine, len(d.Recommendations))
	for i, r := range d.Recommendations {
		out[i] = digestLine{
			Rank:        r.Rank,
			Name:        r.UniversityName,
			Country:     r.Country,
			Score:       fmt.Sprintf("%.1f%%", r.Scores.Overall*100),
			Admission:   fmt.Sprintf("%s (%.1f%%)", r.Scores.AdmissionCategory, r.Scores.AdmissionProbability*100),
			AnnualCost:  fmt.Sprintf("$%.0f", r.Costs.TotalAnnualCost),
			Explanation: r.Explanation,
		}
	}
	return out
}

var textDigest = template.Must(template.New("digest-text").Parse(
	`Hello{{if .Name}} {{.Name}}{{end}},

Here are your top university matches:
{{range .Lines}}
{{.Rank}}. {{.Name}} ({{.Country}})
   Match score: {{.Score}}
   Admission: {{.Admission}}
   Estimated annual cost: {{.AnnualCost}}
{{- range .Explanation}}
   - {{.}}
{{- end}}
{{end}}`))

var htmlDigest = htmltemplate.Must(htmltemplate.New("digest-html").Parse(
	`<p>Hello{{if .Name}} {{.Name}}{{end}},</p>
<p>Here are your top university matches:</p>
<ol>
{{- range .Lines}}
<li><strong>{{.Name}}</strong> ({{.Country}})<br>
Match score: {{.Score}}<br>
Admission: {{.Admission}}<br>
Estimated annual cost: {{.AnnualCost}}
<ul>{{range .Explanation}}<li>{{.}}</li>{{end}}</ul>
</li>
{{- end}}
</ol>`))

// Render returns the plain-text and HTML bodies.
func (d Digest) Render() (string, string, error) {
	data := struct {
		Name  string
		Lines []digestLine
	}{Name: d.StudentName, Lines: d.lines()}

	var text, html bytes.Buffer
	if err := textDigest.Execute(&text, data); err != nil {
		return "", "", fmt.Errorf("render text digest: %w", err)
	}
	if err := htmlDigest.Execute(&html, data); err != nil {
		return "", "", fmt.Errorf("render html digest: %w", err)
	}
	return text.String(), html.String(), nil
}

// SendDigest e-mails d through SES. With e-mail disabled it returns a "disabled" receipt.
func (n *Notifier) SendDigest(ctx context.Context, d Digest) (*Receipt, error) {
	if !n.DigestEnabled() {
		return n.receipt(StatusDisabled, ""), nil
	}
	if d.To == "" {
		return nil, ErrNoRecipient
	}

	text, html, err := d.Render()
	if err != nil {
		return nil, err
	}

	out, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{d.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(digestSubject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(text)},
				Html: &types.Content{Data: aws.String(html)},
			},
		},
		Source: aws.String(n.cfg.SES.FromEmail),
	})
	if err != nil {
		n.logger.Warn("ses send failed", map[string]interface{}{
			"awsErrorCode": commonaws.ErrorCode(err),
			"throttled":    commonaws.Throttled(err),
		})
		return nil, fmt.Errorf("ses send: %w", err)
	}

	r := n.receipt(StatusSent, "")
	if out != nil && out.MessageId != nil {
		r.MessageID = *out.MessageId
	}
	n.logger.Info("recommendation digest sent", map[string]interface{}{
		"notificationId":  r.NotificationID,
		"recommendations": len(d.Recommendations),
	})
	return r, nil
}
