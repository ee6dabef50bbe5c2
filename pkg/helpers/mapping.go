package helpers

import (
	"fmt"
	"strings"

	"github.com/oksasatya/go-ddd-auth-portal/pkg/mailer"
	mailtpl "github.com/oksasatya/go-ddd-auth-portal/pkg/mailer/templates"
)

// SubjectFor is the fallback subject when a job carries none.
func SubjectFor(job *mailer.EmailJob) string {
	switch strings.ToLower(job.Template) {
	case mailtpl.Welcome:
		return "Welcome aboard"
	case mailtpl.LoginNotification:
		return "New login to your account"
	case mailtpl.SecurityNotice:
		return "Security settings changed"
	default:
		return "Notification"
	}
}

func EnsureRecipientAndEmail(job *mailer.EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
}
