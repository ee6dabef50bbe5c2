package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-ddd-auth-portal/pkg/mailer"
	mailtpl "github.com/oksasatya/go-ddd-auth-portal/pkg/mailer/templates"
)

type sent struct {
	to, subject, text, html string
}

type fakeSender struct {
	got []sent
	err error
}

func (f *fakeSender) Send(_ context.Context, to, subject, text, html string) error {
	f.got = append(f.got, sent{to, subject, text, html})
	return f.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func body(t *testing.T, job mailer.EmailJob) []byte {
	t.Helper()
	b, err := json.Marshal(job)
	require.NoError(t, err)
	return b
}

func TestHandleRendersTemplate(t *testing.T) {
	s := &fakeSender{}
	w := &worker{Sender: s, Logger: quietLogger()}
	data := mailtpl.NewSecurityNoticeData(mailtpl.Brand{AppName: "Turtle"}, "Ada", "ada@example.com", "password changed",
		mailtpl.WithIP("10.0.0.1"), mailtpl.WithTime(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)), mailtpl.WithTimezone("UTC"))

	out := w.Handle(context.Background(), body(t, mailer.EmailJob{To: "ada@example.com", Template: mailtpl.SecurityNotice, Data: data}))
	assert.Equal(t, outcomeSent, out)
	require.Len(t, s.got, 1)
	assert.Equal(t, "ada@example.com", s.got[0].to)
	assert.NotEmpty(t, s.got[0].subject)
	assert.Contains(t, s.got[0].text, "password changed")
	assert.NotEmpty(t, s.got[0].html)
}

func TestHandlePlainJob(t *testing.T) {
	s := &fakeSender{}
	w := &worker{Sender: s, Logger: quietLogger()}
	out := w.Handle(context.Background(), body(t, mailer.EmailJob{To: "ada@example.com", Text: "hi"}))
	assert.Equal(t, outcomeSent, out)
	assert.Equal(t, "Notification", s.got[0].subject)
}

func TestHandleDropsBadMessages(t *testing.T) {
	s := &fakeSender{}
	w := &worker{Sender: s, Logger: quietLogger()}

	assert.Equal(t, outcomeDrop, w.Handle(context.Background(), []byte("{not json")))
	assert.Equal(t, outcomeDrop, w.Handle(context.Background(), body(t, mailer.EmailJob{To: "ada@example.com", Template: "missing"})))
	assert.Equal(t, outcomeDrop, w.Handle(context.Background(), body(t, mailer.EmailJob{To: "ada@example.com"})))
	assert.Empty(t, s.got)
}

func TestHandleRetriesSendFailure(t *testing.T) {
	s := &fakeSender{err: errors.New("mailgun down")}
	w := &worker{Sender: s, Logger: quietLogger()}
	out := w.Handle(context.Background(), body(t, mailer.EmailJob{To: "ada@example.com", Text: "hi"}))
	assert.Equal(t, outcomeRetry, out)
}
