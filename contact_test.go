package main

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []ContactMessage
	err  error
}

func (m *fakeMailer) Send(msg ContactMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func contactForm(name, email, message string) *strings.Reader {
	return formBody(url.Values{"fullName": {name}, "email": {email}, "message": {message}})
}

func TestContactMessage_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msg     ContactMessage
		wantErr bool
	}{
		{"valid", ContactMessage{"Ann", "ann@example.com", "Hello"}, false},
		{"missing name", ContactMessage{"", "ann@example.com", "Hello"}, true},
		{"missing message", ContactMessage{"Ann", "ann@example.com", "  "}, true},
		{"bad email", ContactMessage{"Ann", "not-an-email", "Hello"}, true},
		{"header injection", ContactMessage{"Ann\r\nBcc: x@example.com", "ann@example.com", "Hello"}, true},
		{"too long", ContactMessage{"Ann", "ann@example.com", strings.Repeat("a", maxContactMessage+1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errInvalidContact) {
				t.Errorf("Validate() error = %v, want errInvalidContact", err)
			}
		})
	}
}

func TestComposeEmail(t *testing.T) {
	t.Parallel()

	got := string(composeEmail("site@example.com", "me@example.com", ContactMessage{"Ann", "ann@example.com", "Hi there"}))
	for _, want := range []string{
		"To: me@example.com\r\n",
		"Subject: Portfolio Contact: Ann\r\n",
		"From: site@example.com\r\n",
		"Reply-To: ann@example.com\r\n",
		"Hi there",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("email does not contain %q", want)
		}
	}
}

func TestContact(t *testing.T) {
	t.Parallel()
	mailer := &fakeMailer{}
	env := newTestEnv(t, mailer)

	assertContains(t, env.get("/").Body.String(), `id="contact-form"`)

	rec := env.do(http.MethodPost, "/contact", contactForm("Ann", "ann@example.com", "Hello!"), asForm)
	assertStatus(t, rec, http.StatusOK)
	assertContains(t, rec.Body.String(), "contact-success")

	want := []ContactMessage{{Name: "Ann", Email: "ann@example.com", Message: "Hello!"}}
	if diff := cmp.Diff(want, mailer.sent); diff != "" {
		t.Errorf("sent mismatch (-want +got):\n%s", diff)
	}

	rec = env.do(http.MethodPost, "/contact", contactForm("Ann", "nope", "Hello!"), asForm)
	assertStatus(t, rec, http.StatusBadRequest)
	assertContains(t, rec.Body.String(), contactInvalid)
}

func TestContact_SendFailure(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, &fakeMailer{err: errors.New("smtp down")})

	rec := env.do(http.MethodPost, "/contact", contactForm("Ann", "ann@example.com", "Hello!"), asForm)
	assertStatus(t, rec, http.StatusOK)
	assertContains(t, rec.Body.String(), "contact-error")
}

func TestContact_Disabled(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/contact", contactForm("Ann", "ann@example.com", "Hello!"), asForm)
	assertStatus(t, rec, http.StatusServiceUnavailable)
}
