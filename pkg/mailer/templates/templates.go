package templates

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	htmpl "html/template"
	"strings"
	texttpl "text/template"
	"time"
)

//go:embed *.tmpl
var FS embed.FS

// Template names understood by Render.
const (
	VerifyEmail       = "verify_email"
	ResetPassword     = "reset_password"
	LoginNotification = "login_notification"
)

// EmailData defines standard fields for email templates.
type EmailData struct {
	Name        string `json:"Name"`
	Email       string `json:"Email"`
	CompanyName string `json:"CompanyName"`
	AppURL      string `json:"AppURL"`
	SupportURL  string `json:"SupportURL"`

	Code          string `json:"Code"`
	ExpiresAtText string `json:"ExpiresAtText"`
	Time          string `json:"Time"`
	IP            string `json:"IP"`
	UserAgent     string `json:"UserAgent"`
}

// ToMap converts EmailData to a map[string]any for EmailJob.Data
func ToMap(d EmailData) map[string]any {
	b, _ := json.Marshal(d)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

// Option pattern
type Option func(*EmailData)

func WithCode(code string) Option    { return func(d *EmailData) { d.Code = code } }
func WithIP(ip string) Option        { return func(d *EmailData) { d.IP = ip } }
func WithUserAgent(ua string) Option { return func(d *EmailData) { d.UserAgent = ua } }
func WithTime(t time.Time) Option {
	return func(d *EmailData) { d.Time = t.UTC().Format("02 January 2006, 15:04 MST") }
}
func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) { d.ExpiresAtText = t.UTC().Format("02 January 2006, 15:04 MST") }
}

// Brand carries the company fields shared by every email.
type Brand struct {
	CompanyName string
	AppURL      string
	SupportURL  string
}

func NewEmailData(b Brand, name, email string, opts ...Option) EmailData {
	d := EmailData{
		Name:        name,
		Email:       email,
		CompanyName: b.CompanyName,
		AppURL:      b.AppURL,
		SupportURL:  b.SupportURL,
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func defaultFn(fallback, value any) any {
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return fallback
	}
	if value == nil {
		return fallback
	}
	return value
}

var funcs = map[string]any{"default": defaultFn}

// Render executes the subject, text and html parts of the named template.
// Data may be EmailData or the map produced by ToMap.
func Render(name string, data any) (subject, text, html string, err error) {
	tt, err := texttpl.New(name).Funcs(funcs).ParseFS(FS, name+".txt.tmpl")
	if err != nil {
		return "", "", "", fmt.Errorf("parse %s text: %w", name, err)
	}
	ht, err := htmpl.New(name).Funcs(funcs).ParseFS(FS, name+".html.tmpl")
	if err != nil {
		return "", "", "", fmt.Errorf("parse %s html: %w", name, err)
	}

	var sb, tb, hb bytes.Buffer
	if err := tt.ExecuteTemplate(&sb, "subject", data); err != nil {
		return "", "", "", err
	}
	if err := tt.ExecuteTemplate(&tb, "text", data); err != nil {
		return "", "", "", err
	}
	if err := ht.ExecuteTemplate(&hb, "html", data); err != nil {
		return "", "", "", err
	}
	return strings.TrimSpace(sb.String()), strings.TrimSpace(tb.String()), hb.String(), nil
}
