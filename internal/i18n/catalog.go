// Package i18n translates message keys for the supported languages.
package i18n

import (
	"context"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Supported lists the languages with a full message set; the first is the default.
var Supported = []language.Tag{language.English, language.Indonesian}

var messages = map[language.Tag]map[string]string{
	language.English: {
		"bonuses.title":       "Bonuses",
		"defects.title":       "Defects",
		"reports.reports":     "Reports",
		"general.delete":      "Delete",
		"users.title":         "Users",
		"users.not_created":   "The user could not be created.",
		"users.email_taken":   "A user with this email already exists.",
		"users.no_employee":   "The requested employee does not exist.",
		"users.not_deleted":   "The user could not be deleted.",
		"users.admin_only":    "Only administrators can do this.",
		"users.invalid_input": "Some fields are invalid.",
		"users.created":       "User %s created.",
		"users.deleted":       "User #%d deleted.",
		"reports.no_employee": "No employee found.",
		"auth.invalid":        "Invalid email or password.",
		"auth.welcome":        "Welcome back.",
		"auth.login":          "Sign in",
	},
	language.Indonesian: {
		"bonuses.title":       "Bonus",
		"defects.title":       "Cacat",
		"reports.reports":     "Laporan",
		"general.delete":      "Hapus",
		"users.title":         "Pengguna",
		"users.not_created":   "Pengguna tidak dapat dibuat.",
		"users.email_taken":   "Pengguna dengan email ini sudah ada.",
		"users.no_employee":   "Karyawan yang diminta tidak ditemukan.",
		"users.not_deleted":   "Pengguna tidak dapat dihapus.",
		"users.admin_only":    "Hanya administrator yang dapat melakukan ini.",
		"users.invalid_input": "Beberapa isian tidak valid.",
		"users.created":       "Pengguna %s dibuat.",
		"users.deleted":       "Pengguna #%d dihapus.",
		"reports.no_employee": "Tidak ada karyawan.",
		"auth.invalid":        "Email atau password tidak valid",
		"auth.welcome":        "Selamat datang kembali",
		"auth.login":          "Masuk",
	},
}

// Catalog renders message keys through golang.org/x/text printers.
type Catalog struct {
	builder  *catalog.Builder
	matcher  language.Matcher
	ordered  []language.Tag
	fallback language.Tag
}

// NewCatalog loads the built-in messages. fallback must be one of Supported.
func NewCatalog(fallback language.Tag) (*Catalog, error) {
	builder := catalog.NewBuilder(catalog.Fallback(fallback))
	for tag, msgs := range messages {
		for key, text := range msgs {
			if err := builder.SetString(tag, key, text); err != nil {
				return nil, err
			}
		}
	}
	ordered := []language.Tag{fallback}
	for _, t := range Supported {
		if t != fallback {
			ordered = append(ordered, t)
		}
	}
	return &Catalog{builder: builder, matcher: language.NewMatcher(ordered), ordered: ordered, fallback: fallback}, nil
}

// Match picks the closest supported language for the given preferences.
func (c *Catalog) Match(prefs ...language.Tag) language.Tag {
	_, idx, conf := c.matcher.Match(prefs...)
	if conf == language.No {
		return c.fallback
	}
	return c.ordered[idx]
}

// Translate formats key for tag. Unknown keys come back unchanged.
func (c *Catalog) Translate(tag language.Tag, key string, args ...any) string {
	if _, ok := messages[tag][key]; !ok {
		tag = c.fallback
	}
	p := message.NewPrinter(tag, message.Catalog(c.builder))
	return p.Sprintf(key, args...)
}

type langKey struct{}

// WithLanguage stores the negotiated language in ctx.
func WithLanguage(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, langKey{}, tag)
}

// FromContext returns the negotiated language, or English when none was stored.
func FromContext(ctx context.Context) language.Tag {
	if tag, ok := ctx.Value(langKey{}).(language.Tag); ok {
		return tag
	}
	return Supported[0]
}

// Middleware negotiates Accept-Language for every request.
func (c *Catalog) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefs, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
		tag := c.fallback
		if err == nil && len(prefs) > 0 {
			tag = c.Match(prefs...)
		}
		next.ServeHTTP(w, r.WithContext(WithLanguage(r.Context(), tag)))
	})
}
