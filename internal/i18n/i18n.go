package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultLocale is used when nothing better can be negotiated.
const DefaultLocale = "pt-BR"

//go:embed locales/*.yaml
var embedded embed.FS

// Bundle holds flat key/value catalogs per locale.
type Bundle struct {
	dict     map[string]map[string]string
	fallback string
	names    []string
	matcher  language.Matcher
}

// Default loads the catalogs shipped with the binary with DefaultLocale as
// the fallback.
func Default() (*Bundle, error) {
	return Embedded(DefaultLocale)
}

// Embedded loads the catalogs shipped with the binary. fallback may be any tag
// matching a shipped catalog ("en-US" selects "en"); an unsupported fallback
// is an error.
func Embedded(fallback string) (*Bundle, error) {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: open embedded locales: %w", err)
	}
	b, err := Load(sub, DefaultLocale)
	if err != nil {
		return nil, err
	}
	name, ok := b.Normalize(fallback)
	if !ok {
		return nil, fmt.Errorf("i18n: unsupported fallback locale %q", fallback)
	}
	if name == b.fallback {
		return b, nil
	}
	return Load(sub, name)
}

// Load reads every <locale>.yaml file at the root of fsys. The fallback
// locale must be present.
func Load(fsys fs.FS, fallback string) (*Bundle, error) {
	files, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("i18n: list catalogs: %w", err)
	}

	b := &Bundle{
		dict:     make(map[string]map[string]string, len(files)),
		fallback: fallback,
	}
	for _, file := range files {
		raw, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("i18n: read %s: %w", file, err)
		}
		var messages map[string]string
		if err := yaml.Unmarshal(raw, &messages); err != nil {
			return nil, fmt.Errorf("i18n: unmarshal %s: %w", file, err)
		}
		b.dict[strings.TrimSuffix(path.Base(file), ".yaml")] = messages
	}
	if _, ok := b.dict[fallback]; !ok {
		return nil, fmt.Errorf("i18n: fallback locale %s not loaded", fallback)
	}

	// The fallback comes first so the matcher reports it when nothing matches.
	b.names = append(b.names, fallback)
	others := make([]string, 0, len(b.dict))
	for name := range b.dict {
		if name != fallback {
			others = append(others, name)
		}
	}
	sort.Strings(others)
	b.names = append(b.names, others...)

	tags := make([]language.Tag, 0, len(b.names))
	for _, name := range b.names {
		tags = append(tags, language.Make(name))
	}
	b.matcher = language.NewMatcher(tags)
	return b, nil
}

// Supported returns the loaded locales, fallback first.
func (b *Bundle) Supported() []string {
	return append([]string(nil), b.names...)
}

// Fallback returns the configured fallback locale.
func (b *Bundle) Fallback() string { return b.fallback }

// T returns the message for key in lang, falling back to the default locale and finally the key.
func (b *Bundle) T(lang, key string) string {
	if m, ok := b.dict[lang]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := b.dict[b.fallback]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}

// Resolve picks the best supported locale for an Accept-Language header.
func (b *Bundle) Resolve(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return b.fallback
	}
	return b.match(tags...)
}

// Normalize maps a user supplied locale (e.g. "?hl=en") onto a supported one.
func (b *Bundle) Normalize(lang string) (string, bool) {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return "", false
	}
	_, idx, conf := b.matcher.Match(tag)
	if conf == language.No {
		return "", false
	}
	return b.names[idx], true
}

func (b *Bundle) match(tags ...language.Tag) string {
	_, idx, conf := b.matcher.Match(tags...)
	if conf == language.No || idx < 0 || idx >= len(b.names) {
		return b.fallback
	}
	return b.names[idx]
}

// Localizer binds a bundle to a single locale.
func (b *Bundle) Localizer(lang string) Localizer {
	if _, ok := b.dict[lang]; !ok {
		lang = b.fallback
	}
	return Localizer{bundle: b, lang: lang}
}

// Localizer translates keys for one locale.
type Localizer struct {
	bundle *Bundle
	lang   string
}

// Lang returns the bound locale.
func (l Localizer) Lang() string { return l.lang }

// T translates key; a zero Localizer returns the key unchanged.
func (l Localizer) T(key string) string {
	if l.bundle == nil {
		return key
	}
	return l.bundle.T(l.lang, key)
}

// Tf translates key and formats it with args.
func (l Localizer) Tf(key string, args ...any) string {
	return fmt.Sprintf(l.T(key), args...)
}
