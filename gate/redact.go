package gate

import (
	"regexp"
	"strings"
)

// RedactionConfig lists extra regex patterns scrubbed from audit summaries.
type RedactionConfig struct {
	Enabled  bool
	Patterns []RegexPattern
}

type RegexPattern struct {
	Name string
	Re   string
}

// Redactor scrubs sensitive-looking values from hints before they reach the
// audit trail. Order ids and amounts are never touched; only value-bearing
// key/value pairs and custom patterns are.
type Redactor struct {
	patterns []namedRe
}

type namedRe struct {
	name string
	re   *regexp.Regexp
}

func NewRedactor(cfg RedactionConfig) *Redactor {
	patterns := []namedRe{
		{name: "bearer_line", re: regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9._-]{10,}\b`)},
		{name: "simple_kv", re: regexp.MustCompile(`(?i)\b([A-Za-z0-9_-]{1,32})(\s*[:=]\s*)([A-Za-z0-9._-]{12,})`)},
	}

	if cfg.Enabled {
		for _, p := range cfg.Patterns {
			if strings.TrimSpace(p.Re) == "" {
				continue
			}
			re, err := regexp.Compile(p.Re)
			if err != nil {
				continue
			}
			name := strings.TrimSpace(p.Name)
			if name == "" {
				name = "custom"
			}
			patterns = append(patterns, namedRe{name: name, re: re})
		}
	}

	return &Redactor{patterns: patterns}
}

func (r *Redactor) RedactString(s string) (string, bool) {
	if strings.TrimSpace(s) == "" || r == nil || len(r.patterns) == 0 {
		return s, false
	}
	orig := s
	redacted := s

	redacted = r.replaceBearer(redacted)
	redacted = r.replaceSensitiveKV(redacted)

	// Custom patterns run last.
	for _, p := range r.patterns {
		switch p.name {
		case "bearer_line", "simple_kv":
			continue
		default:
			redacted = p.re.ReplaceAllString(redacted, "[redacted]")
		}
	}

	return redacted, redacted != orig
}

func (r *Redactor) replaceBearer(s string) string {
	re := r.find("bearer_line")
	if re == nil {
		return s
	}
	return re.ReplaceAllString(s, "Bearer [redacted]")
}

func (r *Redactor) replaceSensitiveKV(s string) string {
	re := r.find("simple_kv")
	if re == nil {
		return s
	}
	return re.ReplaceAllStringFunc(s, func(m string) string {
		sub := re.FindStringSubmatch(m)
		if len(sub) != 4 {
			return m
		}
		key := sub[1]
		if !isSensitiveKeyLike(key) {
			return m
		}
		return key + sub[2] + "[redacted]"
	})
}

func (r *Redactor) find(name string) *regexp.Regexp {
	if r == nil {
		return nil
	}
	for _, p := range r.patterns {
		if p.name == name {
			return p.re
		}
	}
	return nil
}

func isSensitiveKeyLike(key string) bool {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		return false
	}
	n := strings.ReplaceAll(strings.ReplaceAll(k, "-", ""), "_", "")
	switch {
	case strings.Contains(n, "apikey"):
		return true
	case strings.Contains(n, "authorization"):
		return true
	case strings.Contains(n, "token"):
		return true
	case strings.Contains(n, "secret"):
		return true
	case strings.Contains(n, "password"):
		return true
	}
	return false
}
