// Package locale renders the human-readable recommended action for a fraud tier.
package locale

import (
	"fmt"
	"strings"

	"github.com/hiethm9980-coder/cebx-code-sub001/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

var supported = []language.Tag{language.Arabic, language.English}

var matcher = language.NewMatcher(supported)

var actions = map[language.Tag]map[domain.Tier]string{
	language.English: {
		domain.TierClear:   "No action required",
		domain.TierFlag:    "Monitor shipment",
		domain.TierReview:  "Manual review required before dispatch",
		domain.TierBlocked: "Block shipment and notify compliance",
	},
	language.Arabic: {
		domain.TierClear:   "لا يلزم اتخاذ إجراء",
		domain.TierFlag:    "مراقبة الشحنة",
		domain.TierReview:  "مراجعة يدوية مطلوبة قبل الإرسال",
		domain.TierBlocked: "حظر الشحنة وإبلاغ فريق الامتثال",
	},
}

func key(tier domain.Tier) string {
	return "fraud.action." + string(tier)
}

// Catalog resolves recommended actions in one language.
// It is immutable after New and safe for concurrent use.
type Catalog struct {
	tag     language.Tag
	actions map[domain.Tier]string
}

// New builds a catalog for a BCP 47 locale such as "ar" or "en-GB".
// Unsupported locales fall back to Arabic.
func New(locale string) (*Catalog, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.Arabic))
	for tag, byTier := range actions {
		for tier, text := range byTier {
			if err := b.SetString(tag, key(tier), text); err != nil {
				return nil, fmt.Errorf("failed to register %s action for %s: %w", tier, tag, err)
			}
		}
	}

	tag := language.Arabic
	if locale = strings.TrimSpace(locale); locale != "" {
		requested, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("invalid locale %q: %w", locale, err)
		}
		_, idx, _ := matcher.Match(requested)
		tag = supported[idx]
	}

	p := message.NewPrinter(tag, message.Catalog(b))
	c := &Catalog{tag: tag, actions: make(map[domain.Tier]string, len(domain.Tiers))}
	for _, tier := range domain.Tiers {
		c.actions[tier] = p.Sprintf(key(tier))
	}
	return c, nil
}

// Language returns the resolved language.
func (c *Catalog) Language() language.Tag {
	return c.tag
}

// Action returns the recommended action for a tier.
func (c *Catalog) Action(tier domain.Tier) string {
	if text, ok := c.actions[tier]; ok {
		return text
	}
	return c.actions[domain.TierReview]
}

// CountryCode normalizes an ISO 3166 country code for comparison.
func CountryCode(code string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(code))
}
