// Package detection implements the heuristic subscription detector: sender
// catalog, signal extractors and the confidence scorer.
package detection

import (
	"strings"
	"sync"
)

// =============================================================================
// Pattern Catalog
// =============================================================================

// PatternEntry maps a sender domain fragment to a known subscription service.
type PatternEntry struct {
	SenderFragment  string
	CanonicalName   string
	LogoURL         string
	WebsiteURL      string
	DefaultCategory string
}

// Catalog is an immutable, ordered list of known billing senders.
// Lookup is first-match-wins, so order matters.
type Catalog struct {
	entries []PatternEntry
}

// NewCatalog copies entries into a new catalog. Fragments are lowercased.
func NewCatalog(entries []PatternEntry) *Catalog {
	cp := make([]PatternEntry, len(entries))
	for i, e := range entries {
		e.SenderFragment = strings.ToLower(e.SenderFragment)
		cp[i] = e
	}
	return &Catalog{entries: cp}
}

// Lookup returns the first entry whose fragment occurs in the lowercased sender header.
func (c *Catalog) Lookup(sender string) (PatternEntry, bool) {
	from := strings.ToLower(sender)
	for _, e := range c.entries {
		if strings.Contains(from, e.SenderFragment) {
			return e, true
		}
	}
	return PatternEntry{}, false
}

func (c *Catalog) Len() int { return len(c.entries) }

// Entries returns a copy of the catalog in lookup order.
func (c *Catalog) Entries() []PatternEntry {
	out := make([]PatternEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the shipped sender table, built once.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		entries := make([]PatternEntry, 0, len(knownSenders))
		for _, s := range knownSenders {
			entries = append(entries, PatternEntry{
				SenderFragment:  s.domain,
				CanonicalName:   s.name,
				LogoURL:         "https://logo.clearbit.com/" + s.domain,
				WebsiteURL:      "https://" + s.domain,
				DefaultCategory: s.category,
			})
		}
		defaultCatalog = NewCatalog(entries)
	})
	return defaultCatalog
}

type knownSender struct {
	domain   string
	name     string
	category string
}

const (
	catEntertainment = "Entertainment"
	catProductivity  = "Productivity"
	catCloud         = "Cloud"
	catDesign        = "Design"
	catDevTools      = "Developer Tools"
	catCommunication = "Communication"
	catAI            = "AI Tools"
	catMarketing     = "Marketing"
	catBusiness      = "Business"
	catSecurity      = "Security"
	catEducation     = "Education"
	catHealth        = "Health & Fitness"
	catGaming        = "Gaming"
	catUtilities     = "Utilities"
)

var knownSenders = []knownSender{
	// Streaming & Entertainment
	{"netflix.com", "Netflix", catEntertainment},
	{"spotify.com", "Spotify", catEntertainment},
	{"apple.com", "Apple", catEntertainment},
	{"hulu.com", "Hulu", catEntertainment},
	{"disneyplus.com", "Disney+", catEntertainment},
	{"max.com", "Max (HBO)", catEntertainment},
	{"hbo.com", "HBO Max", catEntertainment},
	{"paramountplus.com", "Paramount+", catEntertainment},
	{"peacocktv.com", "Peacock", catEntertainment},
	{"crunchyroll.com", "Crunchyroll", catEntertainment},
	{"youtube.com", "YouTube Premium", catEntertainment},
	{"twitch.tv", "Twitch", catEntertainment},
	{"audible.com", "Audible", catEntertainment},
	{"scribd.com", "Scribd", catEntertainment},
	{"plex.tv", "Plex Pass", catEntertainment},
	{"dazn.com", "DAZN", catEntertainment},
	// Music
	{"tidal.com", "Tidal", catEntertainment},
	// Cloud & Productivity
	{"amazon.com", "Amazon Prime", catEntertainment},
	{"microsoft.com", "Microsoft 365", catProductivity},
	{"google.com", "Google One", catCloud},
	{"dropbox.com", "Dropbox", catCloud},
	{"notion.so", "Notion", catProductivity},
	{"evernote.com", "Evernote", catProductivity},
	{"airtable.com", "Airtable", catProductivity},
	{"monday.com", "Monday.com", catProductivity},
	{"asana.com", "Asana", catProductivity},
	{"trello.com", "Trello", catProductivity},
	{"atlassian.com", "Atlassian", catProductivity},
	{"linear.app", "Linear", catProductivity},
	// Design & Dev
	{"figma.com", "Figma", catDesign},
	{"adobe.com", "Adobe", catDesign},
	{"canva.com", "Canva", catDesign},
	{"sketch.com", "Sketch", catDesign},
	{"webflow.com", "Webflow", catDesign},
	{"github.com", "GitHub", catDevTools},
	{"gitlab.com", "GitLab", catDevTools},
	{"jetbrains.com", "JetBrains", catDevTools},
	{"vercel.com", "Vercel", catCloud},
	{"digitalocean.com", "DigitalOcean", catCloud},
	{"cloudflare.com", "Cloudflare", catCloud},
	{"heroku.com", "Heroku", catCloud},
	{"postman.com", "Postman", catDevTools},
	{"sentry.io", "Sentry", catDevTools},
	{"datadoghq.com", "Datadog", catDevTools},
	// Communication & Collaboration
	{"slack.com", "Slack", catCommunication},
	{"zoom.us", "Zoom", catCommunication},
	{"loom.com", "Loom", catCommunication},
	{"intercom.com", "Intercom", catBusiness},
	{"zendesk.com", "Zendesk", catBusiness},
	{"discord.com", "Discord Nitro", catCommunication},
	// AI Tools
	{"openai.com", "ChatGPT Plus", catAI},
	{"anthropic.com", "Claude Pro", catAI},
	{"midjourney.com", "Midjourney", catAI},
	{"grammarly.com", "Grammarly", catAI},
	// Marketing & CRM
	{"mailchimp.com", "Mailchimp", catMarketing},
	{"hubspot.com", "HubSpot", catMarketing},
	{"salesforce.com", "Salesforce", catBusiness},
	{"typeform.com", "Typeform", catMarketing},
	{"mixpanel.com", "Mixpanel", catMarketing},
	// Website & Domain
	{"shopify.com", "Shopify", catBusiness},
	{"squarespace.com", "Squarespace", catBusiness},
	{"wix.com", "Wix", catBusiness},
	{"godaddy.com", "GoDaddy", catBusiness},
	{"namecheap.com", "Namecheap", catBusiness},
	// Security & Privacy
	{"lastpass.com", "LastPass", catSecurity},
	{"1password.com", "1Password", catSecurity},
	{"dashlane.com", "Dashlane", catSecurity},
	{"bitwarden.com", "Bitwarden", catSecurity},
	{"nordvpn.com", "NordVPN", catSecurity},
	{"expressvpn.com", "ExpressVPN", catSecurity},
	// Learning
	{"duolingo.com", "Duolingo Plus", catEducation},
	{"coursera.org", "Coursera", catEducation},
	{"udemy.com", "Udemy", catEducation},
	{"skillshare.com", "Skillshare", catEducation},
	{"masterclass.com", "MasterClass", catEducation},
	{"linkedin.com", "LinkedIn Premium", catEducation},
	// Health & Wellness
	{"headspace.com", "Headspace", catHealth},
	{"calm.com", "Calm", catHealth},
	{"strava.com", "Strava", catHealth},
	{"onepeloton.com", "Peloton", catHealth},
	// Gaming
	{"xbox.com", "Xbox Game Pass", catGaming},
	{"playstation.com", "PlayStation Plus", catGaming},
	{"nintendo.com", "Nintendo Switch Online", catGaming},
	{"steampowered.com", "Steam", catGaming},
	{"epicgames.com", "Epic Games", catGaming},
	{"ea.com", "EA Play", catGaming},
	// Creator & Content
	{"patreon.com", "Patreon", catEntertainment},
	{"substack.com", "Substack", catEntertainment},
	{"medium.com", "Medium", catEntertainment},
	// Food & Delivery
	{"doordash.com", "DashPass", catUtilities},
	{"ubereats.com", "Uber One", catUtilities},
}
