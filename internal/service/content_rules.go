package service

import (
	"strings"
	"unicode/utf8"

	"github.com/maheshrc27/postsphere/internal/models"
	"github.com/maheshrc27/postsphere/internal/platforms"
)

// ContentRule limits what a post may contain on one platform. A zero
// MaxHashtags means hashtags are not limited.
type ContentRule struct {
	MaxLength     int
	MaxHashtags   int
	RequiresMedia bool
}

var contentRules = map[platforms.Platform]ContentRule{
	platforms.Twitter:   {MaxLength: 280, MaxHashtags: 3},
	platforms.Instagram: {MaxLength: 2200, MaxHashtags: 30, RequiresMedia: true},
	platforms.Facebook:  {MaxLength: 63206, MaxHashtags: 5},
	platforms.LinkedIn:  {MaxLength: 3000},
	platforms.Threads:   {MaxLength: 500},
	platforms.TikTok:    {MaxLength: 2200, RequiresMedia: true},
	platforms.Mastodon:  {MaxLength: 500},
}

func RuleFor(p platforms.Platform) (ContentRule, bool) {
	r, ok := contentRules[p]
	return r, ok
}

// CheckContent validates a post body against the rules of its platform.
// Length is counted in characters, not bytes.
func CheckContent(p platforms.Platform, content, mediaURL, mediaKind string) error {
	rule, ok := contentRules[p]
	if !ok {
		return invalidf("no content rules for platform %q", p)
	}
	if strings.TrimSpace(content) == "" && mediaURL == "" {
		return invalidf("post is empty")
	}
	if n := utf8.RuneCountInString(content); n > rule.MaxLength {
		return invalidf("%s posts are limited to %d characters, got %d", p, rule.MaxLength, n)
	}
	if rule.MaxHashtags > 0 {
		if n := countHashtags(content); n > rule.MaxHashtags {
			return invalidf("%s posts are limited to %d hashtags, got %d", p, rule.MaxHashtags, n)
		}
	}

	switch {
	case mediaURL == "" && mediaKind != "":
		return invalidf("media_kind given without media_url")
	case mediaURL != "" && mediaKind != models.MediaKindImage && mediaKind != models.MediaKindVideo:
		return invalidf("media_kind must be %q or %q", models.MediaKindImage, models.MediaKindVideo)
	case rule.RequiresMedia && mediaURL == "":
		return invalidf("%s posts require an image or video", p)
	}
	return nil
}

func countHashtags(content string) int {
	n := 0
	for _, word := range strings.Fields(content) {
		if len(word) > 1 && word[0] == '#' {
			n++
		}
	}
	return n
}
