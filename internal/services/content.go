package services

import (
	"fmt"
	"html"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Sanitizer cleans user-supplied comment HTML
type Sanitizer struct {
	ugc    *bluemonday.Policy
	strict *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{ugc: bluemonday.UGCPolicy(), strict: bluemonday.StrictPolicy()}
}

// Clean returns the sanitized HTML and whether any visible text remains once markup is stripped
func (s *Sanitizer) Clean(raw string) (string, bool) {
	clean := strings.TrimSpace(s.ugc.Sanitize(raw))
	text := strings.TrimSpace(html.UnescapeString(s.strict.Sanitize(clean)))
	return clean, text != ""
}

// HasBlogContent reports whether a rich-text document has at least one non-empty node.
// A document holding a single paragraph without content is what an untouched editor sends.
func HasBlogContent(doc map[string]interface{}) bool {
	nodes, ok := contentNodes(doc)
	if !ok || len(nodes) == 0 {
		return false
	}
	if len(nodes) == 1 {
		if node, ok := nodes[0].(map[string]interface{}); ok {
			_, hasInner := node["content"]
			if node["type"] == "paragraph" && !hasInner {
				return false
			}
		}
	}
	return true
}

func hasAnyBlogContent(doc map[string]interface{}) bool {
	nodes, ok := contentNodes(doc)
	return ok && len(nodes) > 0
}

func contentNodes(doc map[string]interface{}) ([]interface{}, bool) {
	if doc == nil {
		return nil, false
	}
	switch nodes := doc["content"].(type) {
	case []interface{}:
		return nodes, true
	case primitive.A:
		return nodes, true
	default:
		return nil, false
	}
}

// NewBlogID returns an external blog identifier: "blog_" + base36 millis + 8 random characters
func NewBlogID() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "blog_" + strconv.FormatInt(time.Now().UnixMilli(), 36) + random
}

var (
	profileImgNames       = []string{"Garfield", "Tinkerbell", "Annie", "Loki", "Cleo", "Angel", "Bob", "Mia", "Coco", "Gracie", "Bear", "Bella", "Abby", "Harley", "Cali", "Leo", "Luna", "Jack", "Felix", "Kiki"}
	profileImgCollections = []string{"notionists-neutral", "adventurer-neutral", "fun-emoji"}
)

func defaultProfileImg() string {
	return fmt.Sprintf("https://api.dicebear.com/6.x/%s/svg?seed=%s",
		profileImgCollections[rand.IntN(len(profileImgCollections))],
		profileImgNames[rand.IntN(len(profileImgNames))])
}

func usernameCandidate(email string) string {
	prefix, _, _ := strings.Cut(strings.ToLower(email), "@")
	return fmt.Sprintf("%s%d", prefix, 1000+rand.IntN(9000))
}
