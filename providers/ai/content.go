package ai

import (
	"regexp"
	"strings"

	"github.com/leofalp/polychat/internal/jsonvalue"
)

// imageURLTagOpen and imageURLTagClose wrap image payloads in reply text.
const (
	imageURLTagOpen  = "<image-url>"
	imageURLTagClose = "</image-url>"
)

// thinkBlockPattern matches a leading <think>...</think> block.
var thinkBlockPattern = regexp.MustCompile(`(?s)^\s*<think>(.*?)</think>`)

// WrapImageURL returns url wrapped in the image-url marker understood by the
// rendering layer. url may be a remote URL, a data: URL or bare base64.
func WrapImageURL(url string) string {
	return imageURLTagOpen + url + imageURLTagClose
}

// ExtractTextContent resolves the shapes vendors use for message content to a
// single string. ok is false when nothing textual could be found.
func ExtractTextContent(value jsonvalue.Value) (string, bool) {
	switch value.Kind() {
	case jsonvalue.String:
		return value.Str()

	case jsonvalue.Object:
		partType, _ := value.GetString("type")
		if partType == "text" {
			if text, ok := value.GetString("text"); ok {
				return text, true
			}
		}

		if imageURL, ok := value.Get("image_url"); ok || partType == "image_url" {
			if url := imageURLOf(imageURL); url != "" {
				return WrapImageURL(url), true
			}
		}

		for _, key := range []string{"text", "content", "value"} {
			if field, ok := value.Get(key); ok {
				return ExtractTextContent(field)
			}
		}
		return "", false

	case jsonvalue.Array:
		var parts []string
		for _, item := range value.Items() {
			if text, ok := ExtractTextContent(item); ok {
				parts = append(parts, text)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, "\n"), true

	default:
		return "", false
	}
}

func imageURLOf(value jsonvalue.Value) string {
	if url, ok := value.Str(); ok {
		return url
	}
	url, _ := value.GetString("url")
	return url
}

// ComposeResponse joins reasoning and content into the display form
// "<think>\nreasoning\n</think>\n\ncontent". Empty parts are omitted; ok is
// false when both are empty after trimming.
func ComposeResponse(reasoning, content string) (string, bool) {
	reasoning = strings.TrimSpace(reasoning)
	content = strings.TrimSpace(content)

	switch {
	case reasoning == "" && content == "":
		return "", false
	case reasoning == "":
		return content, true
	case content == "":
		return "<think>\n" + reasoning + "\n</think>", true
	default:
		return "<think>\n" + reasoning + "\n</think>\n\n" + content, true
	}
}

// SplitThinkTags separates leading <think> blocks, as emitted inline by
// open-weight reasoning models, from the remaining content. Text without a
// leading block is returned unchanged as content.
func SplitThinkTags(text string) (reasoning, content string) {
	var blocks []string
	matched := false
	rest := text
	for {
		match := thinkBlockPattern.FindStringSubmatchIndex(rest)
		if match == nil {
			break
		}
		matched = true
		if block := strings.TrimSpace(rest[match[2]:match[3]]); block != "" {
			blocks = append(blocks, block)
		}
		rest = rest[match[1]:]
	}
	if !matched {
		return "", text
	}
	return strings.Join(blocks, "\n\n"), strings.TrimSpace(rest)
}
