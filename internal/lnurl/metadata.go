package lnurl

import (
	"encoding/json"
	"strings"
)

var imageMIME = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
}

// Metadata renders the LNURL-pay metadata JSON: an ordered list of
// [mimeType, content] pairs. The text/plain description is always first;
// a recognized image URL appends an image entry.
func Metadata(description, imageURL string) (string, error) {
	pairs := [][2]string{{"text/plain", description}}
	if imageURL != "" {
		ext := strings.ToLower(imageURL[strings.LastIndexByte(imageURL, '.')+1:])
		if mime, ok := imageMIME[ext]; ok {
			pairs = append(pairs, [2]string{mime, imageURL})
		}
	}
	out, err := json.Marshal(pairs)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// SuccessAction is the tagged action a wallet shows after a successful
// payment: either a plain message or a described URL.
type SuccessAction struct {
	Tag         string `json:"tag"`
	Message     string `json:"message,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

func MessageAction(message string) SuccessAction {
	return SuccessAction{Tag: "message", Message: message}
}

func URLAction(description, url string) SuccessAction {
	return SuccessAction{Tag: "url", Description: description, URL: url}
}
