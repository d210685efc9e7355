package extractor

import (
	"errors"
	"unicode/utf8"
)

func extractPlainText(body []byte) (string, error) {
	body = stripBOM(body)
	if !utf8.Valid(body) {
		return "", errors.New("plain text is not valid UTF-8")
	}
	return string(body), nil
}

func stripBOM(body []byte) []byte {
	if len(body) >= 3 && body[0] == 0xEF && body[1] == 0xBB && body[2] == 0xBF {
		return body[3:]
	}
	return body
}
