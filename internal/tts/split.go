// internal/tts/split.go
package tts

import (
	"strings"
	"unicode/utf8"
)

// MaxInputRunes 单次合成请求允许的最大字符数
const MaxInputRunes = 1000

// SplitText 将长文本按字符数上限切分为多段，尽量在词边界断开。
// 单个词超过上限时按字符硬切分。长度按Unicode字符计数。
func SplitText(text string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = MaxInputRunes
	}

	if utf8.RuneCountInString(text) <= maxLength {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, word := range strings.Fields(text) {
		wordLen := utf8.RuneCountInString(word)

		// 超长词：先落盘当前段，再按字符硬切分
		if wordLen > maxLength {
			flush()
			runes := []rune(word)
			for len(runes) > maxLength {
				chunks = append(chunks, string(runes[:maxLength]))
				runes = runes[maxLength:]
			}
			if len(runes) > 0 {
				current.WriteString(string(runes))
				currentLen = len(runes)
			}
			continue
		}

		// 加上分隔空格后超限则另起一段
		need := wordLen
		if currentLen > 0 {
			need++
		}
		if currentLen+need > maxLength {
			flush()
		}

		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(word)
		currentLen += wordLen
	}

	flush()
	return chunks
}
