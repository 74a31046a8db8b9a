package service

import "strings"

const wordsPerMinute = 200

// EstimateReadingTime 按每分钟 200 词估算阅读时长，最少 1 分钟。
func EstimateReadingTime(content string) int {
	words := len(strings.Fields(content))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
