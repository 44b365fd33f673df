package utils

import (
	"math/rand"
	"time"
)

// GetUserLevel maps reputation to a display rank.
func GetUserLevel(reputation int) (name string, icon string) {
	switch {
	case reputation >= 1000:
		return "Legend", "👑"
	case reputation >= 201:
		return "Power User", "🚀"
	case reputation >= 51:
		return "Tinkerer", "🔧"
	case reputation >= 11:
		return "Contributor", "🕹️"
	default:
		return "Newcomer", "🌱"
	}
}

// GetDaysSinceJoined returns whole days since the account was created.
func GetDaysSinceJoined(createdAt time.Time) int {
	return int(time.Since(createdAt).Hours() / 24)
}

// GetRandomEmoji returns a random emoji used as the default avatar.
func GetRandomEmoji() string {
	emojis := []string{"🎮", "🕹️", "👾", "🐧", "🦊", "🤖", "🧙", "🛸", "⚙️", "🔧", "💾", "🖥️"}
	return emojis[rand.Intn(len(emojis))]
}

// GetCommonEmojis returns the avatar picker choices.
func GetCommonEmojis() []string {
	return []string{
		"🎮", "🕹️", "👾", "🐧", "🦊", "🤖", "🧙", "🛸",
		"⚙️", "🔧", "💾", "🖥️", "⌨️", "🖱️", "📀", "🎧",
		"😀", "😃", "😄", "😁", "😊", "😎", "🤓", "🧐",
		"👨‍💻", "👩‍💻", "🧑‍🚀", "🥷", "🦾", "🧝", "🧛", "🐉",
		"⭐", "✨", "🔥", "💡", "🚀", "🎯", "💎", "🏆",
	}
}
