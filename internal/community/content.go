package community

// Quote is a wisdom quote with attribution.
type Quote struct {
	Text   string `json:"quote"`
	Author string `json:"author"`
}

// Affirmations returns the pool of positive affirmations.
func Affirmations() []string {
	return []string{
		"You are stronger than you know 💪",
		"Every small step forward is progress 🌱",
		"You deserve kindness, especially from yourself 💝",
		"Your feelings are valid and temporary 🌈",
		"You've survived 100% of your bad days 🌟",
		"It's okay to rest and recharge 🔋",
		"You are worthy of love and respect 💖",
		"Today is a new opportunity to grow 🌸",
		"Your presence makes a difference 🦋",
		"You are not alone in this journey 🤝",
		"Healing is not linear, be patient with yourself 🌊",
		"You have the power to write your story 📖",
		"Every breath is a new beginning 🌬️",
		"You are exactly where you need to be 🧭",
		"Your best is enough, always 🌺",
	}
}

// WisdomQuotes returns the curated quote pool.
func WisdomQuotes() []Quote {
	return []Quote{
		{Text: "The only way out is through.", Author: "Robert Frost"},
		{Text: "You are not your thoughts.", Author: "Eckhart Tolle"},
		{Text: "This too shall pass.", Author: "Persian Proverb"},
		{Text: "Be yourself; everyone else is already taken.", Author: "Oscar Wilde"},
		{Text: "The wound is the place where the Light enters you.", Author: "Rumi"},
		{Text: "What we resist, persists.", Author: "Carl Jung"},
		{Text: "The present moment is all we ever have.", Author: "Thich Nhat Hanh"},
		{Text: "Happiness is not by chance, but by choice.", Author: "Jim Rohn"},
	}
}

// SupportTemplates returns the quick support message templates.
func SupportTemplates() []string {
	return []string{
		"You've got this! 💪",
		"Sending you positive vibes ✨",
		"Thank you for sharing 💝",
		"I hear you and you're valid 🤗",
		"Keep going, you're amazing! 🌟",
		"Your strength inspires me 🦋",
		"Together we're stronger 🤝",
		"Proud of you! 🎉",
		"One step at a time 👣",
		"You matter! 💖",
	}
}
