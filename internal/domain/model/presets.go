package model

// DefaultPreset is used when a create request names an unknown card set.
const DefaultPreset = "fibonacci"

var cardPresets = map[string][]string{
	"fibonacci":          {"1", "2", "3", "5", "8", "13", "21", "?", "☕"},
	"tshirt":             {"XS", "S", "M", "L", "XL", "?", "☕"},
	"fibonacci_extended": {"0", "1", "2", "3", "5", "8", "13", "21", "34", "55", "89", "?", "☕"},
}

// Preset resolves a named card set, falling back to the default preset for
// unknown names. The returned slice is a copy; sessions own their cards.
func Preset(name string) []string {
	cards, ok := cardPresets[name]
	if !ok {
		cards = cardPresets[DefaultPreset]
	}
	out := make([]string, len(cards))
	copy(out, cards)
	return out
}

// DefaultEmoji substitutes any reaction emoji not on the allow-list.
const DefaultEmoji = "📄"

var allowedEmojis = map[string]struct{}{
	"📄": {}, "💩": {}, "👍": {}, "👎": {}, "❤️": {}, "😂": {}, "🎉": {},
	"👏": {}, "🙌": {}, "🔥": {}, "💯": {}, "✅": {}, "⏳": {}, "🙈": {},
}

// SafeEmoji validates a reaction against the allow-list, substituting the
// default symbol for anything unrecognized.
func SafeEmoji(emoji string) string {
	if _, ok := allowedEmojis[emoji]; ok {
		return emoji
	}
	return DefaultEmoji
}
