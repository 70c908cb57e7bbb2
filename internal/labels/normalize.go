package labels

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// correction is a single OCR misread fix.
type correction struct {
	re   *regexp2.Regexp
	repl string
}

// regexTimeout bounds a single correction pass. A pass that times out is
// skipped and the text is left as it was.
const regexTimeout = time.Second

// corrections run in order. Later rules see the output of earlier ones.
var corrections = []correction{
	// I2, l2, LZ at the start of a token -> 12
	newCorrection(`(?<!\w)[IiLl][2Zz]`, "12"),
	// mgm -> mg
	newCorrection(`\bmgm\b`, "mg"),
	// 5omg -> 5 0mg
	newCorrection(`\b([0-9]+)[oO](mg|mcg|g)\b`, "$1 0$2"),
	// O500mg -> 0500mg
	newCorrection(`\b([Oo])(?=\d)`, "0"),
}

func newCorrection(pattern, repl string) correction {
	re := regexp2.MustCompile(pattern, regexp2.None)
	re.MatchTimeout = regexTimeout
	return correction{re: re, repl: repl}
}

var quoteReplacer = strings.NewReplacer(
	"\u2018", "'",
	"\u2019", "'",
	"\u201C", "'",
	"\u201D", "'",
)

// CleanText maps curly quotes to a straight single quote, trims the text and
// replaces the remaining newlines with spaces.
func CleanText(text string) string {
	text = quoteReplacer.Replace(text)
	text = strings.TrimSpace(text)
	return strings.ReplaceAll(text, "\n", " ")
}

// CorrectOCRMistakes applies the dosage misread corrections in order.
func CorrectOCRMistakes(text string) string {
	for _, c := range corrections {
		out, err := c.re.Replace(text, c.repl, -1, -1)
		if err != nil {
			continue
		}
		text = out
	}
	return text
}

// Normalize is CleanText followed by CorrectOCRMistakes. An empty result
// means the reading carries no usable text.
func Normalize(text string) string {
	return CorrectOCRMistakes(CleanText(text))
}
