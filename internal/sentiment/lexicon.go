package sentiment

import (
	"math"
	"strings"
	"unicode"
)

// normalization constant for the compound score, x / sqrt(x^2 + alpha)
const compoundAlpha = 15.0

const (
	negationScale = -0.74
	boosterStep   = 0.293
)

// valence is a compact financial-news lexicon on a -4..4 scale.
var valence = map[string]float64{
	"beat": 1.6, "beats": 1.6, "boost": 1.7, "boosts": 1.7, "bullish": 2.2, "buy": 1.2,
	"climb": 1.3, "climbs": 1.3, "gain": 1.9, "gains": 1.9, "good": 1.9, "great": 3.1,
	"growth": 1.9, "high": 0.9, "higher": 1.3, "improve": 1.9, "improves": 1.9, "jump": 1.5,
	"jumps": 1.5, "outperform": 2.0, "positive": 2.6, "profit": 1.9, "profits": 1.9,
	"rally": 1.8, "rallies": 1.8, "rebound": 1.6, "record": 1.1, "recover": 1.5,
	"rise": 1.3, "rises": 1.3, "soar": 2.3, "soars": 2.3, "strong": 2.3, "surge": 2.0,
	"surges": 2.0, "top": 1.4, "upgrade": 1.9, "upgrades": 1.9, "win": 2.8, "wins": 2.8,
	"bearish": -2.2, "crash": -2.9, "crashes": -2.9, "cut": -1.2, "cuts": -1.2,
	"decline": -1.6, "declines": -1.6, "downgrade": -1.9, "downgrades": -1.9, "drop": -1.4,
	"drops": -1.4, "fall": -1.5, "falls": -1.5, "fear": -2.2, "fears": -2.2, "fraud": -2.9,
	"lawsuit": -1.9, "lose": -1.9, "loses": -1.9, "loss": -1.9, "losses": -1.9, "low": -1.1,
	"lower": -1.2, "miss": -1.5, "misses": -1.5, "plunge": -2.4, "plunges": -2.4,
	"probe": -1.1, "recall": -1.3, "risk": -1.1, "sell": -1.0, "selloff": -2.0,
	"slump": -2.1, "slumps": -2.1, "tumble": -2.0, "tumbles": -2.0, "warn": -1.8,
	"warns": -1.8, "weak": -1.9, "worst": -3.1,
}

var negators = map[string]bool{
	"not": true, "no": true, "never": true, "without": true, "isn't": true, "aren't": true,
	"doesn't": true, "don't": true, "didn't": true, "won't": true, "can't": true, "fails": true,
}

var boosters = map[string]float64{
	"very": boosterStep, "sharply": boosterStep, "significantly": boosterStep, "hugely": boosterStep,
	"massive": boosterStep, "slightly": -boosterStep, "marginally": -boosterStep, "somewhat": -boosterStep,
}

// LexiconScore returns a compound polarity in [-1, 1] for a headline.
func LexiconScore(text string) float64 {
	tokens := tokenize(text)
	var sum float64
	for i, tok := range tokens {
		v, ok := valence[tok]
		if !ok {
			continue
		}
		for back := 1; back <= 3 && i-back >= 0; back++ {
			prev := tokens[i-back]
			if b, ok := boosters[prev]; ok && back == 1 {
				if v > 0 {
					v += b
				} else {
					v -= b
				}
			}
			if negators[prev] {
				v *= negationScale
				break
			}
		}
		sum += v
	}
	if strings.Contains(text, "!") && sum != 0 {
		sum += math.Copysign(0.292, sum)
	}
	return compound(sum)
}

func compound(sum float64) float64 {
	if sum == 0 {
		return 0
	}
	c := sum / math.Sqrt(sum*sum+compoundAlpha)
	return math.Max(-1, math.Min(1, c))
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	out := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
		})
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
