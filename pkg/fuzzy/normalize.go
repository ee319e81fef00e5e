// Package fuzzy compares spoken or typed guesses with track metadata.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultThreshold is the similarity a guess needs to count as a match.
const DefaultThreshold = 0.8

var (
	featRegex       = regexp.MustCompile(`(?i)\s*[\(\[]\s*(?:feat\.?|ft\.?|featuring)\s+[^\)\]]*[\)\]]\s*`)
	suffixRegex     = regexp.MustCompile(`(?i)\s+-\s+.*$`)
	versionRegex    = regexp.MustCompile(`(?i)\s*[\(\[][^\)\]]*(?:remaster|remastered|deluxe|extended|radio edit|live|mono|stereo|version|mix)[^\)\]]*[\)\]]\s*`)
	punctRegex      = regexp.MustCompile(`[^\p{L}\p{N}\s&]+`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	leadingArticle  = regexp.MustCompile(`^(?:the|a|an|die|der|das) `)
)

type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// NormalizeArtist lowercases, strips accents and punctuation, and drops a
// leading article so "The Beatles" and "beatles" compare equal.
func (n *Normalizer) NormalizeArtist(artist string) string {
	artist = n.basicNormalize(artist)

	artist = strings.ReplaceAll(artist, " and ", " & ")
	artist = strings.ReplaceAll(artist, " und ", " & ")
	artist = leadingArticle.ReplaceAllString(artist, "")

	return strings.TrimSpace(artist)
}

// NormalizeTitle removes featured artists, version tags and " - " suffixes
// before the basic normalization.
func (n *Normalizer) NormalizeTitle(title string) string {
	title = featRegex.ReplaceAllString(title, " ")
	title = versionRegex.ReplaceAllString(title, " ")
	title = suffixRegex.ReplaceAllString(title, "")

	return n.basicNormalize(title)
}

func (n *Normalizer) basicNormalize(text string) string {
	text = norm.NFKD.String(text)

	var result strings.Builder
	for _, r := range text {
		if !unicode.IsMark(r) {
			result.WriteRune(r)
		}
	}
	text = result.String()

	text = punctRegex.ReplaceAllString(text, " ")
	text = whitespaceRegex.ReplaceAllString(text, " ")

	text = strings.ToLower(text)
	return strings.TrimSpace(text)
}

// CalculateSimilarity is the longest common subsequence of the two strings
// over the length of the longer one, measured in runes.
func (n *Normalizer) CalculateSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	r1, r2 := []rune(s1), []rune(s2)
	if len(r1) == 0 || len(r2) == 0 {
		return 0.0
	}

	return float64(longestCommonSubsequence(r1, r2)) / float64(max(len(r1), len(r2)))
}

func longestCommonSubsequence(s1, s2 []rune) int {
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)

	for i := 1; i <= len(s1); i++ {
		for j := 1; j <= len(s2); j++ {
			if s1[i-1] == s2[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
