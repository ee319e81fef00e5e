package fuzzy

import "strings"

// Guess is what a player said about the running track. Empty fields are not
// checked.
type Guess struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Year   string `json:"year"`
}

// Answer is the metadata a guess is compared with.
type Answer struct {
	Title   string
	Artists []string
	Year    string
}

// Verdict scores each part of a guess. The score fields are 0 when the part
// was not guessed.
type Verdict struct {
	TitleScore  float64 `json:"titleScore"`
	TitleMatch  bool    `json:"titleMatch"`
	ArtistScore float64 `json:"artistScore"`
	ArtistMatch bool    `json:"artistMatch"`
	YearMatch   bool    `json:"yearMatch"`
}

// Matcher checks guesses against answers with a similarity threshold.
type Matcher struct {
	normalizer *Normalizer
	threshold  float64
}

// NewMatcher creates a matcher accepting similarities at or above threshold.
func NewMatcher(threshold float64) *Matcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Matcher{normalizer: NewNormalizer(), threshold: threshold}
}

// Check compares the guess with the answer. Any one of the track's artists
// is accepted.
func (m *Matcher) Check(guess Guess, answer Answer) Verdict {
	var verdict Verdict

	if strings.TrimSpace(guess.Title) != "" {
		verdict.TitleScore = m.normalizer.CalculateSimilarity(
			m.normalizer.NormalizeTitle(guess.Title),
			m.normalizer.NormalizeTitle(answer.Title))
		verdict.TitleMatch = verdict.TitleScore >= m.threshold
	}

	if strings.TrimSpace(guess.Artist) != "" {
		guessed := m.normalizer.NormalizeArtist(guess.Artist)
		for _, artist := range answer.Artists {
			score := m.normalizer.CalculateSimilarity(guessed, m.normalizer.NormalizeArtist(artist))
			if score > verdict.ArtistScore {
				verdict.ArtistScore = score
			}
		}
		verdict.ArtistMatch = verdict.ArtistScore >= m.threshold
	}

	if year := strings.TrimSpace(guess.Year); year != "" {
		verdict.YearMatch = year == strings.TrimSpace(answer.Year)
	}

	return verdict
}
