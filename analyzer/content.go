package analyzer

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxKeywords    = 15
	maxCTAExamples = 5
	longWordLength = 6
)

// ReadabilityLabelNoText marks pages with too little text to score.
const ReadabilityLabelNoText = "not enough text"

// Bilingual (Norwegian + English) stop words, excluded from the keyword
// table by construction.
var stopWords = map[string]bool{
	// English
	"the": true, "and": true, "for": true, "are": true, "but": true,
	"not": true, "you": true, "all": true, "can": true, "her": true,
	"was": true, "one": true, "our": true, "out": true, "has": true,
	"have": true, "this": true, "that": true, "with": true, "from": true,
	"they": true, "will": true, "would": true, "there": true, "their": true,
	"what": true, "about": true, "which": true, "when": true, "your": true,
	"more": true, "been": true, "were": true, "into": true, "than": true,
	"them": true, "also": true, "its": true, "who": true, "how": true,
	// Norwegian
	"og": true, "i": true, "jeg": true, "det": true, "at": true,
	"en": true, "et": true, "den": true, "til": true, "er": true,
	"som": true, "på": true, "de": true, "med": true, "han": true,
	"av": true, "ikke": true, "der": true, "så": true, "var": true,
	"meg": true, "seg": true, "men": true, "ett": true, "har": true,
	"om": true, "vi": true, "min": true, "mitt": true, "ha": true,
	"hadde": true, "hun": true, "nå": true, "over": true, "da": true,
	"ved": true, "fra": true, "du": true, "ut": true, "sin": true,
	"dem": true, "oss": true, "opp": true, "man": true, "kan": true,
	"hans": true, "hvor": true, "eller": true, "hva": true, "skal": true,
	"selv": true, "sjøl": true, "alle": true, "vil": true,
	"bli": true, "ble": true, "blitt": true, "kunne": true, "inn": true,
	"når": true, "være": true, "kom": true, "noen": true, "noe": true,
	"ville": true, "dere": true, "deres": true, "kun": true, "ja": true,
	"etter": true, "ned": true, "skulle": true, "denne": true,
	"deg": true, "si": true, "sine": true, "sitt": true, "mot": true,
	"å": true, "meget": true, "hvorfor": true, "dette": true, "disse": true,
	"uten": true, "hvordan": true, "ingen": true, "din": true, "ditt": true,
	"blir": true, "samme": true, "hvilken": true, "hvilke": true, "sånn": true,
	"inni": true, "mellom": true, "vår": true, "hver": true, "hvem": true,
	"vors": true, "hvis": true, "både": true, "bare": true, "enn": true,
	"fordi": true, "før": true, "mange": true, "også": true, "slik": true,
	"vært": true, "begge": true, "siden": true, "henne": true, "hennes": true,
}

// CTA phrases matched against link and button text, lower-cased.
var ctaKeywords = []string{
	// English
	"buy now", "order now", "contact us", "get started", "sign up",
	"subscribe", "book now", "learn more", "free trial", "get a quote",
	"shop now", "download", "try it free", "request a demo",
	// Norwegian
	"kjøp nå", "bestill nå", "kontakt oss", "kom i gang", "meld deg på",
	"abonner", "book nå", "les mer", "gratis prøve", "få et tilbud",
	"handle nå", "last ned", "prøv gratis", "be om demo",
}

// Link target paths that suggest a conversion page.
var ctaPaths = []string{
	"contact", "kontakt", "order", "bestill", "buy", "kjop", "kjøp",
	"checkout", "kasse", "signup", "register", "registrer", "booking",
	"quote", "tilbud", "demo",
}

var nonLetterRe = regexp.MustCompile(`[^a-zæøåäöüéèêàáí]+`)

// ContentAnalyzer computes the textual quality of a page. It is a pure
// function of the markup: no outbound calls.
type ContentAnalyzer struct{}

func NewContentAnalyzer() *ContentAnalyzer {
	return &ContentAnalyzer{}
}

// Analyze extracts the main text and scores readability, keywords and CTA
// presence.
func (a *ContentAnalyzer) Analyze(doc *goquery.Document) ContentResult {
	result := ContentResult{}

	body := mainContent(doc)
	text := collapseWhitespace(body.Text())
	words := strings.Fields(text)

	result.WordCount = len(words)
	result.CharacterCount = len([]rune(text))
	result.ParagraphCount = body.Find("p").Length()

	sentences := splitSentences(text)
	result.SentenceCount = len(sentences)
	result.Readability = readability(words, sentences)
	result.Keywords = extractKeywords(words)
	result.HasCTA, result.CTAExamples = detectCTA(doc)
	result.Score = contentScore(&result)
	return result
}

// mainContent clones the body and strips navigation chrome so counts reflect
// the actual content of the page.
func mainContent(doc *goquery.Document) *goquery.Selection {
	body := doc.Find("body").Clone()
	body.Find("nav, header, footer, aside, script, style, noscript").Remove()
	body.Find("[role='banner'], [role='navigation'], [role='contentinfo']").Remove()
	return body
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// splitSentences cuts on sentence terminators and drops fragments of ten or
// fewer characters, which filters abbreviations and list noise.
func splitSentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(strings.TrimSpace(p)) > 10 {
			sentences = append(sentences, strings.TrimSpace(p))
		}
	}
	return sentences
}

// readability computes the LIX-style index: average words per sentence plus
// the percentage of long words. Pages without enough text get index 0 and a
// distinct label instead of a division by zero.
func readability(words, sentences []string) Readability {
	if len(words) == 0 || len(sentences) == 0 {
		return Readability{Label: ReadabilityLabelNoText}
	}

	longWords := 0
	for _, w := range words {
		if len([]rune(strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) }))) > longWordLength {
			longWords++
		}
	}

	avgWords := float64(len(words)) / float64(len(sentences))
	longPct := float64(longWords) * 100 / float64(len(words))
	index := avgWords + longPct

	return Readability{
		Index:               round1(index),
		Label:               readabilityLabel(index),
		AvgWordsPerSentence: round1(avgWords),
		LongWordPercentage:  round1(longPct),
	}
}

func readabilityLabel(index float64) string {
	switch {
	case index < 25:
		return "very easy"
	case index < 35:
		return "easy"
	case index < 45:
		return "medium"
	case index < 55:
		return "difficult"
	default:
		return "very difficult"
	}
}

// extractKeywords builds the frequency table: lower-cased, stripped of
// non-letters, stop words and short tokens removed, top entries by count.
func extractKeywords(words []string) []Keyword {
	total := len(words)
	if total == 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, w := range words {
		token := nonLetterRe.ReplaceAllString(strings.ToLower(w), "")
		if len([]rune(token)) <= 2 || stopWords[token] {
			continue
		}
		counts[token]++
	}

	keywords := make([]Keyword, 0, len(counts))
	for word, count := range counts {
		keywords = append(keywords, Keyword{
			Word:    word,
			Count:   count,
			Density: round1(float64(count) * 100 / float64(total)),
		})
	}
	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Count != keywords[j].Count {
			return keywords[i].Count > keywords[j].Count
		}
		return keywords[i].Word < keywords[j].Word
	})
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}

// detectCTA matches structural hints (buttons, cta/btn classes, conversion
// link targets) and a multilingual phrase list against anchor text.
func detectCTA(doc *goquery.Document) (bool, []string) {
	seen := make(map[string]bool)
	var examples []string

	add := func(text string) {
		text = collapseWhitespace(text)
		if text == "" || len(text) > 60 {
			return
		}
		key := strings.ToLower(text)
		if seen[key] || len(examples) >= maxCTAExamples {
			return
		}
		seen[key] = true
		examples = append(examples, text)
	}

	doc.Find("button, input[type='submit'], [class*='cta'], [class*='btn']").Each(func(_ int, s *goquery.Selection) {
		if val, ok := s.Attr("value"); ok && s.Is("input") {
			add(val)
			return
		}
		add(s.Text())
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		lowerHref := strings.ToLower(href)
		for _, p := range ctaPaths {
			if strings.Contains(lowerHref, p) {
				add(s.Text())
				return
			}
		}
		lowerText := strings.ToLower(collapseWhitespace(s.Text()))
		for _, kw := range ctaKeywords {
			if strings.Contains(lowerText, kw) {
				add(s.Text())
				return
			}
		}
	})

	return len(examples) > 0, examples
}

// contentScore is additive and capped at 100.
func contentScore(r *ContentResult) int {
	score := 0

	switch {
	case r.WordCount >= 300:
		score += 30
	case r.WordCount >= 200:
		score += 20
	case r.WordCount >= 100:
		score += 10
	}

	index := r.Readability.Index
	switch {
	case index >= 30 && index <= 50:
		score += 25
	case index >= 25 && index <= 55:
		score += 15
	default:
		score += 5
	}

	if r.HasCTA {
		score += 20
	}

	switch {
	case len(r.Keywords) >= 10:
		score += 25
	case len(r.Keywords) >= 5:
		score += 15
	default:
		score += 5
	}

	return clampScore(score)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
