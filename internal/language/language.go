// Package language maps between ISO 639 language codes and display names
// for track metadata and console output. Unknown tags pass through instead
// of failing; ffprobe reports "und" for untagged streams.
package language

import (
	"strings"

	"golang.org/x/text/cases"
	xlang "golang.org/x/text/language"
)

type entry struct {
	code2   string // ISO 639-1 (2-letter)
	code3   string // ISO 639-2 primary (3-letter)
	alt3    string // ISO 639-2 alternate (e.g. "fre" vs "fra")
	display string
	word    string // full word form (e.g. "english")
}

var languages = []entry{
	{"en", "eng", "", "English", "english"},
	{"es", "spa", "", "Spanish", "spanish"},
	{"fr", "fra", "fre", "French", "french"},
	{"de", "deu", "ger", "German", "german"},
	{"it", "ita", "", "Italian", "italian"},
	{"pt", "por", "", "Portuguese", "portuguese"},
	{"ja", "jpn", "", "Japanese", "japanese"},
	{"ko", "kor", "", "Korean", "korean"},
	{"zh", "zho", "chi", "Chinese", "chinese"},
	{"ru", "rus", "", "Russian", "russian"},
	{"ar", "ara", "", "Arabic", "arabic"},
	{"hi", "hin", "", "Hindi", "hindi"},
	{"nl", "nld", "dut", "Dutch", "dutch"},
	{"pl", "pol", "", "Polish", "polish"},
	{"sv", "swe", "", "Swedish", "swedish"},
	{"tr", "tur", "", "Turkish", "turkish"},
	{"fi", "fin", "", "Finnish", "finnish"},
}

var (
	byCode2 map[string]*entry
	byCode3 map[string]*entry
	byWord  map[string]*entry
)

func init() {
	byCode2 = make(map[string]*entry, len(languages))
	byCode3 = make(map[string]*entry, len(languages)*2)
	byWord = make(map[string]*entry, len(languages))
	for i := range languages {
		e := &languages[i]
		byCode2[e.code2] = e
		byCode3[e.code3] = e
		if e.alt3 != "" {
			byCode3[e.alt3] = e
		}
		byWord[e.word] = e
	}
}

func lookup(code string) *entry {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil
	}
	if e, ok := byCode2[code]; ok {
		return e
	}
	if e, ok := byCode3[code]; ok {
		return e
	}
	if e, ok := byWord[code]; ok {
		return e
	}
	return nil
}

// ToISO3 converts any recognized language tag to its ISO 639-2 3-letter
// code. Unrecognized 3-letter tags pass through lowercased; anything else
// maps to "und".
func ToISO3(code string) string {
	if e := lookup(code); e != nil {
		return e.code3
	}
	trimmed := strings.ToLower(strings.TrimSpace(code))
	if len(trimmed) == 3 {
		return trimmed
	}
	return "und"
}

// Matches reports whether a caller-supplied selector refers to the given
// track language tag, accepting 2-letter, 3-letter, or word forms.
func Matches(selector, trackTag string) bool {
	selector = strings.ToLower(strings.TrimSpace(selector))
	trackTag = strings.ToLower(strings.TrimSpace(trackTag))
	if selector == "" || trackTag == "" {
		return false
	}
	if selector == trackTag {
		return true
	}
	se, te := lookup(selector), lookup(trackTag)
	return se != nil && se == te
}

// DisplayName returns a human-readable name for a language tag. Unknown
// tags are title-cased as-is; "und" and empty render as "Unknown".
func DisplayName(code string) string {
	if e := lookup(code); e != nil {
		return e.display
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" || strings.EqualFold(trimmed, "und") {
		return "Unknown"
	}
	return cases.Title(xlang.Und).String(trimmed)
}
