package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// known holds the languages subtitle users name most often, with the
// spellings they use. Anything else goes through BCP 47 parsing.
var known = []struct {
	code    string
	name    string
	aliases []string
}{
	{"en", "English", []string{"eng", "english"}},
	{"my", "Myanmar", []string{"mya", "bur", "myanmar", "burmese"}},
	{"ko", "Korean", []string{"kor", "korean", "korea"}},
	{"zh", "Chinese", []string{"zho", "chi", "chinese", "china", "mandarin"}},
	{"ja", "Japanese", []string{"jpn", "japanese"}},
	{"th", "Thai", []string{"tha", "thai"}},
	{"vi", "Vietnamese", []string{"vie", "vietnamese"}},
	{"es", "Spanish", []string{"spa", "spanish"}},
	{"fr", "French", []string{"fra", "fre", "french"}},
	{"de", "German", []string{"deu", "ger", "german"}},
	{"hi", "Hindi", []string{"hin", "hindi"}},
	{"ru", "Russian", []string{"rus", "russian"}},
}

var (
	codeOf = map[string]string{}
	nameOf = map[string]string{}
)

func init() {
	for _, k := range known {
		codeOf[k.code] = k.code
		nameOf[k.code] = k.name
		for _, alias := range k.aliases {
			codeOf[alias] = k.code
		}
	}
}

// ToISO2 maps a code, ISO 639-2 code, or English word to its two-letter
// ISO 639-1 code. It returns "" when the input names no language that has
// a two-letter code.
func ToISO2(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	if code, ok := codeOf[value]; ok {
		return code
	}
	tag, err := xlanguage.Parse(value)
	if err != nil {
		return ""
	}
	base, confidence := tag.Base()
	if confidence == xlanguage.No || len(base.String()) != 2 {
		return ""
	}
	return base.String()
}

// DisplayName returns the English name for a language code. Empty input
// gives "Unknown"; input x/text cannot name comes back uppercased.
func DisplayName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "Unknown"
	}
	if name, ok := nameOf[ToISO2(value)]; ok {
		return name
	}
	if tag, err := xlanguage.Parse(value); err == nil {
		if name := display.English.Languages().Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(value)
}
