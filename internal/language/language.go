// Package language maps user language hints onto the codes the speech engine
// and the container metadata expect.
package language

import (
	"fmt"
	"strings"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Undetermined is the ISO 639-2 code for an unknown language.
const Undetermined = "und"

// whisperCodes are the languages the speech models were trained on.
var whisperCodes = []string{
	"en", "zh", "de", "es", "ru", "ko", "fr", "ja", "pt", "tr", "pl", "ca", "nl", "ar", "sv",
	"it", "id", "hi", "fi", "vi", "he", "uk", "el", "ms", "cs", "ro", "da", "hu", "ta", "no",
	"th", "ur", "hr", "bg", "lt", "la", "mi", "ml", "cy", "sk", "te", "fa", "lv", "bn", "sr",
	"az", "sl", "kn", "et", "mk", "br", "eu", "is", "hy", "ne", "mn", "bs", "kk", "sq", "sw",
	"gl", "mr", "pa", "si", "km", "sn", "yo", "so", "af", "oc", "ka", "be", "tg", "sd", "gu",
	"am", "yi", "lo", "uz", "fo", "ht", "ps", "tk", "nn", "mt", "sa", "lb", "my", "bo", "tl",
	"mg", "as", "tt", "haw", "ln", "ha", "ba", "su", "yue",
}

var (
	supported = map[string]struct{}{}
	byName    = map[string]string{}
)

func init() {
	names := display.English.Languages()
	for _, c := range whisperCodes {
		supported[c] = struct{}{}
		if n := names.Name(xlang.Make(c)); n != "" {
			byName[strings.ToLower(n)] = c
		}
	}
}

// Resolve parses a hint given as an ISO 639-1 or 639-2 code, a BCP 47 tag or
// an English language name. An empty hint resolves to Und.
func Resolve(hint string) (xlang.Tag, error) {
	hint = strings.TrimSpace(hint)
	if hint == "" || strings.EqualFold(hint, "auto") {
		return xlang.Und, nil
	}
	if code, ok := byName[strings.ToLower(hint)]; ok {
		return xlang.Make(code), nil
	}
	tag, err := xlang.Parse(hint)
	if err != nil {
		return xlang.Und, fmt.Errorf("unknown language %q", hint)
	}
	if _, ok := supported[Code(tag)]; !ok {
		return xlang.Und, fmt.Errorf("language %q is not supported by the speech models", hint)
	}
	return tag, nil
}

// Code is the short code the speech engine takes ("de"), or "" for Und.
func Code(tag xlang.Tag) string {
	if tag == xlang.Und {
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}

// ISO3 is the ISO 639-2 code used for stream metadata.
func ISO3(tag xlang.Tag) string {
	if tag == xlang.Und {
		return Undetermined
	}
	base, _ := tag.Base()
	if c := base.ISO3(); c != "" {
		return c
	}
	return Undetermined
}

// Name is the English display name, for log lines.
func Name(tag xlang.Tag) string {
	if tag == xlang.Und {
		return "auto"
	}
	if n := display.English.Languages().Name(tag); n != "" {
		return n
	}
	return tag.String()
}

// SubtitleISO3 tags the subtitle stream: English when translating or when no
// hint was given, otherwise the hint.
func SubtitleISO3(hint xlang.Tag, translate bool) string {
	if translate || hint == xlang.Und {
		return "eng"
	}
	return ISO3(hint)
}

// AudioISO3 tags the audio stream from the hint, else the detected code.
func AudioISO3(hint xlang.Tag, detected string) string {
	if hint != xlang.Und {
		return ISO3(hint)
	}
	if detected == "" {
		return Undetermined
	}
	tag, err := xlang.Parse(detected)
	if err != nil {
		return Undetermined
	}
	return ISO3(tag)
}
