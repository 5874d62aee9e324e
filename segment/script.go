package segment

import "github.com/go-text/typesetting/language"

func isConcrete(s language.Script) bool {
	return s != language.Common && s != language.Inherited && s != language.Unknown
}

// resolveScripts assigns every rune a concrete script where possible.
// Inherited runes (combining marks) take the script of the preceding rune.
// Common runes (spaces, digits, punctuation, emoji) take the script of the
// run before them; at the start of the text they stay Common and form a run
// of their own.
func resolveScripts(runes []rune) []language.Script {
	scripts := make([]language.Script, len(runes))
	for i, r := range runes {
		scripts[i] = language.LookupScript(r)
	}

	prev := language.Common
	for i, s := range scripts {
		if s == language.Inherited && i > 0 {
			scripts[i] = scripts[i-1]
			continue
		}
		if isConcrete(s) {
			prev = s
			continue
		}
		scripts[i] = prev
	}
	return scripts
}
