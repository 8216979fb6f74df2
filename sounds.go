package chump

import (
	"sort"

	"github.com/samber/lo"
)

// Sound names the provider recognizes without any per-application customization.
var builtinSounds = []string{
	"alien",
	"bike",
	"bugle",
	"cashregister",
	"classical",
	"climb",
	"cosmic",
	"echo",
	"falling",
	"gamelan",
	"incoming",
	"intermission",
	"magic",
	"mechanical",
	"none",
	"persistent",
	"pianobar",
	"pushover",
	"siren",
	"spacealarm",
	"tugboat",
	"updown",
	"vibrate",
}

// BuiltinSounds returns the fixed set of provider sound names, sorted.
func BuiltinSounds() []string {
	return append([]string(nil), builtinSounds...)
}

// allowedSounds merges the builtin set with any custom sounds fetched for the app.
func allowedSounds(custom map[string]string) []string {
	sounds := lo.Uniq(append(lo.Keys(custom), builtinSounds...))
	sort.Strings(sounds)
	return sounds
}

func validSound(name string, custom map[string]string) bool {
	if _, ok := custom[name]; ok {
		return true
	}
	return lo.Contains(builtinSounds, name)
}
