package artwork

import (
	"fmt"
)

// DefaultAncestorLevels bounds how many directories above the playing file
// are searched.
const DefaultAncestorLevels = 8

// ancestorExtensions are tried for the bare slot file names, in order.
var ancestorExtensions = []string{".jpg", ".png"}

// AncestorCandidates returns the sibling artwork paths to try for slot,
// starting with the directory containing fileLocation and walking up at most
// levels directories. Candidates of a nearer directory come first.
func AncestorCandidates(fileLocation string, slot SlotKind, levels int) []Reference {
	if fileLocation == "" || !slot.HasAncestorFallback() {
		return nil
	}
	if levels <= 0 {
		levels = DefaultAncestorLevels
	}

	var candidates []Reference
	current := fileLocation
	for level := 0; level < levels; level++ {
		dir := parentDir(current)
		if dir == current {
			break // reached the share root
		}
		candidates = append(candidates, siblingCandidates(dir, slot)...)
		current = dir
	}
	return candidates
}

// siblingCandidates lists the file names a slot is commonly stored under in dir.
func siblingCandidates(dir string, slot SlotKind) []Reference {
	var out []Reference
	add := func(elem ...string) {
		out = append(out, Reference(joinLocation(dir, elem...)))
	}

	for _, ext := range ancestorExtensions {
		add(string(slot) + ext)
	}
	if slot != SlotFanart {
		return out
	}

	for n := 1; n <= maxNumberedFanart; n++ {
		for _, ext := range imageExtensions {
			add(fmt.Sprintf("fanart%d%s", n, ext))
		}
	}
	for _, ext := range imageExtensions {
		add(supplementalMarker, "fanart"+ext)
	}
	for n := 1; n <= maxNumberedFanart; n++ {
		for _, ext := range imageExtensions {
			add(supplementalMarker, fmt.Sprintf("fanart%d%s", n, ext))
		}
	}
	return out
}
