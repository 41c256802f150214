package artwork

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog/log"
)

const (
	supplementalMarker = "extrafanart"
	maxNumberedFanart  = 9

	// MainSupplementalKey is the key of fanart.jpg/png found in extrafanart/.
	MainSupplementalKey = "extrafanart_main"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// Prober checks whether an address serves a file.
type Prober interface {
	Exists(ctx context.Context, addr ResolvedAddress) bool
}

// Discoverer collects every fanart image known for the playing item: the
// references Kodi reports plus images found next to the file.
type Discoverer struct {
	remote   RemoteFiles
	resolver *Resolver
	prober   Prober
	listable []string
}

// NewDiscoverer creates a discoverer. listable are the location schemes whose
// directories can be listed (DefaultRemoteSchemes when empty).
func NewDiscoverer(remote RemoteFiles, resolver *Resolver, prober Prober, listable []string) *Discoverer {
	if len(listable) == 0 {
		listable = DefaultRemoteSchemes
	}
	return &Discoverer{
		remote:   remote,
		resolver: resolver,
		prober:   prober,
		listable: listable,
	}
}

// Discover returns the fanart variants for the item in slideshow order:
// fanart, fanart1..9, extrafanart* keys, then discovered files. Keys are
// unique; a reference from the art map wins over a discovered file.
func (d *Discoverer) Discover(ctx context.Context, art ArtMap, fileLocation string, kind ItemKind) []FanartVariant {
	variants := seedVariants(art)

	discovered := d.discoverFiles(ctx, fileLocation, kind)
	if len(discovered) > 0 {
		log.Debug().
			Int("seeded", len(variants)).
			Int("discovered", len(discovered)).
			Str("file", fileLocation).
			Msg("Discovered fanart files")
	}

	return mergeVariants(variants, discovered)
}

// seedVariants takes the fanart references already present in the art map.
func seedVariants(art ArtMap) []FanartVariant {
	var out []FanartVariant
	add := func(key string) {
		if ref, ok := art[key]; ok && ref != "" {
			out = append(out, FanartVariant{Key: key, Reference: ref})
		}
	}

	add(string(SlotFanart))
	for n := 1; n <= maxNumberedFanart; n++ {
		add(fmt.Sprintf("fanart%d", n))
	}
	for _, key := range art.Keys() {
		if strings.HasPrefix(key, supplementalMarker) {
			add(key)
		}
	}
	return out
}

func mergeVariants(seeds, discovered []FanartVariant) []FanartVariant {
	seen := make(map[string]bool, len(seeds)+len(discovered))
	out := make([]FanartVariant, 0, len(seeds)+len(discovered))
	for _, list := range [][]FanartVariant{seeds, discovered} {
		for _, v := range list {
			if seen[v.Key] {
				continue
			}
			seen[v.Key] = true
			out = append(out, v)
		}
	}
	return out
}

func (d *Discoverer) discoverFiles(ctx context.Context, fileLocation string, kind ItemKind) []FanartVariant {
	if kind != KindMovie && kind != KindEpisode {
		return nil
	}
	if fileLocation == "" || isHTTPURL(fileLocation) {
		return nil
	}

	dir := parentDir(fileLocation)
	if hasScheme(fileLocation, d.listable) {
		variants, err := d.scanDirectory(ctx, dir)
		if err == nil {
			return variants
		}
		log.Debug().Err(err).Str("dir", dir).Msg("Fanart listing failed, probing numbered files")
	}

	return d.probeNumbered(ctx, dir)
}

// scanDirectory lists dir for loose fanart<N> files and the contents of an
// extrafanart subdirectory.
func (d *Discoverer) scanDirectory(ctx context.Context, dir string) ([]FanartVariant, error) {
	entries, err := d.remote.ListDirectory(ctx, dir)
	if err != nil {
		return nil, err
	}

	var out []FanartVariant
	for _, entry := range entries {
		name := strings.ToLower(baseName(entry.File))

		if entry.IsDir {
			if strings.Contains(name, supplementalMarker) {
				out = append(out, d.scanSupplemental(ctx, entry.File)...)
			}
			continue
		}

		if key, ok := looseFanartKey(name); ok {
			out = append(out, FanartVariant{Key: key, Reference: Reference(entry.File)})
		}
	}
	return out, nil
}

func (d *Discoverer) scanSupplemental(ctx context.Context, dir string) []FanartVariant {
	entries, err := d.remote.ListDirectory(ctx, dir)
	if err != nil {
		log.Debug().Err(err).Str("dir", dir).Msg("Skipping unreadable extrafanart directory")
		return nil
	}

	var out []FanartVariant
	for _, entry := range entries {
		if entry.IsDir {
			continue
		}
		name := strings.ToLower(baseName(entry.File))
		stem, ok := imageStem(name)
		if !ok {
			continue
		}

		key := supplementalMarker + "_" + stem
		if name == "fanart.jpg" || name == "fanart.png" {
			key = MainSupplementalKey
		}
		out = append(out, FanartVariant{Key: key, Reference: Reference(entry.File)})
	}
	return out
}

// looseFanartKey maps fanart2.jpg to "fanart2" and fanart-alt.png to
// "fanart_-alt". The bare fanart image is the main slot and is skipped.
func looseFanartKey(name string) (string, bool) {
	stem, ok := imageStem(name)
	if !ok {
		return "", false
	}
	suffix, ok := strings.CutPrefix(stem, "fanart")
	if !ok || suffix == "" {
		return "", false
	}
	if isDigits(suffix) {
		return "fanart" + suffix, true
	}
	return "fanart_" + suffix, true
}

// probeNumbered checks fanart1.jpg..fanart9.jpg in dir one by one.
func (d *Discoverer) probeNumbered(ctx context.Context, dir string) []FanartVariant {
	var out []FanartVariant
	for n := 1; n <= maxNumberedFanart; n++ {
		if ctx.Err() != nil {
			break
		}

		candidate := Reference(joinLocation(dir, fmt.Sprintf("fanart%d.jpg", n)))
		addr, err := d.resolver.ResolveReference(ctx, candidate)
		if err != nil {
			continue
		}
		if d.prober.Exists(ctx, addr) {
			out = append(out, FanartVariant{Key: fmt.Sprintf("fanart%d", n), Reference: candidate})
		}
	}
	return out
}

// imageStem returns name without its extension when it is a jpg, jpeg or png.
func imageStem(name string) (string, bool) {
	ext := path.Ext(name)
	for _, e := range imageExtensions {
		if ext == e {
			return strings.TrimSuffix(name, ext), true
		}
	}
	return "", false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
