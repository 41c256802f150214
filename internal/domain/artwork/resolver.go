package artwork

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// Request is one reference to resolve, with the context needed by the
// fallback strategies. Slot is empty for fanart variants.
type Request struct {
	Reference    Reference
	FileLocation string
	Slot         SlotKind
}

// Strategy yields the references to try for a request, in order.
type Strategy interface {
	Name() string
	Candidates(req Request) []Reference
}

// DirectStrategy tries the request's own reference.
type DirectStrategy struct{}

func (DirectStrategy) Name() string { return "direct" }

func (DirectStrategy) Candidates(req Request) []Reference {
	if req.Reference == "" {
		return nil
	}
	return []Reference{req.Reference}
}

// AncestorStrategy guesses sibling artwork files in the directories above the
// playing file. It only applies to slots with ancestor fallback and to file
// locations using one of Schemes.
type AncestorStrategy struct {
	Schemes   []string
	MaxLevels int
}

func (AncestorStrategy) Name() string { return "ancestors" }

func (s AncestorStrategy) Candidates(req Request) []Reference {
	if !req.Slot.HasAncestorFallback() || !hasScheme(req.FileLocation, s.Schemes) {
		return nil
	}
	return AncestorCandidates(req.FileLocation, req.Slot, s.MaxLevels)
}

// DefaultRemoteSchemes are the location schemes treated as remote filesystems.
var DefaultRemoteSchemes = []string{"nfs://", "smb://"}

// Resolver turns artwork references into fetchable addresses.
// Resolution runs the strategies in order (direct, then ancestors) and stops
// at the first candidate Kodi can prepare for download. After an
// authorization failure the caller may Retry with the ancestor strategy.
type Resolver struct {
	remote     RemoteFiles
	baseURL    string
	strategies []Strategy
	retry      []Strategy
}

// NewResolver creates a resolver. baseURL is the Kodi web server root used to
// build download URLs. schemes selects the locations eligible for the
// ancestor search (DefaultRemoteSchemes when empty).
func NewResolver(remote RemoteFiles, baseURL string, schemes []string) *Resolver {
	if len(schemes) == 0 {
		schemes = DefaultRemoteSchemes
	}
	ancestors := AncestorStrategy{Schemes: schemes, MaxLevels: DefaultAncestorLevels}

	return &Resolver{
		remote:     remote,
		baseURL:    strings.TrimRight(baseURL, "/"),
		strategies: []Strategy{DirectStrategy{}, ancestors},
		retry:      []Strategy{ancestors},
	}
}

// Resolve returns the first address produced by the resolution strategies.
// The error wraps ErrUnresolved when every candidate failed.
func (r *Resolver) Resolve(ctx context.Context, req Request) (ResolvedAddress, error) {
	return r.run(ctx, req, r.strategies, nil)
}

// Retry walks the retry strategies and hands each resolved address to accept
// (typically a download) until accept succeeds.
func (r *Resolver) Retry(ctx context.Context, req Request, accept func(ResolvedAddress) error) (ResolvedAddress, error) {
	return r.run(ctx, req, r.retry, accept)
}

func (r *Resolver) run(ctx context.Context, req Request, strategies []Strategy, accept func(ResolvedAddress) error) (ResolvedAddress, error) {
	var lastErr, rejected error
	tried := 0

	for _, strategy := range strategies {
		for _, candidate := range strategy.Candidates(req) {
			if err := ctx.Err(); err != nil {
				return ResolvedAddress{}, fmt.Errorf("%w: %w", ErrUnresolved, err)
			}
			tried++

			addr, err := r.ResolveReference(ctx, candidate)
			if err != nil {
				lastErr = err
				continue
			}
			if accept != nil {
				if err := accept(addr); err != nil {
					log.Debug().Err(err).Str("candidate", string(candidate)).Msg("Candidate rejected")
					rejected = err
					continue
				}
			}

			log.Debug().
				Str("slot", string(req.Slot)).
				Str("strategy", strategy.Name()).
				Str("candidate", string(candidate)).
				Str("kind", addr.Kind.String()).
				Msg("Resolved artwork address")
			return addr, nil
		}
	}

	if rejected != nil {
		lastErr = rejected
	}
	if lastErr == nil {
		return ResolvedAddress{}, fmt.Errorf("%w: %s (no candidates)", ErrUnresolved, req.Reference)
	}
	return ResolvedAddress{}, fmt.Errorf("%w: %s (%d candidates): %w", ErrUnresolved, req.Reference, tried, lastErr)
}

// ResolveReference is the primary resolution step for a single reference:
// external URLs are returned verbatim, everything else is decoded and
// submitted to the remote prepare-download operation.
func (r *Resolver) ResolveReference(ctx context.Context, ref Reference) (ResolvedAddress, error) {
	internal := ref.Decode()
	if internal == "" {
		return ResolvedAddress{}, ErrNoReference
	}

	if isHTTPURL(internal) {
		return ResolvedAddress{Kind: AddressExternal, URL: internal}, nil
	}

	details, err := r.remote.PrepareDownload(ctx, internal)
	if err != nil {
		return ResolvedAddress{}, fmt.Errorf("prepare download %s: %w", internal, err)
	}

	return r.address(internal, details)
}

// address builds the download URL from a prepare-download answer. A token
// takes precedence over a path; neither is a failure.
func (r *Resolver) address(internal string, details DownloadDetails) (ResolvedAddress, error) {
	switch {
	case details.Token != "":
		return ResolvedAddress{
			Kind:  AddressToken,
			URL:   r.baseURL + "/vfs/" + details.Token + "/" + url.PathEscape(baseName(internal)),
			Token: details.Token,
		}, nil
	case details.Path != "":
		return ResolvedAddress{
			Kind: AddressPath,
			URL:  r.baseURL + "/" + strings.TrimPrefix(details.Path, "/"),
			Path: details.Path,
		}, nil
	}
	return ResolvedAddress{}, fmt.Errorf("%w: %s: no token or path in download details", ErrUnresolved, internal)
}
