package catalog

import "fmt"

// Kind is an entity type that carries social counters.
type Kind string

const (
	KindArtist  Kind = "artist"
	KindListing Kind = "listing"
)

// Reaction is a counter on a card.
type Reaction string

const (
	ReactionLoves     Reaction = "loves"
	ReactionLikes     Reaction = "likes"
	ReactionFollowers Reaction = "followers"
)

// ParseKind validates a kind from a URL.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindArtist, KindListing:
		return Kind(raw), nil
	}
	return "", fmt.Errorf("unsupported kind %q", raw)
}

// ParseReaction validates a reaction for kind. Listings cannot be followed.
func ParseReaction(kind Kind, raw string) (Reaction, error) {
	switch r := Reaction(raw); r {
	case ReactionLoves, ReactionLikes:
		return r, nil
	case ReactionFollowers:
		if kind == KindArtist {
			return r, nil
		}
	}
	return "", fmt.Errorf("unsupported reaction %q for %s", raw, kind)
}

// Counts returns the reaction counters carried by an artist.
func (a Artist) Counts() map[Reaction]int64 {
	return map[Reaction]int64{
		ReactionLoves:     a.Loves,
		ReactionLikes:     a.Likes,
		ReactionFollowers: a.Followers,
	}
}

// Counts returns the reaction counters carried by a listing.
func (l Listing) Counts() map[Reaction]int64 {
	return map[Reaction]int64{
		ReactionLoves: l.Loves,
		ReactionLikes: l.Likes,
	}
}
