// Package identity carries device and user identity data plus the
// connection path selection used before any bytes move between peers.
//
// Keys and tokens are opaque byte slices here: binding to a concrete
// crypto library happens at a higher layer. Path selection is a pure
// function over a peer advertisement; actual dialing, relay fallback
// timing, and transport negotiation are the transfer layer's business.
package identity

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/marmos91/dittosync/pkg/model"
)

// ErrorCode is the category of an identity error.
type ErrorCode int

const (
	// ErrAuthExpired indicates the user auth token is past its expiry
	ErrAuthExpired ErrorCode = iota

	// ErrNoPath indicates no viable connection path to the peer exists
	ErrNoPath
)

// IdentityError is a domain error from identity and path selection.
type IdentityError struct {
	// Code is the error category
	Code ErrorCode

	// Target is the peer device for ErrNoPath
	Target model.DeviceID
}

// Error implements the error interface.
func (e *IdentityError) Error() string {
	switch e.Code {
	case ErrAuthExpired:
		return "authentication expired"
	case ErrNoPath:
		return fmt.Sprintf("no viable path to peer %s", e.Target)
	default:
		return "unknown identity error"
	}
}

// DeviceIdentity is a device-authenticated identity. The public key is
// raw bytes, typically an Ed25519 public key.
type DeviceIdentity struct {
	DeviceID        model.DeviceID `json:"device_id"`
	UserID          model.UserID   `json:"user_id"`
	DevicePublicKey []byte         `json:"device_public_key"`
	AttestedAt      time.Time      `json:"attested_at"`
}

// UserAuthToken is an opaque bearer token or signed proof for a user.
type UserAuthToken struct {
	UserID    model.UserID `json:"user_id"`
	IssuedAt  time.Time    `json:"issued_at"`
	ExpiresAt time.Time    `json:"expires_at"`
	Token     []byte       `json:"token"`
}

// IsValid fails with ErrAuthExpired when the token's expiry has passed.
// Expiry is inclusive: a token checked exactly at ExpiresAt is expired.
func (t *UserAuthToken) IsValid(now time.Time) error {
	if !now.Before(t.ExpiresAt) {
		return &IdentityError{Code: ErrAuthExpired}
	}
	return nil
}

// RelayHint names a fallback relay, e.g. wss://relay.example.com.
type RelayHint struct {
	RelayID model.RelayID `json:"relay_id"`
	URL     string        `json:"url"`
}

// PeerAdvertisement is the discovery record a peer publishes: direct
// addresses first, relays as fallback.
type PeerAdvertisement struct {
	DeviceID     model.DeviceID   `json:"device_id"`
	UserID       model.UserID     `json:"user_id"`
	SessionID    model.SessionID  `json:"session_id"`
	Addresses    []netip.AddrPort `json:"addresses"`
	Relays       []RelayHint      `json:"relays"`
	AdvertisedAt time.Time        `json:"advertised_at"`
}

// PathKind distinguishes the connection path variants.
type PathKind int

const (
	// PathPeerToPeer is a direct connection to one of the peer's
	// advertised addresses
	PathPeerToPeer PathKind = iota

	// PathRelay routes through a relay, optionally via a known peer
	// address
	PathRelay
)

// ConnectionPath is one way to reach a peer.
type ConnectionPath struct {
	// Kind selects which fields are meaningful
	Kind PathKind `json:"kind"`

	// Addr is the direct address for PathPeerToPeer
	Addr netip.AddrPort `json:"addr,omitempty"`

	// Relay is the relay to route through for PathRelay
	Relay *RelayHint `json:"relay,omitempty"`

	// Via is the peer address hint for PathRelay; the zero value means
	// the relay must locate the peer itself
	Via netip.AddrPort `json:"via,omitempty"`
}

// PathSelection is the outcome of resolving the best path to a peer.
type PathSelection struct {
	Target    model.DeviceID   `json:"target"`
	Chosen    *ConnectionPath  `json:"chosen,omitempty"`
	Attempted []ConnectionPath `json:"attempted"`
}

// DiscoveryConfig tunes discovery and connection preference. RelayTimeout
// and MaxAdvertAge are advisory for the dialing layer; selection itself
// does not wait or expire advertisements.
type DiscoveryConfig struct {
	PreferP2P    bool          `json:"prefer_p2p" mapstructure:"prefer_p2p"`
	RelayTimeout time.Duration `json:"relay_timeout" mapstructure:"relay_timeout"`
	MaxAdvertAge time.Duration `json:"max_advert_age" mapstructure:"max_advert_age"`
}

// ChoosePath selects the preferred connection path from an advertisement.
//
// Direct addresses win when the config prefers peer-to-peer; otherwise,
// or when no address is advertised, the first relay is chosen, carrying
// the first address as a via hint when one exists. Fails with ErrNoPath
// when the advertisement offers neither.
func ChoosePath(advert *PeerAdvertisement, config *DiscoveryConfig) (*PathSelection, error) {
	if config.PreferP2P && len(advert.Addresses) > 0 {
		path := ConnectionPath{Kind: PathPeerToPeer, Addr: advert.Addresses[0]}
		return &PathSelection{
			Target:    advert.DeviceID,
			Chosen:    &path,
			Attempted: []ConnectionPath{path},
		}, nil
	}

	if len(advert.Relays) > 0 {
		relay := advert.Relays[0]
		path := ConnectionPath{Kind: PathRelay, Relay: &relay}
		if len(advert.Addresses) > 0 {
			path.Via = advert.Addresses[0]
		}
		return &PathSelection{
			Target:    advert.DeviceID,
			Chosen:    &path,
			Attempted: []ConnectionPath{path},
		}, nil
	}

	return nil, &IdentityError{Code: ErrNoPath, Target: advert.DeviceID}
}
