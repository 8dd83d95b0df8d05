package identity

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittosync/pkg/model"
)

func sampleConfig() *DiscoveryConfig {
	return &DiscoveryConfig{
		PreferP2P:    true,
		RelayTimeout: 5 * time.Second,
		MaxAdvertAge: time.Minute,
	}
}

func sampleAdvert(addresses []netip.AddrPort, relays []RelayHint) *PeerAdvertisement {
	return &PeerAdvertisement{
		DeviceID:     model.NewID(),
		UserID:       model.NewID(),
		SessionID:    model.NewID(),
		Addresses:    addresses,
		Relays:       relays,
		AdvertisedAt: time.Now(),
	}
}

func TestUserAuthToken_IsValid(t *testing.T) {
	now := time.Now()
	token := UserAuthToken{
		UserID:    model.NewID(),
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Minute),
		Token:     []byte{1, 2, 3},
	}

	require.NoError(t, token.IsValid(now))

	err := token.IsValid(now.Add(time.Minute + time.Second))
	require.Error(t, err)

	var idErr *IdentityError
	require.ErrorAs(t, err, &idErr)
	assert.Equal(t, ErrAuthExpired, idErr.Code)

	// Expiry is inclusive.
	assert.Error(t, token.IsValid(now.Add(time.Minute)))
}

func TestChoosePath_PrefersDirect(t *testing.T) {
	addr := netip.MustParseAddrPort("10.0.0.2:7777")
	advert := sampleAdvert(
		[]netip.AddrPort{addr},
		[]RelayHint{{RelayID: model.NewID(), URL: "wss://relay.example.com"}},
	)

	selection, err := ChoosePath(advert, sampleConfig())
	require.NoError(t, err)
	require.NotNil(t, selection.Chosen)
	assert.Equal(t, advert.DeviceID, selection.Target)
	assert.Equal(t, PathPeerToPeer, selection.Chosen.Kind)
	assert.Equal(t, addr, selection.Chosen.Addr)
	assert.Len(t, selection.Attempted, 1)
}

func TestChoosePath_FallsBackToRelay(t *testing.T) {
	relay := RelayHint{RelayID: model.NewID(), URL: "wss://relay.example.com"}
	advert := sampleAdvert(nil, []RelayHint{relay})

	selection, err := ChoosePath(advert, sampleConfig())
	require.NoError(t, err)
	require.NotNil(t, selection.Chosen)
	assert.Equal(t, PathRelay, selection.Chosen.Kind)
	require.NotNil(t, selection.Chosen.Relay)
	assert.Equal(t, relay.RelayID, selection.Chosen.Relay.RelayID)
	// No advertised address: the via hint stays zero.
	assert.False(t, selection.Chosen.Via.IsValid())
}

func TestChoosePath_RelayCarriesViaHint(t *testing.T) {
	addr := netip.MustParseAddrPort("10.0.0.2:7777")
	relay := RelayHint{RelayID: model.NewID(), URL: "wss://relay.example.com"}
	advert := sampleAdvert([]netip.AddrPort{addr}, []RelayHint{relay})

	config := sampleConfig()
	config.PreferP2P = false

	selection, err := ChoosePath(advert, config)
	require.NoError(t, err)
	require.NotNil(t, selection.Chosen)
	assert.Equal(t, PathRelay, selection.Chosen.Kind)
	assert.Equal(t, addr, selection.Chosen.Via)
}

func TestChoosePath_NoPath(t *testing.T) {
	advert := sampleAdvert(nil, nil)

	_, err := ChoosePath(advert, sampleConfig())
	require.Error(t, err)

	var idErr *IdentityError
	require.ErrorAs(t, err, &idErr)
	assert.Equal(t, ErrNoPath, idErr.Code)
	assert.Equal(t, advert.DeviceID, idErr.Target)
}
