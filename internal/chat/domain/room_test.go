package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeoRoomKey_SameCellSameKey(t *testing.T) {
	// two vendors a few streets apart land in the same 0.1 degree cell
	keyA := GeoRoomKey(12.94, 77.61)
	keyB := GeoRoomKey(12.87, 77.64)

	assert.Equal(t, "geo-12.9,77.6", keyA)
	assert.NotEqual(t, keyA, keyB)
	assert.Equal(t, "geo-12.9,77.6", GeoRoomKey(12.94, 77.61))
	assert.Equal(t, keyB, GeoRoomKey(12.87, 77.64))
}

func TestGeoRoomKey_Deterministic(t *testing.T) {
	for i := 0; i < 5; i++ {
		assert.Equal(t, GeoRoomKey(25.033, 121.565), GeoRoomKey(25.033, 121.565))
	}
}

func TestGeoRoomKey_Fallback(t *testing.T) {
	assert.Equal(t, FallbackGeoRoomKey, GeoRoomKey(0, 0))
	assert.Equal(t, FallbackGeoRoomKey, GeoRoomKey(math.NaN(), 121.5))
	assert.Equal(t, FallbackGeoRoomKey, GeoRoomKey(25.0, math.Inf(1)))
	assert.Equal(t, FallbackGeoRoomKey, GeoRoomKey(91, 10))
	assert.Equal(t, FallbackGeoRoomKey, GeoRoomKey(10, 181))
	assert.Equal(t, FallbackGeoRoomKey, GeoRoomKey(-90.5, 0))
}

func TestGeoRoomKey_NegativeCoordinates(t *testing.T) {
	assert.Equal(t, "geo--33.9,151.2", GeoRoomKey(-33.87, 151.21))
}

func TestOrderRoomKey_RoundTrip(t *testing.T) {
	key := OrderRoomKey("ord-123")
	assert.Equal(t, "order-ord-123", key)

	id, ok := OrderIDFromRoomKey(key)
	assert.True(t, ok)
	assert.Equal(t, "ord-123", id)

	_, ok = OrderIDFromRoomKey("geo-12.9,77.6")
	assert.False(t, ok)
	_, ok = OrderIDFromRoomKey("order-")
	assert.False(t, ok)
}

func TestKindOfRoomKey(t *testing.T) {
	kind, ok := KindOfRoomKey(GeoRoomKey(12.94, 77.61))
	assert.True(t, ok)
	assert.Equal(t, RoomKindGeo, kind)

	kind, ok = KindOfRoomKey(OrderRoomKey("ord-1"))
	assert.True(t, ok)
	assert.Equal(t, RoomKindOrder, kind)

	kind, ok = KindOfRoomKey(FallbackGeoRoomKey)
	assert.True(t, ok)
	assert.Equal(t, RoomKindGeo, kind)

	_, ok = KindOfRoomKey("lobby")
	assert.False(t, ok)
	_, ok = KindOfRoomKey("")
	assert.False(t, ok)
}
