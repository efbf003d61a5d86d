package domain

import (
	"fmt"
	"math"
	"strings"
)

// RoomKind tells which chat modality a room key belongs to.
type RoomKind string

const (
	// RoomKindGeo location-bucketed public room
	RoomKindGeo RoomKind = "geo"
	// RoomKindOrder private buyer/seller room tied to one order
	RoomKindOrder RoomKind = "order"
)

const (
	geoRoomPrefix   = "geo-"
	orderRoomPrefix = "order-"

	// FallbackGeoRoomKey is the shared public room for clients without a
	// usable location.
	FallbackGeoRoomKey = geoRoomPrefix + "general"
)

// GeoRoomKey buckets coordinates into a 0.1 degree grid cell (~10km) and
// returns the room key for that cell. The key is a pure function of the cell,
// so any two vendors inside it resolve to the same room without central
// allocation. Missing, zero or out-of-range coordinates resolve to
// FallbackGeoRoomKey.
func GeoRoomKey(lat, lng float64) string {
	if !validCoordinates(lat, lng) {
		return FallbackGeoRoomKey
	}
	return fmt.Sprintf("%s%.1f,%.1f", geoRoomPrefix, roundCell(lat), roundCell(lng))
}

// OrderRoomKey returns the room key for an order chat thread.
func OrderRoomKey(orderID string) string {
	return orderRoomPrefix + orderID
}

// OrderIDFromRoomKey is the inverse of OrderRoomKey. ok is false when the key
// is not an order room key.
func OrderIDFromRoomKey(roomKey string) (string, bool) {
	if !strings.HasPrefix(roomKey, orderRoomPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(roomKey, orderRoomPrefix)
	if id == "" {
		return "", false
	}
	return id, true
}

// KindOfRoomKey classifies a room key. ok is false for malformed keys.
func KindOfRoomKey(roomKey string) (RoomKind, bool) {
	switch {
	case strings.HasPrefix(roomKey, geoRoomPrefix):
		return RoomKindGeo, true
	case strings.HasPrefix(roomKey, orderRoomPrefix) && len(roomKey) > len(orderRoomPrefix):
		return RoomKindOrder, true
	default:
		return "", false
	}
}

func validCoordinates(lat, lng float64) bool {
	if lat == 0 && lng == 0 {
		return false
	}
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func roundCell(v float64) float64 {
	return math.Round(v*10) / 10
}
