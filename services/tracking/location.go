package tracking

import (
	"context"
	"math"

	"homecare/models"
	"homecare/realtime"
)

// averageSpeedKmh is the naive urban travel speed used for ETA hints when
// the device reports no speed of its own.
const averageSpeedKmh = 30.0

// PublishLocation records the nurse's latest position and fans it out to every
// viewer of the session. Last write wins: older reports are overwritten, never
// queued. Publishing is only valid while the session is in a trackable state.
func (s *DefaultTrackingService) PublishLocation(ctx context.Context, requestID string, update models.LocationUpdate) error {
	loc := models.Location{
		Latitude:   update.Latitude,
		Longitude:  update.Longitude,
		Heading:    update.Heading,
		Speed:      update.Speed,
		ObservedAt: s.Monitor.Sched.Now(),
	}

	updated, err := s.Store.Update(ctx, requestID, func(session *models.TrackingSession) error {
		if !session.Status.IsTrackable() {
			return NewValidationError("session %s is not in a trackable state (%s)", requestID, session.Status)
		}
		session.LastKnownLocation = &loc
		return nil
	})
	if err != nil {
		return err
	}

	s.Hub.Emit(requestID, realtime.EventLocationUpdate, loc)

	if updated.Destination != nil && updated.Status == models.StatusOnTheWay {
		if eta := etaMinutes(loc, *updated.Destination); eta > 0 {
			s.Hub.Emit(requestID, realtime.EventNurseETA, map[string]interface{}{
				"etaMinutes": eta,
				"observedAt": loc.ObservedAt,
			})
		}
	}
	return nil
}

// etaMinutes estimates minutes of travel left using the great-circle distance
// at a fixed average speed, preferring the device-reported speed when present.
func etaMinutes(from, to models.Location) int {
	km := haversineKm(from.Latitude, from.Longitude, to.Latitude, to.Longitude)
	speed := averageSpeedKmh
	if from.Speed != nil && *from.Speed > 1 {
		// Device speed is m/s.
		speed = *from.Speed * 3.6
	}
	return int(math.Round(km / speed * 60))
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
