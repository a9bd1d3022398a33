package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"campusguard/interfaces"
	"campusguard/models"
	"campusguard/repositories"
	"campusguard/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	emergencyFixTimeout = 30 * time.Second
	normalFixTimeout    = 15 * time.Second

	// Normal fixes may reuse a recent cached reading; emergency fixes never do.
	normalFixMaxAge = 60 * time.Second

	trackingInterval    = 5 * time.Second
	trackingMinDistance = 10.0 // meters

	volunteerSearchRadius = 1000.0 // meters
)

// Geocoder converts between coordinates and human-readable addresses.
// Both directions are best-effort; failures return empty results.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
	Geocode(ctx context.Context, address string) (*models.GeoPoint, error)
}

// LocationSubscription is a disposable observer registration.
type LocationSubscription struct {
	once sync.Once
	stop func()
}

func (s *LocationSubscription) Unsubscribe() {
	s.once.Do(s.stop)
}

// LocationTracker acquires one-shot and continuous positioning through the
// injected provider and mirrors readings into the active session record.
type LocationTracker struct {
	provider      interfaces.LocationProvider
	geocoder      Geocoder
	emergencyRepo *repositories.EmergencyRepository
	userRepo      *repositories.UserRepository
	broadcaster   interfaces.Broadcaster

	mu           sync.Mutex
	tracking     bool
	stopWatch    func()
	sessionID    string
	lastKnown    *models.LocationData
	nextObserver int
	observers    map[int]func(models.LocationData)
}

func NewLocationTracker(
	provider interfaces.LocationProvider,
	geocoder Geocoder,
	emergencyRepo *repositories.EmergencyRepository,
	userRepo *repositories.UserRepository,
	broadcaster interfaces.Broadcaster,
) *LocationTracker {
	return &LocationTracker{
		provider:      provider,
		geocoder:      geocoder,
		emergencyRepo: emergencyRepo,
		userRepo:      userRepo,
		broadcaster:   broadcaster,
		observers:     make(map[int]func(models.LocationData)),
	}
}

// Initialize checks location permission. Returns false, never an error, when
// the user declined; callers degrade to a fallback region.
func (lt *LocationTracker) Initialize(ctx context.Context) bool {
	granted, err := lt.provider.PermissionState(ctx)
	if err != nil {
		logrus.Warnf("Location permission check failed: %v", err)
		return false
	}
	if !granted {
		logrus.Info("Location permission not granted, tracking unavailable")
	}
	return granted
}

// GetCurrentLocation requests a one-shot fix. Emergency fixes use the
// extended timeout and refuse cached readings. Returns nil on hard failure;
// the caller is expected to have a fallback.
func (lt *LocationTracker) GetCurrentLocation(ctx context.Context, isEmergency bool) *models.LocationFix {
	timeout := normalFixTimeout
	maxAge := normalFixMaxAge
	if isEmergency {
		timeout = emergencyFixTimeout
		maxAge = 0
	}

	reading, err := lt.provider.CurrentFix(ctx, timeout, maxAge)
	if err != nil || reading == nil {
		logrus.Warnf("One-shot location fix failed (emergency=%v): %v", isEmergency, err)
		return nil
	}

	lt.mu.Lock()
	lt.lastKnown = reading
	lt.mu.Unlock()

	fix := &models.LocationFix{
		Coords:              *reading,
		IsEmergencyLocation: isEmergency,
	}

	if isEmergency && lt.geocoder != nil {
		// Address is best-effort; a geocoding failure never fails the fix.
		if address, err := lt.geocoder.ReverseGeocode(ctx, reading.Latitude, reading.Longitude); err == nil {
			fix.Address = address
		} else {
			logrus.Debugf("Reverse geocoding failed: %v", err)
		}
	}

	return fix
}

// StartEmergencyTracking begins continuous positioning for the session.
// Calling while already tracking is a no-op success. Returns false when
// permissions or the positioning service are unavailable.
func (lt *LocationTracker) StartEmergencyTracking(ctx context.Context, sessionID string) bool {
	lt.mu.Lock()
	if lt.tracking {
		lt.mu.Unlock()
		return true
	}
	lt.mu.Unlock()

	if !lt.Initialize(ctx) {
		return false
	}

	stop, err := lt.provider.Watch(ctx, trackingInterval, trackingMinDistance, func(reading models.LocationData) {
		lt.handleReading(ctx, sessionID, reading)
	})
	if err != nil {
		logrus.Warnf("Failed to start location watch: %v", err)
		return false
	}

	lt.mu.Lock()
	lt.tracking = true
	lt.stopWatch = stop
	lt.sessionID = sessionID
	lt.mu.Unlock()

	logrus.WithField("sessionId", sessionID).Info("Emergency location tracking started")
	return true
}

// StopTracking cancels the continuous subscription. Safe to call when not
// tracking.
func (lt *LocationTracker) StopTracking() {
	lt.mu.Lock()
	stop := lt.stopWatch
	wasTracking := lt.tracking
	lt.tracking = false
	lt.stopWatch = nil
	lt.sessionID = ""
	lt.mu.Unlock()

	if wasTracking && stop != nil {
		stop()
		logrus.Info("Emergency location tracking stopped")
	}
}

func (lt *LocationTracker) IsTracking() bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return lt.tracking
}

// Subscribe registers an observer for continuous readings. Multiple
// observers may be active at once; dispose via the returned subscription.
func (lt *LocationTracker) Subscribe(fn func(models.LocationData)) *LocationSubscription {
	lt.mu.Lock()
	id := lt.nextObserver
	lt.nextObserver++
	lt.observers[id] = fn
	lt.mu.Unlock()

	return &LocationSubscription{stop: func() {
		lt.mu.Lock()
		delete(lt.observers, id)
		lt.mu.Unlock()
	}}
}

func (lt *LocationTracker) LastKnownLocation() *models.LocationData {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	if lt.lastKnown == nil {
		return nil
	}
	copied := *lt.lastKnown
	return &copied
}

func (lt *LocationTracker) handleReading(ctx context.Context, sessionID string, reading models.LocationData) {
	lt.mu.Lock()
	// Devices without a compass report no heading; derive the course from
	// the previous reading instead.
	if reading.Heading == 0 && lt.lastKnown != nil &&
		(lt.lastKnown.Latitude != reading.Latitude || lt.lastKnown.Longitude != reading.Longitude) {
		reading.Heading = utils.CalculateBearing(
			lt.lastKnown.Latitude, lt.lastKnown.Longitude,
			reading.Latitude, reading.Longitude,
		)
	}
	lt.lastKnown = &reading
	observers := make([]func(models.LocationData), 0, len(lt.observers))
	for _, fn := range lt.observers {
		observers = append(observers, fn)
	}
	lt.mu.Unlock()

	for _, fn := range observers {
		fn(reading)
	}

	if lt.emergencyRepo != nil {
		err := lt.emergencyRepo.Update(ctx, sessionID, bson.M{
			"location":     reading.Point(),
			"locationData": reading,
		})
		if err != nil {
			logrus.Warnf("Failed to persist tracked location: %v", err)
		}
	}

	if lt.broadcaster != nil {
		lt.broadcaster.BroadcastLocationUpdate(models.WSLocationUpdate{
			SessionID: sessionID,
			Location:  reading,
			Timestamp: time.Now(),
		})
	}
}

// ReverseGeocode resolves a coordinate to an address. Returns empty on
// failure rather than an error since addresses are always auxiliary.
func (lt *LocationTracker) ReverseGeocode(ctx context.Context, lat, lng float64) string {
	if lt.geocoder == nil {
		return ""
	}
	address, err := lt.geocoder.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		logrus.Debugf("Reverse geocoding failed: %v", err)
		return ""
	}
	return address
}

// Geocode resolves an address to a coordinate, or nil on failure.
func (lt *LocationTracker) Geocode(ctx context.Context, address string) *models.GeoPoint {
	if lt.geocoder == nil {
		return nil
	}
	point, err := lt.geocoder.Geocode(ctx, address)
	if err != nil {
		logrus.Debugf("Geocoding failed: %v", err)
		return nil
	}
	return point
}

// FindNearbyVolunteers returns available volunteers within radiusMeters of
// the given location, sorted ascending by distance.
func (lt *LocationTracker) FindNearbyVolunteers(ctx context.Context, location models.GeoPoint, radiusMeters float64) ([]models.NearbyVolunteer, error) {
	volunteers, err := lt.userRepo.GetAvailableVolunteers(ctx)
	if err != nil {
		return nil, err
	}

	return FilterNearbyVolunteers(volunteers, location, radiusMeters), nil
}

// FilterNearbyVolunteers is the pure distance-filtering step, split out so it
// can be tested without a database.
func FilterNearbyVolunteers(volunteers []models.User, location models.GeoPoint, radiusMeters float64) []models.NearbyVolunteer {
	// Box prefilter; haversine runs only for candidates inside it.
	box := utils.CalculateBoundingBox(location.Latitude, location.Longitude, radiusMeters)

	var nearby []models.NearbyVolunteer
	for _, volunteer := range volunteers {
		if volunteer.Location == nil {
			continue
		}
		if volunteer.Location.Latitude > box.NorthEast.Latitude ||
			volunteer.Location.Latitude < box.SouthWest.Latitude ||
			volunteer.Location.Longitude > box.NorthEast.Longitude ||
			volunteer.Location.Longitude < box.SouthWest.Longitude {
			continue
		}
		distance := utils.CalculateDistance(
			location.Latitude, location.Longitude,
			volunteer.Location.Latitude, volunteer.Location.Longitude,
		)
		if distance <= radiusMeters {
			nearby = append(nearby, models.NearbyVolunteer{
				User:     volunteer,
				Distance: distance,
			})
		}
	}

	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].Distance < nearby[j].Distance
	})

	return nearby
}
