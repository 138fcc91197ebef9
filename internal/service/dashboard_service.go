package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/cache"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
)

const PlaceholderUserName = "Smart Home User"

// CurrentValue is the latest reading of one type, or a zero placeholder.
type CurrentValue struct {
	Value     float64        `json:"value"`
	Unit      string         `json:"unit"`
	Display   string         `json:"display"`
	Quality   models.Quality `json:"quality,omitempty"`
	Location  string         `json:"location,omitempty"`
	Timestamp *time.Time     `json:"timestamp"`
	Fallback  bool           `json:"fallback"`
}

type CurrentValues struct {
	Current     CurrentValue `json:"current"`
	Temperature CurrentValue `json:"temperature"`
	Humidity    CurrentValue `json:"humidity"`
	Light       CurrentValue `json:"light"`
	Energy      CurrentValue `json:"energy"`
}

type DashboardUser struct {
	ID    int64           `json:"id,omitempty"`
	Name  string          `json:"name"`
	Email string          `json:"email,omitempty"`
	Role  models.UserRole `json:"role"`
	Image string          `json:"image,omitempty"`
}

type DashboardView struct {
	User        DashboardUser   `json:"user"`
	Devices     []models.Device `json:"devices"`
	Values      CurrentValues   `json:"values"`
	GeneratedAt time.Time       `json:"generatedAt"`
}

type RoomDevices struct {
	Location string
	Devices  []models.Device
}

type EnergyPage struct {
	DashboardView
	Series  Series
	Total   float64
	Average float64
}

type ClimatePage struct {
	DashboardView
	Temperature Series
	Humidity    Series
}

type LightingPage struct {
	DashboardView
	Lights   []models.Device
	LightsOn int
}

type AppliancesPage struct {
	DashboardView
	Rooms []RoomDevices
}

type SettingsPage struct {
	DashboardView
	Overview repository.Overview
}

type DashboardService struct {
	stores   repository.Stores
	snapshot *cache.Snapshot
	energy   *EnergyService
	log      zerolog.Logger
	now      func() time.Time
}

func NewDashboardService(stores repository.Stores, snapshot *cache.Snapshot, energy *EnergyService, log zerolog.Logger) *DashboardService {
	return &DashboardService{
		stores:   stores,
		snapshot: snapshot,
		energy:   energy,
		log:      log.With().Str("component", "dashboard").Logger(),
		now:      time.Now,
	}
}

// CurrentValues never fails: missing or unreadable types fall back to zero placeholders.
func (s *DashboardService) CurrentValues(ctx context.Context) CurrentValues {
	var values CurrentValues
	if ok, err := s.snapshot.Load(ctx, &values); err != nil {
		s.log.Warn().Err(err).Msg("load current values snapshot")
	} else if ok {
		return values
	}

	gen, err := s.snapshot.Generation(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("read current values generation")
	}

	values = CurrentValues{
		Current:     s.latest(ctx, models.SensorCurrent),
		Temperature: s.latest(ctx, models.SensorTemperature),
		Humidity:    s.latest(ctx, models.SensorHumidity),
		Light:       s.latest(ctx, models.SensorLight),
		Energy:      s.latest(ctx, models.SensorEnergy),
	}
	if err == nil {
		if _, err := s.snapshot.Store(ctx, gen, values); err != nil {
			s.log.Warn().Err(err).Msg("store current values snapshot")
		}
	}
	return values
}

func (s *DashboardService) latest(ctx context.Context, t models.SensorType) CurrentValue {
	reading, err := s.stores.Readings.LatestByType(ctx, t)
	if err != nil {
		if !errors.Is(err, repository.ErrReadingNotFound) {
			s.log.Error().Err(err).Str("type", string(t)).Msg("latest reading")
		}
		return CurrentValue{Unit: t.DefaultUnit(), Display: formatValue(t, 0), Fallback: true}
	}
	ts := reading.Timestamp
	return CurrentValue{
		Value:     reading.Value,
		Unit:      reading.Unit,
		Display:   formatValue(t, reading.Value),
		Quality:   reading.Quality,
		Location:  reading.Location,
		Timestamp: &ts,
	}
}

func formatValue(t models.SensorType, v float64) string {
	switch t {
	case models.SensorTemperature:
		return fmt.Sprintf("%.1f°C", v)
	case models.SensorHumidity:
		return fmt.Sprintf("%.0f%%", v)
	case models.SensorLight:
		return fmt.Sprintf("%.0f lux", v)
	case models.SensorEnergy:
		return fmt.Sprintf("%.2f kWh", v)
	default:
		return fmt.Sprintf("%.1f %s", v, t.DefaultUnit())
	}
}

// View assembles the dashboard for viewer, which may be nil for anonymous requests.
func (s *DashboardService) View(ctx context.Context, viewer *models.User) DashboardView {
	devices, err := s.stores.Devices.List(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("list devices for dashboard")
		devices = []models.Device{}
	}
	return DashboardView{
		User:        s.resolveUser(ctx, viewer),
		Devices:     devices,
		Values:      s.CurrentValues(ctx),
		GeneratedAt: s.now().UTC(),
	}
}

func (s *DashboardService) resolveUser(ctx context.Context, viewer *models.User) DashboardUser {
	if viewer == nil {
		first, err := s.stores.Users.First(ctx)
		if err != nil {
			if !errors.Is(err, repository.ErrUserNotFound) {
				s.log.Error().Err(err).Msg("load first user")
			}
			return DashboardUser{Name: PlaceholderUserName, Role: models.UserRoleUser}
		}
		viewer = &first
	}
	u := DashboardUser{ID: viewer.ID, Name: viewer.Name, Email: viewer.Email, Role: viewer.Role}
	if viewer.ImageURL != nil {
		u.Image = *viewer.ImageURL
	}
	return u
}

func (s *DashboardService) EnergyPage(ctx context.Context, viewer *models.User) (EnergyPage, error) {
	series, err := s.energy.Series(ctx, DefaultWindowHours)
	if err != nil {
		return EnergyPage{}, err
	}
	page := EnergyPage{DashboardView: s.View(ctx, viewer), Series: series}
	for _, v := range series.Data {
		page.Total += v
	}
	if len(series.Data) > 0 {
		page.Average = round2(page.Total / float64(len(series.Data)))
	}
	page.Total = round2(page.Total)
	return page, nil
}

func (s *DashboardService) ClimatePage(ctx context.Context, viewer *models.User) (ClimatePage, error) {
	temperature, err := s.energy.SeriesFor(ctx, models.SensorTemperature, DefaultWindowHours)
	if err != nil {
		return ClimatePage{}, err
	}
	humidity, err := s.energy.SeriesFor(ctx, models.SensorHumidity, DefaultWindowHours)
	if err != nil {
		return ClimatePage{}, err
	}
	return ClimatePage{DashboardView: s.View(ctx, viewer), Temperature: temperature, Humidity: humidity}, nil
}

func (s *DashboardService) LightingPage(ctx context.Context, viewer *models.User) LightingPage {
	view := s.View(ctx, viewer)
	page := LightingPage{DashboardView: view, Lights: []models.Device{}}
	for _, d := range view.Devices {
		if isLight(d) {
			page.Lights = append(page.Lights, d)
			if d.Status == models.DeviceStatusOn {
				page.LightsOn++
			}
		}
	}
	return page
}

func (s *DashboardService) AppliancesPage(ctx context.Context, viewer *models.User) AppliancesPage {
	view := s.View(ctx, viewer)
	byRoom := make(map[string][]models.Device)
	for _, d := range view.Devices {
		if !isLight(d) {
			byRoom[d.Location] = append(byRoom[d.Location], d)
		}
	}
	rooms := make([]RoomDevices, 0, len(byRoom))
	for location, devices := range byRoom {
		rooms = append(rooms, RoomDevices{Location: location, Devices: devices})
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Location < rooms[j].Location })
	return AppliancesPage{DashboardView: view, Rooms: rooms}
}

func (s *DashboardService) SettingsPage(ctx context.Context, viewer *models.User) (SettingsPage, error) {
	overview, err := s.stores.Reports.Overview(ctx)
	if err != nil {
		return SettingsPage{}, apperr.Internal(fmt.Errorf("overview: %w", err))
	}
	return SettingsPage{DashboardView: s.View(ctx, viewer), Overview: overview}, nil
}

func isLight(d models.Device) bool {
	return strings.Contains(d.Icon, "lightbulb") || strings.Contains(strings.ToLower(d.Name), "light")
}
