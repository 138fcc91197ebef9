package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/realtime"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/repository"
)

var (
	devicePowerPattern = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)\s*[Ww]$`)
	deviceIconPattern  = regexp.MustCompile(`^fas fa-[a-z-]+$`)
)

func ValidDevicePower(s string) bool { return devicePowerPattern.MatchString(s) }

func ValidDeviceIcon(s string) bool { return deviceIconPattern.MatchString(s) }

// ParseWatts extracts the wattage from a rating such as "60W" or "1.5 w".
func ParseWatts(power string) (float64, bool) {
	m := devicePowerPattern.FindStringSubmatch(strings.TrimSpace(power))
	if m == nil {
		return 0, false
	}
	watts, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return watts, true
}

type DeviceInput struct {
	Name     string
	Model    string
	Location string
	Power    string
	Status   string
	Icon     string
	UserID   *int64
}

// DevicePatch carries a partial update; nil fields are left unchanged.
type DevicePatch struct {
	Name     *string
	Model    *string
	Location *string
	Power    *string
	Status   *string
	Icon     *string
}

type DeviceStats struct {
	DeviceID     int64      `json:"deviceId"`
	TotalEnergy  float64    `json:"totalEnergy"`
	AverageDaily float64    `json:"averageDaily"`
	TotalCost    float64    `json:"totalCost"`
	Samples      int64      `json:"samples"`
	LastRecorded *time.Time `json:"lastRecorded"`
}

type DeviceService struct {
	devices   repository.DeviceStore
	reports   repository.ReportStore
	publisher realtime.Publisher
	log       zerolog.Logger
	now       func() time.Time
}

func NewDeviceService(stores repository.Stores, publisher realtime.Publisher, log zerolog.Logger) *DeviceService {
	if publisher == nil {
		publisher = realtime.Discard{}
	}
	return &DeviceService{
		devices:   stores.Devices,
		reports:   stores.Reports,
		publisher: publisher,
		log:       log.With().Str("component", "devices").Logger(),
		now:       time.Now,
	}
}

func (s *DeviceService) List(ctx context.Context) ([]models.Device, error) {
	devices, err := s.devices.List(ctx)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("list devices: %w", err))
	}
	return devices, nil
}

func (s *DeviceService) Get(ctx context.Context, id int64) (models.Device, error) {
	device, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return models.Device{}, deviceError(err)
	}
	return device, nil
}

func (s *DeviceService) Create(ctx context.Context, in DeviceInput) (models.Device, error) {
	device := models.Device{
		Name:     strings.TrimSpace(in.Name),
		Model:    strings.TrimSpace(in.Model),
		Location: strings.TrimSpace(in.Location),
		Power:    strings.TrimSpace(in.Power),
		Icon:     strings.TrimSpace(in.Icon),
		Status:   models.DeviceStatusOff,
		UserID:   in.UserID,
	}
	if in.Status != "" {
		status, ok := models.ParseDeviceStatus(in.Status)
		if !ok {
			return models.Device{}, invalidStatus()
		}
		device.Status = status
	}
	if err := validateDevice(device); err != nil {
		return models.Device{}, err
	}
	if err := s.ensureNameFree(ctx, device.Name, 0); err != nil {
		return models.Device{}, err
	}

	device.LastUpdated = s.now().UTC()
	if err := s.devices.Create(ctx, &device); err != nil {
		return models.Device{}, deviceError(err)
	}
	s.log.Info().Int64("device_id", device.ID).Str("name", device.Name).Msg("device created")
	s.publish(ctx, device)
	return device, nil
}

func (s *DeviceService) Update(ctx context.Context, id int64, patch DevicePatch) (models.Device, error) {
	device, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return models.Device{}, deviceError(err)
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	apply(&device.Name, patch.Name)
	apply(&device.Model, patch.Model)
	apply(&device.Location, patch.Location)
	apply(&device.Power, patch.Power)
	apply(&device.Icon, patch.Icon)
	if patch.Status != nil {
		status, ok := models.ParseDeviceStatus(*patch.Status)
		if !ok {
			return models.Device{}, invalidStatus()
		}
		if status != device.Status {
			device.LastUpdated = s.now().UTC()
		}
		device.Status = status
	}
	if err := validateDevice(device); err != nil {
		return models.Device{}, err
	}
	if patch.Name != nil {
		if err := s.ensureNameFree(ctx, device.Name, device.ID); err != nil {
			return models.Device{}, err
		}
	}

	if err := s.devices.Update(ctx, &device); err != nil {
		return models.Device{}, deviceError(err)
	}
	s.publish(ctx, device)
	return device, nil
}

func (s *DeviceService) Delete(ctx context.Context, id int64) error {
	if err := s.devices.Delete(ctx, id); err != nil {
		return deviceError(err)
	}
	s.log.Info().Int64("device_id", id).Msg("device deleted")
	s.publisher.Publish(ctx, realtime.Event{
		Name: realtime.EventDeviceRemoved,
		Data: map[string]int64{"id": id},
	})
	return nil
}

// SetStatus switches a device ON or OFF. Repeating the current status still
// refreshes LastUpdated and broadcasts.
func (s *DeviceService) SetStatus(ctx context.Context, id int64, status string) (models.Device, error) {
	parsed, ok := models.ParseDeviceStatus(status)
	if !ok {
		return models.Device{}, invalidStatus()
	}
	device, err := s.devices.SetStatus(ctx, id, parsed, s.now().UTC())
	if err != nil {
		return models.Device{}, deviceError(err)
	}
	s.log.Info().Int64("device_id", id).Str("status", string(parsed)).Msg("device status changed")
	s.publish(ctx, device)
	return device, nil
}

func (s *DeviceService) Stats(ctx context.Context, id int64) (DeviceStats, error) {
	if _, err := s.devices.GetByID(ctx, id); err != nil {
		return DeviceStats{}, deviceError(err)
	}
	totals, err := s.reports.DeviceEnergyTotals(ctx, id)
	if err != nil {
		return DeviceStats{}, apperr.Internal(fmt.Errorf("device energy totals: %w", err))
	}

	stats := DeviceStats{
		DeviceID:     id,
		TotalEnergy:  round2(totals.TotalKWh),
		TotalCost:    round2(totals.TotalCost),
		Samples:      totals.Samples,
		LastRecorded: totals.Last,
	}
	if totals.First != nil && totals.Last != nil {
		days := math.Ceil(totals.Last.Sub(*totals.First).Hours() / 24)
		if days < 1 {
			days = 1
		}
		stats.AverageDaily = round2(totals.TotalKWh / days)
	}
	return stats, nil
}

func (s *DeviceService) ensureNameFree(ctx context.Context, name string, selfID int64) error {
	existing, err := s.devices.FindByName(ctx, name)
	if errors.Is(err, repository.ErrDeviceNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Internal(fmt.Errorf("find device by name: %w", err))
	}
	if existing.ID != selfID {
		return apperr.Conflict("Device with this name already exists")
	}
	return nil
}

func (s *DeviceService) publish(ctx context.Context, device models.Device) {
	s.publisher.Publish(ctx, realtime.Event{Name: realtime.EventDeviceUpdate, Data: device})
}

func validateDevice(d models.Device) error {
	var problems []apperr.FieldError
	if d.Name == "" || len(d.Name) > 50 {
		problems = append(problems, apperr.FieldError{Field: "name", Message: "must be 1 to 50 characters"})
	}
	if d.Model == "" || len(d.Model) > 50 {
		problems = append(problems, apperr.FieldError{Field: "model", Message: "must be 1 to 50 characters"})
	}
	if d.Location == "" || len(d.Location) > 50 {
		problems = append(problems, apperr.FieldError{Field: "location", Message: "must be 1 to 50 characters"})
	}
	if !ValidDevicePower(d.Power) {
		problems = append(problems, apperr.FieldError{Field: "power", Message: "must look like 60W"})
	}
	if !ValidDeviceIcon(d.Icon) {
		problems = append(problems, apperr.FieldError{Field: "icon", Message: "must look like fas fa-lightbulb"})
	}
	if len(problems) > 0 {
		return apperr.Validation("Invalid device", problems...)
	}
	return nil
}

func invalidStatus() error {
	return apperr.Validation("Status must be ON or OFF",
		apperr.FieldError{Field: "status", Message: "must be ON or OFF"})
}

func deviceError(err error) error {
	switch {
	case errors.Is(err, repository.ErrDeviceNotFound):
		return apperr.NotFound("Device not found")
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Conflict("Device with this name already exists")
	case errors.Is(err, repository.ErrReference):
		return apperr.Validation("Referenced user does not exist")
	}
	return apperr.Internal(err)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
