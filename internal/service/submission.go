package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/models"
)

// MaxBatchSize bounds the number of readings accepted in one submission.
const MaxBatchSize = 1000

// earliest plausible device clock; anything older is treated as uptime millis
var minDeviceTime = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

type SubmissionShape string

const (
	ShapeSingle SubmissionShape = "single"
	ShapeBatch  SubmissionShape = "batch"
	ShapeLegacy SubmissionShape = "legacy"
)

// ReadingInput is one typed reading as submitted. Problems collects
// decode failures so they surface as validation errors for that item only.
type ReadingInput struct {
	SensorID   int64
	SensorType models.SensorType
	Value      *float64
	Unit       string
	Location   string
	Timestamp  *time.Time
	Quality    models.Quality
	Problems   []apperr.FieldError
}

type Submission struct {
	Shape SubmissionShape
	Items []ReadingInput
}

type rawReading struct {
	SensorID   json.RawMessage `json:"sensorId"`
	SensorType string          `json:"sensorType"`
	Value      json.RawMessage `json:"value"`
	Unit       string          `json:"unit"`
	Location   string          `json:"location"`
	Timestamp  json.RawMessage `json:"timestamp"`
	Quality    string          `json:"quality"`
}

var legacyFields = []struct {
	key        string
	sensorType models.SensorType
}{
	{"temperature", models.SensorTemperature},
	{"humidity", models.SensorHumidity},
	{"light_intensity", models.SensorLight},
	{"light", models.SensorLight},
	{"current", models.SensorCurrent},
	{"voltage", models.SensorVoltage},
	{"power", models.SensorPower},
	{"energy", models.SensorEnergy},
}

// Largest integer a JSON number carries exactly.
const maxJSONInteger = 1 << 53

var maxEpochMillis = time.Date(9999, time.December, 31, 23, 59, 59, 999_000_000, time.UTC).UnixMilli()

var (
	errTimestampFormat = errors.New("must be RFC 3339 or epoch milliseconds")
	errTimestampRange  = errors.New("must be epoch milliseconds between 1970 and 9999")
	errMissing         = errors.New("is required")
	errNotNumeric      = errors.New("must be numeric")
	errNotFinite       = errors.New("must be a finite number")
)

// DecodeSubmission detects which of the three accepted payload shapes body
// carries and splits it into typed readings.
func DecodeSubmission(body []byte, defaultLocation string) (Submission, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return Submission{}, err
	}

	if raw, ok := fields["readings"]; ok {
		items, err := decodeReadings(raw)
		if err != nil {
			return Submission{}, err
		}
		return Submission{Shape: ShapeBatch, Items: items}, nil
	}

	if _, ok := fields["sensorType"]; ok {
		return Submission{Shape: ShapeSingle, Items: []ReadingInput{DecodeReading(body)}}, nil
	}
	if _, ok := fields["sensorId"]; ok {
		return Submission{Shape: ShapeSingle, Items: []ReadingInput{DecodeReading(body)}}, nil
	}

	items := decodeLegacy(fields, defaultLocation)
	if len(items) == 0 {
		return Submission{}, apperr.Validation("payload contains no sensor values")
	}
	return Submission{Shape: ShapeLegacy, Items: items}, nil
}

// DecodeBatch reads a {"readings": [...]} document.
func DecodeBatch(body []byte) ([]ReadingInput, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return nil, err
	}
	raw, ok := fields["readings"]
	if !ok {
		return nil, apperr.Validation("readings array is required",
			apperr.FieldError{Field: "readings", Message: "is required"})
	}
	return decodeReadings(raw)
}

// DecodeReading never fails; malformed fields are recorded on the returned input.
func DecodeReading(raw []byte) ReadingInput {
	var r rawReading
	if err := json.Unmarshal(raw, &r); err != nil {
		return ReadingInput{Problems: []apperr.FieldError{{Field: "reading", Message: "must be a JSON object with valid field types"}}}
	}

	in := ReadingInput{
		SensorType: models.SensorType(strings.ToLower(strings.TrimSpace(r.SensorType))),
		Unit:       strings.TrimSpace(r.Unit),
		Location:   strings.TrimSpace(r.Location),
		Quality:    models.Quality(strings.ToUpper(strings.TrimSpace(r.Quality))),
	}

	if !isNull(r.SensorID) {
		id, err := parseNumber(r.SensorID)
		if err != nil || id <= 0 || id > maxJSONInteger || id != math.Trunc(id) {
			in.problem("sensorId", "must be a positive integer")
		} else {
			in.SensorID = int64(id)
		}
	}

	if value, err := parseNumber(r.Value); err != nil {
		in.problem("value", err.Error())
	} else {
		in.Value = &value
	}

	if !isNull(r.Timestamp) {
		ts, err := parseTimestamp(r.Timestamp)
		if err != nil {
			in.problem("timestamp", err.Error())
		} else {
			in.Timestamp = &ts
		}
	}
	return in
}

func (in *ReadingInput) problem(field, message string) {
	in.Problems = append(in.Problems, apperr.FieldError{Field: field, Message: message})
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, apperr.Validation("request body must be a JSON object")
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, apperr.Validation("request body must be a JSON object")
	}
	return fields, nil
}

func decodeReadings(raw json.RawMessage) ([]ReadingInput, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, apperr.Validation("readings must be an array",
			apperr.FieldError{Field: "readings", Message: "must be an array"})
	}
	if len(items) == 0 {
		return nil, apperr.Validation("readings array is required and must not be empty",
			apperr.FieldError{Field: "readings", Message: "must not be empty"})
	}
	if len(items) > MaxBatchSize {
		return nil, apperr.Validation("too many readings in one batch",
			apperr.FieldError{Field: "readings", Message: "must contain at most " + strconv.Itoa(MaxBatchSize) + " items"})
	}

	out := make([]ReadingInput, 0, len(items))
	for _, item := range items {
		out = append(out, DecodeReading(item))
	}
	return out, nil
}

func decodeLegacy(fields map[string]json.RawMessage, defaultLocation string) []ReadingInput {
	location := defaultLocation
	if raw, ok := fields["location"]; ok {
		var loc string
		if json.Unmarshal(raw, &loc) == nil && strings.TrimSpace(loc) != "" {
			location = strings.TrimSpace(loc)
		}
	}

	var ts *time.Time
	if raw, ok := fields["timestamp"]; ok && !isNull(raw) {
		if parsed, err := parseTimestamp(raw); err == nil && !parsed.Before(minDeviceTime) {
			ts = &parsed
		}
	}

	var out []ReadingInput
	seen := make(map[models.SensorType]bool)
	for _, f := range legacyFields {
		raw, ok := fields[f.key]
		if !ok || isNull(raw) || seen[f.sensorType] {
			continue
		}
		seen[f.sensorType] = true

		// No unit: the reading takes whatever unit its sensor reports in.
		in := ReadingInput{
			SensorType: f.sensorType,
			Location:   location,
			Timestamp:  ts,
		}
		if value, err := parseNumber(raw); err != nil {
			in.problem(f.key, err.Error())
		} else {
			in.Value = &value
		}
		out = append(out, in)
	}
	return out
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// parseNumber accepts JSON numbers and numeric strings.
func parseNumber(raw json.RawMessage) (float64, error) {
	if isNull(raw) {
		return 0, errMissing
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0, errNotNumeric
		}
		value, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, errNotNumeric
		}
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errNotFinite
	}
	return value, nil
}

// parseTimestamp accepts epoch milliseconds (number or numeric string) or RFC 3339.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		s = strings.TrimSpace(s)
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC(), nil
		}
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fromEpochMillis(float64(ms))
		}
		return time.Time{}, errTimestampFormat
	}

	var ms float64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, errTimestampFormat
	}
	return fromEpochMillis(ms)
}

func fromEpochMillis(ms float64) (time.Time, error) {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 || ms > float64(maxEpochMillis) {
		return time.Time{}, errTimestampRange
	}
	return time.UnixMilli(int64(ms)).UTC(), nil
}
