package models

import (
	"strings"
	"time"
)

type DeviceStatus string

const (
	DeviceStatusOn  DeviceStatus = "ON"
	DeviceStatusOff DeviceStatus = "OFF"
)

// ParseDeviceStatus accepts ON/OFF in any letter case.
func ParseDeviceStatus(s string) (DeviceStatus, bool) {
	switch DeviceStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case DeviceStatusOn:
		return DeviceStatusOn, true
	case DeviceStatusOff:
		return DeviceStatusOff, true
	}
	return "", false
}

type Device struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Model       string       `json:"model"`
	Location    string       `json:"location"`
	Power       string       `json:"power"`
	Status      DeviceStatus `json:"status"`
	Icon        string       `json:"icon"`
	UserID      *int64       `json:"userId,omitempty"`
	LastUpdated time.Time    `json:"lastUpdated"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
