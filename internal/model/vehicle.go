package model

import "strings"

// VehicleType is the category reported by the registration lookup.
type VehicleType string

const (
	VehicleTypeStandard    VehicleType = "standard"
	VehicleTypeEV          VehicleType = "EV"
	VehicleTypePHEV        VehicleType = "PHEV"
	VehicleTypeMotorbike   VehicleType = "MOTORBIKE"
	VehicleTypeVan         VehicleType = "VAN"
	VehicleTypePerformance VehicleType = "PERFORMANCE"
)

// ParseVehicleType normalizes a lookup or form value. Unknown values map to
// VehicleTypeStandard.
func ParseVehicleType(s string) VehicleType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EV", "ELECTRIC":
		return VehicleTypeEV
	case "PHEV", "PLUG-IN HYBRID":
		return VehicleTypePHEV
	case "MOTORBIKE", "MOTORCYCLE":
		return VehicleTypeMotorbike
	case "VAN", "LCV":
		return VehicleTypeVan
	case "PERFORMANCE":
		return VehicleTypePerformance
	default:
		return VehicleTypeStandard
	}
}

// VehicleData describes the vehicle being quoted. Only RegNumber and Mileage
// are guaranteed; the rest comes from the registration lookup when it succeeds.
type VehicleData struct {
	RegNumber    string      `json:"regNumber"`
	Mileage      int         `json:"mileage"`
	Found        bool        `json:"found,omitempty"`
	Make         string      `json:"make,omitempty"`
	Model        string      `json:"model,omitempty"`
	FuelType     string      `json:"fuelType,omitempty"`
	Transmission string      `json:"transmission,omitempty"`
	Year         int         `json:"yearOfManufacture,omitempty"`
	VehicleType  VehicleType `json:"vehicleType,omitempty"`
	Blocked      bool        `json:"blocked,omitempty"`
	BlockReason  string      `json:"blockReason,omitempty"`
}

// NormalizedReg returns the registration upper-cased with spaces removed.
func (v VehicleData) NormalizedReg() string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(v.RegNumber), " ", ""))
}
