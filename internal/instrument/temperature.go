package instrument

import (
	"math"
	"strconv"
)

const (
	// TempOff switches incubation off.
	TempOff = 0.0
	// TempMonitorOnly switches incubation off but keeps temperature monitoring.
	TempMonitorOnly = 0.1

	// Active control range of the deployed hardware. The firmware accepts
	// 10.0-60.0 on other variants; that range is rejected here.
	TempMin = 25.0
	TempMax = 45.0
)

const invalidTemperature = "invalid temperature"

// Temperature is a setpoint that passed ValidateTemperature.
type Temperature struct {
	celsius float64
}

func NewTemperature(celsius float64) (Temperature, error) {
	if err := ValidateTemperature(celsius); err != nil {
		return Temperature{}, err
	}
	return Temperature{celsius: celsius}, nil
}

// ValidateTemperature accepts 0.0, 0.1 and [25.0, 45.0]. No rounding is
// applied, so 24.99 and 45.01 are rejected.
func ValidateTemperature(celsius float64) error {
	if math.IsNaN(celsius) || math.IsInf(celsius, 0) {
		return &ValidationError{Field: "temp", Value: celsius, Reason: invalidTemperature}
	}
	if celsius == TempOff || celsius == TempMonitorOnly {
		return nil
	}
	if celsius >= TempMin && celsius <= TempMax {
		return nil
	}
	return &ValidationError{Field: "temp", Value: celsius, Reason: invalidTemperature}
}

func (t Temperature) Celsius() float64 { return t.celsius }

// String is the decimal form passed as the single Temp argument.
func (t Temperature) String() string {
	return strconv.FormatFloat(t.celsius, 'f', -1, 64)
}
