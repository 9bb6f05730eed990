package model

import "time"

// Flag keys understood by the platform.
const (
	FlagForceDegraded = "force_degraded"
)

type AdminFlag struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

func (f AdminFlag) Bool() bool {
	switch f.Value {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
