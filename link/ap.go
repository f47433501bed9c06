package link

import (
	"context"
	"fmt"
)

// SSIDProvider reports the SSID the phone is currently joined to. Sensing is
// platform work and lives with the host application.
type SSIDProvider interface {
	CurrentSSID() (string, error)
}

// AP speaks the TCP wire protocol to a printer hosting its own access point.
// The only difference from the Wi-Fi strategy is the precondition: the host
// must already be joined to the printer's SSID.
type AP struct {
	*TCP
	SSID  string
	Sense SSIDProvider
}

func NewAP(ssid, host string, port uint16, sense SSIDProvider) *AP {
	return &AP{TCP: NewTCP(host, port), SSID: ssid, Sense: sense}
}

func (a *AP) Connect(ctx context.Context) error {
	if a.Sense != nil {
		current, err := a.Sense.CurrentSSID()
		if err != nil {
			return fmt.Errorf("failed to sense current ssid: %w", err)
		}
		if current != a.SSID {
			return fmt.Errorf("not joined to printer AP %q (current %q)", a.SSID, current)
		}
	}
	return a.TCP.Connect(ctx)
}
