package bike

import "time"

const (
	minCheckoutBattery    = 20
	minOperatingBattery   = 10
	standardServiceWindow = 3
	eBikeServiceWindow    = 2
)

// capability is the per-type behaviour a bike delegates to.
type capability interface {
	canCheckout(b Bike) bool
	needsMaintenance(b Bike, now time.Time) bool
	performMaintenance(b *Bike, now time.Time)
}

var capabilities = map[Type]capability{
	Standard: standardCapability{},
	EBike:    eBikeCapability{},
}

func capabilityOf(t Type) capability {
	if c, ok := capabilities[t]; ok {
		return c
	}
	return standardCapability{}
}

type standardCapability struct{}

func (standardCapability) canCheckout(b Bike) bool {
	return b.Status == StatusAvailable || b.Status == StatusReserved
}

func (standardCapability) needsMaintenance(b Bike, now time.Time) bool {
	return serviceDue(b, now, standardServiceWindow)
}

func (standardCapability) performMaintenance(b *Bike, now time.Time) {
	b.LastMaintenance = &now
	b.Status = StatusAvailable
}

type eBikeCapability struct{}

func (eBikeCapability) canCheckout(b Bike) bool {
	return standardCapability{}.canCheckout(b) && b.BatteryLevel >= minCheckoutBattery
}

func (eBikeCapability) needsMaintenance(b Bike, now time.Time) bool {
	return serviceDue(b, now, eBikeServiceWindow) || b.BatteryLevel < minOperatingBattery
}

func (eBikeCapability) performMaintenance(b *Bike, now time.Time) {
	b.LastMaintenance = &now
	b.BatteryLevel = 100
	b.Status = StatusAvailable
}

func serviceDue(b Bike, now time.Time, months int) bool {
	return b.LastMaintenance == nil || b.LastMaintenance.Before(now.AddDate(0, -months, 0))
}
