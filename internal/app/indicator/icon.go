// Package indicator schedules audible indicator (sound icon) playback.
package indicator

import "time"

// Icon identifies an audible indicator.
type Icon int

const (
	IconNone Icon = iota
	IconPowerOn
	IconPowerOff
	IconBtPairing
	IconSlavePairing
	IconChainMaster
	IconChainSlave
	IconChainDisconnected
	IconBatteryLow
)

// String returns the string representation of the icon.
func (i Icon) String() string {
	switch i {
	case IconNone:
		return "none"
	case IconPowerOn:
		return "power_on"
	case IconPowerOff:
		return "power_off"
	case IconBtPairing:
		return "bt_pairing"
	case IconSlavePairing:
		return "slave_pairing"
	case IconChainMaster:
		return "chain_master"
	case IconChainSlave:
		return "chain_slave"
	case IconChainDisconnected:
		return "chain_disconnected"
	case IconBatteryLow:
		return "battery_low"
	default:
		return "unknown"
	}
}

// nominalDurations gives the nominal playtime of each one-shot icon. The
// values gate collision timing only; playback hardware is not truncated
// against them.
var nominalDurations = map[Icon]time.Duration{
	IconPowerOn:           1800 * time.Millisecond,
	IconPowerOff:          1500 * time.Millisecond,
	IconBtPairing:         1000 * time.Millisecond,
	IconSlavePairing:      1000 * time.Millisecond,
	IconChainMaster:       1200 * time.Millisecond,
	IconChainSlave:        1200 * time.Millisecond,
	IconChainDisconnected: 800 * time.Millisecond,
	IconBatteryLow:        600 * time.Millisecond,
}

// IconByName maps configuration keys to icons. Unknown names map to
// IconNone.
func IconByName(name string) Icon {
	for i := IconPowerOn; i <= IconBatteryLow; i++ {
		if i.String() == name {
			return i
		}
	}
	return IconNone
}
