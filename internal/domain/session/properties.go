package session

import "sync"

// ChargerStatus represents the charger state reported by the power subsystem.
type ChargerStatus int

const (
	ChargerDisconnected ChargerStatus = iota
	ChargerActive
	ChargerDone
	ChargerFault
)

// String returns the string representation of the charger status.
func (c ChargerStatus) String() string {
	switch c {
	case ChargerDisconnected:
		return "disconnected"
	case ChargerActive:
		return "active"
	case ChargerDone:
		return "done"
	case ChargerFault:
		return "fault"
	default:
		return "unknown"
	}
}

// ChargeType represents the negotiated charge profile.
type ChargeType int

const (
	ChargeTypeNormal ChargeType = iota
	ChargeTypeFast
)

// Properties is the shared device configuration record. Unlike State it is
// read synchronously by chip request callbacks from outside the engine
// goroutine, so access is mutex-guarded.
type Properties struct {
	mu sync.RWMutex

	volume     int
	color      int
	brightness int
	bass       int
	treble     int

	ecoMode          bool
	soundIcons       bool
	batteryFriendly  bool
	offTimerMinutes  int
	batteryLevel     int
	batteryCapacity  int
	batteryMaxCapMAh int
	chargerStatus    ChargerStatus
	chargeType       ChargeType
	firmwareVersion  string
}

// PropertyDefaults seeds a fresh properties record.
type PropertyDefaults struct {
	Volume             int
	Color              int
	Brightness         int
	SoundIconsEnabled  bool
	OffTimerMinutes    int
	BatteryCapacityMAh int
}

// NewProperties creates a properties record with the given defaults.
func NewProperties(d PropertyDefaults) *Properties {
	return &Properties{
		volume:           d.Volume,
		color:            d.Color,
		brightness:       d.Brightness,
		soundIcons:       d.SoundIconsEnabled,
		offTimerMinutes:  d.OffTimerMinutes,
		batteryMaxCapMAh: d.BatteryCapacityMAh,
	}
}

// Volume returns the current absolute volume.
func (p *Properties) Volume() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.volume
}

// SetVolume sets the current absolute volume.
func (p *Properties) SetVolume(v int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = v
}

// Color returns the device color code.
func (p *Properties) Color() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.color
}

// SetColor sets the device color code.
func (p *Properties) SetColor(c int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.color = c
}

// Brightness returns the LED brightness.
func (p *Properties) Brightness() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.brightness
}

// SetBrightness sets the LED brightness.
func (p *Properties) SetBrightness(b int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.brightness = b
}

// Bass returns the bass EQ setting.
func (p *Properties) Bass() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bass
}

// SetBass sets the bass EQ setting.
func (p *Properties) SetBass(v int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.bass = v
}

// Treble returns the treble EQ setting.
func (p *Properties) Treble() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.treble
}

// SetTreble sets the treble EQ setting.
func (p *Properties) SetTreble(v int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.treble = v
}

// EcoMode returns whether eco mode is enabled.
func (p *Properties) EcoMode() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ecoMode
}

// SetEcoMode sets eco mode.
func (p *Properties) SetEcoMode(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ecoMode = on
}

// SoundIconsEnabled returns whether audible indicators are enabled.
func (p *Properties) SoundIconsEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.soundIcons
}

// SetSoundIconsEnabled enables or disables audible indicators.
func (p *Properties) SetSoundIconsEnabled(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.soundIcons = on
}

// BatteryFriendlyCharging returns whether battery-friendly charging is on.
func (p *Properties) BatteryFriendlyCharging() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.batteryFriendly
}

// SetBatteryFriendlyCharging enables or disables battery-friendly charging.
func (p *Properties) SetBatteryFriendlyCharging(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batteryFriendly = on
}

// OffTimerMinutes returns the configured off-timer, in minutes.
func (p *Properties) OffTimerMinutes() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.offTimerMinutes
}

// SetOffTimerMinutes sets the off-timer, in minutes.
func (p *Properties) SetOffTimerMinutes(m int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.offTimerMinutes = m
}

// BatteryLevel returns the last reported battery level in percent.
func (p *Properties) BatteryLevel() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.batteryLevel
}

// SetBatteryLevel records the battery level in percent.
func (p *Properties) SetBatteryLevel(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batteryLevel = percent
}

// BatteryCapacity returns the last measured battery capacity in mAh.
func (p *Properties) BatteryCapacity() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.batteryCapacity
}

// SetBatteryCapacity records the measured battery capacity in mAh.
func (p *Properties) SetBatteryCapacity(mAh int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batteryCapacity = mAh
}

// BatteryMaxCapacity returns the design battery capacity in mAh.
func (p *Properties) BatteryMaxCapacity() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.batteryMaxCapMAh
}

// ChargerStatus returns the last reported charger status.
func (p *Properties) ChargerStatus() ChargerStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.chargerStatus
}

// SetChargerStatus records the charger status.
func (p *Properties) SetChargerStatus(s ChargerStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chargerStatus = s
}

// FirmwareVersion returns the module firmware version captured at the
// last power-on, empty if never captured.
func (p *Properties) FirmwareVersion() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.firmwareVersion
}

// SetFirmwareVersion records the module firmware version.
func (p *Properties) SetFirmwareVersion(v string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.firmwareVersion = v
}

// ChargeType returns the negotiated charge profile.
func (p *Properties) ChargeType() ChargeType {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.chargeType
}

// SetChargeType records the negotiated charge profile.
func (p *Properties) SetChargeType(t ChargeType) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chargeType = t
}
