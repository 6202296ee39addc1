package chip

// Property identifies a device property the module can query or set.
type Property int

const (
	PropFirmwareVersion Property = iota
	PropColor
	PropOffTimer
	PropBrightness
	PropBass
	PropTreble
	PropEcoMode
	PropSoundIcons
	PropBatteryFriendlyCharging
	PropBatteryCapacity
	PropBatteryMaxCapacity
)

// String returns the string representation of the property.
func (p Property) String() string {
	switch p {
	case PropFirmwareVersion:
		return "firmware_version"
	case PropColor:
		return "color"
	case PropOffTimer:
		return "off_timer"
	case PropBrightness:
		return "brightness"
	case PropBass:
		return "bass"
	case PropTreble:
		return "treble"
	case PropEcoMode:
		return "eco_mode"
	case PropSoundIcons:
		return "sound_icons"
	case PropBatteryFriendlyCharging:
		return "battery_friendly_charging"
	case PropBatteryCapacity:
		return "battery_capacity"
	case PropBatteryMaxCapacity:
		return "battery_max_capacity"
	default:
		return "unknown"
	}
}

// ResponseCode is the fixed status code carried by request responses.
type ResponseCode int

const (
	CodeSuccess ResponseCode = 0
	CodeError   ResponseCode = 1
)

// Request is a chip-initiated property query or update.
type Request struct {
	Property Property
	Set      bool
	Value    int
}

// Response answers a chip-initiated request. Text is only set for
// string-valued properties (firmware version).
type Response struct {
	Code  ResponseCode
	Value int
	Text  string
}

// Ok builds a success response carrying an integer value.
func Ok(value int) Response {
	return Response{Code: CodeSuccess, Value: value}
}

// OkText builds a success response carrying a string value.
func OkText(text string) Response {
	return Response{Code: CodeSuccess, Text: text}
}

// Errored builds an error response.
func Errored() Response {
	return Response{Code: CodeError}
}
