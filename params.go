package mxprint

// Factory defaults for print parameters, applied to a device until the
// first read-back overwrites them.
const (
	DefaultPrinterHead  = 0
	DefaultLandscapePix = 600
	DefaultPortraitPix  = 600
	DefaultDistance     = 0
	DefaultCycles       = -1
	DefaultRepeatTime   = 1
	DefaultDirection    = 1
	DefaultTemperature  = 42
	DefaultMcuVersion   = "0.0.0"
)

// ApplyParameterDefaults seeds a freshly discovered device with the factory
// parameter values.
func ApplyParameterDefaults(d *Device) {
	d.PrinterHead = DefaultPrinterHead
	d.LPix = DefaultLandscapePix
	d.PPix = DefaultPortraitPix
	d.Distance = DefaultDistance
	d.Cycles = DefaultCycles
	d.RepeatTime = DefaultRepeatTime
	d.Direction = DefaultDirection
	d.Temperature = DefaultTemperature
	if d.McuVersion == "" {
		d.McuVersion = DefaultMcuVersion
	}
}
