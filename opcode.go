package mxprint

// Printer opcodes. The printer replies to a read or write with a frame
// carrying the same opcode; 0x1000/0x1001 are unsolicited.
const (
	// Print head instructions (0x0000-0x00FF).
	OpWritePrinterParameters = 0x0002
	OpReadPrinterParameters  = 0x0003
	OpWriteCyclesRepeat      = 0x0005
	OpReadCyclesRepeat       = 0x0006
	OpWriteDirection         = 0x0007
	OpReadDirection          = 0x0008
	OpCleanPrinterHead       = 0x0009
	OpWriteHeadTemperature   = 0x0012
	OpReadHeadTemperature    = 0x0013
	OpReadHeadID             = 0x0014
	OpReadBattery            = 0x0018
	OpReadChargingState      = 0x0019

	// Payload transfer.
	OpTransmitPicture = 0x0100
	OpTransmitLogo    = 0x0204
	OpPrintPicture    = 0x0300

	// Device instructions (0x0200-0x02FF).
	OpReadDeviceInfo = 0x0200
	OpRestart        = 0x0201
	OpConnectState   = 0x0202
	OpUpdateMcu      = 0x0203

	OpWriteSilentState       = 0x0303
	OpReadSilentState        = 0x0304
	OpWriteAutoPowerOffState = 0x0305
	OpReadAutoPowerOffState  = 0x0306

	// Printer-initiated.
	OpPrintStart     = 0x1000
	OpPrintCompleted = 0x1001
)
