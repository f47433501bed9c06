package mxprint

import (
	"encoding/binary"
	"log/slog"

	"github.com/mxsdk/mxprint/packet"
	"github.com/mxsdk/mxprint/rowdata"
)

// payloadKind identifies which packet engine a transfer runs on.
type payloadKind int

const (
	payloadNone payloadKind = iota
	payloadMultiRow
	payloadLogo
	payloadOta
)

// transferState tracks the active chunked transfer. One payload at a time;
// the three engines are owned by the manager for the life of the process.
type transferState struct {
	multiRow packet.MultiRowPacket
	logo     packet.OtaPacket
	ota      packet.OtaPacket

	kind     payloadKind
	sendType DataSendType
	syncing  bool

	// waitingPrintComplete pauses a DataSendCompleteOnceWaitNext transfer at
	// a row boundary until the printer reports 0x1001.
	waitingPrintComplete bool

	// consecutiveErrors counts non-progress responses; MaxErrors aborts.
	consecutiveErrors int
}

// SetWithSendMultiRowDataPacket arms the multi-row engine and kicks the
// printer with a transmit-picture command. The printer then pulls packets.
// Rejected while another payload is syncing or while the command queue is
// not idle.
func (m *ConnectManager) SetWithSendMultiRowDataPacket(data *rowdata.MultiRowData, fh byte, sendType DataSendType) error {
	errc := make(chan error, 1)
	m.post(func() {
		if m.sm.Current() != connStateConnected {
			errc <- ErrNotConnected
			return
		}
		if m.transfer.syncing {
			errc <- ErrSyncingData
			return
		}
		if !m.cmdSched.empty() {
			errc <- ErrCommandQueueNotEmpty
			return
		}
		if !data.HasData() {
			errc <- packet.ErrNoData
			return
		}
		m.transfer.multiRow.Set(data, fh)
		m.transfer.kind = payloadMultiRow
		m.transfer.sendType = sendType
		m.transfer.syncing = true
		m.transfer.consecutiveErrors = 0
		m.transfer.waitingPrintComplete = false

		params := transmitParams(byte(data.CompressValue()), data.TotalRowCount(), data.TotalDataLength())
		m.enqueueKickCommand(OpTransmitPicture, params)
		errc <- nil
	})
	return <-errc
}

// SetWithSendLogoDataPacket arms the logo engine.
func (m *ConnectManager) SetWithSendLogoDataPacket(logo *rowdata.LogoData, fh byte) error {
	errc := make(chan error, 1)
	m.post(func() {
		if m.sm.Current() != connStateConnected {
			errc <- ErrNotConnected
			return
		}
		if m.transfer.syncing {
			errc <- ErrSyncingData
			return
		}
		if !logo.HasData() {
			errc <- packet.ErrNoData
			return
		}
		m.transfer.logo.Set(logo.Data, fh)
		m.transfer.kind = payloadLogo
		m.transfer.syncing = true
		m.transfer.consecutiveErrors = 0

		params := transmitParams(byte(logo.CompressValue()), 1, len(logo.Data))
		m.enqueueKickCommand(OpTransmitLogo, params)
		errc <- nil
	})
	return <-errc
}

// SetWithSendOtaDataPacket arms the OTA engine with a firmware image.
func (m *ConnectManager) SetWithSendOtaDataPacket(data []byte, fh byte) error {
	errc := make(chan error, 1)
	m.post(func() {
		if m.sm.Current() != connStateConnected {
			errc <- ErrNotConnected
			return
		}
		if m.transfer.syncing {
			errc <- ErrSyncingData
			return
		}
		if len(data) == 0 {
			errc <- packet.ErrNoData
			return
		}
		m.transfer.ota.Set(data, fh)
		m.transfer.kind = payloadOta
		m.transfer.syncing = true
		m.transfer.consecutiveErrors = 0

		m.enqueueKickCommand(OpUpdateMcu, transmitParams(0, 1, len(data)))
		errc <- nil
	})
	return <-errc
}

// transmitParams packs compress(1) | rows(2 BE) | totalLen(4 BE).
func transmitParams(compress byte, rows, totalLen int) []byte {
	params := make([]byte, 0, 7)
	params = append(params, compress)
	params = binary.BigEndian.AppendUint16(params, uint16(rows))
	return binary.BigEndian.AppendUint32(params, uint32(totalLen))
}

// enqueueKickCommand writes the transfer-initiating command straight to the
// link: its acknowledgement is the printer's first packet request, not a
// framed reply, so it never enters the command scheduler.
func (m *ConnectManager) enqueueKickCommand(opcode uint16, params []byte) {
	if err := m.sendToLink(FrameCommand(opcode, params)); err != nil {
		m.failTransfer(err)
	}
}

func (m *ConnectManager) CancelSendMultiRowDataPacket() { m.cancelTransfer(payloadMultiRow) }
func (m *ConnectManager) CancelSendLogoDataPacket() { m.cancelTransfer(payloadLogo) }
func (m *ConnectManager) CancelSendOtaDataPacket() { m.cancelTransfer(payloadOta) }

func (m *ConnectManager) cancelTransfer(kind payloadKind) {
	m.post(func() {
		if m.transfer.kind != kind || !m.transfer.syncing {
			return
		}
		m.clearTransfer()
		m.emitDataProgressError(ErrCancelled)
	})
}

// abortTransfers kills whatever transfer is active; used on disconnect.
func (m *ConnectManager) abortTransfers(err error) {
	if !m.transfer.syncing {
		return
	}
	m.clearTransfer()
	m.emitDataProgressError(err)
}

func (m *ConnectManager) clearTransfer() {
	m.transfer.multiRow.Clear()
	m.transfer.logo.Clear()
	m.transfer.ota.Clear()
	m.transfer.kind = payloadNone
	m.transfer.syncing = false
	m.transfer.waitingPrintComplete = false
	m.transfer.consecutiveErrors = 0
}

func (m *ConnectManager) failTransfer(err error) {
	m.clearTransfer()
	m.emitDataProgressError(err)
}

// handleTransferResponse routes a printer control byte to the active engine.
// Returns false when the bytes carry no transfer control opcode, in which
// case they are treated as a framed reply.
func (m *ConnectManager) handleTransferResponse(data []byte) bool {
	switch {
	case packet.IsRequestData(data):
		m.transfer.consecutiveErrors = 0
		m.handleRequestData(data)
	case packet.IsNAK(data):
		m.bumpTransferErrors()
		m.resendCurrent()
	case packet.IsEOT(data):
		m.finishTransfer()
	default:
		return false
	}
	return true
}

func (m *ConnectManager) bumpTransferErrors() {
	m.transfer.consecutiveErrors++
	if m.transfer.consecutiveErrors >= packet.MaxErrors {
		slog.Error("transfer aborted", "consecutive_errors", m.transfer.consecutiveErrors)
		m.failTransfer(ErrMaxErrors)
	}
}

func (m *ConnectManager) handleRequestData(data []byte) {
	switch m.transfer.kind {
	case payloadMultiRow:
		e := &m.transfer.multiRow
		if !e.Started() {
			code, ok := packet.SizeCodeIn(data)
			if !ok {
				code = packet.STX
			}
			if err := e.Start(code); err != nil {
				m.failTransfer(err)
				return
			}
			m.emitDataProgressStart(float64(e.TotalDataLen()), 0, packet.DefaultProgressPrecision, e.StartTime())
		}
		if m.transfer.waitingPrintComplete {
			return // row held until the printer reports print-complete
		}
		m.sendNextMultiRow(false)
	case payloadLogo, payloadOta:
		e := m.activeOtaEngine()
		if !e.Started() {
			code, ok := packet.SizeCodeIn(data)
			if !ok {
				code = packet.STX
			}
			if err := e.Start(code); err != nil {
				m.failTransfer(err)
				return
			}
			m.emitDataProgressStart(float64(e.TotalDataLen()), 0, packet.DefaultProgressPrecision, e.StartTime())
		}
		m.sendNextOta(e)
	}
}

func (m *ConnectManager) activeOtaEngine() *packet.OtaPacket {
	if m.transfer.kind == payloadLogo {
		return &m.transfer.logo
	}
	return &m.transfer.ota
}

// sendNextMultiRow emits the next packet, honouring the row pacing mode at
// row boundaries: in wait-next mode the cursor is preserved and the stream
// resumes into the next row once print-complete is observed.
func (m *ConnectManager) sendNextMultiRow(resume bool) {
	e := &m.transfer.multiRow
	if !e.HasNextPacket() {
		return // everything emitted, waiting for EOT
	}
	if e.AtRowBoundary() && m.transfer.sendType == DataSendCompleteOnceWaitNext && !resume {
		m.transfer.waitingPrintComplete = true
		return
	}
	m.transfer.waitingPrintComplete = false
	pkt, err := e.NextPacket()
	if err != nil {
		m.failTransfer(err)
		return
	}
	if err := m.sendToLink(pkt); err != nil {
		m.failTransfer(err)
		return
	}
	if e.InvalidateProgress() {
		m.emitDataProgress(float64(e.TotalDataLen()), e.Progress(), packet.DefaultProgressPrecision, e.StartTime(), e.CurrentTime())
	}
}

func (m *ConnectManager) sendNextOta(e *packet.OtaPacket) {
	if !e.HasNextPacket() {
		return // waiting for EOT
	}
	pkt, err := e.NextPacket()
	if err != nil {
		m.failTransfer(err)
		return
	}
	if err := m.sendToLink(pkt); err != nil {
		m.failTransfer(err)
		return
	}
	if e.InvalidateProgress() {
		m.emitDataProgress(float64(e.TotalDataLen()), e.Progress(), packet.DefaultProgressPrecision, e.StartTime(), e.CurrentTime())
	}
}

// resendCurrent answers a NAK with a byte-identical re-emission.
func (m *ConnectManager) resendCurrent() {
	if !m.transfer.syncing {
		return
	}
	var cur []byte
	if m.transfer.kind == payloadMultiRow {
		cur = m.transfer.multiRow.CurrentPacket()
	} else {
		cur = m.activeOtaEngine().CurrentPacket()
	}
	if cur == nil {
		return
	}
	if err := m.sendToLink(cur); err != nil {
		m.failTransfer(err)
	}
}

func (m *ConnectManager) finishTransfer() {
	if !m.transfer.syncing {
		return
	}
	switch m.transfer.kind {
	case payloadMultiRow:
		e := &m.transfer.multiRow
		e.InvalidateProgress()
		m.emitDataProgressFinish(float64(e.TotalDataLen()), e.Progress(), packet.DefaultProgressPrecision, e.StartTime(), e.CurrentTime())
	default:
		e := m.activeOtaEngine()
		e.InvalidateProgress()
		m.emitDataProgressFinish(float64(e.TotalDataLen()), e.Progress(), packet.DefaultProgressPrecision, e.StartTime(), e.CurrentTime())
	}
	m.clearTransfer()
}

// handlePrintNotification reacts to the printer's own 0x1000/0x1001 frames:
// fan out the event and, in wait-next mode, resume the paused transfer.
func (m *ConnectManager) handlePrintNotification(f Frame) {
	begin, end, current := 0, 0, 0
	if len(f.Params) >= 6 {
		begin = int(binary.BigEndian.Uint16(f.Params[0:2]))
		end = int(binary.BigEndian.Uint16(f.Params[2:4]))
		current = int(binary.BigEndian.Uint16(f.Params[4:6]))
	}
	switch f.Opcode {
	case OpPrintStart:
		m.emitPrintStart(m.device, begin, end, current)
	case OpPrintCompleted:
		m.emitPrintComplete(m.device, begin, end, current)
		if m.transfer.syncing && m.transfer.kind == payloadMultiRow && m.transfer.waitingPrintComplete {
			m.sendNextMultiRow(true)
		}
	}
}
