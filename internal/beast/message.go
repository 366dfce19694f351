package beast

// Beast mode message types
const (
	SyncByte   = 0x1A // Beast mode sync byte, also the escape byte
	ModeAC     = 0x31 // Mode A/C
	ModeS      = 0x32 // Mode S Short (56 bits)
	ModeSLong  = 0x33 // Mode S Long (112 bits)
	ModeStatus = 0x34 // Receiver status
)

// headerLen covers the 48-bit MLAT timestamp and the signal byte
const headerLen = 7

// Message is one unescaped Beast frame
type Message struct {
	MessageType byte
	Timestamp   uint64 // 12 MHz MLAT counter
	Signal      byte
	Data        []byte
}

// payloadLength returns the number of data bytes carried by a message type,
// or zero for unknown types.
func payloadLength(messageType byte) int {
	switch messageType {
	case ModeAC, ModeStatus:
		return 2
	case ModeS:
		return 7
	case ModeSLong:
		return 14
	default:
		return 0
	}
}

// IsModeS reports whether the message carries a Mode S frame
func (msg *Message) IsModeS() bool {
	return msg.MessageType == ModeS || msg.MessageType == ModeSLong
}
