package kernel

// Transport is the wire-level collaborator this package assumes exists
// but does not implement: a host-side byte transport (UART, USB CDC, a
// TCP socket standing in for one) that frames and delivers messages to
// whatever sits above the thread kernel. Out of scope per SPEC_FULL.md's
// Non-goals — no wire protocol is defined here — but the seam is named
// so a caller wiring this kernel into a larger system knows where its
// own transport plugs in.
type Transport interface {
	BytesAvailable() int
	ReadBytes(buf []byte) (int, error)
	WriteBytes(buf []byte) (int, error)
}

// MessageHeader is the minimal shape a framed message on top of a
// Transport would carry; decoding its payload is also out of scope.
type MessageHeader struct {
	Length uint16
	Type   uint8
}

// UnpackMessageHeader and DecodeMessage are named, not implemented: any
// concrete wire format belongs to the collaborator that defines it, not
// to the thread kernel.
func UnpackMessageHeader(buf []byte) (MessageHeader, error) {
	return MessageHeader{}, newError("UnpackMessageHeader", KindInvalidArgument, "no wire format is defined by this package")
}

func DecodeMessage(hdr MessageHeader, payload []byte) (any, error) {
	return nil, newError("DecodeMessage", KindInvalidArgument, "no wire format is defined by this package")
}
