package frame

var terminator = [TerminatorLen]byte{Terminator, Terminator, Terminator}

// AppendCommand appends the host->device wire form of cmd to dst:
// [FF FF FF] cmd... FF FF FF. The leading run is written only when prefix is set;
// it flushes any garbage the display may still be parsing.
func AppendCommand(dst []byte, cmd string, prefix bool) []byte {
	if prefix {
		dst = append(dst, terminator[:]...)
	}
	dst = append(dst, cmd...)
	return append(dst, terminator[:]...)
}

// EncodeCommand returns a freshly allocated wire form of cmd.
func EncodeCommand(cmd string, prefix bool) []byte {
	n := len(cmd) + TerminatorLen
	if prefix {
		n += TerminatorLen
	}
	return AppendCommand(make([]byte, 0, n), cmd, prefix)
}
