package mpegts

import "sync"

const (
	PacketSize = 188
	syncByte   = 0x47

	PIDPAT   = 0x0000
	PIDPMT   = 0x0100
	PIDVideo = 0x0101
	PIDAudio = 0x0102

	StreamTypeH264 = 0x1B
	StreamTypeH265 = 0x24
	StreamTypeAAC  = 0x0F
)

// Muxer frames PES packets into 188-byte transport-stream packets,
// tracking a per-PID continuity counter across a single segment's
// lifetime.
type Muxer struct {
	mu                sync.Mutex
	continuityCounter map[uint16]byte
	hasVideo          bool
	hasAudio          bool
}

// NewMuxer returns a Muxer configured for the given elementary streams.
func NewMuxer(hasVideo, hasAudio bool) *Muxer {
	return &Muxer{
		continuityCounter: make(map[uint16]byte),
		hasVideo:          hasVideo,
		hasAudio:          hasAudio,
	}
}

// BeginSegment emits freshly generated PAT and PMT packets, as required at
// the start of every TS segment.
func (m *Muxer) BeginSegment() []byte {
	out := append([]byte{}, m.writePSI(PIDPAT, m.buildPAT())...)
	out = append(out, m.writePSI(PIDPMT, m.buildPMT())...)
	return out
}

func (m *Muxer) buildPAT() []byte {
	section := make([]byte, 0, 13)
	section = append(section, 0x00) // table_id
	section = append(section, 0xB0, 0x0D) // section_syntax_indicator=1, reserved, section_length=13
	section = append(section, 0x00, 0x01) // transport_stream_id
	section = append(section, 0xC1)       // reserved(2)=11, version(5)=0, current_next=1
	section = append(section, 0x00)       // section_number
	section = append(section, 0x00)       // last_section_number
	section = append(section, 0x00, 0x01) // program_number = 1
	section = append(section, 0xE0|byte(PIDPMT>>8), byte(PIDPMT&0xFF)) // reserved(3)=111, PMT PID

	crc := crc32MPEG2(section)
	section = append(section, byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc))
	return section
}

func (m *Muxer) buildPMT() []byte {
	var streams []byte
	if m.hasVideo {
		streams = append(streams, StreamTypeH264, 0xE0|byte(PIDVideo>>8), byte(PIDVideo&0xFF), 0xF0, 0x00)
	}
	if m.hasAudio {
		streams = append(streams, StreamTypeAAC, 0xE0|byte(PIDAudio>>8), byte(PIDAudio&0xFF), 0xF0, 0x00)
	}

	sectionLength := 5 + 4 + len(streams) + 4
	pcrPID := PIDVideo
	if !m.hasVideo {
		pcrPID = PIDAudio
	}

	section := make([]byte, 0, 3+sectionLength)
	section = append(section, 0x02) // table_id
	section = append(section, 0xB0|byte(sectionLength>>8), byte(sectionLength))
	section = append(section, 0x00, 0x01) // program_number
	section = append(section, 0xC1)       // version 0, current_next 1
	section = append(section, 0x00)       // section_number
	section = append(section, 0x00)       // last_section_number
	section = append(section, 0xE0|byte(pcrPID>>8), byte(pcrPID))
	section = append(section, 0xF0, 0x00) // program_info_length = 0
	section = append(section, streams...)

	crc := crc32MPEG2(section)
	section = append(section, byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc))
	return section
}

// writePSI frames a PAT/PMT section into one or more TS packets, with
// PUSI=1 and the mandatory 1-byte 0x00 pointer field on the first packet.
func (m *Muxer) writePSI(pid uint16, section []byte) []byte {
	payload := append([]byte{0x00}, section...)
	return m.framePayload(pid, payload, true, false, nil)
}

// PacketizePES frames a single PES packet's bytes into TS packets. When
// pcr90kHz is non-nil, the first packet carries a PCR derived from it.
// isKeyframe sets random_access_indicator on the first packet.
func (m *Muxer) PacketizePES(pid uint16, pes []byte, isKeyframe bool, pcr90kHz *uint64) []byte {
	return m.framePayload(pid, pes, true, isKeyframe, pcr90kHz)
}

func (m *Muxer) framePayload(pid uint16, payload []byte, pusiOnFirst, randomAccessOnFirst bool, pcr90kHz *uint64) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []byte
	pos := 0
	first := true
	for pos < len(payload) || first {
		packet := make([]byte, PacketSize)
		packet[0] = syncByte

		pusi := first && pusiOnFirst
		pidField := pid & 0x1FFF
		if pusi {
			pidField |= 0x4000
		}
		packet[1] = byte(pidField >> 8)
		packet[2] = byte(pidField)

		cc := m.continuityCounter[pid]

		remaining := payload[pos:]
		needsAdaptation := first && (randomAccessOnFirst || pcr90kHz != nil) || len(remaining) < 184

		headerLen := 4
		var adaptation []byte
		if needsAdaptation {
			pcr := pcr90kHz
			if !first {
				pcr = nil
			}
			ra := first && randomAccessOnFirst
			adaptation = buildAdaptationField(len(remaining), ra, pcr)
		}

		if len(adaptation) > 0 {
			packet[3] = (0x03 << 4) | (cc & 0x0F) // adaptation field + payload
			copy(packet[headerLen:], adaptation)
			headerLen += len(adaptation)
		} else {
			packet[3] = (0x01 << 4) | (cc & 0x0F) // payload only
		}

		n := copy(packet[headerLen:], remaining)
		pos += n

		m.continuityCounter[pid] = (cc + 1) % 16
		out = append(out, packet...)
		first = false
	}
	return out
}

// buildAdaptationField constructs an adaptation field sized so that a
// packet carrying remainingPayload payload bytes comes out to exactly
// PacketSize in total. When pcr90kHz is non-nil it is scaled to the
// 27 MHz clock (value*300) and encoded as PCR_base/PCR_ext.
func buildAdaptationField(remainingPayload int, randomAccess bool, pcr90kHz *uint64) []byte {
	contentLen := 1 // flags byte
	if pcr90kHz != nil {
		contentLen += 6
	}
	fieldLenWithoutLengthByte := contentLen
	stuffing := (184 - remainingPayload) - (1 + fieldLenWithoutLengthByte)
	if stuffing < 0 {
		stuffing = 0
	}

	field := make([]byte, 0, 1+contentLen+stuffing)
	field = append(field, byte(contentLen+stuffing))

	var flags byte
	if randomAccess {
		flags |= 0x40
	}
	if pcr90kHz != nil {
		flags |= 0x10
	}
	field = append(field, flags)

	if pcr90kHz != nil {
		pcr27MHz := *pcr90kHz * 300
		pcrBase := pcr27MHz / 300
		pcrExt := pcr27MHz % 300
		field = append(field,
			byte(pcrBase>>25),
			byte(pcrBase>>17),
			byte(pcrBase>>9),
			byte(pcrBase>>1),
			byte((pcrBase<<7)&0x80)|0x7E|byte(pcrExt>>8),
			byte(pcrExt),
		)
	}

	for i := 0; i < stuffing; i++ {
		field = append(field, 0xFF)
	}

	return field
}
