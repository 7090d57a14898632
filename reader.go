package vcdiff

import (
	"io"

	"github.com/vcdiff-go/vcdiff/xlog"
)

// defaultMaxSectionSize bounds the length of any one window's
// delta-encoding or the header's code table data, per spec.md §4.6: a
// malicious or corrupt length field must not be able to force an
// unbounded allocation before the decoder has seen any of the bytes it
// names.
const defaultMaxSectionSize = 64 << 20

// DecoderConfig configures a Decoder (spec.md §4.8's ambient configuration
// layer, mirroring xz.WriterConfig/ReaderConfig in the teacher).
type DecoderConfig struct {
	// DisallowVCDTarget rejects any window whose Win_Indicator sets
	// VCD_TARGET. (default: false, i.e. VCD_TARGET is allowed) Named the
	// way the teacher names its own double-negative opt-outs (NoCheckSum
	// in WriterConfig) so the zero value is the permissive default.
	DisallowVCDTarget bool

	// MaxTargetFileSize bounds the total target bytes this Decoder will
	// produce across the whole file; 0 means unbounded. Exceeding it is a
	// PolicyError. This exists because honoring VCD_TARGET requires
	// retaining the full target history in memory.
	MaxTargetFileSize uint64

	// MaxTargetWindowSize bounds the declared target length of any single
	// window; 0 means unbounded.
	MaxTargetWindowSize uint32

	// MaxSectionSize bounds the length of any one window's
	// delta-encoding, and of the header's code table data, checked
	// against the declared length before that many bytes are buffered.
	// (default: 64 MiB)
	MaxSectionSize uint32

	// Interleaved must match the layout the encoder used to produce this
	// stream. The interleaved SDCH extension is a deployment-level
	// agreement between encoder and decoder, not self-describing on the
	// wire (spec.md §9 Open Questions resolution), so it is configured
	// here rather than detected from the stream.
	Interleaved bool
}

// ApplyDefaults fills in the zero-valued fields of c with their defaults.
func (c *DecoderConfig) ApplyDefaults() {
	if c.MaxSectionSize == 0 {
		c.MaxSectionSize = defaultMaxSectionSize
	}
}

// Verify checks c for inconsistencies, applying defaults first.
func (c *DecoderConfig) Verify() error {
	if c == nil {
		return usageErrorf("decoder configuration is nil")
	}
	c.ApplyDefaults()
	return nil
}

type decoderState int

const (
	stateExpectHeader decoderState = iota
	stateExpectCodeTable
	stateExpectWinIndicator
	stateExpectWindowBody
)

// Decoder reconstructs a target byte sequence from a VCDIFF delta file fed
// to it in arbitrarily-sized chunks (spec.md §4.5/§4.6). It holds the
// dictionary and the full history of target bytes produced so far (needed
// for VCD_TARGET addressing), and never blocks: DecodeChunk always returns
// once it has consumed everything it currently can.
type Decoder struct {
	allowVCDTarget      bool
	maxTargetFileSize   uint64
	maxTargetWindowSize uint32
	maxSectionSize      uint32
	interleaved         bool

	dictionary    []byte
	targetHistory []byte

	codeTable          *CodeTableData
	nearSize, sameSize byte

	state        decoderState
	pending      []byte
	codeTableLen int
	curHdr       windowHeader

	err    error
	logger xlog.Logger
}

// NewDecoder creates a Decoder from cfg. Call StartDecoding before the
// first DecodeChunk.
func NewDecoder(cfg DecoderConfig) *Decoder {
	cfg.ApplyDefaults()
	return &Decoder{
		allowVCDTarget:      !cfg.DisallowVCDTarget,
		maxTargetFileSize:   cfg.MaxTargetFileSize,
		maxTargetWindowSize: cfg.MaxTargetWindowSize,
		maxSectionSize:      cfg.MaxSectionSize,
		interleaved:         cfg.Interleaved,
		codeTable:           defaultCodeTable,
		nearSize:            defaultNearSize,
		sameSize:            defaultSameSize,
		state:               stateExpectHeader,
		codeTableLen:        -1,
	}
}

// SetAllowVCDTarget overrides the DisallowVCDTarget setting from
// construction.
func (d *Decoder) SetAllowVCDTarget(allow bool) { d.allowVCDTarget = allow }

// SetMaxTargetFileSize overrides the MaxTargetFileSize setting from
// construction.
func (d *Decoder) SetMaxTargetFileSize(n uint64) { d.maxTargetFileSize = n }

// SetMaxTargetWindowSize overrides the MaxTargetWindowSize setting from
// construction.
func (d *Decoder) SetMaxTargetWindowSize(n uint32) { d.maxTargetWindowSize = n }

// SetLogger installs l to receive non-fatal diagnostic messages. A nil
// logger (the default) silently discards them.
func (d *Decoder) SetLogger(l xlog.Logger) { d.logger = l }

// StartDecoding resets the decoder to the beginning of a new delta file
// against dictionary. dictionary may be nil or empty for a file that only
// ever uses VCD_TARGET or pure-ADD windows.
func (d *Decoder) StartDecoding(dictionary []byte) error {
	d.dictionary = dictionary
	d.codeTable, d.nearSize, d.sameSize = defaultCodeTable, defaultNearSize, defaultSameSize
	d.targetHistory = d.targetHistory[:0]
	d.pending = d.pending[:0]
	d.codeTableLen = -1
	d.state = stateExpectHeader
	d.err = nil
	return nil
}

// DecodeChunk feeds p to the decoder and writes any target bytes that
// become decodable as a result to w. It tolerates p arriving split at any
// byte boundary, including one byte at a time: bytes that don't yet form a
// complete header, window header or window body are retained internally
// and combined with the next call.
//
// Once DecodeChunk returns a non-nil error, the Decoder is done: every
// subsequent call returns the same error without doing anything further.
func (d *Decoder) DecodeChunk(p []byte, w io.Writer) (n int, err error) {
	if d.err != nil {
		return 0, d.err
	}
	d.pending = append(d.pending, p...)
	if err := d.drain(w); err != nil {
		d.err = err
		return 0, err
	}
	return len(p), nil
}

// drain processes d.pending for as long as a full header, window header or
// window body is available, returning nil once it needs more input than
// is currently buffered.
func (d *Decoder) drain(w io.Writer) error {
	for {
		switch d.state {
		case stateExpectHeader:
			if len(d.pending) < 5 {
				return nil
			}
			fh, err := parseFileHeader(d.pending)
			if err != nil {
				return err
			}
			d.pending = d.pending[5:]
			if fh.customTable {
				d.state = stateExpectCodeTable
				d.codeTableLen = -1
			} else {
				d.state = stateExpectWinIndicator
			}

		case stateExpectCodeTable:
			if d.codeTableLen < 0 {
				v, n, err := readVarint32(d.pending)
				if err != nil {
					if err == errShortVarint {
						return nil
					}
					return err
				}
				if d.maxSectionSize > 0 && v > d.maxSectionSize {
					return policyErrorf("code table data length %d exceeds configured maximum %d", v, d.maxSectionSize)
				}
				d.pending = d.pending[n:]
				d.codeTableLen = int(v)
			}
			if len(d.pending) < d.codeTableLen {
				return nil
			}
			blob := d.pending[:d.codeTableLen]
			d.pending = d.pending[d.codeTableLen:]
			table, near, same, _, err := decodeCustomCodeTable(blob)
			if err != nil {
				return err
			}
			d.codeTable, d.nearSize, d.sameSize = table, near, same
			d.codeTableLen = -1
			d.state = stateExpectWinIndicator

		case stateExpectWinIndicator:
			if len(d.pending) == 0 {
				return nil
			}
			hdr, n, err := parseWindowHeader(d.pending)
			if err != nil {
				if err == errShortVarint {
					return nil
				}
				return err
			}
			if hdr.isTarget() && !d.allowVCDTarget {
				return policyErrorf("window uses VCD_TARGET, which this decoder is configured to reject")
			}
			if d.maxSectionSize > 0 && hdr.deltaLen > d.maxSectionSize {
				return policyErrorf("window delta-encoding length %d exceeds configured maximum %d", hdr.deltaLen, d.maxSectionSize)
			}
			d.pending = d.pending[n:]
			d.curHdr = hdr
			d.state = stateExpectWindowBody

		case stateExpectWindowBody:
			if len(d.pending) < int(d.curHdr.deltaLen) {
				return nil
			}
			body := d.pending[:d.curHdr.deltaLen]
			d.pending = d.pending[d.curHdr.deltaLen:]
			if err := d.decodeWindow(d.curHdr, body, w); err != nil {
				return err
			}
			d.state = stateExpectWinIndicator

		default:
			return internalErrorf("decoder in unknown state %d", d.state)
		}
	}
}

// decodeWindow parses and replays one complete window body, writes its
// target bytes to w, and extends the target history.
func (d *Decoder) decodeWindow(hdr windowHeader, body []byte, w io.Writer) error {
	wb, err := parseWindowBody(hdr, body)
	if err != nil {
		return err
	}
	if d.maxTargetWindowSize > 0 && wb.targetLen > d.maxTargetWindowSize {
		return policyErrorf("window target length %d exceeds configured maximum %d", wb.targetLen, d.maxTargetWindowSize)
	}

	source := sourceSlice(hdr, d.dictionary, d.targetHistory)
	if source == nil && hdr.hasSource() {
		return formatErrorf("window source segment [%d, %d) out of range", hdr.sourceSegPos, hdr.sourceSegPos+hdr.sourceSegSize)
	}

	ex := &windowExec{
		interleaved:  d.interleaved,
		codeTable:    d.codeTable,
		cache:        newAddressCache(d.nearSize, d.sameSize),
		source:       source,
		data:         wb.data,
		instructions: wb.instructions,
		addrs:        wb.addrs,
	}
	target, err := ex.run()
	if err != nil {
		return err
	}
	if uint32(len(target)) != wb.targetLen {
		return formatErrorf("window produced %d target bytes, declared length %d", len(target), wb.targetLen)
	}

	if wb.hasChecksumField {
		if got := checksum(target); got != wb.checksum {
			return &ChecksumError{Want: wb.checksum, Got: got}
		}
	}

	if d.maxTargetFileSize > 0 && uint64(len(d.targetHistory))+uint64(len(target)) > d.maxTargetFileSize {
		return policyErrorf("decoded target would exceed configured maximum file size %d", d.maxTargetFileSize)
	}
	d.targetHistory = append(d.targetHistory, target...)

	if len(target) == 0 {
		xlog.Println(d.logger, "vcdiff: decoded an empty-target window")
		return nil
	}
	_, err = w.Write(target)
	return err
}

// FinishDecoding reports whether the input ended at a valid delta file
// boundary. A file may end only once the decoder is waiting for the next
// window's Win_Indicator (which includes a file holding just the header
// and no windows); ending before or in the file header, mid-window-header
// or mid-window-body is truncation, so empty input is truncation too.
func (d *Decoder) FinishDecoding() error {
	if d.err != nil {
		return d.err
	}
	if d.state != stateExpectWinIndicator {
		return &Truncated{Where: "delta file"}
	}
	return nil
}
