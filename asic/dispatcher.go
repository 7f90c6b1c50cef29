package asic

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/jacobsa/go-serial/serial"
	"go.uber.org/zap"
)

// Register reply frame on the UART:
//   0xAA 0x55 | cmd | chip | counter (4B LE) | checksum
// cmd 0x51 is a hash-counter register reply; the checksum is the XOR of the
// cmd, chip and counter bytes.
const (
	frameLen     = 9
	cmdHashCount = 0x51
)

var framePreamble = []byte{0xAA, 0x55}

// readHashCountCmd is broadcast periodically to make every chip report its
// counter register.
var readHashCountCmd = []byte{0x55, 0xAA, 0x51, 0xFF, 0x00, 0x00}

// RegisterSink receives one call per decoded register reply.
type RegisterSink interface {
	OnRegisterReply(chip int, counterNow uint32)
}

// DispatcherArgs configures the serial receive path.
type DispatcherArgs struct {
	DevPath      string
	BaudRate     uint
	PollInterval time.Duration
	Sink         RegisterSink
	Logger       *zap.Logger
}

// Dispatcher owns the serial port, periodically requests hash counters from
// all chips and decodes their replies into sink calls. It never blocks on
// the sink beyond its lock hold time.
type Dispatcher struct {
	devPath      string
	baudRate     uint
	pollInterval time.Duration
	sink         RegisterSink
	logger       *zap.Logger

	port           io.ReadWriteCloser // preset in tests
	quit           chan struct{}
	malformedCount uint64
}

func NewDispatcher(args DispatcherArgs) *Dispatcher {
	logger := args.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	poll := args.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	return &Dispatcher{
		devPath:      args.DevPath,
		baudRate:     args.BaudRate,
		pollInterval: poll,
		sink:         args.Sink,
		logger:       logger,
	}
}

// Start opens the serial port (unless a port was injected) and launches the
// read and poll loops.
func (d *Dispatcher) Start() error {
	if d.port == nil {
		options := serial.OpenOptions{
			PortName:        d.devPath,
			BaudRate:        d.baudRate,
			DataBits:        8,
			StopBits:        1,
			MinimumReadSize: 4,
		}
		port, err := serial.Open(options)
		if err != nil {
			return fmt.Errorf("asic: open %s: %w", d.devPath, err)
		}
		d.port = port
	}
	d.quit = make(chan struct{})

	go d.readLoop()
	go d.pollLoop()
	return nil
}

func (d *Dispatcher) Stop() {
	if d.quit != nil {
		close(d.quit)
	}
	if d.port != nil {
		d.port.Close()
	}
}

// MalformedFrames reports how many byte sequences were skipped because they
// did not checksum as a valid reply.
func (d *Dispatcher) MalformedFrames() uint64 {
	return atomic.LoadUint64(&d.malformedCount)
}

func (d *Dispatcher) pollLoop() {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-d.quit:
			return
		case <-ticker.C:
			if _, err := d.port.Write(readHashCountCmd); err != nil {
				d.logger.Warn("hashcount poll write failed", zap.Error(err))
			}
		}
	}
}

func (d *Dispatcher) readLoop() {
	d.logger.Debug("start register reply reader")
	scanner := bufio.NewScanner(d.port)
	scanner.Split(d.splitFrames)
	for scanner.Scan() {
		frame := scanner.Bytes()
		chip := int(frame[3])
		counter := binary.LittleEndian.Uint32(frame[4:8])

		d.logger.Debug("register reply",
			zap.Int("chip", chip),
			zap.Uint32("counter", counter))

		d.sink.OnRegisterReply(chip, counter)
	}
	d.logger.Debug("register reply reader exited")
}

// splitFrames scans the UART byte stream for preamble-delimited reply
// frames, dropping garbage between frames.
func (d *Dispatcher) splitFrames(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for index := 0; index+len(framePreamble) <= len(data); index++ {
		if !bytes.Equal(data[index:index+len(framePreamble)], framePreamble) {
			continue
		}
		if len(data) < index+frameLen { // waiting for more data
			if atEOF {
				return 0, nil, io.EOF
			}
			return index, nil, nil
		}
		frame := data[index : index+frameLen]
		if frame[2] != cmdHashCount || !checksumOK(frame) {
			atomic.AddUint64(&d.malformedCount, 1)
			d.logger.Debug("malformed frame", zap.String("bytes", fmt.Sprintf("%02X", frame)))
			return index + len(framePreamble), nil, nil
		}
		return index + frameLen, frame, nil
	}

	if atEOF {
		return 0, nil, io.EOF
	}
	// no preamble anywhere in the window: discard it, keeping the tail
	// byte in case a preamble is split across reads
	if len(data) >= len(framePreamble) {
		return len(data) - len(framePreamble) + 1, nil, nil
	}
	return 0, nil, nil
}

func checksumOK(frame []byte) bool {
	var sum byte
	for _, b := range frame[2 : frameLen-1] {
		sum ^= b
	}
	return sum == frame[frameLen-1]
}
