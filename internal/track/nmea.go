package track

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"
)

// hdopToMeters converts a GGA horizontal dilution of precision into an
// approximate accuracy radius, assuming a ~5m user-equivalent range error.
const hdopToMeters = 5.0

// SerialNMEASource acquires positions from a GPS receiver speaking NMEA 0183
// over a serial port. Only $..GGA sentences carry both a fix and HDOP, so
// Acquire reads lines until it sees a valid one or the context expires.
type SerialNMEASource struct {
	port    serial.Port
	scanner *bufio.Scanner
}

// OpenSerialNMEASource opens the named port at the conventional GPS baud
// rate. The caller owns the returned source and must Close it.
func OpenSerialNMEASource(portName string) (*SerialNMEASource, error) {
	mode := &serial.Mode{BaudRate: 9600}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("open gps port %s: %w", portName, err)
	}
	// Bounded reads so Acquire can notice context expiry between lines.
	if err := port.SetReadTimeout(time.Second); err != nil {
		port.Close()
		return nil, fmt.Errorf("set gps read timeout: %w", err)
	}
	return &SerialNMEASource{
		port:    port,
		scanner: bufio.NewScanner(port),
	}, nil
}

// Close releases the serial port.
func (s *SerialNMEASource) Close() error {
	return s.port.Close()
}

// Acquire reads sentences until it can return a position fix.
func (s *SerialNMEASource) Acquire(ctx context.Context) (PositionSample, error) {
	for {
		if err := ctx.Err(); err != nil {
			return PositionSample{}, fmt.Errorf("gps acquisition: %w", err)
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return PositionSample{}, fmt.Errorf("gps read: %w", err)
			}
			// Read timeout with no data; try again until the context expires.
			continue
		}
		sample, ok := parseGGA(strings.TrimSpace(s.scanner.Text()))
		if ok {
			sample.CapturedAt = time.Now()
			return sample, nil
		}
	}
}

// parseGGA parses a $..GGA sentence into a sample. It returns false for
// other sentence types, checksum failures, and fixless sentences.
func parseGGA(line string) (PositionSample, bool) {
	if !strings.HasPrefix(line, "$") {
		return PositionSample{}, false
	}

	payload, sum, ok := strings.Cut(line[1:], "*")
	if !ok || !validChecksum(payload, sum) {
		return PositionSample{}, false
	}

	fields := strings.Split(payload, ",")
	// GGA: talker, time, lat, N/S, lon, E/W, quality, sats, hdop, alt, ...
	if len(fields) < 9 || !strings.HasSuffix(fields[0], "GGA") {
		return PositionSample{}, false
	}
	if fields[6] == "" || fields[6] == "0" {
		// Fix quality 0: no position available.
		return PositionSample{}, false
	}

	lat, err := parseCoordinate(fields[2], fields[3])
	if err != nil {
		return PositionSample{}, false
	}
	lon, err := parseCoordinate(fields[4], fields[5])
	if err != nil {
		return PositionSample{}, false
	}

	accuracy := hdopToMeters
	if hdop, err := strconv.ParseFloat(fields[8], 64); err == nil && hdop > 0 {
		accuracy = hdop * hdopToMeters
	}

	return PositionSample{Latitude: lat, Longitude: lon, AccuracyMeters: accuracy}, true
}

// parseCoordinate converts NMEA ddmm.mmmm (or dddmm.mmmm) plus hemisphere
// into signed decimal degrees.
func parseCoordinate(value, hemisphere string) (float64, error) {
	if value == "" || hemisphere == "" {
		return 0, fmt.Errorf("empty coordinate")
	}
	dot := strings.Index(value, ".")
	if dot < 3 {
		return 0, fmt.Errorf("malformed coordinate %q", value)
	}

	degrees, err := strconv.ParseFloat(value[:dot-2], 64)
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.ParseFloat(value[dot-2:], 64)
	if err != nil {
		return 0, err
	}

	deg := degrees + minutes/60
	switch hemisphere {
	case "N", "E":
		return deg, nil
	case "S", "W":
		return -deg, nil
	default:
		return 0, fmt.Errorf("unknown hemisphere %q", hemisphere)
	}
}

// validChecksum verifies the XOR checksum between '$' and '*'.
func validChecksum(payload, sumHex string) bool {
	want, err := strconv.ParseUint(strings.TrimSpace(sumHex), 16, 8)
	if err != nil {
		return false
	}
	var got byte
	for i := 0; i < len(payload); i++ {
		got ^= payload[i]
	}
	return got == byte(want)
}
